package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/demohub/demohub-backend/errs"
)

// maxResponseSize caps a single JSON response.
const maxResponseSize = 10 * 1024 * 1024

type Responder struct {
	logger     zerolog.Logger
	production bool
}

func NewResponder(logger zerolog.Logger, production bool) Responder {
	return Responder{logger: logger, production: production}
}

// WriteJSON writes data as-is with the given status.
func (r Responder) WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")

		truncated, _ := json.Marshal(envelope{
			Error: &errorBody{Code: errs.CodeServerError, Message: "The requested data exceeds the maximum response size"},
		})
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(truncated)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// WriteData writes a success envelope.
func (r Responder) WriteData(w http.ResponseWriter, status int, data any, message string) {
	r.WriteJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

// WriteMessage writes a success envelope without data.
func (r Responder) WriteMessage(w http.ResponseWriter, message string) {
	r.WriteJSON(w, http.StatusOK, envelope{Success: true, Message: message})
}

// WriteError translates err into the error envelope. Anything that is not an
// ApiErr is a 500. Details and causes are only shown outside production.
func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		body := &errorBody{Code: errs.CodeServerError, Message: "An unexpected error occurred"}
		if !r.production {
			body.Details = err.Error()
		}
		r.WriteJSON(w, http.StatusInternalServerError, envelope{Error: body})
		return
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().
			Str("code", apiErr.Code).
			Str("error", apiErr.GetFullError()).
			Msg("request failed")
	}

	body := &errorBody{
		Code:    apiErr.Code,
		Message: apiErr.Message(),
		Field:   apiErr.Field,
	}
	if !r.production {
		body.Details = apiErr.Details
		if apiErr.Cause != nil {
			body.Cause = apiErr.GetFullError()
		}
	}

	r.WriteJSON(w, apiErr.StatusCode, envelope{Error: body})
}
