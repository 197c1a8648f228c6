package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/media"
)

const (
	maxJSONBody = 10 << 20
	// maxMultipartBody fits MaxFiles images at the size limit plus form fields.
	maxMultipartBody = media.MaxFiles*media.MaxFileSize + 1<<20
	multipartMemory  = 8 << 20
)

// formInput is a request body reduced to named values. Admin clients send
// JSON with camelCase or snake_case keys, or multipart forms with
// "technologyIds[]" style repeated fields, and both end up here.
type formInput struct {
	json  map[string]json.RawMessage
	form  url.Values
	files map[string][]*multipart.FileHeader
}

func parseInput(w http.ResponseWriter, r *http.Request) (*formInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return nil, bodyError(err, maxMultipartBody)
		}
		return &formInput{form: r.MultipartForm.Value, files: r.MultipartForm.File}, nil

	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err, maxJSONBody)
		}
		return &formInput{form: r.PostForm}, nil

	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		in := &formInput{json: map[string]json.RawMessage{}}
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&in.json); err != nil {
			if errors.Is(err, io.EOF) {
				return in, nil
			}
			return nil, bodyError(err, maxJSONBody)
		}
		if in.json == nil {
			in.json = map[string]json.RawMessage{}
		}
		return in, nil
	}
}

func bodyError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errs.NewPayloadTooLargeError(limit)
	}
	return errs.NewInvalidJSONError(err)
}

// lookup returns the first of keys the body carries. For JSON, raw is the
// undecoded value, for forms it is every value of the field.
func (in *formInput) lookup(keys ...string) (key string, raw json.RawMessage, values []string, ok bool) {
	for _, k := range keys {
		if in.json != nil {
			if v, found := in.json[k]; found {
				return k, v, nil, true
			}
		}
		if in.form != nil {
			if v, found := in.form[k]; found {
				return k, nil, v, true
			}
		}
	}
	return "", nil, nil, false
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str reads a string field. present is false when none of keys was sent;
// a nil value with present true means an explicit null.
func (in *formInput) str(keys ...string) (value *string, present bool, err error) {
	key, raw, values, ok := in.lookup(keys...)
	if !ok {
		return nil, false, nil
	}
	if values != nil {
		v := values[0]
		return &v, true, nil
	}
	if isNull(raw) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, true, fieldError(key, "must be a string")
	}
	return &s, true, nil
}

// boolean accepts JSON booleans and the strings "true" and "false".
func (in *formInput) boolean(keys ...string) (value *bool, present bool, err error) {
	key, raw, values, ok := in.lookup(keys...)
	if !ok {
		return nil, false, nil
	}
	if values == nil && isNull(raw) {
		return nil, true, nil
	}

	text := ""
	if values != nil {
		text = values[0]
	} else {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return &b, true, nil
		}
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, true, fieldError(key, "must be a boolean")
		}
	}

	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return nil, true, fieldError(key, "must be a boolean")
	}
	return &b, true, nil
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// date reads a date field. Null, empty and the string "null" all read as an
// explicit null.
func (in *formInput) date(keys ...string) (value *time.Time, present bool, err error) {
	s, present, err := in.str(keys...)
	if !present {
		return nil, false, nil
	}
	field := keys[0]
	if err != nil {
		return nil, true, errs.NewInvalidDateError(field)
	}
	if s == nil || strings.TrimSpace(*s) == "" || *s == "null" {
		return nil, true, nil
	}
	t, ok := parseDate(strings.TrimSpace(*s))
	if !ok {
		return nil, true, errs.NewInvalidDateError(field)
	}
	return &t, true, nil
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ids reads a list of UUIDs. It accepts a JSON array, a repeated form field,
// a single value, and a form value holding a JSON array. Empty entries and
// null are skipped, so they read as an explicit empty list.
func (in *formInput) ids(keys ...string) (value []uuid.UUID, present bool, err error) {
	key, raw, values, ok := in.lookup(keys...)
	if !ok {
		return nil, false, nil
	}

	var items []string
	switch {
	case values != nil:
		for _, v := range values {
			v = strings.TrimSpace(v)
			if strings.HasPrefix(v, "[") {
				var nested []string
				if err := json.Unmarshal([]byte(v), &nested); err != nil {
					return nil, true, fieldError(key, "must be a list of ids")
				}
				items = append(items, nested...)
				continue
			}
			items = append(items, v)
		}
	case isNull(raw):
	default:
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			list = []json.RawMessage{raw}
		}
		for _, item := range flatten(list) {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, true, fieldError(key, "must be a list of ids")
			}
			items = append(items, s)
		}
	}

	out := []uuid.UUID{}
	for _, item := range items {
		if item == "" {
			continue
		}
		id, err := uuid.Parse(item)
		if err != nil {
			return nil, true, errs.NewInvalidIDError(key)
		}
		out = append(out, id)
	}
	return out, true, nil
}

// flatten unwraps one level of nested arrays, which some form encoders emit.
func flatten(list []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(list))
	for _, item := range list {
		var nested []json.RawMessage
		if err := json.Unmarshal(item, &nested); err == nil {
			out = append(out, nested...)
			continue
		}
		out = append(out, item)
	}
	return out
}

// uploads opens every file sent under one of keys. The caller closes them.
func (in *formInput) uploads(keys ...string) ([]media.Upload, func(), error) {
	var headers []*multipart.FileHeader
	for _, k := range keys {
		headers = append(headers, in.files[k]...)
	}

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	if len(headers) > media.MaxFiles {
		return nil, closeAll, errs.NewInvalidFileError(headers[media.MaxFiles].Filename,
			"at most "+strconv.Itoa(media.MaxFiles)+" images per request")
	}

	uploads := make([]media.Upload, 0, len(headers))
	for _, h := range headers {
		u := media.Upload{Filename: h.Filename, ContentType: h.Header.Get("Content-Type"), Size: h.Size}
		if err := media.ValidateUpload(u); err != nil {
			closeAll()
			return nil, func() {}, errs.NewInvalidFileError(h.Filename, err.Error())
		}
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, errs.NewInvalidFileError(h.Filename, err.Error())
		}
		opened = append(opened, f)
		u.Body = f
		uploads = append(uploads, u)
	}
	return uploads, closeAll, nil
}

func fieldError(field, reason string) error {
	e := errs.NewValidationError(field + " " + reason)
	e.Field = field
	return e
}

// pathID reads a UUID path parameter in its canonical 36 character form.
func pathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if len(raw) != 36 {
		return uuid.Nil, errs.NewInvalidIDError(param)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.NewInvalidIDError(param)
	}
	return id, nil
}

// queryInt reads an optional positive integer query parameter. Absent or
// empty values yield def.
func queryInt(q url.Values, key string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.NewInvalidParametersError(key + " must be an integer")
	}
	return n, nil
}
