package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/config"
	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/database/databasetest"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/media"
	"github.com/demohub/demohub-backend/models"
	"github.com/demohub/demohub-backend/services"
)

const (
	testAdminEmail    = "admin@demohub.test"
	testAdminPassword = "s3cret-password"
	allowedOrigin     = "http://localhost:3000"
)

type fakeStore struct {
	mu        sync.Mutex
	uploaded  []media.Object
	deleted   []string
	deleteErr error
}

func (f *fakeStore) Upload(ctx context.Context, u media.Upload) (*media.Object, error) {
	if err := media.ValidateUpload(u); err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, u.Body); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := "demohub/projects/" + uuid.NewString() + ".png"
	obj := media.Object{URL: "https://cdn.test/" + id, PublicID: id}
	f.uploaded = append(f.uploaded, obj)
	return &obj, nil
}

func (f *fakeStore) Delete(ctx context.Context, publicID string) error {
	return f.DeleteMany(ctx, []string{publicID})
}

func (f *fakeStore) DeleteMany(ctx context.Context, publicIDs []string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicIDs...)
	return nil
}

type apiTestEnv struct {
	ctx    context.Context
	db     database.Database
	tokens *auth.TokenCodec
	store  *fakeStore
	router http.Handler
	admin  models.Admin
}

func testSettings() config.Settings {
	return config.Settings{
		Port:        "0",
		Environment: config.EnvTest,
		CORSOrigins: []string{allowedOrigin},
	}
}

func setupAPITestEnv(t *testing.T) apiTestEnv {
	t.Helper()

	db := database.New(databasetest.Open(t))
	tokens := auth.NewTokenCodec(auth.Options{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	store := &fakeStore{}

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.Admin{Email: testAdminEmail, PasswordHash: string(hash), Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, db.AdminRepo().Ensure(context.Background(), &admin))

	return apiTestEnv{
		ctx:    context.Background(),
		db:     db,
		tokens: tokens,
		store:  store,
		router: newRouter(db, tokens, store, withSettings(testSettings())),
		admin:  admin,
	}
}

type testEnvelope struct {
	Success    bool                 `json:"success"`
	Data       json.RawMessage      `json:"data"`
	Error      *errorBody           `json:"error"`
	Message    string               `json:"message"`
	Pagination *services.Pagination `json:"pagination"`
}

func (env apiTestEnv) accessToken(t *testing.T) string {
	t.Helper()
	token, err := env.tokens.IssueAccessToken(auth.Payload{UserID: env.admin.ID.String(), Email: env.admin.Email, Role: env.admin.Role})
	require.NoError(t, err)
	return token
}

func (env apiTestEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any, token string) *http.Request {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) testEnvelope {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, code, body.Error.Code)
	return body
}

func (env apiTestEnv) project(t *testing.T, name string, published bool, images ...string) models.Project {
	t.Helper()
	p := models.Project{
		Name:        name,
		Description: name + " description",
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		IsPublished: published,
	}
	for i, publicID := range images {
		p.Images = append(p.Images, models.ProjectImage{
			ImageURL:     "https://cdn.test/" + publicID,
			PublicID:     publicID,
			DisplayOrder: i,
			IsPrimary:    i == 0,
		})
	}
	require.NoError(t, env.db.ProjectRepo().Add(env.ctx, &p))
	return p
}

func TestHealth(t *testing.T) {
	env := setupAPITestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "DemoHub API is running", body.Message)
	assert.Equal(t, config.EnvTest, body.Environment)
	assert.GreaterOrEqual(t, body.Uptime, 0.0)
}

func TestNotFoundEnvelope(t *testing.T) {
	env := setupAPITestEnv(t)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	body := requireError(t, rec, http.StatusNotFound, errs.CodeNotFound)
	assert.Contains(t, body.Error.Message, "/api/nope")
}

func TestAuthGate(t *testing.T) {
	env := setupAPITestEnv(t)

	refreshToken, err := env.tokens.IssueRefreshToken(auth.Payload{UserID: env.admin.ID.String()})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", errs.CodeNoToken},
		{"wrong scheme", "Token abc", errs.CodeInvalidTokenFormat},
		{"empty bearer", "Bearer ", errs.CodeNoToken},
		{"garbage", "Bearer not-a-jwt", errs.CodeInvalidToken},
		{"refresh token as access token", "Bearer " + refreshToken, errs.CodeInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			requireError(t, env.serve(req), http.StatusUnauthorized, tt.code)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodGet, "/api/admin/me", nil, env.accessToken(t)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var profile models.AdminProfile
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &profile))
		assert.Equal(t, env.admin.ID, profile.ID)
		assert.NotContains(t, rec.Body.String(), "passwordHash")
	})

	t.Run("unknown admin", func(t *testing.T) {
		token, err := env.tokens.IssueAccessToken(auth.Payload{UserID: uuid.NewString(), Role: models.RoleAdmin})
		require.NoError(t, err)
		requireError(t, env.serve(jsonRequest(http.MethodGet, "/api/admin/me", nil, token)), http.StatusNotFound, errs.CodeAdminNotFound)
	})
}

func refreshCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", refreshCookieName)
	return nil
}

func TestSessionFlow(t *testing.T) {
	env := setupAPITestEnv(t)

	rec := env.serve(jsonRequest(http.MethodPost, "/api/admin/login",
		map[string]string{"email": testAdminEmail, "password": testAdminPassword}, ""))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "Login successful", body.Message)
	var login LoginResponse
	require.NoError(t, json.Unmarshal(body.Data, &login))
	assert.NotEmpty(t, login.AccessToken)
	assert.Equal(t, testAdminEmail, login.Admin.Email)
	assert.NotContains(t, string(body.Data), "refreshToken")

	cookie := refreshCookieFrom(t, rec)
	assert.Equal(t, "/api/admin", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.Equal(t, int(auth.DefaultRefreshTTL.Seconds()), cookie.MaxAge)

	t.Run("access token works", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodGet, "/api/admin/me", nil, login.AccessToken))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("refresh with cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: cookie.Value})
		rec := env.serve(req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		assert.Equal(t, "Token refreshed successfully", body.Message)
		var refreshed RefreshResponse
		require.NoError(t, json.Unmarshal(body.Data, &refreshed))
		claims, err := env.tokens.VerifyAccessToken(refreshed.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, env.admin.ID.String(), claims.UserID)
	})

	t.Run("refresh without cookie", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil))
		requireError(t, rec, http.StatusUnauthorized, errs.CodeNoRefreshToken)
	})

	t.Run("refresh with access token in cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/refresh", nil)
		req.AddCookie(&http.Cookie{Name: refreshCookieName, Value: login.AccessToken})
		requireError(t, env.serve(req), http.StatusUnauthorized, errs.CodeInvalidRefreshToken)
	})

	t.Run("logout clears cookie", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logout successful", decode(t, rec).Message)

		cleared := refreshCookieFrom(t, rec)
		assert.Empty(t, cleared.Value)
		assert.Equal(t, "/api/admin", cleared.Path)
		assert.Less(t, cleared.MaxAge, 0)
	})
}

func TestLoginValidation(t *testing.T) {
	env := setupAPITestEnv(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"empty body", nil, http.StatusBadRequest, errs.CodeMissingCredentials},
		{"missing password", map[string]string{"email": testAdminEmail}, http.StatusBadRequest, errs.CodeMissingCredentials},
		{"bad email", map[string]string{"email": "not-an-email", "password": "x"}, http.StatusBadRequest, errs.CodeInvalidEmail},
		{"malformed json", `{"email":`, http.StatusBadRequest, errs.CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(jsonRequest(http.MethodPost, "/api/admin/login", tt.body, ""))
			requireError(t, rec, tt.status, tt.code)
		})
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := setupAPITestEnv(t)

	wrongPassword := env.serve(jsonRequest(http.MethodPost, "/api/admin/login",
		map[string]string{"email": testAdminEmail, "password": "wrong"}, ""))
	unknownEmail := env.serve(jsonRequest(http.MethodPost, "/api/admin/login",
		map[string]string{"email": "ghost@demohub.test", "password": "wrong"}, ""))

	requireError(t, wrongPassword, http.StatusUnauthorized, errs.CodeInvalidCredentials)
	requireError(t, unknownEmail, http.StatusUnauthorized, errs.CodeInvalidCredentials)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.Empty(t, wrongPassword.Result().Cookies())
}

// newMockedRouter serves from a database that fails the test on any query.
func newMockedRouter(t *testing.T) (http.Handler, *auth.TokenCodec, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	tokens := auth.NewTokenCodec(auth.Options{AccessSecret: "access-secret", RefreshSecret: "refresh-secret"})
	return newRouter(database.New(gormDB), tokens, &fakeStore{}, withSettings(testSettings())), tokens, mock
}

func TestInvalidIDNeverReachesDatastore(t *testing.T) {
	router, tokens, mock := newMockedRouter(t)
	token, err := tokens.IssueAccessToken(auth.Payload{UserID: uuid.NewString(), Role: models.RoleAdmin})
	require.NoError(t, err)
	valid := uuid.NewString()

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, "/api/projects/not-a-uuid", nil},
		{http.MethodGet, "/api/projects/" + strings.ReplaceAll(valid, "-", ""), nil},
		{http.MethodPut, "/api/admin/projects/123", map[string]string{"name": "x"}},
		{http.MethodDelete, "/api/admin/projects/abc", nil},
		{http.MethodPost, "/api/admin/projects/abc/images", nil},
		{http.MethodPut, "/api/admin/projects/abc/images/reorder", map[string]any{"imageOrders": []any{}}},
		{http.MethodDelete, "/api/admin/projects/" + valid + "/images/abc", nil},
		{http.MethodDelete, "/api/admin/projects/abc/images/" + valid, nil},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, jsonRequest(tt.method, tt.path, tt.body, token))
			requireError(t, rec, http.StatusBadRequest, errs.CodeInvalidID)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListProjectsParameters(t *testing.T) {
	env := setupAPITestEnv(t)
	for i := 0; i < 3; i++ {
		env.project(t, fmt.Sprintf("Published %d", i), true)
	}
	env.project(t, "Draft", false)

	t.Run("defaults", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/projects", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		require.NotNil(t, body.Pagination)
		assert.Equal(t, services.Pagination{Page: 1, Limit: 8, Total: 3, TotalPages: 1}, *body.Pagination)

		var projects []models.ProjectView
		require.NoError(t, json.Unmarshal(body.Data, &projects))
		assert.Len(t, projects, 3)
	})

	t.Run("second page", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/projects?page=2&limit=2", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, services.Pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2}, *body.Pagination)
		var projects []models.ProjectView
		require.NoError(t, json.Unmarshal(body.Data, &projects))
		assert.Len(t, projects, 1)
	})

	for _, query := range []string{"page=0", "limit=0", "limit=101", "page=-1", "limit=abc", "page=1.5"} {
		t.Run("rejects "+query, func(t *testing.T) {
			rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/projects?"+query, nil))
			requireError(t, rec, http.StatusBadRequest, errs.CodeInvalidParameters)
		})
	}

	t.Run("limit 100 accepted", func(t *testing.T) {
		rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/projects?limit=100", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPublicProjectVisibility(t *testing.T) {
	env := setupAPITestEnv(t)
	published := env.project(t, "Visible", true)
	draft := env.project(t, "Hidden", false)

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/projects/"+published.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/projects/"+draft.ID.String(), nil))
	requireError(t, rec, http.StatusNotFound, errs.CodeProjectNotFound)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/projects/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats database.ProjectStats
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &stats))
	assert.Equal(t, database.ProjectStats{TotalPublished: 1, TotalDraft: 1, Total: 2}, stats)
}

func TestTechnologies(t *testing.T) {
	env := setupAPITestEnv(t)
	tech := models.Technology{Name: "Go", Slug: "go"}
	require.NoError(t, env.db.TechnologyRepo().Ensure(env.ctx, &tech))

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/technologies", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var technologies []models.Technology
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &technologies))
	require.Len(t, technologies, 1)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/technologies?withCounts=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"go"`)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/technologies/go", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/technologies/cobol", nil))
	requireError(t, rec, http.StatusNotFound, errs.CodeTechnologyNotFound)
}

func addImagePart(t *testing.T, w *multipart.Writer, field, filename, contentType string, data []byte) {
	t.Helper()
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
}

func multipartRequest(t *testing.T, method, path, token string, fields map[string][]string, files func(w *multipart.Writer)) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(name, v))
		}
	}
	if files != nil {
		files(w)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestCreateProjectMultipart(t *testing.T) {
	env := setupAPITestEnv(t)
	goTech := models.Technology{Name: "Go", Slug: "go"}
	require.NoError(t, env.db.TechnologyRepo().Ensure(env.ctx, &goTech))
	sqlTech := models.Technology{Name: "SQL", Slug: "sql"}
	require.NoError(t, env.db.TechnologyRepo().Ensure(env.ctx, &sqlTech))

	req := multipartRequest(t, http.MethodPost, "/api/admin/projects", env.accessToken(t), map[string][]string{
		"name":            {"Portfolio"},
		"description":     {"My site"},
		"start_date":      {"2024-03-01"},
		"isPublished":     {"true"},
		"technologyIds[]": {goTech.ID.String(), sqlTech.ID.String()},
	}, func(w *multipart.Writer) {
		addImagePart(t, w, "images", "a.png", "image/png", []byte("first"))
		addImagePart(t, w, "images", "b.png", "image/png", []byte("second"))
	})

	rec := env.serve(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Project created successfully", body.Message)

	var project models.ProjectView
	require.NoError(t, json.Unmarshal(body.Data, &project))
	assert.Equal(t, "Portfolio", project.Name)
	assert.True(t, project.IsPublished)
	assert.Len(t, project.Technologies, 2)
	require.Len(t, project.Images, 2)
	assert.Equal(t, 0, project.Images[0].DisplayOrder)
	assert.True(t, project.Images[0].IsPrimary)
	assert.Equal(t, 1, project.Images[1].DisplayOrder)
	assert.False(t, project.Images[1].IsPrimary)
	assert.Len(t, env.store.uploaded, 2)
}

func TestCreateProjectRejectsBeforeUpload(t *testing.T) {
	env := setupAPITestEnv(t)
	token := env.accessToken(t)

	t.Run("missing required fields", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/api/admin/projects", token, map[string][]string{
			"name": {"No description"},
		}, func(w *multipart.Writer) {
			addImagePart(t, w, "images", "a.png", "image/png", []byte("img"))
		})
		requireError(t, env.serve(req), http.StatusBadRequest, errs.CodeValidation)
		assert.Empty(t, env.store.uploaded)
	})

	t.Run("invalid date", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodPost, "/api/admin/projects", map[string]string{
			"name": "x", "description": "y", "startDate": "31/31/2024",
		}, token))
		body := requireError(t, rec, http.StatusBadRequest, errs.CodeInvalidDate)
		assert.Equal(t, "startDate", body.Error.Field)
	})

	t.Run("unsupported file type", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, "/api/admin/projects", token, map[string][]string{
			"name": {"x"}, "description": {"y"}, "startDate": {"2024-01-01"},
		}, func(w *multipart.Writer) {
			addImagePart(t, w, "images", "doc.pdf", "application/pdf", []byte("%PDF"))
		})
		requireError(t, env.serve(req), http.StatusBadRequest, errs.CodeInvalidFile)
		assert.Empty(t, env.store.uploaded)
	})
}

func TestUpdateProjectPartial(t *testing.T) {
	env := setupAPITestEnv(t)
	token := env.accessToken(t)

	ada := models.Contributor{Name: "Ada"}
	require.NoError(t, env.db.ContributorRepo().EnsureByName(env.ctx, &ada))
	grace := models.Contributor{Name: "Grace"}
	require.NoError(t, env.db.ContributorRepo().EnsureByName(env.ctx, &grace))

	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	demo := "https://demo.test"
	p := models.Project{
		Name:         "Original",
		Description:  "Description",
		StartDate:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:      &end,
		DemoURL:      &demo,
		Contributors: []models.ProjectContributor{{ContributorID: ada.ID}},
	}
	require.NoError(t, env.db.ProjectRepo().Add(env.ctx, &p))
	path := "/api/admin/projects/" + p.ID.String()

	update := func(t *testing.T, body any) models.ProjectView {
		t.Helper()
		rec := env.serve(jsonRequest(http.MethodPut, path, body, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		envl := decode(t, rec)
		assert.Equal(t, "Project updated successfully", envl.Message)
		var view models.ProjectView
		require.NoError(t, json.Unmarshal(envl.Data, &view))
		return view
	}

	t.Run("empty body changes nothing", func(t *testing.T) {
		view := update(t, map[string]any{})
		assert.Equal(t, "Original", view.Name)
		require.NotNil(t, view.EndDate)
		require.NotNil(t, view.DemoURL)
		require.Len(t, view.Contributors, 1)
		assert.Equal(t, ada.ID, view.Contributors[0].ID)
	})

	t.Run("null end date clears it", func(t *testing.T) {
		view := update(t, map[string]any{"endDate": nil, "name": "Renamed"})
		assert.Nil(t, view.EndDate)
		assert.Equal(t, "Renamed", view.Name)
		assert.NotNil(t, view.DemoURL)
	})

	t.Run("empty demo url clears it", func(t *testing.T) {
		view := update(t, map[string]any{"demo_url": ""})
		assert.Nil(t, view.DemoURL)
	})

	t.Run("contributors key replaces links", func(t *testing.T) {
		view := update(t, map[string]any{"contributors": []string{grace.ID.String()}})
		require.Len(t, view.Contributors, 1)
		assert.Equal(t, grace.ID, view.Contributors[0].ID)
	})

	t.Run("contributorIds key replaces links", func(t *testing.T) {
		view := update(t, map[string]any{"contributorIds": []string{ada.ID.String(), grace.ID.String()}})
		assert.Len(t, view.Contributors, 2)
	})

	t.Run("empty contributors clears links", func(t *testing.T) {
		view := update(t, map[string]any{"contributors": []string{}})
		assert.Empty(t, view.Contributors)
	})

	t.Run("null name rejected", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodPut, path, map[string]any{"name": nil}, token))
		requireError(t, rec, http.StatusBadRequest, errs.CodeValidation)
	})

	t.Run("unknown project", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodPut, "/api/admin/projects/"+uuid.NewString(), map[string]any{"name": "x"}, token))
		requireError(t, rec, http.StatusNotFound, errs.CodeNotFound)
	})
}

func TestDeleteProject(t *testing.T) {
	env := setupAPITestEnv(t)
	token := env.accessToken(t)

	t.Run("media failure keeps project", func(t *testing.T) {
		p := env.project(t, "Kept", true, "demohub/projects/kept.png")
		env.store.deleteErr = errors.New("bucket unavailable")
		defer func() { env.store.deleteErr = nil }()

		rec := env.serve(jsonRequest(http.MethodDelete, "/api/admin/projects/"+p.ID.String(), nil, token))
		requireError(t, rec, http.StatusBadGateway, errs.CodeMediaStore)

		found, err := env.db.ProjectRepo().FindByID(env.ctx, p.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
	})

	t.Run("removes images then project", func(t *testing.T) {
		p := env.project(t, "Gone", true, "demohub/projects/a.png", "demohub/projects/b.png")

		rec := env.serve(jsonRequest(http.MethodDelete, "/api/admin/projects/"+p.ID.String(), nil, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Project deleted successfully", decode(t, rec).Message)
		assert.ElementsMatch(t, []string{"demohub/projects/a.png", "demohub/projects/b.png"}, env.store.deleted)

		found, err := env.db.ProjectRepo().FindByID(env.ctx, p.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("unknown project", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodDelete, "/api/admin/projects/"+uuid.NewString(), nil, token))
		requireError(t, rec, http.StatusNotFound, errs.CodeNotFound)
	})
}

func TestProjectImages(t *testing.T) {
	env := setupAPITestEnv(t)
	token := env.accessToken(t)
	p := env.project(t, "With images", true, "demohub/projects/first.png")
	base := "/api/admin/projects/" + p.ID.String() + "/images"

	t.Run("no file", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, base, token, map[string][]string{"note": {"x"}}, nil)
		requireError(t, env.serve(req), http.StatusBadRequest, errs.CodeNoFile)

		requireError(t, env.serve(jsonRequest(http.MethodPost, base, map[string]any{}, token)), http.StatusBadRequest, errs.CodeNoFile)
	})

	var uploaded models.ProjectImage
	t.Run("upload appends", func(t *testing.T) {
		req := multipartRequest(t, http.MethodPost, base, token, nil, func(w *multipart.Writer) {
			addImagePart(t, w, "image", "next.webp", "image/webp", []byte("webp"))
		})
		rec := env.serve(req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		body := decode(t, rec)
		assert.Equal(t, "Image uploaded successfully", body.Message)
		require.NoError(t, json.Unmarshal(body.Data, &uploaded))
		assert.Equal(t, 1, uploaded.DisplayOrder)
		assert.False(t, uploaded.IsPrimary)
	})

	t.Run("reorder", func(t *testing.T) {
		first := p.Images[0]
		body := map[string]any{"imageOrders": []map[string]any{
			{"id": first.ID.String(), "display_order": 5},
			{"id": uploaded.ID.String(), "display_order": 2},
			{"id": uuid.NewString(), "display_order": 0},
		}}
		rec := env.serve(jsonRequest(http.MethodPut, base+"/reorder", body, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var images []models.ProjectImage
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &images))
		require.Len(t, images, 2)
		assert.Equal(t, uploaded.ID, images[0].ID)
		assert.Equal(t, first.ID, images[1].ID)
		assert.Equal(t, 5, images[1].DisplayOrder)
	})

	for name, body := range map[string]any{
		"missing":    map[string]any{},
		"not a list": map[string]any{"imageOrders": "x"},
		"bad id":     map[string]any{"imageOrders": []map[string]any{{"id": "nope", "display_order": 1}}},
	} {
		t.Run("reorder rejects "+name, func(t *testing.T) {
			rec := env.serve(jsonRequest(http.MethodPut, base+"/reorder", body, token))
			requireError(t, rec, http.StatusBadRequest, errs.CodeInvalidData)
		})
	}

	t.Run("delete image", func(t *testing.T) {
		rec := env.serve(jsonRequest(http.MethodDelete, base+"/"+uploaded.ID.String(), nil, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Image deleted successfully", decode(t, rec).Message)
		assert.Contains(t, env.store.deleted, uploaded.PublicID)

		rec = env.serve(jsonRequest(http.MethodDelete, base+"/"+uploaded.ID.String(), nil, token))
		requireError(t, rec, http.StatusNotFound, errs.CodeNotFound)
	})
}

func TestAdminListsAndContributors(t *testing.T) {
	env := setupAPITestEnv(t)
	token := env.accessToken(t)
	env.project(t, "Draft", false)
	env.project(t, "Live", true)
	require.NoError(t, env.db.ContributorRepo().EnsureByName(env.ctx, &models.Contributor{Name: "Ada"}))

	rec := env.serve(jsonRequest(http.MethodGet, "/api/admin/projects", nil, token))
	require.Equal(t, http.StatusOK, rec.Code)
	var projects []models.ProjectView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &projects))
	assert.Len(t, projects, 2)

	rec = env.serve(jsonRequest(http.MethodGet, "/api/admin/contributors", nil, token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ada")
}

func TestCORS(t *testing.T) {
	env := setupAPITestEnv(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		return env.serve(req)
	}

	rec := preflight("http://evil.test")
	requireError(t, rec, http.StatusForbidden, errs.CodeCORSBlocked)

	rec = preflight(allowedOrigin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, allowedOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupAPITestEnv(t)
	env.serve(httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "demohub_http_requests_total")
	assert.Contains(t, rec.Body.String(), `route="/health"`)
}

func TestPanicsBecomeServerErrors(t *testing.T) {
	handler := LogInternalServerErrors(true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	requireError(t, rec, http.StatusInternalServerError, errs.CodeServerError)
}

func TestServerStopsWithoutReportingShutdown(t *testing.T) {
	env := setupAPITestEnv(t)

	srv, err := NewServer(testSettings(), env.db, env.tokens, env.store)
	require.NoError(t, err)

	errChannel := make(chan error, 1)
	stopped := make(chan struct{})
	go func() {
		srv.Start(errChannel)
		close(stopped)
	}()

	// Shutdown may land before or after ListenAndServe begins, both return
	// http.ErrServerClosed.
	time.Sleep(20 * time.Millisecond)
	srv.ShutdownGracefully(time.Second)

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
	assert.Empty(t, errChannel)
}
