package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/demohub/demohub-backend/api"
	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/client"
	"github.com/demohub/demohub-backend/config"
	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/database/databasetest"
	"github.com/demohub/demohub-backend/media"
	"github.com/demohub/demohub-backend/models"
)

const (
	staleToken = "stale-token"
	freshToken = "fresh-token"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func unauthorized(w http.ResponseWriter, code string) {
	writeEnvelope(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"error":   map[string]string{"code": code, "message": "rejected"},
	})
}

// fakeAPI accepts freshToken only. Its refresh endpoint waits until
// holdUntil requests were rejected so concurrent 401s overlap.
type fakeAPI struct {
	refreshCalls atomic.Int64
	rejected     atomic.Int64
	replays      atomic.Int64
	holdUntil    int64
	refreshFails bool
	alwaysReject bool
	slowArrived  atomic.Bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/admin/refresh":
		f.refreshCalls.Add(1)
		deadline := time.Now().Add(2 * time.Second)
		for f.rejected.Load() < f.holdUntil && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if f.refreshFails {
			unauthorized(w, "INVALID_REFRESH_TOKEN")
			return
		}
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]string{"accessToken": freshToken},
		})

	case "/api/admin/login":
		unauthorized(w, "INVALID_CREDENTIALS")

	case "/api/admin/slow":
		if r.Header.Get("Authorization") != "Bearer "+freshToken {
			// Answer 401 only once another request has been replayed, so
			// the refresh this token needed is already over.
			f.slowArrived.Store(true)
			deadline := time.Now().Add(2 * time.Second)
			for f.replays.Load() < 1 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			f.rejected.Add(1)
			unauthorized(w, "INVALID_TOKEN")
			return
		}
		f.replays.Add(1)
		writeEnvelope(w, http.StatusOK, map[string]any{"success": true})

	default:
		if f.alwaysReject || r.Header.Get("Authorization") != "Bearer "+freshToken {
			f.rejected.Add(1)
			unauthorized(w, "INVALID_TOKEN")
			return
		}
		f.replays.Add(1)
		writeEnvelope(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []any{},
		})
	}
}

type clientTestEnv struct {
	api     *fakeAPI
	client  *client.Client
	store   *client.MemoryTokenStore
	expired *atomic.Int64
}

func setupClientTestEnv(t *testing.T, fake *fakeAPI) clientTestEnv {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store := client.NewMemoryTokenStore(staleToken)
	expired := &atomic.Int64{}
	c, err := client.New(server.URL,
		client.WithTokenStore(store),
		client.WithOnSessionExpired(func() { expired.Add(1) }),
	)
	require.NoError(t, err)

	return clientTestEnv{api: fake, client: c, store: store, expired: expired}
}

func TestConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	env := setupClientTestEnv(t, &fakeAPI{holdUntil: 3})

	var g errgroup.Group
	for i := 0; i < 3; i++ {
		g.Go(func() error {
			_, err := env.client.AdminProjects(context.Background())
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), env.api.refreshCalls.Load())
	assert.Equal(t, int64(3), env.api.replays.Load())
	assert.Equal(t, int64(1), env.client.RefreshCount())
	assert.Equal(t, freshToken, env.client.AccessToken())
	stored, _ := env.store.Load()
	assert.Equal(t, freshToken, stored)
	assert.Zero(t, env.expired.Load())
}

func TestFailedRefreshRejectsEveryWaiter(t *testing.T) {
	env := setupClientTestEnv(t, &fakeAPI{holdUntil: 3, refreshFails: true})

	errs := make([]error, 3)
	var g errgroup.Group
	for i := range errs {
		i := i
		g.Go(func() error {
			_, errs[i] = env.client.AdminProjects(context.Background())
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, err := range errs {
		require.Error(t, err)
		assert.True(t, client.IsUnauthorized(err), err.Error())
	}
	assert.Equal(t, int64(1), env.api.refreshCalls.Load())
	assert.Zero(t, env.api.replays.Load())
	assert.Equal(t, int64(1), env.expired.Load())
	assert.Empty(t, env.client.AccessToken())
	stored, _ := env.store.Load()
	assert.Empty(t, stored)

	// Later requests carry no token and must not start another refresh.
	_, err := env.client.AdminProjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", client.CodeOf(err))
	assert.Equal(t, int64(1), env.api.refreshCalls.Load())
	assert.Equal(t, int64(1), env.expired.Load())
}

func TestReplayIsAttemptedOnce(t *testing.T) {
	env := setupClientTestEnv(t, &fakeAPI{alwaysReject: true})

	_, err := env.client.AdminProjects(context.Background())
	require.Error(t, err)
	assert.Equal(t, "INVALID_TOKEN", client.CodeOf(err))
	assert.Equal(t, int64(1), env.api.refreshCalls.Load())
	assert.Equal(t, int64(2), env.api.rejected.Load())
}

func TestLateUnauthorizedReusesCompletedRefresh(t *testing.T) {
	env := setupClientTestEnv(t, &fakeAPI{})

	var g errgroup.Group
	g.Go(func() error {
		return env.client.Do(context.Background(), &client.Request{Method: http.MethodGet, Path: "/api/admin/slow"}, nil)
	})

	require.Eventually(t, env.api.slowArrived.Load, 2*time.Second, 5*time.Millisecond)
	_, err := env.client.AdminProjects(context.Background())
	require.NoError(t, err)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), env.api.refreshCalls.Load())
	assert.Equal(t, int64(2), env.api.replays.Load())
}

func TestLoginUnauthorizedDoesNotRefresh(t *testing.T) {
	env := setupClientTestEnv(t, &fakeAPI{})

	_, err := env.client.Login(context.Background(), "admin@demohub.test", "wrong")
	require.Error(t, err)
	assert.Equal(t, "INVALID_CREDENTIALS", client.CodeOf(err))
	assert.Zero(t, env.api.refreshCalls.Load())
	assert.Equal(t, int64(1), env.expired.Load())
	assert.Empty(t, env.client.AccessToken())
}

func TestBootstrapWithoutToken(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(server.Close)

	c, err := client.New(server.URL)
	require.NoError(t, err)
	require.NoError(t, c.Bootstrap(context.Background()))

	assert.False(t, c.IsAuthenticated())
	assert.False(t, c.Bootstrapping())
	assert.Zero(t, hits.Load())
}

func TestBootstrapKeepsTokenOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   map[string]string{"code": "SERVER_ERROR", "message": "down"},
		})
	}))
	t.Cleanup(server.Close)

	c, err := client.New(server.URL, client.WithTokenStore(client.NewMemoryTokenStore(staleToken)))
	require.NoError(t, err)

	err = c.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Equal(t, "SERVER_ERROR", client.CodeOf(err))
	assert.False(t, c.IsAuthenticated())
	assert.Equal(t, staleToken, c.AccessToken())
}

func TestFileTokenStore(t *testing.T) {
	store := client.NewFileTokenStore(filepath.Join(t.TempDir(), "session", "token"))

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("abc"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

type nopStore struct{}

func (nopStore) Upload(context.Context, media.Upload) (*media.Object, error) {
	return nil, media.ErrNotConfigured
}
func (nopStore) Delete(context.Context, string) error       { return nil }
func (nopStore) DeleteMany(context.Context, []string) error { return nil }

func TestSessionAgainstServer(t *testing.T) {
	db := database.New(databasetest.Open(t))
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.Admin{Email: "admin@demohub.test", PasswordHash: string(hash), Name: "Admin", Role: models.RoleAdmin}
	require.NoError(t, db.AdminRepo().Ensure(context.Background(), &admin))

	// Access tokens expire within the test so the refresh path runs for real.
	var mu sync.Mutex
	now := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tokens := auth.NewTokenCodec(auth.Options{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Minute,
		Now:           clock,
	})

	srv, err := api.NewServer(config.Settings{Port: "0", Environment: config.EnvTest}, db, tokens, nopStore{})
	require.NoError(t, err)
	server := httptest.NewServer(srv.Handler)
	t.Cleanup(server.Close)

	c, err := client.New(server.URL, client.WithTokenStore(client.NewFileTokenStore(filepath.Join(t.TempDir(), "token"))))
	require.NoError(t, err)
	ctx := context.Background()

	principal, err := c.Login(ctx, "admin@demohub.test", "password")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, principal.ID)
	assert.True(t, c.IsAuthenticated())
	firstToken := c.AccessToken()

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin.Email, me.Email)
	assert.Equal(t, int64(1), c.RefreshCount())
	assert.NotEqual(t, firstToken, c.AccessToken())

	projects, pagination, err := c.ListProjects(ctx, 1, 5, "")
	require.NoError(t, err)
	assert.Empty(t, projects)
	require.NotNil(t, pagination)
	assert.Equal(t, 5, pagination.Limit)

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.IsAuthenticated())
	assert.Empty(t, c.AccessToken())
}
