package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdeck/taskdeck/internal/rbac"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStore(client, "test_session", "test-secret", time.Hour, false)
}

func sessionCookie(t *testing.T, res *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range res.Result().Cookies() {
		if c.Name == "test_session" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestPrincipalRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	principal := &rbac.Principal{
		ID:             42,
		Role:           rbac.RoleUser,
		Name:           "Dana",
		CompanyID:      7,
		CanAssignTasks: true,
		IsActive:       true,
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(ctx, req)
	require.NoError(t, err)
	sess.SetIdentity("token-abc", principal)

	res := httptest.NewRecorder()
	require.NoError(t, store.Commit(ctx, res, sess))
	cookie := sessionCookie(t, res)

	// Reload through a fresh request carrying the cookie.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	reloaded, err := store.Load(ctx, req2)
	require.NoError(t, err)

	require.True(t, reloaded.Authenticated())
	assert.Equal(t, "token-abc", reloaded.Token())
	assert.Equal(t, principal, reloaded.Principal())
}

func TestDestroyClearsTokenAndPrincipalTogether(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(ctx, req)
	require.NoError(t, err)
	sess.SetIdentity("tok", &rbac.Principal{ID: 1, Role: rbac.RoleAdmin})

	res := httptest.NewRecorder()
	require.NoError(t, store.Commit(ctx, res, sess))
	cookie := sessionCookie(t, res)

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookie)
	sess2, err := store.Load(ctx, req2)
	require.NoError(t, err)
	require.True(t, sess2.Authenticated())

	sess2.Destroy()
	assert.Empty(t, sess2.Token())
	assert.Nil(t, sess2.Principal())
	assert.False(t, sess2.Authenticated())

	// Destroy is idempotent.
	sess2.Destroy()

	res2 := httptest.NewRecorder()
	require.NoError(t, store.Commit(ctx, res2, sess2))
	expired := sessionCookie(t, res2)
	assert.Equal(t, -1, expired.MaxAge)

	req3 := httptest.NewRequest(http.MethodGet, "/", nil)
	req3.AddCookie(cookie)
	sess3, err := store.Load(ctx, req3)
	require.NoError(t, err)
	assert.False(t, sess3.Authenticated())
}

func TestLoadUnknownCookieYieldsFreshSession(t *testing.T) {
	store := newTestStore(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "missing"})

	sess, err := store.Load(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, sess.Authenticated())
	assert.Equal(t, "missing", sess.ID)
}

func TestGenerateSessionIDUniqueness(t *testing.T) {
	store := newTestStore(t)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := store.generateSessionID()
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestCommitWithoutChangesWritesNothing(t *testing.T) {
	store := newTestStore(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := store.Load(context.Background(), req)
	require.NoError(t, err)

	res := httptest.NewRecorder()
	require.NoError(t, store.Commit(context.Background(), res, sess))
	assert.Empty(t, res.Result().Cookies())
}
