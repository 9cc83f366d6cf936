package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/bizgram/backend/internal/models"
	"github.com/anonto42/bizgram/backend/internal/repositories"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVerifier struct {
	uids map[string]string
}

func (f *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	uid, ok := f.uids[idToken]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &auth.Token{UID: uid}, nil
}

type fakeUsers struct {
	byUID map[string]uint
}

func (f *fakeUsers) GetUserByFirebaseUID(_ context.Context, uid string) (*models.User, error) {
	id, ok := f.byUID[uid]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.User{ID: id}, nil
}

func newAuth() *Authenticator {
	return NewAuthenticator("test-secret",
		&fakeVerifier{uids: map[string]string{"fb-linked": "uid-1", "fb-unlinked": "uid-2"}},
		&fakeUsers{byUID: map[string]uint{"uid-1": 41}},
		zap.NewNop())
}

func serve(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, uint, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var seen uint
	err := mw(func(c echo.Context) error {
		seen = UserID(c)
		return c.NoContent(http.StatusNoContent)
	})(c)
	return rec, seen, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuthLocalToken(t *testing.T) {
	a := newAuth()
	token, err := a.IssueToken(&models.User{ID: 7, Email: "a@b.co"})
	require.NoError(t, err)

	rec, uid, err := serve(t, a.RequireAuth(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint(7), uid)
}

func TestRequireAuthFirebaseFallback(t *testing.T) {
	a := newAuth()

	_, uid, err := serve(t, a.RequireAuth(), "Bearer fb-linked")
	require.NoError(t, err)
	assert.Equal(t, uint(41), uid)

	_, _, err = serve(t, a.RequireAuth(), "Bearer fb-unlinked")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = serve(t, a.RequireAuth(), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAuthRejectsMissingOrMalformed(t *testing.T) {
	a := newAuth()

	_, _, err := serve(t, a.RequireAuth(), "")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	_, _, err = serve(t, a.RequireAuth(), "Token abc")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestOptionalAuth(t *testing.T) {
	a := newAuth()

	rec, uid, err := serve(t, a.OptionalAuth(), "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, uid)

	_, _, err = serve(t, a.OptionalAuth(), "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	other := NewAuthenticator("other", nil, &fakeUsers{}, zap.NewNop())
	token, err := other.IssueToken(&models.User{ID: 3})
	require.NoError(t, err)

	_, _, err = serve(t, NewAuthenticator("test-secret", nil, &fakeUsers{}, zap.NewNop()).RequireAuth(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestSessionRoundTrip(t *testing.T) {
	e := echo.New()
	store := NewSessionStore("0123456789abcdef0123456789abcdef", false)
	a := newAuth()

	e.Use(Session(store))
	e.POST("/login", func(c echo.Context) error {
		if err := SetSessionUser(c, 12); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/print", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, a.SessionAuth())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/print", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/print", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, zap.NewNop())
	e := echo.New()
	e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, rl.Middleware())

	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	rl.Cleanup(-time.Second)
	assert.Empty(t, rl.visitors)
}

func TestRateLimiterSkipsReads(t *testing.T) {
	rl := NewRateLimiter(1, 1, zap.NewNop())
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/x", ok, rl.Middleware())
	e.DELETE("/x", ok, rl.Middleware())

	serve := func(method string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(method, "/x", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		e.ServeHTTP(rec, req)
		return rec.Code
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusNoContent, serve(http.MethodGet))
	}
	assert.Empty(t, rl.visitors)
	assert.Equal(t, http.StatusNoContent, serve(http.MethodDelete))
	assert.Equal(t, http.StatusTooManyRequests, serve(http.MethodDelete))
}
