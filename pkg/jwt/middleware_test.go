package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patshala/backend/pkg/jwt"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	svc, err := jwt.New(testKey)
	require.NoError(t, err)

	token, err := svc.Generate(&testClaims{
		Email:            "a@x.com",
		Role:             "teacher",
		RegisteredClaims: jwt.NewRegisteredClaims(time.Hour),
	})
	require.NoError(t, err)

	newHandler := func(cfg jwt.MiddlewareConfig) http.Handler {
		return jwt.Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := jwt.GetClaims[*testClaims](r.Context())
			require.True(t, ok)
			_, _ = w.Write([]byte(claims.Email))
		}))
	}

	t.Run("bearer header", func(t *testing.T) {
		t.Parallel()

		handler := newHandler(jwt.MiddlewareConfig{
			Service:   svc,
			NewClaims: func() jwt.Claims { return &testClaims{} },
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a@x.com", rec.Body.String())
	})

	t.Run("cookie extraction", func(t *testing.T) {
		t.Parallel()

		handler := newHandler(jwt.MiddlewareConfig{
			Service:   svc,
			Extractor: jwt.CookieTokenExtractor("token"),
			NewClaims: func() jwt.Claims { return &testClaims{} },
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fallback header then cookie", func(t *testing.T) {
		t.Parallel()

		handler := newHandler(jwt.MiddlewareConfig{
			Service: svc,
			Extractor: jwt.FallbackExtractor(
				jwt.BearerTokenExtractor,
				jwt.CookieTokenExtractor("token"),
			),
			NewClaims: func() jwt.Claims { return &testClaims{} },
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		handler := newHandler(jwt.MiddlewareConfig{Service: svc})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("custom error handler sees expiry", func(t *testing.T) {
		t.Parallel()

		expired, err := svc.Generate(&testClaims{
			RegisteredClaims: jwt.NewRegisteredClaims(-time.Minute),
		})
		require.NoError(t, err)

		var seen error
		handler := newHandler(jwt.MiddlewareConfig{
			Service:   svc,
			NewClaims: func() jwt.Claims { return &testClaims{} },
			OnError: func(w http.ResponseWriter, r *http.Request, err error) {
				seen = err
				w.WriteHeader(http.StatusBadRequest)
			},
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.ErrorIs(t, seen, jwt.ErrExpiredToken)
	})
}

func TestBearerTokenExtractor(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := jwt.BearerTokenExtractor(req)
	assert.ErrorIs(t, err, jwt.ErrNoToken)

	req.Header.Set("Authorization", "Basic abc")
	_, err = jwt.BearerTokenExtractor(req)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	req.Header.Set("Authorization", "Bearer abc")
	token, err := jwt.BearerTokenExtractor(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}
