package jwt

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExtractorFunc extracts a token from an HTTP request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// ErrorHandlerFunc renders an extraction or validation failure.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareConfig configures token validation middleware.
type MiddlewareConfig struct {
	Service   *Service
	Extractor TokenExtractorFunc     // defaults to BearerTokenExtractor
	NewClaims func() jwt.Claims      // defaults to jwt.MapClaims
	OnError   ErrorHandlerFunc       // defaults to a plain 401
}

// Middleware validates the bearer token on every request and injects the
// raw token and parsed claims into the request context.
func Middleware(cfg MiddlewareConfig) func(next http.Handler) http.Handler {
	if cfg.Extractor == nil {
		cfg.Extractor = BearerTokenExtractor
	}
	if cfg.NewClaims == nil {
		cfg.NewClaims = func() jwt.Claims { return &jwt.MapClaims{} }
	}
	if cfg.OnError == nil {
		cfg.OnError = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := cfg.Extractor(r)
			if err != nil {
				cfg.OnError(w, r, err)
				return
			}

			claims := cfg.NewClaims()
			if err := cfg.Service.Parse(tokenString, claims); err != nil {
				cfg.OnError(w, r, err)
				return
			}

			ctx := SetToken(r.Context(), tokenString)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>" headers.
func BearerTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

// CookieTokenExtractor reads the token from a named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return "", ErrNoToken
		}
		return cookie.Value, nil
	}
}

// FallbackExtractor tries each extractor in order and returns the first
// token found. The last extractor's error is surfaced when all fail.
func FallbackExtractor(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		var err error
		for _, extract := range extractors {
			var token string
			token, err = extract(r)
			if err == nil {
				return token, nil
			}
		}
		if err == nil {
			err = ErrNoToken
		}
		return "", err
	}
}
