package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patshala/backend/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	newReq := func(remoteAddr string, headers map[string]string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remoteAddr
		for k, v := range headers {
			r.Header.Set(k, v)
		}
		return r
	}

	t.Run("forwarded header wins and skips garbage hops", func(t *testing.T) {
		t.Parallel()
		r := newReq("10.0.0.1:1234", map[string]string{
			"X-Forwarded-For": "not-an-ip, 203.0.113.7, 10.0.0.2",
		})
		assert.Equal(t, "203.0.113.7", clientip.GetIP(r))
	})

	t.Run("real ip header is the fallback", func(t *testing.T) {
		t.Parallel()
		r := newReq("10.0.0.1:1234", map[string]string{"X-Real-IP": "198.51.100.4"})
		assert.Equal(t, "198.51.100.4", clientip.GetIP(r))
	})

	t.Run("remote addr without headers", func(t *testing.T) {
		t.Parallel()
		r := newReq("192.0.2.10:5555", nil)
		assert.Equal(t, "192.0.2.10", clientip.GetIP(r))
	})

	t.Run("ipv6 addresses normalize", func(t *testing.T) {
		t.Parallel()
		r := newReq("[2001:db8::1]:443", nil)
		assert.Equal(t, "2001:db8::1", clientip.GetIP(r))
	})

	t.Run("spoofed invalid headers fall through", func(t *testing.T) {
		t.Parallel()
		r := newReq("192.0.2.10:5555", map[string]string{
			"X-Forwarded-For": "<script>",
			"X-Real-IP":       "999.999.999.999",
		})
		assert.Equal(t, "192.0.2.10", clientip.GetIP(r))
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var got string
	handler := clientip.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = clientip.GetIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.10:5555"
	handler.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "192.0.2.10", got)
}
