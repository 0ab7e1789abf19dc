package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.50"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		trusted TrustedProxies
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded header ignored without trusted proxies", headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remote: "198.51.100.1:1234", want: "198.51.100.1"},
		{name: "forwarded header ignored from untrusted peer", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remote: "198.51.100.1:1234", want: "198.51.100.1"},
		{name: "real ip ignored from untrusted peer", trusted: proxies, headers: map[string]string{"X-Real-IP": "203.0.113.7"}, remote: "198.51.100.1:1234", want: "198.51.100.1"},
		{name: "trusted peer forwards client", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "rightmost untrusted hop wins", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "1.1.1.1, 203.0.113.7, 10.0.0.9"}, remote: "10.0.0.2:1234", want: "203.0.113.7"},
		{name: "all hops trusted", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "10.1.1.1, 10.0.0.9"}, remote: "192.0.2.50:1234", want: "10.1.1.1"},
		{name: "garbage hop stops the walk", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "nonsense, 10.0.0.9"}, remote: "10.0.0.2:1234", want: "10.0.0.9"},
		{name: "real ip from trusted peer", trusted: proxies, headers: map[string]string{"X-Real-IP": " 198.51.100.4 "}, remote: "10.0.0.2:1234", want: "198.51.100.4"},
		{name: "ipv6 remote addr", remote: "[::1]:8080", want: "::1"},
		{name: "remote addr without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{name: "no remote addr", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req, tt.trusted))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{"10.0.0.0/8", "::1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestClientMetadata(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.9:443"
	req.Header.Set("User-Agent", "curl/8.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.200")

	var ip, ua string
	ClientMetadata(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	})).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.9", ip)
	assert.Equal(t, "curl/8.0", ua)
}
