package rpc

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIDIgnoresForwardingFromUntrustedPeer(t *testing.T) {
	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "203.0.113.7:4100"
	r.Header.Set("X-Real-IP", "198.51.100.1")
	r.Header.Set("X-Forwarded-For", "198.51.100.2, 10.0.0.1")
	require.Equal(t, "203.0.113.7", clientID(r, nil))
}

func TestClientIDHonoursTrustedProxy(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.4"})
	require.NoError(t, err)

	r := httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "10.1.2.3:4100"
	r.Header.Set("X-Forwarded-For", "198.51.100.2, 10.1.2.3")
	require.Equal(t, "198.51.100.2", clientID(r, proxies))

	r.Header.Set("X-Real-IP", "198.51.100.9")
	require.Equal(t, "198.51.100.9", clientID(r, proxies))

	r = httptest.NewRequest("POST", "/", nil)
	r.RemoteAddr = "192.0.2.4:80"
	r.Header.Set("X-Forwarded-For", "not-an-ip")
	require.Equal(t, "192.0.2.4", clientID(r, proxies))
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/33"})
	require.Error(t, err)
	_, err = ParseTrustedProxies([]string{"proxy.local"})
	require.Error(t, err)
}
