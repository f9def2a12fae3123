package network

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_AppliesDefaults(t *testing.T) {
	client := NewClient(ClientConfig{})

	assert.Equal(t, DefaultRequestTimeout, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, DefaultTLSHandshakeTimeout, transport.TLSHandshakeTimeout)
	assert.Equal(t, DefaultResponseHeaderTimeout, transport.ResponseHeaderTimeout)
	assert.Equal(t, DefaultMaxIdleConnsPerHost, transport.MaxIdleConnsPerHost)
	assert.True(t, transport.ForceAttemptHTTP2)
	assert.False(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestNewClient_KeepsExplicitValues(t *testing.T) {
	client := NewClient(ClientConfig{
		RequestTimeout:  3 * time.Second,
		MaxIdleConns:    7,
		IgnoreTLSErrors: true,
	})

	assert.Equal(t, 3*time.Second, client.Timeout)
	transport := client.Transport.(*http.Transport)
	assert.Equal(t, 7, transport.MaxIdleConns)
	assert.True(t, transport.TLSClientConfig.InsecureSkipVerify)
}

func TestNewHTTPTransport_ProxyOverride(t *testing.T) {
	proxy, err := url.Parse("http://proxy.internal:3128")
	require.NoError(t, err)

	transport := NewHTTPTransport(ClientConfig{ProxyURL: proxy})
	req := httptest.NewRequest(http.MethodGet, "https://api.groq.com/openai/v1", nil)
	got, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, proxy.String(), got.String())
}

func TestNewClient_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	resp, err := NewClient(NewDefaultClientConfig()).Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
