package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/54b3r/docchat-go/internal/logging"
)

// newRoutedTestServer builds a Server through newServer so the full
// middleware chain is exercised, and serves it over a real listener.
func newRoutedTestServer(t *testing.T, q querier, apiKey string) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := newServer(q, &Config{
		APIKey:          apiKey,
		Logger:          logging.Discard(),
		MetricsRegistry: reg,
		MetricsGatherer: reg,
	})
	t.Cleanup(s.stopRL)

	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

// TestServer_ChatStreamsThroughMiddleware verifies that SSE flushing works
// behind the request logger and instrumentation wrappers.
func TestServer_ChatStreamsThroughMiddleware(t *testing.T) {
	t.Parallel()
	srv := newRoutedTestServer(t, &fakeQuerier{fragments: []string{"hi"}}, "secret")

	resp, body := do(t, http.MethodPost, srv.URL+"/api/chat", "secret", `{"message":"hello"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %s", resp.StatusCode, body)
	}
	if body != "data: hi\n\nevent: done\ndata: [DONE]\n\n" {
		t.Errorf("body = %q", body)
	}
}

func TestServer_ChatRequiresToken(t *testing.T) {
	t.Parallel()
	q := &fakeQuerier{fragments: []string{"hi"}}
	srv := newRoutedTestServer(t, q, "secret")

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/chat", "", `{"message":"hello"}`)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if q.gotQuestion != "" {
		t.Error("querier reached without a token")
	}
}

func TestServer_HealthIsUnauthenticated(t *testing.T) {
	t.Parallel()
	srv := newRoutedTestServer(t, &fakeQuerier{}, "secret")

	resp, body := do(t, http.MethodGet, srv.URL+"/api/health", "", "")

	if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("status = %d, body = %s", resp.StatusCode, body)
	}
}

func TestServer_ChatRejectsGet(t *testing.T) {
	t.Parallel()
	srv := newRoutedTestServer(t, &fakeQuerier{}, "")

	resp, _ := do(t, http.MethodGet, srv.URL+"/api/chat", "", "")

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

// TestServer_MetricsExposeInstrumentedRequests verifies that requests served
// by the mux show up on GET /metrics.
func TestServer_MetricsExposeInstrumentedRequests(t *testing.T) {
	t.Parallel()
	srv := newRoutedTestServer(t, &fakeQuerier{fragments: []string{"x"}}, "")

	do(t, http.MethodGet, srv.URL+"/api/health", "", "")
	do(t, http.MethodPost, srv.URL+"/api/chat", "", `{"message":"q"}`)
	_, body := do(t, http.MethodGet, srv.URL+"/metrics", "", "")

	for _, want := range []string{
		`docchat_http_requests_total{code="200",handler="health",method="GET"} 1`,
		`docchat_chat_requests_total{outcome="ok"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_RejectsNilAssistant(t *testing.T) {
	t.Parallel()
	if _, err := New(nil, &Config{}); err == nil {
		t.Error("New(nil) returned no error")
	}
}
