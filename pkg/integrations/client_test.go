package integrations

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/httputil"
	"github.com/matzehuels/stacklicense/pkg/observability"
)

type response struct {
	Message string `json:"message"`
}

func testClient(t *testing.T, server *httptest.Server, headers map[string]string) *Client {
	t.Helper()
	c, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(c, headers).WithHTTPClient(server.Client()).WithRetry(3, time.Millisecond)
}

func TestNewClient(t *testing.T) {
	client := NewClient(nil, map[string]string{"Authorization": "Bearer token"})
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}
	if client.attempts != httputil.DefaultAttempts {
		t.Errorf("attempts = %d", client.attempts)
	}
}

func TestClientGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		_ = json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	var resp response
	if err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var accept, auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept = r.Header.Get("Accept")
		auth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(response{})
	}))
	defer server.Close()

	client := testClient(t, server, map[string]string{"Accept": "application/json", "Authorization": "Bearer x"})
	var resp response
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"Accept": "text/plain"}, &resp)
	if err != nil {
		t.Fatal(err)
	}
	if accept != "text/plain" || auth != "Bearer x" {
		t.Errorf("headers = %q, %q", accept, auth)
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("MIT License\n"))
	}))
	defer server.Close()

	text, err := testClient(t, server, nil).GetText(context.Background(), server.URL, nil)
	if err != nil || text != "MIT License\n" {
		t.Errorf("GetText() = %q, %v", text, err)
	}
}

func TestClientGetDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{"))
	}))
	defer server.Close()

	var resp response
	err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
	if !errors.Is(err, errors.ErrCodeDecode) {
		t.Errorf("Get() error = %v, want %s", err, errors.ErrCodeDecode)
	}
}

func TestClientStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		header map[string]string
		want   error
	}{
		{"not found", http.StatusNotFound, nil, ErrNotFound},
		{"server error", http.StatusBadGateway, nil, ErrNetwork},
		{"too many requests", http.StatusTooManyRequests, map[string]string{"Retry-After": "30"}, ErrRateLimited},
		{"exhausted quota", http.StatusForbidden, map[string]string{"X-RateLimit-Remaining": "0"}, ErrRateLimited},
		{"plain forbidden", http.StatusForbidden, nil, ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			var resp response
			err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("Get() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientRateLimitRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	var resp response
	err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
	var rl *errors.RateLimitedError
	if !stderrors.As(err, &rl) || rl.RetryAfter != 42 {
		t.Errorf("error = %v, want RateLimitedError{42}", err)
	}
}

func TestClientCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(response{Message: "fresh"})
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	fetch := func(v *response) func() error {
		return func() error { return client.Get(context.Background(), server.URL, v) }
	}

	for i := 0; i < 2; i++ {
		var v response
		if err := client.Cached(context.Background(), "k", false, &v, fetch(&v)); err != nil {
			t.Fatal(err)
		}
		if v.Message != "fresh" {
			t.Errorf("message = %q", v.Message)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("server called %d times, want 1", calls.Load())
	}

	var v response
	if err := client.Cached(context.Background(), "k", true, &v, fetch(&v)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("refresh should bypass cache, calls = %d", calls.Load())
	}
}

func TestClientCachedRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(response{Message: "ok"})
	}))
	defer server.Close()

	client := testClient(t, server, nil)
	var v response
	err := client.Cached(context.Background(), "retry", false, &v, func() error {
		return client.Get(context.Background(), server.URL, &v)
	})
	if err != nil || v.Message != "ok" || calls.Load() != 3 {
		t.Errorf("Cached() = %v, message %q after %d calls", err, v.Message, calls.Load())
	}
}

func TestClientCachedFetchErrorNotStored(t *testing.T) {
	c, _ := httputil.NewCache(t.TempDir(), time.Hour)
	client := NewClient(c, nil)

	var v response
	err := client.Cached(context.Background(), "k", false, &v, func() error { return ErrNotFound })
	if !stderrors.Is(err, ErrNotFound) {
		t.Fatalf("Cached() error = %v", err)
	}
	if ok, _ := c.Get("k", &v); ok {
		t.Error("failed fetch was cached")
	}
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	requests  atomic.Int32
	responses atomic.Int32
}

func (h *httpRecorder) OnRequest(context.Context, string, string, string) { h.requests.Add(1) }

func (h *httpRecorder) OnResponse(context.Context, string, string, string, int, time.Duration) {
	h.responses.Add(1)
}

func TestClientHTTPHooks(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(response{})
	}))
	defer server.Close()

	var v response
	_ = testClient(t, server, nil).Get(context.Background(), server.URL, &v)
	if rec.requests.Load() != 1 || rec.responses.Load() != 1 {
		t.Errorf("hooks: %d requests, %d responses", rec.requests.Load(), rec.responses.Load())
	}
}

func TestNormalizeRepoURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"git@github.com:user/repo.git", "https://github.com/user/repo"},
		{"git://github.com/user/repo", "https://github.com/user/repo"},
		{"git+https://github.com/user/repo.git", "https://github.com/user/repo"},
		{"  https://github.com/user/repo  ", "https://github.com/user/repo"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeRepoURL(tt.in); got != tt.want {
			t.Errorf("NormalizeRepoURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractRepoURL(t *testing.T) {
	re := regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:[/?#]|$)`)
	tests := []struct {
		name       string
		candidates []string
		owner      string
		repo       string
		ok         bool
	}{
		{"repository", []string{"https://github.com/serde-rs/serde"}, "serde-rs", "serde", true},
		{"ssh form", []string{"git@github.com:tokio-rs/tokio.git"}, "tokio-rs", "tokio", true},
		{"falls through", []string{"", "https://serde.rs", "https://github.com/serde-rs/json/tree/master"}, "serde-rs", "json", true},
		{"sponsors skipped", []string{"https://github.com/sponsors/dtolnay"}, "", "", false},
		{"none", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, ok := ExtractRepoURL(re, tt.candidates...)
			if owner != tt.owner || repo != tt.repo || ok != tt.ok {
				t.Errorf("ExtractRepoURL() = (%q, %q, %v)", owner, repo, ok)
			}
		})
	}
}
