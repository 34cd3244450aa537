package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/httputil"
	"github.com/matzehuels/stacklicense/pkg/integrations"
	"github.com/matzehuels/stacklicense/pkg/integrations/crates"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

const mitText = "MIT License\n\nCopyright (c) serde-rs\n"

func licenseHandler(t *testing.T, calls *atomic.Int32) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/serde-rs/serde/license", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		resp := licenseResponse{
			Name:     "LICENSE-MIT",
			Path:     "LICENSE-MIT",
			Content:  base64.StdEncoding.EncodeToString([]byte(mitText)),
			Encoding: "base64",
		}
		resp.License.SPDXID = "MIT"
		_ = json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/repos/nolicense/repo/license", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/crates/tinyvec", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"crate": {"name": "tinyvec", "repository": "https://github.com/serde-rs/serde"}}`))
	})
	return mux
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cache, err := httputil.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient("secret", cache).WithBaseURL(server.URL)
	c.WithHTTPClient(server.Client()).WithRetry(1, time.Millisecond)
	return c
}

func TestClient_License(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(licenseHandler(t, &calls))
	defer server.Close()

	c := testClient(t, server)
	lic, err := c.License(context.Background(), "serde-rs", "serde")
	if err != nil {
		t.Fatalf("License() error: %v", err)
	}
	if !lic.Found || lic.SPDX != "MIT" || lic.Text != mitText || lic.Path != "LICENSE-MIT" {
		t.Errorf("License() = %+v", lic)
	}

	if _, err := c.License(context.Background(), "serde-rs", "serde"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("second lookup should be cached, calls = %d", calls.Load())
	}

	c.WithRefresh(true)
	_, _ = c.License(context.Background(), "serde-rs", "serde")
	if calls.Load() != 2 {
		t.Errorf("refresh should bypass the cache, calls = %d", calls.Load())
	}
}

func TestClient_LicenseNotFoundIsCached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(licenseHandler(t, &calls))
	defer server.Close()

	c := testClient(t, server)
	for i := 0; i < 2; i++ {
		lic, err := c.License(context.Background(), "nolicense", "repo")
		if err != nil {
			t.Fatal(err)
		}
		if lic.Found {
			t.Errorf("License() = %+v, want not found", lic)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("negative result should be cached, calls = %d", calls.Load())
	}
}

func TestClient_LicenseInvalidRef(t *testing.T) {
	c := NewClient("", nil)
	_, err := c.License(context.Background(), "-bad", "repo")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("License() error = %v", err)
	}
}

func TestClient_LicenseServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(t, server).License(context.Background(), "serde-rs", "serde")
	if !stderrors.Is(err, integrations.ErrNetwork) {
		t.Errorf("License() error = %v, want ErrNetwork", err)
	}
}

func TestClient_FetchLicense(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(licenseHandler(t, &calls))
	defer server.Close()

	tests := []struct {
		name    string
		pkg     pkglist.Package
		crates  bool
		wantOK  bool
		wantTxt string
	}{
		{
			name:    "repository url",
			pkg:     pkglist.Package{Name: "serde", Repository: pkglist.Optional("https://github.com/serde-rs/serde")},
			wantOK:  true,
			wantTxt: mitText,
		},
		{
			name:    "homepage url",
			pkg:     pkglist.Package{Name: "serde", Homepage: pkglist.Optional("https://github.com/serde-rs/serde.git")},
			wantOK:  true,
			wantTxt: mitText,
		},
		{
			name: "no github url",
			pkg:  pkglist.Package{Name: "serde", Homepage: pkglist.Optional("https://serde.rs")},
		},
		{
			name: "repository without license",
			pkg:  pkglist.Package{Name: "x", Repository: pkglist.Optional("https://github.com/nolicense/repo")},
		},
		{
			name:    "crates.io lookup",
			pkg:     pkglist.Package{Name: "tinyvec"},
			crates:  true,
			wantOK:  true,
			wantTxt: mitText,
		},
		{
			name:   "crate unknown to crates.io",
			pkg:    pkglist.Package{Name: "private-crate"},
			crates: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(t, server)
			if tt.crates {
				cc := crates.NewClient(nil).WithBaseURL(server.URL)
				cc.WithHTTPClient(server.Client()).WithRetry(1, time.Millisecond)
				c.WithCrates(cc)
			}
			text, ok, err := c.FetchLicense(context.Background(), tt.pkg)
			if err != nil {
				t.Fatalf("FetchLicense() error: %v", err)
			}
			if ok != tt.wantOK || text != tt.wantTxt {
				t.Errorf("FetchLicense() = %q, %v", text, ok)
			}
		})
	}
}

func TestDecodeContent(t *testing.T) {
	if s, err := decodeContent("aGVs\nbG8=", "base64"); err != nil || s != "hello" {
		t.Errorf("base64 = %q, %v", s, err)
	}
	if s, err := decodeContent("plain", ""); err != nil || s != "plain" {
		t.Errorf("plain = %q, %v", s, err)
	}
	if _, err := decodeContent("x", "gzip"); err == nil {
		t.Error("unknown encoding should fail")
	}
}

func TestExtractURL(t *testing.T) {
	tests := []struct {
		candidates []string
		wantOwner  string
		wantRepo   string
		wantOK     bool
	}{
		{[]string{"https://github.com/foo/bar"}, "foo", "bar", true},
		{[]string{"", "http://github.com/baz/qux"}, "baz", "qux", true},
		{[]string{"https://gitlab.com/foo/bar"}, "", "", false},
	}
	for _, tt := range tests {
		owner, repo, ok := ExtractURL(tt.candidates...)
		if ok != tt.wantOK || owner != tt.wantOwner || repo != tt.wantRepo {
			t.Errorf("ExtractURL(%v) = (%s, %s, %v)", tt.candidates, owner, repo, ok)
		}
	}
}

func TestParseRepoRef(t *testing.T) {
	owner, repo, err := ParseRepoRef("rust-lang/cargo")
	if err != nil || owner != "rust-lang" || repo != "cargo" {
		t.Errorf("ParseRepoRef() = %s, %s, %v", owner, repo, err)
	}
	for _, bad := range []string{"nope", "-x/y", "x/..", "x/"} {
		if _, _, err := ParseRepoRef(bad); err == nil {
			t.Errorf("ParseRepoRef(%q) should fail", bad)
		}
	}
}
