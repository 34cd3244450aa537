package httputil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type licenseEntry struct {
	SPDX string `json:"spdx"`
	Text string `json:"text"`
}

func TestCache_GetSet(t *testing.T) {
	c, err := NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	want := licenseEntry{SPDX: "MIT", Text: "Permission is hereby granted"}
	if err := c.Set("serde-rs/serde", want); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	var got licenseEntry
	ok, err := c.Get("serde-rs/serde", &got)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestCache_Miss(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	var result string
	ok, err := c.Get("missing", &result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("Get() returned true for missing key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Minute)

	if err := c.Set("key", "value"); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(c.keyPath("key"), old, old); err != nil {
		t.Fatal(err)
	}

	var res string
	ok, err := c.Get("key", &res)
	if !errors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("Get() returned true for expired key")
	}

	// Set refreshes the entry.
	_ = c.Set("key", "fresh")
	if ok, err := c.Get("key", &res); !ok || err != nil || res != "fresh" {
		t.Errorf("Get() after Set = %v, %v, %q", ok, err, res)
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 0)
	if err := os.WriteFile(c.keyPath("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	var v licenseEntry
	ok, err := c.Get("bad", &v)
	if ok || err == nil {
		t.Errorf("Get() = %v, %v; want false, error", ok, err)
	}
}

func TestCache_KeyStability(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	p1 := c.keyPath("test")
	p2 := c.keyPath("test")
	if p1 != p2 {
		t.Error("path should be deterministic")
	}
	if p1 == c.keyPath("other") {
		t.Error("different keys should produce different paths")
	}
	if filepath.Dir(p1) != c.Dir() {
		t.Errorf("entry %s outside cache dir", p1)
	}
}

func TestNewCache_DefaultDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", base)

	c, err := NewCache("", time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}

	want := filepath.Join(base, "stacklicense", "http")
	if c.Dir() != want {
		t.Errorf("got Dir = %s, want %s", c.Dir(), want)
	}
	if _, err := os.Stat(c.Dir()); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestCache_Namespace(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)

	t.Run("isolation", func(t *testing.T) {
		gh := c.Namespace("github:")
		crates := c.Namespace("crates:")

		if err := gh.Set("serde", "github-data"); err != nil {
			t.Fatal(err)
		}
		if err := crates.Set("serde", "crates-data"); err != nil {
			t.Fatal(err)
		}

		var ghVal, cratesVal string
		if ok, err := gh.Get("serde", &ghVal); !ok || err != nil {
			t.Fatalf("gh.Get() = %v, %v", ok, err)
		}
		if ok, err := crates.Get("serde", &cratesVal); !ok || err != nil {
			t.Fatalf("crates.Get() = %v, %v", ok, err)
		}
		if ghVal != "github-data" || cratesVal != "crates-data" {
			t.Errorf("values = %q, %q", ghVal, cratesVal)
		}
	})

	t.Run("chained", func(t *testing.T) {
		lic := c.Namespace("github:").Namespace("license:")
		if err := lic.Set("tokio-rs/tokio", "value"); err != nil {
			t.Fatal(err)
		}

		var result string
		if found, _ := c.Namespace("github:").Get("tokio-rs/tokio", &result); found {
			t.Error("value accessible without full namespace chain")
		}
		if ok, _ := c.Get("github:license:tokio-rs/tokio", &result); !ok || result != "value" {
			t.Errorf("Get(full key) = %v, %q", ok, result)
		}
	})

	t.Run("preservesDirAndTTL", func(t *testing.T) {
		ns := c.Namespace("test:")
		if ns.Dir() != c.Dir() || ns.TTL() != c.TTL() {
			t.Errorf("namespace changed dir or ttl: %s %v", ns.Dir(), ns.TTL())
		}
	})
}

func TestCache_Clear(t *testing.T) {
	dir := t.TempDir()
	c, _ := NewCache(dir, 0)
	_ = c.Set("a", 1)
	_ = c.Namespace("x:").Set("b", 2)
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	var v int
	if ok, _ := c.Get("a", &v); ok {
		t.Error("entry survived Clear")
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Error("Clear removed a foreign file")
	}
}

func TestRetry(t *testing.T) {
	transient := &RetryableError{Err: errors.New("503")}

	t.Run("retries transient errors", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("Retry() = %v after %d calls", err, calls)
		}
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		permanent := errors.New("404")
		err := Retry(context.Background(), 3, time.Millisecond, func() error {
			calls++
			return permanent
		})
		if !errors.Is(err, permanent) || calls != 1 {
			t.Errorf("Retry() = %v after %d calls", err, calls)
		}
	})

	t.Run("returns last error", func(t *testing.T) {
		err := Retry(context.Background(), 2, time.Millisecond, func() error { return transient })
		if !IsRetryable(err) {
			t.Errorf("Retry() = %v", err)
		}
	})

	t.Run("honours cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, 3, time.Hour, func() error { return transient })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() = %v, want context.Canceled", err)
		}
	})
}
