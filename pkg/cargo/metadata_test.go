package cargo

import (
	"os"
	"testing"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

func loadMetadata(t *testing.T) *Metadata {
	t.Helper()
	data, err := os.ReadFile("testdata/metadata.json")
	if err != nil {
		t.Fatal(err)
	}
	m, err := ParseMetadata(data)
	if err != nil {
		t.Fatalf("ParseMetadata() error: %v", err)
	}
	return m
}

func TestParseMetadata(t *testing.T) {
	m := loadMetadata(t)

	if len(m.Packages) != 7 {
		t.Errorf("len(Packages) = %d, want 7", len(m.Packages))
	}
	if m.WorkspaceRoot != "/work/app" {
		t.Errorf("WorkspaceRoot = %q", m.WorkspaceRoot)
	}

	root, ok := m.Node(m.RootID())
	if !ok {
		t.Fatal("root node missing")
	}
	normal := map[string]bool{}
	for _, d := range root.Deps {
		normal[d.Name] = d.IsNormal()
	}
	want := map[string]bool{"serde": true, "tokio": true, "anyhow": false, "cc": false}
	for name, w := range want {
		if normal[name] != w {
			t.Errorf("%s IsNormal() = %v, want %v", name, normal[name], w)
		}
	}
}

func TestParseMetadataErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `{"packages": [`},
		{"no resolve", `{"packages": [], "resolve": null}`},
		{"null root", `{"packages": [], "resolve": {"root": null, "nodes": []}}`},
		{"root not in nodes", `{"packages": [], "resolve": {"root": "a 1.0.0", "nodes": [{"id": "b 1.0.0", "deps": []}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata([]byte(tt.data))
			if !errors.Is(err, errors.ErrCodeParse) {
				t.Errorf("ParseMetadata() error = %v, want %s", err, errors.ErrCodeParse)
			}
		})
	}
}

func TestMetadataPackageToPackage(t *testing.T) {
	m := loadMetadata(t)

	serde, ok := m.Package("registry+https://github.com/rust-lang/crates.io-index#serde@1.0.200")
	if !ok {
		t.Fatal("serde not found")
	}
	p := serde.ToPackage()
	if p.NameVersion() != "serde-1.0.200" {
		t.Errorf("NameVersion() = %q", p.NameVersion())
	}
	if p.License() != "MIT OR Apache-2.0" {
		t.Errorf("License() = %q", p.License())
	}
	if p.Homepage == nil || *p.Homepage != "https://serde.rs" {
		t.Errorf("Homepage = %v", p.Homepage)
	}
	if p.LicenseText != nil || p.IsRootPkg || p.RestoredFromCache {
		t.Errorf("fresh package should carry no license state: %+v", p)
	}

	derive, _ := m.Package("registry+https://github.com/rust-lang/crates.io-index#serde_derive@1.0.200")
	if hp := derive.ToPackage().Homepage; hp != nil {
		t.Errorf("empty homepage should be absent, got %q", *hp)
	}
}

func TestParseTree(t *testing.T) {
	data, err := os.ReadFile("testdata/tree.txt")
	if err != nil {
		t.Fatal(err)
	}
	names, err := ParseTree(data)
	if err != nil {
		t.Fatalf("ParseTree() error: %v", err)
	}
	for _, n := range []string{"app", "serde", "serde_derive", "tokio"} {
		if !names.Has(n) {
			t.Errorf("missing %q", n)
		}
	}
	if len(names) != 4 {
		t.Errorf("len = %d, want 4", len(names))
	}
	if names.Has("v1.0.200") {
		t.Error("version tokens must not be treated as names")
	}
}

func TestParseTreeDuplicatesAndBlankLines(t *testing.T) {
	names, err := ParseTree([]byte("\n  \nlibc v0.2.155\nlibc v0.2.155\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || !names.Has("libc") {
		t.Errorf("names = %v", names)
	}
}

func TestParseTreeInvalidUTF8(t *testing.T) {
	_, err := ParseTree([]byte{0xff, 0xfe, '\n'})
	if !errors.Is(err, errors.ErrCodeParse) {
		t.Errorf("ParseTree() error = %v, want %s", err, errors.ErrCodeParse)
	}
}

func TestParsePackageID(t *testing.T) {
	tests := []struct {
		id, name, version string
	}{
		{"serde 1.0.200 (registry+https://github.com/rust-lang/crates.io-index)", "serde", "1.0.200"},
		{"registry+https://github.com/rust-lang/crates.io-index#serde@1.0.200", "serde", "1.0.200"},
		{"path+file:///work/app#0.1.0", "app", "0.1.0"},
		{"path+file:///work/app#my-app@0.1.0", "my-app", "0.1.0"},
		{"git+https://github.com/foo/bar?branch=main#baz@0.2.0", "baz", "0.2.0"},
		{"garbage", "", ""},
	}
	for _, tt := range tests {
		name, version := ParsePackageID(tt.id)
		if name != tt.name || version != tt.version {
			t.Errorf("ParsePackageID(%q) = (%q, %q), want (%q, %q)", tt.id, name, version, tt.name, tt.version)
		}
	}

	if got := Label("garbage"); got != "garbage" {
		t.Errorf("Label(garbage) = %q", got)
	}
}

func TestDirectiveFlags(t *testing.T) {
	args := Frozen.apply([]string{"metadata"})
	if len(args) != 2 || args[1] != "--frozen" {
		t.Errorf("apply() = %v", args)
	}
	if got := Default.apply([]string{"metadata"}); len(got) != 1 {
		t.Errorf("Default adds a flag: %v", got)
	}
	if PreferLocked().String() != "locked,default" {
		t.Errorf("String() = %q", PreferLocked().String())
	}
}
