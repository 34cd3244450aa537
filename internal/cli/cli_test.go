package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/stacklicense/pkg/cache"
	"github.com/matzehuels/stacklicense/pkg/cargo"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// fakeRunner answers cargo queries from testdata.
type fakeRunner struct {
	metadata []byte
	tree     []byte
	calls    int
}

func (f *fakeRunner) Run(_ context.Context, _ string, argv []string) ([]byte, error) {
	f.calls++
	switch argv[1] {
	case "metadata":
		return f.metadata, nil
	case "tree":
		if f.tree == nil {
			return nil, stderrors.New("tree exploded")
		}
		return f.tree, nil
	}
	return nil, stderrors.New("unexpected command " + argv[1])
}

type project struct {
	dir    string
	runner *fakeRunner
	cli    *CLI
}

// newProject lays out a crate named "app" and a cargo home whose registry
// holds sources for the testdata dependencies.
func newProject(t *testing.T) *project {
	t.Helper()

	for _, env := range []string{"OUT_DIR", "STACKLICENSE_DIRECTIVES", "STACKLICENSE_CACHE", "STACKLICENSE_SAVE",
		"STACKLICENSE_REDIS_URL", "STACKLICENSE_COMPRESSION", "STACKLICENSE_GITHUB", "GITHUB_TOKEN"} {
		t.Setenv(env, "")
	}
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	cargoHome := t.TempDir()
	t.Setenv("CARGO_HOME", cargoHome)
	root := filepath.Join(cargoHome, "registry", "src", "index.crates.io-6f17d22bba15001f")
	writeFile(t, filepath.Join(root, "serde-1.0.200", "LICENSE-MIT"), "serde mit")
	writeFile(t, filepath.Join(root, "serde_derive-1.0.200", "LICENSE-MIT"), "derive mit")
	writeFile(t, filepath.Join(root, "tokio-1.38.0", "LICENSE"), "tokio mit")

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Cargo.toml"), "[package]\nname = \"app\"\nversion = \"0.1.0\"\n")
	writeFile(t, filepath.Join(dir, "LICENSE"), "app license")

	metadata, err := os.ReadFile("testdata/metadata.json")
	require.NoError(t, err)
	tree, err := os.ReadFile("testdata/tree.txt")
	require.NoError(t, err)

	runner := &fakeRunner{metadata: metadata, tree: tree}
	c := New(io.Discard, log.InfoLevel)
	c.newRunner = func() cargo.Runner { return runner }
	return &project{dir: dir, runner: runner, cli: c}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (p *project) ctx() context.Context {
	return withLogger(context.Background(), p.cli.Logger)
}

func TestRunGenerate(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "nested", "licenses.bin")

	path, err := p.cli.runGenerate(p.ctx(), &generateOpts{out: out}, p.dir)
	require.NoError(t, err)
	assert.Equal(t, out, path)
	assert.Equal(t, 2, p.runner.calls)

	list, err := readArtifact(path)
	require.NoError(t, err)
	require.NoError(t, list.Validate())

	var names []string
	for _, pkg := range list {
		names = append(names, pkg.Name)
	}
	assert.Equal(t, []string{"app", "serde", "serde_derive", "tokio"}, names)
	assert.Equal(t, "serde mit", *list[1].LicenseText)
	assert.Equal(t, "app license", *list[0].LicenseText)

	// The default save location is the global store, so a second run is
	// served from cache.
	global := cache.GlobalStore(mustCacheDir(t), p.dir)
	_, err = os.Stat(global.Path())
	require.NoError(t, err)

	path, err = p.cli.runGenerate(p.ctx(), &generateOpts{out: out}, p.dir)
	require.NoError(t, err)
	list, err = readArtifact(path)
	require.NoError(t, err)
	for _, pkg := range list.Dependencies() {
		assert.True(t, pkg.RestoredFromCache, pkg.Name)
	}
}

func TestRunGenerateNoCache(t *testing.T) {
	p := newProject(t)
	out := filepath.Join(t.TempDir(), "licenses.bin")

	_, err := p.cli.runGenerate(p.ctx(), &generateOpts{out: out, project: projectFlags{noCache: true}}, p.dir)
	require.NoError(t, err)

	_, err = os.Stat(cache.GlobalStore(mustCacheDir(t), p.dir).Path())
	assert.True(t, os.IsNotExist(err), "no cache should be written")
}

func TestRunGenerateBadManifest(t *testing.T) {
	p := newProject(t)
	_, err := p.cli.runGenerate(p.ctx(), &generateOpts{}, t.TempDir())
	assert.Error(t, err)
	assert.Zero(t, p.runner.calls)
}

func TestLoadList(t *testing.T) {
	p := newProject(t)

	list, err := p.cli.loadList(p.ctx(), &projectFlags{noCache: true}, p.dir)
	require.NoError(t, err)
	require.Len(t, list, 4)

	// An artifact is decoded without running cargo.
	data, err := pkglist.Encode(list)
	require.NoError(t, err)
	artifact := filepath.Join(t.TempDir(), cache.ArtifactName)
	require.NoError(t, os.WriteFile(artifact, data, 0o644))

	calls := p.runner.calls
	decoded, err := p.cli.loadList(p.ctx(), &projectFlags{}, artifact)
	require.NoError(t, err)
	assert.Equal(t, calls, p.runner.calls)
	require.Len(t, decoded, len(list))
	for i := range list {
		assert.Equal(t, list[i].NameVersion(), decoded[i].NameVersion())
		assert.Equal(t, list[i].LicenseText, decoded[i].LicenseText)
	}
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "x.bin", artifactPath("x.bin", "/out"))
	assert.Equal(t, filepath.Join("/out", cache.ArtifactName), artifactPath("", "/out"))
	assert.Equal(t, cache.ArtifactName, artifactPath("", ""))
}

func TestIsArtifact(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.bin")
	writeFile(t, file, "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "d.bin"), 0o755))

	assert.True(t, isArtifact(file))
	assert.False(t, isArtifact(filepath.Join(dir, "d.bin")))
	assert.False(t, isArtifact(filepath.Join(dir, "missing.bin")))
	assert.False(t, isArtifact(dir))
}

func TestRootCommand(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"generate", "show", "graph", "browse", "serve", "cache"}, names)
}

func TestShowCommand(t *testing.T) {
	p := newProject(t)
	root := p.cli.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"show", p.dir, "--short", "--format", "json", "--no-cache"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), `"license": "MIT OR Apache-2.0"`)
	assert.Contains(t, out.String(), `"serde_derive"`)
}

func mustCacheDir(t *testing.T) string {
	t.Helper()
	dir, err := cacheDir()
	require.NoError(t, err)
	return dir
}

func TestGraphCommand(t *testing.T) {
	p := newProject(t)
	root := p.cli.RootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"graph", p.dir, "--no-cache", "--detailed"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	dot := out.String()
	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, `label="app 0.1.0\nlicense: MIT", penwidth=3`)
	assert.Contains(t, dot, `"registry+https://github.com/rust-lang/crates.io-index#serde@1.0.200" -> "registry+https://github.com/rust-lang/crates.io-index#serde_derive@1.0.200";`)
	assert.NotContains(t, dot, "anyhow")
	assert.NotContains(t, dot, "libc")
}
