package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// File names used by the file backed stores.
const (
	ArtifactName   = "LICENSE-3RD-PARTY.bin"
	RepositoryDir  = ".stacklicense"
	RepositoryName = "licenses.bin"
)

// FileStore keeps an encoded package list in a single file. It is the
// same format as the embeddable artifact, so a previous artifact doubles
// as a cache.
type FileStore struct {
	name        string
	path        string
	compression pkglist.Compression
}

// NewFileStore creates a store at path. An empty path yields a store that
// is not applicable.
func NewFileStore(name, path string) *FileStore {
	return &FileStore{name: name, path: path, compression: pkglist.CompressionFlate}
}

// LocalStore uses the previous artifact in the build's OUT_DIR.
func LocalStore(outDir string) *FileStore {
	if outDir == "" {
		return NewFileStore("local", "")
	}
	return NewFileStore("local", filepath.Join(outDir, ArtifactName))
}

// RepositoryStore uses .stacklicense/licenses.bin under the project
// directory, meant to be committed alongside the sources.
func RepositoryStore(manifestDir string) *FileStore {
	if manifestDir == "" {
		return NewFileStore("repository", "")
	}
	return NewFileStore("repository", filepath.Join(manifestDir, RepositoryDir, RepositoryName))
}

// GlobalStore uses one file per project under dir (see [DefaultDir]).
func GlobalStore(dir, manifestDir string) *FileStore {
	if dir == "" || manifestDir == "" {
		return NewFileStore("global", "")
	}
	return NewFileStore("global", filepath.Join(dir, "licenses", ProjectKey(manifestDir)+".bin"))
}

// WithCompression sets the codec used by Save.
func (s *FileStore) WithCompression(c pkglist.Compression) *FileStore {
	s.compression = c
	return s
}

// Name returns the store name.
func (s *FileStore) Name() string { return s.name }

// Path returns the backing file, or "" when the store is not applicable.
func (s *FileStore) Path() string { return s.path }

// Load reads and decodes the backing file.
func (s *FileStore) Load(ctx context.Context) (Entries, error) {
	if s.path == "" {
		return nil, notApplicable(s.name, "no location in this context")
	}

	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil, invalid(s.name, err, "no cache at %s", s.path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheRead, err, "%s: stat %s", s.name, s.path)
	}
	if !info.Mode().IsRegular() {
		return nil, invalid(s.name, nil, "%s is not a regular file", s.path)
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheRead, err, "%s: read %s", s.name, s.path)
	}
	list, err := pkglist.Decode(data)
	if err != nil {
		return nil, invalid(s.name, err, "decode %s", s.path)
	}
	return FromList(list), nil
}

// Save encodes list and replaces the backing file atomically.
func (s *FileStore) Save(ctx context.Context, list pkglist.PackageList) error {
	if s.path == "" {
		return notApplicable(s.name, "no location in this context")
	}
	data, err := pkglist.EncodeWith(list, s.compression)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.path, data); err != nil {
		return errors.Wrap(errors.ErrCodeCacheWrite, err, "%s: write %s", s.name, s.path)
	}
	return nil
}

// Clear removes the backing file. A missing file is not an error.
func (s *FileStore) Clear() error {
	if s.path == "" {
		return nil
	}
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, creating parent directories as needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
