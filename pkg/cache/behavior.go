package cache

import (
	"strings"

	"github.com/matzehuels/stacklicense/pkg/errors"
)

// Behavior selects which stores are consulted before scanning.
type Behavior string

const (
	// CheckAll tries the repository, local and global stores in that
	// order (plus Redis when configured) and takes the first that loads.
	CheckAll Behavior = "check-all"
	// GlobalOnly consults only the global store.
	GlobalOnly Behavior = "global"
	// Disabled never reads a cache.
	Disabled Behavior = "disabled"
)

// ParseBehavior parses a behavior name. The empty string means CheckAll.
func ParseBehavior(s string) (Behavior, error) {
	switch Behavior(strings.ToLower(strings.TrimSpace(s))) {
	case "", CheckAll:
		return CheckAll, nil
	case GlobalOnly:
		return GlobalOnly, nil
	case Disabled, "none", "off":
		return Disabled, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown cache behavior %q (want check-all, global or disabled)", s)
}

// SaveLocation selects where a finalized list is persisted.
type SaveLocation string

const (
	SaveGlobal     SaveLocation = "global"
	SaveLocal      SaveLocation = "local"
	SaveRepository SaveLocation = "repository"
	SaveRedis      SaveLocation = "redis"
	SaveNone       SaveLocation = "none"
)

// ParseSaveLocation parses a save location name. The empty string means
// SaveGlobal.
func ParseSaveLocation(s string) (SaveLocation, error) {
	switch loc := SaveLocation(strings.ToLower(strings.TrimSpace(s))); loc {
	case "":
		return SaveGlobal, nil
	case SaveGlobal, SaveLocal, SaveRepository, SaveRedis, SaveNone:
		return loc, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "unknown cache save location %q (want global, local, repository, redis or none)", s)
}

// Locations holds what is needed to build the concrete stores for a
// project. Empty fields make the corresponding store NotApplicable.
type Locations struct {
	ManifestDir string      // project directory (repository and global stores)
	OutDir      string      // build output directory (local store)
	GlobalDir   string      // user cache directory, see DefaultDir
	Redis       *RedisStore // optional shared store
}

// Global returns the global file store.
func (l Locations) Global() *FileStore { return GlobalStore(l.GlobalDir, l.ManifestDir) }

// Local returns the OUT_DIR store.
func (l Locations) Local() *FileStore { return LocalStore(l.OutDir) }

// Repository returns the in-repository store.
func (l Locations) Repository() *FileStore { return RepositoryStore(l.ManifestDir) }

// Reader returns the store to load from for behavior b.
func (l Locations) Reader(b Behavior) Store {
	switch b {
	case Disabled:
		return NullStore{}
	case GlobalOnly:
		return l.Global()
	}
	stores := []Store{l.Repository(), l.Local(), l.Global()}
	if l.Redis != nil {
		stores = append(stores, l.Redis)
	}
	return Chain(stores...)
}

// Writer returns the store to save to for location s.
func (l Locations) Writer(s SaveLocation) (Store, error) {
	switch s {
	case SaveGlobal:
		return l.Global(), nil
	case SaveLocal:
		return l.Local(), nil
	case SaveRepository:
		return l.Repository(), nil
	case SaveRedis:
		if l.Redis == nil {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "cache save location is redis but no redis url is configured")
		}
		return l.Redis, nil
	case SaveNone, "":
		return NullStore{}, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown cache save location %q", s)
}
