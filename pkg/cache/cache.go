// Package cache persists license text between resolution runs.
//
// Reading a package's license from the registry source tree is the slow
// part of a run, and the text of a given crate version never changes. A
// [Store] keeps the previous run's [pkglist.PackageList] and hands it back
// as [Entries] keyed by name_version; [Apply] copies those into the new list
// before any disk scan happens.
//
// # Stores
//
//   - [LocalStore]: the previous artifact in the build's OUT_DIR
//   - [RepositoryStore]: a file under the project that can be committed
//   - [GlobalStore]: one file per project in the user cache directory
//   - [RedisStore]: a shared cache for CI fleets
//   - [NullStore]: caching disabled
//
// [Chain] tries several stores and uses the first one that loads.
//
// # Load outcomes
//
// Loading never fails just because there is no cache. Errors are
// classified with [Classify]:
//
//   - [NotApplicable]: the store cannot exist here (e.g. OUT_DIR unset)
//   - [Invalid]: missing, not a file, or cannot be decoded
//   - [ReadFailed]: an I/O error on a location that should be readable
//
// Only ReadFailed aborts a resolution run.
package cache

import (
	"context"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// Store loads and saves persisted license text.
type Store interface {
	// Name identifies the store in logs.
	Name() string

	// Load returns the persisted entries. See [Classify] for the error
	// contract.
	Load(ctx context.Context) (Entries, error)

	// Save persists a finalized package list for the next run.
	Save(ctx context.Context, list pkglist.PackageList) error
}

// Entries maps name_version to previously resolved license text.
type Entries map[string]string

// FromList collects the license text of every package that has some.
// Packages without text are left out so that the next run scans them again.
func FromList(list pkglist.PackageList) Entries {
	entries := make(Entries, len(list))
	for _, p := range list {
		if p.LicenseText != nil {
			entries[p.NameVersion()] = *p.LicenseText
		}
	}
	return entries
}

// Apply fills LicenseText for packages in pkgs that have none and whose
// name_version is in entries, marking them RestoredFromCache. The slice is
// updated in place. It returns the number of packages restored.
func Apply(entries Entries, pkgs pkglist.PackageList) int {
	hits := 0
	for i := range pkgs {
		if pkgs[i].LicenseText != nil {
			continue
		}
		text, ok := entries[pkgs[i].NameVersion()]
		if !ok {
			continue
		}
		pkgs[i].LicenseText = &text
		pkgs[i].RestoredFromCache = true
		hits++
	}
	return hits
}

// Outcome classifies the result of [Store.Load].
type Outcome int

const (
	// Loaded means entries were returned.
	Loaded Outcome = iota
	// NotApplicable means the store does not exist in this context.
	NotApplicable
	// Invalid means the store location is missing or holds unusable data.
	Invalid
	// ReadFailed means an existing location could not be read.
	ReadFailed
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case NotApplicable:
		return "not applicable"
	case Invalid:
		return "invalid"
	default:
		return "read failed"
	}
}

// Fatal reports whether the outcome must abort resolution.
func (o Outcome) Fatal() bool { return o == ReadFailed }

// Classify maps a Load error to its outcome. Errors that carry no cache
// code are treated as ReadFailed.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Loaded
	case errors.Is(err, errors.ErrCodeCacheUnavailable):
		return NotApplicable
	case errors.Is(err, errors.ErrCodeCacheInvalid):
		return Invalid
	default:
		return ReadFailed
	}
}

func notApplicable(store, format string, args ...any) error {
	e := errors.New(errors.ErrCodeCacheUnavailable, format, args...)
	e.Message = store + ": " + e.Message
	return e
}

func invalid(store string, cause error, format string, args ...any) error {
	e := errors.Wrap(errors.ErrCodeCacheInvalid, cause, format, args...)
	e.Message = store + ": " + e.Message
	return e
}
