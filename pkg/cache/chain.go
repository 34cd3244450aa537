package cache

import (
	"context"
	"strings"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// ChainStore loads from the first of several stores that has a usable
// cache.
type ChainStore struct {
	stores []Store
}

// Chain combines stores in priority order.
func Chain(stores ...Store) *ChainStore {
	return &ChainStore{stores: stores}
}

// Stores returns the chained stores in order.
func (c *ChainStore) Stores() []Store { return c.stores }

// Name lists the chained stores, e.g. "repository>local>global".
func (c *ChainStore) Name() string {
	names := make([]string, len(c.stores))
	for i, s := range c.stores {
		names[i] = s.Name()
	}
	return strings.Join(names, ">")
}

// Load returns the entries of the first store that loads. A ReadFailed
// outcome stops the search and is returned as is. When no store loads the
// result is NotApplicable if every store was, and Invalid otherwise; both
// wrap the individual failures.
func (c *ChainStore) Load(ctx context.Context) (Entries, error) {
	var failures []error
	allNotApplicable := true
	for _, s := range c.stores {
		entries, err := s.Load(ctx)
		switch Classify(err) {
		case Loaded:
			return entries, nil
		case ReadFailed:
			return nil, err
		case Invalid:
			allNotApplicable = false
		}
		failures = append(failures, err)
	}
	if len(failures) == 0 {
		return nil, errors.New(errors.ErrCodeCacheUnavailable, "empty store chain")
	}
	if allNotApplicable {
		return nil, errors.Join(errors.ErrCodeCacheUnavailable, "no cache applies", failures...)
	}
	return nil, errors.Join(errors.ErrCodeCacheInvalid, "no usable cache found", failures...)
}

// Save writes list to every applicable store.
func (c *ChainStore) Save(ctx context.Context, list pkglist.PackageList) error {
	var failures []error
	for _, s := range c.stores {
		if err := s.Save(ctx, list); err != nil && Classify(err) != NotApplicable {
			failures = append(failures, err)
		}
	}
	return errors.Join(errors.ErrCodeCacheWrite, "save cache", failures...)
}

// Ensure ChainStore implements Store.
var _ Store = (*ChainStore)(nil)
