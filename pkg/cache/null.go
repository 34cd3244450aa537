package cache

import (
	"context"

	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// NullStore is a store that never holds anything. Useful when caching is
// disabled.
type NullStore struct{}

// Name returns "none".
func (NullStore) Name() string { return "none" }

// Load always reports NotApplicable.
func (NullStore) Load(context.Context) (Entries, error) {
	return nil, notApplicable("none", "caching is disabled")
}

// Save does nothing.
func (NullStore) Save(context.Context, pkglist.PackageList) error { return nil }

// Ensure NullStore implements Store.
var _ Store = NullStore{}
