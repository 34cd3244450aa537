package crates

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/matzehuels/stacklicense/pkg/httputil"
	"github.com/matzehuels/stacklicense/pkg/integrations"
)

// DefaultBaseURL is the crates.io API root.
const DefaultBaseURL = "https://crates.io/api/v1"

// UserAgent identifies the client, as crates.io requires.
const UserAgent = "stacklicense (https://github.com/matzehuels/stacklicense)"

// CrateInfo holds the crates.io fields used to locate a crate's upstream
// repository. Empty strings mean the crate does not declare the field.
type CrateInfo struct {
	Name       string `json:"name"`
	Repository string `json:"repository"`
	Homepage   string `json:"homepage"`
	License    string `json:"license"`
}

// Client queries the crates.io API. It is safe for concurrent use when the
// cache is not shared with other writers of the same keys.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a crates.io client. cache may be nil.
func NewClient(cache *httputil.Cache) *Client {
	if cache != nil {
		cache = cache.Namespace("crates:")
	}
	headers := map[string]string{"User-Agent": UserAgent}
	return &Client{
		Client:  integrations.NewClient(cache, headers),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

// FetchCrate retrieves crate metadata. A crate unknown to crates.io yields
// an error wrapping [integrations.ErrNotFound].
func (c *Client) FetchCrate(ctx context.Context, crate string, refresh bool) (*CrateInfo, error) {
	var info CrateInfo
	err := c.Cached(ctx, crate, refresh, &info, func() error {
		return c.fetch(ctx, crate, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) fetch(ctx context.Context, crate string, info *CrateInfo) error {
	var data crateResponse
	if err := c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, url.PathEscape(crate)), &data); err != nil {
		if errors.Is(err, integrations.ErrNotFound) {
			return fmt.Errorf("%w: crate %s", err, crate)
		}
		return err
	}
	*info = CrateInfo{
		Name:       data.Crate.Name,
		Repository: data.Crate.Repository,
		Homepage:   data.Crate.HomePage,
		License:    data.Crate.License,
	}
	return nil
}

type crateResponse struct {
	Crate struct {
		Name       string `json:"name"`
		License    string `json:"license"`
		Repository string `json:"repository"`
		HomePage   string `json:"homepage"`
	} `json:"crate"`
}
