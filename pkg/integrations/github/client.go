package github

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/matzehuels/stacklicense/pkg/errors"
	"github.com/matzehuels/stacklicense/pkg/httputil"
	"github.com/matzehuels/stacklicense/pkg/integrations"
	"github.com/matzehuels/stacklicense/pkg/integrations/crates"
	"github.com/matzehuels/stacklicense/pkg/pkglist"
)

// DefaultBaseURL is the GitHub REST API root.
const DefaultBaseURL = "https://api.github.com"

var repoURLPattern = regexp.MustCompile(`https?://github\.com/([^/]+)/([^/]+?)(?:\.git)?(?:[/?#]|$)`)

// Client downloads repository license files from the GitHub API.
type Client struct {
	*integrations.Client
	baseURL string
	crates  *crates.Client
	refresh bool
}

// NewClient creates a GitHub client. token may be empty for
// unauthenticated access, which GitHub limits to 60 requests per hour.
// cache may be nil.
func NewClient(token string, cache *httputil.Cache) *Client {
	if cache != nil {
		cache = cache.Namespace("github:")
	}
	headers := map[string]string{
		"Accept":               "application/vnd.github+json",
		"X-GitHub-Api-Version": "2022-11-28",
	}
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return &Client{
		Client:  integrations.NewClient(cache, headers),
		baseURL: DefaultBaseURL,
	}
}

// WithBaseURL points the client at another API root, e.g. a GitHub
// Enterprise instance.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = strings.TrimSuffix(u, "/")
	return c
}

// WithCrates enables repository lookup on crates.io for packages whose
// metadata carries no GitHub URL.
func (c *Client) WithCrates(cc *crates.Client) *Client {
	c.crates = cc
	return c
}

// WithRefresh makes lookups bypass cached results.
func (c *Client) WithRefresh(refresh bool) *Client {
	c.refresh = refresh
	return c
}

// License returns the license file of owner/repo. A repository without a
// detected license, or one that does not exist, yields Found == false and
// no error.
func (c *Client) License(ctx context.Context, owner, repo string) (*License, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}

	var lic License
	err := c.Cached(ctx, "license:"+owner+"/"+repo, c.refresh, &lic, func() error {
		return c.fetchLicense(ctx, owner, repo, &lic)
	})
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (c *Client) fetchLicense(ctx context.Context, owner, repo string, lic *License) error {
	var data licenseResponse
	url := fmt.Sprintf("%s/repos/%s/%s/license", c.baseURL, owner, repo)
	if err := c.Get(ctx, url, &data); err != nil {
		if stderrors.Is(err, integrations.ErrNotFound) {
			*lic = License{}
			return nil
		}
		return err
	}

	text, err := decodeContent(data.Content, data.Encoding)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDecode, err, "license of %s/%s", owner, repo)
	}
	spdx := data.License.SPDXID
	if spdx == "NOASSERTION" {
		spdx = ""
	}
	*lic = License{Found: true, SPDX: spdx, Path: data.Path, Text: text}
	return nil
}

func decodeContent(content, encoding string) (string, error) {
	switch encoding {
	case "base64":
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(content, "\n", ""))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case "", "utf-8":
		return content, nil
	}
	return "", fmt.Errorf("unsupported content encoding %q", encoding)
}

// FetchLicense looks up the GitHub repository of pkg and returns its
// license text. The repository is taken from the package's repository or
// homepage URL, then from crates.io if enabled. ok is false when no
// GitHub repository or license file is known.
func (c *Client) FetchLicense(ctx context.Context, pkg pkglist.Package) (string, bool, error) {
	owner, repo, ok := ExtractURL(value(pkg.Repository), value(pkg.Homepage))
	if !ok && c.crates != nil {
		info, err := c.crates.FetchCrate(ctx, pkg.Name, c.refresh)
		switch {
		case err == nil:
			owner, repo, ok = ExtractURL(info.Repository, info.Homepage)
		case !stderrors.Is(err, integrations.ErrNotFound):
			return "", false, err
		}
	}
	if !ok || ValidateRepoRef(owner, repo) != nil {
		return "", false, nil
	}

	lic, err := c.License(ctx, owner, repo)
	if err != nil {
		return "", false, err
	}
	if !lic.Found {
		return "", false, nil
	}
	return lic.Text, true, nil
}

// ExtractURL returns owner and repository of the first GitHub URL among
// candidates.
func ExtractURL(candidates ...string) (owner, repo string, ok bool) {
	return integrations.ExtractRepoURL(repoURLPattern, candidates...)
}

func value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
