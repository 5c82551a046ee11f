package updatecheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JakeShirley/sentry-cli/internal/version"
)

// DefaultTimeout bounds a release lookup. An update check must never hold
// up the command that triggered it.
const DefaultTimeout = 2 * time.Second

const latestReleasePath = "/repos/getsentry/sentry-cli/releases/latest"

// Release is the subset of a GitHub release used by the update check.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// ReleaseClient fetches the latest sentry-cli release.
type ReleaseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewReleaseClient creates a client for the releases API at baseURL.
func NewReleaseClient(baseURL string, timeout time.Duration) *ReleaseClient {
	return &ReleaseClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest returns the newest published release.
func (c *ReleaseClient) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+latestReleasePath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release lookup returned status %d", resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("decoding release: %w", err)
	}
	if rel.TagName == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &rel, nil
}
