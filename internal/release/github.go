package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// githubRelease is the subset of the releases API payload we read.
type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	ZipballURL  string    `json:"zipball_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// GitHubSource reads the latest release from a GitHub releases endpoint,
// e.g. https://api.github.com/repos/<owner>/<repo>/releases/latest.
type GitHubSource struct {
	url    string
	client *http.Client
}

// NewGitHubSource creates a releases API source.
func NewGitHubSource(url string, timeout time.Duration) *GitHubSource {
	return &GitHubSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the latest release and maps it onto a Descriptor.
// A .zip asset is preferred over the source zipball.
func (s *GitHubSource) Fetch(ctx context.Context) (*Descriptor, error) {
	data, err := get(ctx, s.client, s.url, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var rel githubRelease
	if err := json.Unmarshal(data, &rel); err != nil {
		return nil, fmt.Errorf("failed to parse release JSON: %w", err)
	}
	if rel.Draft {
		return nil, fmt.Errorf("latest release %q is a draft", rel.TagName)
	}

	d := &Descriptor{
		Name:        rel.Name,
		Version:     trimVersionPrefix(rel.TagName),
		DownloadURL: rel.ZipballURL,
		Homepage:    rel.HTMLURL,
	}
	for _, asset := range rel.Assets {
		if strings.HasSuffix(strings.ToLower(asset.Name), ".zip") {
			d.DownloadURL = asset.BrowserDownloadURL
			break
		}
	}
	if rel.Body != "" {
		d.Sections = map[string]string{"changelog": rel.Body}
	}
	if !rel.PublishedAt.IsZero() {
		d.LastUpdated = rel.PublishedAt.UTC().Format("2006-01-02")
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
