package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source fetches the current release descriptor from a remote endpoint.
type Source interface {
	Fetch(ctx context.Context) (*Descriptor, error)
}

// StatusError reports a non-2xx response from the descriptor endpoint.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}

// NewSource returns the source for kind: "json" for a fixed JSON
// document, "github" for a releases API endpoint.
func NewSource(kind, url string, timeout time.Duration) (Source, error) {
	switch kind {
	case "", "json":
		return NewJSONSource(url, timeout), nil
	case "github":
		return NewGitHubSource(url, timeout), nil
	default:
		return nil, fmt.Errorf("unknown update source %q", kind)
	}
}

// JSONSource reads a descriptor document published at a fixed URL.
type JSONSource struct {
	url    string
	client *http.Client
}

// NewJSONSource creates a JSON document source.
func NewJSONSource(url string, timeout time.Duration) *JSONSource {
	return &JSONSource{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads and parses the descriptor.
func (s *JSONSource) Fetch(ctx context.Context) (*Descriptor, error) {
	data, err := get(ctx, s.client, s.url, "application/json")
	if err != nil {
		return nil, err
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor JSON: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// get performs a GET and returns the body of a 2xx response.
func get(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "techmail-updater")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch descriptor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return data, nil
}

func trimVersionPrefix(tag string) string {
	return strings.TrimLeftFunc(tag, func(r rune) bool {
		return r < '0' || r > '9'
	})
}
