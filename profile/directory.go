// Package profile enriches session context from an external profile
// directory. A lookup searches the directory by name, then pulls up to
// three independent views of the matched person and flattens them into
// plan-usable fields.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// View names served by the profile directory.
const (
	// ViewClinical is the clinical record view.
	ViewClinical = "clinical"

	// ViewSystem is the system/demographic record view.
	ViewSystem = "system"

	// ViewCoverage is the coverage/health-plan record view.
	ViewCoverage = "coverage"
)

// ErrViewNotFound is returned when a directory has no record for the
// requested view of an identifier.
var ErrViewNotFound = errors.New("profile view not found")

// Directory abstracts the external profile directory service.
type Directory interface {
	// Search returns canonical identifiers matching a name or identifier.
	// An empty result is not an error.
	Search(ctx context.Context, query string) ([]string, error)

	// FetchView returns one view of a person's record.
	// Returns ErrViewNotFound when the view has no record.
	FetchView(ctx context.Context, identifier, view string) (map[string]any, error)
}

// HTTPDirectory talks to a profile directory over HTTP.
//
//	GET {base}/search?q={query}        -> {"matches": ["id", ...]}
//	GET {base}/profiles/{id}/{view}    -> view record JSON
type HTTPDirectory struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPDirectoryOption configures an HTTPDirectory.
type HTTPDirectoryOption func(*HTTPDirectory)

// WithDirectoryHTTPClient sets a custom HTTP client.
func WithDirectoryHTTPClient(c *http.Client) HTTPDirectoryOption {
	return func(d *HTTPDirectory) {
		d.httpClient = c
	}
}

// WithDirectoryTimeout sets the per-request timeout. Non-positive values
// keep the default.
func WithDirectoryTimeout(timeout time.Duration) HTTPDirectoryOption {
	return func(d *HTTPDirectory) {
		if timeout > 0 {
			d.httpClient.Timeout = timeout
		}
	}
}

// NewHTTPDirectory creates a directory client for the given base URL.
func NewHTTPDirectory(baseURL string, opts ...HTTPDirectoryOption) *HTTPDirectory {
	d := &HTTPDirectory{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Search queries the directory by name or identifier.
func (d *HTTPDirectory) Search(ctx context.Context, query string) ([]string, error) {
	u := fmt.Sprintf("%s/search?q=%s", d.baseURL, url.QueryEscape(query))

	body, err := d.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var result struct {
		Matches []string `json:"matches"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	return result.Matches, nil
}

// FetchView returns one view of a person's record.
func (d *HTTPDirectory) FetchView(ctx context.Context, identifier, view string) (map[string]any, error) {
	u := fmt.Sprintf("%s/profiles/%s/%s", d.baseURL, url.PathEscape(identifier), url.PathEscape(view))

	body, err := d.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var record map[string]any
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("parse %s view: %w", view, err)
	}

	return record, nil
}

func (d *HTTPDirectory) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrViewNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return body, nil
}
