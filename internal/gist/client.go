// Package gist is a minimal GitHub gist REST client.
package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	apiVersion     = "2022-11-28"
	perPage        = 100
	maxPages       = 30
	maxErrorBody   = 64 << 10
)

// Client talks to the GitHub gists API with a personal access token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a gist client authenticated with token.
func NewClient(token string) *Client {
	return &Client{
		token:   token,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		userAgent: "cursync",
	}
}

// NewClientWithBaseURL creates a client pointing at a custom API base URL
// (GitHub Enterprise, or a test server).
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.httpClient.Timeout = d
	return c
}

// FindByDescription returns the first gist of the authenticated user whose
// description equals description, walking every page of the listing.
func (c *Client) FindByDescription(ctx context.Context, description string) (Gist, error) {
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("per_page", fmt.Sprint(perPage))
		q.Set("page", fmt.Sprint(page))

		var gists []Gist
		if err := c.do(ctx, "listing gists", http.MethodGet, "/gists?"+q.Encode(), nil, http.StatusOK, &gists); err != nil {
			return Gist{}, err
		}

		for _, g := range gists {
			if g.Description == description {
				return g, nil
			}
		}
		if len(gists) < perPage {
			break
		}
	}
	return Gist{}, fmt.Errorf("no gist described %q: %w", description, ErrNotFound)
}

// Get fetches a gist with file contents.
func (c *Client) Get(ctx context.Context, id string) (Gist, error) {
	var g Gist
	if err := c.do(ctx, "fetching gist", http.MethodGet, "/gists/"+url.PathEscape(id), nil, http.StatusOK, &g); err != nil {
		return Gist{}, err
	}
	return g, nil
}

// FileContent returns the content of filename inside g, following raw_url
// when the API truncated the inline content.
func (c *Client) FileContent(ctx context.Context, g Gist, filename string) (string, error) {
	f, ok := g.Files[filename]
	if !ok {
		return "", fmt.Errorf("file %s in gist %s: %w", filename, g.ID, ErrNotFound)
	}
	if !f.Truncated {
		return f.Content, nil
	}
	if f.RawURL == "" {
		return "", &TransportError{Op: "fetching raw file", Message: "truncated file without raw_url"}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.RawURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Op: "fetching raw file", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("fetching raw file", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Op: "fetching raw file", Err: err}
	}
	return string(data), nil
}

// Create creates a new secret gist holding a single file.
func (c *Client) Create(ctx context.Context, description, filename, content string) (Gist, error) {
	public := false
	body := writeRequest{
		Description: description,
		Public:      &public,
		Files:       map[string]fileContent{filename: {Content: content}},
	}

	var g Gist
	if err := c.do(ctx, "creating gist", http.MethodPost, "/gists", body, http.StatusCreated, &g); err != nil {
		return Gist{}, err
	}
	return g, nil
}

// Update replaces filename inside gist id with content. Other files of the
// gist are left alone.
func (c *Client) Update(ctx context.Context, id, description, filename, content string) (Gist, error) {
	body := writeRequest{
		Description: description,
		Files:       map[string]fileContent{filename: {Content: content}},
	}

	var g Gist
	if err := c.do(ctx, "updating gist", http.MethodPatch, "/gists/"+url.PathEscape(id), body, http.StatusOK, &g); err != nil {
		return Gist{}, err
	}
	return g, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, wantStatus int, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	if resp.StatusCode != wantStatus {
		return statusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
}

func statusError(op string, resp *http.Response) *TransportError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(data))
	var apiErr apiError
	if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: msg}
}
