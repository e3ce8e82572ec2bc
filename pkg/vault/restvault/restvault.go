// Package restvault implements vault access against a local REST note
// server (an Obsidian-style local plugin API).
//
// All calls are pass-through HTTP: the server owns search, storage, and
// its own timeout/retry policy. The client adds only authentication and
// a client-side rate limit so bursts of scans don't overwhelm the
// plugin's single-threaded endpoint.
package restvault

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vaultmd/vaultmd/pkg/vault"
)

const (
	contentTypeMarkdown = "text/markdown"

	defaultTimeout = 30 * time.Second
)

// Client talks to the local REST note server.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) {
		if httpc != nil {
			c.httpc = httpc
		}
	}
}

// WithRateLimit caps outgoing requests at perSecond with the given
// burst. The default is unlimited.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger for request-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the server at baseURL, authenticating with
// apiKey as a bearer token.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: defaultTimeout},
		limiter: rate.NewLimiter(rate.Inf, 0),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// listing is the directory payload returned by the server. Entries
// ending in "/" are subdirectories.
type listing struct {
	Files []string `json:"files"`
}

// List walks the vault directory tree breadth-first, collecting every
// markdown note. A non-empty scope starts the walk at that subtree.
func (c *Client) List(ctx context.Context, scope string) ([]string, error) {
	var paths []string

	queue := []string{scope}

	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		entries, err := c.listDir(ctx, dir)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			full := entry
			if dir != "" {
				full = dir + "/" + entry
			}

			if strings.HasSuffix(entry, "/") {
				queue = append(queue, strings.TrimSuffix(full, "/"))

				continue
			}

			if strings.HasSuffix(entry, ".md") {
				paths = append(paths, full)
			}
		}
	}

	return paths, nil
}

func (c *Client) listDir(ctx context.Context, dir string) ([]string, error) {
	target := c.vaultURL("") // {base}/vault/
	if dir != "" {
		target = c.vaultURL(dir) + "/"
	}

	body, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", dir, err)
	}

	var payload listing

	if jerr := json.Unmarshal(body, &payload); jerr != nil {
		return nil, fmt.Errorf("listing %q: decoding response: %w: %v", dir, vault.ErrIO, jerr)
	}

	return payload.Files, nil
}

// Fetch returns the raw markdown content of one note.
func (c *Client) Fetch(ctx context.Context, notePath string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, c.vaultURL(notePath), nil, "")
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", notePath, err)
	}

	return body, nil
}

// Store replaces the content of one note.
func (c *Client) Store(ctx context.Context, notePath string, content []byte) error {
	_, err := c.do(ctx, http.MethodPut, c.vaultURL(notePath), content, contentTypeMarkdown)
	if err != nil {
		return fmt.Errorf("storing %q: %w", notePath, err)
	}

	return nil
}

// do performs one rate-limited, authenticated request and classifies
// the response status into vault error kinds.
func (c *Client) do(ctx context.Context, method, target string, payload []byte, contentType string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	req.Header.Set("Accept", contentTypeMarkdown+", application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrIO, err)
	}

	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("reading response: %w: %v", vault.ErrIO, readErr)
	}

	c.logger.Debug("request completed", "method", method, "url", target, "status", resp.StatusCode)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, vault.ErrNotFound
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	default:
		return nil, fmt.Errorf("%w: server returned %s", vault.ErrIO, resp.Status)
	}
}

// vaultURL builds {base}/vault/{escaped path}. Each path segment is
// escaped independently so slashes keep their meaning.
func (c *Client) vaultURL(notePath string) string {
	if notePath == "" {
		return c.baseURL + "/vault/"
	}

	segments := strings.Split(notePath, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return c.baseURL + "/vault/" + strings.Join(segments, "/")
}
