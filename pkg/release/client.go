package release

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// apiVersion is the REST API version header. Pinning the version keeps
// behavior consistent as the platform evolves the API.
const apiVersion = "2022-11-28"

// defaultBaseURL is the base URL for the public GitHub API.
const defaultBaseURL = "https://api.github.com"

var (
	ErrNoToken     = errors.New("no API token configured")
	ErrNoRepo      = errors.New("owner and repo are required")
	ErrInsecureURL = errors.New("API base URL must use HTTPS")
)

// Config holds configuration for creating a release API [Client].
type Config struct {
	// HTTPClient is used for all requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client
	// Logger is used for structured logging. Defaults to [slog.Default].
	Logger *slog.Logger
	// BaseURL is the root URL for API requests. Defaults to the public
	// GitHub API. Must use HTTPS unless it points at a loopback host.
	BaseURL string
	// UploadURL is the root URL for asset uploads. Defaults to BaseURL.
	UploadURL string
	// Owner is the repository owner.
	Owner string
	// Repo is the repository name.
	Repo string
	// Token is the API token used for authentication.
	Token string
}

// Client is a typed release API client scoped to one repository.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	uploadURL  string
	owner      string
	repo       string
	token      string
}

// NewClient creates a release API client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, ErrNoRepo
	}

	if cfg.Token == "" {
		return nil, ErrNoToken
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	baseURL = strings.TrimRight(baseURL, "/")

	if err := checkSecureURL(baseURL); err != nil {
		return nil, err
	}

	uploadURL := strings.TrimRight(cfg.UploadURL, "/")
	if uploadURL == "" {
		uploadURL = baseURL
	} else if err := checkSecureURL(uploadURL); err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		uploadURL:  uploadURL,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		token:      cfg.Token,
	}, nil
}

// checkSecureURL enforces HTTPS for non-loopback endpoints. Plain HTTP
// is allowed only for local test servers.
func checkSecureURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", rawURL, err)
	}

	if u.Scheme == "https" {
		return nil
	}

	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return nil
	}

	return fmt.Errorf("%w: got %q", ErrInsecureURL, rawURL)
}

// ReleaseByTag fetches the release tagged tag. A missing release is
// reported as an [*APIError] satisfying [IsNotFound].
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	path := fmt.Sprintf("/repos/%s/%s/releases/tags/%s", c.owner, c.repo, url.PathEscape(tag))

	rel := &Release{}
	if err := c.get(ctx, path, rel); err != nil {
		return nil, err
	}

	return rel, nil
}

// CreateRelease creates a new tagged release. If the tag already has a
// release, the API responds 422 and the error satisfies [IsTagConflict];
// there is no update-in-place.
func (c *Client) CreateRelease(ctx context.Context, newRelease NewRelease) (*Release, error) {
	path := fmt.Sprintf("/repos/%s/%s/releases", c.owner, c.repo)

	rel := &Release{}
	if err := c.post(ctx, path, newRelease, rel); err != nil {
		return nil, err
	}

	c.logger.Info("created release",
		slog.String("tag", rel.TagName),
		slog.String("url", rel.HTMLURL),
	)

	return rel, nil
}

// UploadAsset attaches the contents of r to a release as a named asset.
func (c *Client) UploadAsset(
	ctx context.Context, releaseID int64, name, contentType string, r io.Reader, size int64,
) (*Asset, error) {
	uploadURL := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
		c.uploadURL, c.owner, c.repo, releaseID, url.QueryEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}

	req.ContentLength = size
	req.Header.Set("Content-Type", contentType)
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload asset %q: %w", name, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("err", err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	asset := &Asset{}
	if err := json.Unmarshal(body, asset); err != nil {
		return nil, fmt.Errorf("failed to decode asset: %w", err)
	}

	c.logger.Info("uploaded asset",
		slog.String("name", asset.Name),
		slog.Int64("size", asset.Size),
	)

	return asset, nil
}

// DeleteRelease removes a release by ID. The underlying tag is left in
// place. Used by cleanup tooling, never by the pipeline itself.
func (c *Client) DeleteRelease(ctx context.Context, releaseID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/releases/%d", c.owner, c.repo, releaseID)

	_, err := c.do(ctx, http.MethodDelete, path, nil)

	return err
}

// do executes an authenticated API request against the base URL and
// returns the raw response body. Non-2xx responses are returned as an
// [*APIError].
func (c *Client) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader

	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)

	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", slog.Any("err", err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, requestBody, result any) error {
	body, err := c.do(ctx, http.MethodPost, path, requestBody)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
