// Package client implements the HTTP client for the Data Bucket capture
// server API (/api/v1). It covers the fixed contract only: probe, auth,
// bucket CRUD, and captured-request retrieval. Session orchestration lives in
// pkg/session; polling in pkg/registry and pkg/requestlog.
package client

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

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

const apiPrefix = "/api/v1"

// Client provides methods for communicating with a Data Bucket capture
// server. All methods take a context so callers can bound or abandon calls;
// an abandoned call's result is simply discarded by the caller.
type Client interface {
	// Ping performs the reachability probe.
	Ping(ctx context.Context) (*api.PingResponse, error)
	// Authenticate performs the authentication call. The server reports the
	// outcome in the body, so a decodable body is returned even on non-2xx
	// statuses.
	Authenticate(ctx context.Context) (*api.AuthResponse, error)
	// ListBuckets returns all buckets keyed by server-assigned ID.
	ListBuckets(ctx context.Context) (map[string]*api.Bucket, error)
	// CreateBucket creates a bucket and returns the server-assigned ID.
	CreateBucket(ctx context.Context, b *api.Bucket) (string, error)
	// UpdateBucket updates a bucket's mock configuration.
	UpdateBucket(ctx context.Context, id string, b *api.Bucket) error
	// DeleteBucket deletes a bucket and everything it captured.
	DeleteBucket(ctx context.Context, id string) error
	// BucketData returns the bucket's captured requests in arrival order.
	// The retrieval is non-destructive (cleanup=false).
	BucketData(ctx context.Context, id string) ([]*api.CapturedRequest, error)
	// ClearBucketData removes all captured requests from a bucket.
	ClearBucketData(ctx context.Context, id string) error
	// BaseURL returns the server base URL this client talks to.
	BaseURL() string
}

// APIError represents an error response from the capture server.
// StatusCode 0 means the request never reached the server.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsConnectionError reports whether the error is a transport-level failure
// rather than a server-issued error response.
func IsConnectionError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.ErrorCode == "connection_error"
}

// httpClient implements Client over net/http.
type httpClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// Option configures a capture server client.
type Option func(*httpClient)

// WithTimeout sets the HTTP timeout for the client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *httpClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.httpClient = hc
	}
}

// New creates a capture server client for the given base URL. Credentials may
// both be empty for anonymous servers; when at least one is set, every call
// carries a Basic authorization header.
func New(baseURL, username, password string, opts ...Option) Client {
	c := &httpClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) BaseURL() string {
	return c.baseURL
}

// Ping performs the reachability probe.
func (c *httpClient) Ping(ctx context.Context) (*api.PingResponse, error) {
	resp, err := c.get(ctx, "/ping")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var ping api.PingResponse
	if err := json.NewDecoder(resp.Body).Decode(&ping); err != nil {
		return nil, fmt.Errorf("failed to parse probe response: %w", err)
	}
	return &ping, nil
}

// Authenticate performs the authentication call.
func (c *httpClient) Authenticate(ctx context.Context) (*api.AuthResponse, error) {
	resp, err := c.post(ctx, "/auth", nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	// Denials arrive as a structured body on a non-2xx status. Prefer the
	// body over the status code; fall back to a status error when the body
	// is not the expected shape.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response: %w", err)
	}

	var auth api.AuthResponse
	if err := json.Unmarshal(body, &auth); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, c.errorFromBody(resp.StatusCode, body)
		}
		return nil, fmt.Errorf("failed to parse auth response: %w", err)
	}
	return &auth, nil
}

// ListBuckets returns all buckets keyed by server-assigned ID.
func (c *httpClient) ListBuckets(ctx context.Context) (map[string]*api.Bucket, error) {
	resp, err := c.get(ctx, "/buckets")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result api.BucketsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Buckets == nil {
		result.Buckets = map[string]*api.Bucket{}
	}
	for id, b := range result.Buckets {
		if b != nil && b.ID == "" {
			b.ID = id
		}
	}
	return result.Buckets, nil
}

// CreateBucket creates a bucket and returns the server-assigned ID.
func (c *httpClient) CreateBucket(ctx context.Context, b *api.Bucket) (string, error) {
	body, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode bucket: %w", err)
	}

	resp, err := c.post(ctx, "/create_bucket", body)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.parseError(resp)
	}

	var result api.CreateBucketResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if result.BucketID == "" {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "missing_bucket_id",
			Message:    "server did not return a bucket id",
		}
	}
	return result.BucketID, nil
}

// UpdateBucket updates a bucket's mock configuration.
func (c *httpClient) UpdateBucket(ctx context.Context, id string, b *api.Bucket) error {
	body, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode bucket: %w", err)
	}

	resp, err := c.put(ctx, "/bucket/"+url.PathEscape(id), body)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "not_found",
			Message:    fmt.Sprintf("bucket not found: %s", id),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// DeleteBucket deletes a bucket and everything it captured.
func (c *httpClient) DeleteBucket(ctx context.Context, id string) error {
	resp, err := c.delete(ctx, "/bucket/"+url.PathEscape(id)+"/clean")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return &APIError{
			StatusCode: resp.StatusCode,
			ErrorCode:  "not_found",
			Message:    fmt.Sprintf("bucket not found: %s", id),
		}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// BucketData returns the bucket's captured requests in arrival order.
func (c *httpClient) BucketData(ctx context.Context, id string) ([]*api.CapturedRequest, error) {
	resp, err := c.get(ctx, "/bucket_data/"+url.PathEscape(id)+"?cleanup=false")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var requests []*api.CapturedRequest
	if err := json.NewDecoder(resp.Body).Decode(&requests); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return requests, nil
}

// ClearBucketData removes all captured requests from a bucket.
func (c *httpClient) ClearBucketData(ctx context.Context, id string) error {
	resp, err := c.delete(ctx, "/bucket_data/"+url.PathEscape(id))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.parseError(resp)
	}
	return nil
}

// get performs an HTTP GET request.
func (c *httpClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

// post performs an HTTP POST request.
func (c *httpClient) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPost, path, body)
}

// put performs an HTTP PUT request.
func (c *httpClient) put(ctx context.Context, path string, body []byte) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodPut, path, body)
}

// delete performs an HTTP DELETE request.
func (c *httpClient) delete(ctx context.Context, path string) (*http.Response, error) {
	return c.doRequest(ctx, http.MethodDelete, path, nil)
}

// doRequest performs an HTTP request against the /api/v1 prefix.
func (c *httpClient) doRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	fullURL := c.baseURL + apiPrefix + path

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	// Anonymous sessions carry no authorization header at all.
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{
			StatusCode: 0,
			ErrorCode:  "connection_error",
			Message:    fmt.Sprintf("cannot connect to capture server at %s: %v", c.baseURL, err),
		}
	}
	return resp, nil
}

// parseError parses an error response from the server.
func (c *httpClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return c.errorFromBody(resp.StatusCode, body)
}

func (c *httpClient) errorFromBody(statusCode int, body []byte) error {
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		msg := errResp.Message
		if msg == "" {
			msg = errResp.Error
		}
		if msg != "" {
			return &APIError{
				StatusCode: statusCode,
				ErrorCode:  errResp.Error,
				Message:    msg,
			}
		}
	}

	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  "unknown_error",
		Message:    fmt.Sprintf("server returned status %d: %s", statusCode, strings.TrimSpace(string(body))),
	}
}
