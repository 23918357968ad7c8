// Package api defines the wire types exchanged with a Data Bucket capture
// server. All request/response shapes follow the server's snake_case JSON
// contract.
//
// This is a leaf package with no internal dependencies, allowing it to be
// imported by any package without creating import cycles.
package api

import (
	"strings"
	"time"
)

// Mock response body types a bucket can be configured with.
const (
	ResponseTypeJSON = "json"
	ResponseTypeXML  = "xml"
	ResponseTypeText = "text"
)

// Payload types a captured request can carry.
const (
	PayloadJSON      = "json"
	PayloadXML       = "xml"
	PayloadForm      = "form-urlencoded"
	PayloadMultipart = "multipart-form-data"
	PayloadText      = "text"
	PayloadBinary    = "binary"
)

// ValidResponseType reports whether t is a supported mock response type.
func ValidResponseType(t string) bool {
	switch t {
	case ResponseTypeJSON, ResponseTypeXML, ResponseTypeText:
		return true
	}
	return false
}

// Bucket is a named, server-owned container that accumulates captured
// requests and holds a configurable mock response.
//
// ID is server-assigned and opaque; in the bucket list response buckets
// arrive keyed by ID, so the field itself may be empty on the wire.
// RequestCount is server-authoritative and never incremented locally.
type Bucket struct {
	ID               string            `json:"id,omitempty"`
	Name             string            `json:"name"`
	MockResponse     any               `json:"mock_response,omitempty"`
	MockResponseType string            `json:"mock_response_type,omitempty"`
	MockHeaders      map[string]string `json:"mock_headers,omitempty"`
	MockStatusCode   int               `json:"mock_status_code,omitempty"`
	CreatedAt        *time.Time        `json:"created_at,omitempty"`
	RequestCount     int               `json:"request_count,omitempty"`
	MaxRequests      *int              `json:"max_requests,omitempty"` // nil = unlimited
	LastRequestAt    *time.Time        `json:"last_request_at,omitempty"`
}

// CapturedRequest is an immutable record of one inbound HTTP request observed
// by a bucket's capture endpoint. Requests have no server-side identity; the
// ordinal position in the bucket's append-only log is the only addressing
// scheme.
//
// Header and query values are usually strings but the server passes through
// whatever shape it captured, so both maps are value-typed as any. Payload is
// a tagged union keyed by PayloadType: parsed JSON for "json",
// "form-urlencoded" and "multipart-form-data" (maps), a raw string otherwise.
type CapturedRequest struct {
	Method      string         `json:"method"`
	Endpoint    string         `json:"endpoint"`
	IP          string         `json:"ip"`
	Timestamp   time.Time      `json:"timestamp"`
	Headers     map[string]any `json:"headers,omitempty"`
	Query       map[string]any `json:"query,omitempty"`
	Payload     any            `json:"payload,omitempty"`
	PayloadType string         `json:"payload_type,omitempty"`
}

// PingResponse is the body of GET /api/v1/ping.
type PingResponse struct {
	Status string `json:"status"`
}

// Ready reports whether the probe response signals a ready server.
func (p *PingResponse) Ready() bool {
	return p.Status == "ok"
}

// AuthResponse is the body of POST /api/v1/auth.
type AuthResponse struct {
	Authenticated     bool   `json:"authenticated"`
	Blacklisted       bool   `json:"blacklisted,omitempty"`
	Error             string `json:"error,omitempty"`
	RemainingAttempts *int   `json:"remaining_attempts,omitempty"`
}

// BucketsResponse is the body of GET /api/v1/buckets. Buckets arrive keyed by
// server-assigned ID; insertion order carries no meaning.
type BucketsResponse struct {
	Buckets map[string]*Bucket `json:"buckets"`
}

// CreateBucketResponse is the body of POST /api/v1/create_bucket.
type CreateBucketResponse struct {
	BucketID string `json:"bucket_id"`
}

// ErrorResponse is the generic error envelope the server returns on failures.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// CaptureURL returns the public endpoint callers send webhook traffic to for
// the given bucket. This is the URL the dashboard offers users to copy.
func CaptureURL(baseURL, bucketID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/v1/bucket_data/" + bucketID + "/data"
}
