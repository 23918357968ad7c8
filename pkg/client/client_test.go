package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/ping", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	ping, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, ping.Ready())
}

func TestPing_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "starting"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	ping, err := c.Ping(context.Background())
	require.NoError(t, err)
	assert.False(t, ping.Ready())
}

func TestPing_ConnectionError(t *testing.T) {
	c := New("http://127.0.0.1:1", "", "", WithTimeout(500*time.Millisecond))
	_, err := c.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, 0, apiErr.StatusCode)
}

func TestBasicAuthHeader(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		wantAuth bool
	}{
		{"both set", "admin", "secret", true},
		{"username only", "admin", "", true},
		{"password only", "", "secret", true},
		{"anonymous", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotPass string
			var gotAuth bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, gotPass, gotAuth = r.BasicAuth()
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
			}))
			defer srv.Close()

			c := New(srv.URL, tt.username, tt.password)
			_, err := c.Ping(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantAuth, gotAuth)
			if tt.wantAuth {
				assert.Equal(t, tt.username, gotUser)
				assert.Equal(t, tt.password, gotPass)
			}
		})
	}
}

func TestAuthenticate_DenialBodyOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"authenticated":      false,
			"error":              "invalid credentials",
			"remaining_attempts": 2,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "wrong")
	auth, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.False(t, auth.Authenticated)
	assert.Equal(t, "invalid credentials", auth.Error)
	require.NotNil(t, auth.RemainingAttempts)
	assert.Equal(t, 2, *auth.RemainingAttempts)
}

func TestAuthenticate_Blacklisted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"authenticated": false,
			"blacklisted":   true,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "admin", "wrong")
	auth, err := c.Authenticate(context.Background())
	require.NoError(t, err)
	assert.False(t, auth.Authenticated)
	assert.True(t, auth.Blacklisted)
}

func TestListBuckets_BackfillsID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/buckets", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"buckets": map[string]any{
				"b1": map[string]any{"name": "orders"},
				"b2": map[string]any{"id": "b2", "name": "payments"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	buckets, err := c.ListBuckets(context.Background())
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "b1", buckets["b1"].ID)
	assert.Equal(t, "orders", buckets["b1"].Name)
	assert.Equal(t, "b2", buckets["b2"].ID)
}

func TestListBuckets_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	buckets, err := c.ListBuckets(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestCreateBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/create_bucket", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var b api.Bucket
		require.NoError(t, json.NewDecoder(r.Body).Decode(&b))
		assert.Equal(t, "orders", b.Name)

		_ = json.NewEncoder(w).Encode(map[string]string{"bucket_id": "b42"})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	id, err := c.CreateBucket(context.Background(), &api.Bucket{Name: "orders"})
	require.NoError(t, err)
	assert.Equal(t, "b42", id)
}

func TestCreateBucket_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	_, err := c.CreateBucket(context.Background(), &api.Bucket{Name: "orders"})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "missing_bucket_id", apiErr.ErrorCode)
}

func TestUpdateBucket_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v1/bucket/missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	err := c.UpdateBucket(context.Background(), "missing", &api.Bucket{Name: "x"})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.False(t, IsConnectionError(err))
}

func TestDeleteBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/bucket/b1/clean", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	require.NoError(t, c.DeleteBucket(context.Background(), "b1"))
}

func TestBucketData_NonDestructive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bucket_data/b1", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("cleanup"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"method": "POST", "endpoint": "/hook", "ip": "10.0.0.1", "timestamp": time.Now().UTC().Format(time.RFC3339)},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	requests, err := c.BucketData(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "POST", requests[0].Method)
	assert.Equal(t, "/hook", requests[0].Endpoint)
}

func TestClearBucketData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/bucket_data/b1", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "")
	require.NoError(t, c.ClearBucketData(context.Background(), "b1"))
}

func TestParseError_EnvelopeAndFallback(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{"structured envelope", 400, `{"error":"bad_request","message":"name required"}`, "bad_request", "name required"},
		{"error only", 400, `{"error":"name required"}`, "name required", "name required"},
		{"unstructured body", 500, `boom`, "unknown_error", "server returned status 500: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, "", "")
			_, err := c.ListBuckets(context.Background())
			require.Error(t, err)
			apiErr, ok := err.(*APIError)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
		})
	}
}

func TestBaseURL_TrimsTrailingSlash(t *testing.T) {
	c := New("http://example.com/", "", "")
	assert.Equal(t, "http://example.com", c.BaseURL())
}
