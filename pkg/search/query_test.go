package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

func TestFilterEndpoint(t *testing.T) {
	requests := sampleRequests()

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"empty pattern is identity", "", []string{"/webhooks/github", "/webhooks/stripe", "/callbacks/payment"}},
		{"doublestar prefix", "/webhooks/**", []string{"/webhooks/github", "/webhooks/stripe"}},
		{"single segment", "/*/payment", []string{"/callbacks/payment"}},
		{"exact", "/webhooks/stripe", []string{"/webhooks/stripe"}},
		{"no match", "/admin/**", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterEndpoint(requests, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, endpoints(got))
		})
	}
}

func TestFilterEndpoint_InvalidPattern(t *testing.T) {
	_, err := FilterEndpoint(sampleRequests(), "/webhooks/[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endpoint pattern")
}

func TestCompilePredicate(t *testing.T) {
	p, err := CompilePredicate(`method == "POST" && payload_type == "json"`)
	require.NoError(t, err)

	got := p.Filter(sampleRequests())
	assert.Equal(t, []string{"/webhooks/github", "/callbacks/payment"}, endpoints(got))
}

func TestCompilePredicate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax error", `method == `},
		{"unknown field", `verb == "POST"`},
		{"not boolean", `endpoint`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompilePredicate(tt.src)
			assert.Error(t, err)
		})
	}
}

func TestPredicate_Fields(t *testing.T) {
	requests := []*api.CapturedRequest{
		{
			Method:      "POST",
			Endpoint:    "/hook",
			IP:          "10.0.0.1",
			Timestamp:   time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			Headers:     map[string]any{"X-Retry": "3"},
			Query:       map[string]any{"source": "github"},
			Payload:     map[string]any{"ok": true},
			PayloadType: api.PayloadJSON,
		},
		{
			Method:      "GET",
			Endpoint:    "/hook",
			IP:          "10.0.0.2",
			Timestamp:   time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC),
			PayloadType: api.PayloadText,
		},
	}

	tests := []struct {
		name string
		src  string
		want int
	}{
		{"ip", `ip == "10.0.0.2"`, 1},
		{"header lookup", `headers["X-Retry"] == "3"`, 1},
		{"query lookup", `query.source == "github"`, 1},
		{"payload lookup", `payload.ok == true`, 1},
		{"timestamp", `timestamp.Hour() < 12`, 1},
		{"endpoint prefix", `endpoint startsWith "/hook"`, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompilePredicate(tt.src)
			require.NoError(t, err)
			assert.Len(t, p.Filter(requests), tt.want)
		})
	}
}

func TestPredicate_EvalErrorExcludesRequest(t *testing.T) {
	// The second request has a nil payload; the field access fails for it
	// and only excludes that request.
	p, err := CompilePredicate(`payload.ok == true`)
	require.NoError(t, err)

	requests := []*api.CapturedRequest{
		{Method: "POST", Payload: map[string]any{"ok": true}},
		{Method: "GET"},
	}
	got := p.Filter(requests)
	require.Len(t, got, 1)
	assert.Equal(t, "POST", got[0].Method)
}
