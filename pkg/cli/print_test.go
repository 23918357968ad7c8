package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/search"
)

func capturedSequence() []*api.CapturedRequest {
	endpoints := []string{
		"/webhooks/github",
		"/webhooks/stripe",
		"/callbacks/payment",
		"/webhooks/stripe",
		"/healthz",
	}
	out := make([]*api.CapturedRequest, len(endpoints))
	for i, e := range endpoints {
		out[i] = &api.CapturedRequest{
			Method:    "POST",
			Endpoint:  e,
			IP:        "10.0.0.1",
			Timestamp: time.Date(2026, 8, 30, 12, 0, i, 0, time.UTC),
		}
	}
	return out
}

func TestRequestOrdinals_AddressUnfilteredSequence(t *testing.T) {
	all := capturedSequence()
	filtered := search.Filter(all, "stripe")
	require.Len(t, filtered, 2)

	// The listed position must index the synchronized sequence, so feeding
	// it back through --select lands on the same request.
	ordinals := requestOrdinals(filtered, all)
	assert.Equal(t, []int{1, 3}, ordinals)
	for i, ord := range ordinals {
		assert.Same(t, filtered[i], all[ord])
	}
}

func TestRequestOrdinals_IdentityWithoutFilter(t *testing.T) {
	all := capturedSequence()
	ordinals := requestOrdinals(all, all)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, ordinals)
}
