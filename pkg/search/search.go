// Package search filters captured-request sequences client-side. Filter is a
// pure function over a snapshot; it never mutates its input and preserves
// arrival order. Heterogeneous payload shapes are compared through one
// canonical flattening rule rather than ad hoc type inspection.
package search

import (
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

// Filter returns the requests containing query as a case-insensitive
// substring in any searchable field: endpoint, method, IP, header keys and
// values, query-parameter keys and values, or the payload. An empty or
// all-whitespace query is the identity. Matching is OR-combined and
// short-circuits on the first hit; surviving requests keep their relative
// order.
func Filter(requests []*api.CapturedRequest, query string) []*api.CapturedRequest {
	if strings.TrimSpace(query) == "" {
		return requests
	}

	term := strings.ToLower(query)
	matched := make([]*api.CapturedRequest, 0, len(requests))
	for _, r := range requests {
		if matches(r, term) {
			matched = append(matched, r)
		}
	}
	return matched
}

func matches(r *api.CapturedRequest, term string) bool {
	if strings.Contains(strings.ToLower(r.Endpoint), term) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Method), term) {
		return true
	}
	if strings.Contains(strings.ToLower(r.IP), term) {
		return true
	}
	if matchesMap(r.Headers, term) {
		return true
	}
	if matchesMap(r.Query, term) {
		return true
	}
	// A request without a payload simply contributes no match opportunity.
	if r.Payload != nil && strings.Contains(strings.ToLower(Flatten(r.Payload)), term) {
		return true
	}
	return false
}

func matchesMap(m map[string]any, term string) bool {
	for key, value := range m {
		if strings.Contains(strings.ToLower(key), term) {
			return true
		}
		if strings.Contains(strings.ToLower(Flatten(value)), term) {
			return true
		}
	}
	return false
}

// Flatten renders any captured value as canonical text: scalars are
// stringified, structured values are serialized as JSON with sorted keys so
// the same data always flattens to the same bytes.
func Flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return oj.JSON(v, &oj.Options{Sort: true, OmitNil: true})
	}
}
