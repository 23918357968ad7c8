package search

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

// FilterEndpoint returns the requests whose endpoint matches the doublestar
// glob pattern (e.g. "/webhooks/**"). Order is preserved.
func FilterEndpoint(requests []*api.CapturedRequest, pattern string) ([]*api.CapturedRequest, error) {
	if pattern == "" {
		return requests, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid endpoint pattern %q", pattern)
	}

	matched := make([]*api.CapturedRequest, 0, len(requests))
	for _, r := range requests {
		ok, err := doublestar.Match(pattern, r.Endpoint)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// Predicate is a compiled boolean expression evaluated per captured request.
type Predicate struct {
	program *vm.Program
}

// requestEnv is the expression environment for one request.
type requestEnv struct {
	Method      string         `expr:"method"`
	Endpoint    string         `expr:"endpoint"`
	IP          string         `expr:"ip"`
	Timestamp   time.Time      `expr:"timestamp"`
	Headers     map[string]any `expr:"headers"`
	Query       map[string]any `expr:"query"`
	Payload     any            `expr:"payload"`
	PayloadType string         `expr:"payload_type"`
}

// CompilePredicate compiles a boolean expression over request fields, e.g.
// `method == "POST" && payload_type == "json"`.
func CompilePredicate(src string) (*Predicate, error) {
	program, err := expr.Compile(src, expr.Env(requestEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	return &Predicate{program: program}, nil
}

// Filter returns the requests for which the predicate evaluates true,
// preserving order. Evaluation errors on individual requests exclude the
// request rather than aborting the whole pass.
func (p *Predicate) Filter(requests []*api.CapturedRequest) []*api.CapturedRequest {
	matched := make([]*api.CapturedRequest, 0, len(requests))
	for _, r := range requests {
		env := requestEnv{
			Method:      r.Method,
			Endpoint:    r.Endpoint,
			IP:          r.IP,
			Timestamp:   r.Timestamp,
			Headers:     r.Headers,
			Query:       r.Query,
			Payload:     r.Payload,
			PayloadType: r.PayloadType,
		}
		out, err := expr.Run(p.program, env)
		if err != nil {
			continue
		}
		if ok, _ := out.(bool); ok {
			matched = append(matched, r)
		}
	}
	return matched
}
