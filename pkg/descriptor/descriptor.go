// Package descriptor validates and normalizes the editable configuration of
// a bucket's mock response before it is submitted to the registry. All checks
// are local and pre-network; a failed validation blocks submission entirely.
package descriptor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

// ErrInvalidJSON is returned when a json-typed body does not parse.
var ErrInvalidJSON = errors.New("mock response body is not valid JSON")

// DuplicateNameError is returned when the candidate name belongs to another
// bucket in the local mapping.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a bucket named %q already exists", e.Name)
}

// QuotaError is returned when creating would exceed the client-side bucket
// quota. The server is still the final authority.
type QuotaError struct {
	Limit int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("bucket limit reached (%d per user)", e.Limit)
}

// ValidationError reports a field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default placeholder bodies per response type. A body still matching the
// previous type's placeholder counts as untouched when switching types.
const (
	DefaultJSONBody = `{"message": "Success"}`
	DefaultTextBody = "Success"
)

// DefaultXMLBody is the fixed placeholder XML document.
var DefaultXMLBody = buildDefaultXML()

func buildDefaultXML() string {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.CreateElement("response").CreateElement("message").SetText("Success")
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "<response><message>Success</message></response>"
	}
	return strings.TrimRight(out, "\n")
}

// DefaultBody returns the placeholder body for a response type.
func DefaultBody(responseType string) string {
	switch responseType {
	case api.ResponseTypeXML:
		return DefaultXMLBody
	case api.ResponseTypeText:
		return DefaultTextBody
	default:
		return DefaultJSONBody
	}
}

// BodyForTypeSwitch returns the body an editor should show after switching
// the response type. The body resets to the new type's placeholder only when
// it is still the untouched default of the previous type; a user edit is
// preserved across the switch.
func BodyForTypeSwitch(prevType, nextType, body string) string {
	if body == DefaultBody(prevType) {
		return DefaultBody(nextType)
	}
	return body
}

// Normalized is a validated descriptor ready for submission. MockResponse
// holds the parsed value for json bodies and the raw string for xml/text.
type Normalized struct {
	Name             string
	MockResponse     any
	MockResponseType string
	MockStatusCode   int
	MockHeaders      map[string]string // reserved, currently always empty
}

// Bucket converts the descriptor to its wire shape.
func (n *Normalized) Bucket() *api.Bucket {
	return &api.Bucket{
		Name:             n.Name,
		MockResponse:     n.MockResponse,
		MockResponseType: n.MockResponseType,
		MockHeaders:      n.MockHeaders,
		MockStatusCode:   n.MockStatusCode,
	}
}

// Validator applies the descriptor rules. The zero value imposes no quota.
type Validator struct {
	// MaxBuckets caps how many buckets a create may bring the local mapping
	// to; 0 means unlimited.
	MaxBuckets int
}

// Validate checks a candidate descriptor against the rules and the current
// local bucket mapping. editingID identifies the bucket being edited, or is
// empty for a create; the collision scan excludes exactly that bucket, so an
// edited bucket may keep its own name.
func (v *Validator) Validate(name, responseType, rawBody, statusCode string, existing map[string]*api.Bucket, editingID string) (*Normalized, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "bucket name is required"}
	}
	for id, b := range existing {
		if id != editingID && b != nil && b.Name == name {
			return nil, &DuplicateNameError{Name: name}
		}
	}
	if editingID == "" && v.MaxBuckets > 0 && len(existing) >= v.MaxBuckets {
		return nil, &QuotaError{Limit: v.MaxBuckets}
	}

	if !api.ValidResponseType(responseType) {
		return nil, &ValidationError{
			Field:   "responseType",
			Message: fmt.Sprintf("unsupported response type %q (want json, xml or text)", responseType),
		}
	}

	status, err := strconv.Atoi(strings.TrimSpace(statusCode))
	if err != nil {
		return nil, &ValidationError{
			Field:   "statusCode",
			Message: fmt.Sprintf("status code %q is not an integer", statusCode),
		}
	}
	// No range clamping: out-of-range codes pass through, the server decides.

	var body any = rawBody
	if responseType == api.ResponseTypeJSON {
		parsed, err := oj.ParseString(rawBody)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		body = parsed
	}

	return &Normalized{
		Name:             name,
		MockResponse:     body,
		MockResponseType: responseType,
		MockStatusCode:   status,
		MockHeaders:      map[string]string{},
	}, nil
}
