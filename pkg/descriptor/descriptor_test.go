package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
)

func existingBuckets() map[string]*api.Bucket {
	return map[string]*api.Bucket{
		"b1": {ID: "b1", Name: "orders"},
		"b2": {ID: "b2", Name: "payments"},
	}
}

func TestValidate_JSONBody(t *testing.T) {
	v := &Validator{}
	n, err := v.Validate("invoices", api.ResponseTypeJSON, `{"custom": 1}`, "201", existingBuckets(), "")
	require.NoError(t, err)

	assert.Equal(t, "invoices", n.Name)
	assert.Equal(t, api.ResponseTypeJSON, n.MockResponseType)
	assert.Equal(t, 201, n.MockStatusCode)
	assert.Equal(t, map[string]any{"custom": int64(1)}, n.MockResponse)

	b := n.Bucket()
	assert.Equal(t, "invoices", b.Name)
	assert.Equal(t, 201, b.MockStatusCode)
}

func TestValidate_RawBodyForXMLAndText(t *testing.T) {
	v := &Validator{}

	n, err := v.Validate("a", api.ResponseTypeXML, "<r>not parsed</r>", "200", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "<r>not parsed</r>", n.MockResponse)

	// Text bodies pass through even when they happen to look like JSON.
	n, err = v.Validate("b", api.ResponseTypeText, `{"not": "parsed"}`, "200", nil, "")
	require.NoError(t, err)
	assert.Equal(t, `{"not": "parsed"}`, n.MockResponse)
}

func TestValidate_NameRules(t *testing.T) {
	v := &Validator{}

	_, err := v.Validate("", api.ResponseTypeJSON, DefaultJSONBody, "200", nil, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = v.Validate("   ", api.ResponseTypeJSON, DefaultJSONBody, "200", nil, "")
	require.ErrorAs(t, err, &vErr)

	// Leading/trailing whitespace is trimmed, not rejected.
	n, err := v.Validate("  invoices  ", api.ResponseTypeJSON, DefaultJSONBody, "200", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "invoices", n.Name)
}

func TestValidate_DuplicateName(t *testing.T) {
	v := &Validator{}

	_, err := v.Validate("orders", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "")
	var dupErr *DuplicateNameError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "orders", dupErr.Name)

	// Editing b1 may keep its own name.
	_, err = v.Validate("orders", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "b1")
	require.NoError(t, err)

	// The exclusion covers only the edited bucket; renaming b2 onto b1's
	// name still collides.
	_, err = v.Validate("orders", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "b2")
	require.ErrorAs(t, err, &dupErr)
}

func TestValidate_Quota(t *testing.T) {
	v := &Validator{MaxBuckets: 2}

	_, err := v.Validate("invoices", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "")
	var quotaErr *QuotaError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 2, quotaErr.Limit)

	// Edits never hit the quota.
	_, err = v.Validate("renamed", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "b1")
	require.NoError(t, err)

	// The zero value imposes no quota.
	unlimited := &Validator{}
	_, err = unlimited.Validate("invoices", api.ResponseTypeJSON, DefaultJSONBody, "200", existingBuckets(), "")
	require.NoError(t, err)
}

func TestValidate_ResponseType(t *testing.T) {
	v := &Validator{}
	_, err := v.Validate("a", "yaml", "x", "200", nil, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "responseType", vErr.Field)
}

func TestValidate_StatusCode(t *testing.T) {
	v := &Validator{}

	_, err := v.Validate("a", api.ResponseTypeJSON, DefaultJSONBody, "abc", nil, "")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "statusCode", vErr.Field)

	_, err = v.Validate("a", api.ResponseTypeJSON, DefaultJSONBody, "", nil, "")
	require.ErrorAs(t, err, &vErr)

	// Out-of-range codes pass through; the server decides.
	n, err := v.Validate("a", api.ResponseTypeJSON, DefaultJSONBody, "999", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 999, n.MockStatusCode)

	n, err = v.Validate("b", api.ResponseTypeJSON, DefaultJSONBody, " 204 ", nil, "")
	require.NoError(t, err)
	assert.Equal(t, 204, n.MockStatusCode)
}

func TestValidate_InvalidJSON(t *testing.T) {
	v := &Validator{}
	_, err := v.Validate("a", api.ResponseTypeJSON, `{"broken":`, "200", nil, "")
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDefaultBodies(t *testing.T) {
	assert.Equal(t, DefaultJSONBody, DefaultBody(api.ResponseTypeJSON))
	assert.Equal(t, DefaultTextBody, DefaultBody(api.ResponseTypeText))
	assert.Equal(t, DefaultXMLBody, DefaultBody(api.ResponseTypeXML))

	assert.Contains(t, DefaultXMLBody, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, DefaultXMLBody, "<response>")
	assert.Contains(t, DefaultXMLBody, "<message>Success</message>")
}

func TestBodyForTypeSwitch(t *testing.T) {
	tests := []struct {
		name     string
		prevType string
		nextType string
		body     string
		want     string
	}{
		{"untouched json resets", api.ResponseTypeJSON, api.ResponseTypeXML, DefaultJSONBody, DefaultXMLBody},
		{"untouched xml resets", api.ResponseTypeXML, api.ResponseTypeText, DefaultXMLBody, DefaultTextBody},
		{"untouched text resets", api.ResponseTypeText, api.ResponseTypeJSON, DefaultTextBody, DefaultJSONBody},
		{"edited body survives", api.ResponseTypeJSON, api.ResponseTypeXML, `{"custom": 1}`, `{"custom": 1}`},
		{"same type keeps body", api.ResponseTypeJSON, api.ResponseTypeJSON, DefaultJSONBody, DefaultJSONBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BodyForTypeSwitch(tt.prevType, tt.nextType, tt.body))
		})
	}
}
