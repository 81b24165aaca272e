package leads

import (
	"encoding/json"
	"net/url"
	"sort"
)

// Field names the CRM understands.
const (
	FieldLeadID        = "lead_id"
	FieldIntegrationID = "integration_id"
	FieldPhone         = "phone"
	FieldName          = "name"
	FieldCity          = "city"
	FieldSituation     = "situation"
	FieldTest          = "test"
)

// Lead is a flat set of submitted form fields. All values are strings,
// whatever encoding the submission arrived in.
type Lead map[string]string

// Has reports whether field was submitted at all, even with an empty value.
func (l Lead) Has(field string) bool {
	_, ok := l[field]
	return ok
}

// Clone returns a shallow copy safe to mutate.
func (l Lead) Clone() Lead {
	out := make(Lead, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Values encodes the lead as form fields for the upstream POST.
func (l Lead) Values() url.Values {
	v := make(url.Values, len(l))
	for k, val := range l {
		v.Set(k, val)
	}
	return v
}

// Keys returns the submitted field names in sorted order, for logging.
func (l Lead) Keys() []string {
	keys := make([]string, 0, len(l))
	for k := range l {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Defaults are filled into webhook leads that omit the matching field.
// Empty values are never injected.
type Defaults struct {
	IntegrationID string
	City          string
	Situation     string
}

// WithDefaults returns a copy of l with absent fields filled from d.
func (l Lead) WithDefaults(d Defaults) Lead {
	out := l.Clone()
	fill := func(field, value string) {
		if value == "" || out.Has(field) {
			return
		}
		out[field] = value
	}
	fill(FieldIntegrationID, d.IntegrationID)
	fill(FieldCity, d.City)
	fill(FieldSituation, d.Situation)
	return out
}

// FieldRule constrains one schema field.
type FieldRule struct {
	Field     string
	Required  bool
	MaxLength int
}

// Schema is an ordered rule list. Order decides which violation is reported
// when a lead breaks several rules.
type Schema []FieldRule

// DefaultSchema returns the CRM's lead schema.
func DefaultSchema() Schema {
	return Schema{
		{Field: FieldLeadID, Required: false, MaxLength: 30},
		{Field: FieldIntegrationID, Required: true, MaxLength: 30},
		{Field: FieldPhone, Required: true, MaxLength: 30},
		{Field: FieldName, Required: false, MaxLength: 250},
		{Field: FieldCity, Required: true, MaxLength: 70},
		{Field: FieldSituation, Required: true, MaxLength: 3500},
		{Field: FieldTest, Required: false, MaxLength: 5},
	}
}

// Verdict is the result of validating one lead.
type Verdict struct {
	OK     bool
	Field  string
	Reason string
}

// ForwardResult is the normalized outcome of one CRM call.
type ForwardResult struct {
	OK         bool
	HTTPStatus int
	Reason     string
	Data       json.RawMessage
	// EchoedLead is set only on failure.
	EchoedLead Lead
}

// ResponsePayload is what callers of the lead endpoints receive.
type ResponsePayload struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// ProbeResponse acknowledges a webhook provider's liveness check.
type ProbeResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
