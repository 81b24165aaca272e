package leads

import (
	"fmt"

	"github.com/wolfman30/lead-relay/pkg/logging"
)

// Validator checks leads against a fixed schema.
type Validator struct {
	schema Schema
	logger *logging.Logger
}

// NewValidator creates a validator for schema. A nil or empty schema falls
// back to DefaultSchema.
func NewValidator(schema Schema, logger *logging.Logger) *Validator {
	if len(schema) == 0 {
		schema = DefaultSchema()
	}
	if logger == nil {
		logger = logging.Default()
	}
	copied := make(Schema, len(schema))
	copy(copied, schema)
	return &Validator{schema: copied, logger: logger}
}

// Validate reports the first rule lead breaks, in schema order.
func (v *Validator) Validate(lead Lead) Verdict {
	for _, rule := range v.schema {
		value, present := lead[rule.Field]
		switch {
		case rule.Required && !present:
			return v.fail(rule.Field, fmt.Sprintf("%s is missing", rule.Field))
		case present && rule.MaxLength > 0 && len(value) > rule.MaxLength:
			return v.fail(rule.Field, fmt.Sprintf("%s has to be %d length max.", rule.Field, rule.MaxLength))
		}
	}
	return Verdict{OK: true}
}

func (v *Validator) fail(field, reason string) Verdict {
	v.logger.Warn("lead failed validation", "field", field, "reason", reason)
	return Verdict{Field: field, Reason: reason}
}
