package leads

import "net/http"

// probeValue is what form providers send in the test field when checking
// that a webhook endpoint is reachable.
const probeValue = "test"

// IsLivenessProbe reports whether fields are a provider's synthetic
// availability check rather than a real submission.
func IsLivenessProbe(fields Lead) bool {
	value, ok := fields[FieldTest]
	return ok && value == probeValue
}

// probeAck is the acknowledgement providers expect from a live endpoint.
var probeAck = ProbeResponse{Code: http.StatusOK, Message: "OK"}
