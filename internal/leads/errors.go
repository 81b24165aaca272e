package leads

import "errors"

var (
	// ErrNothingReceived is returned when a webhook request carries no fields
	ErrNothingReceived = errors.New("nothing has been received")

	// ErrEmptyResponse is returned when the CRM answers with an empty body
	ErrEmptyResponse = errors.New("crm: empty response body")

	// ErrBodyTooLarge is returned when an inbound body exceeds the read limit
	ErrBodyTooLarge = errors.New("request body too large")
)
