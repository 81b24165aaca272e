package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wolfman30/lead-relay/pkg/logging"
)

// internalErrorBody is written when the response payload itself cannot be
// encoded. It is the only path that answers 500.
const internalErrorBody = `{"status":"fail","reason":"Internal Server Error"}`

// Outcome is the terminal state of one pipeline run. Forward is consulted
// only when Err is nil and Verdict passed.
type Outcome struct {
	Err     error
	Verdict Verdict
	Forward ForwardResult
}

// Response maps the outcome to a status code and caller-facing payload.
func (o Outcome) Response() (int, ResponsePayload) {
	switch {
	case o.Err != nil:
		status := http.StatusBadRequest
		if errors.Is(o.Err, ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		return status, ResponsePayload{Status: StatusFail, Reason: o.Err.Error()}
	case !o.Verdict.OK:
		// validation failures are business results, not transport errors
		return http.StatusOK, ResponsePayload{Status: StatusFail, Reason: o.Verdict.Reason}
	case !o.Forward.OK:
		status := o.Forward.HTTPStatus
		if status < 200 || status > 599 {
			status = http.StatusBadRequest
		}
		reason := fmt.Sprintf("Error with code %d. Lead was not sent or saved because %s", status, o.Forward.Reason)
		return status, ResponsePayload{Status: StatusFail, Reason: reason}
	default:
		return http.StatusOK, ResponsePayload{Status: StatusSuccess}
	}
}

// Emitter writes pipeline results as JSON responses.
type Emitter struct {
	logger *logging.Logger
	encode func(v any) ([]byte, error)
}

func NewEmitter(logger *logging.Logger) *Emitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Emitter{logger: logger, encode: encodeJSON}
}

// Emit writes o's response. Failures are logged before they are sent.
func (e *Emitter) Emit(w http.ResponseWriter, o Outcome) {
	status, payload := o.Response()
	if payload.Status == StatusFail {
		e.logger.Warn("lead was not sent", "status", status, "reason", payload.Reason)
	}
	e.writeJSON(w, status, payload)
}

// Probe acknowledges a webhook liveness check.
func (e *Emitter) Probe(w http.ResponseWriter) {
	e.writeJSON(w, http.StatusOK, probeAck)
}

func (e *Emitter) writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := e.encode(payload)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		e.logger.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(internalErrorBody))
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// encodeJSON leaves HTML characters unescaped so reasons read as the CRM
// wrote them.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
