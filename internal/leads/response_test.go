package leads

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/lead-relay/pkg/logging"
)

func TestOutcomeResponse(t *testing.T) {
	tests := []struct {
		name       string
		outcome    Outcome
		wantStatus int
		want       ResponsePayload
	}{
		{
			name:       "nothing received",
			outcome:    Outcome{Err: ErrNothingReceived},
			wantStatus: http.StatusBadRequest,
			want:       ResponsePayload{Status: StatusFail, Reason: "nothing has been received"},
		},
		{
			name:       "body too large",
			outcome:    Outcome{Err: fmt.Errorf("wrapped: %w", ErrBodyTooLarge)},
			wantStatus: http.StatusRequestEntityTooLarge,
			want:       ResponsePayload{Status: StatusFail, Reason: "wrapped: " + ErrBodyTooLarge.Error()},
		},
		{
			name:       "validation failure is a 200",
			outcome:    Outcome{Verdict: Verdict{Field: FieldPhone, Reason: "phone is missing"}},
			wantStatus: http.StatusOK,
			want:       ResponsePayload{Status: StatusFail, Reason: "phone is missing"},
		},
		{
			name: "upstream rejection",
			outcome: Outcome{
				Verdict: Verdict{OK: true},
				Forward: ForwardResult{HTTPStatus: 422, Reason: "duplicate"},
			},
			wantStatus: 422,
			want: ResponsePayload{
				Status: StatusFail,
				Reason: "Error with code 422. Lead was not sent or saved because duplicate",
			},
		},
		{
			name: "forward status out of range",
			outcome: Outcome{
				Verdict: Verdict{OK: true},
				Forward: ForwardResult{HTTPStatus: 0, Reason: "boom"},
			},
			wantStatus: http.StatusBadRequest,
			want: ResponsePayload{
				Status: StatusFail,
				Reason: "Error with code 400. Lead was not sent or saved because boom",
			},
		},
		{
			name:       "success",
			outcome:    Outcome{Verdict: Verdict{OK: true}, Forward: ForwardResult{OK: true, HTTPStatus: 201}},
			wantStatus: http.StatusOK,
			want:       ResponsePayload{Status: StatusSuccess},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := tt.outcome.Response()
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestEmitterEmit_Success(t *testing.T) {
	rec := httptest.NewRecorder()

	NewEmitter(logging.New("error")).Emit(rec, Outcome{Verdict: Verdict{OK: true}, Forward: ForwardResult{OK: true}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"success","reason":""}`, rec.Body.String())
}

func TestEmitterEmit_DoesNotEscapeHTML(t *testing.T) {
	rec := httptest.NewRecorder()

	NewEmitter(logging.New("error")).Emit(rec, Outcome{Verdict: Verdict{Reason: "a <b> & c"}})

	assert.Equal(t, `{"status":"fail","reason":"a <b> & c"}`, rec.Body.String())
}

func TestEmitterEmit_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(logging.NewWithWriter("info", &buf))

	e.Emit(httptest.NewRecorder(), Outcome{Verdict: Verdict{OK: true}, Forward: ForwardResult{OK: true}})
	assert.Zero(t, buf.Len())

	e.Emit(httptest.NewRecorder(), Outcome{Err: ErrNothingReceived})
	assert.Contains(t, buf.String(), "lead was not sent")
	assert.Contains(t, buf.String(), "nothing has been received")
}

func TestEmitterEmit_EncodeFailure(t *testing.T) {
	e := NewEmitter(logging.New("error"))
	e.encode = func(any) ([]byte, error) { return nil, errors.New("unsupported value") }
	rec := httptest.NewRecorder()

	e.Emit(rec, Outcome{Verdict: Verdict{OK: true}, Forward: ForwardResult{OK: true}})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"fail","reason":"Internal Server Error"}`, rec.Body.String())
}

func TestEmitterProbe(t *testing.T) {
	rec := httptest.NewRecorder()

	NewEmitter(nil).Probe(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"code":200,"message":"OK"}`, rec.Body.String())
}
