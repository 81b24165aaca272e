package leads

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/lead-relay/internal/observability/metrics"
	"github.com/wolfman30/lead-relay/pkg/logging"
)

var leadsTracer = otel.Tracer("leadrelay.internal.leads")

// Entry points, used as metric labels.
const (
	EntrypointForm    = "form"
	EntrypointWebhook = "webhook"
)

// Terminal outcomes, used as metric labels.
const (
	outcomeProbe      = "probe"
	outcomeUnreadable = "unreadable"
	outcomeEmpty      = "empty"
	outcomeInvalid    = "invalid"
	outcomeRejected   = "rejected"
	outcomeForwarded  = "forwarded"
)

// Handler handles HTTP requests for leads
type Handler struct {
	validator *Validator
	forwarder Forwarder
	emitter   *Emitter
	defaults  Defaults
	metrics   *metrics.LeadMetrics
	logger    *logging.Logger
}

// NewHandler creates a new leads handler. defaults are applied on the
// webhook path only.
func NewHandler(forwarder Forwarder, validator *Validator, defaults Defaults, m *metrics.LeadMetrics, logger *logging.Logger) *Handler {
	if forwarder == nil {
		panic("leads: forwarder cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if validator == nil {
		validator = NewValidator(DefaultSchema(), logger)
	}
	return &Handler{
		validator: validator,
		forwarder: forwarder,
		emitter:   NewEmitter(logger),
		defaults:  defaults,
		metrics:   m,
		logger:    logger,
	}
}

// SubmitForm handles POST /leads/form requests from the browser form.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	ctx, span := leadsTracer.Start(r.Context(), "leads.form.submit")
	defer span.End()

	lead, err := DecodeRequest(r)
	if err != nil {
		h.logger.Error("failed to read form submission", "error", err)
		span.RecordError(err)
		h.finish(w, span, EntrypointForm, outcomeUnreadable, Outcome{Err: err})
		return
	}
	h.process(ctx, w, span, EntrypointForm, lead)
}

// Webhook handles POST /leads/webhook requests from form providers.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := leadsTracer.Start(r.Context(), "leads.webhook.receive")
	defer span.End()

	fields, err := DecodeRequest(r)
	if err != nil {
		h.logger.Error("failed to read webhook", "error", err)
		span.RecordError(err)
		h.finish(w, span, EntrypointWebhook, outcomeUnreadable, Outcome{Err: err})
		return
	}

	// Probes carry no business fields, so they are answered before the
	// empty-body check.
	if IsLivenessProbe(fields) {
		h.logger.Info("webhook liveness probe acknowledged")
		h.metrics.ObserveReceived(EntrypointWebhook, outcomeProbe)
		span.SetAttributes(attribute.String("leadrelay.lead.outcome", outcomeProbe))
		h.emitter.Probe(w)
		return
	}
	if len(fields) == 0 {
		h.finish(w, span, EntrypointWebhook, outcomeEmpty, Outcome{Err: ErrNothingReceived})
		return
	}

	h.process(ctx, w, span, EntrypointWebhook, fields.WithDefaults(h.defaults))
}

func (h *Handler) process(ctx context.Context, w http.ResponseWriter, span trace.Span, entrypoint string, lead Lead) {
	verdict := h.validator.Validate(lead)
	if !verdict.OK {
		h.metrics.ObserveValidationFailure(verdict.Field)
		h.finish(w, span, entrypoint, outcomeInvalid, Outcome{Verdict: verdict})
		return
	}

	result := h.forwarder.Forward(ctx, lead)
	outcome := outcomeForwarded
	if !result.OK {
		outcome = outcomeRejected
	} else {
		h.logger.Info("lead forwarded", "entrypoint", entrypoint, "code", result.HTTPStatus)
	}
	h.finish(w, span, entrypoint, outcome, Outcome{Verdict: verdict, Forward: result})
}

func (h *Handler) finish(w http.ResponseWriter, span trace.Span, entrypoint, outcome string, o Outcome) {
	h.metrics.ObserveReceived(entrypoint, outcome)
	span.SetAttributes(
		attribute.String("leadrelay.lead.entrypoint", entrypoint),
		attribute.String("leadrelay.lead.outcome", outcome),
	)
	h.emitter.Emit(w, o)
}
