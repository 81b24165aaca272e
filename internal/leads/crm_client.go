package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/lead-relay/internal/observability/metrics"
	"github.com/wolfman30/lead-relay/pkg/logging"
)

var crmTracer = otel.Tracer("leadrelay.internal.leads.crm")

const (
	// DefaultForwardTimeout bounds the single CRM attempt.
	DefaultForwardTimeout = 4 * time.Second

	maxCRMResponseBytes = 1 << 20
)

// Forward outcomes, used as metric labels.
const (
	forwardOK        = "ok"
	forwardRejected  = "rejected"
	forwardTransport = "transport"
)

// Forwarder delivers a validated lead upstream.
type Forwarder interface {
	Forward(ctx context.Context, lead Lead) ForwardResult
}

// CRMClient posts leads to the CRM endpoint. Every call is a single attempt
// over a fresh connection.
type CRMClient struct {
	url        string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.LeadMetrics
}

// CRMOption is a functional option for configuring the CRMClient.
type CRMOption func(*CRMClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) CRMOption {
	return func(c *CRMClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) CRMOption {
	return func(c *CRMClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records forward latency and outcomes.
func WithMetrics(m *metrics.LeadMetrics) CRMOption {
	return func(c *CRMClient) {
		c.metrics = m
	}
}

var _ Forwarder = (*CRMClient)(nil)

// NewCRMClient creates a client for crmURL. A non-positive timeout uses
// DefaultForwardTimeout.
func NewCRMClient(crmURL string, timeout time.Duration, opts ...CRMOption) *CRMClient {
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	c := &CRMClient{
		url:        crmURL,
		httpClient: newNonPooledClient(timeout),
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newNonPooledClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true
	transport.MaxIdleConns = 0
	transport.MaxIdleConnsPerHost = -1
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// Forward posts lead once and normalizes the outcome. It never returns an
// error: transport problems become a failed result with status 400.
func (c *CRMClient) Forward(ctx context.Context, lead Lead) ForwardResult {
	ctx, span := crmTracer.Start(ctx, "leads.crm.forward")
	defer span.End()
	span.SetAttributes(attribute.Int("leadrelay.lead.fields", len(lead)))

	start := time.Now()
	reply, err := c.post(ctx, lead)

	var result ForwardResult
	outcome := forwardOK
	switch {
	case err != nil:
		outcome = forwardTransport
		result = ForwardResult{
			HTTPStatus: http.StatusBadRequest,
			Reason:     err.Error(),
			EchoedLead: lead.Clone(),
		}
		span.RecordError(err)
		c.logger.Error("crm forward failed", "error", err, "fields", lead.Keys())
	default:
		result = reply.result()
		if !result.OK {
			outcome = forwardRejected
			result.EchoedLead = lead.Clone()
			c.logger.Warn("crm rejected lead",
				"code", result.HTTPStatus,
				"reason", result.Reason,
				"upstream_status", reply.statusCode,
			)
		}
	}

	c.metrics.ObserveForward(outcome, time.Since(start))
	span.SetAttributes(
		attribute.String("leadrelay.crm.outcome", outcome),
		attribute.Int("leadrelay.crm.code", result.HTTPStatus),
	)
	if !result.OK {
		span.SetStatus(codes.Error, result.Reason)
	}
	return result
}

func (c *CRMClient) post(ctx context.Context, lead Lead) (*crmReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(lead.Values().Encode()))
	if err != nil {
		return nil, fmt.Errorf("crm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Close = true

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCRMResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("crm: read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w (status %d)", ErrEmptyResponse, resp.StatusCode)
	}

	reply, err := parseCRMReply(body)
	if err != nil {
		return nil, fmt.Errorf("crm: decode response (status %d): %w", resp.StatusCode, err)
	}
	reply.statusCode = resp.StatusCode
	return reply, nil
}

// crmReply is the CRM's answer: {"result": bool, "code": int, "reason": string, "data": any}.
type crmReply struct {
	ok         bool
	code       int
	reason     string
	data       json.RawMessage
	statusCode int
}

var errNotObject = errors.New("body is not a JSON object")

func parseCRMReply(body []byte) (*crmReply, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errNotObject
	}
	reply := &crmReply{
		ok:     truthy(obj["result"]),
		reason: rawText(obj["reason"]),
	}
	if code, ok := rawInt(obj["code"]); ok {
		reply.code = code
	}
	if data, ok := obj["data"]; ok && !isJSONNull(data) {
		reply.data = data
	}
	return reply, nil
}

func (r *crmReply) result() ForwardResult {
	status := r.code
	if status < 200 || status > 599 {
		status = http.StatusOK
		if !r.ok {
			status = http.StatusBadRequest
		}
	}
	return ForwardResult{
		OK:         r.ok,
		HTTPStatus: status,
		Reason:     r.reason,
		Data:       r.data,
	}
}

// truthy follows the CRM's loose typing: true, non-zero numbers and the
// strings "true"/"1" all count as accepted.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		switch strings.TrimSpace(val) {
		case "true", "1":
			return true
		}
		return false
	}
	return false
}

func rawInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 || isJSONNull(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isJSONNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
