// Package service composes the catalog, identity, policy, refund, and audit
// components behind one facade with typed requests and results. Every
// operation classifies its failure, emits a decision-log entry, and is
// traced and measured.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/identity"
	"github.com/clearway-labs/refunddesk/pkg/observability"
	"github.com/clearway-labs/refunddesk/pkg/policy"
	"github.com/clearway-labs/refunddesk/pkg/refund"
)

const defaultAuditTimeout = 2 * time.Second

// Service is the decision-support facade the tool transport calls into.
type Service struct {
	catalog      catalog.Catalog
	verifier     *identity.Verifier
	engine       *policy.Engine
	executor     *refund.Executor
	sink         audit.Sink
	obs          *observability.Provider
	logger       *slog.Logger
	auditTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSink attaches the audit sink. Without one, decision logging is skipped.
func WithSink(sink audit.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithObservability attaches the tracing/metrics provider.
func WithObservability(obs *observability.Provider) Option {
	return func(s *Service) { s.obs = obs }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditTimeout bounds how long an operation waits on audit writes.
func WithAuditTimeout(d time.Duration) Option {
	return func(s *Service) { s.auditTimeout = d }
}

// New wires the facade over its collaborators.
func New(cat catalog.Catalog, verifier *identity.Verifier, engine *policy.Engine, executor *refund.Executor, opts ...Option) *Service {
	s := &Service{
		catalog:      cat,
		verifier:     verifier,
		engine:       engine,
		executor:     executor,
		logger:       slog.Default().With("component", "service"),
		auditTimeout: defaultAuditTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// track opens a span and RED metrics for one operation when observability is
// configured; the returned finish func is always safe to call.
func (s *Service) track(ctx context.Context, op, sessionID string) (context.Context, func(error)) {
	if s.obs == nil {
		return ctx, func(error) {}
	}
	return s.obs.TrackOperation(ctx, op,
		attribute.String("refunddesk.operation", op),
		attribute.String("refunddesk.session_id", sessionID),
	)
}

// AuditStatus reports a degraded decision-log write on an otherwise
// successful result. Callers should surface the warning to an operator.
type AuditStatus struct {
	AuditWarning string `json:"audit_warning,omitempty"`
}

// record writes a decision-log entry with a bounded timeout, detached from
// the caller's cancellation so audit writes survive request teardown. A
// failed write degrades to a warning carried on the operation result;
// callers that must fail on audit loss use recordStrict.
func (s *Service) record(ctx context.Context, d audit.Decision) AuditStatus {
	err := s.recordStrict(ctx, d)
	if err == nil {
		return AuditStatus{}
	}
	s.logger.WarnContext(ctx, "decision log write failed",
		"operation", d.Operation,
		"session_id", d.SessionID,
		"error", err,
	)
	return AuditStatus{AuditWarning: fmt.Sprintf("decision log write failed: %v", err)}
}

func (s *Service) recordStrict(ctx context.Context, d audit.Decision) error {
	if s.sink == nil {
		return nil
	}
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.auditTimeout)
	defer cancel()
	_, err := s.sink.LogDecision(auditCtx, d)
	return err
}

// outcomeFor summarizes an operation result for the decision log.
func outcomeFor(err error, extra map[string]any) map[string]any {
	out := map[string]any{"success": err == nil}
	if err != nil {
		out["failure_kind"] = string(KindOf(err))
		out["error"] = err.Error()
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
