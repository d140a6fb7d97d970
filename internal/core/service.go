package core

import (
	"context"
	"time"

	"envmon/internal/infra/kv/memory"
	"envmon/internal/kv"
	"envmon/pkg/domain"
)

// Service exposes transactional operations over the entity repository. Every
// call is traced, timed and logged; mutations are also audited.
type Service struct {
	store   PersistentStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// Option configures a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
}

// WithClock overrides the time source used for identifiers and timestamps.
func WithClock(clock Clock) Option {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(o *serviceOptions) {
		if rec != nil {
			o.audit = rec
		}
	}
}

// NewService constructs a service backed by store.
func NewService(store PersistentStore, opts ...Option) *Service {
	o := serviceOptions{
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		audit:   noopAuditRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:   store,
		clock:   o.clock,
		logger:  o.logger,
		metrics: o.metrics,
		tracer:  o.tracer,
		audit:   o.audit,
	}
}

// NewInMemoryService creates a service over a fresh in-memory backend.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(NewStore(kv.New(memory.New()), engine), opts...)
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// Now returns the service clock reading.
func (s *Service) Now() time.Time { return s.clock.Now() }

type auditTarget struct {
	entity domain.EntityType
	action domain.Action
}

var auditOperations = map[string]auditTarget{
	"create_client":          {domain.EntityClient, domain.ActionCreate},
	"update_client":          {domain.EntityClient, domain.ActionUpdate},
	"delete_client":          {domain.EntityClient, domain.ActionDelete},
	"recount_client":         {domain.EntityClient, domain.ActionUpdate},
	"refresh_project_counts": {domain.EntityClient, domain.ActionUpdate},
	"create_project":         {domain.EntityProject, domain.ActionCreate},
	"update_project":         {domain.EntityProject, domain.ActionUpdate},
	"replace_project":        {domain.EntityProject, domain.ActionUpdate},
	"delete_project":         {domain.EntityProject, domain.ActionDelete},
	"save_sampling_record":   {domain.EntitySamplingRecord, domain.ActionUpdate},
	"add_calibration_record": {domain.EntityCalibrationRecord, domain.ActionCreate},
	"add_qc_sample_record":   {domain.EntityQCSampleRecord, domain.ActionCreate},
	"add_chemical":           {domain.EntityChemical, domain.ActionCreate},
	"delete_chemical":        {domain.EntityChemical, domain.ActionDelete},
	"add_instrument":         {domain.EntityInstrument, domain.ActionCreate},
	"add_report_history":     {domain.EntityReport, domain.ActionCreate},
	"delete_report_history":  {domain.EntityReport, domain.ActionDelete},
	"clear_report_history":   {domain.EntityReport, domain.ActionDelete},
}

// run executes a mutating operation. id reports the affected entity id once
// fn has run.
func (s *Service) run(ctx context.Context, op string, id func() string, fn func(Transaction) error) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	res, err := s.store.RunInTransaction(ctx, fn)
	duration := time.Since(start)
	s.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)

	entityID := ""
	if id != nil {
		entityID = id()
	}
	for _, v := range res.Violations {
		switch v.Severity {
		case domain.SeverityWarn:
			s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		case domain.SeverityLog:
			s.logger.Info("rule note", "operation", op, "rule", v.Rule, "entity_id", v.EntityID, "message", v.Message)
		}
	}
	if err != nil {
		s.logger.Error("operation failed", "operation", op, "entity_id", entityID, "error", err)
		s.recordAuditError(ctx, op, entityID, duration, err)
		return res, err
	}
	s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
	s.recordAuditSuccess(ctx, op, entityID, duration)
	return res, nil
}

// view executes a read-only operation.
func (s *Service) view(ctx context.Context, op string, fn func(TransactionView) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.metrics.Observe(ctx, op, err == nil, time.Since(start))
	span.End(err)
	if err != nil {
		s.logger.Error("read failed", "operation", op, "error", err)
	}
	return err
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	target, ok := auditOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    target.entity,
		Action:    target.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}

func errNotFound(entity domain.EntityType, id string) error {
	return ErrNotFound{Entity: entity, ID: id}
}
