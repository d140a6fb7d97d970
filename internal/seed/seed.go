// Package seed installs the reference data set into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"envmon/internal/core"
	redisstore "envmon/internal/infra/kv/redis"
	"envmon/internal/kv"
	"envmon/pkg/domain"

	"github.com/bsm/redislock"
)

// LockKey guards concurrent seeding when the store is shared through Redis.
const LockKey = "envmon:seed"

const lockTTL = 30 * time.Second

// ErrLocked is returned when another process holds the seed lock.
var ErrLocked = errors.New("seed already running elsewhere")

// Report describes what a seeding run wrote.
type Report struct {
	Skipped        bool     `json:"skipped"`
	ClientsSeeded  bool     `json:"clientsSeeded"`
	ProjectsSeeded bool     `json:"projectsSeeded"`
	Created        []string `json:"created,omitempty"`
}

// Seeder writes the reference data set through the persistence adapter.
type Seeder struct {
	kv     *kv.Store
	svc    *core.Service
	locker *redislock.Client
	clock  core.Clock
	logger core.Logger
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(s *Seeder) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the clock stamping the system settings.
func WithClock(clock core.Clock) Option {
	return func(s *Seeder) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocker overrides the distributed lock client.
func WithLocker(locker *redislock.Client) Option {
	return func(s *Seeder) { s.locker = locker }
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// New builds a seeder over adapter. svc must be backed by the same adapter;
// it recomputes project counts after seeding. A Redis backend enables the
// seed lock automatically.
func New(adapter *kv.Store, svc *core.Service, opts ...Option) *Seeder {
	s := &Seeder{kv: adapter, svc: svc, clock: core.ClockFunc(nil), logger: nopLogger{}}
	if rs, ok := adapter.Backend().(*redisstore.Store); ok {
		s.locker = redislock.New(rs.Client())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeData seeds an uninitialised store. Once the initialised flag is
// set later calls are no-ops. Existing clients, projects and audit
// collections are never overwritten.
func (s *Seeder) InitializeData(ctx context.Context) (Report, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, LockKey, lockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.logger.Warn("could not obtain seed lock", "key", LockKey)
			return Report{}, ErrLocked
		}
		if err != nil {
			return Report{}, fmt.Errorf("obtain seed lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release seed lock", "error", err)
			}
		}()
	}

	var initialized bool
	if _, err := s.kv.Lookup(ctx, kv.KeyDataInitialized, &initialized); err != nil {
		return Report{}, fmt.Errorf("read initialized flag: %w", err)
	}
	if initialized {
		s.logger.Info("data already initialized, skipping")
		return Report{Skipped: true}, nil
	}

	report := Report{}
	var clients []domain.Client
	if _, err := s.kv.Lookup(ctx, kv.KeyClients, &clients); err != nil {
		return report, fmt.Errorf("read clients: %w", err)
	}
	if len(clients) == 0 {
		if err := s.put(ctx, kv.KeyClients, Clients()); err != nil {
			return report, err
		}
		report.ClientsSeeded = true
	}
	var projects []domain.Project
	if _, err := s.kv.Lookup(ctx, kv.KeyProjects, &projects); err != nil {
		return report, fmt.Errorf("read projects: %w", err)
	}
	if len(projects) == 0 {
		if err := s.put(ctx, kv.KeyProjects, Projects()); err != nil {
			return report, err
		}
		report.ProjectsSeeded = true
	}

	if err := s.put(ctx, kv.KeyMonitoringItems, MonitoringItems()); err != nil {
		return report, err
	}
	settings := domain.SystemSettings{CompanyName: CompanyName, Version: Version, LastUpdate: s.clock.Now()}
	if err := s.put(ctx, kv.KeySystemSettings, settings); err != nil {
		return report, err
	}

	empty := []struct {
		key   string
		value any
	}{
		{kv.KeySamplingRecords, []domain.SamplingRecord{}},
		{kv.KeyCalibrationRecords, []domain.CalibrationRecord{}},
		{kv.KeyQCSampleRecords, []domain.QCSampleRecord{}},
		{kv.KeyReportHistory, []domain.ReportHistoryEntry{}},
		{kv.KeySamplingStatus, domain.SamplingStatus{}},
	}
	for _, c := range empty {
		present, err := s.kv.Has(ctx, c.key)
		if err != nil {
			return report, fmt.Errorf("check %s: %w", c.key, err)
		}
		if present {
			continue
		}
		if err := s.put(ctx, c.key, c.value); err != nil {
			return report, err
		}
		report.Created = append(report.Created, c.key)
	}

	if _, err := s.svc.RefreshProjectCounts(ctx); err != nil {
		return report, fmt.Errorf("refresh project counts: %w", err)
	}
	if err := s.put(ctx, kv.KeyDataInitialized, true); err != nil {
		return report, err
	}
	s.logger.Info("data initialized", "clients_seeded", report.ClientsSeeded, "projects_seeded", report.ProjectsSeeded)
	return report, nil
}

// ValidateData reports projects whose client is missing.
func (s *Seeder) ValidateData(ctx context.Context) (core.ValidationReport, error) {
	return s.svc.ValidateData(ctx)
}

func (s *Seeder) put(ctx context.Context, key string, value any) error {
	if !s.kv.Put(ctx, key, value) {
		return fmt.Errorf("seed %s: %w", key, core.ErrPersist)
	}
	return nil
}
