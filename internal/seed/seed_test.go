package seed

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"envmon/internal/core"
	"envmon/internal/infra/kv/memory"
	redisstore "envmon/internal/infra/kv/redis"
	"envmon/internal/kv"
	kvcore "envmon/internal/kv/core"
	"envmon/pkg/domain"

	"github.com/bsm/redislock"
	"github.com/google/go-cmp/cmp"
)

var seedNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newSeeder(t *testing.T) (*Seeder, *core.Service, *kv.Store) {
	t.Helper()
	adapter := kv.New(memory.New())
	clock := core.ClockFunc(func() time.Time { return seedNow })
	svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()), core.WithClock(clock))
	return New(adapter, svc, WithClock(clock)), svc, adapter
}

func TestInitializeDataSeedsEmptyStore(t *testing.T) {
	ctx := context.Background()
	s, svc, adapter := newSeeder(t)
	report, err := s.InitializeData(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.Skipped || !report.ClientsSeeded || !report.ProjectsSeeded {
		t.Fatalf("unexpected report %+v", report)
	}
	wantCreated := []string{
		kv.KeySamplingRecords,
		kv.KeyCalibrationRecords,
		kv.KeyQCSampleRecords,
		kv.KeyReportHistory,
		kv.KeySamplingStatus,
	}
	if diff := cmp.Diff(wantCreated, report.Created); diff != "" {
		t.Fatalf("created collections mismatch (-want +got):\n%s", diff)
	}
	for _, key := range wantCreated {
		if ok, err := adapter.Has(ctx, key); err != nil || !ok {
			t.Fatalf("audit collection %s not established: %v", key, err)
		}
	}
	var history []domain.ReportHistoryEntry
	if !adapter.Get(ctx, kv.KeyReportHistory, &history) || history == nil || len(history) != 0 {
		t.Fatalf("expected empty report history array, got %v", history)
	}
	clients, _ := svc.ListClients(ctx)
	projects, _ := svc.ListProjects(ctx)
	if len(clients) != 3 || len(projects) != 3 {
		t.Fatalf("expected 3 clients and 3 projects, got %d/%d", len(clients), len(projects))
	}
	for _, c := range clients {
		if c.ProjectCount != 1 {
			t.Fatalf("expected count 1 for %s, got %d", c.ID, c.ProjectCount)
		}
	}
	settings, _ := svc.SystemSettings(ctx)
	if settings.CompanyName != CompanyName || !settings.LastUpdate.Equal(seedNow) {
		t.Fatalf("unexpected settings %+v", settings)
	}
	catalog, _ := svc.MonitoringItems(ctx)
	if diff := cmp.Diff(MonitoringItems(), catalog); diff != "" {
		t.Fatalf("catalog mismatch (-want +got):\n%s", diff)
	}
	var flag bool
	if !adapter.Get(ctx, kv.KeyDataInitialized, &flag) || !flag {
		t.Fatalf("expected initialized flag")
	}
}

func TestInitializeDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, svc, adapter := newSeeder(t)
	if _, err := s.InitializeData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, _, err := svc.CreateClient(ctx, domain.Client{CompanyName: "新客戶", TaxID: "12345678"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	before := map[string]string{}
	keys, _ := adapter.Keys(ctx)
	for _, k := range keys {
		raw, _ := adapter.Backend().Load(ctx, k)
		before[k] = string(raw)
	}

	report, err := s.InitializeData(ctx)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if !report.Skipped {
		t.Fatalf("expected skip, got %+v", report)
	}
	for k, v := range before {
		raw, _ := adapter.Backend().Load(ctx, k)
		if string(raw) != v {
			t.Fatalf("key %s changed by second seed", k)
		}
	}
}

func TestInitializeDataKeepsExistingCollections(t *testing.T) {
	ctx := context.Background()
	s, svc, adapter := newSeeder(t)
	existing := []domain.CalibrationRecord{{ID: "cal-1", InstrumentID: "INS-001"}}
	adapter.Put(ctx, kv.KeyCalibrationRecords, existing)
	adapter.Put(ctx, kv.KeyClients, []domain.Client{{ID: "CLIENT_001", CompanyName: "既有客戶", TaxID: "99999999"}})

	report, err := s.InitializeData(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if report.ClientsSeeded || !report.ProjectsSeeded {
		t.Fatalf("expected only projects seeded, got %+v", report)
	}
	records, _ := svc.CalibrationRecords(ctx, "")
	if len(records) != 1 || records[0].ID != "cal-1" {
		t.Fatalf("calibration history must survive seeding, got %+v", records)
	}
	validation, err := s.ValidateData(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if validation.IsValid || len(validation.OrphanProjects) != 2 {
		t.Fatalf("expected projects of CLIENT_002 and CLIENT_003 orphaned, got %+v", validation)
	}
}

func TestSeededClientOwnsItsProject(t *testing.T) {
	ctx := context.Background()
	s, svc, _ := newSeeder(t)
	if _, err := s.InitializeData(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	projects, err := svc.GetProjectsByClientID(ctx, "CLIENT_002")
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "YOC114-002" {
		t.Fatalf("expected YOC114-002, got %+v", projects)
	}
	client, _ := svc.GetClient(ctx, "CLIENT_002")
	if client.ProjectCount != 1 {
		t.Fatalf("expected project count 1, got %d", client.ProjectCount)
	}
}

func TestSeedPersistFailure(t *testing.T) {
	adapter := kv.New(memory.New(memory.WithQuota(64)))
	svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()))
	if _, err := New(adapter, svc).InitializeData(context.Background()); err == nil {
		t.Fatalf("expected quota failure")
	}
	if ok, _ := adapter.Has(context.Background(), kv.KeyDataInitialized); ok {
		t.Fatalf("flag must not be set after a failed seed")
	}
}

// unreadable fails every Load of the keys in down.
type unreadable struct {
	kvcore.Backend
	down map[string]bool
}

var errBackendDown = errors.New("connection reset by peer")

func (b unreadable) Load(ctx context.Context, key string) ([]byte, error) {
	if b.down[key] {
		return nil, errBackendDown
	}
	return b.Backend.Load(ctx, key)
}

func TestSeedAbortsOnBackendReadFailure(t *testing.T) {
	ctx := context.Background()
	existingClients := []domain.Client{{ID: "CLIENT_001", CompanyName: "既有客戶", TaxID: "99999999"}}
	existingHistory := []domain.ReportHistoryEntry{{ID: "report_1", Name: "既有報表"}}

	for _, key := range []string{kv.KeyDataInitialized, kv.KeyClients, kv.KeyProjects, kv.KeyReportHistory} {
		t.Run(key, func(t *testing.T) {
			mem := memory.New()
			seedAdapter := kv.New(mem)
			seedAdapter.Put(ctx, kv.KeyClients, existingClients)
			seedAdapter.Put(ctx, kv.KeyReportHistory, existingHistory)

			adapter := kv.New(unreadable{Backend: mem, down: map[string]bool{key: true}})
			svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()))
			if _, err := New(adapter, svc).InitializeData(ctx); !errors.Is(err, errBackendDown) {
				t.Fatalf("expected backend error, got %v", err)
			}

			var clients []domain.Client
			if !seedAdapter.Get(ctx, kv.KeyClients, &clients) {
				t.Fatalf("clients vanished")
			}
			if diff := cmp.Diff(existingClients, clients); diff != "" {
				t.Fatalf("clients overwritten (-want +got):\n%s", diff)
			}
			var history []domain.ReportHistoryEntry
			if !seedAdapter.Get(ctx, kv.KeyReportHistory, &history) || len(history) != 1 {
				t.Fatalf("report history overwritten: %v", history)
			}
			if ok, _ := seedAdapter.Has(ctx, kv.KeyDataInitialized); ok {
				t.Fatalf("flag must not be set after a failed read")
			}
		})
	}
}

func TestSeedLockAgainstRedis(t *testing.T) {
	addr := os.Getenv("ENVMON_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ENVMON_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	backend, err := redisstore.Open(ctx, redisstore.Config{Addr: addr, Prefix: "envmon-seed-test:"})
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	adapter := kv.New(backend)
	svc := core.NewService(core.NewStore(adapter, core.NewDefaultRulesEngine()))
	s := New(adapter, svc)

	held, err := redislock.New(backend.Client()).Obtain(ctx, LockKey, time.Minute, nil)
	if err != nil {
		t.Fatalf("obtain: %v", err)
	}
	if _, err := s.InitializeData(ctx); err != ErrLocked {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	_ = held.Release(ctx)
}
