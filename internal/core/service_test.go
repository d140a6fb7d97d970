package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"envmon/internal/infra/kv/memory"
	"envmon/internal/kv"
	"envmon/pkg/domain"

	"github.com/google/go-cmp/cmp"
)

func TestCreateClientRejectsDuplicateTaxID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mustCreateClient(t, svc, "12345678")

	_, res, err := svc.CreateClient(ctx, Client{CompanyName: "Other", TaxID: "12345678"})
	var rv RuleViolationError
	if !errors.As(err, &rv) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if !res.HasBlocking() || res.Blocking()[0].Rule != "tax_id_unique" {
		t.Fatalf("expected tax_id_unique violation, got %+v", res.Violations)
	}
	clients, _ := svc.ListClients(ctx)
	if len(clients) != 1 {
		t.Fatalf("collection must still hold exactly one client, got %d", len(clients))
	}
}

func TestUpdateClientMayReuseTaxID(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	mustCreateClient(t, svc, "11111111")
	second := mustCreateClient(t, svc, "22222222")
	updated, _, err := svc.UpdateClient(ctx, second.ID, map[string]any{"taxId": "11111111"})
	if err != nil {
		t.Fatalf("update is not uniqueness checked: %v", err)
	}
	if updated.TaxID != "11111111" || updated.CompanyName != second.CompanyName {
		t.Fatalf("unexpected update result %+v", updated)
	}
}

func TestClientIDsAreMonotonic(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 1; i <= 3; i++ {
		c := mustCreateClient(t, svc, fmt.Sprintf("1000000%d", i))
		if want := fmt.Sprintf("CLIENT_%03d", i); c.ID != want {
			t.Fatalf("expected %s, got %s", want, c.ID)
		}
		if c.Status != domain.ClientStatusActive || !c.CreatedDate.Equal(testNow) {
			t.Fatalf("expected defaults applied, got %+v", c)
		}
	}
}

func TestProjectIDsResetPerYear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	client := mustCreateClient(t, svc, "12345678")
	first := mustCreateProject(t, svc, client.ID)
	if first.ID != "YOC25-001" {
		t.Fatalf("expected YOC25-001, got %s", first.ID)
	}
	if _, _, err := svc.CreateProject(ctx, Project{ID: "YOC24-009", ClientID: client.ID, ProjectName: "舊案"}); err != nil {
		t.Fatalf("create legacy project: %v", err)
	}
	next := mustCreateProject(t, svc, client.ID)
	if next.ID != "YOC25-002" {
		t.Fatalf("expected YOC25-002, got %s", next.ID)
	}
	if next.Status != domain.ProjectStatusQuoting {
		t.Fatalf("expected default quoting status, got %s", next.Status)
	}
}

func TestCreateProjectRequiresExistingClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	_, res, err := svc.CreateProject(ctx, Project{ClientID: "CLIENT_404", ProjectName: "孤兒"})
	if err == nil || !res.HasBlocking() || res.Blocking()[0].Rule != "client_reference" {
		t.Fatalf("expected client_reference block, got %v %+v", err, res)
	}
	projects, _ := svc.ListProjects(ctx)
	if len(projects) != 0 {
		t.Fatalf("blocked project must not be stored")
	}
}

func TestProjectCountMaintainedInTransaction(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	a := mustCreateClient(t, svc, "11111111")
	b := mustCreateClient(t, svc, "22222222")
	p1 := mustCreateProject(t, svc, a.ID)
	mustCreateProject(t, svc, a.ID)

	got, _ := svc.GetClient(ctx, a.ID)
	if got.ProjectCount != 2 {
		t.Fatalf("expected count 2, got %d", got.ProjectCount)
	}
	if _, _, err := svc.UpdateProject(ctx, p1.ID, map[string]any{"clientId": b.ID}); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	got, _ = svc.GetClient(ctx, a.ID)
	gotB, _ := svc.GetClient(ctx, b.ID)
	if got.ProjectCount != 1 || gotB.ProjectCount != 1 {
		t.Fatalf("expected counts 1/1, got %d/%d", got.ProjectCount, gotB.ProjectCount)
	}
	if _, err := svc.DeleteProject(ctx, p1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gotB, _ = svc.GetClient(ctx, b.ID)
	if gotB.ProjectCount != 0 {
		t.Fatalf("expected count 0 after delete, got %d", gotB.ProjectCount)
	}
}

func TestUpdateClientProjectCountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, adapter := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	mustCreateProject(t, svc, c.ID)

	// simulate drift from an imported store
	var clients []Client
	adapter.Get(ctx, kv.KeyClients, &clients)
	clients[0].ProjectCount = 7
	adapter.Put(ctx, kv.KeyClients, clients)

	first, _, err := svc.UpdateClientProjectCount(ctx, c.ID)
	if err != nil {
		t.Fatalf("recount: %v", err)
	}
	second, _, err := svc.UpdateClientProjectCount(ctx, c.ID)
	if err != nil {
		t.Fatalf("recount again: %v", err)
	}
	if first.ProjectCount != 1 || second.ProjectCount != first.ProjectCount {
		t.Fatalf("expected stable count 1, got %d then %d", first.ProjectCount, second.ProjectCount)
	}
	if _, _, err := svc.UpdateClientProjectCount(ctx, "CLIENT_999"); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	created := mustCreateProject(t, svc, c.ID,
		point("P001", "大廳", "CO2", "PM2.5"),
		point("P002", "會議室", "甲醛"),
	)
	got, err := svc.GetProject(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	gotClient, _ := svc.GetClient(ctx, c.ID)
	c.ProjectCount = 1
	if diff := cmp.Diff(c, gotClient); diff != "" {
		t.Fatalf("client round trip mismatch (-want +got):\n%s", diff)
	}

	// A plan whose points had every item cleared keeps empty, non-nil lists.
	cleared, _, err := svc.CreateProject(ctx, Project{
		ClientID:         c.ID,
		ProjectName:      "無項目專案",
		MonitoringDate:   "2025-08-01",
		MonitoringDays:   1,
		MonitoringType:   "室內空氣品質",
		MonitoringPoints: 1,
		MonitoringItems:  []string{},
		SamplingPoints:   []SamplingPoint{{ID: "P001", Name: "大廳", Type: domain.PointTypeIndoor, Items: []string{}}},
	})
	if err != nil {
		t.Fatalf("create cleared project: %v", err)
	}
	if cleared.MonitoringItems == nil {
		t.Fatalf("create returned nil monitoring items")
	}
	gotCleared, err := svc.GetProject(ctx, cleared.ID)
	if err != nil {
		t.Fatalf("get cleared: %v", err)
	}
	if diff := cmp.Diff(cleared, gotCleared); diff != "" {
		t.Fatalf("empty items round trip mismatch (-want +got):\n%s", diff)
	}
	if !reflect.DeepEqual(cleared, gotCleared) {
		t.Fatalf("empty items round trip not deep-equal: %+v vs %+v", cleared, gotCleared)
	}
}

func TestUpdateProjectIsShallowMerge(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	before := mustCreateProject(t, svc, c.ID, point("P001", "大廳", "CO2"))

	after, _, err := svc.UpdateProject(ctx, before.ID, map[string]any{"status": "已完成"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	want := before
	want.Status = domain.ProjectStatusCompleted
	if diff := cmp.Diff(want, after); diff != "" {
		t.Fatalf("merge changed other fields (-want +got):\n%s", diff)
	}
	if _, _, err := svc.UpdateProject(ctx, before.ID, map[string]any{"status": "unknown"}); !domain.IsValidationError(err) {
		t.Fatalf("expected validation error for bad status, got %v", err)
	}
	if _, _, err := svc.UpdateProject(ctx, before.ID, map[string]any{"createdDate": "2001-01-01T00:00:00Z", "id": "X"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetProject(ctx, before.ID)
	if !got.CreatedDate.Equal(before.CreatedDate) {
		t.Fatalf("createdDate must be immutable, got %s", got.CreatedDate)
	}
}

func TestReplaceProjectKeepsStatusProgressAndCreatedDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID, point("P001", "大廳", "CO2"))
	if _, _, err := svc.UpdateProject(ctx, p.ID, map[string]any{"status": "執行中", "progress": "採樣中"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	replacement := Project{ID: p.ID, ClientID: c.ID, ProjectName: "改名", MonitoringType: "噪音監測"}
	got, _, err := svc.ReplaceProject(ctx, replacement)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if got.ProjectName != "改名" || got.Status != domain.ProjectStatusInProgress || got.Progress != "採樣中" || !got.CreatedDate.Equal(p.CreatedDate) {
		t.Fatalf("unexpected replace result %+v", got)
	}
}

func TestSamplingRecordUpsert(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID, point("P001", "大廳", "CO2"), point("P002", "會議室", "CO2"))

	save := func(value string) bool {
		_, created, _, err := svc.SaveSamplingRecord(ctx, SamplingRecord{
			ProjectID: p.ID,
			PointID:   "P001",
			Data: domain.SamplingData{Items: map[string]domain.ItemMeasurement{
				"CO2": {Value: value, Unit: "ppm"},
			}},
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		return created
	}
	if !save("450") {
		t.Fatalf("first save must create")
	}
	if save("520") {
		t.Fatalf("second save must update")
	}
	records, _ := svc.SamplingRecords(ctx, p.ID)
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	r := records[0]
	if r.Data.Items["CO2"].Value != "520" || r.PointName != "大廳" || r.Status != domain.RecordStatusCompleted {
		t.Fatalf("unexpected record %+v", r)
	}
	status, err := svc.SamplingStatus(ctx, p.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status["P001"] != domain.RecordStatusCompleted || status["P002"] != domain.RecordStatusPending {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestSamplingRecordForUnknownPointIsBlocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID, point("P001", "大廳", "CO2"))
	_, _, res, err := svc.SaveSamplingRecord(ctx, SamplingRecord{ProjectID: p.ID, PointID: "P009"})
	if err == nil || res.Blocking()[0].Rule != "sampling_reference" {
		t.Fatalf("expected sampling_reference block, got %v", err)
	}
	if _, _, err := svc.AddQCSampleRecord(ctx, QCSampleRecord{ProjectID: "YOC00-000"}); err == nil {
		t.Fatalf("expected qc record for unknown project to be blocked")
	}
	if _, _, err := svc.AddCalibrationRecord(ctx, CalibrationRecord{InstrumentID: "INS-1"}); err != nil {
		t.Fatalf("calibration without project is allowed: %v", err)
	}
}

func TestDeleteClientBlockedWhileReferenced(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID)
	if _, err := svc.DeleteClient(ctx, c.ID); err == nil {
		t.Fatalf("expected client_in_use block")
	}
	if _, err := svc.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if _, err := svc.DeleteClient(ctx, c.ID); err != nil {
		t.Fatalf("delete unreferenced client: %v", err)
	}
	if _, err := svc.GetClient(ctx, c.ID); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDeleteProjectRemovesSamplingData(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID, point("P001", "大廳", "CO2"))
	if _, _, _, err := svc.SaveSamplingRecord(ctx, SamplingRecord{ProjectID: p.ID, PointID: "P001"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	records, _ := svc.SamplingRecords(ctx, p.ID)
	if len(records) != 0 {
		t.Fatalf("expected sampling records removed, got %d", len(records))
	}
}

func TestCatalogDuplicatesBlocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	chem := Chemical{Name: "甲醛", CASNumber: "50-00-0"}
	if _, _, err := svc.AddChemical(ctx, chem); err != nil {
		t.Fatalf("add chemical: %v", err)
	}
	if _, _, err := svc.AddChemical(ctx, chem); err == nil {
		t.Fatalf("expected duplicate CAS to be blocked")
	}
	found, _ := svc.SearchChemicals(ctx, "50-00")
	if len(found) != 1 {
		t.Fatalf("expected search hit, got %v", found)
	}
	if _, err := svc.DeleteChemical(ctx, "50-00-0"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.DeleteChemical(ctx, "50-00-0"); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	in := Instrument{ID: "INS-001", Model: "PGM-7340", PurchaseDate: "2024-11-30", CalibrationInterval: 3}
	created, _, err := svc.AddInstrument(ctx, in)
	if err != nil {
		t.Fatalf("add instrument: %v", err)
	}
	if created.NextCalibration != "2025-03-02" || created.Status != domain.InstrumentAvailable {
		t.Fatalf("unexpected derived fields %+v", created)
	}
	if _, _, err := svc.AddInstrument(ctx, in); err == nil {
		t.Fatalf("expected duplicate instrument to be blocked")
	}
}

func TestReportHistoryCapAndClear(t *testing.T) {
	ctx := context.Background()
	svc, adapter := newTestService(t)
	for i := 0; i < ReportHistoryLimit+5; i++ {
		if _, _, err := svc.AddReportHistory(ctx, ReportHistoryEntry{ID: fmt.Sprintf("report_%d", i), Name: "報表"}); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	entries, _ := svc.ListReportHistory(ctx)
	if len(entries) != ReportHistoryLimit {
		t.Fatalf("expected %d entries, got %d", ReportHistoryLimit, len(entries))
	}
	if entries[0].ID != fmt.Sprintf("report_%d", ReportHistoryLimit+4) {
		t.Fatalf("expected newest first, got %s", entries[0].ID)
	}
	if _, err := svc.DeleteReportHistory(ctx, entries[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetReportHistory(ctx, entries[0].ID); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ClearReportHistory(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if hasKey(t, adapter, kv.KeyReportHistory) {
		t.Fatalf("expected history key removed")
	}
}

func TestClientHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	p := mustCreateProject(t, svc, c.ID)
	if _, _, err := svc.UpdateProject(ctx, p.ID, map[string]any{"status": "已完成", "monitoringDate": "2025-08-01"}); err != nil {
		t.Fatalf("complete: %v", err)
	}
	events, err := svc.ClientHistory(ctx, c.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(events) != 3 || events[0].Description != "完成專案：廠區空氣監測" {
		t.Fatalf("unexpected history %+v", events)
	}
	if events[2].Description != "建立客戶資料" && events[1].Description != "建立客戶資料" {
		t.Fatalf("expected client creation event, got %+v", events)
	}
}

func TestValidateDataReportsOrphans(t *testing.T) {
	ctx := context.Background()
	svc, adapter := newTestService(t)
	adapter.Put(ctx, kv.KeyProjects, []Project{{ID: "YOC114-009", ClientID: "CLIENT_404"}})
	report, err := svc.ValidateData(ctx)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.IsValid || len(report.OrphanProjects) != 1 {
		t.Fatalf("expected one orphan, got %+v", report)
	}
}

func TestPersistFailureSurfacesErrPersist(t *testing.T) {
	adapter := kv.New(memory.New(memory.WithQuota(16)))
	svc := NewService(NewStore(adapter, NewDefaultRulesEngine()), WithClock(fixedClock()))
	_, _, err := svc.CreateClient(context.Background(), Client{CompanyName: "容量不足", TaxID: "12345678"})
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
}

func TestSearchClientsAndProjects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCreateClient(t, svc, "12345678")
	mustCreateClient(t, svc, "87654321")
	mustCreateProject(t, svc, c.ID)

	hits, _ := svc.SearchClients(ctx, "8765")
	if len(hits) != 1 || hits[0].TaxID != "87654321" {
		t.Fatalf("unexpected client hits %+v", hits)
	}
	projects, _ := svc.SearchProjects(ctx, "12345678", "")
	if len(projects) != 0 {
		t.Fatalf("tax id is not a project column, got %d", len(projects))
	}
	projects, _ = svc.SearchProjects(ctx, "測試", domain.ProjectStatusQuoting)
	if len(projects) != 1 {
		t.Fatalf("expected match on client name, got %d", len(projects))
	}
	projects, _ = svc.SearchProjects(ctx, "", domain.ProjectStatusCompleted)
	if len(projects) != 0 {
		t.Fatalf("expected status filter to exclude, got %d", len(projects))
	}
}
