package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"envmon/internal/kv"
	"envmon/pkg/domain"

	"github.com/google/uuid"
)

var _ domain.PersistentStore = (*Store)(nil)

// ErrPersist is returned when the persistence adapter rejects a write.
var ErrPersist = errors.New("persist failed")

// ReportHistoryLimit caps the number of retained report history entries.
const ReportHistoryLimit = 50

// Store is the entity repository. Each transaction loads the collections from
// the key/value adapter into a private state, applies the mutation, evaluates
// the rules and flushes only the dirty keys.
type Store struct {
	kv     *kv.Store
	engine *RulesEngine
	mu     sync.Mutex
}

// NewStore constructs a repository over the adapter. A nil engine evaluates no rules.
func NewStore(adapter *kv.Store, engine *RulesEngine) *Store {
	if engine == nil {
		engine = NewRulesEngine()
	}
	return &Store{kv: adapter, engine: engine}
}

// RulesEngine exposes the engine evaluated on commit.
func (s *Store) RulesEngine() *RulesEngine { return s.engine }

// KV exposes the underlying adapter.
func (s *Store) KV() *kv.Store { return s.kv }

type state struct {
	clients            []Client
	projects           []Project
	samplingRecords    []SamplingRecord
	chemicals          []Chemical
	instruments        []Instrument
	calibrationRecords []CalibrationRecord
	qcSampleRecords    []QCSampleRecord
	reports            []ReportHistoryEntry
	catalog            MonitoringCatalog
	settings           SystemSettings
	samplingStatus     domain.SamplingStatus
}

func (s *Store) load(ctx context.Context) state {
	var st state
	s.kv.Get(ctx, kv.KeyClients, &st.clients)
	s.kv.Get(ctx, kv.KeyProjects, &st.projects)
	s.kv.Get(ctx, kv.KeySamplingRecords, &st.samplingRecords)
	s.kv.Get(ctx, kv.KeyChemicals, &st.chemicals)
	s.kv.Get(ctx, kv.KeyInstruments, &st.instruments)
	s.kv.Get(ctx, kv.KeyCalibrationRecords, &st.calibrationRecords)
	s.kv.Get(ctx, kv.KeyQCSampleRecords, &st.qcSampleRecords)
	s.kv.Get(ctx, kv.KeyReportHistory, &st.reports)
	s.kv.Get(ctx, kv.KeyMonitoringItems, &st.catalog)
	s.kv.Get(ctx, kv.KeySystemSettings, &st.settings)
	s.kv.Get(ctx, kv.KeySamplingStatus, &st.samplingStatus)
	if st.catalog == nil {
		st.catalog = MonitoringCatalog{}
	}
	if st.samplingStatus == nil {
		st.samplingStatus = domain.SamplingStatus{}
	}
	return st
}

func (st *state) value(key string) any {
	switch key {
	case kv.KeyClients:
		return nonNil(st.clients)
	case kv.KeyProjects:
		return nonNil(st.projects)
	case kv.KeySamplingRecords:
		return nonNil(st.samplingRecords)
	case kv.KeyChemicals:
		return nonNil(st.chemicals)
	case kv.KeyInstruments:
		return nonNil(st.instruments)
	case kv.KeyCalibrationRecords:
		return nonNil(st.calibrationRecords)
	case kv.KeyQCSampleRecords:
		return nonNil(st.qcSampleRecords)
	case kv.KeyReportHistory:
		return nonNil(st.reports)
	case kv.KeySamplingStatus:
		return st.samplingStatus
	}
	return nil
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}

// RunInTransaction executes fn against a private copy of the stored state.
// Blocking rule violations abort the transaction and nothing is written.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state:   s.load(ctx),
		dirty:   make(map[string]struct{}),
		removed: make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}
	view := newTransactionView(&tx.state)
	result, err := s.engine.Evaluate(ctx, view, tx.changes)
	if err != nil {
		return Result{}, err
	}
	if result.HasBlocking() {
		return result, RuleViolationError{Result: result}
	}
	if err := s.flush(ctx, tx); err != nil {
		return result, err
	}
	return result, nil
}

func (s *Store) flush(ctx context.Context, tx *transaction) error {
	values := make(map[string]any, len(tx.dirty))
	for key := range tx.dirty {
		if _, gone := tx.removed[key]; gone {
			continue
		}
		values[key] = tx.state.value(key)
	}
	if !s.kv.PutMany(ctx, values) {
		return fmt.Errorf("write %d keys: %w", len(values), ErrPersist)
	}
	for key := range tx.removed {
		if !s.kv.Remove(ctx, key) {
			return fmt.Errorf("remove %s: %w", key, ErrPersist)
		}
	}
	return nil
}

// View executes fn with a read-only view of the stored state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.Lock()
	st := s.load(ctx)
	s.mu.Unlock()
	return fn(newTransactionView(&st))
}

type transaction struct {
	state   state
	changes []Change
	dirty   map[string]struct{}
	removed map[string]struct{}
}

func (tx *transaction) touch(keys ...string) {
	for _, k := range keys {
		tx.dirty[k] = struct{}{}
		delete(tx.removed, k)
	}
}

func (tx *transaction) record(change Change, keys ...string) {
	tx.changes = append(tx.changes, change)
	tx.touch(keys...)
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) clientIndex(id string) int {
	for i, c := range tx.state.clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (tx *transaction) projectIndex(id string) int {
	for i, p := range tx.state.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (tx *transaction) CreateClient(c Client) (Client, error) {
	if c.ID == "" {
		return Client{}, errors.New("client id required")
	}
	c.ProjectCount = tx.countProjects(c.ID)
	tx.state.clients = append(tx.state.clients, c)
	tx.record(Change{Entity: domain.EntityClient, Action: domain.ActionCreate, After: c}, kv.KeyClients)
	return c, nil
}

func (tx *transaction) UpdateClient(id string, mutator func(*Client) error) (Client, error) {
	idx := tx.clientIndex(id)
	if idx < 0 {
		return Client{}, ErrNotFound{Entity: domain.EntityClient, ID: id}
	}
	before := tx.state.clients[idx]
	updated := before
	if err := mutator(&updated); err != nil {
		return Client{}, err
	}
	updated.ID = before.ID
	if !before.CreatedDate.IsZero() {
		updated.CreatedDate = before.CreatedDate
	}
	updated.ProjectCount = tx.countProjects(id)
	tx.state.clients[idx] = updated
	tx.record(Change{Entity: domain.EntityClient, Action: domain.ActionUpdate, Before: before, After: updated}, kv.KeyClients)
	return updated, nil
}

func (tx *transaction) DeleteClient(id string) error {
	idx := tx.clientIndex(id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityClient, ID: id}
	}
	before := tx.state.clients[idx]
	tx.state.clients = append(tx.state.clients[:idx:idx], tx.state.clients[idx+1:]...)
	tx.record(Change{Entity: domain.EntityClient, Action: domain.ActionDelete, Before: before}, kv.KeyClients)
	return nil
}

func (tx *transaction) countProjects(clientID string) int {
	n := 0
	for _, p := range tx.state.projects {
		if p.ClientID == clientID {
			n++
		}
	}
	return n
}

// RecountClient stores the derived project count; unchanged counts are not rewritten.
func (tx *transaction) RecountClient(id string) (Client, error) {
	idx := tx.clientIndex(id)
	if idx < 0 {
		return Client{}, ErrNotFound{Entity: domain.EntityClient, ID: id}
	}
	before := tx.state.clients[idx]
	count := tx.countProjects(id)
	if before.ProjectCount == count {
		return before, nil
	}
	updated := before
	updated.ProjectCount = count
	tx.state.clients[idx] = updated
	tx.record(Change{Entity: domain.EntityClient, Action: domain.ActionUpdate, Before: before, After: updated}, kv.KeyClients)
	return updated, nil
}

func (tx *transaction) recountIfPresent(ids ...string) {
	for _, id := range ids {
		if tx.clientIndex(id) >= 0 {
			_, _ = tx.RecountClient(id)
		}
	}
}

func (tx *transaction) CreateProject(p Project) (Project, error) {
	if p.ID == "" {
		return Project{}, errors.New("project id required")
	}
	p = cloneProject(p)
	tx.state.projects = append(tx.state.projects, p)
	tx.record(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)}, kv.KeyProjects)
	tx.recountIfPresent(p.ClientID)
	return cloneProject(p), nil
}

func (tx *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	idx := tx.projectIndex(id)
	if idx < 0 {
		return Project{}, ErrNotFound{Entity: domain.EntityProject, ID: id}
	}
	before := cloneProject(tx.state.projects[idx])
	updated := cloneProject(before)
	if err := mutator(&updated); err != nil {
		return Project{}, err
	}
	updated.ID = before.ID
	if !before.CreatedDate.IsZero() {
		updated.CreatedDate = before.CreatedDate
	}
	tx.state.projects[idx] = cloneProject(updated)
	tx.record(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(updated)}, kv.KeyProjects)
	if before.ClientID != updated.ClientID {
		tx.recountIfPresent(before.ClientID, updated.ClientID)
	}
	return updated, nil
}

// DeleteProject removes the project together with its sampling records and
// point statuses. Calibration, QC and report history are kept.
func (tx *transaction) DeleteProject(id string) error {
	idx := tx.projectIndex(id)
	if idx < 0 {
		return ErrNotFound{Entity: domain.EntityProject, ID: id}
	}
	before := tx.state.projects[idx]
	tx.state.projects = append(tx.state.projects[:idx:idx], tx.state.projects[idx+1:]...)
	tx.record(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: before}, kv.KeyProjects)

	kept := tx.state.samplingRecords[:0:0]
	for _, r := range tx.state.samplingRecords {
		if r.ProjectID == id {
			tx.record(Change{Entity: domain.EntitySamplingRecord, Action: domain.ActionDelete, Before: r}, kv.KeySamplingRecords)
			continue
		}
		kept = append(kept, r)
	}
	tx.state.samplingRecords = kept
	if _, ok := tx.state.samplingStatus[id]; ok {
		delete(tx.state.samplingStatus, id)
		tx.touch(kv.KeySamplingStatus)
	}
	tx.recountIfPresent(before.ClientID)
	return nil
}

func (tx *transaction) UpsertSamplingRecord(r SamplingRecord) (SamplingRecord, bool, error) {
	if r.ProjectID == "" || r.PointID == "" {
		return SamplingRecord{}, false, errors.New("sampling record requires project and point")
	}
	r = cloneSamplingRecord(r)
	for i, existing := range tx.state.samplingRecords {
		if existing.ProjectID == r.ProjectID && existing.PointID == r.PointID {
			tx.state.samplingRecords[i] = r
			tx.record(Change{Entity: domain.EntitySamplingRecord, Action: domain.ActionUpdate, Before: existing, After: r}, kv.KeySamplingRecords)
			return cloneSamplingRecord(r), false, nil
		}
	}
	tx.state.samplingRecords = append(tx.state.samplingRecords, r)
	tx.record(Change{Entity: domain.EntitySamplingRecord, Action: domain.ActionCreate, After: r}, kv.KeySamplingRecords)
	return cloneSamplingRecord(r), true, nil
}

func (tx *transaction) SetSamplingStatus(projectID, pointID string, status domain.RecordStatus) {
	points, ok := tx.state.samplingStatus[projectID]
	if !ok {
		points = make(map[string]domain.RecordStatus)
		tx.state.samplingStatus[projectID] = points
	}
	points[pointID] = status
	tx.touch(kv.KeySamplingStatus)
}

func (tx *transaction) AppendCalibrationRecord(r CalibrationRecord) (CalibrationRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx.state.calibrationRecords = append(tx.state.calibrationRecords, r)
	tx.record(Change{Entity: domain.EntityCalibrationRecord, Action: domain.ActionCreate, After: r}, kv.KeyCalibrationRecords)
	return r, nil
}

func (tx *transaction) AppendQCSampleRecord(r QCSampleRecord) (QCSampleRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx.state.qcSampleRecords = append(tx.state.qcSampleRecords, r)
	tx.record(Change{Entity: domain.EntityQCSampleRecord, Action: domain.ActionCreate, After: r}, kv.KeyQCSampleRecords)
	return r, nil
}

func (tx *transaction) CreateChemical(c Chemical) (Chemical, error) {
	tx.state.chemicals = append(tx.state.chemicals, c)
	tx.record(Change{Entity: domain.EntityChemical, Action: domain.ActionCreate, After: c}, kv.KeyChemicals)
	return c, nil
}

func (tx *transaction) DeleteChemical(casNumber string) error {
	kept := tx.state.chemicals[:0:0]
	var removed bool
	for _, c := range tx.state.chemicals {
		if c.CASNumber == casNumber {
			removed = true
			tx.record(Change{Entity: domain.EntityChemical, Action: domain.ActionDelete, Before: c}, kv.KeyChemicals)
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return ErrNotFound{Entity: domain.EntityChemical, ID: casNumber}
	}
	tx.state.chemicals = kept
	return nil
}

func (tx *transaction) CreateInstrument(in Instrument) (Instrument, error) {
	if in.ID == "" {
		return Instrument{}, errors.New("instrument id required")
	}
	in.ApplicableItems = cloneStrings(in.ApplicableItems)
	tx.state.instruments = append(tx.state.instruments, in)
	tx.record(Change{Entity: domain.EntityInstrument, Action: domain.ActionCreate, After: in}, kv.KeyInstruments)
	return in, nil
}

func (tx *transaction) PrependReport(entry ReportHistoryEntry, limit int) (ReportHistoryEntry, error) {
	reports := append([]ReportHistoryEntry{entry}, tx.state.reports...)
	if limit > 0 && len(reports) > limit {
		reports = reports[:limit]
	}
	tx.state.reports = reports
	tx.record(Change{Entity: domain.EntityReport, Action: domain.ActionCreate, After: entry}, kv.KeyReportHistory)
	return entry, nil
}

func (tx *transaction) DeleteReport(id string) error {
	for i, r := range tx.state.reports {
		if r.ID == id {
			tx.state.reports = append(tx.state.reports[:i:i], tx.state.reports[i+1:]...)
			tx.record(Change{Entity: domain.EntityReport, Action: domain.ActionDelete, Before: r}, kv.KeyReportHistory)
			return nil
		}
	}
	return ErrNotFound{Entity: domain.EntityReport, ID: id}
}

// ClearReports drops the whole history key.
func (tx *transaction) ClearReports() error {
	tx.state.reports = nil
	delete(tx.dirty, kv.KeyReportHistory)
	tx.removed[kv.KeyReportHistory] = struct{}{}
	tx.changes = append(tx.changes, Change{Entity: domain.EntityReport, Action: domain.ActionDelete})
	return nil
}

type transactionView struct {
	state *state
}

func newTransactionView(st *state) TransactionView {
	return transactionView{state: st}
}

func (v transactionView) ListClients() []Client {
	return append([]Client{}, v.state.clients...)
}

func (v transactionView) ListProjects() []Project {
	out := make([]Project, 0, len(v.state.projects))
	for _, p := range v.state.projects {
		out = append(out, cloneProject(p))
	}
	return out
}

func (v transactionView) ListSamplingRecords() []SamplingRecord {
	out := make([]SamplingRecord, 0, len(v.state.samplingRecords))
	for _, r := range v.state.samplingRecords {
		out = append(out, cloneSamplingRecord(r))
	}
	return out
}

func (v transactionView) ListChemicals() []Chemical {
	return append([]Chemical{}, v.state.chemicals...)
}

func (v transactionView) ListInstruments() []Instrument {
	out := make([]Instrument, 0, len(v.state.instruments))
	for _, in := range v.state.instruments {
		in.ApplicableItems = cloneStrings(in.ApplicableItems)
		out = append(out, in)
	}
	return out
}

func (v transactionView) FindClient(id string) (Client, bool) {
	for _, c := range v.state.clients {
		if c.ID == id {
			return c, true
		}
	}
	return Client{}, false
}

func (v transactionView) FindProject(id string) (Project, bool) {
	for _, p := range v.state.projects {
		if p.ID == id {
			return cloneProject(p), true
		}
	}
	return Project{}, false
}

func (v transactionView) FindSamplingRecord(projectID, pointID string) (SamplingRecord, bool) {
	for _, r := range v.state.samplingRecords {
		if r.ProjectID == projectID && r.PointID == pointID {
			return cloneSamplingRecord(r), true
		}
	}
	return SamplingRecord{}, false
}

func (v transactionView) FindInstrument(id string) (Instrument, bool) {
	for _, in := range v.state.instruments {
		if in.ID == id {
			in.ApplicableItems = cloneStrings(in.ApplicableItems)
			return in, true
		}
	}
	return Instrument{}, false
}

func (v transactionView) FindReport(id string) (ReportHistoryEntry, bool) {
	for _, r := range v.state.reports {
		if r.ID == id {
			return r, true
		}
	}
	return ReportHistoryEntry{}, false
}

func (v transactionView) ListCalibrationRecords() []CalibrationRecord {
	return append([]CalibrationRecord{}, v.state.calibrationRecords...)
}

func (v transactionView) ListQCSampleRecords() []QCSampleRecord {
	return append([]QCSampleRecord{}, v.state.qcSampleRecords...)
}

func (v transactionView) ListReports() []ReportHistoryEntry {
	return append([]ReportHistoryEntry{}, v.state.reports...)
}

func (v transactionView) MonitoringCatalog() MonitoringCatalog {
	return cloneCatalog(v.state.catalog)
}

func (v transactionView) SamplingStatus() domain.SamplingStatus {
	out := make(domain.SamplingStatus, len(v.state.samplingStatus))
	for project, points := range v.state.samplingStatus {
		cp := make(map[string]domain.RecordStatus, len(points))
		for k, s := range points {
			cp[k] = s
		}
		out[project] = cp
	}
	return out
}

func (v transactionView) SystemSettings() SystemSettings {
	return v.state.settings
}

func cloneProject(p Project) Project {
	cp := p
	cp.MonitoringItems = cloneStrings(p.MonitoringItems)
	if p.SamplingPoints != nil {
		cp.SamplingPoints = make([]SamplingPoint, len(p.SamplingPoints))
		for i, pt := range p.SamplingPoints {
			pt.Items = cloneStrings(pt.Items)
			cp.SamplingPoints[i] = pt
		}
	}
	return cp
}

func cloneSamplingRecord(r SamplingRecord) SamplingRecord {
	cp := r
	if r.Data.Items != nil {
		cp.Data.Items = make(map[string]domain.ItemMeasurement, len(r.Data.Items))
		for k, m := range r.Data.Items {
			cp.Data.Items[k] = m
		}
	}
	return cp
}

func cloneCatalog(c MonitoringCatalog) MonitoringCatalog {
	out := make(MonitoringCatalog, len(c))
	for k, items := range c {
		out[k] = cloneStrings(items)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
