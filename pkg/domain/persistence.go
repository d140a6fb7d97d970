package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope. Mutators receive a copy; changes are recorded and
// evaluated by the rules engine before commit.
type Transaction interface {
	Snapshot() TransactionView
	CreateClient(Client) (Client, error)
	UpdateClient(id string, mutator func(*Client) error) (Client, error)
	DeleteClient(id string) error
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	DeleteProject(id string) error
	RecountClient(id string) (Client, error)
	UpsertSamplingRecord(SamplingRecord) (SamplingRecord, bool, error)
	SetSamplingStatus(projectID, pointID string, status RecordStatus)
	AppendCalibrationRecord(CalibrationRecord) (CalibrationRecord, error)
	AppendQCSampleRecord(QCSampleRecord) (QCSampleRecord, error)
	CreateChemical(Chemical) (Chemical, error)
	DeleteChemical(casNumber string) error
	CreateInstrument(Instrument) (Instrument, error)
	PrependReport(entry ReportHistoryEntry, limit int) (ReportHistoryEntry, error)
	DeleteReport(id string) error
	ClearReports() error
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	FindSamplingRecord(projectID, pointID string) (SamplingRecord, bool)
	FindInstrument(id string) (Instrument, bool)
	FindReport(id string) (ReportHistoryEntry, bool)
	ListCalibrationRecords() []CalibrationRecord
	ListQCSampleRecords() []QCSampleRecord
	ListReports() []ReportHistoryEntry
	SamplingStatus() SamplingStatus
	SystemSettings() SystemSettings
}

// PersistentStore is the minimal abstraction used by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
