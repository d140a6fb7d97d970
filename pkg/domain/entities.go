// Package domain defines the monitoring entities, rule results and persistence
// contracts shared across envmon packages.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EntityType identifies the domain entity affected by a change.
type EntityType string

// Supported entity type identifiers used in Change records and violations.
const (
	EntityClient            EntityType = "client"
	EntityProject           EntityType = "project"
	EntitySamplingRecord    EntityType = "sampling_record"
	EntityChemical          EntityType = "chemical"
	EntityInstrument        EntityType = "instrument"
	EntityCalibrationRecord EntityType = "calibration_record"
	EntityQCSampleRecord    EntityType = "qc_sample_record"
	EntityReport            EntityType = "report"
)

// ClientStatus enumerates client lifecycle states. Values are the persisted labels.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "活躍"
	ClientStatusInactive ClientStatus = "停用"
)

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

const (
	ProjectStatusQuoting    ProjectStatus = "報價中"
	ProjectStatusInProgress ProjectStatus = "執行中"
	ProjectStatusCompleted  ProjectStatus = "已完成"
)

// Valid reports whether the status is one of the known project states.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusQuoting, ProjectStatusInProgress, ProjectStatusCompleted:
		return true
	}
	return false
}

// PointType classifies a sampling point location.
type PointType string

const (
	PointTypeIndoor     PointType = "室內點位"
	PointTypeOutdoor    PointType = "室外點位"
	PointTypeExhaust    PointType = "排放口"
	PointTypeBackground PointType = "背景點位"
)

// PointTypes lists the selectable point types in display order.
var PointTypes = []PointType{PointTypeIndoor, PointTypeOutdoor, PointTypeExhaust, PointTypeBackground}

// RecordStatus is the completion state of a sampling record.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "未開始"
	RecordStatusCompleted RecordStatus = "已完成"
)

// Client is a company commissioning monitoring work.
type Client struct {
	ID           string       `json:"id"`
	CompanyName  string       `json:"companyName"`
	TaxID        string       `json:"taxId"`
	ContactName  string       `json:"contactName"`
	ContactTitle string       `json:"contactTitle"`
	Phone        string       `json:"phone"`
	Email        string       `json:"email"`
	Address      string       `json:"address"`
	ProjectCount int          `json:"projectCount"`
	CreatedDate  time.Time    `json:"createdDate"`
	Status       ClientStatus `json:"status"`
}

// ShortName strips the corporate suffix used in selection lists.
func (c Client) ShortName() string {
	return strings.Replace(c.CompanyName, "股份有限公司", "", 1)
}

// Project is a monitoring engagement for one client.
type Project struct {
	ID                 string          `json:"id"`
	ClientID           string          `json:"clientId"`
	ProjectName        string          `json:"projectName"`
	MonitoringDate     string          `json:"monitoringDate"`
	MonitoringDays     int             `json:"monitoringDays"`
	FacilityAddress    string          `json:"facilityAddress"`
	ProjectDescription string          `json:"projectDescription"`
	Status             ProjectStatus   `json:"status"`
	Progress           string          `json:"progress"`
	CreatedDate        time.Time       `json:"createdDate"`
	MonitoringType     string          `json:"monitoringType"`
	MonitoringPoints   int             `json:"monitoringPoints"`
	MonitoringItems    []string        `json:"monitoringItems"`
	SamplingPoints     []SamplingPoint `json:"samplingPoints"`
}

// DateLayout is the calendar date format used by monitoring and sampling dates.
const DateLayout = "2006-01-02"

// MonitoringDay parses the monitoring date in the local calendar.
func (p Project) MonitoringDay() (time.Time, error) {
	return time.ParseInLocation(DateLayout, p.MonitoringDate, time.Local)
}

// Point returns the sampling point with the given id and its position.
func (p Project) Point(id string) (SamplingPoint, int, bool) {
	for i, pt := range p.SamplingPoints {
		if pt.ID == id {
			return pt, i, true
		}
	}
	return SamplingPoint{}, -1, false
}

// SamplingPoint is a location inside a project where items are measured.
type SamplingPoint struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        PointType `json:"type,omitempty"`
	Description string    `json:"description"`
	ItemCount   int       `json:"itemCount"`
	Items       []string  `json:"items"`
}

// SamplingRecord is the captured payload for one point of one project.
type SamplingRecord struct {
	ProjectID string       `json:"projectId"`
	PointID   string       `json:"pointId"`
	PointName string       `json:"pointName"`
	Data      SamplingData `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
	Status    RecordStatus `json:"status"`
}

// SamplingData groups environmental readings and item measurements.
type SamplingData struct {
	Environment EnvironmentReadings        `json:"environment"`
	Items       map[string]ItemMeasurement `json:"items"`
}

// EnvironmentReadings are the shared field conditions at a point.
type EnvironmentReadings struct {
	SamplingDate string `json:"samplingDate"`
	Weather      string `json:"weather"`
	Temperature  string `json:"temperature"`
	Humidity     string `json:"humidity"`
	WindSpeed    string `json:"windSpeed"`
}

// ItemMeasurement is a value/unit/note triple for one monitoring item.
type ItemMeasurement struct {
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Note  string `json:"note"`
}

// Numeric parses the measured value as a decimal.
func (m ItemMeasurement) Numeric() (decimal.Decimal, bool) {
	v := strings.TrimSpace(m.Value)
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Chemical is a reference entry keyed by CAS number.
type Chemical struct {
	Name               string    `json:"name"`
	CASNumber          string    `json:"casNumber"`
	MolecularFormula   string    `json:"molecularFormula"`
	TWA                string    `json:"twa"`
	STEL               string    `json:"stel"`
	Ceiling            string    `json:"ceiling"`
	SamplingMethod     string    `json:"samplingMethod"`
	PhysicalProperties string    `json:"physicalProperties"`
	HealthHazards      string    `json:"healthHazards"`
	CreatedDate        time.Time `json:"createdDate"`
}

// InstrumentStatus enumerates instrument availability.
type InstrumentStatus string

const (
	InstrumentAvailable   InstrumentStatus = "可用"
	InstrumentCalibrating InstrumentStatus = "校正中"
	InstrumentRepairing   InstrumentStatus = "維修中"
	InstrumentRetired     InstrumentStatus = "停用"
)

// Instrument is a field instrument keyed by its asset id.
type Instrument struct {
	ID                  string           `json:"id"`
	Model               string           `json:"model"`
	Manufacturer        string           `json:"manufacturer"`
	SerialNumber        string           `json:"serialNumber"`
	PurchaseDate        string           `json:"purchaseDate"`
	ApplicableItems     []string         `json:"applicableItems"`
	CalibrationInterval int              `json:"calibrationInterval"`
	Status              InstrumentStatus `json:"status"`
	Notes               string           `json:"notes"`
	NextCalibration     string           `json:"nextCalibration"`
	CreatedDate         time.Time        `json:"createdDate"`
}

// NextCalibrationDate adds the calibration interval in months to the purchase date.
func NextCalibrationDate(purchaseDate string, intervalMonths int) (string, error) {
	d, err := time.Parse(DateLayout, purchaseDate)
	if err != nil {
		return "", err
	}
	return d.AddDate(0, intervalMonths, 0).Format(DateLayout), nil
}

// CalibrationRecord captures an on-site instrument calibration.
type CalibrationRecord struct {
	ID                    string    `json:"id,omitempty"`
	InstrumentID          string    `json:"instrumentId"`
	BeforeCalibration     string    `json:"beforeCalibration"`
	StandardConcentration string    `json:"standardConcentration"`
	AfterCalibration      string    `json:"afterCalibration"`
	CalibrationFactor     string    `json:"calibrationFactor"`
	Notes                 string    `json:"notes"`
	Timestamp             time.Time `json:"timestamp"`
	ProjectID             string    `json:"projectId"`
	Operator              string    `json:"operator"`
}

// QCSampleRecord captures the quality-control samples taken at a point.
type QCSampleRecord struct {
	ID              string          `json:"id,omitempty"`
	ProjectID       string          `json:"projectId"`
	PointID         string          `json:"pointId"`
	Timestamp       time.Time       `json:"timestamp"`
	BlankSample     QCSample        `json:"blankSample"`
	DuplicateSample DuplicateSample `json:"duplicateSample"`
	SpikedSample    QCSample        `json:"spikedSample"`
}

// QCSample is a blank or spiked QC sample.
type QCSample struct {
	SampleID    string `json:"sampleId"`
	Description string `json:"description"`
}

// DuplicateSample references the original sample it duplicates.
type DuplicateSample struct {
	OriginalSampleID string `json:"originalSampleId"`
	Description      string `json:"description"`
}

// ReportHistoryEntry records a generated report.
type ReportHistoryEntry struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ProjectID      string    `json:"projectId"`
	ReportType     string    `json:"reportType"`
	OutputFormat   string    `json:"outputFormat"`
	FileSize       string    `json:"fileSize"`
	GenerationTime time.Time `json:"generationTime"`
	Status         string    `json:"status"`
	ArtifactKey    string    `json:"artifactKey,omitempty"`
}

// ReportStatusDone is the status label of a finished report.
const ReportStatusDone = "完成"

// MonitoringCatalog maps a monitoring type to its item vocabulary.
type MonitoringCatalog map[string][]string

// Contains reports whether item belongs to the vocabulary of monitoringType.
func (c MonitoringCatalog) Contains(monitoringType, item string) bool {
	for _, it := range c[monitoringType] {
		if it == item {
			return true
		}
	}
	return false
}

// SystemSettings are global application settings.
type SystemSettings struct {
	CompanyName string    `json:"companyName"`
	Version     string    `json:"version"`
	LastUpdate  time.Time `json:"lastUpdate"`
}

// SamplingStatus maps project id to point id to record status.
type SamplingStatus map[string]map[string]RecordStatus

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation recorded inside a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action enumerates change kinds.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations produced by rules.
type Result struct {
	Violations []Violation
}

// Merge appends the violations of other.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking reports whether any violation blocks the transaction.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Blocking returns only the blocking violations.
func (r Result) Blocking() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	blocking := e.Result.Blocking()
	if len(blocking) == 0 {
		return "transaction blocked by rules"
	}
	msgs := make([]string, 0, len(blocking))
	for _, v := range blocking {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}
