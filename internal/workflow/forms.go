package workflow

import (
	"strings"

	"envmon/pkg/domain"
)

// ClientForm is the client registration form.
type ClientForm struct {
	CompanyName  string `form:"companyName" validate:"trimmed"`
	TaxID        string `form:"taxId" validate:"trimmed,taxid"`
	ContactName  string `form:"contactName" validate:"trimmed"`
	ContactTitle string `form:"contactTitle"`
	Phone        string `form:"phone" validate:"trimmed,phone"`
	Email        string `form:"email" validate:"omitempty,email"`
	Address      string `form:"address" validate:"trimmed"`
}

func (f ClientForm) trimmed() ClientForm {
	return ClientForm{
		CompanyName:  strings.TrimSpace(f.CompanyName),
		TaxID:        strings.TrimSpace(f.TaxID),
		ContactName:  strings.TrimSpace(f.ContactName),
		ContactTitle: strings.TrimSpace(f.ContactTitle),
		Phone:        strings.TrimSpace(f.Phone),
		Email:        strings.TrimSpace(f.Email),
		Address:      strings.TrimSpace(f.Address),
	}
}

// BasicInfoForm is step 1 of the project wizard.
type BasicInfoForm struct {
	ClientID           string `form:"clientId" validate:"trimmed"`
	ProjectName        string `form:"projectName" validate:"trimmed"`
	MonitoringDate     string `form:"monitoringDate" validate:"trimmed,datetime=2006-01-02"`
	MonitoringDays     int    `form:"monitoringDays" validate:"min=1"`
	FacilityAddress    string `form:"facilityAddress" validate:"trimmed"`
	ProjectDescription string `form:"projectDescription"`
}

// PlanForm is step 2 of the project wizard.
type PlanForm struct {
	MonitoringType   string `form:"monitoringType" validate:"trimmed"`
	MonitoringPoints int    `form:"monitoringPoints" validate:"min=1"`
}

// PointDraft is one sampling point being edited in step 3.
type PointDraft struct {
	Name        string           `json:"name"`
	Type        domain.PointType `json:"type"`
	Description string           `json:"description"`
	Items       []string         `json:"items"`
}

// ChemicalForm is the chemical reference form.
type ChemicalForm struct {
	Name               string `form:"chemicalName" validate:"trimmed"`
	CASNumber          string `form:"casNumber" validate:"trimmed,cas"`
	MolecularFormula   string `form:"molecularFormula" validate:"trimmed"`
	TWA                string `form:"twa"`
	STEL               string `form:"stel"`
	Ceiling            string `form:"ceiling"`
	SamplingMethod     string `form:"samplingMethod" validate:"trimmed"`
	PhysicalProperties string `form:"physicalProperties"`
	HealthHazards      string `form:"healthHazards"`
}

// InstrumentForm is the instrument registration form.
type InstrumentForm struct {
	ID                  string                  `form:"instrumentId" validate:"trimmed"`
	Model               string                  `form:"model" validate:"trimmed"`
	Manufacturer        string                  `form:"manufacturer" validate:"trimmed"`
	SerialNumber        string                  `form:"serialNumber"`
	PurchaseDate        string                  `form:"purchaseDate" validate:"trimmed,datetime=2006-01-02"`
	ApplicableItems     []string                `form:"applicableItems"`
	CalibrationInterval int                     `form:"calibrationInterval" validate:"min=1"`
	Status              domain.InstrumentStatus `form:"status"`
	Notes               string                  `form:"notes"`
}

// CalibrationForm records an on-site calibration.
type CalibrationForm struct {
	InstrumentID          string `form:"instrumentId" validate:"trimmed"`
	BeforeCalibration     string `form:"beforeCalibration" validate:"omitempty,numeric"`
	StandardConcentration string `form:"standardConcentration" validate:"omitempty,numeric"`
	AfterCalibration      string `form:"afterCalibration" validate:"omitempty,numeric"`
	CalibrationFactor     string `form:"calibrationFactor" validate:"omitempty,numeric"`
	Notes                 string `form:"calibrationNotes"`
}

// QCSampleForm records blank, duplicate and spiked QC samples.
type QCSampleForm struct {
	BlankSampleID        string
	BlankDescription     string
	DuplicateOriginalID  string
	DuplicateDescription string
	SpikedSampleID       string
	SpikedDescription    string
}
