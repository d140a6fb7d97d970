package domain

// ReportType identifies a quick-report template.
type ReportType string

const (
	ReportMonitoringSummary ReportType = "monitoring_summary"
	ReportAnalysis          ReportType = "analysis_report"
	ReportPlanDocument      ReportType = "plan_document"
	ReportCompliance        ReportType = "compliance_report"
	ReportCalibration       ReportType = "calibration_report"
	ReportCustom            ReportType = "custom_report"
)

var reportTypeLabels = map[ReportType]string{
	ReportMonitoringSummary: "監測總表",
	ReportAnalysis:          "分析報告",
	ReportPlanDocument:      "計畫書",
	ReportCompliance:        "法規符合性報告",
	ReportCalibration:       "校正報告",
	ReportCustom:            "自訂報表",
}

// Label returns the display name, falling back to the raw identifier.
func (t ReportType) Label() string {
	if l, ok := reportTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Known reports whether t is a recognised report type.
func (t ReportType) Known() bool {
	_, ok := reportTypeLabels[t]
	return ok
}

// DocType identifies a generated Word document kind.
type DocType string

const (
	DocPlan   DocType = "plan"
	DocQuote  DocType = "quote"
	DocReport DocType = "report"
)

var docOperationLabels = map[DocType]string{
	DocPlan:   "計畫書",
	DocQuote:  "報價單",
	DocReport: "監測報告",
}

var docFileLabels = map[DocType]string{
	DocPlan:   "監測計畫書",
	DocQuote:  "報價單",
	DocReport: "監測報告",
}

// Label is the short name used in notifications.
func (d DocType) Label() string {
	if l, ok := docOperationLabels[d]; ok {
		return l
	}
	return string(d)
}

// FileLabel is the name segment used in generated file names.
func (d DocType) FileLabel() string {
	if l, ok := docFileLabels[d]; ok {
		return l
	}
	return "文件"
}

// Known reports whether d is a supported document type.
func (d DocType) Known() bool {
	_, ok := docOperationLabels[d]
	return ok
}

// SamplingPhase projects a project status onto the field-sampling progress label.
func SamplingPhase(s ProjectStatus) string {
	switch s {
	case ProjectStatusQuoting:
		return "未開始"
	case ProjectStatusInProgress:
		return "進行中"
	case ProjectStatusCompleted:
		return "已完成"
	}
	return "未開始"
}

// LabPhase projects a project status onto the laboratory progress label.
func LabPhase(s ProjectStatus) string {
	if s == ProjectStatusCompleted {
		return "已完成"
	}
	return "未送檢"
}

// UnitOptions lists the selectable measurement units.
var UnitOptions = []string{"ppm", "mg/m³", "µg/m³", "dB", "lux", "°C", "%", "m/s", "CFU/m³"}
