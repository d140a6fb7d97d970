// Package reports generates monitoring reports in the background and keeps
// the report history. A Worker walks each job through a fixed sequence of
// progress stages, renders the artifact, stores it in the blob store and
// records a history entry.
package reports

import (
	"strings"
	"time"

	"envmon/pkg/domain"
)

// User-facing messages.
const (
	MsgDateRangeRequired = "請選擇日期範圍"
	MsgDateOrder         = "開始日期不能晚於結束日期"
	MsgNameRequired      = "請輸入報表名稱"
	MsgFieldsRequired    = "請至少選擇一個包含欄位"

	NoticeCompleted      = "報表產生完成！"
	NoticeCancelled      = "報表產生已取消"
	NoticeDeleted        = "報表已刪除"
	NoticeCleared        = "歷史記錄已清除"
	NoticeBatchStarted   = "開始批次產生報表..."
	NoticeBatchCompleted = "批次報表產生完成！"
)

// Format is the output format of a report.
type Format string

const (
	FormatExcel Format = "excel"
	FormatWord  Format = "word"
	FormatJSON  Format = "json"
)

var formatFiles = map[Format]struct {
	ext         string
	contentType string
}{
	FormatExcel: {".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	FormatWord:  {".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	FormatJSON:  {".json", "application/json"},
}

// ParseFormat normalises s. An empty string selects excel.
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FormatExcel, true
	}
	_, ok := formatFiles[f]
	return f, ok
}

// Field is a section a custom report may include.
type Field string

const (
	FieldProjectInfo  Field = "project_info"
	FieldClientInfo   Field = "client_info"
	FieldSamplingData Field = "sampling_data"
	FieldCalibration  Field = "calibration_data"
	FieldQCSamples    Field = "qc_data"
)

var fieldLabels = map[Field]string{
	FieldProjectInfo:  "專案資訊",
	FieldClientInfo:   "客戶資訊",
	FieldSamplingData: "採樣數據",
	FieldCalibration:  "校正記錄",
	FieldQCSamples:    "品管樣本",
}

// Label returns the sheet title of f.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// DefaultFields are pre-selected on the custom report form.
var DefaultFields = []Field{FieldProjectInfo, FieldClientInfo, FieldSamplingData}

// Stage is one step of the progress sequence.
type Stage struct {
	Progress int
	Text     string
	Delay    time.Duration
}

// Stages is the progress sequence every job walks through.
var Stages = []Stage{
	{10, "正在收集專案資料...", 500 * time.Millisecond},
	{25, "正在處理監測數據...", 800 * time.Millisecond},
	{50, "正在進行法規比對...", 600 * time.Millisecond},
	{70, "正在生成圖表...", 900 * time.Millisecond},
	{85, "正在產生報表文件...", 700 * time.Millisecond},
	{95, "正在完成最後處理...", 400 * time.Millisecond},
	{100, NoticeCompleted, 300 * time.Millisecond},
}

// renderStage is the progress value at which the artifact is built.
const renderStage = 85

// QuickRequest asks for a standard report on one project.
type QuickRequest struct {
	ProjectID    string
	ReportType   domain.ReportType
	OutputFormat string
}

// CustomRequest asks for a named report with selected sections. An empty
// ProjectID covers every project.
type CustomRequest struct {
	Name         string
	ProjectID    string
	Fields       []Field
	OutputFormat string
}

// BatchRequest asks for one report per project monitored within the
// inclusive date range.
type BatchRequest struct {
	StartDate    string
	EndDate      string
	ReportType   domain.ReportType
	OutputFormat string
}

func invalid(field, msg string) error {
	return &domain.ValidationError{Field: field, Message: msg}
}

// dateRange validates a batch range and returns its bounds.
func dateRange(req BatchRequest) (time.Time, time.Time, error) {
	start, end := strings.TrimSpace(req.StartDate), strings.TrimSpace(req.EndDate)
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, invalid("dateRange", MsgDateRangeRequired)
	}
	from, err := time.Parse(domain.DateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("startDate", domain.MsgInvalidValue)
	}
	to, err := time.Parse(domain.DateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("endDate", domain.MsgInvalidValue)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, invalid("dateRange", MsgDateOrder)
	}
	return from, to, nil
}

func customFields(fields []Field) ([]Field, error) {
	if len(fields) == 0 {
		return nil, invalid("fields", MsgFieldsRequired)
	}
	seen := make(map[Field]bool, len(fields))
	out := make([]Field, 0, len(fields))
	for _, f := range fields {
		if _, ok := fieldLabels[f]; !ok {
			return nil, invalid("fields", domain.MsgInvalidValue)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}
