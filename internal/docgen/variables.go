package docgen

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/samber/lo"

	"envmon/pkg/domain"
)

// Fixed document attribution.
const (
	CompanyName = "友喬檢驗有限公司"
	CreatedBy   = "友喬檢驗有限公司 by Rex"
)

// Schedule memo texts.
const (
	PlanMemo      = "確認現場狀況及需求，並擬定本次採樣點、廠商聯繫"
	ExecutionJob  = "執行環境監測"
	ExecutionMemo = "依擬定規劃執行採樣"
	ReportMemo    = "確認監測報告無誤，並依據計畫書內容做後續處理"
)

//go:embed defaults.json
var builtinDefaults []byte

// Defaults is the default variable document. Its three groups are flattened
// into one variable map before project data is applied.
type Defaults struct {
	BasicVariables       map[string]any `json:"basicVariables"`
	ArrayVariables       map[string]any `json:"arrayVariables"`
	ObjectArrayVariables map[string]any `json:"objectArrayVariables"`
}

type defaultsFile struct {
	DefaultVariables Defaults `json:"defaultVariables"`
}

// ParseDefaults decodes a {"defaultVariables": {...}} document.
func ParseDefaults(data []byte) (Defaults, error) {
	var f defaultsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Defaults{}, fmt.Errorf("decode default variables: %w", err)
	}
	return f.DefaultVariables, nil
}

// BuiltinDefaults returns the default variable document shipped with the binary.
func BuiltinDefaults() Defaults {
	d, err := ParseDefaults(builtinDefaults)
	if err != nil {
		panic(err)
	}
	return d
}

// empCount fills BasicDataTable.EmpCounts, which the system does not track.
var empCount = func() int { return 100 + rand.IntN(401) }

// BuildVariables flattens defaults and overlays the project and client.
// BasicDataTable and MonitoringScheduleTable are only produced when the
// defaults declare them, so templates without those tables are unaffected.
func BuildVariables(project domain.Project, client domain.Client, defaults Defaults, now time.Time) map[string]any {
	vars := make(map[string]any)
	for _, group := range []map[string]any{defaults.BasicVariables, defaults.ArrayVariables, defaults.ObjectArrayVariables} {
		for k, v := range group {
			vars[k] = v
		}
	}

	vars["CustomName1"] = client.CompanyName
	vars["CustomName2"] = project.ProjectName
	vars["CompanyName"] = CompanyName
	vars["ReportingYear"] = strconv.Itoa(now.Year()) + "年度"
	vars["CreateDate"] = slashDate(now)
	vars["CreateBy"] = CreatedBy

	if _, ok := vars["BasicDataTable"]; ok {
		vars["BasicDataTable"] = []map[string]any{{
			"Name":      client.CompanyName + " " + project.ProjectName,
			"Address":   lo.Ternary(project.FacilityAddress != "", project.FacilityAddress, client.Address),
			"EmpCounts": empCount(),
		}}
	}
	if _, ok := vars["MonitoringScheduleTable"]; ok {
		vars["MonitoringScheduleTable"] = MonitoringSchedule(project)
	}

	vars["ProjectId"] = project.ID
	vars["ProjectName"] = project.ProjectName
	vars["ClientName"] = client.CompanyName
	vars["ContactPerson"] = client.ContactName
	vars["ContactPhone"] = client.Phone
	vars["ContactEmail"] = client.Email
	vars["FacilityAddress"] = project.FacilityAddress
	vars["MonitoringDate"] = project.MonitoringDate
	if d, err := time.Parse(domain.DateLayout, project.MonitoringDate); err == nil {
		vars["MonitoringDate"] = slashDate(d)
	}
	vars["MonitoringDays"] = project.MonitoringDays
	vars["MonitoringType"] = project.MonitoringType
	vars["MonitoringPoints"] = project.MonitoringPoints
	vars["ProjectDescription"] = project.ProjectDescription
	vars["MonitoringItemsList"] = MonitoringItemsList(project.SamplingPoints)
	return vars
}

// MonitoringItemsList returns the items of all points, first occurrence first.
func MonitoringItemsList(points []domain.SamplingPoint) []string {
	items := lo.Uniq(lo.FlatMap(points, func(p domain.SamplingPoint, _ int) []string { return p.Items }))
	if items == nil {
		return []string{}
	}
	return items
}

// MonitoringSchedule returns the plan, execution and report rows around the
// monitoring date. A project without a parsable date gets no rows.
func MonitoringSchedule(project domain.Project) []map[string]any {
	base, err := time.Parse(domain.DateLayout, project.MonitoringDate)
	if err != nil {
		return []map[string]any{}
	}
	return []map[string]any{
		{"JobName": project.ProjectName + " 監測規劃", "JobDate": ROCMonth(base.AddDate(0, 0, -14)), "JobMemo": PlanMemo},
		{"JobName": ExecutionJob, "JobDate": ROCMonth(base), "JobMemo": ExecutionMemo},
		{"JobName": project.ProjectName + " 監測報告", "JobDate": ROCMonth(base.AddDate(0, 0, project.MonitoringDays+7)), "JobMemo": ReportMemo},
	}
}

// ROCMonth formats t as {ROC year}.{MM}月.
func ROCMonth(t time.Time) string {
	return fmt.Sprintf("%d.%02d月", t.Year()-1911, int(t.Month()))
}

func slashDate(t time.Time) string { return t.Format("2006/01/02") }
