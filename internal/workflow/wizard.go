package workflow

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"envmon/internal/core"
	"envmon/pkg/domain"
)

// Step is a project wizard page.
type Step int

const (
	StepBasicInfo Step = iota + 1
	StepPlan
	StepPoints
	StepSummary
)

// Fixed quotation used by the summary page, in NT$.
const (
	EstimateSampling = 50000
	EstimateReport   = 15000
	EstimateTotal    = EstimateSampling + EstimateReport
)

// InitialProgress is the progress label of a newly committed project.
const InitialProgress = "專案建立"

// ProjectWizard collects a project across four steps and commits it as a
// create or, after Edit, a replace. A wizard is not safe for concurrent use.
type ProjectWizard struct {
	svc *core.Service

	step      Step
	editingID string
	basic     BasicInfoForm
	plan      PlanForm
	planType  string // monitoring type the current drafts were generated for
	points    []PointDraft
}

// NewProjectWizard starts an empty wizard at step 1.
func NewProjectWizard(svc *core.Service) *ProjectWizard {
	return &ProjectWizard{svc: svc, step: StepBasicInfo}
}

func (w *ProjectWizard) Step() Step           { return w.step }
func (w *ProjectWizard) EditingID() string    { return w.editingID }
func (w *ProjectWizard) Basic() BasicInfoForm { return w.basic }
func (w *ProjectWizard) Plan() PlanForm       { return w.plan }

// Points returns a copy of the point drafts.
func (w *ProjectWizard) Points() []PointDraft {
	out := make([]PointDraft, len(w.points))
	for i, p := range w.points {
		p.Items = append([]string(nil), p.Items...)
		out[i] = p
	}
	return out
}

// SetBasicInfo replaces the step 1 data.
func (w *ProjectWizard) SetBasicInfo(form BasicInfoForm) { w.basic = form }

// SetPlan replaces the step 2 data.
func (w *ProjectWizard) SetPlan(form PlanForm) { w.plan = form }

// SetPoint replaces draft i.
func (w *ProjectWizard) SetPoint(i int, draft PointDraft) error {
	if i < 0 || i >= len(w.points) {
		return fmt.Errorf("point %d out of range", i+1)
	}
	draft.Items = append([]string(nil), draft.Items...)
	w.points[i] = draft
	return nil
}

// Edit loads an existing project into the wizard.
func (w *ProjectWizard) Edit(ctx context.Context, projectID string) (Notice, error) {
	p, err := w.svc.GetProject(ctx, projectID)
	if err != nil {
		return ErrorNotice(err, ""), err
	}
	w.reset()
	w.editingID = p.ID
	w.basic = BasicInfoForm{
		ClientID:           p.ClientID,
		ProjectName:        p.ProjectName,
		MonitoringDate:     p.MonitoringDate,
		MonitoringDays:     p.MonitoringDays,
		FacilityAddress:    p.FacilityAddress,
		ProjectDescription: p.ProjectDescription,
	}
	w.plan = PlanForm{MonitoringType: p.MonitoringType, MonitoringPoints: lo.Max([]int{p.MonitoringPoints, len(p.SamplingPoints), 1})}
	w.planType = p.MonitoringType
	for _, pt := range p.SamplingPoints {
		w.points = append(w.points, PointDraft{
			Name:        pt.Name,
			Type:        pt.Type,
			Description: pt.Description,
			Items:       append([]string(nil), pt.Items...),
		})
	}
	return info("專案資料已載入，可進行編輯"), nil
}

// Next validates the current step and advances. Leaving step 2 (re)generates
// the point drafts.
func (w *ProjectWizard) Next(ctx context.Context) (Notice, error) {
	if w.step >= StepSummary {
		return info("已是最後一個步驟"), nil
	}
	if err := w.validate(ctx, w.step); err != nil {
		return ErrorNotice(err, ""), err
	}
	if w.step == StepPlan {
		if err := w.generatePoints(ctx); err != nil {
			return ErrorNotice(err, ""), err
		}
	}
	w.step++
	return Notice{}, nil
}

// Prev goes back one step without validation.
func (w *ProjectWizard) Prev() {
	if w.step > StepBasicInfo {
		w.step--
	}
}

func (w *ProjectWizard) validate(ctx context.Context, step Step) error {
	switch step {
	case StepBasicInfo:
		if err := domain.Validate(w.basic); err != nil {
			return err
		}
		_, err := w.svc.GetClient(ctx, w.basic.ClientID)
		return err
	case StepPlan:
		if err := domain.Validate(w.plan); err != nil {
			return err
		}
		items, err := w.svc.MonitoringItemsFor(ctx, w.plan.MonitoringType)
		if err != nil {
			return err
		}
		if items == nil {
			return &ValidationError{Field: "monitoringType", Message: domain.MsgInvalidValue}
		}
	case StepPoints:
		if len(namedPoints(w.points)) == 0 {
			return &ValidationError{Field: "points", Message: domain.MsgRequired}
		}
	}
	return nil
}

// generatePoints sizes the drafts to the planned count. Existing drafts keep
// their name, type and description; their items reset to the full vocabulary
// when the monitoring type changed.
func (w *ProjectWizard) generatePoints(ctx context.Context) error {
	vocab, err := w.svc.MonitoringItemsFor(ctx, w.plan.MonitoringType)
	if err != nil {
		return err
	}
	typeChanged := w.planType != w.plan.MonitoringType
	drafts := make([]PointDraft, w.plan.MonitoringPoints)
	for i := range drafts {
		d := PointDraft{Type: domain.PointTypeIndoor, Items: append([]string(nil), vocab...)}
		if i < len(w.points) {
			prev := w.points[i]
			d.Name, d.Description = prev.Name, prev.Description
			if prev.Type != "" {
				d.Type = prev.Type
			}
			if !typeChanged {
				d.Items = append([]string(nil), prev.Items...)
			}
		}
		drafts[i] = d
	}
	w.points = drafts
	w.planType = w.plan.MonitoringType
	return nil
}

func namedPoints(drafts []PointDraft) []lo.Tuple2[int, PointDraft] {
	var out []lo.Tuple2[int, PointDraft]
	for i, d := range drafts {
		if d.Name != "" {
			out = append(out, lo.T2(i, d))
		}
	}
	return out
}

// Estimate is the fixed quotation shown on the summary page.
type Estimate struct {
	Sampling int `json:"sampling"`
	Report   int `json:"report"`
	Total    int `json:"total"`
}

// Summary is the step 4 overview.
type Summary struct {
	ClientName     string   `json:"clientName"`
	ProjectName    string   `json:"projectName"`
	MonitoringDate string   `json:"monitoringDate"`
	MonitoringDays int      `json:"monitoringDays"`
	MonitoringType string   `json:"monitoringType"`
	PointCount     int      `json:"pointCount"`
	TotalItems     int      `json:"totalItems"`
	Estimate       Estimate `json:"estimate"`
}

// Summary describes the draft as it would be committed.
func (w *ProjectWizard) Summary(ctx context.Context) Summary {
	clientName := "未選擇"
	if w.basic.ClientID != "" {
		clientName = "未知客戶"
		if c, err := w.svc.GetClient(ctx, w.basic.ClientID); err == nil {
			clientName = c.CompanyName
		}
	}
	return Summary{
		ClientName:     clientName,
		ProjectName:    w.basic.ProjectName,
		MonitoringDate: w.basic.MonitoringDate,
		MonitoringDays: w.basic.MonitoringDays,
		MonitoringType: w.plan.MonitoringType,
		PointCount:     w.plan.MonitoringPoints,
		TotalItems:     lo.SumBy(w.points, func(p PointDraft) int { return len(p.Items) }),
		Estimate:       Estimate{Sampling: EstimateSampling, Report: EstimateReport, Total: EstimateTotal},
	}
}

func (w *ProjectWizard) build() domain.Project {
	named := namedPoints(w.points)
	points := make([]domain.SamplingPoint, 0, len(named))
	for _, t := range named {
		idx, d := t.Unpack()
		points = append(points, domain.SamplingPoint{
			ID:          domain.PointID(idx),
			Name:        d.Name,
			Type:        d.Type,
			Description: d.Description,
			ItemCount:   len(d.Items),
			Items:       append([]string{}, d.Items...),
		})
	}
	return domain.Project{
		ID:                 w.editingID,
		ClientID:           w.basic.ClientID,
		ProjectName:        w.basic.ProjectName,
		MonitoringDate:     w.basic.MonitoringDate,
		MonitoringDays:     w.basic.MonitoringDays,
		FacilityAddress:    w.basic.FacilityAddress,
		ProjectDescription: w.basic.ProjectDescription,
		MonitoringType:     w.plan.MonitoringType,
		MonitoringPoints:   len(points),
		MonitoringItems:    lo.Uniq(lo.FlatMap(points, func(p domain.SamplingPoint, _ int) []string { return p.Items })),
		SamplingPoints:     points,
	}
}

// Commit validates every step and stores the project. In edit mode the
// stored status, progress and creation date are kept. The wizard resets
// after a successful commit.
func (w *ProjectWizard) Commit(ctx context.Context) (domain.Project, Notice, error) {
	for _, step := range []Step{StepBasicInfo, StepPlan, StepPoints} {
		if err := w.validate(ctx, step); err != nil {
			return fail(domain.Project{}, err, "請確認所有資訊正確")
		}
	}
	project := w.build()
	if w.editingID != "" {
		saved, _, err := w.svc.ReplaceProject(ctx, project)
		if err != nil {
			return fail(domain.Project{}, err, "專案更新失敗")
		}
		w.reset()
		return saved, success("專案更新成功！"), nil
	}
	project.Status = domain.ProjectStatusQuoting
	project.Progress = InitialProgress
	saved, _, err := w.svc.CreateProject(ctx, project)
	if err != nil {
		return fail(domain.Project{}, err, "專案建立失敗")
	}
	w.reset()
	return saved, success("專案建立成功！"), nil
}

// Cancel discards the draft and leaves edit mode.
func (w *ProjectWizard) Cancel() { w.reset() }

func (w *ProjectWizard) reset() {
	w.step = StepBasicInfo
	w.editingID = ""
	w.basic = BasicInfoForm{}
	w.plan = PlanForm{}
	w.planType = ""
	w.points = nil
}
