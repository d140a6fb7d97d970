package workflow

import (
	"context"

	"envmon/internal/core"
	"envmon/pkg/domain"
)

// Projects backs the project list and detail screens.
type Projects struct {
	svc *core.Service
}

func NewProjects(svc *core.Service) *Projects { return &Projects{svc: svc} }

// Search filters projects by text and optional status.
func (p *Projects) Search(ctx context.Context, term string, status domain.ProjectStatus) ([]domain.Project, error) {
	return p.svc.SearchProjects(ctx, term, status)
}

// PointStatus is one row of the project detail item table.
type PointStatus struct {
	PointID        string `json:"pointId"`
	Point          string `json:"point"`
	ItemCount      int    `json:"itemCount"`
	SamplingStatus string `json:"samplingStatus"`
	LabStatus      string `json:"labStatus"`
}

// ProjectDetail is the project management view.
type ProjectDetail struct {
	Project    domain.Project `json:"project"`
	ClientName string         `json:"clientName"`
	Points     []PointStatus  `json:"points"`
}

// Detail loads a project with per-point status projected from the project
// status.
func (p *Projects) Detail(ctx context.Context, id string) (ProjectDetail, error) {
	project, err := p.svc.GetProject(ctx, id)
	if err != nil {
		return ProjectDetail{}, err
	}
	clientName := "未知客戶"
	if c, err := p.svc.GetClient(ctx, project.ClientID); err == nil {
		clientName = c.CompanyName
	}
	rows := make([]PointStatus, 0, len(project.SamplingPoints))
	for _, pt := range project.SamplingPoints {
		rows = append(rows, PointStatus{
			PointID:        pt.ID,
			Point:          pt.Name,
			ItemCount:      len(pt.Items),
			SamplingStatus: domain.SamplingPhase(project.Status),
			LabStatus:      domain.LabPhase(project.Status),
		})
	}
	return ProjectDetail{Project: project, ClientName: clientName, Points: rows}, nil
}

// SetStatus moves a project to status with a new progress label.
func (p *Projects) SetStatus(ctx context.Context, id string, status domain.ProjectStatus, progress string) (domain.Project, Notice, error) {
	partial := map[string]any{"status": status}
	if progress != "" {
		partial["progress"] = progress
	}
	project, _, err := p.svc.UpdateProject(ctx, id, partial)
	if err != nil {
		return fail(domain.Project{}, err, "專案更新失敗")
	}
	return project, success("專案狀態已更新"), nil
}

// Delete removes a project with its sampling data.
func (p *Projects) Delete(ctx context.Context, id string) (Notice, error) {
	if _, err := p.svc.DeleteProject(ctx, id); err != nil {
		return ErrorNotice(err, "專案刪除失敗"), err
	}
	return success("專案已刪除"), nil
}
