package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewPointCountRule warns when the declared point count differs from the
// number of sampling points.
func NewPointCountRule() domain.Rule {
	return pointCountRule{}
}

type pointCountRule struct{}

func (pointCountRule) Name() string { return "point_count" }

func (r pointCountRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, project := range changedProjects(changes) {
		if project.MonitoringPoints == len(project.SamplingPoints) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("project %s declares %d points but has %d", project.ID, project.MonitoringPoints, len(project.SamplingPoints)),
			Entity:   domain.EntityProject,
			EntityID: project.ID,
		})
	}
	return res, nil
}
