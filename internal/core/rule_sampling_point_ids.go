package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewSamplingPointIDsRule blocks projects whose points have empty or repeated ids.
func NewSamplingPointIDsRule() domain.Rule {
	return samplingPointIDsRule{}
}

type samplingPointIDsRule struct{}

func (samplingPointIDsRule) Name() string { return "sampling_point_ids" }

func (r samplingPointIDsRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, project := range changedProjects(changes) {
		seen := make(map[string]struct{}, len(project.SamplingPoints))
		for i, pt := range project.SamplingPoints {
			var msg string
			if pt.ID == "" {
				msg = fmt.Sprintf("project %s point #%d has no id", project.ID, i+1)
			} else if _, dup := seen[pt.ID]; dup {
				msg = fmt.Sprintf("project %s repeats point id %s", project.ID, pt.ID)
			}
			seen[pt.ID] = struct{}{}
			if msg == "" {
				continue
			}
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  msg,
				Entity:   domain.EntityProject,
				EntityID: project.ID,
			})
		}
	}
	return res, nil
}
