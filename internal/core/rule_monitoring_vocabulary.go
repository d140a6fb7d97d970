package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewMonitoringVocabularyRule notes point items outside the vocabulary of the
// project's monitoring type. Free items are allowed, so the rule only logs.
func NewMonitoringVocabularyRule() domain.Rule {
	return monitoringVocabularyRule{}
}

type monitoringVocabularyRule struct{}

func (monitoringVocabularyRule) Name() string { return "monitoring_vocabulary" }

func (r monitoringVocabularyRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	projects := changedProjects(changes)
	if len(projects) == 0 {
		return res, nil
	}
	catalog := view.MonitoringCatalog()
	for _, project := range projects {
		if _, known := catalog[project.MonitoringType]; !known {
			continue
		}
		for _, pt := range project.SamplingPoints {
			for _, item := range pt.Items {
				if catalog.Contains(project.MonitoringType, item) {
					continue
				}
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityLog,
					Message:  fmt.Sprintf("point %s item %s not in %s vocabulary", pt.ID, item, project.MonitoringType),
					Entity:   domain.EntityProject,
					EntityID: project.ID,
				})
			}
		}
	}
	return res, nil
}
