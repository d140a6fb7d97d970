package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewSamplingReferenceRule blocks sampling, QC and calibration records that
// point at a missing project or sampling point.
func NewSamplingReferenceRule() domain.Rule {
	return samplingReferenceRule{}
}

type samplingReferenceRule struct{}

func (samplingReferenceRule) Name() string { return "sampling_reference" }

func (r samplingReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	check := func(entity domain.EntityType, id, projectID, pointID string, pointRequired bool) {
		project, ok := view.FindProject(projectID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s references unknown project %q", entity, projectID),
				Entity:   entity,
				EntityID: id,
			})
			return
		}
		if pointID == "" && !pointRequired {
			return
		}
		if _, _, ok := project.Point(pointID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s references unknown point %q of project %s", entity, pointID, projectID),
				Entity:   entity,
				EntityID: id,
			})
		}
	}
	for _, ch := range changes {
		if ch.Action == domain.ActionDelete {
			continue
		}
		switch after := ch.After.(type) {
		case domain.SamplingRecord:
			check(domain.EntitySamplingRecord, after.ProjectID+"/"+after.PointID, after.ProjectID, after.PointID, true)
		case domain.QCSampleRecord:
			check(domain.EntityQCSampleRecord, after.ID, after.ProjectID, after.PointID, false)
		case domain.CalibrationRecord:
			if after.ProjectID != "" {
				check(domain.EntityCalibrationRecord, after.ID, after.ProjectID, "", false)
			}
		}
	}
	return res, nil
}
