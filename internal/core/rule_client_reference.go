package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewClientReferenceRule blocks projects that reference a missing client.
func NewClientReferenceRule() domain.Rule {
	return clientReferenceRule{}
}

type clientReferenceRule struct{}

func (clientReferenceRule) Name() string { return "client_reference" }

func (r clientReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, project := range changedProjects(changes) {
		if _, ok := view.FindClient(project.ClientID); ok {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("project %s references unknown client %q", project.ID, project.ClientID),
			Entity:   domain.EntityProject,
			EntityID: project.ID,
		})
	}
	return res, nil
}
