package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewClientInUseRule blocks deleting a client while projects still reference it.
func NewClientInUseRule() domain.Rule {
	return clientInUseRule{}
}

type clientInUseRule struct{}

func (clientInUseRule) Name() string { return "client_in_use" }

func (r clientInUseRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ch := range changes {
		if ch.Entity != domain.EntityClient || ch.Action != domain.ActionDelete {
			continue
		}
		deleted, ok := ch.Before.(domain.Client)
		if !ok {
			continue
		}
		refs := 0
		for _, p := range view.ListProjects() {
			if p.ClientID == deleted.ID {
				refs++
			}
		}
		if refs > 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("client %s still referenced by %d projects", deleted.ID, refs),
				Entity:   domain.EntityClient,
				EntityID: deleted.ID,
			})
		}
	}
	return res, nil
}
