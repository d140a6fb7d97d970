package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewTaxIDUniqueRule blocks client creation when the tax ID is already in use.
// Updates are not checked.
func NewTaxIDUniqueRule() domain.Rule {
	return taxIDUniqueRule{}
}

type taxIDUniqueRule struct{}

func (taxIDUniqueRule) Name() string { return "tax_id_unique" }

func (r taxIDUniqueRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	var clients []domain.Client
	for _, ch := range changes {
		if ch.Entity != domain.EntityClient || ch.Action != domain.ActionCreate {
			continue
		}
		created, ok := ch.After.(domain.Client)
		if !ok {
			continue
		}
		if clients == nil {
			clients = view.ListClients()
		}
		holders := 0
		for _, c := range clients {
			if c.TaxID == created.TaxID {
				holders++
			}
		}
		if holders > 1 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     r.Name(),
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("tax id %s already registered", created.TaxID),
				Entity:   domain.EntityClient,
				EntityID: created.ID,
			})
		}
	}
	return res, nil
}
