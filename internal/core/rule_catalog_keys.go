package core

import (
	"context"
	"fmt"

	"envmon/pkg/domain"
)

// NewCatalogKeysRule blocks duplicate chemical CAS numbers and instrument ids.
func NewCatalogKeysRule() domain.Rule {
	return catalogKeysRule{}
}

type catalogKeysRule struct{}

func (catalogKeysRule) Name() string { return "catalog_keys" }

func (r catalogKeysRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, ch := range changes {
		if ch.Action != domain.ActionCreate {
			continue
		}
		switch after := ch.After.(type) {
		case domain.Chemical:
			n := 0
			for _, c := range view.ListChemicals() {
				if c.CASNumber == after.CASNumber {
					n++
				}
			}
			if n > 1 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("chemical %s already registered", after.CASNumber),
					Entity:   domain.EntityChemical,
					EntityID: after.CASNumber,
				})
			}
		case domain.Instrument:
			n := 0
			for _, in := range view.ListInstruments() {
				if in.ID == after.ID {
					n++
				}
			}
			if n > 1 {
				res.Violations = append(res.Violations, domain.Violation{
					Rule:     r.Name(),
					Severity: domain.SeverityBlock,
					Message:  fmt.Sprintf("instrument %s already registered", after.ID),
					Entity:   domain.EntityInstrument,
					EntityID: after.ID,
				})
			}
		}
	}
	return res, nil
}
