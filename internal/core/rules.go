package core

import "envmon/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in integrity rules.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(NewClientReferenceRule())
	engine.Register(NewTaxIDUniqueRule())
	engine.Register(NewClientInUseRule())
	engine.Register(NewSamplingPointIDsRule())
	engine.Register(NewSamplingReferenceRule())
	engine.Register(NewCatalogKeysRule())
	engine.Register(NewPointCountRule())
	engine.Register(NewMonitoringVocabularyRule())
	return engine
}

// changedProjects returns the post-change state of created or updated projects.
func changedProjects(changes []Change) []Project {
	var out []Project
	for _, ch := range changes {
		if ch.Entity != domain.EntityProject || ch.Action == domain.ActionDelete {
			continue
		}
		if p, ok := ch.After.(Project); ok {
			out = append(out, p)
		}
	}
	return out
}
