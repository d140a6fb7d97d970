package domain

import (
	"context"
	"errors"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "point_count", Severity: SeverityWarn, Message: "點位數不符"}}})
	if result.HasBlocking() {
		t.Fatalf("warnings must not block")
	}
	result.Merge(Result{})
	if len(result.Violations) != 1 {
		t.Fatalf("empty merge changed violations: %+v", result.Violations)
	}
	result.Merge(Result{Violations: []Violation{
		{Rule: "tax_id_unique", Severity: SeverityBlock, Message: MsgTaxIDInUse},
		{Rule: "client_reference", Severity: SeverityBlock, Message: "客戶不存在"},
	}})
	if !result.HasBlocking() || len(result.Blocking()) != 2 {
		t.Fatalf("expected two blocking violations, got %+v", result.Blocking())
	}
	if got := (RuleViolationError{Result: result}).Error(); got != MsgTaxIDInUse+"; 客戶不存在" {
		t.Fatalf("unexpected error text %q", got)
	}
	if got := (RuleViolationError{}).Error(); got != "transaction blocked by rules" {
		t.Fatalf("unexpected fallback text %q", got)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(_ context.Context, view RuleView, changes []Change) (Result, error) {
	if len(view.ListClients()) != 1 || len(changes) != 1 {
		return Result{}, nil
	}
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn, Entity: changes[0].Entity}}}, nil
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, errors.New("boom")
}

type oneClientView struct{}

func (oneClientView) ListClients() []Client                 { return []Client{{ID: "CLIENT_001"}} }
func (oneClientView) ListProjects() []Project               { return nil }
func (oneClientView) ListSamplingRecords() []SamplingRecord { return nil }
func (oneClientView) ListChemicals() []Chemical             { return nil }
func (oneClientView) ListInstruments() []Instrument         { return nil }
func (oneClientView) FindClient(id string) (Client, bool)   { return Client{ID: id}, id == "CLIENT_001" }
func (oneClientView) FindProject(string) (Project, bool)    { return Project{}, false }
func (oneClientView) MonitoringCatalog() MonitoringCatalog  { return nil }

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"first"})
	engine.Register(staticRule{"second"})
	changes := []Change{{Entity: EntityProject, Action: ActionCreate}}
	res, err := engine.Evaluate(context.Background(), oneClientView{}, changes)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "first" || res.Violations[1].Entity != EntityProject {
		t.Fatalf("expected violations in registration order, got %+v", res.Violations)
	}
	if rules := engine.Rules(); len(rules) != 2 || rules[1].Name() != "second" {
		t.Fatalf("unexpected rules %+v", rules)
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"ok"})
	engine.Register(errorRule{})
	if _, err := engine.Evaluate(context.Background(), oneClientView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
}
