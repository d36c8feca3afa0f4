package kernel

import "testing"

func TestInstantiateCst(t *testing.T) {
	cst := &Cst{
		ID: "cst_obj",
		Facts: []Fact[MkVal]{
			NewFact(MkVal{Entity: BoundEntity("obj"), VarName: "position", Value: Binding("p")}),
		},
		Entities: []EntityDeclaration{{Binding: "obj", Class: "movable"}},
	}
	state := NewSystemState()
	state.Variables[NewEntityVariableKey("cube1", "position")] = NumberValue(5)
	state.Variables[NewEntityVariableKey("hand", "position")] = NumberValue(1)
	classes := map[string][]string{"movable": {"cube1"}}

	insts := InstantiateCst(cst, state, classes)
	if len(insts) != 1 {
		t.Fatalf("expected exactly one instance (hand excluded by class), got %d: %+v", len(insts), insts)
	}
	if v, ok := insts[0].Bindings.Lookup("obj"); !ok || v.Str != "cube1" {
		t.Fatalf("expected obj bound to cube1, got %v", v)
	}
	if v, ok := insts[0].Bindings.Lookup("p"); !ok || !v.Equal(NumberValue(5)) {
		t.Fatalf("expected p bound to 5, got %v", v)
	}
}

func TestInstantiateCstNoMatch(t *testing.T) {
	cst := &Cst{
		ID: "cst_obj",
		Facts: []Fact[MkVal]{
			NewFact(MkVal{Entity: ConcreteEntity("missing"), VarName: "position", Value: Binding("p")}),
		},
	}
	state := NewSystemState()
	state.Variables[NewEntityVariableKey("cube1", "position")] = NumberValue(5)

	if insts := InstantiateCst(cst, state, nil); len(insts) != 0 {
		t.Fatalf("expected no instances for a concrete entity absent from state, got %d", len(insts))
	}
}

func TestRecomputeInstantiatedCsts(t *testing.T) {
	cst := &Cst{
		ID: "cst_obj",
		Facts: []Fact[MkVal]{
			NewFact(MkVal{Entity: BoundEntity("obj"), VarName: "position", Value: Binding("p")}),
		},
	}
	state := NewSystemState()
	state.Variables[NewEntityVariableKey("cube1", "position")] = NumberValue(5)
	csts := map[string]*Cst{"cst_obj": cst}

	RecomputeInstantiatedCsts(state, csts, nil)
	if len(state.InstantiatedCst["cst_obj"]) != 1 {
		t.Fatalf("expected the cache to be populated with one instance, got %d", len(state.InstantiatedCst["cst_obj"]))
	}
}
