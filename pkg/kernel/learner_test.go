package kernel

import "testing"

func onlyCst(t *testing.T, sys *System) *Cst {
	t.Helper()
	if len(sys.Csts) != 1 {
		t.Fatalf("expected exactly one composite state, got %d", len(sys.Csts))
	}
	for _, cst := range sys.Csts {
		return cst
	}
	return nil
}

func onlyCausalModel(t *testing.T, sys *System) *Mdl {
	t.Helper()
	var found *Mdl
	for _, m := range sys.Models {
		if m.Class() == ClassCausal {
			if found != nil {
				t.Fatalf("expected exactly one causal model, found a second: %s", m.ID)
			}
			found = m
		}
	}
	if found == nil {
		t.Fatalf("expected a causal model to have been learned")
	}
	return found
}

// TestLearnCreatesNewTripletWithGuard exercises spec.md §4.6.1's
// unpredicted-change path: a move from position 2.0 to 5.0 with no
// prior predictions creates a new (Cst, causal Mdl, requirement Mdl)
// triplet, with a P+CMD guard recovered from the single premise binding
// and the command's single parameter.
func TestLearnCreatesNewTripletWithGuard(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	key := NewEntityVariableKey("h", "position")

	prev := NewSystemState()
	prev.Variables[key] = NumberValue(2.0)
	next := prev.Clone()
	next.Variables[key] = NumberValue(5.0)

	cmd := Command{Name: "move", Entity: ConcreteEntity("h"), Params: Pattern{ValueItem(NumberValue(3.0))}}
	Learn(sys, StepObservation{PrevState: prev, Command: cmd, NewState: next})

	if len(sys.Models) != 2 {
		t.Fatalf("expected one causal and one requirement model, got %d models", len(sys.Models))
	}
	cst := onlyCst(t, sys)
	if len(cst.Facts) != 1 {
		t.Fatalf("expected a single premise fact (the changed variable's prior value), got %d", len(cst.Facts))
	}

	causal := onlyCausalModel(t, sys)
	if causal.SuccessCount != 1 {
		t.Fatalf("expected a freshly learned model to start with SuccessCount=1, got %d", causal.SuccessCount)
	}
	if causal.Left.Pattern.Command.Name != "move" {
		t.Fatalf("expected the causal model's command name to be move, got %s", causal.Left.Pattern.Command.Name)
	}

	fwd, ok := causal.ForwardComputed["C0"]
	if !ok {
		t.Fatalf("expected a synthesized forward guard named C0, got %v", causal.ForwardComputed)
	}
	got, ok := fwd.Evaluate(Bindings{"P0": NumberValue(2.0), "CMD0": NumberValue(3.0)})
	if !ok || !got.Equal(NumberValue(5.0)) {
		t.Fatalf("expected the forward guard to recompute 5.0 from P0=2.0, CMD0=3.0, got %v (ok=%v)", got, ok)
	}

	bwd, ok := causal.BackwardComputed["CMD0"]
	if !ok {
		t.Fatalf("expected a synthesized backward guard named CMD0, got %v", causal.BackwardComputed)
	}
	got, ok = bwd.Evaluate(Bindings{"C0": NumberValue(5.0), "P0": NumberValue(2.0)})
	if !ok || !got.Equal(NumberValue(3.0)) {
		t.Fatalf("expected the backward guard to recover CMD0=3.0, got %v (ok=%v)", got, ok)
	}
}

// TestLearnOmitsPremiseFactForFirstObservation pins the fix for
// intersectingPremiseFacts fabricating a premise fact pinned to a
// zero Value when the changed variable had no prior value: a variable
// observed for the first time must produce a premise-fact-free Cst
// rather than one asserting a bogus "was 0" precondition.
func TestLearnOmitsPremiseFactForFirstObservation(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	key := NewEntityVariableKey("h", "position")

	prev := NewSystemState()
	next := prev.Clone()
	next.Variables[key] = NumberValue(5.0)

	cmd := Command{Name: "appear", Entity: ConcreteEntity("h"), Params: Pattern{}}
	Learn(sys, StepObservation{PrevState: prev, Command: cmd, NewState: next})

	cst := onlyCst(t, sys)
	if len(cst.Facts) != 0 {
		t.Fatalf("expected no premise facts for a variable with no prior value, got %d", len(cst.Facts))
	}
	causal := onlyCausalModel(t, sys)
	if len(causal.ForwardComputed) != 0 {
		t.Fatalf("expected no synthesized guard with no premise binding to search, got %v", causal.ForwardComputed)
	}
}

// TestLearnIntersectsOnNewValueAsWellAsPrior pins the fix requiring
// intersectingPremiseFacts to test inclusion against both the prior and
// the new value of the changed variable: a sibling variable on an
// unrelated entity that happens to share the *new* position value must
// still be pulled in as a premise fact, even though it shares nothing
// with the *prior* value.
func TestLearnIntersectsOnNewValueAsWellAsPrior(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	changedKey := NewEntityVariableKey("h", "position")
	siblingKey := NewEntityVariableKey("o", "marker")

	prev := NewSystemState()
	prev.Variables[changedKey] = NumberValue(2.0)
	prev.Variables[siblingKey] = NumberValue(5.0)
	next := prev.Clone()
	next.Variables[changedKey] = NumberValue(5.0)

	cmd := Command{Name: "move", Entity: ConcreteEntity("h"), Params: Pattern{ValueItem(NumberValue(3.0))}}
	Learn(sys, StepObservation{PrevState: prev, Command: cmd, NewState: next})

	cst := onlyCst(t, sys)
	foundMarker := false
	for _, f := range cst.Facts {
		if f.Pattern.VarName == "marker" {
			foundMarker = true
		}
	}
	if !foundMarker {
		t.Fatalf("expected the sibling marker fact (shared with the new value) to be pulled into the premise, got %v", cst.Facts)
	}
}

// TestLearnPromotesModelOnCorrectPrediction exercises the predicted-and-
// correct branch of Learn's per-step diff: no new triplet is created,
// and both the causal model and its requirement's composite state are
// promoted.
func TestLearnPromotesModelOnCorrectPrediction(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	key := NewEntityVariableKey("h", "position")

	cst := &Cst{ID: "cst1"}
	sys.Csts[cst.ID] = cst
	causal := NewMdl("mdl1",
		MdlLeft{Kind: LHSCommand, Command: Command{Name: "move", Entity: ConcreteEntity("h")}},
		MdlRight{Kind: RHSMkVal, MkVal: MkVal{Entity: ConcreteEntity("h"), VarName: "position"}},
	)
	sys.Models[causal.ID] = causal
	req := NewMdl("req1",
		MdlLeft{Kind: LHSCst, ICst: ICst{CstID: cst.ID}},
		MdlRight{Kind: RHSIMdl, IMdl: IMdl{ModelID: causal.ID}},
	)
	sys.Models[req.ID] = req

	prev := NewSystemState()
	prev.Variables[key] = NumberValue(1)
	next := prev.Clone()
	next.Variables[key] = NumberValue(5)

	pred := Prediction{Key: key, Value: NumberValue(5), Model: IMdl{ModelID: causal.ID}}
	Learn(sys, StepObservation{
		PrevState:   prev,
		Command:     Command{Name: "move", Entity: ConcreteEntity("h")},
		Predictions: []Prediction{pred},
		NewState:    next,
	})

	if causal.SuccessCount != 1 || causal.FailureCount != 0 {
		t.Fatalf("expected the causal model to be promoted, got success=%d failure=%d", causal.SuccessCount, causal.FailureCount)
	}
	if cst.SuccessCount != 1 || cst.FailureCount != 0 {
		t.Fatalf("expected the composite state to be promoted, got success=%d failure=%d", cst.SuccessCount, cst.FailureCount)
	}
	if len(sys.Models) != 2 {
		t.Fatalf("expected no new triplet for a correctly predicted change, got %d models", len(sys.Models))
	}
}

// TestLearnDemotesModelOnMissedPrediction exercises the predicted-but-
// wrong branch of Learn's per-step diff.
func TestLearnDemotesModelOnMissedPrediction(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	key := NewEntityVariableKey("h", "position")

	cst := &Cst{ID: "cst1"}
	sys.Csts[cst.ID] = cst
	causal := NewMdl("mdl1",
		MdlLeft{Kind: LHSCommand, Command: Command{Name: "move", Entity: ConcreteEntity("h")}},
		MdlRight{Kind: RHSMkVal, MkVal: MkVal{Entity: ConcreteEntity("h"), VarName: "position"}},
	)
	sys.Models[causal.ID] = causal
	req := NewMdl("req1",
		MdlLeft{Kind: LHSCst, ICst: ICst{CstID: cst.ID}},
		MdlRight{Kind: RHSIMdl, IMdl: IMdl{ModelID: causal.ID}},
	)
	sys.Models[req.ID] = req

	prev := NewSystemState()
	prev.Variables[key] = NumberValue(1)
	next := prev.Clone()
	next.Variables[key] = NumberValue(5)

	pred := Prediction{Key: key, Value: NumberValue(10), Model: IMdl{ModelID: causal.ID}}
	Learn(sys, StepObservation{
		PrevState:   prev,
		Command:     Command{Name: "move", Entity: ConcreteEntity("h")},
		Predictions: []Prediction{pred},
		NewState:    next,
	})

	if causal.FailureCount != 1 || causal.SuccessCount != 0 {
		t.Fatalf("expected the causal model to be demoted, got success=%d failure=%d", causal.SuccessCount, causal.FailureCount)
	}
	if cst.FailureCount != 1 {
		t.Fatalf("expected the composite state to be demoted, got failure=%d", cst.FailureCount)
	}
}

// TestLearnMergesSecondObservationIntoExistingTriplet replays spec.md
// §8 scenario 5 with real assertions (rather than printed counts): a
// second move observation that structurally matches the first must
// merge into the existing triplet and promote it, instead of leaving
// two independent causal models behind.
func TestLearnMergesSecondObservationIntoExistingTriplet(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	key := NewEntityVariableKey("h", "position")

	step := func(from, delta, to float64) {
		prev := NewSystemState()
		prev.Variables[key] = NumberValue(from)
		cmd := Command{Name: "move", Entity: ConcreteEntity("h"), Params: Pattern{ValueItem(NumberValue(delta))}}
		next := prev.Clone()
		next.Variables[key] = NumberValue(to)
		Learn(sys, StepObservation{PrevState: prev, Command: cmd, NewState: next})
	}

	step(2.0, 3.0, 5.0)
	if len(sys.Models) != 2 {
		t.Fatalf("expected one causal and one requirement model after the first observation, got %d", len(sys.Models))
	}
	if len(sys.Csts) != 1 {
		t.Fatalf("expected one composite state after the first observation, got %d", len(sys.Csts))
	}

	step(10.0, 4.0, 14.0)
	if len(sys.Models) != 2 {
		t.Fatalf("expected the second observation to merge rather than add a second triplet, got %d models", len(sys.Models))
	}
	// The second observation's own Cst is discarded, and the existing
	// requirement is repointed at a freshly built merged Cst — the first
	// observation's original Cst is left in place but no longer
	// referenced by any requirement model.
	if len(sys.Csts) != 2 {
		t.Fatalf("expected the first Cst plus the new merged Cst to remain, got %d", len(sys.Csts))
	}

	causal := onlyCausalModel(t, sys)
	if causal.SuccessCount != 2 {
		t.Fatalf("expected the merged model to be promoted to SuccessCount=2, got %d", causal.SuccessCount)
	}
}
