package seed

import (
	"testing"

	"github.com/gitrdm/causalkernel/pkg/kernel"
)

func TestRegistryHasBuiltinSeeds(t *testing.T) {
	for _, name := range []string{"blocksworld", "empty"} {
		if _, ok := Registry[name]; !ok {
			t.Fatalf("expected %q to be registered", name)
		}
	}
}

func TestBlocksworldSeedsReachableGoal(t *testing.T) {
	sys := kernel.NewSystem(kernel.DefaultConfig())
	Blocksworld(sys)

	g, ok := sys.CurrentGoal()
	if !ok {
		t.Fatalf("expected a pushed goal")
	}
	if kernel.GoalSatisfied(g, sys.CurrentState) {
		t.Fatalf("goal should not already be satisfied at seed time")
	}

	reqs := kernel.BackwardChain(sys, g)
	if len(reqs) == 0 {
		t.Fatalf("expected backward chaining to find at least one requirement for the goal")
	}
	plan := kernel.ForwardChain(sys, g, reqs)
	if len(plan) == 0 {
		t.Fatalf("expected a non-empty plan to the goal")
	}
}

// TestBlocksworldScenario1SingleStepReach pins spec.md §8 scenario 1's
// exact plan: hand.position 1.0 -> 5.0 is a single move(4.0).
func TestBlocksworldScenario1SingleStepReach(t *testing.T) {
	sys := kernel.NewSystem(kernel.DefaultConfig())
	Blocksworld(sys)

	if len(sys.Goals) < 1 {
		t.Fatalf("expected at least one pushed goal, got %d", len(sys.Goals))
	}
	goal := sys.Goals[0]
	reqs := kernel.BackwardChain(sys, goal)
	plan := kernel.ForwardChain(sys, goal, reqs)

	if len(plan) != 1 {
		t.Fatalf("expected a single-step plan, got %d steps: %v", len(plan), plan)
	}
	if plan[0].Name != "move" {
		t.Fatalf("expected move, got %s", plan[0].Name)
	}
	if len(plan[0].Params) != 1 || !plan[0].Params[0].Value.Equal(kernel.NumberValue(4.0)) {
		t.Fatalf("expected move(4.0), got move(%v)", plan[0].Params)
	}
}

// TestBlocksworldScenario2TwoStepReachViaPush pins spec.md §8 scenario
// 2's exact plan: obj.position 5.0 -> 6.0 needs the hand moved into the
// object (move(4.0)) before it can be pushed (push()).
func TestBlocksworldScenario2TwoStepReachViaPush(t *testing.T) {
	sys := kernel.NewSystem(kernel.DefaultConfig())
	Blocksworld(sys)

	if len(sys.Goals) < 2 {
		t.Fatalf("expected a second pushed goal for scenario 2, got %d", len(sys.Goals))
	}
	goal := sys.Goals[1]
	reqs := kernel.BackwardChain(sys, goal)
	plan := kernel.ForwardChain(sys, goal, reqs)

	if len(plan) != 2 {
		t.Fatalf("expected a two-step plan, got %d steps: %v", len(plan), plan)
	}
	if plan[0].Name != "move" || len(plan[0].Params) != 1 || !plan[0].Params[0].Value.Equal(kernel.NumberValue(4.0)) {
		t.Fatalf("expected move(4.0) first, got %s(%v)", plan[0].Name, plan[0].Params)
	}
	if plan[1].Name != "push" {
		t.Fatalf("expected push second, got %s", plan[1].Name)
	}
}

func TestBlocksworldModelArityMatchesBindingParams(t *testing.T) {
	sys := kernel.NewSystem(kernel.DefaultConfig())
	Blocksworld(sys)

	for _, reqID := range []string{"mdl_move_req", "mdl_push_req"} {
		req, ok := sys.Models[reqID]
		if !ok {
			t.Fatalf("expected %s to be seeded", reqID)
		}
		target, ok := sys.Models[req.Right.Pattern.IMdl.ModelID]
		if !ok {
			t.Fatalf("expected %s's target model to be seeded", reqID)
		}
		want := len(target.BindingParams())
		got := len(req.Right.Pattern.IMdl.Params)
		if got != want {
			t.Fatalf("%s: IMdl.Params has %d entries, target model BindingParams() has %d", reqID, got, want)
		}
	}
}

func TestEmptySeedHasNoModels(t *testing.T) {
	sys := kernel.NewSystem(kernel.DefaultConfig())
	Empty(sys)

	if len(sys.Models) != 0 || len(sys.Csts) != 0 {
		t.Fatalf("expected a cold start with no models or composite states")
	}
	if _, ok := sys.CurrentState.Variables[kernel.NewEntityVariableKey("h", "position")]; !ok {
		t.Fatalf("expected the hand's initial position to be set")
	}
}
