package kernel

import "testing"

// buildMoveScenario mirrors pkg/seed's mdl_move/mdl_move_req pair (a
// single causal model reachable from one composite state) but scoped to
// this package so forward-chain tests don't need to import pkg/seed.
func buildMoveScenario(t *testing.T) (*System, Goal) {
	t.Helper()
	sys := NewSystem(DefaultConfig())

	cst := &Cst{
		ID: "cst_e_pos",
		Facts: []Fact[MkVal]{
			NewFact(MkVal{Entity: ConcreteEntity("e"), VarName: "pos", Value: Binding("p")}),
		},
	}
	sys.Csts[cst.ID] = cst

	causal := NewMdl("mdl_move",
		MdlLeft{Kind: LHSCommand, Command: Command{Name: "move", Entity: ConcreteEntity("e"), Params: Pattern{Binding("dp")}}},
		MdlRight{Kind: RHSMkVal, MkVal: MkVal{Entity: ConcreteEntity("e"), VarName: "pos", Value: Binding("np")}},
	)
	causal.ForwardComputed["np"] = AddFunc(ValueFunc(Binding("p")), ValueFunc(Binding("dp")))
	causal.BackwardComputed["dp"] = SubFunc(ValueFunc(Binding("np")), ValueFunc(Binding("p")))
	sys.Models[causal.ID] = causal

	req := NewMdl("mdl_move_req",
		MdlLeft{Kind: LHSCst, ICst: ICst{CstID: cst.ID, Params: Pattern{Binding("p")}}},
		MdlRight{Kind: RHSIMdl, IMdl: IMdl{ModelID: causal.ID, Params: Pattern{Any(), Binding("np"), Binding("p")}}},
	)
	sys.Models[req.ID] = req

	sys.SetVariable(NewEntityVariableKey("e", "pos"), NumberValue(1))
	RecomputeInstantiatedCsts(sys.CurrentState, sys.Csts, sys.EntitiesInClasses)

	goal := Goal{NewFact(MkVal{Entity: ConcreteEntity("e"), VarName: "pos", Value: ValueItem(NumberValue(5))})}
	return sys, goal
}

func TestForwardChainFindsSingleStepPlan(t *testing.T) {
	sys, goal := buildMoveScenario(t)
	reqs := BackwardChain(sys, goal)
	if len(reqs) == 0 {
		t.Fatalf("expected backward chaining to find at least one requirement")
	}

	plan := ForwardChain(sys, goal, reqs)
	if len(plan) != 1 {
		t.Fatalf("expected a single-step plan, got %d steps: %v", len(plan), plan)
	}
	if plan[0].Name != "move" {
		t.Fatalf("expected move, got %s", plan[0].Name)
	}
	if len(plan[0].Params) != 1 || !plan[0].Params[0].Value.Equal(NumberValue(4)) {
		t.Fatalf("expected move(4), got move(%v)", plan[0].Params)
	}
}

func TestForwardChainNoPlanWhenAlreadySatisfied(t *testing.T) {
	sys, _ := buildMoveScenario(t)
	goal := Goal{NewFact(MkVal{Entity: ConcreteEntity("e"), VarName: "pos", Value: ValueItem(NumberValue(1))})}

	reqs := BackwardChain(sys, goal)
	if reqs != nil {
		t.Fatalf("expected no backward-chain requirements for an already-satisfied goal, got %v", reqs)
	}
	plan := ForwardChain(sys, goal, reqs)
	if len(plan) != 0 {
		t.Fatalf("expected no plan for an already-satisfied goal, got %v", plan)
	}
}

func TestForwardChainNoPlanWhenUnreachable(t *testing.T) {
	sys := NewSystem(DefaultConfig())
	sys.SetVariable(NewEntityVariableKey("e", "pos"), NumberValue(1))
	goal := Goal{NewFact(MkVal{Entity: ConcreteEntity("e"), VarName: "pos", Value: ValueItem(NumberValue(5))})}

	reqs := BackwardChain(sys, goal)
	plan := ForwardChain(sys, goal, reqs)
	if len(plan) != 0 {
		t.Fatalf("expected no plan with no models seeded, got %v", plan)
	}
}

// TestExpandMinGoalDepthIsCallDepthIndependent pins the fix for a bug
// where MinGoalDepth tracked absolute depth-from-root instead of
// remaining distance-to-goal from the node's own state. A state one
// command away from the goal must report the same MinGoalDepth (1)
// whether expand is first reached at call-depth 0 or call-depth 5 —
// otherwise observedStates memoization reuses a node whose bookkeeping
// no longer describes distance-to-goal at the new call site.
func TestExpandMinGoalDepthIsCallDepthIndependent(t *testing.T) {
	sys, goal := buildMoveScenario(t)
	reqs := BackwardChain(sys, goal)

	newSearch := func() *forwardSearch {
		return &forwardSearch{
			sys:            sys,
			goal:           goal,
			observedStates: make(map[uint64]*observedStateEntry),
			minSolution:    sys.Config.MaxForwardChainDepth + 1,
			startTime:      timeNow(),
			deadline:       sys.Config.ForwardChainDeadline,
			maxDepth:       sys.Config.MaxForwardChainDepth,
		}
	}

	atZero := newSearch().expand(sys.CurrentState, 0, reqs)
	atFive := newSearch().expand(sys.CurrentState, 5, reqs)

	if atZero == nil || atFive == nil {
		t.Fatalf("expected both expansions to find a node, got %v / %v", atZero, atFive)
	}
	if atZero.Depth != 0 || atFive.Depth != 5 {
		t.Fatalf("expected Depth to track the call depth (0, 5), got (%d, %d)", atZero.Depth, atFive.Depth)
	}
	if atZero.MinGoalDepth != 1 || atFive.MinGoalDepth != 1 {
		t.Fatalf("expected MinGoalDepth = 1 regardless of call depth, got (%d, %d)", atZero.MinGoalDepth, atFive.MinGoalDepth)
	}
}

// TestExpandMemoizationReusesNodeAcrossDepths exercises the same
// invariant through the shared observedStates cache rather than by
// constructing two independent searches: the same state hash reached
// first at a shallower call is cached and must still be valid
// (MinGoalDepth relative, not absolute) when a deeper call later looks
// it up.
func TestExpandMemoizationReusesNodeAcrossDepths(t *testing.T) {
	sys, goal := buildMoveScenario(t)
	reqs := BackwardChain(sys, goal)

	fs := &forwardSearch{
		sys:            sys,
		goal:           goal,
		observedStates: make(map[uint64]*observedStateEntry),
		minSolution:    sys.Config.MaxForwardChainDepth + 1,
		startTime:      timeNow(),
		deadline:       sys.Config.ForwardChainDeadline,
		maxDepth:       sys.Config.MaxForwardChainDepth,
	}

	shallow := fs.expand(sys.CurrentState, 0, reqs)
	if shallow == nil || shallow.MinGoalDepth != 1 {
		t.Fatalf("expected the shallow call to resolve MinGoalDepth=1, got %v", shallow)
	}

	// The cache entry recorded MinDepth=0, so a later call at a deeper d
	// (0 <= 3) is eligible to reuse the same node. The shallow call found
	// a solution at depth 1 and lowered minSolution to 1, which expand
	// checks before the cache; restore the bound so the deeper call
	// reaches the cache lookup.
	fs.minSolution = sys.Config.MaxForwardChainDepth + 1
	deep := fs.expand(sys.CurrentState, 3, reqs)
	if deep == nil {
		t.Fatalf("expected the cached node to be returned for the deeper call")
	}
	if deep.MinGoalDepth != 1 {
		t.Fatalf("expected the reused cached node's MinGoalDepth to still be 1, got %d", deep.MinGoalDepth)
	}
}
