package kernel

import "time"

// Observer supplies the tick's external input: a snapshot of variables
// updated since the last tick (spec.md §4.7 step 2). The transport
// collaborator implements this; tests can supply a stub.
type Observer interface {
	Observe() map[EntityVariableKey]Value
}

// Emitter accepts the tick's output command. A nil Command signals the
// no_action sentinel (spec.md §7, Planner exhaustion).
type Emitter interface {
	Emit(cmd *Command)
}

// Tick runs one outer-loop step (spec.md §4.7). The sleep at step 1 is
// the caller's responsibility when driving a real-time loop; Run below
// does it. Tick itself is pure with respect to time so tests can drive
// it without waiting.
func Tick(sys *System, obs Observer, emit Emitter) {
	newState := sys.CurrentState.Clone()
	for key, v := range obs.Observe() {
		newState.Variables[key] = v
	}

	if sys.lastCommand != nil {
		Learn(sys, StepObservation{
			PrevState:   sys.lastPrevState,
			Command:     *sys.lastCommand,
			Predictions: sys.lastPredictions,
			NewState:    newState,
		})
	}
	sys.CurrentState = newState

	RecomputeInstantiatedCsts(sys.CurrentState, sys.Csts, sys.EntitiesInClasses)
	applyAssumptionModels(sys)
	RecomputeInstantiatedCsts(sys.CurrentState, sys.Csts, sys.EntitiesInClasses)

	if !sys.lastWasBabble {
		if g, ok := sys.CurrentGoal(); ok && GoalSatisfied(g, sys.CurrentState) {
			sys.AdvanceGoal()
		}
	}

	prevState := sys.CurrentState

	var chosen *Command
	var goalRequirements []IMdl
	babble := false
	if len(sys.BabbleQueue) > 0 {
		cmd := sys.BabbleQueue[0]
		sys.BabbleQueue = sys.BabbleQueue[1:]
		chosen = &cmd
		babble = true
	} else {
		for _, g := range sys.Goals {
			reqs := BackwardChain(sys, g)
			plan := ForwardChain(sys, g, reqs)
			if len(plan) > 0 {
				cmd := plan[0]
				chosen = &cmd
				goalRequirements = reqs
				break
			}
		}
	}

	emit.Emit(chosen)

	if chosen == nil {
		sys.lastCommand = nil
		sys.lastPrevState = nil
		sys.lastPredictions = nil
		sys.lastWasBabble = false
	} else {
		var predictions []Prediction
		if pred, ok := PredictionForCommand(sys, prevState, *chosen, goalRequirements); ok {
			predictions = []Prediction{pred}
		}
		cmd := *chosen
		sys.lastCommand = &cmd
		sys.lastPrevState = prevState
		sys.lastPredictions = predictions
		sys.lastWasBabble = babble
	}

	sys.CurrentState.Time = sys.CurrentState.Time.Advance(uint64(sys.Config.TickInterval / time.Millisecond))
}

// Run drives Tick in real time until stop is closed (spec.md §4.7 step
// 1 and §5: one thread of control for the outer loop).
func Run(sys *System, obs Observer, emit Emitter, stop <-chan struct{}) {
	ticker := time.NewTicker(sys.Config.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			Tick(sys, obs, emit)
		}
	}
}

// applyAssumptionModels instantiates every assumption model against the
// current state's Cst cache and writes its derived RHS MkVal as a state
// variable (spec.md §3 "assumption" class; §4.7 step 4). Grounded on
// original_source/src/runtime/runtime_main.rs's call to
// compute_and_set_assumptions before planning.
func applyAssumptionModels(sys *System) {
	for _, id := range sortedModelIDs(sys.Models) {
		model := sys.Models[id]
		if model.Class() != ClassAssumption {
			continue
		}
		icst := model.Left.Pattern.ICst
		cst, ok := sys.Csts[icst.CstID]
		if !ok {
			continue
		}
		for _, inst := range sys.CurrentState.InstantiatedCst[icst.CstID] {
			binds, ok := MatchesInstance(icst, inst, cst, NewBindings())
			if !ok {
				continue
			}
			mk := model.Right.Pattern.MkVal
			entityID, ok := mk.Entity.Resolve(binds)
			if !ok {
				continue
			}
			value, ok := resolvePatternValue(mk.Value, binds)
			if !ok {
				continue
			}
			sys.CurrentState.Variables[NewEntityVariableKey(entityID, mk.VarName)] = value
		}
	}
}

// PredictionForCommand re-derives the Prediction a chosen command
// corresponds to by replaying the forward chainer's candidate
// construction at state and matching on the resulting Command — used by
// the scheduler to record learner input for the next tick (spec.md
// §4.7 step 8).
func PredictionForCommand(sys *System, state *SystemState, cmd Command, goalRequirements []IMdl) (Prediction, bool) {
	fs := &forwardSearch{sys: sys}
	for _, cand := range fs.mergedCandidates(state, goalRequirements) {
		if !commandsEqual(cand.command, cmd) {
			continue
		}
		_, pred, ok := fs.predict(state, cand)
		if ok {
			return pred, true
		}
	}
	return Prediction{}, false
}

func commandsEqual(a, b Command) bool {
	if a.Name != b.Name || len(a.Params) != len(b.Params) {
		return false
	}
	if a.Entity.Kind != b.Entity.Kind {
		return false
	}
	if a.Entity.Kind == EntityConcrete && a.Entity.ID != b.Entity.ID {
		return false
	}
	if a.Entity.Kind == EntityBound && a.Entity.Binding != b.Entity.Binding {
		return false
	}
	for i := range a.Params {
		if !ComparePatternItems(a.Params[i], b.Params[i], false) {
			return false
		}
	}
	return true
}
