package kernel

import "sort"

// BackwardChain traverses the goal → requirement-model → composite-
// state → sub-goal graph depth-first (each sub-goal is expanded
// recursively before the next causal model) with visited-set cycle breaking,
// returning the accumulated bound causal IMdls in discovery order
// (spec.md §4.4). Grounded on
// original_source/src/runtime/simulation/backward.rs.
func BackwardChain(sys *System, goal Goal) []IMdl {
	if GoalSatisfied(goal, sys.CurrentState) {
		return nil
	}
	var out []IMdl
	visited := []Goal{}
	backwardChainRec(sys, goal, &visited, &out)
	return out
}

func backwardChainRec(sys *System, goal Goal, visited *[]Goal, out *[]IMdl) {
	for _, v := range *visited {
		if AreGoalsEqual(v, goal) {
			return
		}
	}
	*visited = append(*visited, goal)

	for _, causal := range goalCausalModels(sys, goal) {
		model, binds := causal.model, causal.binds
		boundIMdl := model.Instantiate(binds)
		*out = append(*out, boundIMdl)

		for _, req := range requirementModelsFor(sys, model.ID) {
			reqBinds, ok := MapIMdlBindings(model, req.Right.Pattern.IMdl, binds)
			if !ok {
				continue
			}
			icst := req.Left.Pattern.ICst
			cst, ok := sys.Csts[icst.CstID]
			if !ok {
				continue
			}
			subGoal, ok := expandICstToSubGoal(cst, icst, reqBinds)
			if !ok {
				continue
			}
			for _, variation := range variationsOfSubGoal(sys, subGoal) {
				backwardChainRec(sys, variation, visited, out)
			}
		}
	}
}

type boundCausal struct {
	model *Mdl
	binds Bindings
}

// goalCausalModels selects every causal model whose RHS MkVal
// fact-matches some goal fact, skipping models whose RHS already equals
// the current state for that key (spec.md §4.4 step 2).
func goalCausalModels(sys *System, goal Goal) []boundCausal {
	var out []boundCausal
	for _, id := range sortedModelIDs(sys.Models) {
		model := sys.Models[id]
		if model.Class() != ClassCausal || !model.IsUsable() {
			continue
		}
		rhs := model.Right.Pattern.MkVal
		for _, goalFact := range goal {
			binds, ok := MatchFact(goalFact.Pattern, rhs, NewBindings())
			if !ok {
				continue
			}
			if alreadySatisfied(goalFact.Pattern, binds, sys.CurrentState) {
				continue
			}
			out = append(out, boundCausal{model: model, binds: binds})
		}
	}
	return out
}

func alreadySatisfied(goalFact MkVal, binds Bindings, state *SystemState) bool {
	entityID, ok := goalFact.Entity.Resolve(binds)
	if !ok {
		return false
	}
	key := NewEntityVariableKey(entityID, goalFact.VarName)
	v, ok := state.Variables[key]
	if !ok {
		return false
	}
	_, matched := MatchPattern(goalFact.Value, v, binds)
	return matched
}

// requirementModelsFor finds every requirement model whose inner IMdl
// references causalModelID (spec.md §4.4 step 4).
func requirementModelsFor(sys *System, causalModelID string) []*Mdl {
	var out []*Mdl
	for _, id := range sortedModelIDs(sys.Models) {
		model := sys.Models[id]
		if model.Class() != ClassRequirement {
			continue
		}
		if model.Right.Pattern.IMdl.ModelID == causalModelID {
			out = append(out, model)
		}
	}
	return out
}

// expandICstToSubGoal expands a requirement's LHS ICst into its
// contained facts with known bindings substituted (spec.md §4.4 step 5).
func expandICstToSubGoal(cst *Cst, icst ICst, binds Bindings) (Goal, bool) {
	filled, ok := cst.FillInBindings(icst, binds)
	if !ok {
		return nil, false
	}
	goal := make(Goal, len(cst.Facts))
	for i, f := range cst.Facts {
		mk := f.Pattern
		mk.Value = fillItem(mk.Value, filled)
		if mk.Entity.IsBinding() {
			if v, ok := filled.Lookup(mk.Entity.Binding); ok && v.Kind == KindEntityID {
				mk.Entity = ConcreteEntity(v.Str)
			}
		}
		goal[i] = NewFact(mk)
	}
	return goal, true
}

// variationsOfSubGoal enumerates the sub-goal itself plus variations
// obtained by cross-producting current values of every as-yet-unbound
// binding over facts that reference it (spec.md §4.4 step 5,
// create_variations_of_sub_goal).
func variationsOfSubGoal(sys *System, goal Goal) []Goal {
	unbound := unboundBindingsIn(goal)
	if len(unbound) == 0 {
		return []Goal{goal}
	}

	options := make(map[string][]Value)
	for _, name := range unbound {
		options[name] = currentValuesForBinding(sys, goal, name)
	}

	variations := []Goal{goal}
	for _, name := range unbound {
		vals := options[name]
		if len(vals) == 0 {
			continue
		}
		var next []Goal
		for _, base := range variations {
			for _, v := range vals {
				next = append(next, substituteBindingInGoal(base, name, v))
			}
		}
		variations = next
	}
	return variations
}

func unboundBindingsIn(goal Goal) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range goal {
		if f.Pattern.Entity.IsBinding() && !seen[f.Pattern.Entity.Binding] {
			seen[f.Pattern.Entity.Binding] = true
			out = append(out, f.Pattern.Entity.Binding)
		}
		for _, name := range (Pattern{f.Pattern.Value}).BindingNames() {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// currentValuesForBinding collects the distinct values the current
// state holds for any variable the goal's facts reference through name,
// in an order keyed on the stringified EntityVariableKey rather than Go
// map iteration order (spec.md §9, Determinism — this feeds
// variationsOfSubGoal's cross-product order during backward chaining).
func currentValuesForBinding(sys *System, goal Goal, name string) []Value {
	var out []Value
	for _, f := range goal {
		if f.Pattern.Value.Kind != PatternBinding || f.Pattern.Value.Binding != name {
			continue
		}
		var keys []EntityVariableKey
		for key := range sys.CurrentState.Variables {
			if key.VarName == f.Pattern.VarName {
				keys = append(keys, key)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].EntityID != keys[j].EntityID {
				return keys[i].EntityID < keys[j].EntityID
			}
			return keys[i].VarName < keys[j].VarName
		})
		for _, key := range keys {
			out = append(out, sys.CurrentState.Variables[key])
		}
	}
	return out
}

func substituteBindingInGoal(goal Goal, name string, v Value) Goal {
	out := make(Goal, len(goal))
	for i, f := range goal {
		mk := f.Pattern
		if mk.Value.Kind == PatternBinding && mk.Value.Binding == name {
			mk.Value = ValueItem(v)
		}
		out[i] = NewFact(mk)
	}
	return out
}

// sortedModelIDs returns model ids in sorted order so model iteration
// during chaining is stable and content-determined (spec.md §9,
// Determinism).
func sortedModelIDs(models map[string]*Mdl) []string {
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
