package kernel

// Prediction is the predictor's output: the state variable it expects
// to change, the value it expects, and the bound causal IMdl that
// produced the prediction (used by both planning and the learner's
// per-step diff, spec.md §4.6).
type Prediction struct {
	Key   EntityVariableKey
	Value Value
	Model IMdl
}

// AntiRequirementInstance is an instantiated anti-requirement model:
// the IMdl it points its veto at (the anti-requirement's RHS IMdl
// resolved against the instantiated composite state that made it
// applicable).
type AntiRequirementInstance struct {
	Target IMdl
}

// PredictStateChange applies a bound causal model to state and returns
// the predicted successor state, or ok=false if the model cannot be
// evaluated or is vetoed. Steps follow spec.md §4.3:
//  1. evaluate forward-computed functions to fill missing bindings,
//  2. resolve the RHS MkVal's entity and value,
//  3. veto if an instantiable anti-requirement targets this model with
//     matching params,
//  4. write the single variable and recompute the instantiated-Cst
//     cache on the successor.
func PredictStateChange(sys *System, state *SystemState, model *Mdl, inst IMdl, binds Bindings, antiInsts []AntiRequirementInstance) (*SystemState, Prediction, bool) {
	if model.Right.Pattern.Kind != RHSMkVal {
		return nil, Prediction{}, false
	}

	cur := binds
	for _, name := range sortedFunctionKeys(model.ForwardComputed) {
		if _, bound := cur.Lookup(name); bound {
			continue
		}
		fn := model.ForwardComputed[name]
		v, ok := fn.Evaluate(cur)
		if !ok {
			continue
		}
		cur, ok = cur.Bind(name, v)
		if !ok {
			return nil, Prediction{}, false
		}
	}

	mk := model.Right.Pattern.MkVal
	entityID, ok := mk.Entity.Resolve(cur)
	if !ok {
		return nil, Prediction{}, false
	}
	value, ok := resolvePatternValue(mk.Value, cur)
	if !ok {
		return nil, Prediction{}, false
	}

	if isVetoed(model.ID, inst, antiInsts) {
		return nil, Prediction{}, false
	}

	key := NewEntityVariableKey(entityID, mk.VarName)
	next := state.WithValue(key, value)
	RecomputeInstantiatedCsts(next, sys.Csts, sys.EntitiesInClasses)

	return next, Prediction{Key: key, Value: value, Model: model.Instantiate(cur)}, true
}

func resolvePatternValue(item PatternItem, b Bindings) (Value, bool) {
	switch item.Kind {
	case PatternValueKind:
		return item.Value, true
	case PatternBinding:
		return b.Lookup(item.Binding)
	default:
		return Value{}, false
	}
}

// isVetoed reports whether any anti-requirement instance names this
// model id with params unifiable against inst's params.
func isVetoed(modelID string, inst IMdl, antiInsts []AntiRequirementInstance) bool {
	for _, anti := range antiInsts {
		if anti.Target.ModelID != modelID {
			continue
		}
		if _, ok := unifyPatterns(anti.Target.Params, inst.Params); ok {
			return true
		}
	}
	return false
}

func unifyPatterns(a, b Pattern) (Bindings, bool) {
	if len(a) != len(b) {
		return nil, false
	}
	cur := NewBindings()
	var ok bool
	for i := range a {
		cur, ok = UnifyPatternItems(a[i], b[i], cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// PredictReuseModel predicts via a reuse model: the inner causal IMdl
// (reuse.Left.Pattern.IMdl) is resolved against the reuse model's own
// bindings, then PredictStateChange applies against the resolved
// causal model (spec.md §4.3: "For a reuse model, predict by first
// resolving the inner causal IMdl... then applying 1-3").
func PredictReuseModel(sys *System, state *SystemState, reuse *Mdl, binds Bindings, antiInsts []AntiRequirementInstance) (*SystemState, Prediction, bool) {
	if reuse.Left.Pattern.Kind != LHSIMdl || reuse.Right.Pattern.Kind != RHSIMdl {
		return nil, Prediction{}, false
	}
	innerID := reuse.Left.Pattern.IMdl.ModelID
	causal, ok := sys.Models[innerID]
	if !ok || causal.Class() != ClassCausal {
		return nil, Prediction{}, false
	}
	innerBinds, ok := MapIMdlBindings(causal, reuse.Left.Pattern.IMdl, binds)
	if !ok {
		return nil, Prediction{}, false
	}
	innerInst := causal.Instantiate(innerBinds)
	return PredictStateChange(sys, state, causal, innerInst, innerBinds, antiInsts)
}
