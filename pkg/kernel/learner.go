package kernel

import "github.com/google/uuid"

// StepObservation is the learner's per-step input: the state before a
// command executed, the command itself, the predictions that were made
// for it, and the state observed afterward (spec.md §4.6).
type StepObservation struct {
	PrevState   *SystemState
	Command     Command
	Predictions []Prediction
	NewState    *SystemState
}

// Learn processes one step's diff: unpredicted changes create new
// triplets (and attempt a merge with an existing one); correctly
// predicted changes promote their model and composite state; missed
// predictions demote them. Grounded on
// original_source/src/runtime/learning/mod.rs::extract_patterns.
func Learn(sys *System, obs StepObservation) {
	predicted := make(map[EntityVariableKey]Prediction, len(obs.Predictions))
	for _, p := range obs.Predictions {
		predicted[p.Key] = p
	}

	for _, key := range sortedVariableKeys(obs.NewState.Variables) {
		newValue := obs.NewState.Variables[key]
		prevValue, existed := obs.PrevState.Variables[key]
		changed := !existed || !prevValue.Equal(newValue)

		if pred, wasPredicted := predicted[key]; wasPredicted {
			if pred.Value.Equal(newValue) {
				promoteModelAndCst(sys, pred.Model.ModelID)
			} else {
				demoteModelAndCst(sys, pred.Model.ModelID)
			}
			continue
		}

		if !changed {
			continue
		}
		createNewTriplet(sys, obs, key, newValue)
	}
}

func promoteModelAndCst(sys *System, modelID string) {
	if m, ok := sys.Models[modelID]; ok {
		m.Promote()
		if cst, ok := cstIDOfRequirementTargeting(sys, modelID); ok {
			sys.Csts[cst].Promote()
		}
	}
}

func demoteModelAndCst(sys *System, modelID string) {
	if m, ok := sys.Models[modelID]; ok {
		m.Demote()
		if cst, ok := cstIDOfRequirementTargeting(sys, modelID); ok {
			sys.Csts[cst].Demote()
		}
	}
}

func cstIDOfRequirementTargeting(sys *System, causalModelID string) (string, bool) {
	for _, req := range requirementModelsFor(sys, causalModelID) {
		return req.Left.Pattern.ICst.CstID, true
	}
	return "", false
}

// createNewTriplet forms a new (composite-state, causal-model,
// requirement-model) triplet for an unpredicted change, then attempts
// a structural merge with an equivalent existing triplet (spec.md
// §4.6.1, §4.6.2). Grounded on
// original_source/src/runtime/learning/ctpx.rs.
func createNewTriplet(sys *System, obs StepObservation, changedKey EntityVariableKey, newValue Value) {
	bindMap := newBindingNamer()

	premiseFacts, premiseEntities := intersectingPremiseFacts(sys, obs.PrevState, changedKey, newValue, bindMap)

	cst := &Cst{
		ID:       "cst_" + uuid.NewString(),
		Facts:    premiseFacts,
		Entities: premiseEntities,
	}

	consequentName := bindMap.nameFor("C", changedKey)

	causal := NewMdl("mdl_"+uuid.NewString(),
		MdlLeft{Kind: LHSCommand, Command: namedCommand(obs.Command, bindMap)},
		MdlRight{Kind: RHSMkVal, MkVal: MkVal{
			Entity:  ConcreteEntity(changedKey.EntityID),
			VarName: changedKey.VarName,
			Value:   Binding(consequentName),
		}},
	)
	if guard, bguard, ok := synthesizeGuard(bindMap, consequentName, newValue); ok {
		causal.ForwardComputed[consequentName] = guard
		for name, fn := range bguard {
			causal.BackwardComputed[name] = fn
		}
	}
	causal.SuccessCount = 1

	requirement := NewMdl("mdl_"+uuid.NewString(),
		MdlLeft{Kind: LHSCst, ICst: ICst{CstID: cst.ID, Params: bindingPattern(cst.BindingParams())}},
		MdlRight{Kind: RHSIMdl, IMdl: IMdl{ModelID: causal.ID, Params: bindingPattern(causal.BindingParams())}},
	)
	requirement.SuccessCount = 1

	sys.Csts[cst.ID] = cst
	sys.Models[causal.ID] = causal
	sys.Models[requirement.ID] = requirement

	mergeWithExistingTriplet(sys, cst, causal, requirement)
}

func bindingPattern(names []string) Pattern {
	out := make(Pattern, len(names))
	for i, n := range names {
		out[i] = Binding(n)
	}
	return out
}

// namedCommand rewrites a command's concrete parameters into fresh
// CMD-prefixed bindings, recording each concrete value so
// synthesizeGuard can test it for a numeric identity with a premise
// binding.
func namedCommand(cmd Command, bm *bindingNamer) Command {
	params := make(Pattern, len(cmd.Params))
	for i, p := range cmd.Params {
		name := bm.nameFor("CMD", EntityVariableKey{EntityID: cmd.Name, VarName: itoa(i)})
		if p.Kind == PatternValueKind {
			bm.recordValue(name, p.Value)
		}
		params[i] = Binding(name)
	}
	return Command{Name: cmd.Name, Entity: cmd.Entity, Params: params}
}

// synthesizeGuard searches for a numeric identity between a premise
// binding and the changed consequent value (spec.md §4.6.1). It uses the
// first numeric premise binding P: consequent = P + CMD0 when that sum
// equals the observed value (CMD0 being the command's first parameter),
// otherwise consequent = P + constant. Later premise bindings and later
// command parameters are not tried. Returns nil, nil, false when no
// numeric premise binding exists, in
// which case the binding remains unguarded and the model is filtered
// during planning.
func synthesizeGuard(bm *bindingNamer, consequentName string, newValue Value) (Function, map[string]Function, bool) {
	if !newValue.IsNumeric() {
		return Function{}, nil, false
	}
	for _, premiseName := range bm.premiseNumericBindings() {
		pv, ok := bm.valueOf(premiseName)
		if !ok || !pv.IsNumeric() {
			continue
		}
		if cv, ok := bm.valueOf("CMD0"); bm.hasCommandParams() && ok && cv.IsNumeric() && NumberValue(pv.Number+cv.Number).Equal(newValue) {
			fwd := AddFunc(ValueFunc(Binding(premiseName)), ValueFunc(Binding("CMD0")))
			bwd := map[string]Function{
				"CMD0": SubFunc(ValueFunc(Binding(consequentName)), ValueFunc(Binding(premiseName))),
			}
			return fwd, bwd, true
		}
		diff := NumberValue(newValue.Number - pv.Number)
		fwd := AddFunc(ValueFunc(Binding(premiseName)), ValueFunc(ValueItem(diff)))
		bwd := map[string]Function{
			premiseName: SubFunc(ValueFunc(Binding(consequentName)), ValueFunc(ValueItem(diff))),
		}
		return fwd, bwd, true
	}
	return Function{}, nil, false
}

// mergeWithExistingTriplet searches for an existing requirement+causal
// pair whose quick-match criteria agree with the newly created triplet
// (same command name, same consequent var_name, same IMdl arity), then
// runs the structural comparator. On success it promotes the existing
// causal model, rewrites its requirement's LHS to the merged Cst, and
// deletes the new triplet (spec.md §4.6.2).
func mergeWithExistingTriplet(sys *System, newCst *Cst, newCausal, newRequirement *Mdl) {
	for _, id := range sortedModelIDs(sys.Models) {
		existing := sys.Models[id]
		if existing.ID == newCausal.ID || existing.Class() != ClassCausal {
			continue
		}
		if !quickMatch(existing, newCausal) {
			continue
		}
		existingReq, ok := findRequirementFor(sys, existing.ID)
		if !ok {
			continue
		}
		if len(existingReq.Right.Pattern.IMdl.Params) != len(newRequirement.Right.Pattern.IMdl.Params) {
			continue
		}
		existingCst, ok := sys.Csts[existingReq.Left.Pattern.ICst.CstID]
		if !ok {
			continue
		}
		merged, ok := CompareModelEffects(existing, newCausal, existingCst, newCst)
		if !ok {
			continue
		}
		merged.ID = "cst_" + uuid.NewString()
		sys.Csts[merged.ID] = merged
		existingReq.Left.Pattern.ICst = ICst{CstID: merged.ID, Params: bindingPattern(merged.BindingParams())}
		existing.Promote()

		delete(sys.Csts, newCst.ID)
		delete(sys.Models, newCausal.ID)
		delete(sys.Models, newRequirement.ID)
		return
	}
}

// quickMatch implements spec.md §4.6.2's quick-match: same command name
// on the causal LHS, same var_name on the causal RHS (the arity of the
// associated requirement models' IMdl params is compared by the caller,
// mergeWithExistingTriplet).
func quickMatch(a, b *Mdl) bool {
	if a.Left.Pattern.Kind != LHSCommand || b.Left.Pattern.Kind != LHSCommand {
		return false
	}
	if a.Right.Pattern.Kind != RHSMkVal || b.Right.Pattern.Kind != RHSMkVal {
		return false
	}
	return a.Left.Pattern.Command.Name == b.Left.Pattern.Command.Name &&
		a.Right.Pattern.MkVal.VarName == b.Right.Pattern.MkVal.VarName
}

func findRequirementFor(sys *System, causalModelID string) (*Mdl, bool) {
	reqs := requirementModelsFor(sys, causalModelID)
	if len(reqs) == 0 {
		return nil, false
	}
	return reqs[0], true
}
