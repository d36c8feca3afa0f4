package kernel

// CompareModelEffects implements the structural comparator (spec.md
// §4.6.3): given two causal models and their composite states, it
// compares the causal models modulo binding renaming, builds a rename
// map from the candidate model's bindings to the existing model's,
// keeps only the facts of candidateCst that, once renamed, match a fact
// of existingCst, and requires the kept facts' bindings to cover every
// binding param of candidateCst. On success it returns the merged Cst
// (existingCst ∩ candidateCst); otherwise ok is false and no merge
// should occur.
//
// Grounded on
// original_source/src/runtime/learning/model_comparison.rs::compare_model_effects.
func CompareModelEffects(existing, candidate *Mdl, existingCst, candidateCst *Cst) (*Cst, bool) {
	// rename maps candidate-model bindings to existing-model bindings:
	// the merged Cst must end up expressed in the existing model's
	// binding names, since the existing requirement model's RHS IMdl
	// (left untouched) still refers to the existing causal model.
	rename := make(map[string]string)
	if !compareCausalModels(candidate, existing, rename) {
		return nil, false
	}

	var kept []Fact[MkVal]
	covered := make(map[string]bool)
	for _, f := range candidateCst.Facts {
		renamed, ok := renameFact(f.Pattern, rename)
		if !ok {
			continue
		}
		if !factMatchesAny(renamed, existingCst.Facts) {
			continue
		}
		kept = append(kept, NewFact(renamed))
		markCovered(renamed, covered)
	}

	// Only the candidate Cst's own binding params need to survive the
	// merge — rename also carries command/consequent bindings (e.g. a
	// guard's CMD/C names) that by construction never appear in any Cst
	// fact, so requiring coverage over the whole rename map would reject
	// every merge outright.
	for _, name := range candidateCst.BindingParams() {
		mapped, ok := rename[name]
		if !ok {
			mapped = name
		}
		if !covered[mapped] {
			return nil, false
		}
	}

	if !entityDeclarationsAgree(existingCst, candidateCst, rename) {
		return nil, false
	}

	merged := &Cst{Facts: kept, Entities: intersectEntityDeclarations(existingCst, candidateCst, rename)}
	return merged, true
}

// compareCausalModels requires identical discriminators (command name,
// RHS var_name) and recursively unifies the LHS/RHS patterns and any
// forward/backward guard functions, populating rename (from's bindings
// to to's bindings) as they are encountered; each variable gets at
// most one mapping.
func compareCausalModels(from, to *Mdl, rename map[string]string) bool {
	if from.Left.Pattern.Kind != LHSCommand || to.Left.Pattern.Kind != LHSCommand {
		return false
	}
	if from.Right.Pattern.Kind != RHSMkVal || to.Right.Pattern.Kind != RHSMkVal {
		return false
	}
	fl, tl := from.Left.Pattern.Command, to.Left.Pattern.Command
	if fl.Name != tl.Name {
		return false
	}
	if !entitiesCompatible(fl.Entity, tl.Entity) {
		return false
	}
	fr, tr := from.Right.Pattern.MkVal, to.Right.Pattern.MkVal
	if fr.VarName != tr.VarName {
		return false
	}
	if !entitiesCompatible(fr.Entity, tr.Entity) {
		return false
	}
	if len(fl.Params) != len(tl.Params) {
		return false
	}
	for i := range fl.Params {
		if !renamingCompatible(fl.Params[i], tl.Params[i], rename) {
			return false
		}
	}
	if !renamingCompatible(fr.Value, tr.Value, rename) {
		return false
	}
	for _, name := range sortedFunctionKeys(from.ForwardComputed) {
		toFn, ok := to.ForwardComputed[rename[name]]
		if !ok || !from.ForwardComputed[name].Equal(toFn, rename) {
			return false
		}
	}
	for _, name := range sortedFunctionKeys(from.BackwardComputed) {
		toFn, ok := to.BackwardComputed[rename[name]]
		if !ok || !from.BackwardComputed[name].Equal(toFn, rename) {
			return false
		}
	}
	return true
}

// entitiesCompatible requires two causal models to agree on which
// entity a command/consequent applies to. Learner-synthesized and
// seeded causal models alike always pin this to the concrete entity
// the observation or seed was authored against (never a binding), so
// this is a plain identity check rather than a renaming one — two
// triplets learned from different objects must never merge into a
// single rule that silently forgets which object it governs.
func entitiesCompatible(from, to EntityPatternValue) bool {
	if from.Kind != to.Kind {
		return false
	}
	if from.Kind == EntityConcrete {
		return from.ID == to.ID
	}
	return true
}

// renamingCompatible checks two PatternItems unify under a renaming
// discipline: a binding on the from side must map consistently to the
// to side's binding (recorded on first sight), concrete values must be
// equal.
func renamingCompatible(from, to PatternItem, rename map[string]string) bool {
	if from.Kind == PatternBinding && to.Kind == PatternBinding {
		if mapped, ok := rename[from.Binding]; ok {
			return mapped == to.Binding
		}
		rename[from.Binding] = to.Binding
		return true
	}
	if from.Kind == PatternValueKind && to.Kind == PatternValueKind {
		return from.Value.Equal(to.Value)
	}
	return false
}

func renameFact(mk MkVal, rename map[string]string) (MkVal, bool) {
	out := mk
	if mk.Entity.IsBinding() {
		// compareCausalModels never touches entity bindings (causal
		// models always pin a concrete entity, checked separately by
		// entitiesCompatible), so a premise fact's own entity binding has
		// no corresponding rename entry. Both triplets assign it from the
		// same fixed naming convention (bindingNamer restarts its PE
		// counter at zero per triplet), so the unrenamed binding already
		// lines up and is passed through as-is.
		if mapped, ok := rename[mk.Entity.Binding]; ok {
			out.Entity = BoundEntity(mapped)
		}
	}
	if mk.Value.Kind == PatternBinding {
		mapped, ok := rename[mk.Value.Binding]
		if !ok {
			return MkVal{}, false
		}
		out.Value = Binding(mapped)
	}
	return out, true
}

func factMatchesAny(f MkVal, candidates []Fact[MkVal]) bool {
	for _, c := range candidates {
		if c.Pattern.VarName != f.VarName {
			continue
		}
		if c.Pattern.Entity.Kind != f.Entity.Kind {
			continue
		}
		if c.Pattern.Entity.Kind == EntityBound && c.Pattern.Entity.Binding != f.Entity.Binding {
			continue
		}
		if !ComparePatternItems(c.Pattern.Value, f.Value, false) {
			continue
		}
		return true
	}
	return false
}

func markCovered(f MkVal, covered map[string]bool) {
	if f.Entity.IsBinding() {
		covered[f.Entity.Binding] = true
	}
	if f.Value.Kind == PatternBinding {
		covered[f.Value.Binding] = true
	}
}

func entityDeclarationsAgree(existingCst, candidateCst *Cst, rename map[string]string) bool {
	classOf := make(map[string]string, len(candidateCst.Entities))
	for _, e := range candidateCst.Entities {
		classOf[e.Binding] = e.Class
	}
	for _, e := range existingCst.Entities {
		candidateBinding := inverseLookup(rename, e.Binding)
		if candidateBinding == "" {
			continue
		}
		if class, ok := classOf[candidateBinding]; ok && class != e.Class {
			return false
		}
	}
	return true
}

// inverseLookup finds the candidate-side name for an existing-side
// binding. Entity bindings never appear in rename (see renameFact), so
// for those this falls back to existingName itself — correct because
// both triplets assign entity bindings from the same fixed naming
// convention, so an unrenamed entity binding already denotes the same
// position on both sides.
func inverseLookup(rename map[string]string, existingName string) string {
	found := ""
	for candidateName, mapped := range rename {
		if mapped == existingName && (found == "" || candidateName < found) {
			found = candidateName
		}
	}
	if found != "" {
		return found
	}
	return existingName
}

func intersectEntityDeclarations(existingCst, candidateCst *Cst, rename map[string]string) []EntityDeclaration {
	classOf := make(map[string]string, len(candidateCst.Entities))
	for _, e := range candidateCst.Entities {
		classOf[e.Binding] = e.Class
	}
	var out []EntityDeclaration
	for _, e := range existingCst.Entities {
		candidateBinding := inverseLookup(rename, e.Binding)
		if candidateBinding == "" {
			continue
		}
		if _, ok := classOf[candidateBinding]; ok {
			out = append(out, EntityDeclaration{Binding: e.Binding, Class: e.Class})
		}
	}
	return out
}
