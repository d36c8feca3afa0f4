package kernel

// MatchPattern is the matcher's single primitive: given a PatternItem
// and a Value under an in-progress binding map, it returns the
// extended binding map, or ok=false for no match. Any matches anything
// and leaves the map unchanged; Binding looks up the name and requires
// agreement, or binds it fresh; Value requires exact (tolerance) value
// equality; Vec requires a matching-length KindList and threads the
// binding map left to right across elements.
//
// Grounded on the teacher's pattern.go Matche clause dispatch and
// core.go Bind/Walk, adapted from continuation-passing goal streams to
// a direct bindings-in/bindings-or-fail-out call.
func MatchPattern(item PatternItem, value Value, b Bindings) (Bindings, bool) {
	switch item.Kind {
	case PatternAny:
		return b, true
	case PatternBinding:
		return b.Bind(item.Binding, value)
	case PatternValueKind:
		if !item.Value.Equal(value) {
			return nil, false
		}
		return b, true
	case PatternVec:
		if value.Kind != KindList || len(value.List) != len(item.Vec) {
			return nil, false
		}
		cur := b
		var ok bool
		for i, sub := range item.Vec {
			cur, ok = MatchPattern(sub, value.List[i], cur)
			if !ok {
				return nil, false
			}
		}
		return cur, true
	default:
		return nil, false
	}
}

// MatchPatternVec matches a whole Pattern (ordered PatternItems) against
// a slice of Values positionally, threading bindings left to right.
func MatchPatternVec(pattern Pattern, values []Value, b Bindings) (Bindings, bool) {
	if len(pattern) != len(values) {
		return nil, false
	}
	cur := b
	var ok bool
	for i, item := range pattern {
		cur, ok = MatchPattern(item, values[i], cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ComparePatternItems compares two pattern items structurally, treating
// a binding on either side as a wildcard when allowUnbound is true
// (used by the learner's merge/deduplication, where equivalence is
// judged modulo variable renaming rather than by concrete value).
// When allowUnbound is false, both sides must be structurally
// identical: same kind, same value, same binding name, same vec shape.
func ComparePatternItems(a, b PatternItem, allowUnbound bool) bool {
	if allowUnbound && (a.Kind == PatternBinding || b.Kind == PatternBinding) {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PatternAny:
		return true
	case PatternBinding:
		return a.Binding == b.Binding
	case PatternValueKind:
		return a.Value.Equal(b.Value)
	case PatternVec:
		if len(a.Vec) != len(b.Vec) {
			return false
		}
		for i := range a.Vec {
			if !ComparePatternItems(a.Vec[i], b.Vec[i], allowUnbound) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ComparePatterns compares two Patterns elementwise via
// ComparePatternItems.
func ComparePatterns(a, b Pattern, allowUnbound bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ComparePatternItems(a[i], b[i], allowUnbound) {
			return false
		}
	}
	return true
}

// FillPattern resolves every PatternItem in pattern under bindings,
// replacing bound Bindings with their PatternValueKind equivalent.
// Items with no binding, or whose binding is unresolved, are left
// unchanged (this is used before emitting sub-goal facts and before
// value_vec_to_pattern_vec-style predictor steps).
func FillPattern(pattern Pattern, b Bindings) Pattern {
	out := make(Pattern, len(pattern))
	for i, item := range pattern {
		out[i] = fillItem(item, b)
	}
	return out
}

func fillItem(item PatternItem, b Bindings) PatternItem {
	switch item.Kind {
	case PatternBinding:
		if v, ok := b.Lookup(item.Binding); ok {
			return ValueItem(v)
		}
		return item
	case PatternVec:
		out := make([]PatternItem, len(item.Vec))
		for i, sub := range item.Vec {
			out[i] = fillItem(sub, b)
		}
		return PatternItem{Kind: PatternVec, Vec: out}
	default:
		return item
	}
}

// UnifyPatternItems unifies two PatternItems under a shared binding map:
// a binding on either side is resolved against the map if already bound,
// or bound to the other side's resolved value if the other side is
// concrete; two simultaneous unresolved bindings unify trivially (the
// caller treats them as equivalent without recording a value). Any
// matches anything. Two concrete values must be equal.
func UnifyPatternItems(a, b PatternItem, binds Bindings) (Bindings, bool) {
	if a.Kind == PatternAny || b.Kind == PatternAny {
		return binds, true
	}
	if a.Kind == PatternBinding {
		if v, ok := binds.Lookup(a.Binding); ok {
			return UnifyPatternItems(ValueItem(v), b, binds)
		}
		if b.Kind == PatternValueKind {
			return binds.Bind(a.Binding, b.Value)
		}
		return binds, true
	}
	if b.Kind == PatternBinding {
		return UnifyPatternItems(b, a, binds)
	}
	if a.Kind == PatternValueKind && b.Kind == PatternValueKind {
		if !a.Value.Equal(b.Value) {
			return nil, false
		}
		return binds, true
	}
	if a.Kind == PatternVec && b.Kind == PatternVec {
		if len(a.Vec) != len(b.Vec) {
			return nil, false
		}
		cur := binds
		var ok bool
		for i := range a.Vec {
			cur, ok = UnifyPatternItems(a.Vec[i], b.Vec[i], cur)
			if !ok {
				return nil, false
			}
		}
		return cur, true
	}
	return nil, false
}

// unifyEntityPatterns unifies two EntityPatternValues, binding a bound
// side to the other side's concrete id when possible.
func unifyEntityPatterns(a, b EntityPatternValue, binds Bindings) (Bindings, bool) {
	switch {
	case a.Kind == EntityConcrete && b.Kind == EntityConcrete:
		if a.ID != b.ID {
			return nil, false
		}
		return binds, true
	case a.Kind == EntityBound && b.Kind == EntityConcrete:
		return binds.Bind(a.Binding, EntityIDValue(b.ID))
	case a.Kind == EntityConcrete && b.Kind == EntityBound:
		return binds.Bind(b.Binding, EntityIDValue(a.ID))
	default:
		return binds, true
	}
}

// MatchFact compares two MkVal facts for backward-chaining purposes:
// var_name must match exactly, entity patterns unify (bindings act as
// wildcards and are recorded when the other side is concrete), and the
// value pattern unifies per UnifyPatternItems. Returns the bindings
// extended by the comparison.
func MatchFact(goal, candidate MkVal, b Bindings) (Bindings, bool) {
	if goal.VarName != candidate.VarName {
		return nil, false
	}
	cur, ok := unifyEntityPatterns(goal.Entity, candidate.Entity, b)
	if !ok {
		return nil, false
	}
	return UnifyPatternItems(goal.Value, candidate.Value, cur)
}

// MatchCommand compares two Commands (name, entity, positional params)
// the same way MatchFact compares MkVals.
func MatchCommand(goal, candidate Command, b Bindings) (Bindings, bool) {
	if goal.Name != candidate.Name {
		return nil, false
	}
	cur, ok := unifyEntityPatterns(goal.Entity, candidate.Entity, b)
	if !ok {
		return nil, false
	}
	if len(goal.Params) != len(candidate.Params) {
		return nil, false
	}
	for i := range goal.Params {
		cur, ok = UnifyPatternItems(goal.Params[i], candidate.Params[i], cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
