package kernel

// Cst is a composite state: a conjunctive fact template with its own
// binding parameters, plus entity-class declarations and promotion
// counters. Invariant: binding variables appearing in facts and entity
// declarations have a single value per bound instance.
type Cst struct {
	ID           string
	Facts        []Fact[MkVal]
	Entities     []EntityDeclaration
	SuccessCount int
	FailureCount int
}

// Confidence mirrors Mdl.Confidence (spec.md §3 applies the same
// counter-based confidence to composite states).
func (c *Cst) Confidence() float64 {
	total := c.SuccessCount + c.FailureCount
	if total == 0 {
		return 1
	}
	return float64(c.SuccessCount) / float64(total)
}

func (c *Cst) Promote() { c.SuccessCount++ }
func (c *Cst) Demote()  { c.FailureCount++ }

// BindingParams returns the Cst's binding parameters in deduplicated
// appearance order: for each fact its entity binding (if bound) then
// its value bindings, followed by the Entities declarations' bindings —
// the order ICst.Params is positional against (spec.md §3).
func (c *Cst) BindingParams() []string {
	seen := make(map[string]bool)
	var names []string
	add := func(more []string) {
		for _, n := range more {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	for _, f := range c.Facts {
		if f.Pattern.Entity.IsBinding() {
			add([]string{f.Pattern.Entity.Binding})
		}
		add(Pattern{f.Pattern.Value}.BindingNames())
	}
	for _, e := range c.Entities {
		add([]string{e.Binding})
	}
	return names
}

// InstantiatedCst is one bound instance of a Cst discovered by the
// composite-state instantiator: the Cst's id and the complete binding
// map satisfying every one of its facts against the current state.
type InstantiatedCst struct {
	CstID    string
	Bindings Bindings
}

// FillInBindings resolves an ICst's positional params against the Cst's
// BindingParams, returning b extended with every param given as a
// concrete value (binding params in inst are left unbound); ok is false
// on an arity mismatch or a conflicting value.
func (c *Cst) FillInBindings(inst ICst, b Bindings) (Bindings, bool) {
	names := c.BindingParams()
	if len(names) != len(inst.Params) {
		return nil, false
	}
	cur := b
	for i, name := range names {
		item := inst.Params[i]
		if item.Kind == PatternValueKind {
			var ok bool
			cur, ok = cur.Bind(name, item.Value)
			if !ok {
				return nil, false
			}
		}
	}
	return cur, true
}

// MatchesInstance reports whether an InstantiatedCst satisfies an ICst
// pattern under the given outer bindings — used by forward chaining
// (instantiateRequirements) and by assumption-model application to
// match a requirement model's LHS ICst against a state's cached
// instantiated Csts instead of re-running the instantiator.
func MatchesInstance(inst ICst, instantiated InstantiatedCst, target *Cst, outer Bindings) (Bindings, bool) {
	if inst.CstID != instantiated.CstID {
		return nil, false
	}
	names := target.BindingParams()
	if len(names) != len(inst.Params) {
		return nil, false
	}
	cur := outer
	for i, name := range names {
		v, ok := instantiated.Bindings.Lookup(name)
		if !ok {
			continue
		}
		cur, ok = UnifyPatternItems(inst.Params[i], ValueItem(v), cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
