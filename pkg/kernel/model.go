package kernel

import "sort"

// ModelPromotionThreshold is the confidence below which a model is
// ignored for planning and learning (spec.md §3).
const ModelPromotionThreshold = 0.59

// IMdl is a model instance: a reference to a model by id with
// positional arguments over the target model's binding parameters, plus
// any forward-guard bindings already resolved when this instance was
// constructed during chaining.
type IMdl struct {
	ModelID           string
	Params            Pattern
	ForwardGuardBinds Bindings
}

// ICst is a composite-state instance: a reference to a Cst by id with
// positional arguments over the Cst's declared binding parameters.
type ICst struct {
	CstID  string
	Params Pattern
}

// LHSKind discriminates Mdl.Left's payload.
type LHSKind int

const (
	LHSCst LHSKind = iota
	LHSCommand
	LHSMkVal
	LHSIMdl
)

// MdlLeft is the tagged union for a model's left-hand side.
type MdlLeft struct {
	Kind    LHSKind
	ICst    ICst
	Command Command
	MkVal   MkVal
	IMdl    IMdl
}

// RHSKind discriminates Mdl.Right's payload.
type RHSKind int

const (
	RHSIMdl RHSKind = iota
	RHSMkVal
	RHSGoal
)

// MdlRight is the tagged union for a model's right-hand side. Negated
// true marks an anti-fact (spec.md §3, anti-requirement classification);
// the zero value is the ordinary, non-negated polarity so a normal
// requirement model needs no explicit field.
type MdlRight struct {
	Kind    RHSKind
	IMdl    IMdl
	MkVal   MkVal
	Goal    Goal
	Negated bool
}

// ModelClass classifies an Mdl by the shape of its LHS/RHS (spec.md §3).
type ModelClass int

const (
	ClassCausal ModelClass = iota
	ClassRequirement
	ClassAssumption
	ClassReuse
	ClassAntiRequirement
	ClassUnknown
)

// Mdl is a model: a rule relating a left fact to a right fact, with
// the bindings needed to compute any right-side values the left side
// does not supply directly, and promotion counters.
type Mdl struct {
	ID               string
	Left             Fact[MdlLeft]
	Right            Fact[MdlRight]
	ForwardComputed  map[string]Function
	BackwardComputed map[string]Function
	SuccessCount     int
	FailureCount     int
}

// NewMdl constructs a model with zeroed counters and the wildcard time
// range on both sides.
func NewMdl(id string, left MdlLeft, right MdlRight) *Mdl {
	return &Mdl{
		ID:               id,
		Left:             NewFact(left),
		Right:            NewFact(right),
		ForwardComputed:  make(map[string]Function),
		BackwardComputed: make(map[string]Function),
	}
}

// Confidence is success/(success+failure); a model with no observations
// yet is treated as fully confident so seeded models can be used
// immediately (matches original_source/src/runtime/seed.rs, whose
// seeded models set confidence: 1.0).
func (m *Mdl) Confidence() float64 {
	total := m.SuccessCount + m.FailureCount
	if total == 0 {
		return 1
	}
	return float64(m.SuccessCount) / float64(total)
}

// IsUsable reports whether the model's confidence clears the promotion
// threshold.
func (m *Mdl) IsUsable() bool {
	return m.Confidence() >= ModelPromotionThreshold
}

// Promote increments the success counter.
func (m *Mdl) Promote() { m.SuccessCount++ }

// Demote increments the failure counter.
func (m *Mdl) Demote() { m.FailureCount++ }

// Class classifies the model by its LHS/RHS shape.
func (m *Mdl) Class() ModelClass {
	switch {
	case m.Left.Pattern.Kind == LHSCommand && m.Right.Pattern.Kind == RHSMkVal:
		return ClassCausal
	case m.Left.Pattern.Kind == LHSCst && m.Right.Pattern.Kind == RHSIMdl && m.Right.Pattern.Negated:
		return ClassAntiRequirement
	case m.Left.Pattern.Kind == LHSCst && m.Right.Pattern.Kind == RHSIMdl:
		return ClassRequirement
	case m.Left.Pattern.Kind == LHSCst && m.Right.Pattern.Kind == RHSMkVal && m.Right.Pattern.MkVal.Assumption:
		return ClassAssumption
	case m.Left.Pattern.Kind == LHSIMdl && m.Right.Pattern.Kind == RHSIMdl:
		return ClassReuse
	default:
		return ClassUnknown
	}
}

// BindingParams returns the model's binding parameters in deduplicated
// appearance order over the left and right fact values, then over the
// names referenced by ForwardComputed and BackwardComputed functions (in
// sorted key order) — the order spec.md §3 says ICst/IMdl positional
// params are interpreted against.
func (m *Mdl) BindingParams() []string {
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
	switch m.Left.Pattern.Kind {
	case LHSCst:
		add(Pattern(m.Left.Pattern.ICst.Params).BindingNames())
	case LHSCommand:
		add(Pattern(m.Left.Pattern.Command.Params).BindingNames())
	case LHSMkVal:
		add(Pattern{m.Left.Pattern.MkVal.Value}.BindingNames())
	case LHSIMdl:
		add(Pattern(m.Left.Pattern.IMdl.Params).BindingNames())
	}
	switch m.Right.Pattern.Kind {
	case RHSIMdl:
		add(Pattern(m.Right.Pattern.IMdl.Params).BindingNames())
	case RHSMkVal:
		add(Pattern{m.Right.Pattern.MkVal.Value}.BindingNames())
	}
	for _, name := range sortedFunctionKeys(m.ForwardComputed) {
		add(m.ForwardComputed[name].BindingParams())
	}
	for _, name := range sortedFunctionKeys(m.BackwardComputed) {
		add(m.BackwardComputed[name].BindingParams())
	}
	return names
}

// sortedFunctionKeys gives BindingParams a stable traversal order over a
// guard-function map — plain Go map iteration is randomized, which would
// make an IMdl's param ordering (and thus its arity check against
// MapIMdlBindings) depend on process-specific hash seeding.
func sortedFunctionKeys(m map[string]Function) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Instantiate builds an IMdl referencing this model, with params
// ordered per BindingParams and resolved from bindings where present
// (unresolved names fall back to a fresh Binding pattern item so the
// instance can still be further unified later).
func (m *Mdl) Instantiate(b Bindings) IMdl {
	names := m.BindingParams()
	params := make(Pattern, len(names))
	for i, name := range names {
		if v, ok := b.Lookup(name); ok {
			params[i] = ValueItem(v)
		} else {
			params[i] = Binding(name)
		}
	}
	return IMdl{ModelID: m.ID, Params: params, ForwardGuardBinds: b.Clone()}
}

// MapIMdlBindings resolves an IMdl's positional params against the
// target model's BindingParams, returning the binding map the params
// imply (spec.md: "Params are positional over the target model's
// binding parameters").
func MapIMdlBindings(target *Mdl, inst IMdl, b Bindings) (Bindings, bool) {
	names := target.BindingParams()
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
