package kernel

import "sort"

// bindingNamer assigns the stable binding-name convention spec.md
// §4.6.1 describes and original_source/src/runtime/learning/ctpx.rs
// implements: PE-prefix for premise entities (one per distinct entity
// id), P-prefix for premise value atoms, CMD-prefix for
// command-parameter atoms, C-prefix for consequent atoms. The command's
// own entity gets no binding: namedCommand keeps it as observed, so no
// CMD_E name is ever assigned.
type bindingNamer struct {
	counters map[string]int
	values   map[string]Value
	premise  []string
}

func newBindingNamer() *bindingNamer {
	return &bindingNamer{counters: make(map[string]int), values: make(map[string]Value)}
}

// nameFor assigns a fresh prefixed binding name (prefix plus the next
// counter value for that prefix; key is not consulted, so a name is
// never reused), and
// remembers which names were assigned for "P" (premise) atoms so
// synthesizeGuard can search them for a numeric identity.
func (bm *bindingNamer) nameFor(prefix string, key EntityVariableKey) string {
	n := bm.counters[prefix]
	bm.counters[prefix] = n + 1
	name := prefix + itoa(n)
	if prefix == "P" {
		bm.premise = append(bm.premise, name)
	}
	return name
}

func (bm *bindingNamer) nameForEntity(prefix string, e EntityPatternValue) string {
	n := bm.counters[prefix]
	bm.counters[prefix] = n + 1
	return prefix + itoa(n)
}

func (bm *bindingNamer) recordValue(name string, v Value) {
	bm.values[name] = v
}

func (bm *bindingNamer) valueOf(name string) (Value, bool) {
	v, ok := bm.values[name]
	return v, ok
}

// hasCommandParams reports whether any CMD-prefixed binding was
// assigned — false for a zero-argument command, where synthesizeGuard
// must fall back to a constant-diff guard instead of a P+CMD one.
func (bm *bindingNamer) hasCommandParams() bool {
	return bm.counters["CMD"] > 0
}

func (bm *bindingNamer) premiseNumericBindings() []string {
	var out []string
	for _, name := range bm.premise {
		if v, ok := bm.values[name]; ok && v.IsNumeric() {
			out = append(out, name)
		}
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		digits = append([]byte{'-'}, digits...)
	}
	return string(digits)
}

// changeIntersectsEntityVar is the inclusion test for a new composite
// state's premise facts (spec.md §4.6.1): it is true for the changed
// variable itself, for any other variable of the changed variable's
// entity, and for any variable whose value equals changedValue. Values
// are compared whole with Value.Equal; the elements of a list value are
// not searched for a shared atom. Grounded on
// original_source/src/runtime/learning/utils.rs::change_intersects_entity_var.
func changeIntersectsEntityVar(key EntityVariableKey, value Value, changedKey EntityVariableKey, changedValue Value) bool {
	if key == changedKey {
		return true
	}
	return key.EntityID == changedKey.EntityID || value.Equal(changedValue)
}

// intersectingPremiseFacts builds the premise fact list and per-class
// entity declarations for a new composite state: one fact per
// intersecting (key, value) pair, the changed fact forced first, one
// entity binding per distinct entity id encountered (spec.md §4.6.1,
// original_source/src/runtime/learning/cst.rs::form_new_cst_for_state).
// newValue is the post-command value of changedKey (state is always
// obs.PrevState), so intersection is tested against both the before
// and after value of the change, matching
// original_source/src/runtime/learning/utils.rs's
// extract_values_from_change, which unions atomic values from both
// sides rather than the prior value alone.
func intersectingPremiseFacts(sys *System, state *SystemState, changedKey EntityVariableKey, newValue Value, bm *bindingNamer) ([]Fact[MkVal], []EntityDeclaration) {
	prevValue, hadPrevValue := state.Variables[changedKey]

	entityBindingOf := make(map[string]string)
	entityOf := func(entityID string) string {
		if name, ok := entityBindingOf[entityID]; ok {
			return name
		}
		name := bm.nameForEntity("PE", EntityPatternValue{})
		entityBindingOf[entityID] = name
		return name
	}

	var facts []Fact[MkVal]
	var entities []EntityDeclaration

	addFact := func(key EntityVariableKey, value Value) {
		valueName := bm.nameFor("P", key)
		bm.recordValue(valueName, value)
		entityName := entityOf(key.EntityID)
		facts = append(facts, NewFact(MkVal{
			Entity:  BoundEntity(entityName),
			VarName: key.VarName,
			Value:   Binding(valueName),
		}))
	}

	intersects := func(key EntityVariableKey, value Value) bool {
		if hadPrevValue && changeIntersectsEntityVar(key, value, changedKey, prevValue) {
			return true
		}
		return changeIntersectsEntityVar(key, value, changedKey, newValue)
	}

	for _, key := range sortedVariableKeys(state.Variables) {
		if key == changedKey {
			continue
		}
		value := state.Variables[key]
		if intersects(key, value) {
			addFact(key, value)
		}
	}
	// The changed variable's own premise fact pins its prior value — it
	// is only forced in when a prior value actually existed (spec.md
	// §4.6.1: "the changed fact (if any prior value existed)"); a
	// first-ever observation of changedKey has no pre-command value to
	// describe and must not fabricate one.
	if hadPrevValue {
		addFact(changedKey, prevValue)
		if n := len(facts); n > 1 {
			facts[0], facts[n-1] = facts[n-1], facts[0]
		}
	}

	entityIDs := make([]string, 0, len(entityBindingOf))
	for entityID := range entityBindingOf {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)
	for _, entityID := range entityIDs {
		entities = append(entities, EntityDeclaration{Binding: entityBindingOf[entityID], Class: classOfEntity(sys, entityID)})
	}
	return facts, entities
}

// classOfEntity reverse-looks-up entityID's registered class; an
// entity not yet registered to any class is declared under its own id
// as a single-member class so instantiation can still recognize it.
func classOfEntity(sys *System, entityID string) string {
	for class, members := range sys.EntitiesInClasses {
		if classContains(members, entityID) {
			return class
		}
	}
	return entityID
}
