package kernel

// TimeKind discriminates a TimePatternValue.
type TimeKind int

const (
	TimeAny TimeKind = iota
	TimeExact
	TimeBinding
)

// TimePatternValue is one endpoint of a TimeRange: a wildcard, an exact
// logical time, or a binding. Only wildcard semantics are exercised by
// this engine (spec.md §1 Non-goals); the type still carries the other
// variants so seeds and facts round-trip unchanged.
type TimePatternValue struct {
	Kind    TimeKind
	Time    uint64
	Binding string
}

func AnyTime() TimePatternValue             { return TimePatternValue{Kind: TimeAny} }
func ExactTime(t uint64) TimePatternValue   { return TimePatternValue{Kind: TimeExact, Time: t} }

// TimeRange is a pair of TimePatternValue endpoints.
type TimeRange struct {
	From TimePatternValue
	To   TimePatternValue
}

// AnyTimeRange is the wildcard range used throughout seeds and facts.
func AnyTimeRange() TimeRange { return TimeRange{From: AnyTime(), To: AnyTime()} }

// MkVal is the payload of a fact: "this entity's this variable holds
// this value (pattern)". Assumption marks a fact produced by an
// assumption model rather than observed directly.
type MkVal struct {
	Entity     EntityPatternValue
	VarName    string
	Value      PatternItem
	Assumption bool
}

// Fact pairs an MkVal payload with a time range. Fact is generic over
// its payload type so Command-shaped facts (model LHS) reuse the same
// wrapper as MkVal-shaped facts.
type Fact[T any] struct {
	Pattern T
	Time    TimeRange
}

// NewFact wraps a payload with the wildcard time range, the only range
// this engine's matching logic exercises.
func NewFact[T any](pattern T) Fact[T] {
	return Fact[T]{Pattern: pattern, Time: AnyTimeRange()}
}

// Command is a model LHS payload: execute this named command against
// this entity with these positional parameters.
type Command struct {
	Name   string
	Entity EntityPatternValue
	Params Pattern
}

// EntityVariableKey is the key into the world state map.
type EntityVariableKey struct {
	EntityID string
	VarName  string
}

func NewEntityVariableKey(entityID, varName string) EntityVariableKey {
	return EntityVariableKey{EntityID: entityID, VarName: varName}
}

// EntityDeclaration names a Cst-local entity binding and the class its
// bound entity id must belong to.
type EntityDeclaration struct {
	Binding string
	Class   string
}

// Goal is a list of MkVal facts (with concrete values where known) the
// backward chainer is seeded with and the forward chainer aims to
// satisfy.
type Goal []Fact[MkVal]

// AreGoalsEqual compares two goals ignoring time (spec.md §4.4 visited
// set: "goals compared ignoring time").
func AreGoalsEqual(a, b Goal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Pattern.VarName != b[i].Pattern.VarName {
			return false
		}
		if a[i].Pattern.Entity.Kind != b[i].Pattern.Entity.Kind {
			return false
		}
		if a[i].Pattern.Entity.Kind == EntityConcrete && a[i].Pattern.Entity.ID != b[i].Pattern.Entity.ID {
			return false
		}
		if a[i].Pattern.Entity.Kind == EntityBound && a[i].Pattern.Entity.Binding != b[i].Pattern.Entity.Binding {
			return false
		}
		if !ComparePatternItems(a[i].Pattern.Value, b[i].Pattern.Value, false) {
			return false
		}
	}
	return true
}
