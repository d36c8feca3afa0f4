package kernel

import "fmt"

// PatternKind discriminates the PatternItem tagged union.
type PatternKind int

const (
	// PatternAny is the wildcard; it matches anything without binding.
	PatternAny PatternKind = iota
	// PatternBinding names a variable to be looked up or bound.
	PatternBinding
	// PatternValue carries a concrete Value to be matched exactly.
	PatternValueKind
	// PatternVec carries a nested sequence, matched against a KindList Value.
	PatternVec
)

// PatternItem is one element of a Pattern: a wildcard, a named binding,
// a concrete value, or a nested vector of pattern items.
type PatternItem struct {
	Kind    PatternKind
	Binding string
	Value   Value
	Vec     []PatternItem
}

func Any() PatternItem                       { return PatternItem{Kind: PatternAny} }
func Binding(name string) PatternItem        { return PatternItem{Kind: PatternBinding, Binding: name} }
func ValueItem(v Value) PatternItem          { return PatternItem{Kind: PatternValueKind, Value: v} }
func VecItem(items ...PatternItem) PatternItem { return PatternItem{Kind: PatternVec, Vec: items} }

// String renders a PatternItem for logs and traces.
func (p PatternItem) String() string {
	switch p.Kind {
	case PatternAny:
		return "_"
	case PatternBinding:
		return "?" + p.Binding
	case PatternValueKind:
		return p.Value.String()
	case PatternVec:
		return fmt.Sprintf("%v", p.Vec)
	default:
		return "<invalid pattern item>"
	}
}

// IsFullyUnbound reports whether the item, and everything nested inside
// it, is a binding or wildcard — i.e. carries no concrete value yet.
func (p PatternItem) IsFullyUnbound() bool {
	switch p.Kind {
	case PatternAny, PatternBinding:
		return true
	case PatternVec:
		for _, item := range p.Vec {
			if !item.IsFullyUnbound() {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ContainsBinding reports whether name appears anywhere within the item.
func (p PatternItem) ContainsBinding(name string) bool {
	switch p.Kind {
	case PatternBinding:
		return p.Binding == name
	case PatternVec:
		for _, item := range p.Vec {
			if item.ContainsBinding(name) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Pattern is an ordered sequence of PatternItems, used for model and
// composite-state instance parameter lists.
type Pattern []PatternItem

// BindingNames returns the distinct binding names appearing in the
// pattern, in first-appearance order (the order spec.md's
// Cst.binding_params / Mdl.binding_params rely on).
func (p Pattern) BindingNames() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(PatternItem)
	walk = func(item PatternItem) {
		switch item.Kind {
		case PatternBinding:
			if !seen[item.Binding] {
				seen[item.Binding] = true
				names = append(names, item.Binding)
			}
		case PatternVec:
			for _, sub := range item.Vec {
				walk(sub)
			}
		}
	}
	for _, item := range p {
		walk(item)
	}
	return names
}

// EntityPatternKind discriminates EntityPatternValue.
type EntityPatternKind int

const (
	EntityConcrete EntityPatternKind = iota
	EntityBound
)

// EntityPatternValue is either a concrete entity id or a binding name
// that resolves to one under a binding map.
type EntityPatternValue struct {
	Kind    EntityPatternKind
	ID      string
	Binding string
}

func ConcreteEntity(id string) EntityPatternValue { return EntityPatternValue{Kind: EntityConcrete, ID: id} }
func BoundEntity(name string) EntityPatternValue  { return EntityPatternValue{Kind: EntityBound, Binding: name} }

// Resolve looks up the entity id this value denotes under bindings.
// Concrete ids resolve to themselves; bound names must already carry an
// EntityID value in the bindings, else resolution fails.
func (e EntityPatternValue) Resolve(b Bindings) (string, bool) {
	switch e.Kind {
	case EntityConcrete:
		return e.ID, true
	case EntityBound:
		v, ok := b.Lookup(e.Binding)
		if !ok || v.Kind != KindEntityID {
			return "", false
		}
		return v.Str, true
	default:
		return "", false
	}
}

// IsBinding reports whether this entity value is a binding reference.
func (e EntityPatternValue) IsBinding() bool { return e.Kind == EntityBound }

// String renders an EntityPatternValue for logs.
func (e EntityPatternValue) String() string {
	if e.Kind == EntityBound {
		return "?" + e.Binding
	}
	return e.ID
}
