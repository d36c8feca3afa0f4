package kernel

// FunctionKind discriminates the Function tagged union.
type FunctionKind int

const (
	FuncValue FunctionKind = iota
	FuncAdd
	FuncSub
	FuncMul
	FuncDiv
	FuncList
	FuncConvertToEntityID
	FuncConvertToNumber
)

// Function is an arithmetic/conversion expression tree over
// PatternItems, used for forward/backward-computed model guards.
// Evaluation under a binding map returns a Value if every leaf
// binding resolves and every operator applies to compatible kinds;
// otherwise it is undefined and the caller must treat the candidate as
// unusable (spec.md §7, "missing binding").
type Function struct {
	Kind  FunctionKind
	Leaf  PatternItem
	Left  *Function
	Right *Function
	Items []Function
}

func ValueFunc(item PatternItem) Function { return Function{Kind: FuncValue, Leaf: item} }
func AddFunc(l, r Function) Function      { return Function{Kind: FuncAdd, Left: &l, Right: &r} }
func SubFunc(l, r Function) Function      { return Function{Kind: FuncSub, Left: &l, Right: &r} }
func MulFunc(l, r Function) Function      { return Function{Kind: FuncMul, Left: &l, Right: &r} }
func DivFunc(l, r Function) Function      { return Function{Kind: FuncDiv, Left: &l, Right: &r} }
func ListFunc(items ...Function) Function { return Function{Kind: FuncList, Items: items} }
func ConvertToEntityIDFunc(inner Function) Function {
	return Function{Kind: FuncConvertToEntityID, Left: &inner}
}
func ConvertToNumberFunc(inner Function) Function {
	return Function{Kind: FuncConvertToNumber, Left: &inner}
}

// Evaluate resolves f to a concrete Value under bindings. ok is false
// whenever a leaf binding is unresolved or an operator is applied to
// incompatible kinds.
func (f Function) Evaluate(b Bindings) (Value, bool) {
	switch f.Kind {
	case FuncValue:
		return evaluateLeaf(f.Leaf, b)
	case FuncAdd, FuncSub, FuncMul, FuncDiv:
		left, ok := f.Left.Evaluate(b)
		if !ok {
			return Value{}, false
		}
		right, ok := f.Right.Evaluate(b)
		if !ok {
			return Value{}, false
		}
		return left.Arith(arithOpFor(f.Kind), right)
	case FuncList:
		out := make([]Value, len(f.Items))
		for i, item := range f.Items {
			v, ok := item.Evaluate(b)
			if !ok {
				return Value{}, false
			}
			out[i] = v
		}
		return ListValue(out), true
	case FuncConvertToEntityID:
		v, ok := f.Left.Evaluate(b)
		if !ok {
			return Value{}, false
		}
		switch v.Kind {
		case KindEntityID:
			return v, true
		case KindString:
			return EntityIDValue(v.Str), true
		default:
			return Value{}, false
		}
	case FuncConvertToNumber:
		v, ok := f.Left.Evaluate(b)
		if !ok {
			return Value{}, false
		}
		if !v.IsNumeric() {
			return Value{}, false
		}
		return NumberValue(v.Number), true
	default:
		return Value{}, false
	}
}

func evaluateLeaf(item PatternItem, b Bindings) (Value, bool) {
	switch item.Kind {
	case PatternValueKind:
		return item.Value, true
	case PatternBinding:
		return b.Lookup(item.Binding)
	default:
		return Value{}, false
	}
}

func arithOpFor(k FunctionKind) arithOp {
	switch k {
	case FuncAdd:
		return opAdd
	case FuncSub:
		return opSub
	case FuncMul:
		return opMul
	case FuncDiv:
		return opDiv
	default:
		return opAdd
	}
}

// BindingParams returns the distinct binding names this function tree
// references, in traversal order (used when a function is part of a
// model's binding-param enumeration).
func (f Function) BindingParams() []string {
	seen := make(map[string]bool)
	var names []string
	var walk func(Function)
	walk = func(fn Function) {
		if fn.Kind == FuncValue && fn.Leaf.Kind == PatternBinding {
			if !seen[fn.Leaf.Binding] {
				seen[fn.Leaf.Binding] = true
				names = append(names, fn.Leaf.Binding)
			}
			return
		}
		if fn.Left != nil {
			walk(*fn.Left)
		}
		if fn.Right != nil {
			walk(*fn.Right)
		}
		for _, item := range fn.Items {
			walk(item)
		}
	}
	walk(f)
	return names
}

// Equal compares two function trees structurally, optionally building
// a binding-rename map as bindings are encountered (used by the
// learner's structural comparator, spec.md §4.6.3 step 1). rename maps
// names in f to names in other; each variable gets at most one mapping.
func (f Function) Equal(other Function, rename map[string]string) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case FuncValue:
		return equalLeafRenaming(f.Leaf, other.Leaf, rename)
	case FuncAdd, FuncSub, FuncMul, FuncDiv, FuncConvertToEntityID, FuncConvertToNumber:
		if f.Left != nil && other.Left != nil {
			if !f.Left.Equal(*other.Left, rename) {
				return false
			}
		} else if f.Left != other.Left {
			return false
		}
		if f.Right != nil && other.Right != nil {
			return f.Right.Equal(*other.Right, rename)
		}
		return f.Right == other.Right
	case FuncList:
		if len(f.Items) != len(other.Items) {
			return false
		}
		for i := range f.Items {
			if !f.Items[i].Equal(other.Items[i], rename) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalLeafRenaming(a, b PatternItem, rename map[string]string) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case PatternBinding:
		if existing, ok := rename[a.Binding]; ok {
			return existing == b.Binding
		}
		rename[a.Binding] = b.Binding
		return true
	case PatternValueKind:
		return a.Value.Equal(b.Value)
	default:
		return true
	}
}
