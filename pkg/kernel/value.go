// Package kernel implements the causal-reasoning engine: the value and
// pattern algebra, the fact/model/composite-state data types, the
// pattern matcher, the composite-state instantiator, the state predictor,
// backward and forward chaining, the learner, and the outer-loop
// scheduler that ties them together.
package kernel

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// numberTolerance bounds Number/Number equality (spec: absolute, 0.1).
const numberTolerance = 0.1

// uncertainDensityThreshold bounds Number/UncertainNumber equality via a
// Gaussian density comparison (spec: > 0.001).
const uncertainDensityThreshold = 0.001

// ValueKind discriminates the Value tagged union.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindUncertainNumber
	KindString
	KindEntityID
	KindList
)

// Value is a tagged union over the kinds of data a state variable can
// hold: Number, UncertainNumber (mean/std), String, EntityID, or a List
// of Values. The zero Value is a KindNumber of 0.
type Value struct {
	Kind   ValueKind
	Number float64 // KindNumber, and the mean of KindUncertainNumber
	Std    float64 // KindUncertainNumber only
	Str    string  // KindString, KindEntityID
	List   []Value // KindList
}

func NumberValue(n float64) Value                { return Value{Kind: KindNumber, Number: n} }
func UncertainValue(mean, std float64) Value      { return Value{Kind: KindUncertainNumber, Number: mean, Std: std} }
func StringValue(s string) Value                  { return Value{Kind: KindString, Str: s} }
func EntityIDValue(id string) Value               { return Value{Kind: KindEntityID, Str: id} }
func ListValue(items []Value) Value               { return Value{Kind: KindList, List: items} }

// String renders a Value for logs and error messages.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindUncertainNumber:
		return fmt.Sprintf("~%g(σ=%g)", v.Number, v.Std)
	case KindString:
		return fmt.Sprintf("%q", v.Str)
	case KindEntityID:
		return v.Str
	case KindList:
		return fmt.Sprintf("%v", v.List)
	default:
		return "<invalid value>"
	}
}

// Equal reports value equality with the spec's tolerance rules: plain
// numbers compare within an absolute tolerance, a Number/UncertainNumber
// pair compares via Gaussian density, strings and entity ids compare
// exactly, and lists compare elementwise with matching length.
func (v Value) Equal(other Value) bool {
	switch {
	case v.Kind == KindNumber && other.Kind == KindNumber:
		return math.Abs(v.Number-other.Number) <= numberTolerance
	case v.Kind == KindNumber && other.Kind == KindUncertainNumber:
		return gaussianDensity(v.Number, other.Number, other.Std) > uncertainDensityThreshold
	case v.Kind == KindUncertainNumber && other.Kind == KindNumber:
		return gaussianDensity(other.Number, v.Number, v.Std) > uncertainDensityThreshold
	case v.Kind == KindUncertainNumber && other.Kind == KindUncertainNumber:
		return math.Abs(v.Number-other.Number) <= numberTolerance
	case v.Kind == KindString && other.Kind == KindString:
		return v.Str == other.Str
	case v.Kind == KindEntityID && other.Kind == KindEntityID:
		return v.Str == other.Str
	case v.Kind == KindList && other.Kind == KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// gaussianDensity evaluates the normal probability density of x under
// N(mean, std), unnormalized by height is not needed since the spec
// thresholds the raw density value.
func gaussianDensity(x, mean, std float64) float64 {
	if std <= 0 {
		if x == mean {
			return 1
		}
		return 0
	}
	z := (x - mean) / std
	return math.Exp(-0.5*z*z) / (std * math.Sqrt(2*math.Pi))
}

// arithOp names the binary numeric operators Value.Arith supports.
type arithOp int

const (
	opAdd arithOp = iota
	opSub
	opMul
	opDiv
)

// Arith applies a binary arithmetic operator pairwise. Number/Number and
// Number/UncertainNumber combine into a Number (the original source's
// Rust implementation reuses subtraction for its Mul and Div branches;
// that defect is not reproduced here). Lists combine elementwise and
// require equal length. Any other kind combination is undefined.
func (v Value) Arith(op arithOp, other Value) (Value, bool) {
	if v.Kind == KindList || other.Kind == KindList {
		if v.Kind != KindList || other.Kind != KindList || len(v.List) != len(other.List) {
			return Value{}, false
		}
		out := make([]Value, len(v.List))
		for i := range v.List {
			r, ok := v.List[i].Arith(op, other.List[i])
			if !ok {
				return Value{}, false
			}
			out[i] = r
		}
		return ListValue(out), true
	}

	a, aok := v.asNumber()
	b, bok := other.asNumber()
	if !aok || !bok {
		return Value{}, false
	}
	switch op {
	case opAdd:
		return NumberValue(a + b), true
	case opSub:
		return NumberValue(a - b), true
	case opMul:
		return NumberValue(a * b), true
	case opDiv:
		if b == 0 {
			return Value{}, false
		}
		return NumberValue(a / b), true
	default:
		return Value{}, false
	}
}

func (v Value) asNumber() (float64, bool) {
	switch v.Kind {
	case KindNumber, KindUncertainNumber:
		return v.Number, true
	default:
		return 0, false
	}
}

// IsNumeric reports whether the value is a Number or UncertainNumber.
func (v Value) IsNumeric() bool {
	return v.Kind == KindNumber || v.Kind == KindUncertainNumber
}

// Hash returns a value suitable for set-based memoization keys. Numbers
// are quantized to a fixed grid before hashing so that values considered
// equal under the tolerance rule fall, with very high probability, into
// the same bucket — grounded on the teacher's tabling.go approach of
// hashing a canonicalized representation rather than the raw term.
func (v Value) Hash() uint64 {
	h := sha256.New()
	var buf [8]byte
	switch v.Kind {
	case KindNumber, KindUncertainNumber:
		binary.BigEndian.PutUint64(buf[:], uint64(int64(v.Number/numberTolerance)))
		h.Write([]byte{byte(v.Kind)})
		h.Write(buf[:])
	case KindString, KindEntityID:
		h.Write([]byte{byte(v.Kind)})
		h.Write([]byte(v.Str))
	case KindList:
		h.Write([]byte{byte(v.Kind)})
		for _, item := range v.List {
			binary.BigEndian.PutUint64(buf[:], item.Hash())
			h.Write(buf[:])
		}
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}
