package kernel

import "testing"

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"numbers within tolerance", NumberValue(1.0), NumberValue(1.05), true},
		{"numbers outside tolerance", NumberValue(1.0), NumberValue(1.2), false},
		{"strings equal", StringValue("a"), StringValue("a"), true},
		{"strings differ", StringValue("a"), StringValue("b"), false},
		{"entity ids equal", EntityIDValue("e1"), EntityIDValue("e1"), true},
		{"uncertain covers number", UncertainValue(1.0, 0.5), NumberValue(1.2), true},
		{"uncertain far from number", UncertainValue(1.0, 0.01), NumberValue(5.0), false},
		{"lists elementwise", ListValue([]Value{NumberValue(1), NumberValue(2)}), ListValue([]Value{NumberValue(1), NumberValue(2)}), true},
		{"lists different length", ListValue([]Value{NumberValue(1)}), ListValue([]Value{NumberValue(1), NumberValue(2)}), false},
		{"mismatched kinds", NumberValue(1), StringValue("1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Fatalf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestValueArith(t *testing.T) {
	tests := []struct {
		name string
		op   arithOp
		a, b Value
		want float64
		ok   bool
	}{
		{"add", opAdd, NumberValue(2), NumberValue(3), 5, true},
		{"sub", opSub, NumberValue(5), NumberValue(3), 2, true},
		{"mul", opMul, NumberValue(2), NumberValue(3), 6, true},
		{"div", opDiv, NumberValue(6), NumberValue(3), 2, true},
		{"div by zero", opDiv, NumberValue(6), NumberValue(0), 0, false},
		{"non numeric", opAdd, StringValue("x"), NumberValue(1), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.a.Arith(tt.op, tt.b)
			if ok != tt.ok {
				t.Fatalf("Arith ok = %v, want %v", ok, tt.ok)
			}
			if ok && !got.Equal(NumberValue(tt.want)) {
				t.Fatalf("Arith result = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueHashStable(t *testing.T) {
	a := NumberValue(1.0)
	b := NumberValue(1.0)
	if a.Hash() != b.Hash() {
		t.Fatalf("equal values hashed differently: %d vs %d", a.Hash(), b.Hash())
	}
}

func TestValueIsNumeric(t *testing.T) {
	if !NumberValue(1).IsNumeric() {
		t.Fatalf("NumberValue should be numeric")
	}
	if !UncertainValue(1, 0.1).IsNumeric() {
		t.Fatalf("UncertainValue should be numeric")
	}
	if StringValue("x").IsNumeric() {
		t.Fatalf("StringValue should not be numeric")
	}
}
