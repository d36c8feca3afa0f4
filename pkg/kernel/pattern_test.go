package kernel

import "testing"

func TestPatternItemIsFullyUnbound(t *testing.T) {
	tests := []struct {
		name string
		item PatternItem
		want bool
	}{
		{"any", Any(), true},
		{"binding", Binding("x"), true},
		{"value", ValueItem(NumberValue(1)), false},
		{"vec of bindings", VecItem(Binding("a"), Any()), true},
		{"vec with value", VecItem(Binding("a"), ValueItem(NumberValue(1))), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.IsFullyUnbound(); got != tt.want {
				t.Fatalf("IsFullyUnbound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPatternContainsBinding(t *testing.T) {
	p := VecItem(Binding("a"), ValueItem(NumberValue(1)))
	if !p.ContainsBinding("a") {
		t.Fatalf("expected vec to contain binding a")
	}
	if p.ContainsBinding("b") {
		t.Fatalf("did not expect vec to contain binding b")
	}
}

func TestPatternBindingNames(t *testing.T) {
	p := Pattern{Binding("x"), ValueItem(NumberValue(1)), Binding("y"), Binding("x")}
	got := p.BindingNames()
	want := []string{"x", "y"}
	if len(got) != len(want) {
		t.Fatalf("BindingNames() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BindingNames()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEntityPatternValueResolve(t *testing.T) {
	b := NewBindings()
	b, _ = b.Bind("e", EntityIDValue("cube1"))

	tests := []struct {
		name   string
		entity EntityPatternValue
		want   string
		ok     bool
	}{
		{"concrete", ConcreteEntity("hand"), "hand", true},
		{"bound resolved", BoundEntity("e"), "cube1", true},
		{"bound unresolved", BoundEntity("missing"), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.entity.Resolve(b)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("Resolve() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
