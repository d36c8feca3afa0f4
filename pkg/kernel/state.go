package kernel

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

// SystemTimeKind discriminates SystemTime.
type SystemTimeKind int

const (
	TimeExactPoint SystemTimeKind = iota
	TimeRangePoint
)

// SystemTime is the system's logical clock: always exact for the live
// state, but may be a range while a prediction is being explored during
// simulation.
type SystemTime struct {
	Kind SystemTimeKind
	From uint64
	To   uint64
}

func ExactSystemTime(t uint64) SystemTime {
	return SystemTime{Kind: TimeExactPoint, From: t, To: t}
}

// Advance steps an exact logical time forward by deltaMillis.
func (t SystemTime) Advance(deltaMillis uint64) SystemTime {
	return ExactSystemTime(t.From + deltaMillis)
}

// SystemState is a mapping from EntityVariableKey to Value, a cache of
// instantiated composite states keyed by Cst id, and a logical time.
// Two states are equal iff their variable maps are equal — the cache is
// a derived view and never participates in equality or hashing
// (grounded on original_source/src/types/runtime.rs's SystemState,
// whose PartialEq compares `variables` only).
type SystemState struct {
	Variables       map[EntityVariableKey]Value
	InstantiatedCst map[string][]InstantiatedCst
	Time            SystemTime
}

// NewSystemState returns an empty state at logical time zero.
func NewSystemState() *SystemState {
	return &SystemState{
		Variables:       make(map[EntityVariableKey]Value),
		InstantiatedCst: make(map[string][]InstantiatedCst),
		Time:            ExactSystemTime(0),
	}
}

// Clone returns a deep-enough copy for the chainers to extend without
// mutating the original (variables and the instantiated-Cst cache are
// both copied; Values themselves are immutable by convention).
func (s *SystemState) Clone() *SystemState {
	out := &SystemState{
		Variables:       make(map[EntityVariableKey]Value, len(s.Variables)),
		InstantiatedCst: make(map[string][]InstantiatedCst, len(s.InstantiatedCst)),
		Time:            s.Time,
	}
	for k, v := range s.Variables {
		out.Variables[k] = v
	}
	for k, v := range s.InstantiatedCst {
		cp := make([]InstantiatedCst, len(v))
		copy(cp, v)
		out.InstantiatedCst[k] = cp
	}
	return out
}

// WithValue returns a clone of s with one variable written — the
// predictor's core mutation (spec.md §4.3 step 4).
func (s *SystemState) WithValue(key EntityVariableKey, v Value) *SystemState {
	out := s.Clone()
	out.Variables[key] = v
	return out
}

// Equal compares two states by variable map only, using Value.Equal's
// tolerance rules per key (spec.md §8: "tests must assert equality at
// the variable-map level only").
func (s *SystemState) Equal(other *SystemState) bool {
	if len(s.Variables) != len(other.Variables) {
		return false
	}
	for k, v := range s.Variables {
		ov, ok := other.Variables[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Hash returns a content hash over the sorted variable map, quantizing
// numeric values per Value.Hash so that states equal under tolerance
// hash identically with very high probability. This grounds the forward
// chainer's observed_states memoization table on the teacher's
// tabling.go computeHash/canonicalizeTerm approach (crypto/sha256 +
// encoding/binary over a canonical ordering).
func (s *SystemState) Hash() uint64 {
	keys := sortedVariableKeys(s.Variables)

	h := sha256.New()
	var buf [8]byte
	for _, k := range keys {
		h.Write([]byte(k.EntityID))
		h.Write([]byte{0})
		h.Write([]byte(k.VarName))
		h.Write([]byte{0})
		binary.BigEndian.PutUint64(buf[:], s.Variables[k].Hash())
		h.Write(buf[:])
	}
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// sortedVariableKeys gives deterministic enumeration over a variable
// map — plain Go map iteration order is randomized, and several
// consumers (this hash, the learner's per-step diff) must visit
// variables in the same order on every run.
func sortedVariableKeys(vars map[EntityVariableKey]Value) []EntityVariableKey {
	keys := make([]EntityVariableKey, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EntityID != keys[j].EntityID {
			return keys[i].EntityID < keys[j].EntityID
		}
		return keys[i].VarName < keys[j].VarName
	})
	return keys
}
