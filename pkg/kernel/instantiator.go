package kernel

import "sort"

// InstantiateCst enumerates every distinct fully bound instance of cst
// against state by a constraint-satisfaction walk: facts are considered
// in order; for each fact, every EntityVariableKey in the state whose
// var_name matches is tried as a candidate, the fact's value pattern is
// unified against the stored value, and on success the walk recurses
// with the extended binding map. Entity-class declarations constrain
// which entity ids may fill a class binding.
//
// Grounded on spec.md §4.2; the backtracking shape follows the
// teacher's search.go depth-first enumeration style.
func InstantiateCst(cst *Cst, state *SystemState, classes map[string][]string) []InstantiatedCst {
	keys := make([]EntityVariableKey, 0, len(state.Variables))
	for k := range state.Variables {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].EntityID != keys[j].EntityID {
			return keys[i].EntityID < keys[j].EntityID
		}
		return keys[i].VarName < keys[j].VarName
	})

	var results []InstantiatedCst
	var walk func(factIdx int, binds Bindings)
	walk = func(factIdx int, binds Bindings) {
		if factIdx == len(cst.Facts) {
			if !satisfiesEntityClasses(cst, binds, classes) {
				return
			}
			results = append(results, InstantiatedCst{CstID: cst.ID, Bindings: binds.Clone()})
			return
		}
		fact := cst.Facts[factIdx].Pattern
		for _, key := range keys {
			if key.VarName != fact.VarName {
				continue
			}
			cur := binds
			ok := true
			if fact.Entity.Kind == EntityConcrete {
				if fact.Entity.ID != key.EntityID {
					continue
				}
			} else {
				cur, ok = cur.Bind(fact.Entity.Binding, EntityIDValue(key.EntityID))
				if !ok {
					continue
				}
			}
			next, matched := MatchPattern(fact.Value, state.Variables[key], cur)
			if !matched {
				continue
			}
			walk(factIdx+1, next)
		}
	}
	walk(0, NewBindings())
	return results
}

// satisfiesEntityClasses checks that every declared entity binding, if
// resolved, names an id that is a registered member of its class.
func satisfiesEntityClasses(cst *Cst, binds Bindings, classes map[string][]string) bool {
	for _, decl := range cst.Entities {
		v, ok := binds.Lookup(decl.Binding)
		if !ok {
			continue
		}
		if v.Kind != KindEntityID {
			return false
		}
		if !classContains(classes[decl.Class], v.Str) {
			return false
		}
	}
	return true
}

func classContains(members []string, id string) bool {
	for _, m := range members {
		if m == id {
			return true
		}
	}
	return false
}

// RecomputeInstantiatedCsts rebuilds the state's instantiated-Cst cache
// for every known Cst (spec.md §4.2: "Cached on the state... so
// repeated planner calls in one step do not recompute it").
func RecomputeInstantiatedCsts(state *SystemState, csts map[string]*Cst, classes map[string][]string) {
	state.InstantiatedCst = make(map[string][]InstantiatedCst, len(csts))
	for id, cst := range csts {
		state.InstantiatedCst[id] = InstantiateCst(cst, state, classes)
	}
}
