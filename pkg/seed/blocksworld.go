// Package seed provides the collaborator contract spec.md §6 describes
// as "one seed function chosen at compile time... populates models,
// composite states, entities, state variables, goals, and babble
// queue" plus one concrete seed.
//
// Grounded on original_source/src/runtime/seed.rs: a hand that can move
// toward a bound position, and an object the hand can push one step at
// a time when co-located with it. Restructured as Go struct literals
// over pkg/kernel's types, not transliterated.
package seed

import "github.com/gitrdm/causalkernel/pkg/kernel"

// Func populates a freshly constructed System. cmd/kernel resolves a
// seed by name from Registry.
type Func func(*kernel.System)

// Registry maps seed names to their Func, used by cmd/kernel's
// --seed flag.
var Registry = map[string]Func{
	"blocksworld": Blocksworld,
	"empty":       Empty,
}

// Empty registers no models or composite states, only the hand and its
// initial position: a cold start from which the learner creates its
// first triplets (spec.md §8 scenario 4).
func Empty(sys *kernel.System) {
	sys.CreateEntity("h", "hand")
	sys.SetVariable(kernel.NewEntityVariableKey("h", "position"), kernel.NumberValue(2.0))
}

// Blocksworld seeds the two-model scenario spec.md §8 scenarios 1 and 2
// walk through literally: a hand that reaches a goal position by
// moving, and an object it can push one step closer once co-located.
func Blocksworld(sys *kernel.System) {
	sys.CreateEntity("h", "hand")
	sys.CreateEntity("o", "object")

	// cst_pos: the hand's own position, bound as "p".
	cstPos := &kernel.Cst{
		ID: "cst_pos",
		Facts: []kernel.Fact[kernel.MkVal]{
			kernel.NewFact(kernel.MkVal{
				Entity:  kernel.ConcreteEntity("h"),
				VarName: "position",
				Value:   kernel.Binding("p"),
			}),
		},
	}
	sys.Csts[cstPos.ID] = cstPos

	// mdl_move: executing move(dp) on the hand sets its position to cp.
	// Guard synthesis follows spec.md's "consequent = P + CMD" shape:
	// the forward guard computes the new position from the old one plus
	// the command argument, the backward guard recovers the argument
	// from the old and new positions (used when a plan knows the goal
	// position but must derive what to pass to move).
	mdlMove := kernel.NewMdl("mdl_move",
		kernel.MdlLeft{
			Kind: kernel.LHSCommand,
			Command: kernel.Command{
				Name:   "move",
				Entity: kernel.ConcreteEntity("h"),
				Params: kernel.Pattern{kernel.Binding("dp")},
			},
		},
		kernel.MdlRight{
			Kind: kernel.RHSMkVal,
			MkVal: kernel.MkVal{
				Entity:  kernel.ConcreteEntity("h"),
				VarName: "position",
				Value:   kernel.Binding("cp"),
			},
		},
	)
	mdlMove.ForwardComputed["cp"] = kernel.AddFunc(kernel.ValueFunc(kernel.Binding("p")), kernel.ValueFunc(kernel.Binding("dp")))
	mdlMove.BackwardComputed["dp"] = kernel.SubFunc(kernel.ValueFunc(kernel.Binding("cp")), kernel.ValueFunc(kernel.Binding("p")))
	sys.Models[mdlMove.ID] = mdlMove

	// mdl_move_req: cst_pos makes mdl_move applicable. mdl_move's own
	// binding-param order is [dp, cp, p] (command param, then RHS
	// value, then the guard's only other free name); the requirement's
	// IMdl.Params must match that arity position for position — "dp" has
	// no corresponding cst_pos binding, so it's a wildcard here.
	mdlMoveReq := kernel.NewMdl("mdl_move_req",
		kernel.MdlLeft{
			Kind: kernel.LHSCst,
			ICst: kernel.ICst{CstID: cstPos.ID, Params: kernel.Pattern{kernel.Binding("p")}},
		},
		kernel.MdlRight{
			Kind: kernel.RHSIMdl,
			IMdl: kernel.IMdl{ModelID: mdlMove.ID, Params: kernel.Pattern{kernel.Any(), kernel.Binding("cp"), kernel.Binding("p")}},
		},
	)
	sys.Models[mdlMoveReq.ID] = mdlMoveReq

	// cst_obj: hand and object share a position, both bound as "p" —
	// the co-location precondition for pushing.
	cstObj := &kernel.Cst{
		ID: "cst_obj",
		Facts: []kernel.Fact[kernel.MkVal]{
			kernel.NewFact(kernel.MkVal{Entity: kernel.ConcreteEntity("h"), VarName: "position", Value: kernel.Binding("p")}),
			kernel.NewFact(kernel.MkVal{Entity: kernel.ConcreteEntity("o"), VarName: "position", Value: kernel.Binding("p")}),
		},
	}
	sys.Csts[cstObj.ID] = cstObj

	// mdl_push: executing push() on the object advances its position by
	// one. push takes no argument, so only a forward guard is needed —
	// there is no command parameter for a backward guard to recover.
	mdlPush := kernel.NewMdl("mdl_push",
		kernel.MdlLeft{
			Kind: kernel.LHSCommand,
			Command: kernel.Command{
				Name:   "push",
				Entity: kernel.ConcreteEntity("o"),
				Params: kernel.Pattern{},
			},
		},
		kernel.MdlRight{
			Kind: kernel.RHSMkVal,
			MkVal: kernel.MkVal{
				Entity:  kernel.ConcreteEntity("o"),
				VarName: "position",
				Value:   kernel.Binding("np"),
			},
		},
	)
	mdlPush.ForwardComputed["np"] = kernel.AddFunc(kernel.ValueFunc(kernel.Binding("p")), kernel.ValueFunc(kernel.ValueItem(kernel.NumberValue(1))))
	sys.Models[mdlPush.ID] = mdlPush

	// mdl_push_req: cst_obj (co-location) makes mdl_push applicable.
	// mdl_push's binding-param order is [np, p] (RHS value, then the
	// forward guard's only other free name); "np" has no corresponding
	// cst_obj binding, so it's a wildcard here.
	mdlPushReq := kernel.NewMdl("mdl_push_req",
		kernel.MdlLeft{
			Kind: kernel.LHSCst,
			ICst: kernel.ICst{CstID: cstObj.ID, Params: kernel.Pattern{kernel.Binding("p")}},
		},
		kernel.MdlRight{
			Kind: kernel.RHSIMdl,
			IMdl: kernel.IMdl{ModelID: mdlPush.ID, Params: kernel.Pattern{kernel.Any(), kernel.Binding("p")}},
		},
	)
	sys.Models[mdlPushReq.ID] = mdlPushReq

	sys.SetVariable(kernel.NewEntityVariableKey("h", "position"), kernel.NumberValue(1.0))
	sys.SetVariable(kernel.NewEntityVariableKey("o", "position"), kernel.NumberValue(5.0))
	kernel.RecomputeInstantiatedCsts(sys.CurrentState, sys.Csts, sys.EntitiesInClasses)

	// spec.md §8 scenario 1's goal: reach hand.position = 5.0.
	sys.PushGoal(kernel.Goal{
		kernel.NewFact(kernel.MkVal{
			Entity:  kernel.ConcreteEntity("h"),
			VarName: "position",
			Value:   kernel.ValueItem(kernel.NumberValue(5.0)),
		}),
	})

	// spec.md §8 scenario 2's goal: reach obj.position = 6.0, which
	// requires moving the hand into the object first, then pushing.
	sys.PushGoal(kernel.Goal{
		kernel.NewFact(kernel.MkVal{
			Entity:  kernel.ConcreteEntity("o"),
			VarName: "position",
			Value:   kernel.ValueItem(kernel.NumberValue(6.0)),
		}),
	})
}
