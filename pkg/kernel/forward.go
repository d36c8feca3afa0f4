package kernel

import (
	"sort"
	"time"
)

// forwardNode is one node of the forward-chain search tree: the
// command that reaches it, its children, and the bookkeeping the
// commit step needs. MinGoalDepth is the remaining distance to the
// goal *from this node's own state* (0 at a goal-satisfying state,
// otherwise 1 + the chosen child's MinGoalDepth) — a property of the
// state alone, not of how deep the search happened to be when it first
// reached that state. Grounded on
// original_source/src/runtime/simulation/forward.rs's
// saturating_add(1) accumulation of min_goal_depth at every level; a
// state-relative quantity is required because observedStates reuses
// cached nodes across calls made at different depths (expand below),
// and an absolute depth baked in at the original call site would no
// longer describe distance-to-goal from the new call site.
type forwardNode struct {
	Command      *Command
	Model        IMdl
	Children     []*forwardNode
	IsInGoalPath bool
	MinGoalDepth int
	Depth        int
}

// observedStateEntry is one memoization record: the node reached at
// this state hash, the minimum depth it was reached at, and whether a
// goal-reachable subtree from it is known. Grounded on the teacher's
// tabling.go SubgoalTable/AnswerTrie design (content-hashed call
// pattern → cached result, evicted when a cheaper path appears).
type observedStateEntry struct {
	Node          *forwardNode
	MinDepth      int
	GoalReachable bool
}

// forwardSearch carries the mutable search state threaded through one
// ForwardChain call (spec.md §4.5).
type forwardSearch struct {
	sys            *System
	goal           Goal
	observedStates map[uint64]*observedStateEntry
	minSolution    int
	solutionFound  bool
	startTime      time.Time
	deadline       time.Duration
	maxDepth       int
}

// ForwardChain expands a depth-bounded tree of predicted states over
// goalRequirements (the backward-chain IMdl set) from the current
// state until goal satisfaction or depth exhaustion, then commits to
// the best path and returns its command sequence (spec.md §4.5).
func ForwardChain(sys *System, goal Goal, goalRequirements []IMdl) []Command {
	fs := &forwardSearch{
		sys:            sys,
		goal:           goal,
		observedStates: make(map[uint64]*observedStateEntry),
		minSolution:    sys.Config.MaxForwardChainDepth + 1,
		startTime:      timeNow(),
		deadline:       sys.Config.ForwardChainDeadline,
		maxDepth:       sys.Config.MaxForwardChainDepth,
	}
	root := fs.expand(sys.CurrentState, 0, goalRequirements)
	return fs.commit(root)
}

// timeNow is isolated so tests can't accidentally depend on wall-clock
// skew across a single search; production callers get real time.
var timeNow = time.Now

func (fs *forwardSearch) deadlineExceeded() bool {
	return fs.solutionFound && timeNow().Sub(fs.startTime) > fs.deadline
}

// expand builds the subtree rooted at state (at depth d). A state that
// already satisfies the goal yields a childless leaf in the goal path
// with MinGoalDepth 0; nil is returned once d reaches the solution or
// depth bound or the deadline has passed.
func (fs *forwardSearch) expand(state *SystemState, d int, goalRequirements []IMdl) *forwardNode {
	if GoalSatisfied(fs.goal, state) {
		if d < fs.minSolution {
			fs.minSolution = d
		}
		fs.solutionFound = true
		return &forwardNode{IsInGoalPath: true, MinGoalDepth: 0, Depth: d}
	}
	if d >= fs.minSolution || d >= fs.maxDepth || fs.deadlineExceeded() {
		return nil
	}

	hash := state.Hash()
	if entry, ok := fs.observedStates[hash]; ok {
		if entry.MinDepth <= d {
			return entry.Node
		}
	}

	candidates := fs.mergedCandidates(state, goalRequirements)
	node := &forwardNode{Depth: d, MinGoalDepth: fs.maxDepth + 1}

	for _, cand := range candidates {
		successor, pred, ok := fs.predict(state, cand)
		if !ok || successor.Equal(state) {
			continue
		}
		child := fs.expand(successor, d+1, goalRequirements)
		if child == nil {
			continue
		}
		cmd := cand.command
		remaining := child.MinGoalDepth + 1
		node.Children = append(node.Children, &forwardNode{
			Command:      &cmd,
			Model:        pred.Model,
			Children:     child.Children,
			IsInGoalPath: child.IsInGoalPath,
			MinGoalDepth: remaining,
			Depth:        d + 1,
		})
		if child.IsInGoalPath {
			node.IsInGoalPath = true
			if remaining < node.MinGoalDepth {
				node.MinGoalDepth = remaining
			}
		}
	}

	fs.observedStates[hash] = &observedStateEntry{Node: node, MinDepth: d, GoalReachable: node.IsInGoalPath}
	return node
}

// mergedCandidate pairs a causal command with the IMdl that predicts it
// and the model confidence used to order candidates (spec.md §4.5
// step 3-4).
type mergedCandidate struct {
	command    Command
	model      *Mdl
	inst       IMdl
	binds      Bindings
	confidence float64
}

// mergedCandidates instantiates every requirement model against state,
// merges each non-anti IMdl with the matching backward-chain IMdl
// (same model id, unifiable params), and orders the result by
// descending model confidence (spec.md §4.5 step 3).
func (fs *forwardSearch) mergedCandidates(state *SystemState, goalRequirements []IMdl) []mergedCandidate {
	instances, _ := instantiateRequirements(fs.sys, state)

	var out []mergedCandidate
	for _, inst := range instances {
		model, ok := fs.sys.Models[inst.ModelID]
		if !ok || !model.IsUsable() {
			continue
		}
		binds := inst.ForwardGuardBinds
		for _, bcIMdl := range goalRequirements {
			if bcIMdl.ModelID != inst.ModelID {
				continue
			}
			merged, ok := mergeBindingsFromParams(binds, inst.Params, bcIMdl.Params)
			if !ok {
				continue
			}
			binds = merged
			break
		}
		cmd, ok := commandForCausalModel(model, binds)
		if !ok {
			continue
		}
		out = append(out, mergedCandidate{command: cmd, model: model, inst: inst, binds: binds, confidence: model.Confidence()})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].confidence != out[j].confidence {
			return out[i].confidence > out[j].confidence
		}
		return out[i].model.ID < out[j].model.ID
	})
	return out
}

func mergeBindingsFromParams(base Bindings, a, b Pattern) (Bindings, bool) {
	if len(a) != len(b) {
		return base, true
	}
	cur := base
	var ok bool
	for i := range a {
		cur, ok = UnifyPatternItems(a[i], b[i], cur)
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// instantiateRequirements instantiates every requirement model's IMdl
// against state's instantiated-Cst cache, separating regular and
// anti-requirement instances.
func instantiateRequirements(sys *System, state *SystemState) ([]IMdl, []AntiRequirementInstance) {
	var insts []IMdl
	var anti []AntiRequirementInstance
	for _, id := range sortedModelIDs(sys.Models) {
		model := sys.Models[id]
		class := model.Class()
		if class != ClassRequirement && class != ClassAntiRequirement {
			continue
		}
		icst := model.Left.Pattern.ICst
		for _, inst := range state.InstantiatedCst[icst.CstID] {
			cst := sys.Csts[icst.CstID]
			binds, ok := MatchesInstance(icst, inst, cst, NewBindings())
			if !ok {
				continue
			}
			imdl := model.Right.Pattern.IMdl
			filled := fillIMdlParams(imdl, binds)
			if class == ClassAntiRequirement {
				anti = append(anti, AntiRequirementInstance{Target: filled})
			} else {
				filled.ForwardGuardBinds = binds
				insts = append(insts, filled)
			}
		}
	}
	return insts, anti
}

func fillIMdlParams(imdl IMdl, binds Bindings) IMdl {
	return IMdl{ModelID: imdl.ModelID, Params: FillPattern(imdl.Params, binds)}
}

// commandForCausalModel derives the Command for model's LHS under
// bindings, resolving every parameter (spec.md §4.5 step 4).
func commandForCausalModel(model *Mdl, binds Bindings) (Command, bool) {
	if model.Left.Pattern.Kind != LHSCommand {
		return Command{}, false
	}
	lhs := model.Left.Pattern.Command
	entityID, ok := lhs.Entity.Resolve(binds)
	if !ok {
		return Command{}, false
	}
	params := make(Pattern, len(lhs.Params))
	for i, p := range lhs.Params {
		v, ok := resolvePatternValue(p, binds)
		if !ok {
			// Allow backward-computed functions to fill this parameter.
			if fn, has := model.BackwardComputed[paramBindingName(p)]; has {
				if fv, fok := fn.Evaluate(binds); fok {
					v, ok = fv, true
				}
			}
		}
		if !ok {
			return Command{}, false
		}
		params[i] = ValueItem(v)
	}
	return Command{Name: lhs.Name, Entity: ConcreteEntity(entityID), Params: params}, true
}

func paramBindingName(item PatternItem) string {
	if item.Kind == PatternBinding {
		return item.Binding
	}
	return ""
}

// predict dispatches to the causal or reuse predictor depending on the
// candidate's model class.
func (fs *forwardSearch) predict(state *SystemState, cand mergedCandidate) (*SystemState, Prediction, bool) {
	_, antiInsts := instantiateRequirements(fs.sys, state)
	if cand.model.Class() == ClassReuse {
		return PredictReuseModel(fs.sys, state, cand.model, cand.binds, antiInsts)
	}
	return PredictStateChange(fs.sys, state, cand.model, cand.inst, cand.binds, antiInsts)
}

// commit walks from root repeatedly choosing the child with the
// smallest MinGoalDepth among those in a goal path, returning the
// command sequence (spec.md §4.5 commit). If no child is in a goal
// path, it falls back to the single shallowest node's command, or
// returns nil (no_action) if even that is absent.
func (fs *forwardSearch) commit(root *forwardNode) []Command {
	if root == nil {
		return nil
	}
	var commands []Command
	node := root
	for {
		best := bestGoalPathChild(node)
		if best == nil {
			if len(node.Children) > 0 {
				commands = append(commands, *node.Children[0].Command)
			}
			break
		}
		commands = append(commands, *best.Command)
		if len(best.Children) == 0 {
			break
		}
		node = best
	}
	return commands
}

func bestGoalPathChild(node *forwardNode) *forwardNode {
	var best *forwardNode
	for _, child := range node.Children {
		if !child.IsInGoalPath {
			continue
		}
		if best == nil || child.MinGoalDepth < best.MinGoalDepth {
			best = child
		}
	}
	return best
}
