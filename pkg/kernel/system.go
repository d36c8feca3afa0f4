package kernel

// System is the shared mutable state of one running kernel: the
// current world state, every known model and composite state, the
// entities-per-class registry, the active goal queue, and the babble
// queue of exploratory commands. All mutation happens on the outer
// loop thread (spec.md §5); the planner and learner take read-only
// borrows and return new owned values for Tick to commit.
//
// Grounded on original_source/src/types/runtime.rs's System struct.
type System struct {
	Config Config

	CurrentState *SystemState
	Models       map[string]*Mdl
	Csts         map[string]*Cst
	EntitiesInClasses map[string][]string

	Goals       []Goal
	BabbleQueue []Command

	// lastCommand/lastPredictions feed the learner on the following
	// tick (spec.md §4.7 step 3: "If a previous command exists...").
	lastCommand     *Command
	lastPrevState   *SystemState
	lastPredictions []Prediction

	// lastWasBabble implements the babble gate preserved as-is from
	// original_source/src/runtime/runtime_main.rs (Open Question c).
	lastWasBabble bool
}

// NewSystem returns an empty System ready for a seed to populate.
func NewSystem(cfg Config) *System {
	return &System{
		Config:            cfg,
		CurrentState:      NewSystemState(),
		Models:            make(map[string]*Mdl),
		Csts:              make(map[string]*Cst),
		EntitiesInClasses: make(map[string][]string),
	}
}

// CreateEntity registers entityID as a member of class.
func (s *System) CreateEntity(entityID, class string) {
	s.EntitiesInClasses[class] = append(s.EntitiesInClasses[class], entityID)
}

// PushGoal appends a goal to the goal queue.
func (s *System) PushGoal(g Goal) { s.Goals = append(s.Goals, g) }

// CurrentGoal returns the goal currently being pursued, if any.
func (s *System) CurrentGoal() (Goal, bool) {
	if len(s.Goals) == 0 {
		return nil, false
	}
	return s.Goals[0], true
}

// AdvanceGoal pops the current goal once it is satisfied.
func (s *System) AdvanceGoal() {
	if len(s.Goals) > 0 {
		s.Goals = s.Goals[1:]
	}
}

// SetVariable writes one state variable directly (used by the
// transport collaborator and by seeds).
func (s *System) SetVariable(key EntityVariableKey, v Value) {
	s.CurrentState.Variables[key] = v
}

// GoalSatisfied reports whether every fact in g already holds in s
// (spec.md §4.4 step 1 and §4.5 step 1: "If state satisfies the goal").
func GoalSatisfied(g Goal, s *SystemState) bool {
	for _, fact := range g {
		if !factHoldsInState(fact.Pattern, s) {
			return false
		}
	}
	return true
}

func factHoldsInState(mk MkVal, s *SystemState) bool {
	if mk.Entity.Kind != EntityConcrete {
		return false
	}
	key := NewEntityVariableKey(mk.Entity.ID, mk.VarName)
	v, ok := s.Variables[key]
	if !ok {
		return false
	}
	_, matched := MatchPattern(mk.Value, v, NewBindings())
	return matched
}
