// Package engine is the per-user conversation engine: a named-state machine
// with a navigable history stack, a command registry and a dispatcher that
// routes free text either to commands or to the active wizard step.
package engine

// State tracks where one user is in the conversation. The stack is the trail
// of states "назад" and "отмена" return to; an empty trail means the root,
// so popping can never land anywhere else.
type State struct {
	Current string
	Stack   []string
	Locked  bool

	root string
}

// NewState creates a state resting at root with an empty trail.
func NewState(root string) *State {
	return &State{
		Current: root,
		root:    root,
	}
}

// Push records the current state on the stack and moves to next.
func (s *State) Push(next string) {
	s.Stack = append(s.Stack, s.Current)
	s.Current = next
}

// Pop returns to the most recently stacked state, or to the root when the
// trail is empty.
func (s *State) Pop() {
	if len(s.Stack) == 0 {
		s.Current = s.root
		return
	}
	s.Current = s.Stack[len(s.Stack)-1]
	s.Stack = s.Stack[:len(s.Stack)-1]
}

// CancelPop unwinds past every stacked internal state and lands on the last
// public one, so cancelling from deep inside a wizard never exposes an
// intermediate step as the resumed state.
func (s *State) CancelPop(isInternal func(string) bool) {
	for len(s.Stack) > 0 && isInternal(s.Stack[len(s.Stack)-1]) {
		s.Stack = s.Stack[:len(s.Stack)-1]
	}
	s.Pop()
}

// ToggleLock flips the wizard-input lock and returns the new value.
func (s *State) ToggleLock() bool {
	s.Locked = !s.Locked
	return s.Locked
}
