package ilgen

import "fmt"

// VMState is the capability every simulated virtual machine component
// implements. The control-flow merge driver manipulates state through
// this interface only: it calls MakeCopy when a branch forks the state
// and MergeInto when two paths rejoin, without caring whether the
// concrete state is an operand stack, a simulated register, or a bundle
// of both.
type VMState interface {
	// Commit writes the simulated state into the virtual machine's real
	// representation, emitting the necessary operations into b.
	Commit(b Builder)

	// Reload refreshes the simulated state from the real representation
	// after it may have changed behind the simulation's back (e.g. on
	// return from an interpreter transition).
	Reload(b Builder)

	// MakeCopy returns an independent copy of this state.
	MakeCopy() VMState

	// MergeInto emits operations into b so that the values of this
	// state become visible under the variables other's state uses.
	// other must be the same concrete kind of state; anything else is a
	// bug in the translator and panics.
	MergeInto(other VMState, b Builder)
}

// CompositeState bundles several VMState components into one, so a
// translator tracking, say, an operand stack plus a few simulated
// registers can fork and merge them as a unit.
//
// Component order is significant: two CompositeStates merge pairwise by
// position, so all copies of a state share the same layout by
// construction (MakeCopy preserves it).
type CompositeState struct {
	states []VMState
}

// NewCompositeState creates a bundle of the given components.
func NewCompositeState(states ...VMState) *CompositeState {
	return &CompositeState{states: states}
}

// Add appends another component to the bundle.
func (s *CompositeState) Add(state VMState) {
	s.states = append(s.states, state)
}

// State returns the i'th component.
func (s *CompositeState) State(i int) VMState { return s.states[i] }

// Len returns the number of components.
func (s *CompositeState) Len() int { return len(s.states) }

// Commit commits every component in order.
func (s *CompositeState) Commit(b Builder) {
	for _, st := range s.states {
		st.Commit(b)
	}
}

// Reload reloads every component in order.
func (s *CompositeState) Reload(b Builder) {
	for _, st := range s.states {
		st.Reload(b)
	}
}

// MakeCopy copies every component into a new bundle.
func (s *CompositeState) MakeCopy() VMState {
	copies := make([]VMState, len(s.states))
	for i, st := range s.states {
		copies[i] = st.MakeCopy()
	}
	return &CompositeState{states: copies}
}

// MergeInto merges every component into the corresponding component of
// other. The two bundles must have identical shape.
func (s *CompositeState) MergeInto(other VMState, b Builder) {
	o, ok := other.(*CompositeState)
	if !ok {
		panic(fmt.Sprintf("ilgen: merging composite state into %T", other))
	}
	if len(s.states) != len(o.states) {
		panic(fmt.Sprintf("ilgen: composite states have different shapes: %d vs %d components",
			len(s.states), len(o.states)))
	}
	for i, st := range s.states {
		st.MergeInto(o.states[i], b)
	}
}
