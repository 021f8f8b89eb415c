package action

import "fmt"

// Discrete is an action space of the integers [0, N).
type Discrete struct {
	N int
}

// Contains reports whether a lies in the space.
func (d Discrete) Contains(a int) bool {
	return a >= 0 && a < d.N
}

func (d Discrete) String() string {
	return fmt.Sprintf("Discrete(%d)", d.N)
}

// Converter translates raw discrete actions into primitive events.
//
// Convert is a function of the action and the converter's pressed-state,
// and it replaces that pressed-state as a side effect. Reset restores the
// construction-time pressed-state and is called on every environment reset.
type Converter interface {
	ActionSpace() Discrete
	Reset()
	Convert(action int) []Event
}
