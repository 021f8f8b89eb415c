// Package action converts compact discrete action codes into the ordered
// primitive input events a browser simulation consumes.
//
// A Converter is stateful: it remembers the pressed-state it last applied and
// only emits events for inputs whose state changed. Converters are not
// thread-safe; an AsyncEnv touches its converter from the worker goroutine only.
package action

import "fmt"

// EventType identifies a primitive input event.
type EventType string

const (
	KeyDown       EventType = "keyDown"
	KeyUp         EventType = "keyUp"
	MousePressed  EventType = "mousePressed"
	MouseReleased EventType = "mouseReleased"
)

// LeftButton is the only pointer button the converters use.
const LeftButton = "left"

// Event is a primitive input event passed to Environment.Step.
type Event interface {
	EventType() EventType
}

// KeyEvent is a key-up or key-down event for a single key.
type KeyEvent struct {
	Type    EventType
	Key     string // DOM key value, e.g. "ArrowUp" or " "
	Code    string // DOM code, e.g. "ArrowUp" or "Space"
	KeyCode int    // legacy virtual key code
}

// EventType returns the event's type.
func (k KeyEvent) EventType() EventType {
	return k.Type
}

// WithType returns a copy of the event with a different type.
func (k KeyEvent) WithType(t EventType) KeyEvent {
	k.Type = t
	return k
}

func (k KeyEvent) String() string {
	return fmt.Sprintf("%s(%s)", k.Type, k.Code)
}

// MouseEvent is a pointer press or release at a fixed coordinate.
type MouseEvent struct {
	Type       EventType
	X, Y       int
	Button     string
	ClickCount int
}

// EventType returns the event's type.
func (m MouseEvent) EventType() EventType {
	return m.Type
}

// WithType returns a copy of the event with a different type.
func (m MouseEvent) WithType(t EventType) MouseEvent {
	m.Type = t
	return m
}

func (m MouseEvent) String() string {
	return fmt.Sprintf("%s(%d,%d)", m.Type, m.X, m.Y)
}
