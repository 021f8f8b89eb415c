package action

// TapConverter presses and releases the pointer at a fixed coordinate.
// Any non-zero action requests the pointer held down.
type TapConverter struct {
	press   MouseEvent
	release MouseEvent
	pressed bool
}

// NewTapConverter creates a TapConverter that taps at (x, y).
func NewTapConverter(x, y int) *TapConverter {
	press := MouseEvent{
		Type:       MousePressed,
		X:          x,
		Y:          y,
		Button:     LeftButton,
		ClickCount: 1,
	}
	return &TapConverter{
		press:   press,
		release: press.WithType(MouseReleased),
	}
}

// ActionSpace returns Discrete(2).
func (t *TapConverter) ActionSpace() Discrete {
	return Discrete{N: 2}
}

// Reset releases the pointer.
func (t *TapConverter) Reset() {
	t.pressed = false
}

// Pressed reports whether the pointer is currently held.
func (t *TapConverter) Pressed() bool {
	return t.pressed
}

// Convert emits a press or release only when the requested state differs
// from the held state.
func (t *TapConverter) Convert(action int) []Event {
	want := action != 0
	if want == t.pressed {
		return nil
	}
	t.pressed = want
	if want {
		return []Event{t.press}
	}
	return []Event{t.release}
}
