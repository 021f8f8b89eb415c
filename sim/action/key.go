package action

import (
	"errors"
	"fmt"
)

// ErrUnknownKey is returned when a key code is absent from the key table.
var ErrUnknownKey = errors.New("unknown key code")

// KeyConverter treats an action as a bitmap over a fixed list of keys.
// Bit i requests that key i be held down during the tick.
type KeyConverter struct {
	keys    []KeyEvent
	pressed []bool
}

// NewKeyConverter creates a KeyConverter over the given key templates.
// Events are emitted in the order the keys are listed.
func NewKeyConverter(keys []KeyEvent) *KeyConverter {
	return &KeyConverter{
		keys:    append([]KeyEvent(nil), keys...),
		pressed: make([]bool, len(keys)),
	}
}

// KeyConverterForCodes resolves each DOM key code through the key table.
func KeyConverterForCodes(codes []string) (*KeyConverter, error) {
	keys := make([]KeyEvent, 0, len(codes))
	for _, code := range codes {
		evt, ok := KeyForCode(code)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, code)
		}
		keys = append(keys, evt)
	}
	return NewKeyConverter(keys), nil
}

// ActionSpace returns Discrete(2^K).
func (k *KeyConverter) ActionSpace() Discrete {
	return Discrete{N: 1 << len(k.keys)}
}

// Reset releases every key.
func (k *KeyConverter) Reset() {
	for i := range k.pressed {
		k.pressed[i] = false
	}
}

// Pressed returns a copy of the current pressed-state.
func (k *KeyConverter) Pressed() []bool {
	return append([]bool(nil), k.pressed...)
}

// Convert emits a keyUp for every held key whose bit is clear and a keyDown
// for every released key whose bit is set. Bits beyond the key count are ignored.
func (k *KeyConverter) Convert(bitmap int) []Event {
	var events []Event
	for i, key := range k.keys {
		want := bitmap&(1<<i) != 0
		switch {
		case k.pressed[i] && !want:
			events = append(events, key.WithType(KeyUp))
		case !k.pressed[i] && want:
			events = append(events, key.WithType(KeyDown))
		}
		k.pressed[i] = want
	}
	return events
}
