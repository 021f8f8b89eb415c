package action

import "fmt"

// keyTable maps DOM key codes to key event templates. Templates carry no Type.
var keyTable = buildKeyTable()

func buildKeyTable() map[string]KeyEvent {
	table := map[string]KeyEvent{
		"ArrowLeft":    {Key: "ArrowLeft", Code: "ArrowLeft", KeyCode: 37},
		"ArrowUp":      {Key: "ArrowUp", Code: "ArrowUp", KeyCode: 38},
		"ArrowRight":   {Key: "ArrowRight", Code: "ArrowRight", KeyCode: 39},
		"ArrowDown":    {Key: "ArrowDown", Code: "ArrowDown", KeyCode: 40},
		"Space":        {Key: " ", Code: "Space", KeyCode: 32},
		"Enter":        {Key: "Enter", Code: "Enter", KeyCode: 13},
		"Escape":       {Key: "Escape", Code: "Escape", KeyCode: 27},
		"Backspace":    {Key: "Backspace", Code: "Backspace", KeyCode: 8},
		"Tab":          {Key: "Tab", Code: "Tab", KeyCode: 9},
		"ShiftLeft":    {Key: "Shift", Code: "ShiftLeft", KeyCode: 16},
		"ShiftRight":   {Key: "Shift", Code: "ShiftRight", KeyCode: 16},
		"ControlLeft":  {Key: "Control", Code: "ControlLeft", KeyCode: 17},
		"ControlRight": {Key: "Control", Code: "ControlRight", KeyCode: 17},
		"AltLeft":      {Key: "Alt", Code: "AltLeft", KeyCode: 18},
		"AltRight":     {Key: "Alt", Code: "AltRight", KeyCode: 18},
	}
	for c := 'A'; c <= 'Z'; c++ {
		code := fmt.Sprintf("Key%c", c)
		table[code] = KeyEvent{Key: string(c + ('a' - 'A')), Code: code, KeyCode: int(c)}
	}
	for d := '0'; d <= '9'; d++ {
		code := fmt.Sprintf("Digit%c", d)
		table[code] = KeyEvent{Key: string(d), Code: code, KeyCode: int(d)}
	}
	return table
}

// KeyForCode returns the event template for a DOM key code.
// The returned event has an empty Type; use WithType to select up or down.
func KeyForCode(code string) (KeyEvent, bool) {
	evt, ok := keyTable[code]
	return evt, ok
}
