package keyboard

import "fmt"

// NoASCII marks a key that has no character (arrows, function keys, ...).
const NoASCII = -1

// KeyInfo describes one way a scan code can be produced or read.
// A scan code appears once per shift state that yields a distinct character.
type KeyInfo struct {
	ScanCode    uint8
	ASCII       int16
	Description string
	Shifted     bool
}

// HasASCII reports whether the key produces a character.
func (k KeyInfo) HasASCII() bool { return k.ASCII >= 0 }

// Char returns the character for the key, or '?' when it has none.
func (k KeyInfo) Char() byte {
	if !k.HasASCII() {
		return '?'
	}
	return byte(k.ASCII)
}

// KeyMap is the ordered key table. Lookups return the first match, so the
// main-block keys come before their keypad twins.
var KeyMap = []KeyInfo{
	{KeyA, 'a', "a", false}, {KeyB, 'b', "b", false}, {KeyC, 'c', "c", false}, {KeyD, 'd', "d", false},
	{KeyE, 'e', "e", false}, {KeyF, 'f', "f", false}, {KeyG, 'g', "g", false}, {KeyH, 'h', "h", false},
	{KeyI, 'i', "i", false}, {KeyJ, 'j', "j", false}, {KeyK, 'k', "k", false}, {KeyL, 'l', "l", false},
	{KeyM, 'm', "m", false}, {KeyN, 'n', "n", false}, {KeyO, 'o', "o", false}, {KeyP, 'p', "p", false},
	{KeyQ, 'q', "q", false}, {KeyR, 'r', "r", false}, {KeyS, 's', "s", false}, {KeyT, 't', "t", false},
	{KeyU, 'u', "u", false}, {KeyV, 'v', "v", false}, {KeyW, 'w', "w", false}, {KeyX, 'x', "x", false},
	{KeyY, 'y', "y", false}, {KeyZ, 'z', "z", false},

	{KeyA, 'A', "A", true}, {KeyB, 'B', "B", true}, {KeyC, 'C', "C", true}, {KeyD, 'D', "D", true},
	{KeyE, 'E', "E", true}, {KeyF, 'F', "F", true}, {KeyG, 'G', "G", true}, {KeyH, 'H', "H", true},
	{KeyI, 'I', "I", true}, {KeyJ, 'J', "J", true}, {KeyK, 'K', "K", true}, {KeyL, 'L', "L", true},
	{KeyM, 'M', "M", true}, {KeyN, 'N', "N", true}, {KeyO, 'O', "O", true}, {KeyP, 'P', "P", true},
	{KeyQ, 'Q', "Q", true}, {KeyR, 'R', "R", true}, {KeyS, 'S', "S", true}, {KeyT, 'T', "T", true},
	{KeyU, 'U', "U", true}, {KeyV, 'V', "V", true}, {KeyW, 'W', "W", true}, {KeyX, 'X', "X", true},
	{KeyY, 'Y', "Y", true}, {KeyZ, 'Z', "Z", true},

	{Key1, '1', "1", false}, {Key2, '2', "2", false}, {Key3, '3', "3", false}, {Key4, '4', "4", false},
	{Key5, '5', "5", false}, {Key6, '6', "6", false}, {Key7, '7', "7", false}, {Key8, '8', "8", false},
	{Key9, '9', "9", false}, {Key0, '0', "0", false},

	{Key1, '!', "Exclamation", true}, {Key2, '@', "At Sign", true}, {Key3, '#', "Hash", true},
	{Key4, '$', "Dollar", true}, {Key5, '%', "Percent", true}, {Key6, '^', "Caret", true},
	{Key7, '&', "Ampersand", true}, {Key8, '*', "Asterisk", true}, {Key9, '(', "Left Parenthesis", true},
	{Key0, ')', "Right Parenthesis", true},

	{KeyMinus, '-', "Hyphen", false}, {KeyEqual, '=', "Equal Sign", false},
	{KeyLeftBrace, '[', "Open Bracket", false}, {KeyRightBrace, ']', "Close Bracket", false},
	{KeyBackslash, '\\', "Backslash", false}, {KeySemicolon, ';', "Semicolon", false},
	{KeyApostrophe, '\'', "Quote", false}, {KeyGrave, '`', "Grave Accent", false},
	{KeyComma, ',', "Comma", false}, {KeyPeriod, '.', "Period", false}, {KeySlash, '/', "Slash", false},

	{KeyMinus, '_', "Underscore", true}, {KeyEqual, '+', "Plus", true},
	{KeyLeftBrace, '{', "Open Brace", true}, {KeyRightBrace, '}', "Close Brace", true},
	{KeyBackslash, '|', "Pipe", true}, {KeySemicolon, ':', "Colon", true},
	{KeyApostrophe, '"', "Double Quote", true}, {KeyGrave, '~', "Tilde", true},
	{KeyComma, '<', "Less Than", true}, {KeyPeriod, '>', "Greater Than", true}, {KeySlash, '?', "Question Mark", true},

	{KeySpace, ' ', "Space", false}, {KeyEnter, '\n', "Enter", false}, {KeyEscape, 27, "Escape", false},
	{KeyBackspace, 8, "Backspace", false}, {KeyTab, '\t', "Tab", false}, {KeyDelete, NoASCII, "Delete", false},
	{KeyUp, NoASCII, "Up Arrow", false}, {KeyDown, NoASCII, "Down Arrow", false},
	{KeyLeft, NoASCII, "Left Arrow", false}, {KeyRight, NoASCII, "Right Arrow", false},
	{KeyHome, NoASCII, "Home", false}, {KeyPageUp, NoASCII, "Page Up", false},
	{KeyEnd, NoASCII, "End", false}, {KeyPageDown, NoASCII, "Page Down", false},
	{KeyInsert, NoASCII, "Insert", false}, {KeyCapsLock, NoASCII, "Caps Lock", false},
	{KeyNonUSHash, NoASCII, "Non-US Pound", false}, {KeyNonUSBackslash, NoASCII, "Non-US Backslash", false},

	{KeyKp1, '1', "1 (Numpad)", false}, {KeyKp2, '2', "2 (Numpad)", false}, {KeyKp3, '3', "3 (Numpad)", false},
	{KeyKp4, '4', "4 (Numpad)", false}, {KeyKp5, '5', "5 (Numpad)", false}, {KeyKp6, '6', "6 (Numpad)", false},
	{KeyKp7, '7', "7 (Numpad)", false}, {KeyKp8, '8', "8 (Numpad)", false}, {KeyKp9, '9', "9 (Numpad)", false},
	{KeyKp0, '0', "0 (Numpad)", false}, {KeyKpDot, '.', "Decimal (Numpad)", false},
	{KeyKpEqual, '=', "Equal (Numpad)", false}, {KeyKpEnter, NoASCII, "Enter (Numpad)", false},
	{KeyKpSlash, '/', "Divide (Numpad)", false}, {KeyKpAsterisk, '*', "Multiply (Numpad)", false},
	{KeyKpMinus, '-', "Subtract (Numpad)", false}, {KeyKpPlus, '+', "Add (Numpad)", false},
	{KeyNumLock, NoASCII, "Num Lock", false},

	{KeyF1, NoASCII, "F1", false}, {KeyF2, NoASCII, "F2", false}, {KeyF3, NoASCII, "F3", false},
	{KeyF4, NoASCII, "F4", false}, {KeyF5, NoASCII, "F5", false}, {KeyF6, NoASCII, "F6", false},
	{KeyF7, NoASCII, "F7", false}, {KeyF8, NoASCII, "F8", false}, {KeyF9, NoASCII, "F9", false},
	{KeyF10, NoASCII, "F10", false}, {KeyF11, NoASCII, "F11", false}, {KeyF12, NoASCII, "F12", false},
	{KeyF13, NoASCII, "F13", false}, {KeyF14, NoASCII, "F14", false}, {KeyF15, NoASCII, "F15", false},
	{KeyF16, NoASCII, "F16", false}, {KeyF17, NoASCII, "F17", false}, {KeyF18, NoASCII, "F18", false},
	{KeyF19, NoASCII, "F19", false}, {KeyF20, NoASCII, "F20", false}, {KeyF21, NoASCII, "F21", false},
	{KeyF22, NoASCII, "F22", false}, {KeyF23, NoASCII, "F23", false}, {KeyF24, NoASCII, "F24", false},

	{KeyPrintScreen, NoASCII, "Print Screen", false}, {KeyScrollLock, NoASCII, "Scroll Lock", false},
	{KeyPause, NoASCII, "Pause", false}, {KeyApplication, NoASCII, "Application", false},
	{KeyPower, NoASCII, "Power", false}, {KeyExecute, NoASCII, "Execute", false},
	{KeyHelp, NoASCII, "Help", false}, {KeyMenu, NoASCII, "Menu", false},
	{KeySelect, NoASCII, "Select", false}, {KeyUndo, NoASCII, "Undo", false},
	{KeyCut, NoASCII, "Cut", false}, {KeyCopy, NoASCII, "Copy", false},
	{KeyPaste, NoASCII, "Paste", false}, {KeyFind, NoASCII, "Find", false},

	{KeyErrorRollOver, NoASCII, "Error Roll Over", false}, {KeyPOSTFail, NoASCII, "POST Fail", false},
	{KeyErrorUndef, NoASCII, "Error Undefined", false},
}

// LookupCode finds the entry for a scan code in the given shift state. When
// the code has no entry for that state, the first entry for the code is used.
func LookupCode(code uint8, shifted bool) (KeyInfo, bool) {
	var fallback KeyInfo
	found := false
	for _, k := range KeyMap {
		if k.ScanCode != code {
			continue
		}
		if k.Shifted == shifted {
			return k, true
		}
		if !found {
			fallback, found = k, true
		}
	}
	return fallback, found
}

// LookupChar finds the first entry producing the character c.
func LookupChar(c byte) (KeyInfo, bool) {
	for _, k := range KeyMap {
		if k.HasASCII() && byte(k.ASCII) == c {
			return k, true
		}
	}
	return KeyInfo{}, false
}

// Describe returns a short label for a scan code, used in debug logs.
func Describe(code uint8) string {
	if k, ok := LookupCode(code, false); ok {
		return k.Description
	}
	return fmt.Sprintf("0x%02X", code)
}
