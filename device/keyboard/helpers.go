package keyboard

// CharReport returns the press report for a single character, adding Left
// Shift when the key table marks the entry as shifted.
func CharReport(c byte) (KeyReport, bool) {
	k, ok := LookupChar(c)
	if !ok {
		return KeyReport{}, false
	}
	var mod uint8
	if k.Shifted {
		mod = ModLeftShift
	}
	return Press(mod, k.ScanCode), true
}

// TypeChar converts a character to a press/release pair. Characters missing
// from the key table return ok=false.
func TypeChar(c byte) (press, release KeyReport, ok bool) {
	press, ok = CharReport(c)
	if !ok {
		return KeyReport{}, KeyReport{}, false
	}
	return press, Release(), true
}

// TypeString converts s into alternating press/release reports, skipping
// characters the key table cannot produce.
//
// Example:
//
//	reports := TypeString("Hi!")
//	// [Shift+H, release, i, release, Shift+1, release]
func TypeString(s string) []KeyReport {
	out := make([]KeyReport, 0, 2*len(s))
	for i := 0; i < len(s); i++ {
		press, release, ok := TypeChar(s[i])
		if !ok {
			continue
		}
		out = append(out, press, release)
	}
	return out
}

// EraseString returns press/release pairs that backspace over n characters.
func EraseString(n int) []KeyReport {
	out := make([]KeyReport, 0, 2*n)
	for i := 0; i < n; i++ {
		out = append(out, Press(0, KeyBackspace), Release())
	}
	return out
}
