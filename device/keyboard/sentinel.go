package keyboard

import "fmt"

// SentinelModifier is the modifier byte that marks a relay frame as an
// out-of-band command rather than a keystroke.
const SentinelModifier = 0x22

// Sentinel is the code repeated in all six key slots of a sentinel frame.
type Sentinel uint8

const (
	SentinelCharterBegin Sentinel = 2  // text upload follows, NUL terminated
	SentinelCommandOff   Sentinel = 10 // peer left its command mode
	SentinelCommandOn    Sentinel = 11 // peer entered its command mode
	SentinelSuccess      Sentinel = 12
	SentinelError        Sentinel = 13
	SentinelCharterDone  Sentinel = 14 // upload finished
)

var sentinelNames = map[Sentinel]string{
	SentinelCharterBegin: "charter-begin",
	SentinelCommandOff:   "command-off",
	SentinelCommandOn:    "command-on",
	SentinelSuccess:      "success",
	SentinelError:        "error",
	SentinelCharterDone:  "charter-done",
}

// Sentinels lists every known sentinel, in code order.
var Sentinels = []Sentinel{
	SentinelCharterBegin, SentinelCommandOff, SentinelCommandOn,
	SentinelSuccess, SentinelError, SentinelCharterDone,
}

func (s Sentinel) String() string {
	if n, ok := sentinelNames[s]; ok {
		return n
	}
	return fmt.Sprintf("sentinel(%d)", uint8(s))
}

// ParseSentinelName maps a name as printed by String back to the sentinel.
func ParseSentinelName(name string) (Sentinel, bool) {
	for s, n := range sentinelNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// Report builds the frame that carries s.
func (s Sentinel) Report() KeyReport {
	r := KeyReport{Modifiers: SentinelModifier}
	for i := range r.Keys {
		r.Keys[i] = uint8(s)
	}
	return r
}

// ParseSentinel reports whether r is a frame for one of the known sentinels.
func ParseSentinel(r KeyReport) (Sentinel, bool) {
	if r.Modifiers != SentinelModifier {
		return 0, false
	}
	code := r.Keys[0]
	for _, k := range r.Keys[1:] {
		if k != code {
			return 0, false
		}
	}
	s := Sentinel(code)
	if _, ok := sentinelNames[s]; !ok {
		return 0, false
	}
	return s, true
}
