// Package keyboard holds the boot keyboard report model, the key table and
// the helpers that turn text into reports.
package keyboard

import (
	"fmt"
	"io"
	"strings"
)

// KeyReport is an 8-byte boot protocol keyboard report.
//
// Wire layout (8 bytes):
//
//	Byte 0:    Modifiers (8 bits)
//	Byte 1:    Reserved (0x00 on emission)
//	Bytes 2-7: Up to six HID usage codes, zero padded
type KeyReport struct {
	Modifiers uint8
	Reserved  uint8
	Keys      [MaxKeys]uint8
}

// Release returns the all-zero report that releases every key.
func Release() KeyReport { return KeyReport{} }

// Press returns a report with the given modifiers and keys held. Keys beyond
// the sixth are dropped.
func Press(modifiers uint8, keys ...uint8) KeyReport {
	r := KeyReport{Modifiers: modifiers}
	for i, k := range keys {
		if i >= MaxKeys {
			break
		}
		r.Keys[i] = k
	}
	return r
}

// IsEmpty reports whether no key and no modifier is held.
func (r KeyReport) IsEmpty() bool {
	return r.Modifiers == 0 && r.Keys == [MaxKeys]uint8{}
}

// Shifted reports whether either Shift modifier is held.
func (r KeyReport) Shifted() bool { return r.Modifiers&ModShift != 0 }

// Has reports whether code is one of the held keys.
func (r KeyReport) Has(code uint8) bool {
	if code == 0 {
		return false
	}
	for _, k := range r.Keys {
		if k == code {
			return true
		}
	}
	return false
}

// Pressed returns the non-zero key codes in order.
func (r KeyReport) Pressed() []uint8 {
	out := make([]uint8, 0, MaxKeys)
	for _, k := range r.Keys {
		if k != 0 {
			out = append(out, k)
		}
	}
	return out
}

// NewlyPressed returns the keys held in r that were not held in prev.
func (r KeyReport) NewlyPressed(prev KeyReport) []uint8 {
	var out []uint8
	for _, k := range r.Keys {
		if k != 0 && !prev.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// BuildReport encodes the report into its 8-byte wire form. Reserved is
// always emitted as zero.
func (r KeyReport) BuildReport() []byte {
	b := make([]byte, ReportSize)
	b[0] = r.Modifiers
	copy(b[2:], r.Keys[:])
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r KeyReport) MarshalBinary() ([]byte, error) {
	return r.BuildReport(), nil
}

// UnmarshalBinary decodes the first 8 bytes of data.
func (r *KeyReport) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	r.Modifiers = data[0]
	r.Reserved = data[1]
	copy(r.Keys[:], data[2:ReportSize])
	return nil
}

func (r KeyReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "mod=0x%02X keys=[", r.Modifiers)
	for i, k := range r.Pressed() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(Describe(k))
	}
	sb.WriteByte(']')
	return sb.String()
}
