package keyboard

// Normalize converts a raw HID input buffer into a KeyReport.
//
// Buffer layout (at least 8 bytes):
//
//	Byte 0:    Report ID (ignored)
//	Byte 1:    Modifiers
//	Bytes 2-7: Scan codes
//
// Non-zero scan codes are packed in the order they appear, capped at six.
// Unknown codes are passed through untouched. Short buffers yield ok=false.
func Normalize(buf []byte) (report KeyReport, ok bool) {
	if len(buf) < ReportSize {
		return KeyReport{}, false
	}
	report.Modifiers = buf[1]
	n := 0
	for _, code := range buf[2:ReportSize] {
		if code == 0 {
			continue
		}
		if n == MaxKeys {
			break
		}
		report.Keys[n] = code
		n++
	}
	return report, true
}
