package log_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Alia5/keybridge/internal/log"
	"github.com/stretchr/testify/assert"
)

func TestRawLogger(t *testing.T) {
	tests := []struct {
		name     string
		in       bool
		data     []byte
		contains []string
		empty    bool
	}{
		{
			name:     "inbound frame",
			in:       true,
			data:     []byte{0x22, 0x00, 0x0c, 0x0c, 0x0c, 0x0c, 0x0c, 0x0c},
			contains: []string{"IN ", "  8 bytes:", " 22 00 0c 0c 0c 0c 0c 0c\n"},
		},
		{
			name:     "outbound report",
			in:       false,
			data:     []byte{0x02, 0x00, 0x04},
			contains: []string{"OUT", "  3 bytes:", " 02 00 04\n"},
		},
		{
			name:  "empty data writes nothing",
			data:  nil,
			empty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.NewRaw(&buf).Log(tt.in, tt.data)
			if tt.empty {
				assert.Zero(t, buf.Len())
				return
			}
			out := buf.String()
			assert.Equal(t, 1, strings.Count(out, "\n"))
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
		})
	}
}

func TestRawLoggerNilWriter(t *testing.T) {
	assert.NotPanics(t, func() {
		log.NewRaw(nil).Log(true, []byte{1, 2, 3})
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.LevelTrace, log.ParseLevel("trace"))
	assert.Equal(t, log.ParseLevel("info"), log.ParseLevel(""))
	assert.Equal(t, log.ParseLevel("info"), log.ParseLevel("bogus"))
}
