//go:build linux

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemdUnitContent(t *testing.T) {
	unit := systemdUnitContent("/usr/local/bin/keybridge", "/dev/hidraw0")
	assert.Contains(t, unit, `ExecStart="/usr/local/bin/keybridge" run --hid.input=/dev/hidraw0`)
	assert.Contains(t, unit, "WorkingDirectory=/usr/local/bin\n")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}
