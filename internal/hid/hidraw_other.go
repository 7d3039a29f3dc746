//go:build !linux

package hid

import (
	"context"
	"errors"
	"time"

	"github.com/Alia5/keybridge/internal/log"
)

var errHidrawUnsupported = errors.New("hidraw input is only available on linux")

type HidrawSource struct{}

func OpenHidraw(string, bool, time.Duration, log.RawLogger) (*HidrawSource, error) {
	return nil, errHidrawUnsupported
}

func (*HidrawSource) ReadReport(context.Context) ([]byte, error) { return nil, errHidrawUnsupported }
func (*HidrawSource) Close() error                               { return nil }
