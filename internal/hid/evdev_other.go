//go:build !linux

package hid

import (
	"context"
	"errors"

	"github.com/Alia5/keybridge/internal/log"
)

var errEvdevUnsupported = errors.New("evdev input is only available on linux")

type EvdevSource struct{}

func OpenEvdev(string, bool, log.RawLogger) (*EvdevSource, error) {
	return nil, errEvdevUnsupported
}

func (*EvdevSource) ReadReport(context.Context) ([]byte, error) { return nil, errEvdevUnsupported }
func (*EvdevSource) Close() error                               { return nil }
