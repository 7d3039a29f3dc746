//go:build linux

package hid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/Alia5/keybridge/internal/log"
)

// HidrawSource reads boot keyboard reports from a /dev/hidrawN node. The
// descriptor is polled with a timeout so a blocked read never outlives ctx.
type HidrawSource struct {
	mu        sync.Mutex
	fd        int
	reportID  bool
	timeout   time.Duration
	rawLogger log.RawLogger
	buf       [64]byte
}

// OpenHidraw opens path non-blocking. Set reportID when the device prefixes
// every report with a report ID byte.
func OpenHidraw(path string, reportID bool, pollTimeout time.Duration, rawLogger log.RawLogger) (*HidrawSource, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open hidraw %s: %w", path, err)
	}
	return newHidrawSource(fd, reportID, pollTimeout, rawLogger), nil
}

func newHidrawSource(fd int, reportID bool, pollTimeout time.Duration, rawLogger log.RawLogger) *HidrawSource {
	if pollTimeout <= 0 {
		pollTimeout = 100 * time.Millisecond
	}
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &HidrawSource{fd: fd, reportID: reportID, timeout: pollTimeout, rawLogger: rawLogger}
}

func (s *HidrawSource) ReadReport(ctx context.Context) ([]byte, error) {
	ms := int(s.timeout / time.Millisecond)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.poll(ms)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		s.rawLogger.Log(true, data)
		if s.reportID {
			data = data[1:]
		}
		return bootToNormalized(data), nil
	}
}

// poll waits up to ms for one report. A nil slice without error means the
// wait timed out.
func (s *HidrawSource) poll(ms int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil, io.EOF
	}
	fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("poll hidraw: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if fds[0].Revents&unix.POLLIN == 0 && fds[0].Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
		return nil, io.EOF
	}
	r, err := unix.Read(s.fd, s.buf[:])
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return nil, nil
		}
		return nil, fmt.Errorf("read hidraw: %w", err)
	}
	if r == 0 {
		return nil, io.EOF
	}
	if s.reportID && r < 2 {
		return nil, nil
	}
	return append([]byte(nil), s.buf[:r]...), nil
}

// Close releases the descriptor. A reader blocked in ReadReport returns
// io.EOF after its current poll interval.
func (s *HidrawSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
