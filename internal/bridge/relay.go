package bridge

import (
	"bytes"
	"context"
	"io"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/Alia5/keybridge/internal/status"
)

// relayState is the per-peer read state. It is rebuilt for every new peer so
// nothing from a previous connection leaks into the next one.
type relayState struct {
	peerID string
	peer   io.Writer
	carry  bytes.Buffer // bytes of an incomplete frame
	upload bytes.Buffer // charter text received so far
	frames int
}

// PeerID returns the id of the connected relay peer, or "" when none is.
func (s *Session) PeerID() string { return s.relay.peerID }

// PeerConnected makes id the active peer. w receives mirrored local reports
// and may be nil.
func (s *Session) PeerConnected(id string, w io.Writer) {
	if s.relay.peerID != "" {
		s.logger.Info("relay peer superseded", "old", s.relay.peerID, "new", id)
	}
	s.SetCharter(false)
	s.relay = relayState{peerID: id, peer: w}
	s.logger.Info("relay peer connected", "peer", id)
}

// PeerClosed forgets the peer if it is still the active one.
func (s *Session) PeerClosed(id string) {
	if id != s.relay.peerID {
		return
	}
	if s.relay.carry.Len() > 0 {
		s.logger.Warn("relay peer left mid-frame", "peer", id, "pending", s.relay.carry.Len())
	}
	s.logger.Info("relay peer closed", "peer", id, "frames", s.relay.frames)
	s.SetCharter(false)
	s.relay = relayState{}
}

// HandlePeerBytes feeds bytes read from peer id. Complete 8-byte frames are
// decoded in arrival order; a trailing partial frame is kept for the next
// call. While charter mode is on the bytes are charter text up to a NUL.
func (s *Session) HandlePeerBytes(id string, data []byte) {
	if id != s.relay.peerID {
		s.logger.Debug("dropping bytes from stale relay peer", "peer", id, "bytes", len(data))
		return
	}
	s.relay.carry.Write(data)
	for {
		if s.charter {
			if !s.fillCharter() {
				return
			}
			continue
		}
		if s.relay.carry.Len() < keyboard.ReportSize {
			return
		}
		var r keyboard.KeyReport
		_ = r.UnmarshalBinary(s.relay.carry.Next(keyboard.ReportSize))
		s.relay.frames++
		s.handleFrame(r)
	}
}

// fillCharter moves carried bytes into the upload buffer. It returns true
// when a NUL completed the upload and more carried bytes may follow.
func (s *Session) fillCharter() bool {
	pending := s.relay.carry.Bytes()
	end := bytes.IndexByte(pending, 0)
	chunk := pending
	if end >= 0 {
		chunk = pending[:end]
	}
	if room := s.cfg.MaxCharter - s.relay.upload.Len(); room < len(chunk) {
		if room < 0 {
			room = 0
		}
		s.logger.Warn("charter upload too large, truncating", "limit", s.cfg.MaxCharter)
		chunk = chunk[:room]
	}
	s.relay.upload.Write(chunk)
	if end < 0 {
		s.relay.carry.Reset()
		return false
	}
	s.relay.carry.Next(end + 1)

	text := s.relay.upload.String()
	s.logger.Log(context.Background(), log.LevelTrace, "relay charter upload", "peer", s.relay.peerID, "bytes", len(text))
	if text != "" {
		s.SetCharterText(text)
	}
	s.handleSentinel(keyboard.SentinelCharterDone)
	return true
}

func (s *Session) handleFrame(r keyboard.KeyReport) {
	s.logger.Log(context.Background(), log.LevelTrace, "relay frame", "peer", s.relay.peerID, "report", r.String())
	if sentinel, ok := keyboard.ParseSentinel(r); ok {
		s.handleSentinel(sentinel)
		return
	}
	s.send(r)
}

func (s *Session) handleSentinel(sentinel keyboard.Sentinel) {
	s.logger.Debug("relay sentinel", "sentinel", sentinel.String())
	switch sentinel {
	case keyboard.SentinelCommandOff:
		s.status.Set(status.Idle)
	case keyboard.SentinelCommandOn:
		s.status.Set(status.Command)
	case keyboard.SentinelSuccess:
		s.status.Set(status.Success)
	case keyboard.SentinelError:
		s.status.Set(status.Error)
	case keyboard.SentinelCharterBegin:
		s.SetCharter(true)
	case keyboard.SentinelCharterDone:
		s.SetCharter(false)
		s.status.Set(status.Idle)
	}
}

// mirror copies a local report to the relay peer.
func (s *Session) mirror(r keyboard.KeyReport) {
	if !s.cfg.Mirror || s.relay.peer == nil {
		return
	}
	if _, err := s.relay.peer.Write(r.BuildReport()); err != nil {
		s.logger.Debug("mirror to relay peer failed", "peer", s.relay.peerID, "error", err)
	}
}
