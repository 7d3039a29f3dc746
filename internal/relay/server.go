// Package relay accepts the single relay peer over TCP and feeds its bytes
// into the bridge session. A newer peer replaces the current one.
package relay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alia5/keybridge/internal/auth"
	"github.com/Alia5/keybridge/internal/log"
)

// Sink receives peer events. *bridge.Session implements it.
type Sink interface {
	PostPeerConnected(ctx context.Context, id string, w io.Writer) error
	PostPeerBytes(ctx context.Context, id string, data []byte) error
	PostPeerClosed(ctx context.Context, id string) error
}

type Server struct {
	cfg       Config
	key       []byte
	sink      Sink
	logger    *slog.Logger
	rawLogger log.RawLogger

	mu     sync.Mutex
	ln     net.Listener
	active *peer
	ready  chan struct{}
	wg     sync.WaitGroup
}

type peer struct {
	id   string
	conn net.Conn
}

func New(cfg Config, sink Sink, logger *slog.Logger, rawLogger log.RawLogger) (*Server, error) {
	s := &Server{
		cfg:       cfg,
		sink:      sink,
		logger:    logger,
		rawLogger: rawLogger,
		ready:     make(chan struct{}),
	}
	if cfg.Password != "" {
		key, err := auth.DeriveKey(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("derive relay key: %w", err)
		}
		s.key = key
	}
	if s.rawLogger == nil {
		s.rawLogger = log.NewRaw(nil)
	}
	if s.cfg.WriteTimeout <= 0 {
		s.cfg.WriteTimeout = 200 * time.Millisecond
	}
	if s.cfg.AuthTimeout <= 0 {
		s.cfg.AuthTimeout = 5 * time.Second
	}
	return s, nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ListenAndServe accepts peers until ctx is cancelled or Close is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	close(s.ready)
	s.logger.Info("relay listening", "addr", ln.Addr().String(), "auth", s.key != nil)

	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.logger.Info("relay stopped")
				return nil
			}
			s.logger.Error("relay accept error", "error", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handlePeer(ctx, conn)
		}()
	}
}

// Close stops the listener and disconnects the active peer.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		_ = s.active.conn.Close()
	}
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

func (s *Server) handlePeer(ctx context.Context, raw net.Conn) {
	defer raw.Close()
	id := uuid.NewString()
	logger := s.logger.With("peer", id, "remote", raw.RemoteAddr().String())
	if tcp, ok := raw.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}

	var conn net.Conn = raw
	var r io.Reader = raw
	if s.key != nil {
		_ = raw.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout))
		br := bufio.NewReader(raw)
		ok, err := auth.IsHandshake(br)
		if err != nil || !ok {
			logger.Warn("relay peer did not authenticate", "error", err)
			return
		}
		if conn, err = auth.SecureServer(raw, br, s.key); err != nil {
			logger.Warn("relay handshake failed", "error", err)
			return
		}
		_ = raw.SetReadDeadline(time.Time{})
		r = conn
	}

	p := &peer{id: id, conn: conn}
	defer func() {
		s.mu.Lock()
		if s.active == p {
			s.active = nil
		}
		s.mu.Unlock()
	}()
	if err := s.activate(ctx, p, logger); err != nil {
		return
	}

	total, err := s.readLoop(ctx, id, r)
	if err != nil && !isExpectedDisconnect(err) {
		logger.Warn("relay read error", "error", err)
	}
	logger.Info("relay peer disconnected", "bytes", total)
	// ctx may already be done; the session is then stopping anyway
	_ = s.sink.PostPeerClosed(context.WithoutCancel(ctx), id)
}

// activate makes p the active peer. The swap and the session event happen
// under one lock so the session sees peers in the order they replaced each
// other.
func (s *Server) activate(ctx context.Context, p *peer, logger *slog.Logger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := s.active; old != nil {
		logger.Info("replacing relay peer", "old", old.id)
		_ = old.conn.Close()
	}
	s.active = p
	w := &deadlineWriter{conn: p.conn, timeout: s.cfg.WriteTimeout, raw: s.rawLogger}
	if err := s.sink.PostPeerConnected(ctx, p.id, w); err != nil {
		return err
	}
	logger.Info("relay peer connected")
	return nil
}

func (s *Server) readLoop(ctx context.Context, id string, r io.Reader) (int64, error) {
	buf := make([]byte, 4096)
	var total int64
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			total += int64(n)
			s.rawLogger.Log(true, buf[:n])
			if err := s.sink.PostPeerBytes(ctx, id, buf[:n]); err != nil {
				return total, err
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return total, nil
			}
			return total, rerr
		}
	}
}

// deadlineWriter bounds every mirror write so a stalled peer cannot block
// the session goroutine.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
	raw     log.RawLogger
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	_ = w.conn.SetWriteDeadline(time.Now().Add(w.timeout))
	n, err := w.conn.Write(p)
	if n > 0 {
		w.raw.Log(false, p[:n])
	}
	return n, err
}

func isExpectedDisconnect(err error) bool {
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return true
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "connection reset") ||
		strings.Contains(e, "broken pipe") ||
		strings.Contains(e, "forcibly closed")
}
