// Package control serves the local control API: a NUL-terminated request
// "path[ payload]" per connection, answered with one JSON line.
package control

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Alia5/keybridge/internal/apierror"
	"github.com/Alia5/keybridge/internal/auth"
)

var wsRegex = regexp.MustCompile(`\s`)

// Server accepts control connections and dispatches them through its Router.
type Server struct {
	cfg    Config
	key    []byte
	logger *slog.Logger
	router *Router

	mu     sync.Mutex
	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a server. A non-empty cfg.Password requires every client to
// complete the auth handshake.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger, router: NewRouter()}
	if cfg.Password != "" {
		key, err := auth.DeriveKey(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("derive control key: %w", err)
		}
		s.key = key
	}
	if s.cfg.RequestTimeout <= 0 {
		s.cfg.RequestTimeout = 5 * time.Second
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Router returns the router so callers can register handlers.
func (s *Server) Router() *Router { return s.router }

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("control API listening", "addr", ln.Addr().String(), "auth", s.key != nil)
	s.wg.Add(1)
	go s.serve(ln)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops accepting, cancels in-flight requests and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) serve(ln net.Listener) {
	defer s.wg.Done()
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.logger.Info("control API stopped")
				return
			}
			s.logger.Warn("control accept error", "error", err)
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(c)
		}()
	}
}

func writeError(w io.Writer, err error) {
	problem, _ := json.Marshal(apierror.WrapError(err))
	fmt.Fprintf(w, "%s\n", problem)
}

func writeOK(w io.Writer, body string) {
	fmt.Fprintf(w, "%s\n", body)
}

func (s *Server) handleConn(raw net.Conn) {
	defer raw.Close()
	logger := s.logger.With("remote", raw.RemoteAddr().String(), "request", uuid.NewString())
	_ = raw.SetReadDeadline(time.Now().Add(s.cfg.RequestTimeout))

	var conn net.Conn = raw
	r := bufio.NewReader(raw)
	if s.key != nil {
		isAuth, err := auth.IsHandshake(r)
		if err != nil || !isAuth {
			logger.Warn("control client did not authenticate")
			writeError(raw, apierror.ErrUnauthorized("password required"))
			return
		}
		conn, err = auth.SecureServer(raw, r, s.key)
		if err != nil {
			logger.Warn("control handshake failed", "error", err)
			writeError(raw, err)
			return
		}
		r = bufio.NewReader(conn)
	}

	reqData, err := r.ReadString('\x00')
	if err != nil {
		if errors.Is(err, io.EOF) {
			logger.Error("control incomplete request (no null terminator)")
		} else {
			logger.Error("read control request", "error", err)
		}
		return
	}
	_ = raw.SetReadDeadline(time.Time{})
	reqData = strings.TrimSuffix(reqData, "\x00")
	if reqData == "" {
		writeError(conn, apierror.ErrBadRequest("empty request"))
		return
	}

	path, payload := reqData, ""
	if loc := wsRegex.FindStringIndex(reqData); loc != nil {
		path, payload = reqData[:loc[0]], reqData[loc[1]:]
	}
	if path == "" {
		writeError(conn, apierror.ErrBadRequest("empty path"))
		return
	}
	logger.Info("control request", "path", path)

	h, params := s.router.Match(path)
	if h == nil {
		logger.Warn("control unknown path", "path", path)
		writeError(conn, apierror.ErrNotFound(fmt.Sprintf("unknown path: %s", path)))
		return
	}
	req := &Request{Ctx: s.ctx, Params: params, Payload: payload}
	res := &Response{}
	if err := h(req, res, logger); err != nil {
		logger.Error("control handler error", "path", path, "error", err)
		writeError(conn, err)
		return
	}
	logger.Debug("control handler success", "path", path)
	writeOK(conn, res.JSON)
}
