// Package handler implements the control API routes on top of a bridge
// session. Every handler runs its work on the session goroutine via Call.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Alia5/keybridge/apitypes"
	"github.com/Alia5/keybridge/internal/apierror"
	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/control"
)

// Session is the part of *bridge.Session the handlers need.
type Session interface {
	Call(ctx context.Context, fn func(ctx context.Context, s *bridge.Session)) error
}

// Register wires every route onto r.
func Register(r *control.Router, sess Session, version string) {
	r.Register("ping", Ping(version))
	r.Register("status", Status(sess))
	r.Register("message/set", MessageSet(sess))
	r.Register("message/cancel", MessageCancel(sess))
	r.Register("message/clear", MessageClear(sess))
	r.Register("charter/set", CharterSet(sess))
	r.Register("command/{name}", Command(sess))
}

func respond(res *control.Response, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	res.JSON = string(b)
	return nil
}

func call(req *control.Request, sess Session, fn func(ctx context.Context, s *bridge.Session)) error {
	if err := sess.Call(req.Ctx, fn); err != nil {
		return apierror.ErrUnavailable("bridge session not running: " + err.Error())
	}
	return nil
}

// decodeText accepts {"text": "..."} or, failing that, the raw payload.
func decodeText(payload string) string {
	var body struct {
		Text *string `json:"text"`
	}
	if json.Unmarshal([]byte(payload), &body) == nil && body.Text != nil {
		return *body.Text
	}
	return payload
}

func Ping(version string) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		return respond(res, apitypes.PingResponse{Server: "keybridge", Version: version})
	}
}

func Status(sess Session) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		var snap bridge.Snapshot
		if err := call(req, sess, func(_ context.Context, s *bridge.Session) { snap = s.Snapshot() }); err != nil {
			return err
		}
		return respond(res, apitypes.StatusResponse{
			Mode:               snap.Mode,
			Charter:            snap.Charter,
			Status:             snap.Status,
			Command:            snap.Command,
			Message:            snap.Message,
			MessageRemaining:   snap.MessageLeft,
			CharterText:        snap.CharterText,
			Peer:               snap.Peer,
			PeerFrames:         snap.PeerFrames,
			CharterUploadBytes: snap.CharterPending,
		})
	}
}

func MessageSet(sess Session) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		text := decodeText(req.Payload)
		if text == "" {
			return apierror.ErrBadRequest("message text is empty")
		}
		var n int
		if err := call(req, sess, func(_ context.Context, s *bridge.Session) { n = s.SetMessage(text) }); err != nil {
			return err
		}
		logger.Info("message set via control API", "reports", n)
		return respond(res, apitypes.MessageSetResponse{Reports: n})
	}
}

func messageOp(sess Session, op func(s *bridge.Session)) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		var out apitypes.MessageResponse
		if err := call(req, sess, func(_ context.Context, s *bridge.Session) {
			op(s)
			out.Mode = s.Mode().String()
			out.MessageRemaining = s.Snapshot().MessageLeft
		}); err != nil {
			return err
		}
		return respond(res, out)
	}
}

// MessageCancel stops key-press playback at the next trigger.
func MessageCancel(sess Session) control.HandlerFunc {
	return messageOp(sess, (*bridge.Session).CancelPlayback)
}

// MessageClear drops the pending message.
func MessageClear(sess Session) control.HandlerFunc {
	return messageOp(sess, (*bridge.Session).ClearMessage)
}

func CharterSet(sess Session) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		text := decodeText(req.Payload)
		var n int
		if err := call(req, sess, func(_ context.Context, s *bridge.Session) {
			s.SetCharterText(text)
			n = len(s.CharterText())
		}); err != nil {
			return err
		}
		return respond(res, apitypes.CharterSetResponse{Chars: n})
	}
}

// Command runs a named command exactly as if it had been typed in Command
// mode and submitted.
func Command(sess Session) control.HandlerFunc {
	return func(req *control.Request, res *control.Response, logger *slog.Logger) error {
		name := req.Params["name"]
		var (
			known bool
			snap  bridge.Snapshot
		)
		if err := call(req, sess, func(ctx context.Context, s *bridge.Session) {
			known = s.Dispatch(ctx, name)
			snap = s.Snapshot()
		}); err != nil {
			return err
		}
		if !known {
			return apierror.ErrNotFound("unknown command: " + name)
		}
		return respond(res, apitypes.CommandResponse{Command: name, Status: snap.Status})
	}
}
