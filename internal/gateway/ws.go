package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/flemzord/scalegate/internal/agent"
	"github.com/flemzord/scalegate/internal/security"
	"github.com/google/uuid"
)

// Frame types accepted on /v1/ws.
const (
	frameMessage = "message"
	frameConfirm = "confirm"
	frameReject  = "reject"
	framePending = "pending"
)

// wsFrame is one client frame. SessionID defaults to the connection's
// session when empty.
type wsFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Persona   string `json:"persona,omitempty"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Ack       string `json:"ack,omitempty"`
}

// wsReply wraps a pipeline response with the session it belongs to.
type wsReply struct {
	SessionID string `json:"session_id"`
	agent.Response
}

// handleWebSocket serves an interactive conversation over one connection.
// Frames are handled in order; each gets exactly one reply.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: g.config.OriginPatterns,
		})
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()
		conn.SetReadLimit(g.config.MaxBodyBytes + 1)

		g.metrics.wsOpened()
		defer g.metrics.wsClosed()

		session := r.URL.Query().Get("session")
		if session == "" {
			session = uuid.NewString()
		}
		g.logger.Debug("websocket session opened", "session", session)

		if err := g.readLoop(r.Context(), conn, session); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			g.logger.Warn("websocket session ended", "session", session, "error", err)
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, conn *websocket.Conn, session string) error {
	for {
		f, err := g.readFrame(ctx, conn)
		if err != nil {
			return err
		}
		sid := f.SessionID
		if sid == "" {
			sid = session
		}
		resp := g.handleFrame(ctx, sid, f)
		if resp.Kind == agent.KindError {
			g.metrics.RecordError()
		}
		if err := wsjson.Write(ctx, conn, wsReply{SessionID: sid, Response: resp}); err != nil {
			return err
		}
	}
}

// readFrame reads one text frame, bounded by max_body_bytes and the JSON
// nesting limit.
func (g *Gateway) readFrame(ctx context.Context, conn *websocket.Conn) (wsFrame, error) {
	var f wsFrame
	_, data, err := conn.Read(ctx)
	if err != nil {
		return f, err
	}
	if err := security.CheckPayload(data, int(g.config.MaxBodyBytes), 0); err != nil {
		status := websocket.StatusInvalidFramePayloadData
		if errors.Is(err, security.ErrPayloadTooLarge) {
			status = websocket.StatusMessageTooBig
		}
		_ = conn.Close(status, err.Error())
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		_ = conn.Close(websocket.StatusInvalidFramePayloadData, "invalid JSON frame")
		return f, err
	}
	return f, nil
}

func (g *Gateway) handleFrame(ctx context.Context, session string, f wsFrame) agent.Response {
	switch f.Type {
	case frameMessage, "":
		g.metrics.RecordMessage()
		return g.agent.Handle(ctx, agent.Request{SessionID: session, Persona: g.persona(ctx, f.Persona), Text: f.Text})
	case frameConfirm:
		g.metrics.RecordConfirmation()
		return g.agent.Confirm(ctx, session, f.ID, f.Ack)
	case frameReject:
		g.metrics.RecordConfirmation()
		return g.agent.Reject(ctx, session, f.ID)
	case framePending:
		return g.agent.Pending(ctx, session)
	default:
		return agent.Response{
			Kind:      agent.KindError,
			Text:      fmt.Sprintf("unknown frame type %q", f.Type),
			ErrorCode: "bad_request",
		}
	}
}
