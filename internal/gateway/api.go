package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/flemzord/scalegate/internal/agent"
	"github.com/flemzord/scalegate/internal/security"
	"github.com/go-chi/chi/v5"
)

// messageRequest is the body of POST /v1/messages. Persona is honoured
// only for unauthenticated deployments that trust client personas.
type messageRequest struct {
	SessionID string `json:"session_id"`
	Persona   string `json:"persona"`
	Text      string `json:"text"`
}

// replyRequest is the body of the confirm and reject endpoints.
type replyRequest struct {
	SessionID string `json:"session_id"`
	Ack       string `json:"ack"`
}

// toolJSON is a serializable tool policy entry.
type toolJSON struct {
	ID          string   `json:"id"`
	Handler     string   `json:"handler"`
	Tier        string   `json:"tier"`
	Description string   `json:"description"`
	Args        []string `json:"args,omitempty"`
}

// handlerJSON is a serializable handler policy entry.
type handlerJSON struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Personas    []string   `json:"personas"`
	Tools       []toolJSON `json:"tools"`
}

// handleMessage runs one utterance through the pipeline.
func (g *Gateway) handleMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req messageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Text) == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "session_id and text are required")
			return
		}
		g.metrics.RecordMessage()
		resp := g.agent.Handle(r.Context(), agent.Request{
			SessionID: req.SessionID,
			Persona:   g.persona(r.Context(), req.Persona),
			Text:      req.Text,
		})
		g.writeResponse(w, resp)
	}
}

// handleConfirm confirms a pending request and returns the tool result.
func (g *Gateway) handleConfirm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "session_id is required")
			return
		}
		g.metrics.RecordConfirmation()
		g.writeResponse(w, g.agent.Confirm(r.Context(), req.SessionID, chi.URLParam(r, "id"), req.Ack))
	}
}

// handleReject cancels a pending request.
func (g *Gateway) handleReject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "session_id is required")
			return
		}
		g.metrics.RecordConfirmation()
		g.writeResponse(w, g.agent.Reject(r.Context(), req.SessionID, chi.URLParam(r, "id")))
	}
}

// handlePending lists open confirmations of ?session=.
func (g *Gateway) handlePending() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := r.URL.Query().Get("session")
		if session == "" {
			writeError(w, http.StatusBadRequest, "bad_request", "session query parameter is required")
			return
		}
		g.writeResponse(w, g.agent.Pending(r.Context(), session))
	}
}

// handleTools lists handlers and their tools with risk tiers.
func (g *Gateway) handleTools() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out := []handlerJSON{}
		if g.catalog != nil {
			byHandler := make(map[string][]toolJSON)
			for _, t := range g.catalog.Tools() {
				tj := toolJSON{ID: t.ID, Handler: t.Handler, Tier: t.Tier.String(), Description: t.Description}
				for _, a := range t.Args {
					tj.Args = append(tj.Args, a.Name)
				}
				byHandler[t.Handler] = append(byHandler[t.Handler], tj)
			}
			for _, h := range g.catalog.Handlers() {
				tools := byHandler[h.ID]
				if tools == nil {
					tools = []toolJSON{}
				}
				out = append(out, handlerJSON{
					ID:          h.ID,
					Description: h.Description,
					Personas:    h.Personas,
					Tools:       tools,
				})
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// writeResponse encodes a pipeline response with a status derived from its
// error code. Conversational refusals (unknown intent, missing parameter)
// are answers, not HTTP failures.
func (g *Gateway) writeResponse(w http.ResponseWriter, resp agent.Response) {
	if resp.Kind == agent.KindError {
		g.metrics.RecordError()
	}
	writeJSON(w, statusFor(resp), resp)
}

func statusFor(resp agent.Response) int {
	if resp.Kind != agent.KindError {
		return http.StatusOK
	}
	switch resp.ErrorCode {
	case "not_found":
		return http.StatusNotFound
	case "session_mismatch", "persona_denied", "not_whitelisted":
		return http.StatusForbidden
	case "already_resolved", "expired":
		return http.StatusConflict
	case "acknowledgement_required":
		return http.StatusUnprocessableEntity
	case "rate_limited":
		return http.StatusTooManyRequests
	case "dispatch_failed":
		return http.StatusBadGateway
	case "internal", "classification_failed", "unknown_tool":
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// decodeBody decodes a JSON request body into v, writing a 400 or 413 on
// failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "bad_request", "reading body: "+err.Error())
		return false
	}
	if err := security.CheckPayload(data, 0, 0); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, map[string]string{"error": errCode, "message": msg})
}
