// Package httpapi implements the JSON ingress for normalized inbound events.
//
// The webhook adapter (signature verification, WhatsApp payload parsing)
// lives outside this service; it POSTs already-normalized events here and
// forwards the returned intents to the sender.
//
// Routes:
//
//	POST /events → process one inbound event, respond with outbound intents
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/robertmcarvalho/rh-kelly-agent/internal/funnel"
	"github.com/robertmcarvalho/rh-kelly-agent/internal/orchestrator"
)

// Handler holds shared dependencies.
type Handler struct {
	orc *orchestrator.Orchestrator
}

// NewHandler returns a configured Handler.
func NewHandler(orc *orchestrator.Orchestrator) *Handler {
	return &Handler{orc: orc}
}

// RegisterRoutes mounts all funnel-service routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/events", h.handleEvent)
}

type eventResponse struct {
	Duplicate bool            `json:"duplicate"`
	Intents   []funnel.Intent `json:"intents"`
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var ev funnel.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if ev.SenderID == "" {
		jsonError(w, "body must contain senderId", http.StatusBadRequest)
		return
	}

	intents, err := h.orc.HandleEvent(r.Context(), ev)
	if err != nil {
		log.Printf("[funnel-service] handleEvent error for %s: %v", ev.SenderID, err)
		// The try-again acknowledgment still goes out so the candidate is
		// never left without a reply.
		jsonWith(w, http.StatusServiceUnavailable, eventResponse{Intents: intents})
		return
	}

	jsonWith(w, http.StatusOK, eventResponse{
		Duplicate: ev.MessageID != "" && len(intents) == 0,
		Intents:   intents,
	})
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func jsonWith(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonWith(w, code, map[string]string{"error": msg})
}
