package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// previewResponse is the {item, session_id} shape returned by
// acquire/update, per spec.md §6.
type previewResponse struct {
	Item      model.DisplayItem `json:"item"`
	SessionID uuid.UUID         `json:"session_id"`
}

// sessionOnlyRequest is the {session_id} shape shared by release, ping and
// session-check.
type sessionOnlyRequest struct {
	SessionID uuid.UUID `json:"session_id"`
}

// previewUpdateRequest is the {item, session_id} body of PUT /api/preview.
type previewUpdateRequest struct {
	Item      model.DisplayItem `json:"item"`
	SessionID uuid.UUID         `json:"session_id"`
}

// previewAcquire: POST /api/preview
func (h *Handlers) previewAcquire(w http.ResponseWriter, r *http.Request) {
	var item model.DisplayItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	if err := item.Validate(); err != nil {
		writeError(w, err)
		return
	}
	acquired, sessionID, err := h.preview.Acquire(item)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, previewResponse{Item: acquired, SessionID: sessionID})
}

// previewUpdate: PUT /api/preview
func (h *Handlers) previewUpdate(w http.ResponseWriter, r *http.Request) {
	var req previewUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.Item.Validate(); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.preview.Update(req.SessionID, req.Item)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, previewResponse{Item: updated, SessionID: req.SessionID})
}

// previewRelease: DELETE /api/preview
func (h *Handlers) previewRelease(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.preview.Release(req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// previewStatusResponse is the {active} shape of GET /api/preview/status.
type previewStatusResponse struct {
	Active bool `json:"active"`
}

// previewStatus: GET /api/preview/status
func (h *Handlers) previewStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, previewStatusResponse{Active: h.preview.IsActive()})
}

// previewPing: POST /api/preview/ping
func (h *Handlers) previewPing(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.preview.Ping(req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// previewSessionResponse is the {is_owner} shape of POST /api/preview/session.
type previewSessionResponse struct {
	IsOwner bool `json:"is_owner"`
}

// previewSession: POST /api/preview/session
func (h *Handlers) previewSession(w http.ResponseWriter, r *http.Request) {
	var req sessionOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, previewSessionResponse{IsOwner: h.preview.IsOwner(req.SessionID)})
}
