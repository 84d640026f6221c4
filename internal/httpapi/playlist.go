package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// listItems: GET /api/playlist/items
func (h *Handlers) listItems(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.List())
}

// createItem: POST /api/playlist/items
func (h *Handlers) createItem(w http.ResponseWriter, r *http.Request) {
	var item model.DisplayItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.store.Create(item)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// getItem: GET /api/playlist/items/{id}
func (h *Handlers) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ValidationFailed("invalid item id: %v", err))
		return
	}
	item, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// updateItem: PUT /api/playlist/items/{id}
func (h *Handlers) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ValidationFailed("invalid item id: %v", err))
		return
	}
	var item model.DisplayItem
	if err := decodeJSON(r, &item); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.store.Update(id, item)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// deleteItem: DELETE /api/playlist/items/{id}
func (h *Handlers) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, model.ValidationFailed("invalid item id: %v", err))
		return
	}
	if err := h.store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// reorderRequest is the body of PUT /api/playlist/reorder.
type reorderRequest struct {
	ItemIDs []uuid.UUID `json:"item_ids"`
}

// reorder: PUT /api/playlist/reorder
func (h *Handlers) reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	reordered, err := h.store.Reorder(req.ItemIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reordered)
}

// brightnessBody is the wire shape shared by the settings GET/PUT
// endpoints: {"brightness": v}.
type brightnessBody struct {
	Brightness model.Brightness `json:"brightness"`
}

// getBrightness: GET /api/settings/brightness
func (h *Handlers) getBrightness(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, brightnessBody{Brightness: h.store.Brightness()})
}

// setBrightness: PUT /api/settings/brightness
func (h *Handlers) setBrightness(w http.ResponseWriter, r *http.Request) {
	var body brightnessBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.SetBrightness(body.Brightness); err != nil {
		writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, brightnessBody{Brightness: h.store.Brightness()})
}
