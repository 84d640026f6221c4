package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

// decodeJSON reads r's body through a bounded io.LimitReader and decodes it
// into v, matching the video-sync donor's
// io.ReadAll(io.LimitReader(r.Body, N)) discipline. Any shape error is a
// ValidationFailed, translated to 400 by writeError.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return model.ValidationFailed("malformed request body: %v", err)
	}
	return nil
}

// respondJSON writes v as the JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logf("httpapi: encoding response: %v", err)
	}
}

// errorBody is the JSON shape returned for every non-2xx response.
type errorBody struct {
	Error string `json:"error"`
}

// writeError maps err's model.Kind to the status codes of spec.md §7 and
// writes a {"error": "..."} body.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch model.KindOf(err) {
	case model.KindValidationFailed, model.KindInvalidReorder:
		status = http.StatusBadRequest
	case model.KindNotFound:
		status = http.StatusNotFound
	case model.KindForbidden:
		status = http.StatusForbidden
	case model.KindConflict:
		// Conflict is reported as 403 per spec.md §6/§7's API-compatibility
		// note: "Conflict (preview already held) -> 403".
		status = http.StatusForbidden
	default:
		logf("httpapi: internal error: %v", err)
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}
