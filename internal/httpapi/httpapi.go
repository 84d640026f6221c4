// Package httpapi implements the HTTP API (C7): request routing, JSON
// (de)serialization, validation, and SSE streaming, binding C4 (the State
// Store), C5 (the Event Bus) and C6 (the Preview Lock Manager) to the wire
// surface of spec.md §6. The teacher repo has no HTTP layer of its own, so
// routing and handler shape are grounded on other_examples'
// jota2rz-vdj-video-sync server/internal/handlers/handlers.go: a Handlers
// struct holding dependency handles, standard library net/http.ServeMux
// with Go 1.22+ method+PathValue patterns, io.LimitReader-bounded request
// bodies, and hand-written SSE with http.Flusher. Logging stays on the
// stdlib log package to match the teacher's own logging choice.
package httpapi

import (
	"log"
	"net/http"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/preview"
	"github.com/fcurrie/led-matrix-controller/internal/store"
)

// maxBodyBytes bounds request bodies read by the handlers below, matching
// the video-sync donor's io.LimitReader(r.Body, N) discipline and spec.md
// §5's "request-body size limits apply per configured web framework
// defaults" — DisplayItem bodies can carry a number of text segments, so
// the cap is generous relative to the tiny preview/brightness bodies.
const maxBodyBytes = 1 << 20 // 1 MiB

// Ready reports whether the panel driver has completed its first frame, for
// the /healthz endpoint. Implemented by both panel.NativeDriver and
// panel.BoundDriver; checked via an interface assertion so Handlers does not
// need to import pkg/panel at all.
type Ready interface {
	HasRendered() bool
}

// Handlers holds the dependency handles every HTTP handler delegates to.
// Handlers are stateless beyond these handles: no handler holds state
// across requests, per spec.md §4.7.
type Handlers struct {
	store   *store.Store
	preview *preview.Manager
	bus     *bus.Bus
	driver  Ready
}

// New builds a Handlers bound to the given State Store, Preview Lock
// Manager, Event Bus, and (optionally) a readiness probe for /healthz.
func New(s *store.Store, p *preview.Manager, b *bus.Bus, driver Ready) *Handlers {
	return &Handlers{store: s, preview: p, bus: b, driver: driver}
}

// Routes builds the ServeMux binding every path in spec.md §6 to its
// handler, plus the supplemented /healthz of SPEC_FULL.md §6.
func (h *Handlers) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/playlist/items", h.listItems)
	mux.HandleFunc("POST /api/playlist/items", h.createItem)
	mux.HandleFunc("GET /api/playlist/items/{id}", h.getItem)
	mux.HandleFunc("PUT /api/playlist/items/{id}", h.updateItem)
	mux.HandleFunc("DELETE /api/playlist/items/{id}", h.deleteItem)
	mux.HandleFunc("PUT /api/playlist/reorder", h.reorder)

	mux.HandleFunc("GET /api/settings/brightness", h.getBrightness)
	mux.HandleFunc("PUT /api/settings/brightness", h.setBrightness)

	mux.HandleFunc("POST /api/preview", h.previewAcquire)
	mux.HandleFunc("PUT /api/preview", h.previewUpdate)
	mux.HandleFunc("DELETE /api/preview", h.previewRelease)
	mux.HandleFunc("GET /api/preview/status", h.previewStatus)
	mux.HandleFunc("POST /api/preview/ping", h.previewPing)
	mux.HandleFunc("POST /api/preview/session", h.previewSession)

	mux.HandleFunc("GET /api/events/playlist", h.sseHandler(bus.TopicPlaylist))
	mux.HandleFunc("GET /api/events/brightness", h.sseHandler(bus.TopicBrightness))
	mux.HandleFunc("GET /api/events/editor", h.sseHandler(bus.TopicEditor))

	mux.HandleFunc("GET /healthz", h.healthz)

	return mux
}

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	if h.driver != nil && !h.driver.HasRendered() {
		http.Error(w, "panel driver has not rendered a frame yet", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// logf is the package's single logging entry point, kept as a thin wrapper
// so every handler logs through the stdlib log package the same way the
// teacher's cmd/hub75-gpio/main.go does.
func logf(format string, args ...any) {
	log.Printf(format, args...)
}
