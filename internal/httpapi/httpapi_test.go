package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/internal/preview"
	"github.com/fcurrie/led-matrix-controller/internal/store"
)

// newTestHandlers builds a Handlers wired to a fresh in-memory store and
// preview manager rooted at a temp-dir state file.
func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	b := bus.New()
	s, err := store.Open(filepath.Join(t.TempDir(), "state.json"), b)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	p := preview.New(b)
	return New(s, p, b, nil)
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
	return v
}

func staticTextItem(text string) model.DisplayItem {
	d := uint32(5)
	return model.DisplayItem{
		Duration: &d,
		Content: model.Content{
			ContentType: model.ContentTypeText,
			Data: model.TextContent{
				Text:  text,
				Color: model.Color{R: 255},
			},
		},
	}
}

// TestCreateThenFetch covers spec.md §8 scenario 1.
func TestCreateThenFetch(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/playlist/items", staticTextItem("Hi"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/playlist/items status = %d, body = %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[model.DisplayItem](t, rec)
	if created.ID == uuid.Nil {
		t.Errorf("created item has nil id")
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/playlist/items", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/playlist/items status = %d", rec.Code)
	}
	items := decodeBody[model.Playlist](t, rec)
	if len(items) != 1 || items[0].ID != created.ID {
		t.Errorf("GET /api/playlist/items = %+v, want [%v]", items, created.ID)
	}
}

// TestReorder covers spec.md §8 scenario 2.
func TestReorder(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	var ids []uuid.UUID
	for _, text := range []string{"A", "B", "C"} {
		rec := doJSON(t, mux, http.MethodPost, "/api/playlist/items", staticTextItem(text))
		created := decodeBody[model.DisplayItem](t, rec)
		ids = append(ids, created.ID)
	}

	reordered := []uuid.UUID{ids[2], ids[0], ids[1]}
	rec := doJSON(t, mux, http.MethodPut, "/api/playlist/reorder", reorderRequest{ItemIDs: reordered})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /api/playlist/reorder status = %d, body = %s", rec.Code, rec.Body.String())
	}
	items := decodeBody[model.Playlist](t, rec)
	for i, item := range items {
		if item.ID != reordered[i] {
			t.Errorf("reordered[%d] = %v, want %v", i, item.ID, reordered[i])
		}
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/playlist/reorder", reorderRequest{ItemIDs: ids[:2]})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short reorder status = %d, want 400", rec.Code)
	}
}

// TestBrightnessClamp covers spec.md §8 scenario 3.
func TestBrightnessClamp(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodPut, "/api/settings/brightness", brightnessBody{Brightness: 150})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("brightness=150 status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/settings/brightness", brightnessBody{Brightness: 75})
	if rec.Code != http.StatusOK {
		t.Fatalf("brightness=75 status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/settings/brightness", nil)
	got := decodeBody[brightnessBody](t, rec)
	if got.Brightness != 75 {
		t.Errorf("GET brightness = %d, want 75", got.Brightness)
	}
}

// TestPreviewOwnership covers spec.md §8 scenario 4: the session_id is a
// bearer token not bound to any transport identity.
func TestPreviewOwnership(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/preview", staticTextItem("preview"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first POST /api/preview status = %d, body = %s", rec.Code, rec.Body.String())
	}
	s1 := decodeBody[previewResponse](t, rec)

	rec = doJSON(t, mux, http.MethodPost, "/api/preview", staticTextItem("preview2"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("second POST /api/preview status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/preview", sessionOnlyRequest{SessionID: s1.SessionID})
	if rec.Code != http.StatusOK {
		t.Errorf("DELETE /api/preview with correct session_id status = %d, want 200", rec.Code)
	}
}

// TestPreviewSessionCheck exercises POST /api/preview/session's {is_owner}
// response.
func TestPreviewSessionCheck(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodPost, "/api/preview", staticTextItem("preview"))
	s1 := decodeBody[previewResponse](t, rec)

	rec = doJSON(t, mux, http.MethodPost, "/api/preview/session", sessionOnlyRequest{SessionID: s1.SessionID})
	owner := decodeBody[previewSessionResponse](t, rec)
	if !owner.IsOwner {
		t.Errorf("owner session: is_owner = false, want true")
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/preview/session", sessionOnlyRequest{SessionID: uuid.New()})
	notOwner := decodeBody[previewSessionResponse](t, rec)
	if notOwner.IsOwner {
		t.Errorf("foreign session: is_owner = true, want false")
	}
}

// TestNotFoundAndValidation checks the 404/400 status mapping for a few
// representative error paths.
func TestNotFoundAndValidation(t *testing.T) {
	h := newTestHandlers(t)
	mux := h.Routes()

	rec := doJSON(t, mux, http.MethodGet, "/api/playlist/items/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET missing item status = %d, want 404", rec.Code)
	}

	badItem := model.DisplayItem{Content: model.Content{Data: model.TextContent{Text: ""}}}
	rec = doJSON(t, mux, http.MethodPost, "/api/playlist/items", badItem)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST empty-text item status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/playlist/items/"+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE missing item status = %d, want 404", rec.Code)
	}
}

func TestHealthzWithoutDriverIsOK(t *testing.T) {
	h := newTestHandlers(t)
	rec := doJSON(t, h.Routes(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200 when no driver is wired", rec.Code)
	}
}

type fakeReady struct{ ready bool }

func (f fakeReady) HasRendered() bool { return f.ready }

func TestHealthzReflectsDriverReadiness(t *testing.T) {
	b := bus.New()
	s, err := store.Open(filepath.Join(t.TempDir(), "state.json"), b)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	h := New(s, preview.New(b), b, fakeReady{ready: false})

	rec := doJSON(t, h.Routes(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz before first render status = %d, want 503", rec.Code)
	}

	h2 := New(s, preview.New(b), b, fakeReady{ready: true})
	rec = doJSON(t, h2.Routes(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz after first render status = %d, want 200", rec.Code)
	}
}
