package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/fcurrie/led-matrix-controller/internal/bus"
	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/internal/preview"
	"github.com/fcurrie/led-matrix-controller/internal/store"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

// fakeDriver satisfies panel.Driver without touching any GPIO resource, so
// the tick loop can be exercised the way an in-memory test harness would.
type fakeDriver struct {
	fb      *panel.FrameBuffer
	swaps   int
	swapErr error
}

func newFakeDriver(rows, cols int) *fakeDriver {
	return &fakeDriver{fb: panel.NewFrameBuffer(rows, cols)}
}

func (d *fakeDriver) Canvas() *panel.FrameBuffer { return d.fb }
func (d *fakeDriver) Swap() error {
	d.swaps++
	return d.swapErr
}
func (d *fakeDriver) Close() error { return nil }

func staticItem(t *testing.T, text string, duration uint32) model.DisplayItem {
	t.Helper()
	item := model.DisplayItem{
		Duration: &duration,
		Content: model.Content{
			ContentType: model.ContentTypeText,
			Data:        model.TextContent{Text: text, Color: model.Color{R: 255}},
		},
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("fixture item failed to validate: %v", err)
	}
	return item
}

func scrollItem(t *testing.T, text string, repeats uint32) model.DisplayItem {
	t.Helper()
	item := model.DisplayItem{
		RepeatCount: &repeats,
		Content: model.Content{
			ContentType: model.ContentTypeText,
			Data:        model.TextContent{Text: text, Scroll: true, Speed: 10, Color: model.Color{G: 255}},
		},
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("fixture item failed to validate: %v", err)
	}
	return item
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := store.Open(path, nil)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	return s
}

func TestNewIdleWhenPlaylistEmpty(t *testing.T) {
	s := newTestStore(t)
	p := preview.New(nil)
	d := newFakeDriver(8, 32)

	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})
	if e.kind != stateIdle {
		t.Errorf("kind = %v, want stateIdle", e.kind)
	}
}

func TestNewPlaysFirstItemWhenNonEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(staticItem(t, "hi", 5)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	p := preview.New(nil)
	d := newFakeDriver(8, 32)

	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})
	if e.kind != statePlaylistItem {
		t.Errorf("kind = %v, want statePlaylistItem", e.kind)
	}
	if e.idx != 0 {
		t.Errorf("idx = %d, want 0", e.idx)
	}
}

func TestTickAdvancesPlaylistOnDurationElapsed(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(staticItem(t, "A", 5)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := s.Create(staticItem(t, "B", 5)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	p := preview.New(nil)
	d := newFakeDriver(8, 32)

	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})
	start := time.Now()
	e.now = func() time.Time { return start }
	e.resetToPlaylistOrIdle()

	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.idx != 0 {
		t.Errorf("before duration elapses, idx = %d, want 0", e.idx)
	}

	e.now = func() time.Time { return start.Add(6 * time.Second) }
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.idx != 1 {
		t.Errorf("after duration elapses, idx = %d, want 1 (advanced to B)", e.idx)
	}
}

func TestTickWrapsPlaylistIndex(t *testing.T) {
	s := newTestStore(t)
	for _, text := range []string{"A", "B"} {
		if _, err := s.Create(staticItem(t, text, 1)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	start := time.Now()
	e.now = func() time.Time { return start }
	e.resetToPlaylistOrIdle()

	e.now = func() time.Time { return start.Add(2 * time.Second) }
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.idx != 1 {
		t.Fatalf("idx after first advance = %d, want 1", e.idx)
	}

	e.now = func() time.Time { return start.Add(4 * time.Second) }
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.idx != 0 {
		t.Errorf("idx after wrap-around advance = %d, want 0", e.idx)
	}
}

func TestPreviewOverridesPlaylistRegardlessOfState(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(staticItem(t, "A", 0)); err != nil { // duration 0 = indefinite
		t.Fatalf("Create() error = %v", err)
	}
	b := bus.New()
	p := preview.New(b)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	if _, _, err := p.Acquire(staticItem(t, "preview", 0)); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.kind != statePreview {
		t.Errorf("kind after preview acquired = %v, want statePreview", e.kind)
	}
}

func TestPreviewClearedResumesPlaylist(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(staticItem(t, "A", 0)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	b := bus.New()
	p := preview.New(b)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	_, session, err := p.Acquire(staticItem(t, "preview", 0))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.kind != statePreview {
		t.Fatalf("kind after acquire = %v, want statePreview", e.kind)
	}

	if err := p.Release(session); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.kind != statePlaylistItem {
		t.Errorf("kind after release = %v, want statePlaylistItem", e.kind)
	}
	if e.idx != 0 {
		t.Errorf("idx after resuming playback = %d, want 0", e.idx)
	}
}

func TestPreviewClearedGoesIdleWhenPlaylistEmpty(t *testing.T) {
	s := newTestStore(t)
	b := bus.New()
	p := preview.New(b)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	_, session, err := p.Acquire(staticItem(t, "preview", 0))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if err := p.Release(session); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := e.tick(); err != nil {
		t.Fatalf("tick() error = %v", err)
	}
	if e.kind != stateIdle {
		t.Errorf("kind after releasing preview with empty playlist = %v, want stateIdle", e.kind)
	}
}

func TestEndOfItemStaticIndefiniteNeverEnds(t *testing.T) {
	s := newTestStore(t)
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	item := staticItem(t, "A", 0)
	e.startedAt = time.Now().Add(-time.Hour)
	if e.endOfItem(item) {
		t.Errorf("endOfItem() with duration=0 = true, want false (indefinite)")
	}
}

func TestEndOfItemScrollRepeatCountZeroNeverEnds(t *testing.T) {
	s := newTestStore(t)
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	item := scrollItem(t, "A", 0)
	e.passes = 1000
	if e.endOfItem(item) {
		t.Errorf("endOfItem() with repeat_count=0 = true, want false (indefinite)")
	}
}

func TestEndOfItemScrollByPassCount(t *testing.T) {
	s := newTestStore(t)
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	item := scrollItem(t, "A", 2)
	e.passes = 1
	if e.endOfItem(item) {
		t.Errorf("endOfItem() with passes=1 < repeat_count=2 = true, want false")
	}
	e.passes = 2
	if !e.endOfItem(item) {
		t.Errorf("endOfItem() with passes=2 >= repeat_count=2 = false, want true")
	}
}

func TestRunReturnsErrorOnPanelFailure(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create(staticItem(t, "A", 0)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	d.swapErr = errors.New("refresh thread crashed")

	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Errorf("Run() error = nil, want the panel swap failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after a fatal Swap() error")
	}
}

func TestRunStopsCleanlyOnContextCancel(t *testing.T) {
	s := newTestStore(t)
	p := preview.New(nil)
	d := newFakeDriver(8, 32)
	e := New(s, p, d, Config{Rows: 8, Cols: 32, MaxBrightness: 100})

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on clean cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after context cancellation")
	}
}
