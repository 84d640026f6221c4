// Package engine implements the Display Engine (C3): the playback state
// machine driving the renderer at a fixed tick and handing finished frames
// to the panel driver. The tick loop is grounded on the teacher's
// internal/display/renderer.go Start(ctx) pattern: a context-scoped
// goroutine driven by time.NewTicker, select-ing on ctx.Done() and the
// ticker channel, logging render errors with the stdlib log package exactly
// as the teacher does.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/internal/preview"
	"github.com/fcurrie/led-matrix-controller/internal/render"
	"github.com/fcurrie/led-matrix-controller/internal/store"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

// TickRate is the fixed animation tick frequency, within spec.md §4.3's
// 50-60 Hz target band.
const TickRate = 60

// stateKind tags which branch of the C3 state machine is active.
type stateKind int

const (
	stateIdle stateKind = iota
	statePlaylistItem
	statePreview
)

// Config configures one Engine.
type Config struct {
	Rows, Cols    int
	MaxBrightness int
	IdlePlaceholder string
}

// Engine is the Display Engine: it owns the render/playback state machine,
// reading from the State Store and Preview Lock Manager each tick and
// writing finished frames to a panel.Driver.
type Engine struct {
	store   *store.Store
	preview *preview.Manager
	driver  panel.Driver
	render  *render.Renderer
	cfg     Config

	kind      stateKind
	idx       int
	startedAt time.Time
	passes    uint32

	wasPreviewActive bool
	previewSessionID uuid.UUID

	now func() time.Time
}

// New builds an Engine in its initial state (Idle if the playlist is empty
// and no preview is active, else playing playlist item 0).
func New(s *store.Store, p *preview.Manager, d panel.Driver, cfg Config) *Engine {
	e := &Engine{
		store:   s,
		preview: p,
		driver:  d,
		render:  render.NewRenderer(cfg.Rows, cfg.Cols),
		cfg:     cfg,
		now:     time.Now,
	}
	e.resetToPlaylistOrIdle()
	return e
}

func (e *Engine) resetToPlaylistOrIdle() {
	if len(e.store.List()) == 0 {
		e.kind = stateIdle
		return
	}
	e.kind = statePlaylistItem
	e.idx = 0
	e.startedAt = e.now()
	e.passes = 0
	e.render.Reset()
}

// Run drives the tick loop until ctx is canceled. A tick's only error
// source is driver.Swap(), which per spec.md §7 is a fatal PanelFailure:
// Run logs it and returns the error so the caller can exit non-zero,
// rather than looping past a broken refresh thread.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := e.tick(); err != nil {
				log.Printf("engine: panel swap failed: %v", err)
				return err
			}
		}
	}
}

func (e *Engine) tick() error {
	playlist := e.store.List()
	brightness := e.store.Brightness()
	previewItem, previewActive := e.preview.Current()

	e.applyPreviewTransition(previewActive, playlist)

	item, ok := e.activeItem(playlist, previewItem, previewActive)
	fb := e.driver.Canvas()
	if !ok {
		render.RenderIdlePlaceholder(fb, e.cfg.IdlePlaceholder)
		return e.driver.Swap()
	}

	elapsed := e.now().Sub(e.startedAt)
	prevElapsed := elapsed - time.Second/TickRate
	if prevElapsed < 0 {
		prevElapsed = 0
	}

	effective := brightness.Effective(e.cfg.MaxBrightness)
	newPasses := e.render.RenderTick(fb, item, elapsed, prevElapsed, effective, false)
	e.passes += uint32(newPasses)

	if e.endOfItem(item) {
		e.advance(playlist)
	}

	return e.driver.Swap()
}

// applyPreviewTransition implements the "entering preview always wins,
// regardless of current state" and "preview cleared resumes playback"
// transitions of spec.md §4.3.
func (e *Engine) applyPreviewTransition(previewActive bool, playlist model.Playlist) {
	if previewActive && !e.wasPreviewActive {
		e.kind = statePreview
		e.startedAt = e.now()
		e.passes = 0
		e.render.Reset()
	} else if !previewActive && e.wasPreviewActive {
		if len(playlist) == 0 {
			e.kind = stateIdle
		} else {
			e.kind = statePlaylistItem
			e.startedAt = e.now()
			e.passes = 0
		}
		e.render.Reset()
	}
	e.wasPreviewActive = previewActive
}

func (e *Engine) activeItem(playlist model.Playlist, previewItem model.DisplayItem, previewActive bool) (model.DisplayItem, bool) {
	switch {
	case previewActive:
		return previewItem, true
	case e.kind == statePlaylistItem && len(playlist) > 0:
		if e.idx >= len(playlist) {
			e.idx = 0
		}
		return playlist[e.idx], true
	default:
		return model.DisplayItem{}, false
	}
}

func (e *Engine) endOfItem(item model.DisplayItem) bool {
	text := item.Content.Data
	if text.Scroll {
		if item.RepeatCount == nil || *item.RepeatCount == 0 {
			return false
		}
		return e.passes >= *item.RepeatCount
	}
	if item.Duration == nil || *item.Duration == 0 {
		return false
	}
	return e.now().Sub(e.startedAt) >= time.Duration(*item.Duration)*time.Second
}

// advance implements the end-of-item transition: playlist items cycle
// forward; preview items loop in place until explicitly cleared.
func (e *Engine) advance(playlist model.Playlist) {
	if e.kind != statePlaylistItem {
		return
	}
	if len(playlist) == 0 {
		e.kind = stateIdle
		return
	}
	e.idx = (e.idx + 1) % len(playlist)
	e.startedAt = e.now()
	e.passes = 0
	e.render.Reset()
}
