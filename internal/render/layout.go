package render

import (
	"math"
	"time"

	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

// Renderer rasterizes one DisplayItem into a panel.FrameBuffer per tick,
// tracking the border overlay's sparkle decay state across calls the way a
// long-lived animation would.
type Renderer struct {
	rows, cols int
	border     *borderState
}

// NewRenderer builds a renderer for a rows x cols panel.
func NewRenderer(rows, cols int) *Renderer {
	return &Renderer{rows: rows, cols: cols, border: newBorderState(rows, cols)}
}

// Reset clears sparkle decay state; callers invoke this whenever the active
// item changes so a new item's border effect starts clean.
func (r *Renderer) Reset() {
	r.border = newBorderState(r.rows, r.cols)
}

// RenderTick draws item into fb as it stands at elapsed (time since the item
// started) given the previous tick's elapsed value, applying gamma and
// effectiveBrightness as the final step. It returns the number of scroll
// passes completed since the previous tick (always 0 for static text).
func (r *Renderer) RenderTick(fb *panel.FrameBuffer, item model.DisplayItem, elapsed, prevElapsed time.Duration, effectiveBrightness int, inverse bool) int {
	fb.Clear()

	text := item.Content.Data
	passes := 0
	x := 0
	y := centerY(r.rows)
	if text.Scroll {
		w := textWidth(text.Text)
		var offset int
		offset, passes = scrollOffsetAndPasses(r.cols, w, float64(text.Speed), elapsed, prevElapsed)
		x = offset
	}
	drawText(fb, text, x, y)

	if item.BorderEffect != nil && item.BorderEffect.Kind != model.BorderNone {
		r.border.overlay(fb, *item.BorderEffect, text.Color, elapsed.Seconds())
	}

	for y := 0; y < fb.Rows; y++ {
		for x := 0; x < fb.Cols; x++ {
			c := fb.At(x, y)
			fb.SetPixel(x, y, model.Color{
				R: ApplyGammaAndBrightness(c.R, effectiveBrightness, inverse),
				G: ApplyGammaAndBrightness(c.G, effectiveBrightness, inverse),
				B: ApplyGammaAndBrightness(c.B, effectiveBrightness, inverse),
			})
		}
	}
	return passes
}

// centerY implements spec.md §4.2's static vertical centering formula.
func centerY(rows int) int {
	return int(math.Floor(float64(rows-glyphHeight) / 2))
}

// scrollOffsetAndPasses implements spec.md §4.2/§8's scroll formula:
// x_offset = cols - floor(speed*t) mod (cols+W), with passes advancing by
// exactly 1 every (cols+W)/speed seconds.
func scrollOffsetAndPasses(cols, textPixelWidth int, speed float64, elapsed, prevElapsed time.Duration) (offset int, passes int) {
	period := float64(cols + textPixelWidth)
	if period <= 0 || speed <= 0 {
		return cols, 0
	}

	n := speed * elapsed.Seconds()
	nPrev := speed * prevElapsed.Seconds()
	passes = int(math.Floor(n/period)) - int(math.Floor(nPrev/period))

	mod := math.Mod(n, period)
	if mod < 0 {
		mod += period
	}
	offset = cols - int(math.Floor(mod))
	return offset, passes
}

// drawText blits text's glyphs starting at (originX, originY), coloring
// each codepoint by the segment that covers it, falling back to the
// content's base color.
func drawText(fb *panel.FrameBuffer, text model.TextContent, originX, originY int) {
	x := originX
	i := 0
	for _, r := range text.Text {
		col := text.Color
		for _, seg := range text.Segments {
			if i >= seg.Start && i < seg.End {
				col = seg.Color
				break
			}
		}
		blitGlyph(fb, x, originY, glyphFor(r), col)
		x += advance
		i++
	}
}

func blitGlyph(fb *panel.FrameBuffer, originX, originY int, glyph []byte, col model.Color) {
	for row, bits := range glyph {
		for column := 0; column < glyphWidth; column++ {
			if bits&(1<<uint(glyphWidth-1-column)) != 0 {
				fb.SetPixel(originX+column, originY+row, col)
			}
		}
	}
}
