package render

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/fcurrie/led-matrix-controller/internal/model"
	"github.com/fcurrie/led-matrix-controller/pkg/panel"
)

// idleTextColor is the placeholder string's fixed color; spec.md §9 leaves
// the idle placeholder's presentation unspecified beyond "a configurable
// string", so a plain white is used.
var idleTextColor = model.Color{R: 255, G: 255, B: 255}

// RenderIdlePlaceholder fills fb for the Idle state: solid black if text is
// empty (spec.md's required default), or text rasterized at native glyph
// resolution onto a scratch sheet, centered, and scaled down with
// golang.org/x/image/draw to the panel width when it is wider than the
// panel, preserving aspect ratio; narrower text is not scaled up. This
// is the supplemented "Adjust playlist on the web"-style idle placeholder
// from SPEC_FULL.md §9, generalized to an arbitrary configured string.
func RenderIdlePlaceholder(fb *panel.FrameBuffer, text string) {
	fb.Clear()
	if text == "" {
		return
	}

	sheetW := textWidth(text)
	if sheetW <= 0 {
		return
	}
	sheet := image.NewRGBA(image.Rect(0, 0, sheetW, glyphHeight))

	x := 0
	for _, r := range text {
		blitGlyphToImage(sheet, x, 0, glyphFor(r), idleTextColor)
		x += advance
	}

	scale := 1.0
	if sheetW > fb.Cols {
		scale = float64(fb.Cols) / float64(sheetW)
	}
	dstW := int(float64(sheetW) * scale)
	dstH := int(float64(glyphHeight) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	originX := (fb.Cols - dstW) / 2
	originY := centerY(fb.Rows) + (glyphHeight-dstH)/2
	dstRect := image.Rect(originX, originY, originX+dstW, originY+dstH)

	canvas := image.NewRGBA(image.Rect(0, 0, fb.Cols, fb.Rows))
	draw.CatmullRom.Scale(canvas, dstRect, sheet, sheet.Bounds(), draw.Over, nil)

	for y := 0; y < fb.Rows; y++ {
		for x := 0; x < fb.Cols; x++ {
			r, g, b, _ := canvas.At(x, y).RGBA()
			if r == 0 && g == 0 && b == 0 {
				continue
			}
			fb.SetPixel(x, y, model.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8)})
		}
	}
}

func blitGlyphToImage(img *image.RGBA, originX, originY int, glyph []byte, col model.Color) {
	c := color.RGBA{R: col.R, G: col.G, B: col.B, A: 255}
	for row, bits := range glyph {
		for column := 0; column < glyphWidth; column++ {
			if bits&(1<<uint(glyphWidth-1-column)) != 0 {
				img.SetRGBA(originX+column, originY+row, c)
			}
		}
	}
}
