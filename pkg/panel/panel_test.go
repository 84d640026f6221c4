package panel

import (
	"testing"

	"github.com/fcurrie/led-matrix-controller/internal/model"
)

func TestFrameBufferSetAndGetPixel(t *testing.T) {
	fb := NewFrameBuffer(4, 6)
	c := model.Color{R: 10, G: 20, B: 30}
	fb.SetPixel(2, 1, c)

	if got := fb.At(2, 1); got != c {
		t.Errorf("At(2,1) = %+v, want %+v", got, c)
	}
	if got := fb.At(0, 0); got != (model.Color{}) {
		t.Errorf("untouched pixel = %+v, want black", got)
	}
}

func TestFrameBufferSetPixelOutOfBoundsIgnored(t *testing.T) {
	fb := NewFrameBuffer(2, 2)
	fb.SetPixel(-1, 0, model.Color{R: 255})
	fb.SetPixel(0, 2, model.Color{R: 255})
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			if got := fb.At(x, y); got != (model.Color{}) {
				t.Errorf("At(%d,%d) = %+v, want black", x, y, got)
			}
		}
	}
}

func TestFrameBufferClear(t *testing.T) {
	fb := NewFrameBuffer(2, 2)
	fb.SetPixel(0, 0, model.Color{R: 255, G: 255, B: 255})
	fb.Clear()
	if got := fb.At(0, 0); got != (model.Color{}) {
		t.Errorf("At(0,0) after Clear() = %+v, want black", got)
	}
}

func TestFrameBufferCopyFrom(t *testing.T) {
	src := NewFrameBuffer(2, 2)
	src.SetPixel(1, 1, model.Color{R: 1, G: 2, B: 3})
	dst := NewFrameBuffer(2, 2)
	dst.CopyFrom(src)

	if got := dst.At(1, 1); got != (model.Color{R: 1, G: 2, B: 3}) {
		t.Errorf("CopyFrom() did not copy pixel, got %+v", got)
	}
}

func TestFrameBufferCopyFromMismatchedDimensionsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("CopyFrom() with mismatched dimensions did not panic")
		}
	}()
	NewFrameBuffer(2, 2).CopyFrom(NewFrameBuffer(3, 3))
}

func TestApplyColorExtractsPlaneBit(t *testing.T) {
	c := model.Color{R: 0b00000101, G: 0b00000010, B: 0}
	got := applyColor(c, false, 0)
	if got.R != 1 || got.G != 0 || got.B != 0 {
		t.Errorf("applyColor plane 0 = %+v, want R=1 G=0 B=0", got)
	}
	got = applyColor(c, false, 1)
	if got.R != 0 || got.G != 1 {
		t.Errorf("applyColor plane 1 = %+v, want R=0 G=1", got)
	}
	got = applyColor(c, false, 2)
	if got.R != 1 {
		t.Errorf("applyColor plane 2 = %+v, want R=1", got)
	}
}

func TestApplyColorInverts(t *testing.T) {
	c := model.Color{R: 0, G: 0, B: 0}
	got := applyColor(c, true, 0)
	if got.R != 1 || got.G != 1 || got.B != 1 {
		t.Errorf("applyColor inverted black plane 0 = %+v, want all 1", got)
	}
}

func TestNewNativeDriverRejectsMissingAddrPins(t *testing.T) {
	cfg := Config{Rows: 8, Cols: 8, ChipNumber: "gpiochip0", Pins: HUB75Pins{}}
	if _, err := NewNativeDriver(cfg); err == nil {
		t.Error("NewNativeDriver() with no address pins did not return error")
	}
}

func TestNewNativeDriverRejectsInvalidDimensions(t *testing.T) {
	cfg := Config{Rows: 0, Cols: 8, ChipNumber: "gpiochip0", Pins: HUB75Pins{AddrPins: []int{1}}}
	if _, err := NewNativeDriver(cfg); err == nil {
		t.Error("NewNativeDriver() with zero rows did not return error")
	}
}
