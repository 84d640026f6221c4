// Package model defines the playlist/display domain shared by the state
// store, the renderer, the display engine and the HTTP API: colors, text
// content, border effects, display items and the playlist they live in.
package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Color is an RGB triplet, each channel 0-255. It marshals as a JSON array
// [r, g, b] to match the wire shape the spec requires for border effect
// color lists and text colors.
type Color struct {
	R, G, B uint8
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]uint8{c.R, c.G, c.B})
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var arr [3]uint8
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("color must be a 3-element array of 0-255 channels: %w", err)
	}
	c.R, c.G, c.B = arr[0], arr[1], arr[2]
	return nil
}

// TextSegment colors the half-open codepoint range [Start, End) of a
// TextContent's text differently from its base color.
type TextSegment struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Color Color `json:"color"`
}

// BorderKind tags the variant held by a BorderEffect.
type BorderKind string

const (
	BorderNone     BorderKind = "None"
	BorderRainbow  BorderKind = "Rainbow"
	BorderPulse    BorderKind = "Pulse"
	BorderSparkle  BorderKind = "Sparkle"
	BorderGradient BorderKind = "Gradient"
)

// BorderEffect is a tagged variant: None and Rainbow carry no data, the other
// three carry an ordered (possibly empty) list of colors. It marshals as
// {"Rainbow": null} or {"Pulse": {"colors": [...]}} per spec.md §6.
type BorderEffect struct {
	Kind   BorderKind
	Colors []Color
}

func (b BorderEffect) MarshalJSON() ([]byte, error) {
	if b.Kind == "" || b.Kind == BorderNone {
		return json.Marshal(map[string]any{string(BorderNone): nil})
	}
	if b.Kind == BorderRainbow {
		return json.Marshal(map[string]any{string(BorderRainbow): nil})
	}
	return json.Marshal(map[string]any{
		string(b.Kind): map[string]any{"colors": b.Colors},
	})
}

func (b *BorderEffect) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("border_effect must be a tagged object: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("border_effect must carry exactly one variant tag")
	}
	for k, v := range raw {
		kind := BorderKind(k)
		switch kind {
		case BorderNone, BorderRainbow, BorderPulse, BorderSparkle, BorderGradient:
		default:
			return fmt.Errorf("unknown border effect %q", k)
		}
		b.Kind = kind
		if kind == BorderNone {
			b.Colors = nil
			return nil
		}
		var body struct {
			Colors []Color `json:"colors"`
		}
		if len(v) > 0 && string(v) != "null" {
			if err := json.Unmarshal(v, &body); err != nil {
				return fmt.Errorf("border effect %s: %w", k, err)
			}
		}
		b.Colors = body.Colors
	}
	return nil
}

// TextContent is the only Content variant the core supports.
type TextContent struct {
	Text     string        `json:"text"`
	Scroll   bool          `json:"scroll"`
	Color    Color         `json:"color"`
	Speed    float32       `json:"speed"`
	Segments []TextSegment `json:"segments,omitempty"`
}

// ContentType tags the Content union. Only "Text" is implemented; the field
// exists so a future content kind can be added without changing the wire
// envelope.
const ContentTypeText = "Text"

// Content is the tagged union {"content_type": ..., "data": ...}.
type Content struct {
	ContentType string      `json:"content_type"`
	Data        TextContent `json:"data"`
}

func (c Content) MarshalJSON() ([]byte, error) {
	type wire struct {
		ContentType string      `json:"content_type"`
		Data        TextContent `json:"data"`
	}
	ct := c.ContentType
	if ct == "" {
		ct = ContentTypeText
	}
	return json.Marshal(wire{ContentType: ct, Data: c.Data})
}

// DisplayItem is one entry in the playlist.
type DisplayItem struct {
	ID           uuid.UUID     `json:"id"`
	Duration     *uint32       `json:"duration,omitempty"`
	RepeatCount  *uint32       `json:"repeat_count,omitempty"`
	BorderEffect *BorderEffect `json:"border_effect,omitempty"`
	Content      Content       `json:"content"`
}

// Validate checks the invariants of spec.md §3/§4.4 and normalizes text
// segments in place (clipping overlaps, dropping out-of-range ones). It does
// not assign an ID; callers create one when absent.
func (d *DisplayItem) Validate() error {
	if d.Content.ContentType != "" && d.Content.ContentType != ContentTypeText {
		return ValidationFailed("unsupported content_type %q", d.Content.ContentType)
	}
	text := &d.Content.Data

	if text.Text == "" {
		return ValidationFailed("text must not be empty")
	}
	if text.Speed < 0 {
		return ValidationFailed("speed must be >= 0")
	}

	haveDuration := d.Duration != nil
	haveRepeat := d.RepeatCount != nil
	if haveDuration == haveRepeat {
		return ValidationFailed("exactly one of duration and repeat_count must be set")
	}
	if text.Scroll && !haveRepeat {
		return ValidationFailed("scrolling text must set repeat_count, not duration")
	}
	if !text.Scroll && !haveDuration {
		return ValidationFailed("static text must set duration, not repeat_count")
	}

	if d.BorderEffect != nil {
		switch d.BorderEffect.Kind {
		case BorderNone, BorderRainbow, BorderPulse, BorderSparkle, BorderGradient:
		default:
			return ValidationFailed("unknown border effect %q", d.BorderEffect.Kind)
		}
	}

	text.Segments = normalizeSegments(text.Segments, text.Text)
	return nil
}

// normalizeSegments drops out-of-range segments and clips overlaps so later
// segments win at the clipped boundary, per spec.md §3.
func normalizeSegments(segs []TextSegment, text string) []TextSegment {
	if len(segs) == 0 {
		return nil
	}
	length := utf8.RuneCountInString(text)

	kept := make([]TextSegment, 0, len(segs))
	for _, s := range segs {
		if s.Start < 0 || s.End > length || s.Start >= s.End {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil
	}

	// Later segments in the input order win at overlapping boundaries: walk
	// segments in original order, clipping each against segments already
	// placed, keeping the most recently added segment's claim on any
	// codepoint index.
	owner := make([]int, length) // index into kept, -1 = unclaimed
	for i := range owner {
		owner[i] = -1
	}
	for i, s := range kept {
		for idx := s.Start; idx < s.End; idx++ {
			owner[idx] = i
		}
	}

	// Rebuild contiguous runs per owner, in codepoint order.
	var out []TextSegment
	i := 0
	for i < length {
		o := owner[i]
		if o == -1 {
			i++
			continue
		}
		j := i + 1
		for j < length && owner[j] == o {
			j++
		}
		out = append(out, TextSegment{Start: i, End: j, Color: kept[o].Color})
		i = j
	}
	return out
}

// Playlist is the ordered, id-unique sequence of DisplayItems owned by the
// state store.
type Playlist []DisplayItem

// IDs returns the ordered list of item ids.
func (p Playlist) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(p))
	for i, item := range p {
		ids[i] = item.ID
	}
	return ids
}

// SameIDSet reports whether ids is a permutation of p's id set (spec.md §4.4
// reorder's InvalidReorder check).
func (p Playlist) SameIDSet(ids []uuid.UUID) bool {
	if len(ids) != len(p) {
		return false
	}
	have := make(map[uuid.UUID]int, len(p))
	for _, id := range p.IDs() {
		have[id]++
	}
	for _, id := range ids {
		have[id]--
	}
	for _, n := range have {
		if n != 0 {
			return false
		}
	}
	return true
}

// Clamp returns v clamped to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SortedColors is a small helper used by tests to compare color slices
// independent of ordering noise introduced by JSON round-trips.
func SortedColors(cs []Color) []Color {
	out := append([]Color(nil), cs...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].R != out[j].R {
			return out[i].R < out[j].R
		}
		if out[i].G != out[j].G {
			return out[i].G < out[j].G
		}
		return out[i].B < out[j].B
	})
	return out
}
