package model

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func staticItem(text string) DisplayItem {
	d := uint32(5)
	return DisplayItem{
		Duration: &d,
		Content: Content{
			ContentType: ContentTypeText,
			Data:        TextContent{Text: text, Color: Color{R: 255}},
		},
	}
}

func scrollItem(text string) DisplayItem {
	r := uint32(2)
	return DisplayItem{
		RepeatCount: &r,
		Content: Content{
			ContentType: ContentTypeText,
			Data:        TextContent{Text: text, Scroll: true, Speed: 10, Color: Color{G: 255}},
		},
	}
}

func TestValidateExactlyOneOfDurationRepeatCount(t *testing.T) {
	item := staticItem("hi")
	r := uint32(1)
	item.RepeatCount = &r // now both set

	if err := item.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("both duration and repeat_count set: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}

	item2 := staticItem("hi")
	item2.Duration = nil // now neither set
	if err := item2.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("neither duration nor repeat_count set: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}
}

func TestValidateScrollDisciplineMatchesField(t *testing.T) {
	// Scrolling text must use repeat_count, not duration.
	bad := staticItem("hi")
	bad.Content.Data.Scroll = true
	if err := bad.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("scrolling item with duration set: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}

	// Static text must use duration, not repeat_count.
	bad2 := scrollItem("hi")
	bad2.Content.Data.Scroll = false
	if err := bad2.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("static item with repeat_count set: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}

	good := scrollItem("hi")
	if err := good.Validate(); err != nil {
		t.Errorf("valid scroll item: Validate() error = %v", err)
	}
}

func TestValidateRejectsEmptyText(t *testing.T) {
	item := staticItem("")
	if err := item.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("empty text: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}
}

func TestValidateRejectsNegativeSpeed(t *testing.T) {
	item := scrollItem("hi")
	item.Content.Data.Speed = -1
	if err := item.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("negative speed: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}
}

func TestValidateRejectsUnknownBorderKind(t *testing.T) {
	item := staticItem("hi")
	item.BorderEffect = &BorderEffect{Kind: BorderKind("Nonsense")}
	if err := item.Validate(); KindOf(err) != KindValidationFailed {
		t.Errorf("unknown border kind: KindOf(err) = %v, want KindValidationFailed", KindOf(err))
	}
}

func TestNormalizeSegmentsDropsOutOfRange(t *testing.T) {
	item := staticItem("hello") // 5 codepoints
	item.Content.Data.Segments = []TextSegment{
		{Start: 0, End: 2, Color: Color{R: 1}},
		{Start: 3, End: 10, Color: Color{R: 2}}, // end beyond length, dropped
		{Start: 4, End: 4, Color: Color{R: 3}},  // start >= end, dropped
		{Start: -1, End: 2, Color: Color{R: 4}}, // negative start, dropped
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	segs := item.Content.Data.Segments
	if len(segs) != 1 {
		t.Fatalf("normalized segments = %+v, want exactly the [0,2) segment", segs)
	}
	if segs[0].Start != 0 || segs[0].End != 2 {
		t.Errorf("surviving segment = %+v, want [0,2)", segs[0])
	}
}

func TestNormalizeSegmentsClipsOverlapLaterWins(t *testing.T) {
	item := staticItem("abcdef") // 6 codepoints
	early := Color{R: 1}
	late := Color{G: 1}
	item.Content.Data.Segments = []TextSegment{
		{Start: 0, End: 4, Color: early},
		{Start: 2, End: 6, Color: late}, // overlaps [2,4) with the first; later wins there
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	segs := item.Content.Data.Segments
	// Expect two contiguous runs: [0,2) early, [2,6) late.
	want := []TextSegment{
		{Start: 0, End: 2, Color: early},
		{Start: 2, End: 6, Color: late},
	}
	if !reflect.DeepEqual(segs, want) {
		t.Errorf("normalized segments = %+v, want %+v", segs, want)
	}
}

func TestNormalizeSegmentsNoOverlapIsUnchanged(t *testing.T) {
	item := staticItem("abcdef")
	c1, c2 := Color{R: 1}, Color{G: 1}
	item.Content.Data.Segments = []TextSegment{
		{Start: 0, End: 3, Color: c1},
		{Start: 3, End: 6, Color: c2},
	}
	if err := item.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	want := []TextSegment{
		{Start: 0, End: 3, Color: c1},
		{Start: 3, End: 6, Color: c2},
	}
	if !reflect.DeepEqual([]TextSegment(item.Content.Data.Segments), want) {
		t.Errorf("normalized segments = %+v, want %+v", item.Content.Data.Segments, want)
	}
}

func TestDisplayItemJSONRoundTrip(t *testing.T) {
	item := staticItem("hello")
	item.ID = uuid.New()
	item.BorderEffect = &BorderEffect{Kind: BorderPulse, Colors: []Color{{R: 10}, {G: 20}}}
	if err := item.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var round DisplayItem
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if err := round.Validate(); err != nil {
		t.Fatalf("round-tripped item Validate() error = %v", err)
	}

	if !reflect.DeepEqual(item, round) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", round, item)
	}
}

func TestBorderEffectNoneMarshalsNullTag(t *testing.T) {
	b := BorderEffect{Kind: BorderNone}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"None":null}` {
		t.Errorf("Marshal() = %s, want {\"None\":null}", data)
	}

	var round BorderEffect
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if round.Kind != BorderNone || round.Colors != nil {
		t.Errorf("round trip = %+v, want Kind=None, Colors=nil", round)
	}
}

func TestBorderEffectRejectsMultipleTags(t *testing.T) {
	var b BorderEffect
	err := json.Unmarshal([]byte(`{"Rainbow":null,"Pulse":{"colors":[]}}`), &b)
	if err == nil {
		t.Fatalf("Unmarshal() of a two-tag object succeeded, want an error")
	}
}

func TestPlaylistSameIDSet(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	p := Playlist{{ID: a}, {ID: b}, {ID: c}}

	if !p.SameIDSet([]uuid.UUID{c, a, b}) {
		t.Errorf("SameIDSet() with a full permutation = false, want true")
	}
	if p.SameIDSet([]uuid.UUID{a, b}) {
		t.Errorf("SameIDSet() with a shorter list = true, want false")
	}
	if p.SameIDSet([]uuid.UUID{a, b, uuid.New()}) {
		t.Errorf("SameIDSet() with a foreign id swapped in = true, want false")
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-5, 0, 100, 0},
		{150, 0, 100, 100},
		{42, 0, 100, 42},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}
