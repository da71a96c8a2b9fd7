package rail

import "testing"

func TestTrackBitsOverlap(t *testing.T) {
	cases := []struct {
		bits TrackBits
		want bool
	}{
		{TrackBitsNone, false},
		{TrackBitsX, false},
		{TrackBitsUpper, false},
		{TrackBitsHorz, false},
		{TrackBitsVert, false},
		{TrackBitsX | TrackBitsY, true},
		{TrackBitsX | TrackBitsUpper, true},
		{TrackBitsUpper | TrackBitsLeft, true},
		{TrackBitsAll, true},
	}
	for _, c := range cases {
		if got := c.bits.Overlap(); got != c.want {
			t.Errorf("Overlap(%06b): got %v want %v", c.bits, got, c.want)
		}
	}
}

func TestTrackBitsFirstAndTracks(t *testing.T) {
	if TrackBitsNone.First() != TrackInvalid {
		t.Fatalf("empty set should have no first track")
	}
	b := TrackBitsY | TrackBitsLeft
	if b.First() != TrackY {
		t.Fatalf("first: got %d want Y", b.First())
	}
	got := b.Tracks()
	if len(got) != 2 || got[0] != TrackY || got[1] != TrackLeft {
		t.Fatalf("tracks: %v", got)
	}
	if b.Count() != 2 {
		t.Fatalf("count: got %d want 2", b.Count())
	}
}

func TestTrackOther(t *testing.T) {
	pairs := map[Track]Track{
		TrackUpper: TrackLower,
		TrackLower: TrackUpper,
		TrackLeft:  TrackRight,
		TrackRight: TrackLeft,
	}
	for a, b := range pairs {
		if a.Other() != b {
			t.Errorf("Other(%d): got %d want %d", a, a.Other(), b)
		}
	}
	if TrackX.Other() != TrackInvalid || TrackY.Other() != TrackInvalid {
		t.Fatalf("diagonal tracks have no pair companion")
	}
}

func TestTrackDiagonal(t *testing.T) {
	if !TrackX.Diagonal() || !TrackY.Diagonal() {
		t.Fatalf("X/Y should be diagonal")
	}
	for _, tr := range []Track{TrackUpper, TrackLower, TrackLeft, TrackRight} {
		if tr.Diagonal() {
			t.Errorf("corner track %d reported diagonal", tr)
		}
	}
}
