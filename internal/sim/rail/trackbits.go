package rail

import "math/bits"

// Track is one of the six canonical rail directions a tile can hold.
type Track uint8

const (
	TrackX     Track = iota // along the map X axis
	TrackY                  // along the map Y axis
	TrackUpper              // north corner
	TrackLower              // south corner
	TrackLeft               // west corner
	TrackRight              // east corner

	TrackInvalid Track = 0xFF
)

// TrackBits is a set of Tracks.
type TrackBits uint8

const (
	TrackBitsNone  TrackBits = 0
	TrackBitsX     TrackBits = 1 << TrackX
	TrackBitsY     TrackBits = 1 << TrackY
	TrackBitsUpper TrackBits = 1 << TrackUpper
	TrackBitsLower TrackBits = 1 << TrackLower
	TrackBitsLeft  TrackBits = 1 << TrackLeft
	TrackBitsRight TrackBits = 1 << TrackRight

	// The two combinations that may carry independent rail types.
	TrackBitsHorz TrackBits = TrackBitsUpper | TrackBitsLower
	TrackBitsVert TrackBits = TrackBitsLeft | TrackBitsRight
	TrackBitsAll  TrackBits = 0x3F
)

func (t Track) Bit() TrackBits { return 1 << t }

// Diagonal reports whether the track spans the full tile diagonal
// (X/Y) rather than cutting a corner.
func (t Track) Diagonal() bool { return t == TrackX || t == TrackY }

func (b TrackBits) Has(t Track) bool { return b&t.Bit() != 0 }

func (b TrackBits) Count() int { return bits.OnesCount8(uint8(b)) }

// First returns the lowest-numbered track in the set.
func (b TrackBits) First() Track {
	if b == 0 {
		return TrackInvalid
	}
	return Track(bits.TrailingZeros8(uint8(b)))
}

// Tracks iterates the set in ascending track order.
func (b TrackBits) Tracks() []Track {
	out := make([]Track, 0, b.Count())
	for rest := b; rest != 0; rest &= rest - 1 {
		out = append(out, rest.First())
	}
	return out
}

// Overlap reports whether the set holds tracks that physically cross
// each other. The horizontal and vertical pairs are the only multi-track
// sets that do not.
func (b TrackBits) Overlap() bool {
	if b.Count() <= 1 {
		return false
	}
	return b != TrackBitsHorz && b != TrackBitsVert
}

// Other returns the companion track of a horizontal/vertical pair, or
// TrackInvalid when t has none.
func (t Track) Other() Track {
	switch t {
	case TrackUpper:
		return TrackLower
	case TrackLower:
		return TrackUpper
	case TrackLeft:
		return TrackRight
	case TrackRight:
		return TrackLeft
	}
	return TrackInvalid
}
