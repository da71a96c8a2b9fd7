package rail

// Slope describes the raised corners of a tile. The four low bits mark
// the west, south, east and north corners; SlopeSteep marks a two-level
// rise toward the single raised corner.
type Slope uint8

const (
	SlopeFlat Slope = 0
	SlopeW    Slope = 1 << 0
	SlopeS    Slope = 1 << 1
	SlopeE    Slope = 1 << 2
	SlopeN    Slope = 1 << 3

	SlopeSteep Slope = 1 << 4

	SlopeNW Slope = SlopeN | SlopeW
	SlopeSW Slope = SlopeS | SlopeW
	SlopeSE Slope = SlopeS | SlopeE
	SlopeNE Slope = SlopeN | SlopeE
	SlopeEW Slope = SlopeE | SlopeW
	SlopeNS Slope = SlopeN | SlopeS
)

func (s Slope) IsSteep() bool { return s&SlopeSteep != 0 }

// Normalized strips the steep flag, leaving the corner mask 0..14.
func (s Slope) Normalized() Slope { return s &^ SlopeSteep }

// SingleCorner reports whether exactly one corner is raised.
func (s Slope) SingleCorner() bool {
	n := s.Normalized()
	return n != 0 && n&(n-1) == 0
}

// ThreeCorners reports whether exactly three corners are raised.
func (s Slope) ThreeCorners() bool {
	switch s.Normalized() {
	case SlopeW | SlopeS | SlopeE, SlopeS | SlopeE | SlopeN,
		SlopeE | SlopeN | SlopeW, SlopeN | SlopeW | SlopeS:
		return true
	}
	return false
}

// CornerTrack maps a single raised corner to the track that cuts it.
func CornerTrack(corner Slope) Track {
	switch corner {
	case SlopeN:
		return TrackUpper
	case SlopeS:
		return TrackLower
	case SlopeW:
		return TrackLeft
	case SlopeE:
		return TrackRight
	}
	return TrackInvalid
}

// Foundation is the ground-shaping needed under a track layout.
type Foundation uint8

const (
	FoundationNone Foundation = iota
	FoundationLeveled
	FoundationInclinedX
	FoundationInclinedY
	FoundationHalftile
	FoundationInvalid Foundation = 0xFF
)

func (f Foundation) Valid() bool { return f != FoundationInvalid }

// ValidTracksWithoutFoundation lists, per normalized slope, the tracks
// that rest on the ground as-is.
var ValidTracksWithoutFoundation = [15]TrackBits{
	TrackBitsAll,   // flat
	TrackBitsRight, // W
	TrackBitsUpper, // S
	TrackBitsX,     // SW
	TrackBitsLeft,  // E
	TrackBitsNone,  // EW
	TrackBitsY,     // SE
	TrackBitsNone,  // WSE
	TrackBitsLower, // N
	TrackBitsY,     // NW
	TrackBitsNone,  // NS
	TrackBitsNone,  // NWS
	TrackBitsX,     // NE
	TrackBitsNone,  // ENW
	TrackBitsNone,  // SEN
}

// ValidTracksOnLeveledFoundation lists, per normalized slope, the tracks
// a leveled foundation can carry.
var ValidTracksOnLeveledFoundation = [15]TrackBits{
	TrackBitsNone,                               // flat: no foundation to level
	TrackBitsLeft,                               // W
	TrackBitsLower,                              // S
	TrackBitsY | TrackBitsLower | TrackBitsLeft, // SW
	TrackBitsRight,                              // E
	TrackBitsAll,                                // EW
	TrackBitsX | TrackBitsLower | TrackBitsRight, // SE
	TrackBitsAll,  // WSE
	TrackBitsUpper, // N
	TrackBitsX | TrackBitsUpper | TrackBitsLeft, // NW
	TrackBitsAll, // NS
	TrackBitsAll, // NWS
	TrackBitsY | TrackBitsUpper | TrackBitsRight, // NE
	TrackBitsAll, // ENW
	TrackBitsAll, // SEN
}

// FoundationFor computes the foundation a track layout needs on a slope,
// or FoundationInvalid when the combination is illegal.
func FoundationFor(slope Slope, b TrackBits) Foundation {
	if b == TrackBitsNone {
		return FoundationNone
	}
	if slope.IsSteep() {
		return steepFoundationFor(slope, b)
	}
	n := slope.Normalized()
	if n >= 15 {
		return FoundationInvalid
	}
	if b&^ValidTracksWithoutFoundation[n] == 0 {
		return FoundationNone
	}
	// The raised-corner track of a single raised corner sits on a
	// halftile foundation, not on a full leveled one.
	if slope.SingleCorner() && b == CornerTrack(n).Bit() {
		return FoundationHalftile
	}
	if b&^ValidTracksOnLeveledFoundation[n] == 0 {
		return FoundationLeveled
	}
	return FoundationInvalid
}

func steepFoundationFor(slope Slope, b TrackBits) Foundation {
	// Steep slopes carry a single diagonal track on an inclined
	// foundation, or the corner track of the top or bottom half.
	switch b {
	case TrackBitsX:
		return FoundationInclinedX
	case TrackBitsY:
		return FoundationInclinedY
	}
	top := slope.Normalized()
	if !top.SingleCorner() {
		return FoundationInvalid
	}
	if b == CornerTrack(top).Bit() {
		return FoundationHalftile
	}
	if b == CornerTrack(oppositeCorner(top)).Bit() {
		return FoundationLeveled
	}
	return FoundationInvalid
}

func oppositeCorner(corner Slope) Slope {
	switch corner {
	case SlopeN:
		return SlopeS
	case SlopeS:
		return SlopeN
	case SlopeW:
		return SlopeE
	case SlopeE:
		return SlopeW
	}
	return SlopeFlat
}
