package world

import "railgrid.dev/internal/sim/rail"

// TileCoord addresses one cell of the grid.
type TileCoord struct {
	X int
	Y int
}

// DiagDir is one of the four tile-edge directions.
type DiagDir uint8

const (
	DirNE DiagDir = iota
	DirSE
	DirSW
	DirNW
)

func (d DiagDir) Reverse() DiagDir { return (d + 2) % 4 }

// Axis of travel through a tunnel/bridge.
func (d DiagDir) Axis() rail.Track {
	if d == DirNE || d == DirSW {
		return rail.TrackX
	}
	return rail.TrackY
}

func (c TileCoord) Step(d DiagDir) TileCoord {
	switch d {
	case DirNE:
		return TileCoord{c.X + 1, c.Y}
	case DirSW:
		return TileCoord{c.X - 1, c.Y}
	case DirSE:
		return TileCoord{c.X, c.Y + 1}
	default:
		return TileCoord{c.X, c.Y - 1}
	}
}

// TileKind is the role a tile currently plays.
type TileKind uint8

const (
	KindClear TileKind = iota
	KindRail
	KindDepot
	KindTunnelBridge
	KindCrossing
	KindStation
)

// GroundType is the cosmetic ground classification; it affects the cost
// of foundation work, never track legality.
type GroundType uint8

const (
	GroundGrass GroundType = iota
	GroundBarren
	GroundSnow
	GroundWaterEdge
)

const NoCompany uint8 = 0xFF

// RailPayload is the one-or-two rail types a tile carries. A dual payload
// exists only for the horizontal/vertical track pairs; every other
// combination shares the primary type.
type RailPayload struct {
	dual      bool
	primary   rail.RailType
	secondary rail.RailType
}

func SingleRail(rt rail.RailType) RailPayload {
	return RailPayload{primary: rt, secondary: rt}
}

func DualRail(primary, secondary rail.RailType) RailPayload {
	return RailPayload{dual: true, primary: primary, secondary: secondary}
}

func (p RailPayload) IsDual() bool             { return p.dual }
func (p RailPayload) Primary() rail.RailType   { return p.primary }
func (p RailPayload) Secondary() rail.RailType { return p.secondary }

// TypeFor returns the rail type under one track of the tile. On dual
// tiles the upper/left track carries the primary type, the lower/right
// track the secondary.
func (p RailPayload) TypeFor(t rail.Track) rail.RailType {
	if p.dual && (t == rail.TrackLower || t == rail.TrackRight) {
		return p.secondary
	}
	return p.primary
}

// Types returns the distinct rail types of the payload.
func (p RailPayload) Types() []rail.RailType {
	if p.dual && p.primary != p.secondary {
		return []rail.RailType{p.primary, p.secondary}
	}
	return []rail.RailType{p.primary}
}

// TrackSignal is the signal attachment of one track. Present is a 2-bit
// mask: bit 0 faces along the track's low direction, bit 1 the other way.
type TrackSignal struct {
	Present uint8
	Sig     rail.Signal
}

const (
	SideAlong   uint8 = 1 << 0
	SideAgainst uint8 = 1 << 1
	SideBoth    uint8 = SideAlong | SideAgainst
)

// TunnelBridgeEnd is the signal-simulation state of one tunnel/bridge
// head. Both heads of a pair must stay mutually consistent; the command
// layer is the only writer.
type TunnelBridgeEnd struct {
	Other  TileCoord
	Bridge bool
	Dir    DiagDir // toward the far end
	Length int     // tiles strictly between the heads

	SimEntrance bool
	SimExit     bool
	// WasEntrance remembers the one-way role while bidirectional mode
	// is active, so switching it off restores the prior direction.
	WasEntrance bool
	PBS         bool
	Variant     rail.SignalVariant
	Style       uint8
	SpecialProp bool
	Spacing     int
	State       rail.SignalState // entrance aspect
	Aspect      uint8
}

func (tb *TunnelBridgeEnd) Simulated() bool { return tb.SimEntrance || tb.SimExit }

func (tb *TunnelBridgeEnd) Bidirectional() bool { return tb.SimEntrance && tb.SimExit }

// Tile is one cell of the grid. All mutation goes through the command
// layer in commit phase.
type Tile struct {
	Kind   TileKind
	Owner  uint8
	Ground GroundType
	Slope  rail.Slope

	TrackBits rail.TrackBits
	Rail      RailPayload
	Reserved  rail.TrackBits

	HasSignals    bool
	SignalVariant rail.SignalVariant // variant memory while signals exist
	Signals       [6]TrackSignal

	DepotDir DiagDir
	TB       *TunnelBridgeEnd
}

// SignalBitCount is the number of present signal faces on the tile.
func (t *Tile) SignalBitCount() int {
	n := 0
	for i := range t.Signals {
		p := t.Signals[i].Present
		n += int(p&1) + int(p>>1&1)
	}
	return n
}

// ClearSignals drops every signal and the tile's variant memory.
func (t *Tile) ClearSignals() {
	t.Signals = [6]TrackSignal{}
	t.HasSignals = false
	t.SignalVariant = rail.SignalElectric
}

func (t *Tile) refreshHasSignals() {
	for i := range t.Signals {
		if t.Signals[i].Present != 0 {
			t.HasSignals = true
			return
		}
	}
	t.HasSignals = false
	t.SignalVariant = rail.SignalElectric
}

// HasRail reports whether the tile carries track the rail commands can
// touch directly.
func (t *Tile) HasRail() bool {
	switch t.Kind {
	case KindRail, KindDepot, KindTunnelBridge, KindCrossing, KindStation:
		return true
	}
	return false
}

// ActiveTrackBits is the set of tracks for occupancy and conversion
// purposes, including the implied track of depots, crossings, stations
// and tunnel/bridge heads.
func (t *Tile) ActiveTrackBits() rail.TrackBits {
	switch t.Kind {
	case KindRail:
		return t.TrackBits
	case KindDepot:
		return t.TrackBits
	case KindCrossing, KindStation:
		return t.TrackBits
	case KindTunnelBridge:
		if t.TB != nil {
			return t.TB.Dir.Axis().Bit()
		}
	}
	return rail.TrackBitsNone
}
