package world

import (
	"fmt"

	"railgrid.dev/internal/sim/rail"
)

// World-building entry points for the save/load layer, scenario setup
// and tests. These bypass the command protocol deliberately: they place
// structures the command surface itself cannot create (tunnels, bridges,
// crossings, stations) or restore persisted state.

// SetSlope shapes a tile's ground.
func (w *World) SetSlope(c TileCoord, s rail.Slope) {
	if t := w.tile(c); t != nil {
		t.Slope = s
		w.grid.MarkDirty(c)
	}
}

func (w *World) SetGround(c TileCoord, g GroundType) {
	if t := w.tile(c); t != nil {
		t.Ground = g
		w.grid.MarkDirty(c)
	}
}

// PlaceTunnelBridge installs a tunnel or bridge pair between two tiles
// aligned on one axis. The heads start unsignalled.
func (w *World) PlaceTunnelBridge(a, b TileCoord, bridge bool, owner uint8, rt rail.RailType) error {
	if a.X != b.X && a.Y != b.Y {
		return fmt.Errorf("tunnel/bridge heads not axis-aligned: %v %v", a, b)
	}
	ta, tb := w.tile(a), w.tile(b)
	if ta == nil || tb == nil {
		return fmt.Errorf("tunnel/bridge head out of bounds")
	}
	if ta.Kind != KindClear || tb.Kind != KindClear {
		return fmt.Errorf("tunnel/bridge heads not clear")
	}
	var dir DiagDir
	var length int
	switch {
	case a.X == b.X && b.Y > a.Y:
		dir, length = DirSE, b.Y-a.Y-1
	case a.X == b.X:
		dir, length = DirNW, a.Y-b.Y-1
	case b.X > a.X:
		dir, length = DirNE, b.X-a.X-1
	default:
		dir, length = DirSW, a.X-b.X-1
	}
	if length < 0 {
		return fmt.Errorf("tunnel/bridge heads adjacent or equal")
	}

	install := func(t *Tile, c, other TileCoord, d DiagDir) {
		t.Kind = KindTunnelBridge
		t.Owner = owner
		t.Rail = SingleRail(rt)
		t.TrackBits = d.Axis().Bit()
		t.TB = &TunnelBridgeEnd{Other: other, Bridge: bridge, Dir: d, Length: length}
		w.grid.MarkDirty(c)
	}
	install(ta, a, b, dir)
	install(tb, b, a, dir.Reverse())

	if co := w.Company(owner); co != nil {
		// The wormhole counts once per head plus its length.
		co.RailPieces[rt] += int64(length + 2)
	}
	return nil
}

// PlaceCrossing lays a road/rail crossing: a single straight rail track
// shared with a road.
func (w *World) PlaceCrossing(c TileCoord, axis rail.Track, owner uint8, rt rail.RailType) error {
	if !axis.Diagonal() {
		return fmt.Errorf("crossing needs an X or Y track")
	}
	t := w.tile(c)
	if t == nil || t.Kind != KindClear {
		return fmt.Errorf("crossing tile not clear")
	}
	t.Kind = KindCrossing
	t.Owner = owner
	t.TrackBits = axis.Bit()
	t.Rail = SingleRail(rt)
	if co := w.Company(owner); co != nil {
		co.RailPieces[rt]++
	}
	w.grid.MarkDirty(c)
	return nil
}

// PlaceStation lays one station tile with a single straight track.
func (w *World) PlaceStation(c TileCoord, axis rail.Track, owner uint8, rt rail.RailType) error {
	if !axis.Diagonal() {
		return fmt.Errorf("station needs an X or Y track")
	}
	t := w.tile(c)
	if t == nil || t.Kind != KindClear {
		return fmt.Errorf("station tile not clear")
	}
	t.Kind = KindStation
	t.Owner = owner
	t.TrackBits = axis.Bit()
	t.Rail = SingleRail(rt)
	if co := w.Company(owner); co != nil {
		co.RailPieces[rt]++
	}
	w.grid.MarkDirty(c)
	return nil
}
