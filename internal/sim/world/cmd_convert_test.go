package world

import (
	"testing"

	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

func TestConvertRailSingleTile(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	c := TileCoord{10, 10}
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, rail.TrackX, rt))

	cost := mustExec(t, w, trackReq(protocol.CmdConvertRail, 0, c, rail.TrackX, elrl))
	if cost != Cost(w.Tun.Prices.ConvertRail) {
		t.Fatalf("convert cost: got %d want %d", cost, w.Tun.Prices.ConvertRail)
	}
	if got := w.tile(c).Rail.Primary(); got != elrl {
		t.Fatalf("converted type: got %d want ELRL", got)
	}
	co := w.Company(0)
	if co.RailPieces[rt] != 0 || co.RailPieces[elrl] != 1 {
		t.Fatalf("pieces: rail=%d elrl=%d", co.RailPieces[rt], co.RailPieces[elrl])
	}

	// Converting to the standing type is a chargeless no-op.
	_, err := w.Exec(trackReq(protocol.CmdConvertRail, 0, c, rail.TrackX, elrl), false)
	if !IsCode(err, protocol.ErrAlreadyBuilt) {
		t.Fatalf("want E_ALREADY_BUILT, got %v", err)
	}
}

func TestConvertRailArea(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	for x := 2; x <= 5; x++ {
		mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, TileCoord{x, 3}, rail.TrackX, rt))
	}

	// The rectangle spans clear tiles too; those are skipped silently.
	req := trackReq(protocol.CmdConvertRail, 0, TileCoord{2, 2}, rail.TrackInvalid, elrl)
	req.End = TileCoord{5, 4}
	req.HasEnd = true
	cost := mustExec(t, w, req)
	if cost != 4*Cost(w.Tun.Prices.ConvertRail) {
		t.Fatalf("area cost: got %d want %d", cost, 4*w.Tun.Prices.ConvertRail)
	}
	for x := 2; x <= 5; x++ {
		if got := w.tile(TileCoord{x, 3}).Rail.Primary(); got != elrl {
			t.Fatalf("tile (%d,3) not converted", x)
		}
	}
}

func TestConvertRailAreaOwnershipAborts(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, TileCoord{2, 3}, rail.TrackX, rt))
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 1, TileCoord{3, 3}, rail.TrackX, rt))

	req := trackReq(protocol.CmdConvertRail, 0, TileCoord{2, 3}, rail.TrackInvalid, elrl)
	req.End = TileCoord{4, 3}
	req.HasEnd = true
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrOwnedByOther) {
		t.Fatalf("want E_OWNED_BY_OTHER, got %v", err)
	}
	if got := w.tile(TileCoord{2, 3}).Rail.Primary(); got != rt {
		t.Fatalf("aborted convert mutated tile (2,3)")
	}
}

func TestConvertRailNothingToDo(t *testing.T) {
	w := testWorld(t)
	elrl := mustLookup(t, w, "ELRL")
	req := trackReq(protocol.CmdConvertRail, 0, TileCoord{2, 2}, rail.TrackInvalid, elrl)
	req.End = TileCoord{4, 4}
	req.HasEnd = true
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrAlreadyBuilt) {
		t.Fatalf("want E_ALREADY_BUILT, got %v", err)
	}
}

func TestConvertTunnelBridgePairAtomic(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	a, b := TileCoord{5, 5}, TileCoord{10, 5}
	if err := w.PlaceTunnelBridge(a, b, false, 0, rt); err != nil {
		t.Fatalf("tunnel: %v", err)
	}

	// Converting either head prices both plus the wormhole and flips the
	// far head in the same commit.
	cost := mustExec(t, w, trackReq(protocol.CmdConvertRail, 0, a, rail.TrackX, elrl))
	if cost != 6*Cost(w.Tun.Prices.ConvertRail) {
		t.Fatalf("pair cost: got %d want %d", cost, 6*w.Tun.Prices.ConvertRail)
	}
	if w.tile(a).Rail.Primary() != elrl || w.tile(b).Rail.Primary() != elrl {
		t.Fatalf("pair not converted atomically")
	}
	co := w.Company(0)
	if co.RailPieces[rt] != 0 || co.RailPieces[elrl] != 6 {
		t.Fatalf("pieces: rail=%d elrl=%d", co.RailPieces[rt], co.RailPieces[elrl])
	}
}

func TestConvertAreaVisitsTunnelBridgeOnce(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	a, b := TileCoord{5, 5}, TileCoord{10, 5}
	if err := w.PlaceTunnelBridge(a, b, true, 0, rt); err != nil {
		t.Fatalf("bridge: %v", err)
	}

	// The rectangle covers both heads; the far head must not be charged a
	// second time.
	req := trackReq(protocol.CmdConvertRail, 0, TileCoord{4, 4}, rail.TrackInvalid, elrl)
	req.End = TileCoord{11, 6}
	req.HasEnd = true
	cost := mustExec(t, w, req)
	if cost != 6*Cost(w.Tun.Prices.ConvertRail) {
		t.Fatalf("area pair cost: got %d want %d", cost, 6*w.Tun.Prices.ConvertRail)
	}
}

func TestConvertRailLine(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	elrl := mustLookup(t, w, "ELRL")
	mustExec(t, w, lineReq(protocol.CmdBuildTrackLine, 0, TileCoord{2, 2}, TileCoord{6, 2}, rail.TrackX, rt))

	cost := mustExec(t, w, lineReq(protocol.CmdConvertRailLine, 0, TileCoord{2, 2}, TileCoord{6, 2}, rail.TrackX, elrl))
	if cost != 5*Cost(w.Tun.Prices.ConvertRail) {
		t.Fatalf("line cost: got %d want %d", cost, 5*w.Tun.Prices.ConvertRail)
	}
	for x := 2; x <= 6; x++ {
		if got := w.tile(TileCoord{x, 2}).Rail.Primary(); got != elrl {
			t.Fatalf("tile (%d,2) not converted", x)
		}
	}
}

func TestConvertUnderUnpoweredTrain(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	mono := mustLookup(t, w, "MONO")
	c := TileCoord{10, 10}
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, rail.TrackX, rt))
	w.AddTrain(&Train{ID: 1, Owner: 0, Tile: c, Track: rail.TrackX, RailType: rt})

	// Monorail supplies no power to a rail engine standing on the tile.
	_, err := w.Exec(trackReq(protocol.CmdConvertRail, 0, c, rail.TrackX, mono), false)
	if !IsCode(err, protocol.ErrTrainInWay) {
		t.Fatalf("want E_TRAIN_IN_WAY, got %v", err)
	}

	// Electrified rail keeps the engine powered, so the conversion runs
	// even with the train in place.
	elrl := mustLookup(t, w, "ELRL")
	mustExec(t, w, trackReq(protocol.CmdConvertRail, 0, c, rail.TrackX, elrl))
}
