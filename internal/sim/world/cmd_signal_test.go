package world

import (
	"testing"

	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/rail"
	"railgrid.dev/internal/sim/tuning"
)

func multiAspectWorld(t *testing.T) *World {
	t.Helper()
	tun := tuning.Default()
	tun.MultiAspectEnabled = true
	return New(WorldConfig{ID: "aspect", SizeX: 64, SizeY: 64, Seed: 1, Companies: 2},
		catalogs.Default(), tun)
}

func buildStraight(t *testing.T, w *World, c TileCoord, track rail.Track) rail.RailType {
	t.Helper()
	rt := mustLookup(t, w, "RAIL")
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, track, rt))
	return rt
}

func signalReq(company uint8, c TileCoord, track rail.Track, st rail.SignalType) *CmdReq {
	return &CmdReq{
		Cmd:     protocol.CmdBuildSignal,
		Company: company,
		Tile:    c,
		Track:   track,
		Signal:  SignalReq{Type: st},
	}
}

func TestBuildSignalClassicBothFaces(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	cost := mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))
	if cost != 2*Cost(w.Tun.Prices.BuildSignal) {
		t.Fatalf("block signal cost: got %d want %d", cost, 2*w.Tun.Prices.BuildSignal)
	}
	tl := w.tile(c)
	slot := tl.Signals[rail.TrackX]
	if slot.Present != SideBoth {
		t.Fatalf("block signal faces: got %d want both", slot.Present)
	}
	if slot.Sig.State != rail.SignalStateGreen {
		t.Fatalf("block signal should start open")
	}
	if w.Company(0).Signals != 2 {
		t.Fatalf("signal count: got %d want 2", w.Company(0).Signals)
	}
}

func TestBuildSignalPBSSingleFace(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	cost := mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalPBS))
	if cost != Cost(w.Tun.Prices.BuildSignal) {
		t.Fatalf("pbs signal cost: got %d want %d", cost, w.Tun.Prices.BuildSignal)
	}
	slot := w.tile(c).Signals[rail.TrackX]
	if slot.Present != SideAlong {
		t.Fatalf("pbs faces: got %d want along", slot.Present)
	}
	if slot.Sig.State != rail.SignalStateRed {
		t.Fatalf("unreserved pbs signal should start red")
	}
	if w.Company(0).Signals != 1 {
		t.Fatalf("signal count: got %d want 1", w.Company(0).Signals)
	}
}

func TestBuildSignalRefusals(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	c := TileCoord{10, 10}

	// No track at all.
	_, err := w.Exec(signalReq(0, c, rail.TrackX, rail.SignalBlock), false)
	if !IsCode(err, protocol.ErrNoTrack) {
		t.Fatalf("clear tile: want E_NO_TRACK, got %v", err)
	}

	// Junctions never take signals.
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, rail.TrackX, rt))
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, rail.TrackY, rt))
	_, err = w.Exec(signalReq(0, c, rail.TrackX, rail.SignalBlock), false)
	if !IsCode(err, protocol.ErrNoTrack) {
		t.Fatalf("junction: want E_NO_TRACK, got %v", err)
	}

	// Someone else's track.
	c2 := TileCoord{11, 10}
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 1, c2, rail.TrackX, rt))
	_, err = w.Exec(signalReq(0, c2, rail.TrackX, rail.SignalBlock), false)
	if !IsCode(err, protocol.ErrOwnedByOther) {
		t.Fatalf("foreign track: want E_OWNED_BY_OTHER, got %v", err)
	}
}

func TestSignalVariantMemory(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackUpper)
	rt := mustLookup(t, w, "RAIL")
	mustExec(t, w, trackReq(protocol.CmdBuildTrack, 0, c, rail.TrackLower, rt))

	first := signalReq(0, c, rail.TrackUpper, rail.SignalBlock)
	first.Signal.Variant = rail.SignalSemaphore
	mustExec(t, w, first)

	// The second signal on the tile inherits the standing variant even
	// though the request asks for electric.
	second := signalReq(0, c, rail.TrackLower, rail.SignalBlock)
	second.Signal.Variant = rail.SignalElectric
	mustExec(t, w, second)
	if got := w.tile(c).Signals[rail.TrackLower].Sig.Variant; got != rail.SignalSemaphore {
		t.Fatalf("variant memory: got %d want semaphore", got)
	}

	// Removing every signal clears the memory.
	mustExec(t, w, trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackUpper, rt))
	mustExec(t, w, trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackLower, rt))
	third := signalReq(0, c, rail.TrackUpper, rail.SignalBlock)
	third.Signal.Variant = rail.SignalElectric
	mustExec(t, w, third)
	if got := w.tile(c).Signals[rail.TrackUpper].Sig.Variant; got != rail.SignalElectric {
		t.Fatalf("variant after full clear: got %d want electric", got)
	}
}

func TestSignalCycleTypeIsFree(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))

	req := signalReq(0, c, rail.TrackX, rail.SignalBlock)
	req.Opts.Ctrl = true
	cost := mustExec(t, w, req)
	if cost != 0 {
		t.Fatalf("cycle cost: got %d want 0", cost)
	}
	if got := w.tile(c).Signals[rail.TrackX].Sig.Type; got != rail.SignalEntry {
		t.Fatalf("cycled type: got %d want entry", got)
	}
}

func TestSignalCycleSide(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))

	cycle := func() uint8 {
		mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))
		return w.tile(c).Signals[rail.TrackX].Present
	}
	if got := cycle(); got != SideAlong {
		t.Fatalf("first cycle: got %d want along", got)
	}
	if w.Company(0).Signals != 1 {
		t.Fatalf("signal count after drop to one face: got %d", w.Company(0).Signals)
	}
	if got := cycle(); got != SideAgainst {
		t.Fatalf("second cycle: got %d want against", got)
	}
	if got := cycle(); got != SideBoth {
		t.Fatalf("third cycle: got %d want both", got)
	}
	if w.Company(0).Signals != 2 {
		t.Fatalf("signal count after restore: got %d", w.Company(0).Signals)
	}
}

func TestSignalConvertVariant(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))

	req := signalReq(0, c, rail.TrackX, rail.SignalBlock)
	req.Signal.Variant = rail.SignalSemaphore
	req.Opts.Convert = true
	cost := mustExec(t, w, req)
	if cost != Cost(w.Tun.Prices.BuildSignal) {
		t.Fatalf("convert cost: got %d want %d", cost, w.Tun.Prices.BuildSignal)
	}
	if got := w.tile(c).Signals[rail.TrackX].Sig.Variant; got != rail.SignalSemaphore {
		t.Fatalf("variant: got %d want semaphore", got)
	}

	// Converting to what already stands is a no-op.
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrAlreadyBuilt) {
		t.Fatalf("want E_ALREADY_BUILT, got %v", err)
	}
}

func TestSignalStyleRestrictions(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	// Style 1 (banner) is semaphore-only.
	req := signalReq(0, c, rail.TrackX, rail.SignalBlock)
	req.Signal.Style = 1
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrUnsuitableSignal) {
		t.Fatalf("electric on semaphore-only style: want E_UNSUITABLE_SIGNAL, got %v", err)
	}
	req.Signal.Variant = rail.SignalSemaphore
	mustExec(t, w, req)

	// Style 2 (gate) allows only path signal types.
	c2 := TileCoord{11, 10}
	buildStraight(t, w, c2, rail.TrackX)
	req2 := signalReq(0, c2, rail.TrackX, rail.SignalBlock)
	req2.Signal.Style = 2
	_, err = w.Exec(req2, false)
	if !IsCode(err, protocol.ErrUnsuitableSignal) {
		t.Fatalf("block on pbs-only style: want E_UNSUITABLE_SIGNAL, got %v", err)
	}
	req2.Signal.Type = rail.SignalPBS
	mustExec(t, w, req2)
}

func TestRemoveSignal(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	_, err := w.Exec(trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackX, rt), false)
	if !IsCode(err, protocol.ErrNoSignals) {
		t.Fatalf("want E_NO_SIGNALS, got %v", err)
	}

	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))
	cost := mustExec(t, w, trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackX, rt))
	if cost != Cost(w.Tun.Prices.RemoveSignal) {
		t.Fatalf("remove cost: got %d want %d", cost, w.Tun.Prices.RemoveSignal)
	}
	if w.tile(c).HasSignals {
		t.Fatalf("signal survived removal")
	}
	if w.Company(0).Signals != 0 {
		t.Fatalf("signal count: got %d want 0", w.Company(0).Signals)
	}
}

func TestRemoveSignalWithProgram(t *testing.T) {
	w := testWorld(t)
	rt := mustLookup(t, w, "RAIL")
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalProg))

	ref := SignalRef{Tile: c, Track: rail.TrackX}
	w.AttachProgram(ref, &SignalProgram{Owner: 0, Body: "deny when reserved"})

	_, err := w.Exec(trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackX, rt), false)
	if !IsCode(err, protocol.ErrRestrictedSignal) {
		t.Fatalf("want E_RESTRICTED_SIGNAL, got %v", err)
	}

	req := trackReq(protocol.CmdRemoveSignal, 0, c, rail.TrackX, rt)
	req.Opts.Ctrl = true
	mustExec(t, w, req)
	if w.ProgramAt(ref) != nil {
		t.Fatalf("program survived forced removal")
	}
}

func TestSideCycleInvalidatesProgram(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalProg))

	ref := SignalRef{Tile: c, Track: rail.TrackX}
	w.AttachProgram(ref, &SignalProgram{Owner: 0, Body: "x", Sides: SideBoth})

	// Both -> Along drops the against face the program references.
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalProg))
	if w.ProgramAt(ref) != nil {
		t.Fatalf("program should be invalidated when its side disappears")
	}
}

func TestSignalAspectsTwoState(t *testing.T) {
	w := testWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))
	slot := w.tile(c).Signals[rail.TrackX]
	if slot.Sig.State != rail.SignalStateGreen || slot.Sig.Aspect != 1 {
		t.Fatalf("two-state green: state=%d aspect=%d", slot.Sig.State, slot.Sig.Aspect)
	}
}

func TestSignalAspectsMultiAspect(t *testing.T) {
	w := multiAspectWorld(t)
	c := TileCoord{10, 10}
	buildStraight(t, w, c, rail.TrackX)

	// Open block signal shows the widest aspect the tuning allows.
	mustExec(t, w, signalReq(0, c, rail.TrackX, rail.SignalBlock))
	slot := w.tile(c).Signals[rail.TrackX]
	if slot.Sig.Aspect != uint8(w.Tun.MaxSignalAspect) {
		t.Fatalf("green aspect: got %d want %d", slot.Sig.Aspect, w.Tun.MaxSignalAspect)
	}

	// An unreserved path signal starts red and therefore at aspect 0.
	c2 := TileCoord{12, 10}
	buildStraight(t, w, c2, rail.TrackX)
	mustExec(t, w, signalReq(0, c2, rail.TrackX, rail.SignalPBS))
	slot = w.tile(c2).Signals[rail.TrackX]
	if slot.Sig.State != rail.SignalStateRed || slot.Sig.Aspect != 0 {
		t.Fatalf("red pbs aspect: state=%d aspect=%d", slot.Sig.State, slot.Sig.Aspect)
	}
}
