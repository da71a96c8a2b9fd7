package world

import (
	"testing"

	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// placePair installs a 6-piece bridge (length 4) between (5,5) and (10,5)
// owned by company 0.
func placePair(t *testing.T, w *World) (TileCoord, TileCoord) {
	t.Helper()
	a, b := TileCoord{5, 5}, TileCoord{10, 5}
	rt := mustLookup(t, w, "RAIL")
	if err := w.PlaceTunnelBridge(a, b, true, 0, rt); err != nil {
		t.Fatalf("place bridge: %v", err)
	}
	return a, b
}

func TestTunnelBridgePlacement(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)
	rt := mustLookup(t, w, "RAIL")

	ta, tb := w.tile(a), w.tile(b)
	if ta.TB == nil || tb.TB == nil {
		t.Fatalf("heads missing tb state")
	}
	if ta.TB.Dir != DirNE || tb.TB.Dir != DirSW {
		t.Fatalf("head dirs: %d %d", ta.TB.Dir, tb.TB.Dir)
	}
	if ta.TB.Length != 4 || tb.TB.Length != 4 {
		t.Fatalf("length: %d %d want 4", ta.TB.Length, tb.TB.Length)
	}
	if got := w.Company(0).RailPieces[rt]; got != 6 {
		t.Fatalf("pieces: got %d want length+2=6", got)
	}
}

func TestTunnelBridgeFirstSignal(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)

	// Default density 4 on length 4: entrance chain of 2 plus the exit.
	cost := mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))
	if cost != 3*Cost(w.Tun.Prices.BuildSignal) {
		t.Fatalf("first signal cost: got %d want %d", cost, 3*w.Tun.Prices.BuildSignal)
	}
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if !tba.SimEntrance || tba.SimExit {
		t.Fatalf("near head should be entrance-only: in=%v out=%v", tba.SimEntrance, tba.SimExit)
	}
	if tbb.SimEntrance || !tbb.SimExit {
		t.Fatalf("far head should be exit-only: in=%v out=%v", tbb.SimEntrance, tbb.SimExit)
	}
	if tba.Spacing != 4 || tbb.Spacing != 4 {
		t.Fatalf("spacing: %d %d want 4", tba.Spacing, tbb.Spacing)
	}
	if tba.State != rail.SignalStateGreen {
		t.Fatalf("entrance should start open")
	}
	if tbb.State != rail.SignalStateRed {
		t.Fatalf("unreserved exit should start red")
	}
	if w.Company(0).Signals != 3 {
		t.Fatalf("signal count: got %d want 3", w.Company(0).Signals)
	}
}

func TestTunnelBridgeSpacingClamp(t *testing.T) {
	w := testWorld(t)
	a, _ := placePair(t, w)

	// Requested density above the wormhole length clamps to the length.
	req := signalReq(0, a, rail.TrackX, rail.SignalBlock)
	req.Signal.Density = 99
	mustExec(t, w, req)
	if got := w.tile(a).TB.Spacing; got != 4 {
		t.Fatalf("spacing: got %d want 4", got)
	}
}

func TestTunnelBridgeReverse(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)
	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))

	cost := mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))
	if cost != 0 {
		t.Fatalf("reverse cost: got %d want 0", cost)
	}
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if tba.SimEntrance || !tbb.SimEntrance {
		t.Fatalf("reverse did not swap the roles")
	}

	// A second reverse restores the original layout.
	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))
	if !tba.SimEntrance || tbb.SimEntrance {
		t.Fatalf("double reverse should restore the roles")
	}
}

func TestTunnelBridgeBidirectional(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)
	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalPBS))

	// One-way PBS pair simulates 3 signals; bidirectional doubles that
	// and charges for the difference.
	req := signalReq(0, a, rail.TrackX, rail.SignalPBS)
	req.Opts.PermitBidirectional = true
	cost := mustExec(t, w, req)
	if cost != 3*Cost(w.Tun.Prices.BuildSignal) {
		t.Fatalf("upgrade cost: got %d want %d", cost, 3*w.Tun.Prices.BuildSignal)
	}
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if !tba.Bidirectional() || !tbb.Bidirectional() {
		t.Fatalf("pair should be bidirectional")
	}
	if !tba.WasEntrance || tbb.WasEntrance {
		t.Fatalf("one-way roles should be remembered: a=%v b=%v", tba.WasEntrance, tbb.WasEntrance)
	}
	if w.Company(0).Signals != 6 {
		t.Fatalf("signal count: got %d want 6", w.Company(0).Signals)
	}

	// Toggling off restores the remembered direction.
	mustExec(t, w, req)
	if tba.Bidirectional() || !tba.SimEntrance || !tbb.SimExit {
		t.Fatalf("toggle off should restore a=entrance b=exit")
	}
	if w.Company(0).Signals != 3 {
		t.Fatalf("signal count after downgrade: got %d want 3", w.Company(0).Signals)
	}
}

func TestTunnelBridgeBidirectionalNeedsPBS(t *testing.T) {
	w := testWorld(t)
	a, _ := placePair(t, w)
	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))

	req := signalReq(0, a, rail.TrackX, rail.SignalBlock)
	req.Opts.PermitBidirectional = true
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrUnsuitableSignal) {
		t.Fatalf("want E_UNSUITABLE_SIGNAL, got %v", err)
	}
}

func TestTunnelBridgeTogglePBSLeavesBidirectional(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)
	first := signalReq(0, a, rail.TrackX, rail.SignalPBS)
	first.Opts.PermitBidirectional = true
	mustExec(t, w, first)

	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if !tba.Bidirectional() {
		t.Fatalf("setup: pair should start bidirectional")
	}

	// Ctrl toggles PBS off; leaving PBS also leaves bidirectional mode.
	req := signalReq(0, a, rail.TrackX, rail.SignalPBS)
	req.Opts.Ctrl = true
	mustExec(t, w, req)
	if tba.PBS || tbb.PBS {
		t.Fatalf("pbs should be off")
	}
	if tba.Bidirectional() || tbb.Bidirectional() {
		t.Fatalf("leaving pbs should drop bidirectional mode")
	}
	if !tba.SimEntrance || !tbb.SimExit {
		t.Fatalf("remembered direction not restored")
	}
}

func TestTunnelBridgeRemoveSignals(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)
	rt := mustLookup(t, w, "RAIL")
	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))

	cost := mustExec(t, w, trackReq(protocol.CmdRemoveSignal, 0, a, rail.TrackX, rt))
	if cost != 3*Cost(w.Tun.Prices.RemoveSignal) {
		t.Fatalf("remove cost: got %d want %d", cost, 3*w.Tun.Prices.RemoveSignal)
	}
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if tba.Simulated() || tbb.Simulated() {
		t.Fatalf("simulation should be cleared on both heads")
	}
	if w.Company(0).Signals != 0 {
		t.Fatalf("signal count: got %d want 0", w.Company(0).Signals)
	}

	_, err := w.Exec(trackReq(protocol.CmdRemoveSignal, 0, a, rail.TrackX, rt), false)
	if !IsCode(err, protocol.ErrNoSignals) {
		t.Fatalf("want E_NO_SIGNALS, got %v", err)
	}
}

func TestTunnelBridgeStyleRoles(t *testing.T) {
	w := testWorld(t)

	// An entrance-only style cannot serve the pair's exit head.
	w.Cats.Styles = append(w.Cats.Styles, rail.SignalStyle{Name: "mouth", EntranceOnly: true})
	style := uint8(len(w.Cats.Styles) - 1)

	a, _ := placePair(t, w)
	req := signalReq(0, a, rail.TrackX, rail.SignalBlock)
	req.Signal.Style = style
	_, err := w.Exec(req, false)
	if !IsCode(err, protocol.ErrUnsuitableSignal) {
		t.Fatalf("want E_UNSUITABLE_SIGNAL, got %v", err)
	}
}

func TestTunnelBridgeAspectPropagation(t *testing.T) {
	w := multiAspectWorld(t)
	a, b := placePair(t, w)

	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if !tba.SpecialProp || !tbb.SpecialProp {
		t.Fatalf("multi-aspect pairs should propagate aspects across the wormhole")
	}
	if tba.Aspect != uint8(w.Tun.MaxSignalAspect) {
		t.Fatalf("entrance aspect: got %d want %d", tba.Aspect, w.Tun.MaxSignalAspect)
	}
	if tbb.Aspect != 0 {
		t.Fatalf("red exit aspect: got %d want 0", tbb.Aspect)
	}

	// Reversal moves the wide aspect to the new entrance.
	mustExec(t, w, signalReq(0, b, rail.TrackX, rail.SignalBlock))
	tba, tbb = w.tile(a).TB, w.tile(b).TB
	if tbb.Aspect != uint8(w.Tun.MaxSignalAspect) || tba.Aspect != 0 {
		t.Fatalf("aspects after reversal: near=%d far=%d", tba.Aspect, tbb.Aspect)
	}

	req := signalReq(0, a, rail.TrackX, rail.SignalBlock)
	req.Cmd = protocol.CmdRemoveSignal
	mustExec(t, w, req)
	tba, tbb = w.tile(a).TB, w.tile(b).TB
	if tba.SpecialProp || tbb.SpecialProp || tba.Aspect != 0 || tbb.Aspect != 0 {
		t.Fatalf("designalled heads should clear propagation and aspects")
	}
}

func TestTunnelBridgeAspectTwoState(t *testing.T) {
	w := testWorld(t)
	a, b := placePair(t, w)

	mustExec(t, w, signalReq(0, a, rail.TrackX, rail.SignalBlock))
	tba, tbb := w.tile(a).TB, w.tile(b).TB
	if tba.SpecialProp || tbb.SpecialProp {
		t.Fatalf("two-state pairs should not set special propagation")
	}
	if tba.Aspect != 1 || tbb.Aspect != 0 {
		t.Fatalf("two-state aspects: near=%d far=%d", tba.Aspect, tbb.Aspect)
	}
}
