package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// Tunnel/bridge signal simulation. The two heads of a pair must stay
// mutually consistent: every transition here touches both tiles in one
// commit, or neither.

// simSpacingFor picks the stored spacing for a fresh simulation: the
// user density clamped to the legal range, never exceeding the length.
func (w *World) simSpacingFor(length, density int) int {
	if density <= 0 {
		density = w.Tun.DefaultSignalDensity
	}
	if density < 1 {
		density = 1
	}
	if density > w.Tun.MaxSignalSpacing {
		density = w.Tun.MaxSignalSpacing
	}
	if length > 0 && density > length {
		density = length
	}
	if density < 1 {
		density = 1
	}
	return density
}

// tbSignalCount is the number of simulated signals the pair pays for:
// the entrance chain plus the exit, doubled in bidirectional mode.
func tbSignalCount(tb *TunnelBridgeEnd) int {
	if !tb.Simulated() {
		return 0
	}
	sp := tb.Spacing
	if sp < 1 {
		sp = 1
	}
	n := 1 + tb.Length/sp + 1
	if tb.Bidirectional() {
		n *= 2
	}
	return n
}

// tbStyleRoleCheck rejects a style unusable in the entrance/exit role
// it is being given.
func (w *World) tbStyleRoleCheck(style uint8, entrance, exit bool) error {
	s := w.Cats.Style(style)
	if s.EntranceOnly && exit && !entrance {
		return errCode(protocol.ErrUnsuitableSignal, "style is entrance-only")
	}
	if s.ExitOnly && entrance && !exit {
		return errCode(protocol.ErrUnsuitableSignal, "style is exit-only")
	}
	return nil
}

func (w *World) tbPair(t *Tile, req *CmdReq) (*TunnelBridgeEnd, *Tile, *TunnelBridgeEnd, error) {
	if t.TB == nil {
		return nil, nil, nil, errNoTrack()
	}
	if t.Owner != req.Company {
		return nil, nil, nil, errOwnedByOther()
	}
	ot := w.tile(t.TB.Other)
	if ot == nil || ot.TB == nil {
		return nil, nil, nil, errCode(protocol.ErrInternal, "dangling tunnel/bridge pair")
	}
	return t.TB, ot, ot.TB, nil
}

// tbReservationGuard applies the commit-time invariant: a change to the
// simulated signal layout under a live reservation must first release
// it when the change is unsafe to apply underneath (realistic braking,
// or a train that loses power on the head types).
func (w *World) tbReservationGuard(a, b TileCoord, phase Phase) ([]TrainID, error) {
	abit := w.tile(a).ActiveTrackBits()
	bbit := w.tile(b).ActiveTrackBits()
	if phase == PhaseValidate {
		if err := w.checkReservedChange(a, abit); err != nil {
			return nil, err
		}
		if err := w.checkReservedChange(b, bbit); err != nil {
			return nil, err
		}
		return nil, nil
	}
	freed := w.releaseReservedChange(a, abit)
	freed = append(freed, w.releaseReservedChange(b, bbit)...)
	return freed, nil
}

func (w *World) buildTunnelBridgeSignal(t *Tile, req *CmdReq, phase Phase) (Cost, error) {
	tb, ot, otb, err := w.tbPair(t, req)
	if err != nil {
		return 0, err
	}
	wormTrack := tb.Dir.Axis()
	if w.ProgramAt(SignalRef{Tile: req.Tile, Track: wormTrack}) != nil && !req.Opts.Ctrl {
		return 0, errCode(protocol.ErrRestrictedSignal, "restricted signal")
	}

	switch {
	case !tb.Simulated():
		return w.tbFirstSignal(t, tb, ot, otb, req, phase)
	case req.Opts.Convert:
		return w.tbConvert(t, tb, ot, otb, req, phase)
	case req.Opts.Ctrl:
		return w.tbTogglePBS(t, tb, ot, otb, req, phase)
	case req.Opts.PermitBidirectional:
		return w.tbToggleBidirectional(t, tb, ot, otb, req, phase)
	default:
		return w.tbReverse(t, tb, ot, otb, req, phase)
	}
}

func (w *World) tbFirstSignal(t *Tile, tb *TunnelBridgeEnd, ot *Tile, otb *TunnelBridgeEnd, req *CmdReq, phase Phase) (Cost, error) {
	bidi := req.Opts.PermitBidirectional
	if bidi {
		if !req.Signal.Type.IsPBS() {
			return 0, errCode(protocol.ErrUnsuitableSignal, "bidirectional needs path signals")
		}
		if w.Cats.Style(req.Signal.Style).NoBidirectional {
			return 0, errCode(protocol.ErrUnsuitableSignal, "style excluded from bidirectional use")
		}
	} else {
		if err := w.tbStyleRoleCheck(req.Signal.Style, true, false); err != nil {
			return 0, err
		}
		if err := w.tbStyleRoleCheck(req.Signal.Style, false, true); err != nil {
			return 0, err
		}
	}

	spacing := w.simSpacingFor(tb.Length, req.Signal.Density)
	probe := TunnelBridgeEnd{Length: tb.Length, Spacing: spacing, SimEntrance: true, SimExit: bidi}
	cost := Cost(w.Tun.Prices.BuildSignal) * Cost(tbSignalCount(&probe))

	freed, err := w.tbReservationGuard(req.Tile, t.TB.Other, phase)
	if err != nil {
		return 0, err
	}

	if phase == PhaseCommit {
		for _, e := range []*TunnelBridgeEnd{tb, otb} {
			e.PBS = req.Signal.Type.IsPBS()
			e.Variant = req.Signal.Variant
			e.Style = req.Signal.Style
			e.Spacing = spacing
			// Aspects carry across the wormhole only under multi-aspect
			// signalling.
			e.SpecialProp = w.Tun.MultiAspectEnabled
		}
		if bidi {
			tb.SimEntrance, tb.SimExit = true, true
			otb.SimEntrance, otb.SimExit = true, true
			tb.WasEntrance, otb.WasEntrance = true, false
			w.tbSetState(tb, rail.SignalStateGreen)
			w.tbSetState(otb, rail.SignalStateGreen)
		} else {
			tb.SimEntrance, tb.SimExit = true, false
			otb.SimEntrance, otb.SimExit = false, true
			w.tbSetState(tb, rail.SignalStateGreen)
			w.tbSetState(otb, w.tbExitState(t.TB.Other))
		}
		w.addSignalCount(req.Company, tbSignalCount(tb))
		w.afterMutate(req.Tile, freed)
		w.afterMutate(t.TB.Other, nil)
	}
	return cost, nil
}

// tbSetState writes a head's entrance aspect; State and its derived
// multi-aspect value must never drift apart.
func (w *World) tbSetState(e *TunnelBridgeEnd, s rail.SignalState) {
	e.State = s
	e.Aspect = w.signalAspect(s)
}

// tbExitState: the exit gate starts red unless a path is already
// reserved through it.
func (w *World) tbExitState(c TileCoord) rail.SignalState {
	t := w.tile(c)
	if t != nil && t.Reserved != 0 {
		return rail.SignalStateGreen
	}
	return rail.SignalStateRed
}

// tbReverse swaps entrance and exit on an already-simulated one-way
// pair. Styles restricted to one role forbid the swap.
func (w *World) tbReverse(t *Tile, tb *TunnelBridgeEnd, ot *Tile, otb *TunnelBridgeEnd, req *CmdReq, phase Phase) (Cost, error) {
	if tb.Bidirectional() {
		return 0, errAlreadyBuilt()
	}
	if err := w.tbStyleRoleCheck(tb.Style, tb.SimExit, tb.SimEntrance); err != nil {
		return 0, err
	}
	if err := w.tbStyleRoleCheck(otb.Style, otb.SimExit, otb.SimEntrance); err != nil {
		return 0, err
	}
	freed, err := w.tbReservationGuard(req.Tile, t.TB.Other, phase)
	if err != nil {
		return 0, err
	}

	if phase == PhaseCommit {
		tb.SimEntrance, tb.SimExit = tb.SimExit, tb.SimEntrance
		otb.SimEntrance, otb.SimExit = otb.SimExit, otb.SimEntrance
		if tb.SimEntrance {
			w.tbSetState(tb, rail.SignalStateGreen)
			w.tbSetState(otb, w.tbExitState(t.TB.Other))
		} else {
			w.tbSetState(otb, rail.SignalStateGreen)
			w.tbSetState(tb, w.tbExitState(req.Tile))
		}
		w.afterMutate(req.Tile, freed)
		w.afterMutate(t.TB.Other, nil)
	}
	return 0, nil
}

// tbTogglePBS flips the path-signal flag; leaving PBS also leaves
// bidirectional mode, restoring the remembered one-way direction.
func (w *World) tbTogglePBS(t *Tile, tb *TunnelBridgeEnd, ot *Tile, otb *TunnelBridgeEnd, req *CmdReq, phase Phase) (Cost, error) {
	turningOff := tb.PBS
	wasBidi := tb.Bidirectional()

	oldCount := tbSignalCount(tb)
	probe := *tb
	probe.PBS = !turningOff
	if turningOff && wasBidi {
		probe.SimEntrance, probe.SimExit = probe.WasEntrance, !probe.WasEntrance
	}
	newCount := tbSignalCount(&probe)

	var freed []TrainID
	var err error
	if oldCount != newCount {
		freed, err = w.tbReservationGuard(req.Tile, t.TB.Other, phase)
		if err != nil {
			return 0, err
		}
	}

	if phase == PhaseCommit {
		tb.PBS = !turningOff
		otb.PBS = tb.PBS
		if turningOff && wasBidi {
			tb.SimEntrance, tb.SimExit = tb.WasEntrance, !tb.WasEntrance
			otb.SimEntrance, otb.SimExit = otb.WasEntrance, !otb.WasEntrance
			if tb.SimEntrance {
				w.tbSetState(tb, rail.SignalStateGreen)
				w.tbSetState(otb, w.tbExitState(t.TB.Other))
			} else {
				w.tbSetState(otb, rail.SignalStateGreen)
				w.tbSetState(tb, w.tbExitState(req.Tile))
			}
		}
		w.addSignalCount(req.Company, tbSignalCount(tb)-oldCount)
		w.afterMutate(req.Tile, freed)
		w.afterMutate(t.TB.Other, nil)
	}
	return 0, nil
}

// tbToggleBidirectional upgrades a one-way PBS pair to bidirectional or
// drops bidirectional back to the remembered direction.
func (w *World) tbToggleBidirectional(t *Tile, tb *TunnelBridgeEnd, ot *Tile, otb *TunnelBridgeEnd, req *CmdReq, phase Phase) (Cost, error) {
	if !tb.Bidirectional() {
		if !tb.PBS {
			return 0, errCode(protocol.ErrUnsuitableSignal, "bidirectional needs path signals")
		}
		if w.Cats.Style(tb.Style).NoBidirectional || w.Cats.Style(otb.Style).NoBidirectional {
			return 0, errCode(protocol.ErrUnsuitableSignal, "style excluded from bidirectional use")
		}
	}

	oldCount := tbSignalCount(tb)
	probe := *tb
	if tb.Bidirectional() {
		probe.SimEntrance, probe.SimExit = probe.WasEntrance, !probe.WasEntrance
	} else {
		probe.SimEntrance, probe.SimExit = true, true
	}
	newCount := tbSignalCount(&probe)
	var cost Cost
	if newCount > oldCount {
		cost = Cost(w.Tun.Prices.BuildSignal) * Cost(newCount-oldCount)
	}

	freed, err := w.tbReservationGuard(req.Tile, t.TB.Other, phase)
	if err != nil {
		return 0, err
	}

	if phase == PhaseCommit {
		if tb.Bidirectional() {
			tb.SimEntrance, tb.SimExit = tb.WasEntrance, !tb.WasEntrance
			otb.SimEntrance, otb.SimExit = otb.WasEntrance, !otb.WasEntrance
			if tb.SimEntrance {
				w.tbSetState(tb, rail.SignalStateGreen)
				w.tbSetState(otb, w.tbExitState(t.TB.Other))
			} else {
				w.tbSetState(otb, rail.SignalStateGreen)
				w.tbSetState(tb, w.tbExitState(req.Tile))
			}
		} else {
			tb.WasEntrance = tb.SimEntrance
			otb.WasEntrance = otb.SimEntrance
			tb.SimEntrance, tb.SimExit = true, true
			otb.SimEntrance, otb.SimExit = true, true
			w.tbSetState(tb, rail.SignalStateGreen)
			w.tbSetState(otb, rail.SignalStateGreen)
		}
		w.addSignalCount(req.Company, tbSignalCount(tb)-oldCount)
		w.afterMutate(req.Tile, freed)
		w.afterMutate(t.TB.Other, nil)
	}
	return cost, nil
}

// tbConvert changes variant/style (full clear+rebuild cost) or only the
// logical type (free).
func (w *World) tbConvert(t *Tile, tb *TunnelBridgeEnd, ot *Tile, otb *TunnelBridgeEnd, req *CmdReq, phase Phase) (Cost, error) {
	newVariant := req.Signal.Variant
	newStyle := req.Signal.Style
	if err := w.tbStyleRoleCheck(newStyle, tb.SimEntrance, tb.SimExit); err != nil {
		return 0, err
	}
	if tb.Bidirectional() && w.Cats.Style(newStyle).NoBidirectional {
		return 0, errCode(protocol.ErrUnsuitableSignal, "style excluded from bidirectional use")
	}
	newPBS := req.Signal.Type.IsPBS()
	if tb.Bidirectional() && !newPBS {
		return 0, errCode(protocol.ErrUnsuitableSignal, "bidirectional needs path signals")
	}

	physical := newVariant != tb.Variant || newStyle != tb.Style
	var cost Cost
	if physical {
		cost = Cost(w.Tun.Prices.BuildSignal) * Cost(tbSignalCount(tb))
	} else if newPBS == tb.PBS {
		return 0, errAlreadyBuilt()
	}

	if phase == PhaseCommit {
		for _, e := range []*TunnelBridgeEnd{tb, otb} {
			e.Variant = newVariant
			e.Style = newStyle
			e.PBS = newPBS
		}
		w.afterMutate(req.Tile, nil)
		w.afterMutate(t.TB.Other, nil)
	}
	return cost, nil
}

// tbSignalSides is the per-side entry used by the signal autofill: it
// requests "a signal facing in" and/or "a signal facing out" at this
// head. Both present is a no-op; exactly one reconfigures the pair
// one-way in that direction.
func (w *World) tbSignalSides(req *CmdReq, wantIn, wantOut bool, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil || t.TB == nil {
		return 0, errNoTrack()
	}
	tb := t.TB
	if wantIn && wantOut {
		if tb.Bidirectional() {
			return 0, errAlreadyBuilt()
		}
		r := *req
		r.Opts.PermitBidirectional = true
		if !tb.Simulated() {
			return w.cmdBuildSignal(&r, phase)
		}
		return w.buildTunnelBridgeSignal(t, &r, phase)
	}
	// One direction wanted: entrance at this head iff the signal faces
	// out of the wormhole here.
	wantEntrance := wantOut
	if tb.Simulated() && !tb.Bidirectional() && tb.SimEntrance == wantEntrance {
		return 0, errAlreadyBuilt()
	}
	if !tb.Simulated() {
		return w.cmdBuildSignal(req, phase)
	}
	return w.tbReverseTo(t, req, wantEntrance, phase)
}

func (w *World) tbReverseTo(t *Tile, req *CmdReq, wantEntrance bool, phase Phase) (Cost, error) {
	tb := t.TB
	if !tb.Bidirectional() && tb.SimEntrance == wantEntrance {
		return 0, errAlreadyBuilt()
	}
	return w.buildTunnelBridgeSignal(t, req, phase)
}

func (w *World) removeTunnelBridgeSignal(t *Tile, req *CmdReq, phase Phase) (Cost, error) {
	tb, _, otb, err := w.tbPair(t, req)
	if err != nil {
		return 0, err
	}
	if !tb.Simulated() {
		return 0, errCode(protocol.ErrNoSignals, "there are no signals")
	}
	wormTrack := tb.Dir.Axis()
	if w.ProgramAt(SignalRef{Tile: req.Tile, Track: wormTrack}) != nil && !req.Opts.Ctrl {
		return 0, errCode(protocol.ErrRestrictedSignal, "restricted signal")
	}
	count := tbSignalCount(tb)
	cost := Cost(w.Tun.Prices.RemoveSignal) * Cost(count)

	freed, err := w.tbReservationGuard(req.Tile, t.TB.Other, phase)
	if err != nil {
		return 0, err
	}

	if phase == PhaseCommit {
		for _, e := range []*TunnelBridgeEnd{tb, otb} {
			e.SimEntrance, e.SimExit = false, false
			e.WasEntrance = false
			e.PBS = false
			e.Spacing = 0
			e.State = rail.SignalStateRed
			e.Aspect = 0
			e.SpecialProp = false
		}
		w.dropProgram(SignalRef{Tile: req.Tile, Track: wormTrack})
		w.dropProgram(SignalRef{Tile: t.TB.Other, Track: wormTrack})
		w.addSignalCount(req.Company, -count)
		w.afterMutate(req.Tile, freed)
		w.afterMutate(t.TB.Other, nil)
	}
	return cost, nil
}
