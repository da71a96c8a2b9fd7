package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// styleCheck rejects a type/variant pair the style set does not support.
func (w *World) styleCheck(style uint8, st rail.SignalType, v rail.SignalVariant) error {
	s := w.Cats.Style(style)
	if !s.AllowsType(st) || !s.AllowsVariant(v) {
		return errCode(protocol.ErrUnsuitableSignal, "unsuitable signal type")
	}
	return nil
}

// signalTileCheck validates the common preconditions of every plain
// signal command: rail tile, owned, track present, no junction.
func (w *World) signalTileCheck(t *Tile, req *CmdReq) error {
	if t.Kind != KindRail {
		return errNoTrack()
	}
	if t.Owner != req.Company {
		return errOwnedByOther()
	}
	if !t.TrackBits.Has(req.Track) {
		return errNoTrack()
	}
	if t.TrackBits.Overlap() {
		return errNoTrack()
	}
	return nil
}

// initialSignalState: path signals start red and turn green only when
// the track is reserved with no vehicle standing on it; other types are
// computed externally and start open.
func (w *World) initialSignalState(c TileCoord, track rail.Track, st rail.SignalType) rail.SignalState {
	if !st.IsPBS() {
		return rail.SignalStateGreen
	}
	t := w.tile(c)
	if t.Reserved.Has(track) && w.trainOnTile(c, track.Bit()) == nil {
		return rail.SignalStateGreen
	}
	return rail.SignalStateRed
}

// signalAspect derives the displayed aspect from a two-state signal
// state: red shows 0, green shows the widest aspect the tuning allows.
// Without multi-aspect signalling green is plain two-state.
func (w *World) signalAspect(s rail.SignalState) uint8 {
	if s == rail.SignalStateRed {
		return 0
	}
	if w.Tun.MultiAspectEnabled {
		return uint8(w.Tun.MaxSignalAspect)
	}
	return 1
}

func (w *World) cmdBuildSignal(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if t.Kind == KindTunnelBridge {
		return w.buildTunnelBridgeSignal(t, req, phase)
	}
	if err := w.signalTileCheck(t, req); err != nil {
		return 0, err
	}
	if err := w.checkReservedChange(req.Tile, req.Track.Bit()); err != nil {
		return 0, err
	}

	slot := &t.Signals[req.Track]
	ref := SignalRef{Tile: req.Tile, Track: req.Track}

	if slot.Present == 0 {
		return w.buildNewSignal(t, slot, req, phase)
	}
	if req.Opts.Convert {
		return w.convertSignal(t, slot, req, phase)
	}
	if req.Opts.Ctrl {
		return w.cycleSignalType(t, slot, ref, req, phase)
	}
	return w.cycleSignalSide(t, slot, ref, req, phase)
}

func (w *World) buildNewSignal(t *Tile, slot *TrackSignal, req *CmdReq, phase Phase) (Cost, error) {
	st := req.Signal.Type
	variant := req.Signal.Variant
	if t.HasSignals {
		// While any signal stands on the tile its variant memory wins.
		variant = t.SignalVariant
	}
	if err := w.styleCheck(req.Signal.Style, st, variant); err != nil {
		return 0, err
	}
	// Classic signals default to both faces; path signals default to a
	// single face because reversing one is cheap and common.
	present := SideBoth
	if st.IsPBS() {
		present = SideAlong
	}
	cost := Cost(w.Tun.Prices.BuildSignal) * Cost(int(present&1)+int(present>>1&1))

	if phase == PhaseCommit {
		freed := w.releaseReservedChange(req.Tile, req.Track.Bit())
		w.addSignalCount(req.Company, -t.SignalBitCount())
		state := w.initialSignalState(req.Tile, req.Track, st)
		slot.Present = present
		slot.Sig = rail.Signal{
			Type:    st,
			Variant: variant,
			Style:   req.Signal.Style,
			State:   state,
			Aspect:  w.signalAspect(state),
		}
		t.HasSignals = true
		t.SignalVariant = variant
		w.addSignalCount(req.Company, t.SignalBitCount())
		w.afterMutate(req.Tile, freed)
	}
	return cost, nil
}

func (w *World) convertSignal(t *Tile, slot *TrackSignal, req *CmdReq, phase Phase) (Cost, error) {
	newVariant := req.Signal.Variant
	newStyle := req.Signal.Style
	if req.Opts.Ctrl {
		// Ctrl+convert toggles the variant only.
		if slot.Sig.Variant == rail.SignalElectric {
			newVariant = rail.SignalSemaphore
		} else {
			newVariant = rail.SignalElectric
		}
		newStyle = slot.Sig.Style
	}
	if newVariant == slot.Sig.Variant && newStyle == slot.Sig.Style {
		return 0, errAlreadyBuilt()
	}
	if err := w.styleCheck(newStyle, slot.Sig.Type, newVariant); err != nil {
		return 0, err
	}
	cost := Cost(w.Tun.Prices.BuildSignal)

	if phase == PhaseCommit {
		slot.Sig.Variant = newVariant
		slot.Sig.Style = newStyle
		t.SignalVariant = newVariant
		w.afterMutate(req.Tile, nil)
	}
	return cost, nil
}

func (w *World) cycleSignalType(t *Tile, slot *TrackSignal, ref SignalRef, req *CmdReq, phase Phase) (Cost, error) {
	group := rail.CycleClassic
	if w.Cats.Style(slot.Sig.Style).AllowsType(rail.SignalProg) {
		group = rail.CycleAll
	}
	// Walk the ordering until a type the style supports comes up.
	next := rail.NextSignalType(slot.Sig.Type, group)
	for next != slot.Sig.Type && !w.Cats.Style(slot.Sig.Style).AllowsType(next) {
		next = rail.NextSignalType(next, group)
	}
	if next == slot.Sig.Type {
		return 0, errAlreadyBuilt()
	}

	if phase == PhaseCommit {
		// Programs are keyed to the programmable type; they do not
		// survive a transition away from it.
		if slot.Sig.Type == rail.SignalProg {
			w.dropProgram(ref)
		}
		wasPBS := slot.Sig.Type.IsPBS()
		slot.Sig.Type = next
		if wasPBS != next.IsPBS() {
			slot.Sig.State = w.initialSignalState(req.Tile, req.Track, next)
			slot.Sig.Aspect = w.signalAspect(slot.Sig.State)
		}
		w.afterMutate(req.Tile, nil)
	}
	return 0, nil
}

func (w *World) cycleSignalSide(t *Tile, slot *TrackSignal, ref SignalRef, req *CmdReq, phase Phase) (Cost, error) {
	var next uint8
	switch slot.Present {
	case SideBoth:
		next = SideAlong
	case SideAlong:
		next = SideAgainst
	default:
		next = SideBoth
	}

	if phase == PhaseCommit {
		w.addSignalCount(req.Company, -t.SignalBitCount())
		slot.Present = next
		w.addSignalCount(req.Company, t.SignalBitCount())
		w.invalidateProgramSides(ref, next)
		w.afterMutate(req.Tile, nil)
	}
	return 0, nil
}

func (w *World) cmdRemoveSignal(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if t.Kind == KindTunnelBridge {
		return w.removeTunnelBridgeSignal(t, req, phase)
	}
	if t.Kind != KindRail || !t.TrackBits.Has(req.Track) {
		return 0, errNoTrack()
	}
	if t.Owner != req.Company {
		return 0, errOwnedByOther()
	}
	slot := &t.Signals[req.Track]
	if slot.Present == 0 {
		return 0, errCode(protocol.ErrNoSignals, "there are no signals")
	}
	if w.ProgramAt(SignalRef{Tile: req.Tile, Track: req.Track}) != nil && !req.Opts.Ctrl {
		return 0, errCode(protocol.ErrRestrictedSignal, "restricted signal")
	}
	if err := w.checkReservedChange(req.Tile, req.Track.Bit()); err != nil {
		return 0, err
	}
	cost := Cost(w.Tun.Prices.RemoveSignal)

	if phase == PhaseCommit {
		freed := w.releaseReservedChange(req.Tile, req.Track.Bit())
		w.addSignalCount(req.Company, -t.SignalBitCount())
		*slot = TrackSignal{}
		w.dropProgram(SignalRef{Tile: req.Tile, Track: req.Track})
		t.refreshHasSignals()
		w.addSignalCount(req.Company, t.SignalBitCount())
		w.afterMutate(req.Tile, freed)
	}
	return cost, nil
}
