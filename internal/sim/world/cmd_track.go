package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// foundationDelta prices the foundation work between two layouts of the
// same tile. Illegal new layouts surface as E_LAND_SLOPED_WRONG. The
// cost is the flat foundation price when the category (none vs any
// foundation) changes, zero otherwise; barren and water-edge ground
// makes the work more expensive.
func (w *World) foundationDelta(t *Tile, oldBits, newBits rail.TrackBits) (Cost, error) {
	newF := rail.FoundationFor(t.Slope, newBits)
	if !newF.Valid() {
		return 0, errCode(protocol.ErrLandSlopedWrong, "land sloped in wrong direction")
	}
	oldF := rail.FoundationFor(t.Slope, oldBits)
	if (oldF == rail.FoundationNone) == (newF == rail.FoundationNone) {
		return 0, nil
	}
	c := Cost(w.Tun.Prices.Foundation)
	switch t.Ground {
	case GroundBarren:
		c += Cost(w.Tun.Prices.ClearGround)
	case GroundWaterEdge:
		c += 2 * Cost(w.Tun.Prices.ClearGround)
	}
	return c, nil
}

// resolveRailType decides the single rail type an overlapping tile ends
// up with: keep the pre-existing type when the existing track powers
// the requested one, else convert to the requested type when that
// direction has power, else the combination is impossible. convert
// lists the existing types that must change.
func (w *World) resolveRailType(p RailPayload, requested rail.RailType) (final rail.RailType, convert []rail.RailType, err error) {
	reg := w.Cats.RailTypes
	existing := p.Types()

	if len(existing) == 1 {
		e := existing[0]
		if e == requested || reg.HasPower(e, requested) {
			return e, nil, nil
		}
		if reg.HasPower(requested, e) {
			return requested, []rail.RailType{e}, nil
		}
		return rail.InvalidRailType, nil, errImpossibleCombination()
	}

	// Dual payload with two distinct types must unify to one.
	pri, sec := p.Primary(), p.Secondary()
	if reg.HasPower(pri, requested) && reg.HasPower(pri, sec) {
		return pri, []rail.RailType{sec}, nil
	}
	if reg.HasPower(sec, requested) && reg.HasPower(sec, pri) {
		return sec, []rail.RailType{pri}, nil
	}
	if reg.HasPower(requested, pri) && reg.HasPower(requested, sec) {
		return requested, []rail.RailType{pri, sec}, nil
	}
	return rail.InvalidRailType, nil, errImpossibleCombination()
}

func (w *World) cmdBuildTrack(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if req.Track > rail.TrackRight {
		return 0, errCode(protocol.ErrBadRequest, "bad track")
	}
	if !w.Cats.RailTypes.ValidType(req.RailType) {
		return 0, errCode(protocol.ErrBadRequest, "bad rail type")
	}
	bit := req.Track.Bit()

	switch t.Kind {
	case KindClear:
		return w.buildTrackOnClear(t, req, bit, phase)
	case KindRail:
		return w.buildTrackOnRail(t, req, bit, phase)
	default:
		return 0, errImpossibleCombination()
	}
}

func (w *World) buildTrackOnClear(t *Tile, req *CmdReq, bit rail.TrackBits, phase Phase) (Cost, error) {
	if t.Owner != NoCompany && t.Owner != req.Company {
		return 0, errCode(protocol.ErrAreaOwnedByOther, "area owned by another company")
	}
	cost := Cost(w.Tun.Prices.BuildTrack)
	fc, err := w.foundationDelta(t, rail.TrackBitsNone, bit)
	if err != nil {
		return 0, err
	}
	cost += fc

	if phase == PhaseCommit {
		t.Kind = KindRail
		t.Owner = req.Company
		t.TrackBits = bit
		t.Rail = SingleRail(req.RailType)
		w.updateRailPieces(req.Company, rail.TrackBitsNone, bit, RailPayload{}, t.Rail)
		w.afterMutate(req.Tile, nil)
	}
	return cost, nil
}

func (w *World) buildTrackOnRail(t *Tile, req *CmdReq, bit rail.TrackBits, phase Phase) (Cost, error) {
	if t.Owner != req.Company {
		return 0, errOwnedByOther()
	}
	reg := w.Cats.RailTypes
	present := t.TrackBits
	future := present | bit

	// Nothing new: report already-built when the standing type is
	// compatible with the requested one, impossible otherwise. The drag
	// helpers treat these two differently.
	if future == present {
		existing := t.Rail.TypeFor(req.Track)
		if existing == req.RailType || reg.Compatible(existing, req.RailType) {
			return 0, errAlreadyBuilt()
		}
		return 0, errImpossibleCombination()
	}

	fc, err := w.foundationDelta(t, present, future)
	if err != nil {
		return 0, err
	}
	cost := Cost(w.Tun.Prices.BuildTrack) + fc

	// The horizontal/vertical pairs keep independent rail types.
	dualOK := !w.Tun.DisableDualRailTypes && !req.Opts.NoDualRailType
	if (future == rail.TrackBitsHorz || future == rail.TrackBitsVert) && dualOK {
		if phase == PhaseCommit {
			oldBits, oldPayload := t.TrackBits, t.Rail
			existingTrack := present.First()
			existingType := t.Rail.TypeFor(existingTrack)
			t.TrackBits = future
			t.Rail = dualFor(existingTrack, existingType, req.RailType)
			w.updateRailPieces(req.Company, oldBits, future, oldPayload, t.Rail)
			w.afterMutate(req.Tile, nil)
		}
		return cost, nil
	}

	// Overlapping combination: signals block it, and the whole tile
	// must resolve to a single rail type.
	sigCost := Cost(0)
	if t.HasSignals {
		if !req.Opts.AutoRemoveSignals {
			return 0, errCode(protocol.ErrMustRemoveSignals, "track with signals must be cleared first")
		}
		// Restricted signals are never stripped implicitly; their
		// removal must be an explicit remove-signal command.
		for _, tr := range present.Tracks() {
			if t.Signals[tr].Present == 0 {
				continue
			}
			if w.ProgramAt(SignalRef{Tile: req.Tile, Track: tr}) != nil {
				return 0, errCode(protocol.ErrRestrictedSignal, "restricted signal")
			}
		}
		sigCost = Cost(w.Tun.Prices.RemoveSignal) * Cost(t.SignalBitCount())
	}
	final, convertFrom, err := w.resolveRailType(t.Rail, req.RailType)
	if err != nil {
		return 0, err
	}
	convCost := Cost(0)
	if len(convertFrom) > 0 {
		// Conversion under the new layout is a sub-operation: it must
		// be safe for any train on or reserved into the tile.
		if tr := w.unpoweredTrainOn(req.Tile, present, final); tr != nil {
			return 0, errTrainInWay()
		}
		if err := w.checkReservedChange(req.Tile, present); err != nil {
			return 0, err
		}
		convCost = Cost(w.Tun.Prices.ConvertRail) * Cost(pieceCount(present))
	}
	cost += sigCost + convCost

	if phase == PhaseCommit {
		var freed []TrainID
		if len(convertFrom) > 0 {
			freed = w.releaseReservedChange(req.Tile, present)
		}
		oldBits, oldPayload := t.TrackBits, t.Rail
		if t.HasSignals {
			w.addSignalCount(req.Company, -t.SignalBitCount())
			w.dropProgramsOnTile(req.Tile)
			t.ClearSignals()
		}
		t.TrackBits = future
		t.Rail = SingleRail(final)
		w.updateRailPieces(req.Company, oldBits, future, oldPayload, t.Rail)
		w.afterMutate(req.Tile, freed)
	}
	return cost, nil
}

// dualFor builds the dual payload for a horz/vert pair, keeping the
// pre-existing half's type on its own side.
func dualFor(existingTrack rail.Track, existingType, newType rail.RailType) RailPayload {
	if existingTrack == rail.TrackUpper || existingTrack == rail.TrackLeft {
		return DualRail(existingType, newType)
	}
	return DualRail(newType, existingType)
}

func (w *World) cmdRemoveTrack(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if t.Kind != KindRail {
		return 0, errNoTrack()
	}
	if t.Owner != req.Company {
		return 0, errOwnedByOther()
	}
	bit := req.Track.Bit()
	if !t.TrackBits.Has(req.Track) {
		return 0, errNoTrack()
	}
	if err := w.checkReservedChange(req.Tile, bit); err != nil {
		return 0, err
	}

	cost := Cost(w.Tun.Prices.RemoveTrack)
	sigBits := 0
	if p := t.Signals[req.Track].Present; p != 0 {
		sigBits = int(p&1) + int(p>>1&1)
		cost += Cost(w.Tun.Prices.RemoveSignal) * Cost(sigBits)
	}

	if phase == PhaseCommit {
		freed := w.releaseReservedChange(req.Tile, bit)
		oldBits, oldPayload := t.TrackBits, t.Rail
		rest := t.TrackBits &^ bit

		if sigBits > 0 {
			t.Signals[req.Track] = TrackSignal{}
			w.dropProgram(SignalRef{Tile: req.Tile, Track: req.Track})
			w.addSignalCount(req.Company, -sigBits)
			t.refreshHasSignals()
		}

		t.TrackBits = rest
		if rest == rail.TrackBitsNone {
			t.Kind = KindClear
			t.Owner = NoCompany
			t.Rail = RailPayload{}
			w.dropProgramsOnTile(req.Tile)
			t.ClearSignals()
		} else if oldPayload.IsDual() {
			t.Rail = SingleRail(oldPayload.TypeFor(rest.First()))
		}
		w.updateRailPieces(req.Company, oldBits, rest, oldPayload, t.Rail)
		w.afterMutate(req.Tile, freed)
	}
	return cost, nil
}
