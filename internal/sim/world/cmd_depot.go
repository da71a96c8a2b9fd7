package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// cmdBuildDepot builds a train depot whose exit faces req.Track's low
// direction; the wire form carries the exit direction in Track as one
// of X (NE), Y (SE) and their companions via Opts.Ctrl for the reverse.
func (w *World) cmdBuildDepot(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if !w.Cats.RailTypes.ValidType(req.RailType) {
		return 0, errCode(protocol.ErrBadRequest, "bad rail type")
	}
	if t.Kind != KindClear {
		return 0, errImpossibleCombination()
	}
	if t.Owner != NoCompany && t.Owner != req.Company {
		return 0, errCode(protocol.ErrAreaOwnedByOther, "area owned by another company")
	}
	dir, err := depotDir(req)
	if err != nil {
		return 0, err
	}
	bit := dir.Axis().Bit()
	fc, err := w.foundationDelta(t, rail.TrackBitsNone, bit)
	if err != nil {
		return 0, err
	}
	cost := Cost(w.Tun.Prices.BuildDepot) + fc

	if phase == PhaseCommit {
		t.Kind = KindDepot
		t.Owner = req.Company
		t.DepotDir = dir
		t.TrackBits = bit
		t.Rail = SingleRail(req.RailType)
		w.updateRailPieces(req.Company, rail.TrackBitsNone, bit, RailPayload{}, t.Rail)
		w.afterMutate(req.Tile, nil)
	}
	return cost, nil
}

func depotDir(req *CmdReq) (DiagDir, error) {
	switch req.Track {
	case rail.TrackX:
		if req.Opts.Ctrl {
			return DirSW, nil
		}
		return DirNE, nil
	case rail.TrackY:
		if req.Opts.Ctrl {
			return DirNW, nil
		}
		return DirSE, nil
	}
	return 0, errCode(protocol.ErrBadRequest, "depot exit must face a tile edge")
}

func (w *World) cmdRemoveDepot(req *CmdReq, phase Phase) (Cost, error) {
	t := w.tile(req.Tile)
	if t == nil {
		return 0, errBadTile()
	}
	if t.Kind != KindDepot {
		return 0, errNoTrack()
	}
	if t.Owner != req.Company {
		return 0, errOwnedByOther()
	}
	if err := w.checkReservedChange(req.Tile, t.TrackBits); err != nil {
		return 0, err
	}
	cost := Cost(w.Tun.Prices.RemoveDepot)

	if phase == PhaseCommit {
		freed := w.releaseReservedChange(req.Tile, t.TrackBits)
		w.updateRailPieces(req.Company, t.TrackBits, rail.TrackBitsNone, t.Rail, RailPayload{})
		t.Kind = KindClear
		t.Owner = NoCompany
		t.TrackBits = 0
		t.Rail = RailPayload{}
		w.afterMutate(req.Tile, freed)
	}
	return cost, nil
}
