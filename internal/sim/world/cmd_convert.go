package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// convertTile converts every rail type on one tile to `to`. Tunnel and
// bridge pairs convert atomically: the call on either head prices and
// mutates both plus the wormhole, and reports the far head through
// `also` so area/line walkers do not process it twice.
func (w *World) convertTile(c TileCoord, to rail.RailType, company uint8, phase Phase) (cost Cost, also *TileCoord, err error) {
	t := w.tile(c)
	if t == nil {
		return 0, nil, errBadTile()
	}
	if !t.HasRail() {
		return 0, nil, errNoTrack()
	}
	if t.Owner != company {
		return 0, nil, errOwnedByOther()
	}

	allSame := true
	for _, rt := range t.Rail.Types() {
		if rt != to {
			allSame = false
		}
	}
	if allSame {
		// No-op conversion: never charges, never touches reservations.
		return 0, nil, errAlreadyBuilt()
	}

	bits := t.ActiveTrackBits()

	// A train standing on the tile that loses power under the new type
	// blocks the conversion outright.
	if tr := w.unpoweredTrainOn(c, bits, to); tr != nil {
		return 0, nil, errTrainInWay()
	}
	// Reserved-but-absent trains that lose power are detoured through
	// the coordinator instead.
	needRelease := false
	if t.Reserved&bits != 0 {
		for _, track := range (t.Reserved & bits).Tracks() {
			tr := w.trains[w.reservedBy[resKey{c, track}]]
			if tr == nil {
				continue
			}
			if !w.Cats.RailTypes.HasPower(to, tr.RailType) {
				needRelease = true
				if err := w.pathfinder.MayModify(tr); err != nil {
					return 0, nil, errCode(CodeOf(err), err.Error())
				}
			}
		}
	}

	pieces := pieceCount(bits)
	if t.Kind == KindTunnelBridge && t.TB != nil {
		// Both heads plus the wormhole length.
		pieces = int64(t.TB.Length + 2)
		if w.Tun.RealisticBraking && w.tile(t.TB.Other) != nil && w.tile(t.TB.Other).Reserved != 0 {
			if err := w.checkReservedChange(t.TB.Other, w.tile(t.TB.Other).ActiveTrackBits()); err != nil {
				return 0, nil, err
			}
		}
		other := t.TB.Other
		also = &other
	}
	cost = Cost(w.Tun.Prices.ConvertRail) * Cost(pieces)

	if phase == PhaseCommit {
		var freed []TrainID
		if needRelease {
			freed = w.releaseReservedChange(c, bits)
		}
		if t.Kind == KindTunnelBridge && t.TB != nil {
			// The pair was accounted as length+2 pieces at placement;
			// move the whole block between types once.
			if co := w.Company(company); co != nil {
				co.RailPieces[t.Rail.Primary()] -= int64(t.TB.Length + 2)
				co.RailPieces[to] += int64(t.TB.Length + 2)
			}
			t.Rail = SingleRail(to)
			if o := w.tile(t.TB.Other); o != nil {
				o.Rail = SingleRail(to)
				w.afterMutate(t.TB.Other, nil)
			}
		} else {
			oldPayload := t.Rail
			t.Rail = SingleRail(to)
			w.updateRailPieces(company, bits, bits, oldPayload, t.Rail)
		}
		w.afterMutate(c, freed)
	}
	return cost, also, nil
}

// runConvert walks tiles from next(), applying drag-style error rules:
// no-op tiles are skipped, ownership failures abort, anything else ends
// the walk early but keeps prior successes.
func (w *World) runConvert(req *CmdReq, phase Phase, next func() (TileCoord, bool)) (Cost, error) {
	var total Cost
	converted := 0
	var lastErr error
	skip := map[TileCoord]bool{}

	for {
		c, ok := next()
		if !ok {
			break
		}
		if skip[c] {
			continue
		}
		cost, also, err := w.convertTile(c, req.RailType, req.Company, phase)
		if also != nil {
			skip[*also] = true
		}
		if err != nil {
			if IsCode(err, protocol.ErrAlreadyBuilt) || IsCode(err, protocol.ErrNoTrack) {
				continue
			}
			if IsCode(err, protocol.ErrOwnedByOther) || IsCode(err, protocol.ErrAreaOwnedByOther) {
				return 0, err
			}
			lastErr = err
			break
		}
		total += cost
		converted++
	}

	if converted == 0 {
		if lastErr != nil {
			return 0, lastErr
		}
		return 0, errAlreadyBuilt()
	}
	// Partial success keeps the cost of the converted tiles and carries
	// the obstruction for display.
	req.Warn = lastErr
	return total, nil
}

func (w *World) cmdConvertRail(req *CmdReq, phase Phase) (Cost, error) {
	start, end := req.Tile, req.Tile
	if req.HasEnd {
		end = req.End
	}
	x0, x1 := minInt(start.X, end.X), maxInt(start.X, end.X)
	y0, y1 := minInt(start.Y, end.Y), maxInt(start.Y, end.Y)

	x, y := x0, y0
	next := func() (TileCoord, bool) {
		if y > y1 {
			return TileCoord{}, false
		}
		c := TileCoord{x, y}
		x++
		if x > x1 {
			x = x0
			y++
		}
		return c, true
	}
	return w.runConvert(req, phase, next)
}

func (w *World) cmdConvertRailLine(req *CmdReq, phase Phase) (Cost, error) {
	if !req.HasEnd {
		return w.runConvert(req, phase, singleTileIter(req.Tile))
	}
	walk, err := lineWalker(req.Tile, req.End, req.Track)
	if err != nil {
		return 0, err
	}
	return w.runConvert(req, phase, func() (TileCoord, bool) {
		step, ok := walk()
		return step.tile, ok
	})
}

func singleTileIter(c TileCoord) func() (TileCoord, bool) {
	done := false
	return func() (TileCoord, bool) {
		if done {
			return TileCoord{}, false
		}
		done = true
		return c, true
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
