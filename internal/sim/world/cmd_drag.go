package world

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

type lineStep struct {
	tile  TileCoord
	track rail.Track
}

func sign(v int) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// lineWalker yields the tile/track steps of a straight or autorail
// diagonal drag from start to end. Diagonal drags alternate the two
// corner tracks of a pair, zigzagging one axis at a time.
func lineWalker(start, end TileCoord, track rail.Track) (func() (lineStep, bool), error) {
	dx, dy := end.X-start.X, end.Y-start.Y
	sx, sy := sign(dx), sign(dy)

	switch track {
	case rail.TrackX:
		if dy != 0 {
			return nil, errCode(protocol.ErrBadRequest, "X drag must stay on one row")
		}
		if sx == 0 {
			sx = 1
		}
	case rail.TrackY:
		if dx != 0 {
			return nil, errCode(protocol.ErrBadRequest, "Y drag must stay on one column")
		}
		if sy == 0 {
			sy = 1
		}
	case rail.TrackUpper, rail.TrackLower, rail.TrackLeft, rail.TrackRight:
		if absInt(dx) != absInt(dy) && !(dx == 0 && dy == 0) {
			return nil, errCode(protocol.ErrBadRequest, "diagonal drag must be square")
		}
		if sx == 0 {
			sx = 1
		}
		if sy == 0 {
			sy = 1
		}
	default:
		return nil, errCode(protocol.ErrBadRequest, "bad track")
	}

	total := absInt(dx) + absInt(dy) + 1
	cur := start
	curTrack := track
	n := 0
	return func() (lineStep, bool) {
		if n >= total {
			return lineStep{}, false
		}
		step := lineStep{tile: cur, track: curTrack}
		n++
		switch curTrack {
		case rail.TrackX:
			cur.X += sx
		case rail.TrackY:
			cur.Y += sy
		case rail.TrackUpper:
			cur.X += sx
			curTrack = rail.TrackLower
		case rail.TrackLower:
			cur.Y += sy
			curTrack = rail.TrackUpper
		case rail.TrackLeft:
			cur.X += sx
			curTrack = rail.TrackRight
		case rail.TrackRight:
			cur.Y += sy
			curTrack = rail.TrackLeft
		}
		return step, true
	}, nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// runLine applies one single-tile handler along a drag, with the drag
// recovery rules: already-built class errors are swallowed, ownership
// errors abort the whole drag, anything else ends it early keeping the
// cost already gathered.
func (w *World) runLine(req *CmdReq, phase Phase, swallow []string, single func(*CmdReq, Phase) (Cost, error)) (Cost, error) {
	if !req.HasEnd {
		return single(req, phase)
	}
	walk, err := lineWalker(req.Tile, req.End, req.Track)
	if err != nil {
		return 0, err
	}

	var total Cost
	succeeded := 0
	steps := 0
	var lastErr error

	for {
		step, ok := walk()
		if !ok {
			break
		}
		steps++
		if steps > w.Tun.MaxDragLength {
			break
		}
		sub := *req
		sub.Tile = step.tile
		sub.HasEnd = false
		sub.Track = step.track
		cost, err := single(&sub, phase)
		if err != nil {
			code := CodeOf(err)
			if containsCode(swallow, code) {
				continue
			}
			if code == protocol.ErrOwnedByOther || code == protocol.ErrAreaOwnedByOther {
				return 0, err
			}
			lastErr = err
			break
		}
		total += cost
		succeeded++
	}

	if succeeded == 0 {
		if lastErr != nil {
			return 0, lastErr
		}
		return 0, errAlreadyBuilt()
	}
	req.Warn = lastErr
	return total, nil
}

func containsCode(codes []string, c string) bool {
	for _, k := range codes {
		if k == c {
			return true
		}
	}
	return false
}

func (w *World) cmdBuildTrackLine(req *CmdReq, phase Phase) (Cost, error) {
	return w.runLine(req, phase,
		[]string{protocol.ErrAlreadyBuilt},
		w.cmdBuildTrack)
}

func (w *World) cmdRemoveTrackLine(req *CmdReq, phase Phase) (Cost, error) {
	return w.runLine(req, phase,
		[]string{protocol.ErrNoTrack, protocol.ErrAlreadyBuilt},
		w.cmdRemoveTrack)
}

// Track-edge connectivity: each track joins exactly two tile edges.
var trackEdges = [6][2]DiagDir{
	rail.TrackX:     {DirNE, DirSW},
	rail.TrackY:     {DirSE, DirNW},
	rail.TrackUpper: {DirNE, DirNW},
	rail.TrackLower: {DirSE, DirSW},
	rail.TrackLeft:  {DirNW, DirSW},
	rail.TrackRight: {DirNE, DirSE},
}

func trackHasEdge(t rail.Track, d DiagDir) bool {
	e := trackEdges[t]
	return e[0] == d || e[1] == d
}

func trackOtherEdge(t rail.Track, d DiagDir) DiagDir {
	e := trackEdges[t]
	if e[0] == d {
		return e[1]
	}
	return e[0]
}

// trackFromEdge finds the single track of a tile joined to the given
// entry edge; TrackInvalid means none or an ambiguous junction.
func trackFromEdge(bits rail.TrackBits, entry DiagDir) rail.Track {
	found := rail.TrackInvalid
	for _, t := range bits.Tracks() {
		if !trackHasEdge(t, entry) {
			continue
		}
		if found != rail.TrackInvalid {
			return rail.TrackInvalid
		}
		found = t
	}
	return found
}

// trackUnits is the signal-spacing weight of crossing a tile on the
// given track: diagonal tracks span the whole tile, corner tracks half.
func trackUnits(t rail.Track) int {
	if t == rail.TrackX || t == rail.TrackY {
		return 2
	}
	return 1
}

func (w *World) cmdBuildSignalLine(req *CmdReq, phase Phase) (Cost, error) {
	if !req.HasEnd {
		return w.cmdBuildSignal(req, phase)
	}
	return w.runSignalLine(req, phase, true)
}

func (w *World) cmdRemoveSignalLine(req *CmdReq, phase Phase) (Cost, error) {
	if !req.HasEnd {
		return w.cmdRemoveSignal(req, phase)
	}
	return w.runSignalLine(req, phase, false)
}

// runSignalLine follows the single non-junction track starting at
// req.Tile and builds (or removes) signals along it, every density*2
// spacing units when building, on every signalled tile when removing.
// The walk ends at a junction, at the end of track, when the run loops
// back to its start, at an already-signalled tile (building) or an
// unsignalled one (removing). Tunnels and bridges are actioned at the
// near head only; level crossings and stations pass through untouched.
func (w *World) runSignalLine(req *CmdReq, phase Phase, build bool) (Cost, error) {
	start := w.tile(req.Tile)
	if start == nil || !start.HasRail() || !start.ActiveTrackBits().Has(req.Track) {
		return 0, errNoTrack()
	}

	density := req.Signal.Density
	if density <= 0 {
		density = w.Tun.DefaultSignalDensity
	}
	threshold := density * 2

	cur := req.Tile
	curTrack := req.Track
	entry := signalLineEntryEdge(req)

	var total Cost
	succeeded := 0
	var lastErr error
	ctr := 0
	due := true // the start tile is always actioned when suitable
	skip := map[TileCoord]bool{}

	for steps := 0; steps <= w.Tun.MaxDragLength; steps++ {
		if steps > 0 && cur == req.Tile {
			break // looped back to the start
		}
		t := w.tile(cur)
		if t == nil {
			break
		}

		if skip[cur] {
			// Far head actioned together with its near head earlier in
			// the run; just pass through.
		} else if t.Kind == KindTunnelBridge && t.TB != nil {
			sub := signalLineSub(req, cur, t.TB.Dir.Axis())
			var cost Cost
			var err error
			if build {
				// Entering the wormhole here makes this head the
				// entrance: the signal faces out toward oncoming trains.
				cost, err = w.tbSignalSides(&sub, false, true, phase)
			} else {
				cost, err = w.cmdRemoveSignal(&sub, phase)
			}
			stop, abort := classifySignalLineErr(err, &lastErr)
			if abort {
				return 0, err
			}
			if stop {
				break
			}
			if err == nil {
				total += cost
				succeeded++
			}
			// Jump the wormhole; its far head was configured as part of
			// the pair and must not be actioned again.
			skip[t.TB.Other] = true
			cur = t.TB.Other.Step(t.TB.Dir)
			entry = t.TB.Dir.Reverse()
			ctr = 0
			due = false
			nt := w.tile(cur)
			if nt == nil {
				break
			}
			next := trackFromEdge(nt.ActiveTrackBits(), entry)
			if next == rail.TrackInvalid {
				break
			}
			curTrack = next
			continue
		} else if t.Kind == KindRail {
			if t.TrackBits.Overlap() {
				break // junction ends the run
			}
			slot := t.Signals[curTrack]
			if build {
				if slot.Present != 0 {
					if !req.Opts.SkipExisting {
						break
					}
					// Keep the existing signal and restart spacing from it.
					ctr = 0
					due = false
				} else if due {
					sub := signalLineSub(req, cur, curTrack)
					cost, err := w.cmdBuildSignal(&sub, phase)
					stop, abort := classifySignalLineErr(err, &lastErr)
					if abort {
						return 0, err
					}
					if stop {
						break
					}
					if err == nil {
						total += cost
						succeeded++
						ctr = 0
						due = false
					}
					// On a non-fatal refusal due stays set: the next
					// legal tile takes the signal instead.
				}
			} else {
				if slot.Present == 0 {
					break // unsignalled tile ends a removal pass
				}
				sub := signalLineSub(req, cur, curTrack)
				cost, err := w.cmdRemoveSignal(&sub, phase)
				stop, abort := classifySignalLineErr(err, &lastErr)
				if abort {
					return 0, err
				}
				if stop {
					break
				}
				if err == nil {
					total += cost
					succeeded++
				}
			}
		}
		// Crossings and stations carry plain track straight through and
		// never take signals.

		ctr += trackUnits(curTrack)
		if ctr >= threshold {
			due = true
		}

		exit := trackOtherEdge(curTrack, entry)
		cur = cur.Step(exit)
		entry = exit.Reverse()
		nt := w.tile(cur)
		if nt == nil {
			break
		}
		next := trackFromEdge(nt.ActiveTrackBits(), entry)
		if next == rail.TrackInvalid {
			break
		}
		curTrack = next
	}

	if succeeded == 0 {
		if lastErr != nil {
			return 0, lastErr
		}
		if build {
			return 0, errAlreadyBuilt()
		}
		return 0, errCode(protocol.ErrNoSignals, "there are no signals")
	}
	req.Warn = lastErr
	return total, nil
}

// signalLineEntryEdge picks the edge the run notionally entered the
// start tile through, so that it leaves toward the drag's end tile.
func signalLineEntryEdge(req *CmdReq) DiagDir {
	e := trackEdges[req.Track]
	a := req.Tile.Step(e[0])
	b := req.Tile.Step(e[1])
	da := absInt(a.X-req.End.X) + absInt(a.Y-req.End.Y)
	db := absInt(b.X-req.End.X) + absInt(b.Y-req.End.Y)
	if da <= db {
		return e[1] // leave through e[0]
	}
	return e[0]
}

func signalLineSub(req *CmdReq, c TileCoord, track rail.Track) CmdReq {
	sub := *req
	sub.Tile = c
	sub.HasEnd = false
	sub.Track = track
	sub.Opts.Ctrl = false
	sub.Opts.Convert = false
	return sub
}

// classifySignalLineErr sorts a per-tile failure into the drag rules:
// already-built and no-signal refusals are swallowed, ownership aborts
// the whole pass, anything else ends it keeping prior successes.
func classifySignalLineErr(err error, lastErr *error) (stop, abort bool) {
	if err == nil {
		return false, false
	}
	switch CodeOf(err) {
	case protocol.ErrAlreadyBuilt, protocol.ErrNoSignals:
		return false, false
	case protocol.ErrOwnedByOther, protocol.ErrAreaOwnedByOther:
		return false, true
	case protocol.ErrUnsuitableSignal:
		// Not legal here; the autofill skips forward instead of failing.
		return false, false
	default:
		*lastErr = err
		return true, false
	}
}
