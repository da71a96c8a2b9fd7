package ws

import (
	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/rail"
	"railgrid.dev/internal/sim/world"
)

var trackNames = map[string]rail.Track{
	"X":     rail.TrackX,
	"Y":     rail.TrackY,
	"UPPER": rail.TrackUpper,
	"LOWER": rail.TrackLower,
	"LEFT":  rail.TrackLeft,
	"RIGHT": rail.TrackRight,
}

// NormalizeCmd turns a wire CmdMsg into the in-process request form,
// resolving track, rail type and signal names against the world's
// catalogs. Unknown names are protocol errors, not command errors.
func NormalizeCmd(w *world.World, m *protocol.CmdMsg) (*world.CmdReq, error) {
	req := &world.CmdReq{
		Cmd:      m.Cmd,
		Company:  m.Company,
		Tile:     world.TileCoord{X: m.Tile[0], Y: m.Tile[1]},
		RailType: rail.InvalidRailType,
	}
	if m.End != nil {
		req.End = world.TileCoord{X: m.End[0], Y: m.End[1]}
		req.HasEnd = true
	}

	if m.Track != "" {
		t, ok := trackNames[m.Track]
		if !ok {
			return nil, protoErr("unknown track " + m.Track)
		}
		req.Track = t
	}

	if m.RailType != "" {
		rt, ok := w.Cats.RailTypes.Lookup(m.RailType)
		if !ok {
			return nil, protoErr("unknown rail type " + m.RailType)
		}
		req.RailType = rt
	}

	req.Signal = world.SignalReq{Type: rail.SignalBlock, Variant: rail.SignalElectric}
	if m.Signal != nil {
		if m.Signal.SigType != "" {
			st, ok := catalogs.SignalTypeByName(m.Signal.SigType)
			if !ok {
				return nil, protoErr("unknown signal type " + m.Signal.SigType)
			}
			req.Signal.Type = st
		}
		switch m.Signal.Variant {
		case "", "ELECTRIC":
			req.Signal.Variant = rail.SignalElectric
		case "SEMAPHORE":
			req.Signal.Variant = rail.SignalSemaphore
		default:
			return nil, protoErr("unknown signal variant " + m.Signal.Variant)
		}
		req.Signal.Style = m.Signal.Style
		req.Signal.Density = m.Signal.Density
	}

	if m.Options != nil {
		req.Opts = world.CmdOptions{
			AutoRemoveSignals:   m.Options.AutoRemoveSignals,
			NoDualRailType:      m.Options.NoDualRailType,
			PermitBidirectional: m.Options.PermitBidirectional,
			SkipExisting:        m.Options.SkipExisting,
			Ctrl:                m.Options.Ctrl,
			Convert:             m.Options.Convert,
		}
	}
	return req, nil
}

func protoErr(msg string) error {
	return &world.CmdError{Code: protocol.ErrProtoBadRequest, Message: msg}
}
