package world

import (
	"fmt"

	"railgrid.dev/internal/protocol"
	"railgrid.dev/internal/sim/rail"
)

// Phase separates the two invocations of a command handler: validation
// computes cost with zero persistent mutation, commit re-validates and
// applies. Handlers are written as one function to keep the two paths
// from drifting apart.
type Phase uint8

const (
	PhaseValidate Phase = iota
	PhaseCommit
)

// Cost is the money a command charges.
type Cost int64

// CmdOptions carries the auxiliary booleans of the command surface.
type CmdOptions struct {
	AutoRemoveSignals   bool
	NoDualRailType      bool
	PermitBidirectional bool
	SkipExisting        bool
	Ctrl                bool
	Convert             bool
}

// SignalReq is the signal part of a command request.
type SignalReq struct {
	Type    rail.SignalType
	Variant rail.SignalVariant
	Style   uint8
	Density int
}

// CmdReq is the normalized in-process form of one command.
type CmdReq struct {
	Cmd     string
	Company uint8

	Tile   TileCoord
	End    TileCoord
	HasEnd bool

	Track    rail.Track
	RailType rail.RailType
	Signal   SignalReq
	Opts     CmdOptions

	// Warn is set by line/area handlers on partial success: the
	// obstruction that ended the walk early, reported alongside the
	// cost of the tiles that did succeed.
	Warn error
}

type cmdHandler func(w *World, req *CmdReq, phase Phase) (Cost, error)

var cmdDispatch = map[string]cmdHandler{
	protocol.CmdBuildTrack:       (*World).cmdBuildTrack,
	protocol.CmdRemoveTrack:      (*World).cmdRemoveTrack,
	protocol.CmdBuildTrackLine:   (*World).cmdBuildTrackLine,
	protocol.CmdRemoveTrackLine:  (*World).cmdRemoveTrackLine,
	protocol.CmdBuildDepot:       (*World).cmdBuildDepot,
	protocol.CmdRemoveDepot:      (*World).cmdRemoveDepot,
	protocol.CmdBuildSignal:      (*World).cmdBuildSignal,
	protocol.CmdRemoveSignal:     (*World).cmdRemoveSignal,
	protocol.CmdBuildSignalLine:  (*World).cmdBuildSignalLine,
	protocol.CmdRemoveSignalLine: (*World).cmdRemoveSignalLine,
	protocol.CmdConvertRail:      (*World).cmdConvertRail,
	protocol.CmdConvertRailLine:  (*World).cmdConvertRailLine,
}

var supportedCmds = []string{
	protocol.CmdBuildTrack,
	protocol.CmdRemoveTrack,
	protocol.CmdBuildTrackLine,
	protocol.CmdRemoveTrackLine,
	protocol.CmdBuildDepot,
	protocol.CmdRemoveDepot,
	protocol.CmdBuildSignal,
	protocol.CmdRemoveSignal,
	protocol.CmdBuildSignalLine,
	protocol.CmdRemoveSignalLine,
	protocol.CmdConvertRail,
	protocol.CmdConvertRailLine,
}

// ValidateDispatch checks the dispatch map covers exactly the supported
// command set. Called once at server startup.
func ValidateDispatch() error {
	allowed := make(map[string]struct{}, len(supportedCmds))
	for _, k := range supportedCmds {
		if _, dup := allowed[k]; dup {
			return fmt.Errorf("cmdDispatch: duplicate supported key %q", k)
		}
		allowed[k] = struct{}{}
	}
	if len(cmdDispatch) != len(allowed) {
		return fmt.Errorf("cmdDispatch size mismatch: got=%d want=%d", len(cmdDispatch), len(allowed))
	}
	for k := range cmdDispatch {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("cmdDispatch has unsupported key %q", k)
		}
	}
	return nil
}

// Exec runs one command through the two-phase protocol: validate, then
// (unless testOnly) commit on the same state and charge the company.
func (w *World) Exec(req *CmdReq, testOnly bool) (Cost, error) {
	if w.closed {
		return 0, errCode(protocol.ErrInternal, "world closed")
	}
	h := cmdDispatch[req.Cmd]
	if h == nil {
		return 0, errCode(protocol.ErrBadRequest, "unknown command "+req.Cmd)
	}
	req.Warn = nil
	co := w.Company(req.Company)
	if co == nil {
		return 0, errCode(protocol.ErrBadRequest, "no such company")
	}

	cost, err := h(w, req, PhaseValidate)
	if err != nil {
		return 0, err
	}
	if int64(cost) > co.Money {
		return 0, errCode(protocol.ErrNoFunds, "not enough cash")
	}
	if testOnly {
		return cost, nil
	}

	cost, err = h(w, req, PhaseCommit)
	if err != nil {
		// A failure first seen in commit must leave the tile untouched;
		// handlers mutate only after their last validation step.
		return 0, err
	}
	co.Money -= int64(cost)
	if w.AuditFn != nil {
		e := AuditEntry{
			Company: req.Company,
			Cmd:     req.Cmd,
			TileX:   req.Tile.X,
			TileY:   req.Tile.Y,
			Cost:    int64(cost),
		}
		if req.Warn != nil {
			e.Code = CodeOf(req.Warn)
		}
		w.AuditFn(e)
	}
	return cost, nil
}
