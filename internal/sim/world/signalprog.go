package world

import "railgrid.dev/internal/sim/rail"

// SignalRef is the stable key of one signal attachment.
type SignalRef struct {
	Tile  TileCoord
	Track rail.Track
}

// SignalProgram is an attached routing-restriction/program blob. The
// core treats the body as opaque; ownership follows the signal: type
// transitions and removals decide to keep or drop it.
type SignalProgram struct {
	Owner uint8
	Body  string

	// Sides the program references; a side-cycle that removes one of
	// them invalidates the program.
	Sides uint8
}

// AttachProgram stores a program for a signal. Replaces any previous
// program at the same ref.
func (w *World) AttachProgram(ref SignalRef, p *SignalProgram) {
	w.programs[ref] = p
}

// ProgramAt returns the program attached at ref, or nil.
func (w *World) ProgramAt(ref SignalRef) *SignalProgram {
	return w.programs[ref]
}

func (w *World) dropProgram(ref SignalRef) {
	delete(w.programs, ref)
}

// dropProgramsOnTile clears program state for every track of a tile,
// used when the tile's signals are stripped wholesale.
func (w *World) dropProgramsOnTile(c TileCoord) {
	for t := rail.TrackX; t <= rail.TrackRight; t++ {
		delete(w.programs, SignalRef{Tile: c, Track: t})
	}
}

// invalidateProgramSides drops a program whose referenced sides are no
// longer present after a side-cycle.
func (w *World) invalidateProgramSides(ref SignalRef, present uint8) {
	p := w.programs[ref]
	if p == nil {
		return
	}
	if p.Sides&^present != 0 {
		delete(w.programs, ref)
	}
}
