package world

import (
	"fmt"

	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/rail"
	"railgrid.dev/internal/sim/tuning"
)

// Company tracks per-company funds and infrastructure counters.
type Company struct {
	ID    uint8
	Money int64

	// Rail pieces per rail type. Overlapping track on one tile counts
	// quadratically in the piece total.
	RailPieces map[rail.RailType]int64
	Signals    int64
}

// World is the process-wide shared state: the tile grid, companies,
// trains and the signal-program side-table. The command layer is the
// sole writer; everything else reads.
type World struct {
	Cfg  WorldConfig
	Cats *catalogs.Catalogs
	Tun  tuning.Tuning

	grid      *Grid
	companies []*Company

	trains     map[TrainID]*Train
	reservedBy map[resKey]TrainID

	programs map[SignalRef]*SignalProgram

	pathfinder Pathfinder

	// AuditFn, when set, receives one entry per committed command.
	AuditFn func(AuditEntry)

	closed bool
}

// AuditEntry is one committed command in the audit log.
type AuditEntry struct {
	Company uint8  `json:"company"`
	Cmd     string `json:"cmd"`
	TileX   int    `json:"tile_x"`
	TileY   int    `json:"tile_y"`
	Cost    int64  `json:"cost"`
	Code    string `json:"code,omitempty"`
}

// New creates a fresh world. The catalog's closure must already be
// resolved (catalogs.Load and catalogs.Default both do).
func New(cfg WorldConfig, cats *catalogs.Catalogs, tun tuning.Tuning) *World {
	cfg.applyDefaults()
	w := &World{
		Cfg:        cfg,
		Cats:       cats,
		Tun:        tun,
		grid:       NewGrid(cfg),
		trains:     map[TrainID]*Train{},
		reservedBy: map[resKey]TrainID{},
		programs:   map[SignalRef]*SignalProgram{},
		pathfinder: nopPathfinder{},
	}
	for i := 0; i < cfg.Companies; i++ {
		w.companies = append(w.companies, &Company{
			ID:         uint8(i),
			Money:      cfg.StartPerCompany,
			RailPieces: map[rail.RailType]int64{},
		})
	}
	return w
}

// Close tears the world down. Commands on a closed world fail.
func (w *World) Close() {
	w.closed = true
}

func (w *World) Grid() *Grid { return w.grid }

func (w *World) Company(id uint8) *Company {
	if int(id) >= len(w.companies) {
		return nil
	}
	return w.companies[id]
}

func (w *World) Companies() []*Company { return w.companies }

// SetPathfinder installs the external pathfinder collaborator. A nil
// pathfinder restores the no-op default.
func (w *World) SetPathfinder(p Pathfinder) {
	if p == nil {
		w.pathfinder = nopPathfinder{}
		return
	}
	w.pathfinder = p
}

func (w *World) tile(c TileCoord) *Tile { return w.grid.Tile(c) }

// pieceCount is the infrastructure weight of a track layout: linear for
// non-overlapping sets, quadratic for junction-style overlap.
func pieceCount(bits rail.TrackBits) int64 {
	n := int64(bits.Count())
	if bits.Overlap() {
		return n * n
	}
	return n
}

// updateRailPieces moves a tile's piece accounting from its old to its
// new layout for the owning company.
func (w *World) updateRailPieces(owner uint8, oldBits, newBits rail.TrackBits, oldPayload, newPayload RailPayload) {
	co := w.Company(owner)
	if co == nil {
		return
	}
	subRailPieces(co, oldBits, oldPayload)
	addRailPieces(co, newBits, newPayload)
}

func subRailPieces(co *Company, bits rail.TrackBits, p RailPayload) {
	addPieces(co, bits, p, -1)
}

func addRailPieces(co *Company, bits rail.TrackBits, p RailPayload) {
	addPieces(co, bits, p, +1)
}

func addPieces(co *Company, bits rail.TrackBits, p RailPayload, sign int64) {
	if bits == rail.TrackBitsNone {
		return
	}
	if p.IsDual() {
		// One piece per half, each on its own type; never overlapping.
		for _, t := range bits.Tracks() {
			co.RailPieces[p.TypeFor(t)] += sign
		}
		return
	}
	co.RailPieces[p.Primary()] += sign * pieceCount(bits)
}

func (w *World) addSignalCount(owner uint8, delta int) {
	if co := w.Company(owner); co != nil {
		co.Signals += int64(delta)
	}
}

func (w *World) String() string {
	return fmt.Sprintf("world %s %dx%d", w.Cfg.ID, w.Cfg.SizeX, w.Cfg.SizeY)
}
