package world

import (
	"railgrid.dev/internal/sim/catalogs"
	"railgrid.dev/internal/sim/rail"
	"railgrid.dev/internal/sim/tuning"
)

// SaveState is the wholesale serialized form of a world. Tiles carry
// only the cells that differ from freshly generated terrain; everything
// else regenerates from the seed.
type SaveState struct {
	Cfg       WorldConfig    `json:"cfg"`
	Companies []CompanySave  `json:"companies"`
	Tiles     []TileSave     `json:"tiles"`
	Trains    []TrainSave    `json:"trains,omitempty"`
	Reserved  []ReservedSave `json:"reserved,omitempty"`
	Programs  []ProgramSave  `json:"programs,omitempty"`
}

type CompanySave struct {
	ID         uint8           `json:"id"`
	Money      int64           `json:"money"`
	RailPieces map[uint8]int64 `json:"rail_pieces,omitempty"`
	Signals    int64           `json:"signals,omitempty"`
}

type TileSave struct {
	X int `json:"x"`
	Y int `json:"y"`

	Kind   uint8 `json:"kind"`
	Owner  uint8 `json:"owner"`
	Ground uint8 `json:"ground"`
	Slope  uint8 `json:"slope"`

	TrackBits uint8 `json:"track_bits,omitempty"`
	RailDual  bool  `json:"rail_dual,omitempty"`
	RailPri   uint8 `json:"rail_pri,omitempty"`
	RailSec   uint8 `json:"rail_sec,omitempty"`
	Reserved  uint8 `json:"reserved,omitempty"`

	SignalVariant uint8             `json:"signal_variant,omitempty"`
	Signals       []TrackSignalSave `json:"signals,omitempty"`

	DepotDir uint8   `json:"depot_dir,omitempty"`
	TB       *TBSave `json:"tb,omitempty"`
}

type TrackSignalSave struct {
	Track   uint8 `json:"track"`
	Present uint8 `json:"present"`
	Type    uint8 `json:"sig_type"`
	Variant uint8 `json:"variant"`
	Style   uint8 `json:"style"`
	State   uint8 `json:"state"`
	Aspect  uint8 `json:"aspect,omitempty"`
}

type TBSave struct {
	OtherX int   `json:"other_x"`
	OtherY int   `json:"other_y"`
	Bridge bool  `json:"bridge,omitempty"`
	Dir    uint8 `json:"dir"`
	Length int   `json:"length"`

	SimEntrance bool  `json:"sim_entrance,omitempty"`
	SimExit     bool  `json:"sim_exit,omitempty"`
	WasEntrance bool  `json:"was_entrance,omitempty"`
	PBS         bool  `json:"pbs,omitempty"`
	Variant     uint8 `json:"variant,omitempty"`
	Style       uint8 `json:"style,omitempty"`
	SpecialProp bool  `json:"special_prop,omitempty"`
	Spacing     int   `json:"spacing,omitempty"`
	State       uint8 `json:"state,omitempty"`
	Aspect      uint8 `json:"aspect,omitempty"`
}

type TrainSave struct {
	ID       uint32 `json:"id"`
	Owner    uint8  `json:"owner"`
	X        int    `json:"x"`
	Y        int    `json:"y"`
	Track    uint8  `json:"track"`
	RailType uint8  `json:"rail_type"`
	Stopped  bool   `json:"stopped,omitempty"`
}

type ReservedSave struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Track uint8  `json:"track"`
	Train uint32 `json:"train"`
}

type ProgramSave struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Track uint8  `json:"track"`
	Owner uint8  `json:"owner"`
	Body  string `json:"body"`
	Sides uint8  `json:"sides"`
}

// pristine reports whether a tile still matches what the generator
// would produce, so it can be skipped in the save.
func pristine(t *Tile) bool {
	return t.Kind == KindClear &&
		t.Owner == NoCompany &&
		t.Slope == rail.SlopeFlat &&
		t.TrackBits == rail.TrackBitsNone &&
		!t.HasSignals &&
		t.TB == nil
}

// Export captures the full world state for the savegame layer.
func (w *World) Export() SaveState {
	st := SaveState{Cfg: w.Cfg}

	for _, co := range w.companies {
		cs := CompanySave{ID: co.ID, Money: co.Money, Signals: co.Signals}
		if len(co.RailPieces) > 0 {
			cs.RailPieces = map[uint8]int64{}
			for rt, n := range co.RailPieces {
				if n != 0 {
					cs.RailPieces[uint8(rt)] = n
				}
			}
		}
		st.Companies = append(st.Companies, cs)
	}

	w.grid.Chunks(func(key ChunkKey, ch *Chunk) {
		for i := range ch.Tiles {
			t := &ch.Tiles[i]
			if pristine(t) {
				continue
			}
			x := key.CX*chunkDim + i%chunkDim
			y := key.CY*chunkDim + i/chunkDim
			st.Tiles = append(st.Tiles, exportTile(x, y, t))
		}
	})

	for _, tr := range w.trains {
		st.Trains = append(st.Trains, TrainSave{
			ID:       uint32(tr.ID),
			Owner:    tr.Owner,
			X:        tr.Tile.X,
			Y:        tr.Tile.Y,
			Track:    uint8(tr.Track),
			RailType: uint8(tr.RailType),
			Stopped:  tr.Stopped,
		})
	}
	for k, id := range w.reservedBy {
		st.Reserved = append(st.Reserved, ReservedSave{
			X: k.tile.X, Y: k.tile.Y, Track: uint8(k.track), Train: uint32(id),
		})
	}
	for ref, p := range w.programs {
		st.Programs = append(st.Programs, ProgramSave{
			X: ref.Tile.X, Y: ref.Tile.Y, Track: uint8(ref.Track),
			Owner: p.Owner, Body: p.Body, Sides: p.Sides,
		})
	}
	return st
}

func exportTile(x, y int, t *Tile) TileSave {
	ts := TileSave{
		X:         x,
		Y:         y,
		Kind:      uint8(t.Kind),
		Owner:     t.Owner,
		Ground:    uint8(t.Ground),
		Slope:     uint8(t.Slope),
		TrackBits: uint8(t.TrackBits),
		RailDual:  t.Rail.IsDual(),
		RailPri:   uint8(t.Rail.Primary()),
		RailSec:   uint8(t.Rail.Secondary()),
		Reserved:  uint8(t.Reserved),
		DepotDir:  uint8(t.DepotDir),
	}
	if t.HasSignals {
		ts.SignalVariant = uint8(t.SignalVariant)
		for i := range t.Signals {
			s := &t.Signals[i]
			if s.Present == 0 {
				continue
			}
			ts.Signals = append(ts.Signals, TrackSignalSave{
				Track:   uint8(i),
				Present: s.Present,
				Type:    uint8(s.Sig.Type),
				Variant: uint8(s.Sig.Variant),
				Style:   s.Sig.Style,
				State:   uint8(s.Sig.State),
				Aspect:  s.Sig.Aspect,
			})
		}
	}
	if t.TB != nil {
		tb := t.TB
		ts.TB = &TBSave{
			OtherX:      tb.Other.X,
			OtherY:      tb.Other.Y,
			Bridge:      tb.Bridge,
			Dir:         uint8(tb.Dir),
			Length:      tb.Length,
			SimEntrance: tb.SimEntrance,
			SimExit:     tb.SimExit,
			WasEntrance: tb.WasEntrance,
			PBS:         tb.PBS,
			Variant:     uint8(tb.Variant),
			Style:       tb.Style,
			SpecialProp: tb.SpecialProp,
			Spacing:     tb.Spacing,
			State:       uint8(tb.State),
			Aspect:      tb.Aspect,
		}
	}
	return ts
}

// Restore builds a world from a saved state. The catalogs and tuning
// come from the current process, not the save: rail type ids must line
// up with the catalog the save was made against.
func Restore(st SaveState, cats *catalogs.Catalogs, tun tuning.Tuning) *World {
	w := New(st.Cfg, cats, tun)

	for _, cs := range st.Companies {
		co := w.Company(cs.ID)
		if co == nil {
			continue
		}
		co.Money = cs.Money
		co.Signals = cs.Signals
		for rt, n := range cs.RailPieces {
			co.RailPieces[rail.RailType(rt)] = n
		}
	}

	for _, ts := range st.Tiles {
		t := w.tile(TileCoord{ts.X, ts.Y})
		if t == nil {
			continue
		}
		importTile(t, &ts)
		w.grid.MarkDirty(TileCoord{ts.X, ts.Y})
	}

	for _, tr := range st.Trains {
		w.AddTrain(&Train{
			ID:       TrainID(tr.ID),
			Owner:    tr.Owner,
			Tile:     TileCoord{tr.X, tr.Y},
			Track:    rail.Track(tr.Track),
			RailType: rail.RailType(tr.RailType),
			Stopped:  tr.Stopped,
		})
	}
	for _, r := range st.Reserved {
		w.reservedBy[resKey{TileCoord{r.X, r.Y}, rail.Track(r.Track)}] = TrainID(r.Train)
	}
	for _, p := range st.Programs {
		ref := SignalRef{Tile: TileCoord{p.X, p.Y}, Track: rail.Track(p.Track)}
		w.programs[ref] = &SignalProgram{Owner: p.Owner, Body: p.Body, Sides: p.Sides}
	}
	return w
}

func importTile(t *Tile, ts *TileSave) {
	t.Kind = TileKind(ts.Kind)
	t.Owner = ts.Owner
	t.Ground = GroundType(ts.Ground)
	t.Slope = rail.Slope(ts.Slope)
	t.TrackBits = rail.TrackBits(ts.TrackBits)
	if ts.RailDual {
		t.Rail = DualRail(rail.RailType(ts.RailPri), rail.RailType(ts.RailSec))
	} else {
		t.Rail = SingleRail(rail.RailType(ts.RailPri))
	}
	t.Reserved = rail.TrackBits(ts.Reserved)
	t.DepotDir = DiagDir(ts.DepotDir)

	for _, s := range ts.Signals {
		if int(s.Track) >= len(t.Signals) {
			continue
		}
		t.Signals[s.Track] = TrackSignal{
			Present: s.Present,
			Sig: rail.Signal{
				Type:    rail.SignalType(s.Type),
				Variant: rail.SignalVariant(s.Variant),
				Style:   s.Style,
				State:   rail.SignalState(s.State),
				Aspect:  s.Aspect,
			},
		}
	}
	t.refreshHasSignals()
	if t.HasSignals {
		t.SignalVariant = rail.SignalVariant(ts.SignalVariant)
	}

	if ts.TB != nil {
		t.TB = &TunnelBridgeEnd{
			Other:       TileCoord{ts.TB.OtherX, ts.TB.OtherY},
			Bridge:      ts.TB.Bridge,
			Dir:         DiagDir(ts.TB.Dir),
			Length:      ts.TB.Length,
			SimEntrance: ts.TB.SimEntrance,
			SimExit:     ts.TB.SimExit,
			WasEntrance: ts.TB.WasEntrance,
			PBS:         ts.TB.PBS,
			Variant:     rail.SignalVariant(ts.TB.Variant),
			Style:       ts.TB.Style,
			SpecialProp: ts.TB.SpecialProp,
			Spacing:     ts.TB.Spacing,
			State:       rail.SignalState(ts.TB.State),
			Aspect:      ts.TB.Aspect,
		}
	}
}
