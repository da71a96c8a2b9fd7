package world

import "railgrid.dev/internal/sim/rail"

// TrainID is a handle to a train owned by the external vehicle layer.
type TrainID uint32

const NoTrain TrainID = 0

// Train is the minimal train view the core needs: where it physically
// is and what rail type its engine runs on.
type Train struct {
	ID       TrainID
	Owner    uint8
	Tile     TileCoord
	Track    rail.Track
	RailType rail.RailType
	Stopped  bool
}

type resKey struct {
	tile  TileCoord
	track rail.Track
}

// Pathfinder is the external path reservation collaborator. The core
// never mutates a reservation without going through these calls.
type Pathfinder interface {
	// MayModify is asked before a reserved track is touched; a non-nil
	// error blocks the command with its reason.
	MayModify(t *Train) error
	// FreeReservation tells the pathfinder its reservation was dropped.
	FreeReservation(id TrainID)
	// RequestReReservation asks for a best-effort re-plan; failure is
	// the train's problem, not the command's.
	RequestReReservation(id TrainID)
	// NotifyLayoutChanged invalidates cached routing through the tile.
	NotifyLayoutChanged(c TileCoord)
}

type nopPathfinder struct{}

func (nopPathfinder) MayModify(*Train) error        { return nil }
func (nopPathfinder) FreeReservation(TrainID)       {}
func (nopPathfinder) RequestReReservation(TrainID)  {}
func (nopPathfinder) NotifyLayoutChanged(TileCoord) {}

// AddTrain registers a train handle. Owned by the external vehicle
// layer; exposed for it and for tests.
func (w *World) AddTrain(t *Train) {
	w.trains[t.ID] = t
}

func (w *World) RemoveTrain(id TrainID) {
	for k, held := range w.reservedBy {
		if held == id {
			w.dropReservation(k)
		}
	}
	delete(w.trains, id)
}

func (w *World) Train(id TrainID) *Train { return w.trains[id] }

// ReserveTrack grants a reservation to a train. Called by the
// pathfinder; fails when the track is absent or already claimed.
func (w *World) ReserveTrack(c TileCoord, track rail.Track, id TrainID) bool {
	t := w.tile(c)
	if t == nil || !t.ActiveTrackBits().Has(track) {
		return false
	}
	k := resKey{c, track}
	if _, taken := w.reservedBy[k]; taken {
		return false
	}
	t.Reserved |= track.Bit()
	w.reservedBy[k] = id
	return true
}

// UnreserveTrack releases a reservation. Called by the pathfinder.
func (w *World) UnreserveTrack(c TileCoord, track rail.Track) {
	w.dropReservation(resKey{c, track})
}

func (w *World) dropReservation(k resKey) {
	if t := w.tile(k.tile); t != nil {
		t.Reserved &^= k.track.Bit()
	}
	delete(w.reservedBy, k)
}

// TrainHoldingReservation answers who owns the reservation on a track.
func (w *World) TrainHoldingReservation(c TileCoord, track rail.Track) TrainID {
	return w.reservedBy[resKey{c, track}]
}

// trainOnTile finds a train physically occupying any of the given
// tracks of the tile.
func (w *World) trainOnTile(c TileCoord, bits rail.TrackBits) *Train {
	for _, t := range w.trains {
		if t.Tile == c && bits.Has(t.Track) {
			return t
		}
	}
	return nil
}

// checkReservedChange is the validate-phase half of the coordinator: it
// finds reservations overlapping the bits about to change and asks
// whether touching them is safe. A train standing on the affected
// tracks always blocks.
func (w *World) checkReservedChange(c TileCoord, bits rail.TrackBits) error {
	t := w.tile(c)
	if t == nil {
		return errBadTile()
	}
	if tr := w.trainOnTile(c, bits); tr != nil {
		return errTrainInWay()
	}
	if t.Reserved&bits == 0 {
		return nil
	}
	for _, track := range (t.Reserved & bits).Tracks() {
		id := w.reservedBy[resKey{c, track}]
		tr := w.trains[id]
		if tr == nil {
			continue
		}
		if err := w.pathfinder.MayModify(tr); err != nil {
			return errCode(CodeOf(err), err.Error())
		}
	}
	return nil
}

// releaseReservedChange is the commit-phase half: release every
// overlapping reservation and return the trains for re-reservation.
// Must run before the mutation; afterMutate must run after it.
func (w *World) releaseReservedChange(c TileCoord, bits rail.TrackBits) []TrainID {
	t := w.tile(c)
	if t == nil || t.Reserved&bits == 0 {
		return nil
	}
	var freed []TrainID
	for _, track := range (t.Reserved & bits).Tracks() {
		k := resKey{c, track}
		id := w.reservedBy[k]
		w.dropReservation(k)
		if id != NoTrain {
			w.pathfinder.FreeReservation(id)
			freed = append(freed, id)
		}
	}
	return freed
}

// afterMutate completes the release-mutate-rerequest ordering and tells
// the pathfinder the layout changed.
func (w *World) afterMutate(c TileCoord, freed []TrainID) {
	w.grid.MarkDirty(c)
	w.pathfinder.NotifyLayoutChanged(c)
	for _, id := range freed {
		w.pathfinder.RequestReReservation(id)
	}
}

// unpoweredTrainOn finds a train on the tile's tracks that would lose
// power under the given rail type.
func (w *World) unpoweredTrainOn(c TileCoord, bits rail.TrackBits, to rail.RailType) *Train {
	for _, t := range w.trains {
		if t.Tile != c || !bits.Has(t.Track) {
			continue
		}
		if !w.Cats.RailTypes.HasPower(to, t.RailType) {
			return t
		}
	}
	return nil
}
