package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Geometry/legality.
	ErrImpossibleCombination = "E_IMPOSSIBLE_COMBINATION"
	ErrLandSlopedWrong       = "E_LAND_SLOPED_WRONG"
	ErrNoTrack               = "E_NO_TRACK"
	ErrMustRemoveSignals     = "E_MUST_REMOVE_SIGNALS"

	// Ownership/permission.
	ErrOwnedByOther     = "E_OWNED_BY_OTHER"
	ErrAreaOwnedByOther = "E_AREA_OWNED_BY_OTHER"

	// Resource conflict.
	ErrTrainInWay         = "E_TRAIN_IN_WAY"
	ErrShipInWay          = "E_SHIP_IN_WAY"
	ErrMustDemolishBridge = "E_MUST_DEMOLISH_BRIDGE"
	ErrRoadWorks          = "E_ROAD_WORKS"

	// Signal-specific.
	ErrUnsuitableSignal = "E_UNSUITABLE_SIGNAL"
	ErrRestrictedSignal = "E_RESTRICTED_SIGNAL"
	ErrNoSignals        = "E_NO_SIGNALS"

	// Already-satisfied: the drag helpers branch on this one.
	ErrAlreadyBuilt = "E_ALREADY_BUILT"

	// Command layer.
	ErrNoFunds    = "E_NO_FUNDS"
	ErrBadRequest = "E_BAD_REQUEST"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:       {},
	ErrImpossibleCombination: {},
	ErrLandSlopedWrong:       {},
	ErrNoTrack:               {},
	ErrMustRemoveSignals:     {},
	ErrOwnedByOther:          {},
	ErrAreaOwnedByOther:      {},
	ErrTrainInWay:            {},
	ErrShipInWay:             {},
	ErrMustDemolishBridge:    {},
	ErrRoadWorks:             {},
	ErrUnsuitableSignal:      {},
	ErrRestrictedSignal:      {},
	ErrNoSignals:             {},
	ErrAlreadyBuilt:          {},
	ErrNoFunds:               {},
	ErrBadRequest:            {},
	ErrInternal:              {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
