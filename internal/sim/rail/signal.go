package rail

// SignalType is the logical behavior class of a signal.
type SignalType uint8

const (
	SignalBlock SignalType = iota
	SignalEntry
	SignalExit
	SignalCombo
	SignalPBS
	SignalPBSOneWay
	SignalNoEntry
	SignalProg

	SignalTypeCount
)

func (t SignalType) IsPBS() bool {
	return t == SignalPBS || t == SignalPBSOneWay
}

// SignalVariant selects the visual/technology family.
type SignalVariant uint8

const (
	SignalElectric SignalVariant = iota
	SignalSemaphore
)

// SignalState is the displayed aspect of a two-state signal.
type SignalState uint8

const (
	SignalStateRed SignalState = iota
	SignalStateGreen
)

// CycleGroup selects which signal types a cycle-type click walks through.
type CycleGroup uint8

const (
	CycleClassic CycleGroup = iota // block, entry, exit, combo, pbs, one-way-pbs
	CycleAll                       // classic plus no-entry and programmable
)

var cycleClassic = []SignalType{
	SignalBlock, SignalEntry, SignalExit, SignalCombo, SignalPBS, SignalPBSOneWay,
}

var cycleAll = []SignalType{
	SignalBlock, SignalEntry, SignalExit, SignalCombo,
	SignalPBS, SignalPBSOneWay, SignalNoEntry, SignalProg,
}

// NextSignalType walks the cycle ordering for the given group, wrapping
// at the end. A type outside the group restarts the cycle.
func NextSignalType(cur SignalType, group CycleGroup) SignalType {
	order := cycleClassic
	if group == CycleAll {
		order = cycleAll
	}
	for i, t := range order {
		if t == cur {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// SignalStyle constrains which signal configurations a visual style set
// supports. Style 0 is the default style and allows everything.
type SignalStyle struct {
	Name string

	// Allowed type mask; zero means all types.
	Types uint16

	SemaphoreOnly bool
	ElectricOnly  bool

	NoBidirectional bool // unusable on bidirectional tunnel/bridge pairs
	EntranceOnly    bool // tunnel/bridge: usable only as simulated entrance
	ExitOnly        bool // tunnel/bridge: usable only as simulated exit
}

func (s *SignalStyle) AllowsType(t SignalType) bool {
	if s.Types == 0 {
		return true
	}
	return s.Types&(1<<t) != 0
}

func (s *SignalStyle) AllowsVariant(v SignalVariant) bool {
	if s.SemaphoreOnly && v != SignalSemaphore {
		return false
	}
	if s.ElectricOnly && v != SignalElectric {
		return false
	}
	return true
}

// Signal is one signal attachment on a track direction.
type Signal struct {
	Type    SignalType
	Variant SignalVariant
	Style   uint8
	State   SignalState

	// Aspect is the multi-aspect value when multi-aspect signalling is
	// enabled; 0 is the most restrictive.
	Aspect uint8
}
