package protocol

// Command names carried in CmdMsg.Cmd.
const (
	CmdBuildTrack       = "BUILD_TRACK"
	CmdRemoveTrack      = "REMOVE_TRACK"
	CmdBuildTrackLine   = "BUILD_TRACK_LINE"
	CmdRemoveTrackLine  = "REMOVE_TRACK_LINE"
	CmdBuildDepot       = "BUILD_DEPOT"
	CmdRemoveDepot      = "REMOVE_DEPOT"
	CmdBuildSignal      = "BUILD_SIGNAL"
	CmdRemoveSignal     = "REMOVE_SIGNAL"
	CmdBuildSignalLine  = "BUILD_SIGNAL_LINE"
	CmdRemoveSignalLine = "REMOVE_SIGNAL_LINE"
	CmdConvertRail      = "CONVERT_RAIL"
	CmdConvertRailLine  = "CONVERT_RAIL_LINE"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	Company         uint8  `json:"company"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	Company         uint8       `json:"company"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	SizeX           int      `json:"size_x"`
	SizeY           int      `json:"size_y"`
	Seed            int64    `json:"seed"`
	RailTypes       []string `json:"rail_types"`
	RailTypesDigest string   `json:"rail_types_digest"`
}

// CMD (client -> server): one command invocation. The server runs the
// validation phase and, unless test_only is set, the commit phase on the
// same state.
type CmdMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id"`
	Cmd             string `json:"cmd"`
	Company         uint8  `json:"company"`
	TestOnly        bool   `json:"test_only,omitempty"`

	Tile [2]int  `json:"tile"`
	End  *[2]int `json:"end,omitempty"`

	Track    string `json:"track,omitempty"`     // X,Y,UPPER,LOWER,LEFT,RIGHT
	RailType string `json:"rail_type,omitempty"` // catalog label

	Signal  *SignalParams `json:"signal,omitempty"`
	Options *CmdOptions   `json:"options,omitempty"`
}

type SignalParams struct {
	SigType string `json:"sig_type,omitempty"` // BLOCK,ENTRY,EXIT,COMBO,PBS,PBS_ONEWAY,NO_ENTRY,PROGRAMMABLE
	Variant string `json:"variant,omitempty"`  // ELECTRIC, SEMAPHORE
	Style   uint8  `json:"style,omitempty"`
	Density int    `json:"density,omitempty"` // signal line commands
}

type CmdOptions struct {
	AutoRemoveSignals   bool `json:"auto_remove_signals,omitempty"`
	NoDualRailType      bool `json:"no_dual_rail_type,omitempty"`
	PermitBidirectional bool `json:"permit_bidirectional,omitempty"`
	SkipExisting        bool `json:"skip_existing,omitempty"`
	Ctrl                bool `json:"ctrl,omitempty"`
	Convert             bool `json:"convert,omitempty"`
}

// RESULT (server -> client). Warn carries the error code that ended a
// line/area walk early when part of it still succeeded.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Ref             string `json:"ref"`
	OK              bool   `json:"ok"`
	Cost            int64  `json:"cost,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	Warn            string `json:"warn,omitempty"`
}
