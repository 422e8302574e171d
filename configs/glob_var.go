package configs

import (
	"time"

	"github.com/magiconair/properties"
)

// Debugging parameters.
var (
	ShowDebugInfo = false
	ShowWarnings  = ShowDebugInfo
	ShowTestInfo  = ShowDebugInfo
	LogToFile     = false
)

// Status codes.
const (
	// White et,al. the player side codes.
	White     = "white"
	Black     = "black"
	Spectator = "spectator"

	// Checkmate et,al. the game end reason codes.
	Checkmate            = "checkmate"
	Stalemate            = "stalemate"
	ThreefoldRepetition  = "threefold_repetition"
	FiftyMoveRule        = "fifty_move_rule"
	InsufficientMaterial = "insufficient_material"
	Resignation          = "resignation"
	DrawAgreement        = "draw_agreement"
	Timeout              = "timeout"
	Abandonment          = "abandonment"

	// VoteResign et,al. the team vote type codes.
	VoteResign     = "resign"
	VoteOfferDraw  = "offer_draw"
	VoteAcceptDraw = "accept_draw"
)

// System parameters.
const (
	MaxNameLength        = 30
	EngineStartupTimeout = 5 * time.Second
	EngineMoveTimeout    = 30 * time.Second
	JournalBatchInterval = 10 * time.Millisecond
	PeerSendBuffer       = 64
)

// Room parameters that could be changed by the config file or args.
var (
	DefaultClockSeconds = 600
	TeamVoteDuration    = 30 * time.Second
	KickVoteDuration    = 60 * time.Second
	ResetVoteDuration   = 60 * time.Second
	ReconnectGrace      = 20 * time.Second
	EngineSearchDepth   = 15
	LowTimeThreshold    = 60
	LowTimeIncrement    = 10
	ListenAddress       = "0.0.0.0:5001"
	EngineCommand       = "stockfish"
	UseJournal          = false
	JournalLocation     = "./logs/room"
	ConfigFileLocation  = "./configs/room.properties"
)

func SetDebug(on bool) {
	ShowDebugInfo = on
	ShowWarnings = on
	ShowTestInfo = on
}

// LoadRoomConfig overrides the defaults from a properties file.
func LoadRoomConfig(path string) error {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return err
	}
	DefaultClockSeconds = p.GetInt("room.clock_seconds", DefaultClockSeconds)
	TeamVoteDuration = p.GetParsedDuration("room.team_vote_duration", TeamVoteDuration)
	KickVoteDuration = p.GetParsedDuration("room.kick_vote_duration", KickVoteDuration)
	ResetVoteDuration = p.GetParsedDuration("room.reset_vote_duration", ResetVoteDuration)
	ReconnectGrace = p.GetParsedDuration("room.reconnect_grace", ReconnectGrace)
	EngineSearchDepth = p.GetInt("engine.search_depth", EngineSearchDepth)
	LowTimeThreshold = p.GetInt("room.low_time_threshold", LowTimeThreshold)
	LowTimeIncrement = p.GetInt("room.low_time_increment", LowTimeIncrement)
	ListenAddress = p.GetString("server.listen", ListenAddress)
	EngineCommand = p.GetString("engine.command", EngineCommand)
	UseJournal = p.GetBool("journal.enabled", UseJournal)
	JournalLocation = p.GetString("journal.location", JournalLocation)
	return nil
}
