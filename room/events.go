package room

// Outbound event names. See the external interface contract for payloads.
const (
	EvtSession      = "session"
	EvtPlayers      = "players"
	EvtStatusUpdate = "game_status_update"
	EvtGameStarted  = "game_started"
	EvtMoveSubmit   = "move_submitted"
	EvtMoveSelected = "move_selected"
	EvtTurnChange   = "turn_change"
	EvtPosition     = "position_update"
	EvtClockUpdate  = "clock_update"
	EvtDrawOffer    = "draw_offer_update"
	EvtTeamVote     = "team_vote_update"
	EvtKickVote     = "kick_vote_update"
	EvtResetVote    = "reset_vote_update"
	EvtKicked       = "kicked"
	EvtGameReset    = "game_reset"
	EvtGameOver     = "game_over"
	EvtChat         = "chat_message"
)

// Transport delivers outbound events. The production implementation is the
// websocket server; tests plug in an in-memory recorder.
type Transport interface {
	// Broadcast sends the event to every connected socket.
	Broadcast(event string, payload interface{})
	// SendTo sends the event to every socket of one pid.
	SendTo(pid string, event string, payload interface{})
	// Kick force-closes every socket of one pid.
	Kick(pid string)
}

type SessionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RosterEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type Roster struct {
	Spectators   []RosterEntry `json:"spectators"`
	WhitePlayers []RosterEntry `json:"whitePlayers"`
	BlackPlayers []RosterEntry `json:"blackPlayers"`
}

type StatusUpdate struct {
	Status string `json:"status"`
}

type SubmittedMove struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MoveNumber int    `json:"moveNumber"`
	Side       string `json:"side"`
	LAN        string `json:"lan"`
	SAN        string `json:"san"`
}

type GameStarted struct {
	MoveNumber int             `json:"moveNumber"`
	Side       string          `json:"side"`
	Proposals  []SubmittedMove `json:"proposals"`
}

type MoveSelected struct {
	SubmittedMove
	FEN        string   `json:"fen"`
	Candidates []string `json:"candidates"`
}

type TurnChange struct {
	MoveNumber int    `json:"moveNumber"`
	Side       string `json:"side"`
}

type PositionUpdate struct {
	FEN string `json:"fen"`
}

type ClockUpdate struct {
	WhiteTime int `json:"whiteTime"`
	BlackTime int `json:"blackTime"`
}

type DrawOfferUpdate struct {
	Side *string `json:"side"`
}

type TeamVoteUpdate struct {
	IsActive      bool     `json:"isActive"`
	Type          string   `json:"type,omitempty"`
	InitiatorName string   `json:"initiatorName,omitempty"`
	YesVotes      []string `json:"yesVotes,omitempty"`
	RequiredVotes int      `json:"requiredVotes,omitempty"`
	EndTime       int64    `json:"endTime,omitempty"`
}

type KickVoteUpdate struct {
	IsActive      bool   `json:"isActive"`
	TargetID      string `json:"targetId,omitempty"`
	TargetName    string `json:"targetName,omitempty"`
	InitiatorName string `json:"initiatorName,omitempty"`
	YesCount      int    `json:"yesCount"`
	NoCount       int    `json:"noCount"`
	RequiredVotes int    `json:"requiredVotes,omitempty"`
	Total         int    `json:"total,omitempty"`
	EndTime       int64  `json:"endTime,omitempty"`

	// Per-viewer fields.
	MyVoteEligible bool   `json:"myVoteEligible"`
	MyCurrentVote  string `json:"myCurrentVote,omitempty"`
	AmTarget       bool   `json:"amTarget"`
}

type ResetVoteUpdate struct {
	IsActive      bool   `json:"isActive"`
	InitiatorName string `json:"initiatorName,omitempty"`
	YesCount      int    `json:"yesCount"`
	RequiredVotes int    `json:"requiredVotes,omitempty"`
	EndTime       int64  `json:"endTime,omitempty"`

	// Per-viewer fields.
	MyVoteEligible bool   `json:"myVoteEligible"`
	MyCurrentVote  string `json:"myCurrentVote,omitempty"`
}

type Kicked struct {
	Message string `json:"message"`
}

type GameOver struct {
	Reason string  `json:"reason"`
	Winner *string `json:"winner"`
	PGN    string  `json:"pgn"`
}

type ChatMessage struct {
	Sender   string `json:"sender"`
	SenderID string `json:"senderId,omitempty"`
	Message  string `json:"message"`
	System   bool   `json:"system,omitempty"`
}
