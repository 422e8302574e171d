package room

import (
	"sort"
	"time"

	"TC/configs"

	"github.com/benbjohnson/clock"
	set "github.com/deckarep/golang-set"
	"github.com/notnil/chess"
)

const (
	Lobby uint8 = iota
	AwaitingProposals
	FinalizingTurn
	Over
)

// StatusString maps a status code to its wire representation.
func StatusString(s uint8) string {
	switch s {
	case Lobby:
		return "lobby"
	case AwaitingProposals:
		return "awaiting_proposals"
	case FinalizingTurn:
		return "finalizing_turn"
	case Over:
		return "over"
	default:
		configs.Assert(false, "invalid room status code")
		return ""
	}
}

// Proposal is one team member's candidate move for the current turn.
// Seq preserves submission order so "first matching proposal" is well-defined.
type Proposal struct {
	LAN  string
	SAN  string
	Name string
	Seq  int
}

// Session is the per-identity record. It survives reconnects; a disconnect
// only marks it offline until the grace timer drops it.
type Session struct {
	PID       string
	Name      string
	Side      string
	Connected bool
	grace     *clock.Timer
}

// TeamVote is an active resign/offer-draw/accept-draw vote scoped to one team.
type TeamVote struct {
	Type          string
	Side          string
	InitiatorName string
	System        bool
	Eligible      set.Set
	Yes           set.Set
	Required      int
	EndTime       time.Time
	timer         *clock.Timer
}

// KickVote is the process-wide vote to remove and blacklist a player.
type KickVote struct {
	TargetID      string
	TargetName    string
	InitiatorName string
	Eligible      set.Set
	Yes           set.Set
	No            set.Set
	Required      int
	Total         int
	EndTime       time.Time
	timer         *clock.Timer
}

// ResetVote is the process-wide unanimous vote to restart the game.
type ResetVote struct {
	InitiatorName string
	Eligible      set.Set
	Yes           set.Set
	Required      int
	EndTime       time.Time
	timer         *clock.Timer
}

// GameState is the single mutable record of the room. All access happens
// under the Context latch.
type GameState struct {
	Status     uint8
	Side       string
	MoveNumber int
	Proposals  map[string]*Proposal
	nextSeq    int

	WhiteIDs set.Set
	BlackIDs set.Set

	WhiteTime int
	BlackTime int

	Game *chess.Game

	EndReason string
	EndWinner string
	DrawOffer string

	WhiteVote *TeamVote
	BlackVote *TeamVote
	Kick      *KickVote
	Reset     *ResetVote

	// Blacklist survives resets, everything else is rebuilt.
	Blacklist set.Set

	// Epoch fences stale engine responses across resets.
	Epoch uint64
}

func newGameState(blacklist set.Set, epoch uint64) *GameState {
	return &GameState{
		Status:     Lobby,
		Side:       configs.White,
		MoveNumber: 1,
		Proposals:  make(map[string]*Proposal),
		WhiteIDs:   set.NewSet(),
		BlackIDs:   set.NewSet(),
		WhiteTime:  configs.DefaultClockSeconds,
		BlackTime:  configs.DefaultClockSeconds,
		Game:       chess.NewGame(),
		Blacklist:  blacklist,
		Epoch:      epoch,
	}
}

// Opposite returns the other playing side.
func Opposite(side string) string {
	if side == configs.White {
		return configs.Black
	}
	return configs.White
}

// teamIDs returns the committed membership set for a side.
func (st *GameState) teamIDs(side string) set.Set {
	if side == configs.White {
		return st.WhiteIDs
	}
	return st.BlackIDs
}

// teamVote returns the active vote slot for a side.
func (st *GameState) teamVote(side string) *TeamVote {
	if side == configs.White {
		return st.WhiteVote
	}
	return st.BlackVote
}

func (st *GameState) setTeamVote(side string, v *TeamVote) {
	if side == configs.White {
		st.WhiteVote = v
	} else {
		st.BlackVote = v
	}
}

// remainingTime returns the counter of the given side.
func (st *GameState) remainingTime(side string) int {
	if side == configs.White {
		return st.WhiteTime
	}
	return st.BlackTime
}

func (st *GameState) addTime(side string, seconds int) {
	if side == configs.White {
		st.WhiteTime += seconds
	} else {
		st.BlackTime += seconds
	}
}

// fen returns the engine-facing encoding of the current position.
func (st *GameState) fen() string {
	return st.Game.Position().String()
}

// candidates lists the distinct proposed LANs in submission order.
func (st *GameState) candidates() []string {
	ordered := st.orderedProposals()
	seen := set.NewSet()
	res := make([]string, 0, len(ordered))
	for _, p := range ordered {
		if seen.Add(p.LAN) {
			res = append(res, p.LAN)
		}
	}
	return res
}

// orderedProposals returns the proposals sorted by submission sequence.
func (st *GameState) orderedProposals() []*Proposal {
	res := make([]*Proposal, 0, len(st.Proposals))
	for _, p := range st.Proposals {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Seq < res[j].Seq })
	return res
}

// winningProposal finds the earliest submission whose LAN matches the chosen
// move. The empty pid means no proposer matched.
func (st *GameState) winningProposal(lan string) (string, *Proposal) {
	best := ""
	var bestP *Proposal
	for pid, p := range st.Proposals {
		if p.LAN != lan {
			continue
		}
		if bestP == nil || p.Seq < bestP.Seq {
			best, bestP = pid, p
		}
	}
	return best, bestP
}
