package room

import (
	"sort"

	"TC/configs"
	"TC/utils"

	set "github.com/deckarep/golang-set"
	"github.com/google/uuid"
)

// Session lifecycle: identity resolution on connect, a grace window on
// disconnect, and the roster broadcast that follows every membership or
// connectivity change.

// Connect admits a socket claiming an optional pid and name. A known pid
// adopts its existing session and cancels any pending grace drop; an unknown
// or empty pid gets a fresh spectator session. Blacklisted pids are refused
// before any state is created. The returned pid is the one the transport must
// register the socket under before calling Sync.
func (ctx *Context) Connect(pid, name string) (string, error) {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	if pid != "" && ctx.state.Blacklist.Contains(pid) {
		return "", utils.ErrBlacklisted
	}
	s, known := ctx.sessions[pid]
	if !known {
		if pid == "" {
			pid = uuid.NewString()
		}
		trimmed := TrimName(name)
		if trimmed == "" {
			trimmed = "Guest-" + pid[:8]
		}
		s = &Session{PID: pid, Name: trimmed, Side: configs.Spectator}
		ctx.sessions[pid] = s
	}
	if s.grace != nil {
		s.grace.Stop()
		s.grace = nil
	}
	s.Connected = true
	configs.DPrintf("connected %s (%s)", s.Name, pid)
	return pid, nil
}

// Sync replays the room state to a freshly registered socket and announces
// the (possibly changed) roster to everyone.
func (ctx *Context) Sync(pid string) {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return
	}
	ctx.sendSnapshot(s)
	ctx.broadcastRoster()
}

// sendSnapshot replays the room state to a freshly attached socket.
// Latch must be held.
func (ctx *Context) sendSnapshot(s *Session) {
	st := ctx.state
	ctx.emitTo(s.PID, EvtSession, SessionInfo{ID: s.PID, Name: s.Name})
	ctx.emitTo(s.PID, EvtStatusUpdate, StatusUpdate{Status: StatusString(st.Status)})
	ctx.emitTo(s.PID, EvtClockUpdate, ClockUpdate{WhiteTime: st.WhiteTime, BlackTime: st.BlackTime})
	if st.Status == Lobby {
		return
	}
	ctx.emitTo(s.PID, EvtGameStarted, GameStarted{
		MoveNumber: st.MoveNumber,
		Side:       st.Side,
		Proposals:  ctx.proposalList(),
	})
	ctx.emitTo(s.PID, EvtPosition, PositionUpdate{FEN: st.fen()})
	if st.DrawOffer != "" {
		ctx.emitTo(s.PID, EvtDrawOffer, DrawOfferUpdate{Side: winnerPtr(st.DrawOffer)})
	}
	if st.Status == Over {
		ctx.emitTo(s.PID, EvtGameOver, GameOver{
			Reason: st.EndReason,
			Winner: winnerPtr(st.EndWinner),
			PGN:    st.Game.String(),
		})
	}
	side := ctx.sideOf(s.PID)
	if (side == configs.White || side == configs.Black) && st.teamVote(side) != nil {
		ctx.emitTo(s.PID, EvtTeamVote, ctx.teamVotePayload(side))
	}
	if st.Kick != nil {
		ctx.emitTo(s.PID, EvtKickVote, ctx.kickVotePayload(s.PID))
	}
	if st.Reset != nil {
		ctx.emitTo(s.PID, EvtResetVote, ctx.resetVotePayload(s.PID))
	}
}

// SetName handles the set_name command.
func (ctx *Context) SetName(pid, name string) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	trimmed := TrimName(name)
	if trimmed == "" {
		return utils.ErrEmptyName
	}
	s.Name = trimmed
	ctx.emitTo(pid, EvtSession, SessionInfo{ID: pid, Name: s.Name})
	ctx.broadcastRoster()
	return nil
}

// JoinSide handles the join_side command. Mid-game the change also moves the
// pid between the committed team sets, which can abandon a team or complete
// the active team's proposal round.
func (ctx *Context) JoinSide(pid, side string) error {
	ctx.latch.Lock()
	err := ctx.joinSide(pid, side)
	job, fin := ctx.prepareFinalize()
	ctx.latch.Unlock()
	if fin {
		ctx.completeFinalize(job)
	}
	return err
}

func (ctx *Context) joinSide(pid, side string) error {
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	switch side {
	case configs.White, configs.Black, configs.Spectator:
	default:
		return utils.ErrUnknownSide
	}
	s.Side = side
	st := ctx.state
	if st.Status != Lobby {
		st.WhiteIDs.Remove(pid)
		st.BlackIDs.Remove(pid)
		if side != configs.Spectator {
			st.teamIDs(side).Add(pid)
		}
	}
	ctx.broadcastRoster()
	ctx.checkAbandonment()
	return nil
}

// Disconnect schedules the grace drop for a pid whose last socket closed.
func (ctx *Context) Disconnect(pid string) {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return
	}
	s.Connected = false
	if s.grace != nil {
		s.grace.Stop()
	}
	s.grace = ctx.clk.AfterFunc(configs.ReconnectGrace, func() {
		ctx.latch.Lock()
		ctx.dropSession(pid)
		job, fin := ctx.prepareFinalize()
		ctx.latch.Unlock()
		if fin {
			ctx.completeFinalize(job)
		}
	})
	configs.DPrintf("disconnected %s, grace %v", pid, configs.ReconnectGrace)
	ctx.broadcastRoster()
}

// dropSession removes a player whose grace period ran out. Their proposals
// stay in the candidate pool; their absence may abandon the team or complete
// the round. Latch must be held.
func (ctx *Context) dropSession(pid string) {
	s, ok := ctx.sessions[pid]
	if !ok || s.Connected {
		return
	}
	s.grace = nil
	delete(ctx.sessions, pid)
	ctx.state.WhiteIDs.Remove(pid)
	ctx.state.BlackIDs.Remove(pid)
	configs.DPrintf("session dropped %s", pid)
	ctx.broadcastRoster()
	ctx.checkAbandonment()
}

// checkAbandonment ends an active game when one side has nobody left.
// Latch must be held.
func (ctx *Context) checkAbandonment() {
	st := ctx.state
	if st.Status != AwaitingProposals && st.Status != FinalizingTurn {
		return
	}
	if winner, gone := TeamAbandoned(st.WhiteIDs, st.BlackIDs); gone {
		ctx.systemChat("The " + Opposite(winner) + " team abandoned the game")
		ctx.endGame(configs.Abandonment, winner)
	}
}

// Chat handles the chat_message command.
func (ctx *Context) Chat(pid, message string) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	if message == "" {
		return nil
	}
	ctx.emit(EvtChat, ChatMessage{Sender: s.Name, SenderID: pid, Message: message})
	return nil
}

// connectedIDs snapshots the pids with a live socket. Latch must be held.
func (ctx *Context) connectedIDs() set.Set {
	res := set.NewSet()
	for pid, s := range ctx.sessions {
		if s.Connected {
			res.Add(pid)
		}
	}
	return res
}

// connectedTeam snapshots the connected members of one side. In the lobby
// the session side is authoritative; once started, the committed sets are.
// Latch must be held.
func (ctx *Context) connectedTeam(side string) set.Set {
	res := set.NewSet()
	for pid, s := range ctx.sessions {
		if !s.Connected {
			continue
		}
		if ctx.sideOf(pid) == side {
			res.Add(pid)
		}
	}
	return res
}

// sideOf resolves a pid's side. Latch must be held.
func (ctx *Context) sideOf(pid string) string {
	st := ctx.state
	if st.Status != Lobby {
		if st.WhiteIDs.Contains(pid) {
			return configs.White
		}
		if st.BlackIDs.Contains(pid) {
			return configs.Black
		}
		return configs.Spectator
	}
	if s, ok := ctx.sessions[pid]; ok {
		return s.Side
	}
	return configs.Spectator
}

// teamSize counts the lobby roster of one side. Latch must be held.
func (ctx *Context) teamSize(side string) int {
	n := 0
	for _, s := range ctx.sessions {
		if s.Side == side {
			n++
		}
	}
	return n
}

// broadcastRoster emits the three player lists. Latch must be held.
func (ctx *Context) broadcastRoster() {
	roster := Roster{
		Spectators:   []RosterEntry{},
		WhitePlayers: []RosterEntry{},
		BlackPlayers: []RosterEntry{},
	}
	pids := make([]string, 0, len(ctx.sessions))
	for pid := range ctx.sessions {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	for _, pid := range pids {
		s := ctx.sessions[pid]
		entry := RosterEntry{ID: pid, Name: s.Name, Connected: s.Connected}
		switch ctx.sideOf(pid) {
		case configs.White:
			roster.WhitePlayers = append(roster.WhitePlayers, entry)
		case configs.Black:
			roster.BlackPlayers = append(roster.BlackPlayers, entry)
		default:
			roster.Spectators = append(roster.Spectators, entry)
		}
	}
	ctx.emit(EvtPlayers, roster)
}
