package room

import (
	"fmt"

	"TC/configs"
	"TC/utils"

	set "github.com/deckarep/golang-set"
)

// The reset vote is process-wide and unanimous among everyone connected at
// vote start. A solo user resets immediately, without a timer.

// StartResetVote handles the start_reset_vote command.
func (ctx *Context) StartResetVote(pid string) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	if ctx.state.Reset != nil {
		return utils.ErrVoteRunning
	}
	eligible := ctx.connectedIDs()
	if eligible.Cardinality() <= 1 {
		ctx.systemChat(fmt.Sprintf("%s reset the game", s.Name))
		ctx.doReset()
		return nil
	}
	v := &ResetVote{
		InitiatorName: s.Name,
		Eligible:      eligible,
		Yes:           set.NewSet(pid),
		Required:      eligible.Cardinality(),
		EndTime:       ctx.clk.Now().Add(configs.ResetVoteDuration),
	}
	v.timer = ctx.clk.AfterFunc(configs.ResetVoteDuration, func() {
		ctx.latch.Lock()
		ctx.expireResetVote(v)
		ctx.latch.Unlock()
	})
	ctx.state.Reset = v
	ctx.systemChat(fmt.Sprintf("%s started a vote to reset the game", s.Name))
	ctx.broadcastResetVote()
	return nil
}

// CastResetVote handles the vote_reset command.
func (ctx *Context) CastResetVote(pid string, approve bool) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	v := ctx.state.Reset
	if v == nil {
		return utils.ErrNoVoteRunning
	}
	yes, outcome := CastUnanimous(v.Eligible, v.Yes, v.Required, pid, approve)
	switch outcome {
	case BallotIneligible:
		return utils.ErrNotEligible
	case BallotDuplicate:
		return nil
	case BallotFailed:
		ctx.dropResetVote()
		ctx.systemChat(fmt.Sprintf("The reset vote was rejected (%d of %d agreed)",
			v.Yes.Cardinality(), v.Required))
	case BallotPassed:
		v.Yes = yes
		ctx.dropResetVote()
		ctx.systemChat("The reset vote passed")
		ctx.doReset()
	default:
		v.Yes = yes
		ctx.broadcastResetVote()
	}
	return nil
}

func (ctx *Context) expireResetVote(v *ResetVote) {
	if ctx.state.Reset != v {
		return
	}
	ctx.dropResetVote()
	ctx.systemChat(fmt.Sprintf("The reset vote timed out (%d of %d agreed)",
		v.Yes.Cardinality(), v.Required))
}

// dropResetVote cancels the timer and broadcasts the cleared state.
// Latch must be held.
func (ctx *Context) dropResetVote() {
	v := ctx.state.Reset
	if v == nil {
		return
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	ctx.state.Reset = nil
	ctx.broadcastResetVote()
}

// doReset rebuilds the room, carrying over only the blacklist and the
// sessions. A fresh engine instance replaces the old one. Latch must be held.
func (ctx *Context) doReset() {
	ctx.stopClock()
	ctx.cancelAllTimers()
	if ctx.engine != nil {
		ctx.engine.Quit()
		ctx.engine = nil
	}

	old := ctx.state
	ctx.state = newGameState(old.Blacklist, old.Epoch+1)

	eng, err := ctx.spawn()
	if err != nil {
		// The room stays playable as a lobby; the next reset retries.
		configs.Warn(false, "engine respawn failed: "+err.Error())
	} else {
		ctx.engine = eng
		if err := eng.NewGame(); err != nil {
			configs.Warn(false, "engine newgame failed: "+err.Error())
		}
	}

	ctx.emit(EvtGameReset, struct{}{})
	ctx.emit(EvtStatusUpdate, StatusUpdate{Status: StatusString(ctx.state.Status)})
	ctx.emit(EvtClockUpdate, ClockUpdate{WhiteTime: ctx.state.WhiteTime, BlackTime: ctx.state.BlackTime})
	ctx.emit(EvtDrawOffer, DrawOfferUpdate{Side: nil})
	for _, side := range []string{configs.White, configs.Black} {
		ctx.broadcastTeamVote(side)
	}
	ctx.broadcastKickVote()
	ctx.broadcastResetVote()
}

// broadcastResetVote sends each connected viewer their personalized view.
// Latch must be held.
func (ctx *Context) broadcastResetVote() {
	for _, pid := range ctx.connectedIDs().ToSlice() {
		ctx.emitTo(pid.(string), EvtResetVote, ctx.resetVotePayload(pid.(string)))
	}
}

func (ctx *Context) resetVotePayload(viewer string) ResetVoteUpdate {
	v := ctx.state.Reset
	if v == nil {
		return ResetVoteUpdate{IsActive: false}
	}
	res := ResetVoteUpdate{
		IsActive:       true,
		InitiatorName:  v.InitiatorName,
		YesCount:       v.Yes.Cardinality(),
		RequiredVotes:  v.Required,
		EndTime:        v.EndTime.UnixMilli(),
		MyVoteEligible: v.Eligible.Contains(viewer),
	}
	if v.Yes.Contains(viewer) {
		res.MyCurrentVote = "yes"
	}
	return res
}
