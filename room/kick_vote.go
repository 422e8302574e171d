package room

import (
	"fmt"

	"TC/configs"
	"TC/utils"

	set "github.com/deckarep/golang-set"
)

// The kick vote is process-wide: a strict majority of the users connected at
// vote start removes the target and bars their pid for the process lifetime.

// StartKickVote handles the start_kick_vote command. A pass can complete the
// current turn (the target may have been the last holdout), so finalization
// is re-checked outside the latch.
func (ctx *Context) StartKickVote(pid, targetID string) error {
	ctx.latch.Lock()
	err := ctx.startKickVote(pid, targetID)
	job, fin := ctx.prepareFinalize()
	ctx.latch.Unlock()
	if fin {
		ctx.completeFinalize(job)
	}
	return err
}

func (ctx *Context) startKickVote(pid, targetID string) error {
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	if ctx.state.Kick != nil {
		return utils.ErrVoteRunning
	}
	if pid == targetID {
		return utils.ErrSelfKick
	}
	target, ok := ctx.sessions[targetID]
	if !ok {
		return utils.ErrTargetNotFound
	}

	// Snapshot includes the target: they count toward the quorum base but
	// never vote on their own removal.
	connected := ctx.connectedIDs()
	eligible := connected.Clone()
	eligible.Remove(targetID)
	v := &KickVote{
		TargetID:      targetID,
		TargetName:    target.Name,
		InitiatorName: s.Name,
		Eligible:      eligible,
		Yes:           set.NewSet(pid),
		No:            set.NewSet(),
		Required:      KickQuorum(connected.Cardinality()),
		Total:         connected.Cardinality(),
		EndTime:       ctx.clk.Now().Add(configs.KickVoteDuration),
	}
	v.timer = ctx.clk.AfterFunc(configs.KickVoteDuration, func() {
		ctx.latch.Lock()
		ctx.expireKickVote(v)
		ctx.latch.Unlock()
	})
	ctx.state.Kick = v
	configs.DPrintf("kick vote against %s started by %s (required %d of %d)",
		target.Name, s.Name, v.Required, v.Total)
	ctx.systemChat(fmt.Sprintf("%s started a vote to remove %s", s.Name, target.Name))
	ctx.broadcastKickVote()

	// A two-user room cannot out-vote itself: the initiator's own yes may
	// already settle the outcome.
	ctx.settleKickVote(v)
	return nil
}

// CastKickVote handles the vote_kick command. Voters may switch sides until
// the outcome is decided.
func (ctx *Context) CastKickVote(pid string, approve bool) error {
	ctx.latch.Lock()
	err := ctx.castKickVote(pid, approve)
	job, fin := ctx.prepareFinalize()
	ctx.latch.Unlock()
	if fin {
		ctx.completeFinalize(job)
	}
	return err
}

func (ctx *Context) castKickVote(pid string, approve bool) error {
	v := ctx.state.Kick
	if v == nil {
		return utils.ErrNoVoteRunning
	}
	yes, no, outcome := CastMajority(v.Eligible, v.Yes, v.No, v.Required, pid, approve)
	switch outcome {
	case BallotIneligible:
		return utils.ErrNotEligible
	case BallotDuplicate:
		return nil
	}
	v.Yes, v.No = yes, no
	switch outcome {
	case BallotPassed:
		ctx.passKickVote(v)
	case BallotFailed:
		ctx.failKickVote(v, false)
	default:
		ctx.broadcastKickVote()
	}
	return nil
}

// settleKickVote applies the early pass/fail rules against the current
// counts. Latch must be held.
func (ctx *Context) settleKickVote(v *KickVote) {
	if v.Yes.Cardinality() >= v.Required {
		ctx.passKickVote(v)
	} else if v.Eligible.Cardinality()-v.No.Cardinality() < v.Required {
		ctx.failKickVote(v, false)
	}
}

// passKickVote blacklists and disconnects the target. Latch must be held.
func (ctx *Context) passKickVote(v *KickVote) {
	ctx.dropKickVote()
	st := ctx.state
	st.Blacklist.Add(v.TargetID)
	ctx.emitTo(v.TargetID, EvtKicked, Kicked{Message: "You were removed from the room by vote"})
	ctx.trans.Kick(v.TargetID)
	if s, ok := ctx.sessions[v.TargetID]; ok {
		if s.grace != nil {
			s.grace.Stop()
		}
		delete(ctx.sessions, v.TargetID)
	}
	st.WhiteIDs.Remove(v.TargetID)
	st.BlackIDs.Remove(v.TargetID)
	ctx.systemChat(fmt.Sprintf("%s was removed from the room", v.TargetName))
	ctx.broadcastRoster()
	ctx.checkAbandonment()
}

// failKickVote announces the counts and clears the vote. Latch must be held.
func (ctx *Context) failKickVote(v *KickVote, timedOut bool) {
	ctx.dropKickVote()
	verdict := "failed"
	if timedOut {
		verdict = "timed out"
	}
	ctx.systemChat(fmt.Sprintf("The vote to remove %s %s (%d yes, %d no, %d required)",
		v.TargetName, verdict, v.Yes.Cardinality(), v.No.Cardinality(), v.Required))
}

func (ctx *Context) expireKickVote(v *KickVote) {
	if ctx.state.Kick != v {
		return
	}
	ctx.failKickVote(v, true)
}

// dropKickVote cancels the timer and broadcasts the cleared state.
// Latch must be held.
func (ctx *Context) dropKickVote() {
	v := ctx.state.Kick
	if v == nil {
		return
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	ctx.state.Kick = nil
	ctx.broadcastKickVote()
}

// broadcastKickVote sends each connected viewer their personalized view.
// Latch must be held.
func (ctx *Context) broadcastKickVote() {
	for _, pid := range ctx.connectedIDs().ToSlice() {
		ctx.emitTo(pid.(string), EvtKickVote, ctx.kickVotePayload(pid.(string)))
	}
}

func (ctx *Context) kickVotePayload(viewer string) KickVoteUpdate {
	v := ctx.state.Kick
	if v == nil {
		return KickVoteUpdate{IsActive: false}
	}
	res := KickVoteUpdate{
		IsActive:       true,
		TargetID:       v.TargetID,
		TargetName:     v.TargetName,
		InitiatorName:  v.InitiatorName,
		YesCount:       v.Yes.Cardinality(),
		NoCount:        v.No.Cardinality(),
		RequiredVotes:  v.Required,
		Total:          v.Total,
		EndTime:        v.EndTime.UnixMilli(),
		MyVoteEligible: v.Eligible.Contains(viewer),
		AmTarget:       viewer == v.TargetID,
	}
	if v.Yes.Contains(viewer) {
		res.MyCurrentVote = "yes"
	} else if v.No.Contains(viewer) {
		res.MyCurrentVote = "no"
	}
	return res
}
