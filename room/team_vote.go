package room

import (
	"fmt"
	"sort"

	"TC/configs"
	"TC/utils"

	set "github.com/deckarep/golang-set"
)

// Team votes: resign, offer_draw and accept_draw, each unanimous among the
// teammates connected when the vote opened.

// StartTeamVote handles the start_team_vote command for a connected player.
func (ctx *Context) StartTeamVote(pid, voteType string) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	side := ctx.sideOf(pid)
	if side != configs.White && side != configs.Black {
		return utils.ErrNotEligible
	}
	return ctx.startTeamVote(side, s.Name, pid, voteType, false)
}

// startTeamVote is the single entry point for both player-initiated and
// system-triggered team votes; the auto-execute shortcut for solo teams
// lives here and nowhere else. Latch must be held.
func (ctx *Context) startTeamVote(side, initiatorName, initiatorID, voteType string, system bool) error {
	st := ctx.state
	if st.Status != AwaitingProposals {
		return utils.ErrNotAccepting
	}
	switch voteType {
	case configs.VoteResign, configs.VoteOfferDraw, configs.VoteAcceptDraw:
	default:
		return utils.ErrUnknownVote
	}
	if st.teamVote(side) != nil {
		return utils.ErrVoteRunning
	}
	if voteType == configs.VoteOfferDraw && st.DrawOffer != "" {
		return utils.ErrDrawPending
	}
	if voteType == configs.VoteAcceptDraw && st.DrawOffer != Opposite(side) {
		return utils.ErrNoDrawOffer
	}

	eligible := ctx.connectedTeam(side)
	if !system && eligible.Cardinality() <= 1 {
		// A solo team does not vote against itself.
		ctx.executeTeamAction(side, voteType)
		return nil
	}

	v := &TeamVote{
		Type:          voteType,
		Side:          side,
		InitiatorName: initiatorName,
		System:        system,
		Eligible:      eligible,
		Yes:           set.NewSet(),
		Required:      eligible.Cardinality(),
		EndTime:       ctx.clk.Now().Add(configs.TeamVoteDuration),
	}
	if !system {
		v.Yes.Add(initiatorID)
	}
	v.timer = ctx.clk.AfterFunc(configs.TeamVoteDuration, func() {
		ctx.latch.Lock()
		ctx.expireTeamVote(side, v)
		ctx.latch.Unlock()
	})
	st.setTeamVote(side, v)
	configs.DPrintf("%s vote started on %s (required %d)", voteType, side, v.Required)
	ctx.broadcastTeamVote(side)

	// A one-member system vote still must not auto-execute, but the
	// initiator shortcut can already satisfy unanimity.
	if v.Yes.Cardinality() >= v.Required {
		ctx.passTeamVote(side, v)
	}
	return nil
}

// CastTeamVote handles the vote_team command.
func (ctx *Context) CastTeamVote(pid string, approve bool) error {
	ctx.latch.Lock()
	defer ctx.latch.Unlock()
	side := ctx.sideOf(pid)
	if side != configs.White && side != configs.Black {
		return utils.ErrNotEligible
	}
	v := ctx.state.teamVote(side)
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
		ctx.failTeamVote(side, v, false)
	case BallotPassed:
		v.Yes = yes
		ctx.passTeamVote(side, v)
	default:
		v.Yes = yes
		ctx.broadcastTeamVote(side)
	}
	return nil
}

// passTeamVote executes the voted action. Latch must be held.
func (ctx *Context) passTeamVote(side string, v *TeamVote) {
	ctx.dropTeamVote(side)
	ctx.systemChat(fmt.Sprintf("The %s team vote passed: %s", side, v.Type))
	ctx.executeTeamAction(side, v.Type)
}

// failTeamVote clears a vote that got a no or timed out. Latch must be held.
func (ctx *Context) failTeamVote(side string, v *TeamVote, timedOut bool) {
	ctx.dropTeamVote(side)
	if timedOut {
		ctx.systemChat(fmt.Sprintf("The %s team vote timed out: %s", side, v.Type))
	} else {
		ctx.systemChat(fmt.Sprintf("The %s team vote was rejected: %s", side, v.Type))
	}
	if v.Type == configs.VoteAcceptDraw && ctx.state.DrawOffer != "" {
		ctx.clearDrawOffer()
		ctx.systemChat("The draw offer was declined")
	}
}

func (ctx *Context) expireTeamVote(side string, v *TeamVote) {
	if ctx.state.teamVote(side) != v {
		return
	}
	ctx.failTeamVote(side, v, true)
}

// executeTeamAction performs the action behind a passed (or auto-executed)
// vote. Latch must be held.
func (ctx *Context) executeTeamAction(side, voteType string) {
	st := ctx.state
	switch voteType {
	case configs.VoteResign:
		ctx.systemChat(fmt.Sprintf("The %s team resigns", side))
		ctx.endGame(configs.Resignation, Opposite(side))
	case configs.VoteOfferDraw:
		st.DrawOffer = side
		ctx.emit(EvtDrawOffer, DrawOfferUpdate{Side: winnerPtr(side)})
		ctx.systemChat(fmt.Sprintf("The %s team offers a draw", side))
		// The opposite team now votes on acceptance; yes starts empty. The
		// start can be refused when that team already runs a vote; the offer
		// stays pending and they may accept by hand.
		if err := ctx.startTeamVote(Opposite(side), "System", "", configs.VoteAcceptDraw, true); err != nil {
			configs.Warn(false, "system accept_draw vote not started: "+err.Error())
		}
	case configs.VoteAcceptDraw:
		ctx.endGame(configs.DrawAgreement, "")
	}
}

// dropTeamVote cancels the timer and broadcasts the cleared state.
// Latch must be held.
func (ctx *Context) dropTeamVote(side string) {
	v := ctx.state.teamVote(side)
	if v == nil {
		return
	}
	if v.timer != nil {
		v.timer.Stop()
	}
	ctx.state.setTeamVote(side, nil)
	ctx.broadcastTeamVote(side)
}

// clearDrawOffer resets the pending offer and tells everyone.
// Latch must be held.
func (ctx *Context) clearDrawOffer() {
	ctx.state.DrawOffer = ""
	ctx.emit(EvtDrawOffer, DrawOfferUpdate{Side: nil})
}

// broadcastTeamVote sends the vote state to the voting team only.
// Latch must be held.
func (ctx *Context) broadcastTeamVote(side string) {
	payload := ctx.teamVotePayload(side)
	for _, pid := range ctx.connectedTeam(side).ToSlice() {
		ctx.emitTo(pid.(string), EvtTeamVote, payload)
	}
}

func (ctx *Context) teamVotePayload(side string) TeamVoteUpdate {
	v := ctx.state.teamVote(side)
	if v == nil {
		return TeamVoteUpdate{IsActive: false}
	}
	yes := make([]string, 0, v.Yes.Cardinality())
	for _, pid := range v.Yes.ToSlice() {
		if s, ok := ctx.sessions[pid.(string)]; ok {
			yes = append(yes, s.Name)
		}
	}
	sort.Strings(yes)
	return TeamVoteUpdate{
		IsActive:      true,
		Type:          v.Type,
		InitiatorName: v.InitiatorName,
		YesVotes:      yes,
		RequiredVotes: v.Required,
		EndTime:       v.EndTime.UnixMilli(),
	}
}
