package room

import (
	"sort"

	"TC/configs"
	"TC/utils"

	"github.com/notnil/chess"
)

// finalizeJob is the snapshot handed to the engine wait. It is taken under
// the latch; resolveTurn re-checks the epoch so a reset in the gap voids it.
type finalizeJob struct {
	epoch      uint64
	fen        string
	candidates []string
	engine     MoveSelector
}

// SubmitProposal handles the play_move command: validate, record, broadcast,
// and finalize the turn once every online teammate has proposed.
func (ctx *Context) SubmitProposal(pid, lan string) error {
	ctx.latch.Lock()
	err := ctx.submitProposal(pid, lan)
	job, fin := ctx.prepareFinalize()
	ctx.latch.Unlock()
	if fin {
		ctx.completeFinalize(job)
	}
	return err
}

func (ctx *Context) submitProposal(pid, lan string) error {
	s, ok := ctx.sessions[pid]
	if !ok {
		return utils.ErrUnknownUser
	}
	st := ctx.state
	switch st.Status {
	case Over:
		return utils.ErrGameOver
	case FinalizingTurn:
		return utils.ErrNotAccepting
	case Lobby:
		// The first proposal from a white player is the game-start signal.
		if s.Side != configs.White {
			return utils.ErrOnlyWhiteStarts
		}
		if ctx.teamSize(configs.Black) == 0 {
			return utils.ErrBothTeamsNeeded
		}
	default:
		if !st.teamIDs(st.Side).Contains(pid) {
			return utils.ErrNotYourTurn
		}
		if _, dup := st.Proposals[pid]; dup {
			return utils.ErrAlreadyMoved
		}
	}

	// Validation reads a snapshot of the position; the board is not touched
	// until the turn is finalized.
	if len(lan) < 4 || len(lan) > 5 {
		return utils.ErrIllegalFormat
	}
	pos := st.Game.Position()
	move, err := chess.UCINotation{}.Decode(pos, lan)
	if err != nil {
		return utils.ErrIllegalMove
	}
	san := chess.AlgebraicNotation{}.Encode(pos, move)

	if st.Status == Lobby {
		ctx.startGame()
	}

	st.Proposals[pid] = &Proposal{LAN: lan, SAN: san, Name: s.Name, Seq: st.nextSeq}
	st.nextSeq++
	configs.TPrintf("proposal %s by %s (%s)", lan, s.Name, pid)

	// An open draw offer from the opponents does not survive the proposing
	// team playing on.
	if st.DrawOffer != "" && st.DrawOffer == Opposite(st.Side) {
		ctx.clearDrawOffer()
		if v := st.teamVote(st.Side); v != nil && v.Type == configs.VoteAcceptDraw {
			ctx.dropTeamVote(st.Side)
		}
	}

	ctx.emit(EvtMoveSubmit, SubmittedMove{
		ID:         pid,
		Name:       s.Name,
		MoveNumber: st.MoveNumber,
		Side:       st.Side,
		LAN:        lan,
		SAN:        san,
	})
	return nil
}

// startGame commits the lobby rosters into team id sets and opens the first
// turn. Latch must be held.
func (ctx *Context) startGame() {
	st := ctx.state
	for pid, s := range ctx.sessions {
		switch s.Side {
		case configs.White:
			st.WhiteIDs.Add(pid)
		case configs.Black:
			st.BlackIDs.Add(pid)
		}
	}
	st.Status = AwaitingProposals
	ctx.emit(EvtStatusUpdate, StatusUpdate{Status: StatusString(st.Status)})
	ctx.emit(EvtGameStarted, GameStarted{
		MoveNumber: st.MoveNumber,
		Side:       st.Side,
		Proposals:  ctx.proposalList(),
	})
	ctx.startClock()
}

// prepareFinalize atomically enters FinalizingTurn when the predicate holds
// and snapshots everything the engine wait needs. Latch must be held.
func (ctx *Context) prepareFinalize() (finalizeJob, bool) {
	st := ctx.state
	if !FinalizationReady(st.Status, st.teamIDs(st.Side), ctx.connectedIDs(), st.Proposals) {
		return finalizeJob{}, false
	}
	st.Status = FinalizingTurn
	ctx.stopClock()
	ctx.emit(EvtStatusUpdate, StatusUpdate{Status: StatusString(st.Status)})
	return finalizeJob{
		epoch:      st.Epoch,
		fen:        st.fen(),
		candidates: st.candidates(),
		engine:     ctx.engine,
	}, true
}

// completeFinalize runs outside the latch: the engine query is the room's
// only suspension point. The FinalizingTurn status blocks re-entry meanwhile.
func (ctx *Context) completeFinalize(job finalizeJob) {
	var choice string
	var err error
	if len(job.candidates) == 1 {
		// A single distinct candidate needs no engine query.
		choice = job.candidates[0]
	} else if job.engine == nil {
		err = utils.ErrEngineGone
	} else {
		choice, err = job.engine.ChooseBestMove(job.fen, job.candidates)
	}
	ctx.latch.Lock()
	ctx.resolveTurn(job.epoch, choice, err)
	ctx.latch.Unlock()
}

// resolveTurn applies the selected move and advances or ends the game.
// Latch must be held.
func (ctx *Context) resolveTurn(epoch uint64, choice string, err error) {
	st := ctx.state
	if st.Epoch != epoch || st.Status != FinalizingTurn {
		configs.TPrintf("dropping stale finalization for epoch %d", epoch)
		return
	}
	if err != nil {
		ctx.revertFinalize("engine selection failed: " + err.Error())
		return
	}
	pos := st.Game.Position()
	move, decErr := chess.UCINotation{}.Decode(pos, choice)
	if decErr != nil {
		ctx.revertFinalize("engine returned unplayable move " + choice)
		return
	}
	san := chess.AlgebraicNotation{}.Encode(pos, move)
	mover := st.Side
	moveNumber := st.MoveNumber
	candidates := st.candidates()
	if e := st.Game.Move(move); e != nil {
		ctx.revertFinalize("rules library rejected " + choice)
		return
	}

	winnerID, winnerProp := st.winningProposal(choice)
	winnerName := ""
	if winnerProp != nil {
		winnerName = winnerProp.Name
	}

	st.addTime(mover, ClockIncrement(st.remainingTime(mover)))

	ctx.emit(EvtMoveSelected, MoveSelected{
		SubmittedMove: SubmittedMove{
			ID:         winnerID,
			Name:       winnerName,
			MoveNumber: moveNumber,
			Side:       mover,
			LAN:        choice,
			SAN:        san,
		},
		FEN:        st.fen(),
		Candidates: candidates,
	})
	ctx.emit(EvtClockUpdate, ClockUpdate{WhiteTime: st.WhiteTime, BlackTime: st.BlackTime})
	ctx.emit(EvtPosition, PositionUpdate{FEN: st.fen()})

	if st.Game.Outcome() == chess.NoOutcome {
		for _, m := range st.Game.EligibleDraws() {
			if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
				configs.CheckError(st.Game.Draw(m))
				break
			}
		}
	}
	if st.Game.Outcome() != chess.NoOutcome {
		reason, winner := terminalReason(st.Game.Method(), mover)
		ctx.endGame(reason, winner)
		return
	}

	st.Proposals = make(map[string]*Proposal)
	st.nextSeq = 0
	st.Side = Opposite(st.Side)
	st.MoveNumber++
	st.Status = AwaitingProposals
	ctx.emit(EvtTurnChange, TurnChange{MoveNumber: st.MoveNumber, Side: st.Side})
	ctx.startClock()
}

// revertFinalize backs out of FinalizingTurn without advancing the turn.
// The status broadcast keeps clients from being stuck on a stale status.
func (ctx *Context) revertFinalize(why string) {
	st := ctx.state
	configs.Warn(false, why)
	configs.DPrintf("turn finalization aborted: %s", why)
	st.Status = AwaitingProposals
	ctx.emit(EvtStatusUpdate, StatusUpdate{Status: StatusString(st.Status)})
	ctx.startClock()
}

func terminalReason(method chess.Method, mover string) (string, string) {
	switch method {
	case chess.Checkmate:
		return configs.Checkmate, mover
	case chess.Stalemate:
		return configs.Stalemate, ""
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return configs.ThreefoldRepetition, ""
	case chess.FiftyMoveRule, chess.SeventyFiveMoveRule:
		return configs.FiftyMoveRule, ""
	case chess.InsufficientMaterial:
		return configs.InsufficientMaterial, ""
	default:
		configs.Assert(false, "unexpected terminal method")
		return "", ""
	}
}

// endGame freezes the room in a terminal state. Idempotent: a second call is
// a no-op. Latch must be held.
func (ctx *Context) endGame(reason, winner string) {
	st := ctx.state
	if st.Status == Over {
		return
	}
	ctx.stopClock()

	// Every running vote dies with the game, with a visible clear.
	for _, side := range []string{configs.White, configs.Black} {
		if st.teamVote(side) != nil {
			ctx.dropTeamVote(side)
		}
	}
	if st.Kick != nil {
		ctx.dropKickVote()
	}
	if st.Reset != nil {
		ctx.dropResetVote()
	}
	if st.DrawOffer != "" {
		ctx.clearDrawOffer()
	}

	// Record the result on the scoresheet where the library has no built-in
	// terminal for the reason.
	switch reason {
	case configs.Resignation, configs.Timeout, configs.Abandonment:
		loser := chess.White
		if winner == configs.White {
			loser = chess.Black
		}
		st.Game.Resign(loser)
	case configs.DrawAgreement:
		configs.CheckError(st.Game.Draw(chess.DrawOffer))
	}

	if ctx.engine != nil {
		ctx.engine.Quit()
		ctx.engine = nil
	}

	st.Status = Over
	st.EndReason = reason
	st.EndWinner = winner
	ctx.emit(EvtStatusUpdate, StatusUpdate{Status: StatusString(st.Status)})
	ctx.emit(EvtGameOver, GameOver{Reason: reason, Winner: winnerPtr(winner), PGN: st.Game.String()})
	ctx.systemChat("Game over: " + reason)
}

func winnerPtr(winner string) *string {
	if winner == "" {
		return nil
	}
	return &winner
}

func (ctx *Context) proposalList() []SubmittedMove {
	st := ctx.state
	res := make([]SubmittedMove, 0, len(st.Proposals))
	for pid, p := range st.Proposals {
		res = append(res, SubmittedMove{
			ID:         pid,
			Name:       p.Name,
			MoveNumber: st.MoveNumber,
			Side:       st.Side,
			LAN:        p.LAN,
			SAN:        p.SAN,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		return st.Proposals[res[i].ID].Seq < st.Proposals[res[j].ID].Seq
	})
	return res
}
