package room

import (
	"testing"

	"TC/configs"
	"TC/utils"

	"github.com/stretchr/testify/assert"
)

func TestFoolsMateFinalization(t *testing.T) {
	ctx, trans, _, eng := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)

	assert.NoError(t, ctx.SubmitProposal("A", "f2f3"))
	assert.Equal(t, AwaitingProposals, ctx.state.Status)
	assert.Equal(t, configs.Black, ctx.state.Side)
	assert.NoError(t, ctx.SubmitProposal("B", "e7e5"))
	assert.NoError(t, ctx.SubmitProposal("A", "g2g4"))
	assert.NoError(t, ctx.SubmitProposal("B", "d8h4"))

	assert.Equal(t, Over, ctx.state.Status)
	assert.Equal(t, configs.Checkmate, ctx.state.EndReason)
	assert.Equal(t, configs.Black, ctx.state.EndWinner)

	over, ok := trans.Last(EvtGameOver).(GameOver)
	assert.True(t, ok)
	assert.Equal(t, configs.Checkmate, over.Reason)
	assert.Equal(t, configs.Black, *over.Winner)
	assert.NotEmpty(t, over.PGN)

	// Solo teams produce singleton candidate pools: no engine query at all.
	assert.Empty(t, eng.Queries)
	assert.Equal(t, 1, eng.Quits)
}

func TestLobbyStartRules(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)

	// No black team yet.
	assert.ErrorIs(t, ctx.SubmitProposal("A", "e2e4"), utils.ErrBothTeamsNeeded)

	Seat(ctx, "B", "Bob", configs.Black)
	assert.ErrorIs(t, ctx.SubmitProposal("B", "e7e5"), utils.ErrOnlyWhiteStarts)
	assert.Equal(t, Lobby, ctx.state.Status)

	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.True(t, ctx.state.WhiteIDs.Contains("A"))
	assert.True(t, ctx.state.BlackIDs.Contains("B"))
}

func TestProposalValidation(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "A2", "Ann", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)

	assert.ErrorIs(t, ctx.SubmitProposal("A", "nonsense"), utils.ErrIllegalFormat)
	assert.ErrorIs(t, ctx.SubmitProposal("A", "e2e5"), utils.ErrIllegalMove)

	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.ErrorIs(t, ctx.SubmitProposal("A", "d2d4"), utils.ErrAlreadyMoved)
	assert.ErrorIs(t, ctx.SubmitProposal("B", "e7e5"), utils.ErrNotYourTurn)

	assert.NoError(t, ctx.SubmitProposal("A2", "e2e4"))
	assert.Equal(t, configs.Black, ctx.state.Side)
}

func TestEngineSelectsAmongCandidates(t *testing.T) {
	ctx, trans, _, eng := TestKit()
	eng.Choice = func(fen string, candidates []string) (string, error) {
		return "d2d4", nil
	}
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "A2", "Ann", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)

	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.NoError(t, ctx.SubmitProposal("A2", "d2d4"))

	assert.Equal(t, [][]string{{"e2e4", "d2d4"}}, eng.Queries)
	sel, ok := trans.Last(EvtMoveSelected).(MoveSelected)
	assert.True(t, ok)
	assert.Equal(t, "d2d4", sel.LAN)
	assert.Equal(t, "Ann", sel.Name)
	assert.Equal(t, "A2", sel.ID)
	assert.Equal(t, []string{"e2e4", "d2d4"}, sel.Candidates)
	assert.Equal(t, 2, ctx.state.MoveNumber)
	assert.Equal(t, configs.Black, ctx.state.Side)
}

func TestEngineFailureRevertsTurn(t *testing.T) {
	ctx, trans, _, eng := TestKit()
	eng.Choice = func(fen string, candidates []string) (string, error) {
		return "", utils.ErrEngineTimeout
	}
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "A2", "Ann", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)

	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.NoError(t, ctx.SubmitProposal("A2", "d2d4"))

	// The turn backs out to proposal collection with the pool intact.
	assert.Equal(t, AwaitingProposals, ctx.state.Status)
	assert.Equal(t, 1, ctx.state.MoveNumber)
	assert.Equal(t, 2, len(ctx.state.Proposals))
	status, ok := trans.Last(EvtStatusUpdate).(StatusUpdate)
	assert.True(t, ok)
	assert.Equal(t, "awaiting_proposals", status.Status)
	assert.True(t, ctx.clockOn)
}

func TestOfflineProposerSingletonShortcut(t *testing.T) {
	ctx, _, _, eng := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bea", configs.White)
	Seat(ctx, "C", "Carl", configs.Black)

	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.Equal(t, AwaitingProposals, ctx.state.Status)

	// B leaves and their grace runs out; A is the only online white and has
	// already proposed, so the turn finalizes without an engine query.
	ctx.Disconnect("B")
	ctx.latch.Lock()
	ctx.dropSession("B")
	job, fin := ctx.prepareFinalize()
	ctx.latch.Unlock()
	assert.True(t, fin)
	ctx.completeFinalize(job)

	assert.Empty(t, eng.Queries)
	assert.Equal(t, configs.Black, ctx.state.Side)
	assert.Equal(t, 2, ctx.state.MoveNumber)
}

func TestTimeoutLoss(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)
	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))
	assert.Equal(t, configs.Black, ctx.state.Side)

	for i := 0; i < configs.DefaultClockSeconds; i++ {
		ctx.latch.Lock()
		ctx.tick()
		ctx.latch.Unlock()
	}

	assert.Equal(t, Over, ctx.state.Status)
	assert.Equal(t, configs.Timeout, ctx.state.EndReason)
	assert.Equal(t, configs.White, ctx.state.EndWinner)
	over := trans.Last(EvtGameOver).(GameOver)
	assert.Equal(t, configs.White, *over.Winner)
	assert.Equal(t, 0, ctx.state.BlackTime)
}

func TestLowTimeIncrement(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)
	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))

	// Burn black down to the threshold, then move.
	ctx.latch.Lock()
	ctx.state.BlackTime = configs.LowTimeThreshold
	ctx.latch.Unlock()
	assert.NoError(t, ctx.SubmitProposal("B", "e7e5"))
	assert.Equal(t, configs.LowTimeThreshold+configs.LowTimeIncrement, ctx.state.BlackTime)

	// Above the threshold no time is credited.
	assert.Equal(t, configs.DefaultClockSeconds, ctx.state.WhiteTime)
}

func TestEndGameIdempotent(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bob", configs.Black)
	assert.NoError(t, ctx.SubmitProposal("A", "e2e4"))

	ctx.latch.Lock()
	ctx.endGame(configs.Abandonment, configs.White)
	ctx.endGame(configs.Abandonment, configs.White)
	ctx.latch.Unlock()

	assert.Equal(t, Over, ctx.state.Status)
	assert.Equal(t, 1, trans.Count(EvtGameOver))
	assert.ErrorIs(t, ctx.SubmitProposal("B", "e7e5"), utils.ErrGameOver)
}
