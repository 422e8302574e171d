package room

import (
	"strings"
	"testing"

	"TC/configs"
	"TC/utils"

	"github.com/stretchr/testify/assert"
)

func TestConnectMintsIdentity(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	pid, err := ctx.Connect("", "")
	assert.NoError(t, err)
	assert.NotEmpty(t, pid)
	ctx.Sync(pid)

	s := ctx.sessions[pid]
	assert.True(t, strings.HasPrefix(s.Name, "Guest-"))
	assert.Equal(t, configs.Spectator, s.Side)
	assert.True(t, s.Connected)
	assert.Equal(t, 1, trans.Count(EvtSession))
	assert.Equal(t, 1, trans.Count(EvtPlayers))
}

func TestConnectAdoptsExistingSession(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	ctx.Disconnect("A")
	assert.False(t, ctx.sessions["A"].Connected)
	assert.NotNil(t, ctx.sessions["A"].grace)

	pid, err := ctx.Connect("A", "ignored")
	assert.NoError(t, err)
	assert.Equal(t, "A", pid)
	s := ctx.sessions["A"]
	assert.True(t, s.Connected)
	assert.Nil(t, s.grace)
	assert.Equal(t, "Alice", s.Name)
	assert.Equal(t, configs.White, s.Side)
}

func TestSetName(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)

	assert.ErrorIs(t, ctx.SetName("A", "   "), utils.ErrEmptyName)
	assert.NoError(t, ctx.SetName("A", "  Contessa  "))
	assert.Equal(t, "Contessa", ctx.sessions["A"].Name)
	assert.ErrorIs(t, ctx.SetName("nobody", "X"), utils.ErrUnknownUser)
}

func TestJoinSideValidation(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	assert.ErrorIs(t, ctx.JoinSide("A", "red"), utils.ErrUnknownSide)
	assert.NoError(t, ctx.JoinSide("A", configs.Black))
	assert.Equal(t, configs.Black, ctx.sessions["A"].Side)
}

func TestGraceDropRemovesSession(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bea", configs.Black)

	ctx.Disconnect("B")
	ctx.latch.Lock()
	ctx.dropSession("B")
	ctx.latch.Unlock()

	_, there := ctx.sessions["B"]
	assert.False(t, there)
	roster := trans.Last(EvtPlayers).(Roster)
	assert.Equal(t, 0, len(roster.BlackPlayers))
	assert.Equal(t, 1, len(roster.WhitePlayers))
}

func TestGraceDropSkipsReconnected(t *testing.T) {
	ctx, _, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	ctx.Disconnect("A")
	_, err := ctx.Connect("A", "")
	assert.NoError(t, err)

	// A stale grace expiry must not drop the re-admitted session.
	ctx.latch.Lock()
	ctx.dropSession("A")
	ctx.latch.Unlock()
	_, there := ctx.sessions["A"]
	assert.True(t, there)
}

func TestAbandonmentBySideSwitch(t *testing.T) {
	ctx, _, _, _ := TestKit()
	startSoloGame(t, ctx)

	assert.NoError(t, ctx.JoinSide("B", configs.Spectator))
	assert.Equal(t, Over, ctx.state.Status)
	assert.Equal(t, configs.Abandonment, ctx.state.EndReason)
	assert.Equal(t, configs.White, ctx.state.EndWinner)
}

func TestAbandonmentByGraceDrop(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	startSoloGame(t, ctx)

	ctx.Disconnect("B")
	assert.Equal(t, AwaitingProposals, ctx.state.Status)

	ctx.latch.Lock()
	ctx.dropSession("B")
	ctx.latch.Unlock()
	assert.Equal(t, Over, ctx.state.Status)
	assert.Equal(t, configs.Abandonment, ctx.state.EndReason)
	over := trans.Last(EvtGameOver).(GameOver)
	assert.Equal(t, configs.White, *over.Winner)
}

func TestSnapshotReplaysGameState(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	startSoloGame(t, ctx)

	pid, err := ctx.Connect("S", "Sam")
	assert.NoError(t, err)
	ctx.Sync(pid)

	var events []string
	for _, e := range trans.Events {
		if e.PID == "S" {
			events = append(events, e.Event)
		}
	}
	assert.Contains(t, events, EvtSession)
	assert.Contains(t, events, EvtStatusUpdate)
	assert.Contains(t, events, EvtClockUpdate)
	assert.Contains(t, events, EvtGameStarted)
	assert.Contains(t, events, EvtPosition)
	assert.NotContains(t, events, EvtGameOver)
}

func TestChatBroadcast(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	assert.NoError(t, ctx.Chat("A", "good luck"))
	msg := trans.Last(EvtChat).(ChatMessage)
	assert.Equal(t, "Alice", msg.Sender)
	assert.Equal(t, "good luck", msg.Message)
	assert.False(t, msg.System)
	assert.ErrorIs(t, ctx.Chat("nobody", "hi"), utils.ErrUnknownUser)
}

func TestRosterGrouping(t *testing.T) {
	ctx, trans, _, _ := TestKit()
	Seat(ctx, "A", "Alice", configs.White)
	Seat(ctx, "B", "Bea", configs.Black)
	Seat(ctx, "C", "Carl", configs.Spectator)

	roster := trans.Last(EvtPlayers).(Roster)
	assert.Equal(t, 1, len(roster.WhitePlayers))
	assert.Equal(t, 1, len(roster.BlackPlayers))
	assert.Equal(t, 1, len(roster.Spectators))
	assert.Equal(t, "Alice", roster.WhitePlayers[0].Name)
	assert.True(t, roster.WhitePlayers[0].Connected)
}
