package room

import (
	"TC/configs"

	"github.com/benbjohnson/clock"
	set "github.com/deckarep/golang-set"
	lock "github.com/viney-shih/go-lock"
)

// MoveSelector is the analysis engine seen by the room: given a position and
// the proposed candidates, it picks the move to play.
type MoveSelector interface {
	ChooseBestMove(fen string, candidates []string) (string, error)
	NewGame() error
	Quit()
}

// EngineFactory spawns a fresh engine instance. Called at start-up and on
// every reset; the previous instance is quit first.
type EngineFactory func() (MoveSelector, error)

// Context is the room singleton: one per process, all state behind one latch.
// Inbound commands, timer callbacks and the clock tick all serialize on it,
// so handlers never observe partial mutations.
type Context struct {
	latch lock.Mutex
	clk   clock.Clock
	trans Transport
	spawn EngineFactory

	engine   MoveSelector
	state    *GameState
	sessions map[string]*Session
	journal  *Journal

	clockOn   bool
	clockStop chan struct{}
}

// NewContext wires a room. The transport is injected so tests can assert on
// an event log instead of sockets; the clock is injected so tests can drive
// time.
func NewContext(trans Transport, spawn EngineFactory, clk clock.Clock) (*Context, error) {
	eng, err := spawn()
	if err != nil {
		return nil, err
	}
	ctx := &Context{
		latch:    lock.NewCASMutex(),
		clk:      clk,
		trans:    trans,
		spawn:    spawn,
		engine:   eng,
		state:    newGameState(set.NewSet(), 0),
		sessions: make(map[string]*Session),
		journal:  NewJournal(),
	}
	return ctx, nil
}

// Close shuts the room down: clock, timers, engine, journal.
func (ctx *Context) Close() {
	ctx.latch.Lock()
	ctx.stopClock()
	ctx.cancelAllTimers()
	for _, s := range ctx.sessions {
		if s.grace != nil {
			s.grace.Stop()
			s.grace = nil
		}
	}
	if ctx.engine != nil {
		ctx.engine.Quit()
		ctx.engine = nil
	}
	ctx.latch.Unlock()
	ctx.journal.Close()
}

// emit broadcasts an event to everyone and appends it to the journal.
func (ctx *Context) emit(event string, payload interface{}) {
	ctx.journal.Record(event, payload)
	ctx.trans.Broadcast(event, payload)
}

// emitTo sends an event to a single pid's sockets.
func (ctx *Context) emitTo(pid string, event string, payload interface{}) {
	ctx.journal.Record(event+"@"+pid, payload)
	ctx.trans.SendTo(pid, event, payload)
}

// systemChat broadcasts a narrative message from the room itself.
func (ctx *Context) systemChat(msg string) {
	configs.DPrintf("system: %s", msg)
	ctx.emit(EvtChat, ChatMessage{Sender: "System", Message: msg, System: true})
}

// cancelAllTimers walks the four vote timers; called on reset and shutdown so
// no stale deadline can fire into fresh state. Reconnect grace timers are
// deliberately left alone: a player waiting out their grace period keeps
// waiting across a reset.
func (ctx *Context) cancelAllTimers() {
	if v := ctx.state.WhiteVote; v != nil && v.timer != nil {
		v.timer.Stop()
	}
	if v := ctx.state.BlackVote; v != nil && v.timer != nil {
		v.timer.Stop()
	}
	if v := ctx.state.Kick; v != nil && v.timer != nil {
		v.timer.Stop()
	}
	if v := ctx.state.Reset; v != nil && v.timer != nil {
		v.timer.Stop()
	}
}
