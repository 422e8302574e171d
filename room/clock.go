package room

import (
	"time"

	"TC/configs"
)

// The game clock decrements the side-to-move's counter once per second while
// proposals are being collected. Ticks serialize onto the room latch like
// every other event.

// startClock begins the countdown and emits the initial snapshot.
// Latch must be held. Running only in AwaitingProposals is the caller's
// contract; a second start while running is a programming error.
func (ctx *Context) startClock() {
	configs.Assert(ctx.state.Status == AwaitingProposals, "clock started outside AwaitingProposals")
	if ctx.clockOn {
		return
	}
	ctx.clockOn = true
	ctx.clockStop = make(chan struct{})
	ctx.emit(EvtClockUpdate, ClockUpdate{WhiteTime: ctx.state.WhiteTime, BlackTime: ctx.state.BlackTime})
	go ctx.runClock(ctx.clockStop)
}

// stopClock is idempotent. Latch must be held.
func (ctx *Context) stopClock() {
	if !ctx.clockOn {
		return
	}
	ctx.clockOn = false
	close(ctx.clockStop)
}

func (ctx *Context) runClock(stop chan struct{}) {
	tk := ctx.clk.Ticker(time.Second)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			ctx.latch.Lock()
			ctx.tick()
			ctx.latch.Unlock()
		}
	}
}

// tick applies one second to the side to move. Latch must be held. A tick
// that raced with a stop is dropped by the clockOn guard.
func (ctx *Context) tick() {
	if !ctx.clockOn || ctx.state.Status != AwaitingProposals {
		return
	}
	st := ctx.state
	if st.Side == configs.White {
		st.WhiteTime--
	} else {
		st.BlackTime--
	}
	ctx.emit(EvtClockUpdate, ClockUpdate{WhiteTime: st.WhiteTime, BlackTime: st.BlackTime})
	if st.WhiteTime <= 0 {
		ctx.endGame(configs.Timeout, configs.Black)
	} else if st.BlackTime <= 0 {
		ctx.endGame(configs.Timeout, configs.White)
	}
}
