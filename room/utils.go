package room

import (
	"sync"

	"TC/configs"

	"github.com/benbjohnson/clock"
)

// Test fixtures: an in-memory transport that records every emitted event and
// a scripted engine, wired to a mock clock so tests drive time themselves.

// Emitted is one recorded outbound event. PID is empty for broadcasts.
type Emitted struct {
	PID     string
	Event   string
	Payload interface{}
}

// MemTransport records events instead of writing sockets.
type MemTransport struct {
	latch  sync.Mutex
	Events []Emitted
	Kicked []string
}

func NewMemTransport() *MemTransport {
	return &MemTransport{}
}

func (m *MemTransport) Broadcast(event string, payload interface{}) {
	m.latch.Lock()
	defer m.latch.Unlock()
	m.Events = append(m.Events, Emitted{Event: event, Payload: payload})
}

func (m *MemTransport) SendTo(pid string, event string, payload interface{}) {
	m.latch.Lock()
	defer m.latch.Unlock()
	m.Events = append(m.Events, Emitted{PID: pid, Event: event, Payload: payload})
}

func (m *MemTransport) Kick(pid string) {
	m.latch.Lock()
	defer m.latch.Unlock()
	m.Kicked = append(m.Kicked, pid)
}

// Last returns the most recent payload broadcast under the event name, or
// nil when none was emitted.
func (m *MemTransport) Last(event string) interface{} {
	m.latch.Lock()
	defer m.latch.Unlock()
	for i := len(m.Events) - 1; i >= 0; i-- {
		if m.Events[i].Event == event && m.Events[i].PID == "" {
			return m.Events[i].Payload
		}
	}
	return nil
}

// Count returns how many events with the name were emitted, broadcasts and
// directed sends alike.
func (m *MemTransport) Count(event string) int {
	m.latch.Lock()
	defer m.latch.Unlock()
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

// StubEngine is a scripted MoveSelector. Without a Choice func it plays the
// first candidate, which matches real engine behaviour for singleton pools.
type StubEngine struct {
	Choice   func(fen string, candidates []string) (string, error)
	Queries  [][]string
	NewGames int
	Quits    int
}

func (e *StubEngine) ChooseBestMove(fen string, candidates []string) (string, error) {
	e.Queries = append(e.Queries, candidates)
	if e.Choice != nil {
		return e.Choice(fen, candidates)
	}
	return candidates[0], nil
}

func (e *StubEngine) NewGame() error {
	e.NewGames++
	return nil
}

func (e *StubEngine) Quit() {
	e.Quits++
}

// TestKit builds a room on a mock clock with a recording transport and a
// scripted engine. The same stub instance survives resets so tests can count
// lifecycle calls.
func TestKit() (*Context, *MemTransport, *clock.Mock, *StubEngine) {
	trans := NewMemTransport()
	eng := &StubEngine{}
	mc := clock.NewMock()
	ctx, err := NewContext(trans, func() (MoveSelector, error) { return eng, nil }, mc)
	configs.CheckError(err)
	return ctx, trans, mc, eng
}

// Seat connects a pid under a name and places it on a side.
func Seat(ctx *Context, pid, name, side string) {
	_, err := ctx.Connect(pid, name)
	configs.CheckError(err)
	configs.CheckError(ctx.JoinSide(pid, side))
}
