package engine

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeEngine answers the UCI dialogue over plain pipes, standing in for the
// subprocess.
type fakeEngine struct {
	adapter  *Adapter
	commands chan string
}

func fakeKit(t *testing.T, bestmove string) *fakeEngine {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	f := &fakeEngine{commands: make(chan string, 64)}
	go func() {
		scanner := bufio.NewScanner(inR)
		for scanner.Scan() {
			cmd := scanner.Text()
			f.commands <- cmd
			switch {
			case cmd == "uci":
				io.WriteString(outW, "id name faketool\nuciok\n")
			case cmd == "isready":
				io.WriteString(outW, "readyok\n")
			case strings.HasPrefix(cmd, "go "):
				io.WriteString(outW, "info depth 1 score cp 13\nbestmove "+bestmove+"\n")
			case cmd == "quit":
				outW.Close()
				return
			}
		}
	}()
	f.adapter = newAdapter(inW, outR)
	assert.NoError(t, f.adapter.handshake())
	return f
}

func (f *fakeEngine) drain() []string {
	var res []string
	for {
		select {
		case cmd := <-f.commands:
			res = append(res, cmd)
		default:
			return res
		}
	}
}

func TestChooseBestMoveQueriesEngine(t *testing.T) {
	f := fakeKit(t, "d2d4")
	lan, err := f.adapter.ChooseBestMove(
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		[]string{"e2e4", "d2d4"})
	assert.NoError(t, err)
	assert.Equal(t, "d2d4", lan)

	cmds := f.drain()
	assert.Contains(t, cmds, "position fen rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	found := false
	for _, cmd := range cmds {
		if strings.HasPrefix(cmd, "go depth") {
			found = true
			assert.Contains(t, cmd, "searchmoves e2e4 d2d4")
		}
	}
	assert.True(t, found)
}

func TestChooseBestMoveSingletonShortcut(t *testing.T) {
	f := fakeKit(t, "a2a3")
	f.drain()

	// One distinct candidate never reaches the engine, duplicates included.
	lan, err := f.adapter.ChooseBestMove("fen", []string{"e2e4", "e2e4"})
	assert.NoError(t, err)
	assert.Equal(t, "e2e4", lan)
	assert.Empty(t, f.drain())
}

func TestNewGameRoundTrip(t *testing.T) {
	f := fakeKit(t, "e2e4")
	f.drain()
	assert.NoError(t, f.adapter.NewGame())
	cmds := f.drain()
	assert.Contains(t, cmds, "ucinewgame")
	assert.Contains(t, cmds, "isready")
}

func TestEngineGoneSurfaces(t *testing.T) {
	f := fakeKit(t, "e2e4")
	f.adapter.Quit()
	_, err := f.adapter.ChooseBestMove("fen", []string{"e2e4", "d2d4"})
	assert.Error(t, err)
}
