// Package engine drives the analysis subprocess over the UCI line protocol.
// The room asks it one question: which of the proposed moves is best.
package engine

import (
	"bufio"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"TC/configs"
	"TC/utils"

	set "github.com/deckarep/golang-set"
)

// Adapter owns one engine subprocess. Requests are serialized: only one
// caller may be awaiting a reply line at a time.
type Adapter struct {
	latch sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	quitOnce sync.Once
}

// Spawn starts the engine command and completes the uci/isready handshake.
func Spawn(command string) (*Adapter, error) {
	cmd := exec.Command(command)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	c := newAdapter(stdin, stdout)
	c.cmd = cmd
	if err := c.handshake(); err != nil {
		c.Quit()
		return nil, err
	}
	return c, nil
}

// newAdapter wires an adapter over raw pipes. Split out so tests can drive
// the protocol without a subprocess.
func newAdapter(stdin io.WriteCloser, stdout io.Reader) *Adapter {
	c := &Adapter{
		stdin: stdin,
		lines: make(chan string, 64),
	}
	go c.readLoop(stdout)
	return c
}

func (c *Adapter) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		configs.TPrintf("engine> %s", line)
		select {
		case c.lines <- line:
		default:
			// Nobody is draining and the buffer is full; idle chatter
			// between requests is droppable.
		}
	}
	close(c.lines)
}

func (c *Adapter) handshake() error {
	c.latch.Lock()
	defer c.latch.Unlock()
	if err := c.send("uci"); err != nil {
		return err
	}
	if _, err := c.await(configs.EngineStartupTimeout); err != nil {
		return err
	}
	if err := c.send("isready"); err != nil {
		return err
	}
	_, err := c.await(configs.EngineStartupTimeout)
	return err
}

// send writes one command line. Latch must be held.
func (c *Adapter) send(cmd string) error {
	configs.TPrintf("engine< %s", cmd)
	_, err := io.WriteString(c.stdin, cmd+"\n")
	return err
}

// await delivers the next acknowledgement line: `bestmove ...`, `uciok` or
// `readyok`. Anything else (id, option, info) is skipped. Latch must be held.
func (c *Adapter) await(timeout time.Duration) (string, error) {
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return "", utils.ErrEngineGone
			}
			if strings.HasPrefix(line, "bestmove") || line == "uciok" || line == "readyok" {
				return line, nil
			}
		case <-deadline:
			return "", utils.ErrEngineTimeout
		}
	}
}

// NewGame resets the engine's internal state for a fresh game.
func (c *Adapter) NewGame() error {
	c.latch.Lock()
	defer c.latch.Unlock()
	if err := c.send("ucinewgame"); err != nil {
		return err
	}
	if err := c.send("isready"); err != nil {
		return err
	}
	_, err := c.await(configs.EngineStartupTimeout)
	return err
}

// ChooseBestMove returns the strongest move among the candidates for the
// given position. A single distinct candidate short-circuits without a query.
func (c *Adapter) ChooseBestMove(fen string, candidates []string) (string, error) {
	distinct := set.NewSet()
	for _, lan := range candidates {
		distinct.Add(lan)
	}
	if distinct.Cardinality() == 1 {
		return candidates[0], nil
	}
	c.latch.Lock()
	defer c.latch.Unlock()
	if err := c.send("position fen " + fen); err != nil {
		return "", err
	}
	query := "go depth " + strconv.Itoa(configs.EngineSearchDepth) +
		" searchmoves " + strings.Join(candidates, " ")
	if err := c.send(query); err != nil {
		return "", err
	}
	line, err := c.await(configs.EngineMoveTimeout)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "bestmove" {
		return "", utils.ErrEngineGone
	}
	return fields[1], nil
}

// Quit terminates the subprocess. Idempotent.
func (c *Adapter) Quit() {
	c.quitOnce.Do(func() {
		c.latch.Lock()
		_ = c.send("quit")
		_ = c.stdin.Close()
		c.latch.Unlock()
		if c.cmd != nil {
			done := make(chan struct{})
			go func() {
				_ = c.cmd.Wait()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				_ = c.cmd.Process.Kill()
				<-done
			}
		}
	})
}
