package network

import (
	"net/http"
	"sync"

	"TC/configs"
	"TC/room"
	"TC/utils"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type errorPayload struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

// Server owns the websocket boundary. It upgrades connections, tracks the
// open sockets per pid and translates between wire frames and room
// operations. It implements room.Transport.
type Server struct {
	ctx *room.Context

	latch sync.Mutex
	peers map[string]map[*Peer]bool
}

func NewServer() *Server {
	return &Server{peers: make(map[string]map[*Peer]bool)}
}

// Attach binds the room after construction. The room needs the transport at
// construction time and the transport needs the room for dispatch, so the
// server is built first and attached here.
func (s *Server) Attach(ctx *room.Context) {
	s.ctx = ctx
}

// ServeWS handles one websocket request. pid and name arrive as query
// parameters; an empty pid asks the room to mint one.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		configs.Warn(false, "websocket upgrade failed: "+err.Error())
		return
	}
	pid := r.URL.Query().Get("pid")
	name := r.URL.Query().Get("name")

	pid, err = s.ctx.Connect(pid, name)
	if err != nil {
		frame, _ := json.Marshal(outEnvelope{Event: "error",
			Data: errorPayload{Command: "connect", Message: err.Error()}})
		conn.WriteMessage(websocket.TextMessage, frame)
		conn.Close()
		return
	}

	p := newPeer(pid, conn, s)
	s.register(p)
	go p.writePump()
	go p.readPump()
	s.ctx.Sync(pid)
}

func (s *Server) register(p *Peer) {
	s.latch.Lock()
	defer s.latch.Unlock()
	set, ok := s.peers[p.pid]
	if !ok {
		set = make(map[*Peer]bool)
		s.peers[p.pid] = set
	}
	set[p] = true
}

// unregister drops one socket. When it was the pid's last socket the room is
// told about the disconnect and starts the reconnect grace.
func (s *Server) unregister(p *Peer) {
	s.latch.Lock()
	set, ok := s.peers[p.pid]
	if ok {
		delete(set, p)
		if len(set) == 0 {
			delete(s.peers, p.pid)
		}
	}
	last := ok && len(set) == 0
	s.latch.Unlock()

	p.shutdown()
	if last {
		s.ctx.Disconnect(p.pid)
	}
}

// Broadcast implements room.Transport.
func (s *Server) Broadcast(event string, payload interface{}) {
	frame, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		configs.Warn(false, "marshal "+event+" failed: "+err.Error())
		return
	}
	s.latch.Lock()
	defer s.latch.Unlock()
	for _, set := range s.peers {
		for p := range set {
			p.enqueue(frame)
		}
	}
}

// SendTo implements room.Transport.
func (s *Server) SendTo(pid string, event string, payload interface{}) {
	frame, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		configs.Warn(false, "marshal "+event+" failed: "+err.Error())
		return
	}
	s.latch.Lock()
	defer s.latch.Unlock()
	for p := range s.peers[pid] {
		p.enqueue(frame)
	}
}

// Kick implements room.Transport. The kicked event has already been sent, so
// the sockets are closed outside the peer map lock to let the write pumps
// drain first.
func (s *Server) Kick(pid string) {
	s.latch.Lock()
	set := s.peers[pid]
	delete(s.peers, pid)
	s.latch.Unlock()
	for p := range set {
		p.shutdown()
	}
}

// dispatch decodes one inbound frame and runs the matching room operation.
// Validation errors go back to the origin socket only.
func (s *Server) dispatch(p *Peer, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(p, "", utils.ErrIllegalFormat)
		return
	}
	configs.TPrintf("dispatch %s from %s", env.Event, p.pid)

	var err error
	switch env.Event {
	case "set_name":
		var name string
		if err = json.Unmarshal(env.Data, &name); err == nil {
			err = s.ctx.SetName(p.pid, name)
		}
	case "join_side":
		var body struct {
			Side string `json:"side"`
		}
		if err = json.Unmarshal(env.Data, &body); err == nil {
			err = s.ctx.JoinSide(p.pid, body.Side)
		}
	case "play_move":
		var lan string
		if err = json.Unmarshal(env.Data, &lan); err == nil {
			err = s.ctx.SubmitProposal(p.pid, lan)
		}
	case "chat_message":
		var text string
		if err = json.Unmarshal(env.Data, &text); err == nil {
			err = s.ctx.Chat(p.pid, text)
		}
	case "start_team_vote":
		var voteType string
		if err = json.Unmarshal(env.Data, &voteType); err == nil {
			err = s.ctx.StartTeamVote(p.pid, voteType)
		}
	case "vote_team":
		var approve bool
		if approve, err = decodeBallot(env.Data); err == nil {
			err = s.ctx.CastTeamVote(p.pid, approve)
		}
	case "start_kick_vote":
		var target string
		if err = json.Unmarshal(env.Data, &target); err == nil {
			err = s.ctx.StartKickVote(p.pid, target)
		}
	case "vote_kick":
		var approve bool
		if approve, err = decodeBallot(env.Data); err == nil {
			err = s.ctx.CastKickVote(p.pid, approve)
		}
	case "start_reset_vote":
		err = s.ctx.StartResetVote(p.pid)
	case "vote_reset":
		var approve bool
		if approve, err = decodeBallot(env.Data); err == nil {
			err = s.ctx.CastResetVote(p.pid, approve)
		}
	default:
		err = utils.ErrIllegalFormat
	}
	if err != nil {
		s.sendError(p, env.Event, err)
	}
}

// decodeBallot reads a "yes"/"no" vote payload.
func decodeBallot(data []byte) (bool, error) {
	var vote string
	if err := json.Unmarshal(data, &vote); err != nil {
		return false, utils.ErrIllegalFormat
	}
	switch vote {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, utils.ErrIllegalFormat
	}
}

func (s *Server) sendError(p *Peer, command string, err error) {
	frame, merr := json.Marshal(outEnvelope{Event: "error",
		Data: errorPayload{Command: command, Message: err.Error()}})
	if merr != nil {
		return
	}
	p.enqueue(frame)
}
