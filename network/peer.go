package network

import (
	"sync"
	"time"

	"TC/configs"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Peer is a middleman between one websocket connection and the room. A single
// pid may own several peers at once (two browser tabs), the server tracks
// them per pid and only reports a disconnect when the last one is gone.
type Peer struct {
	pid  string
	conn *websocket.Conn
	srv  *Server

	send chan []byte
	once sync.Once
}

func newPeer(pid string, conn *websocket.Conn, srv *Server) *Peer {
	return &Peer{
		pid:  pid,
		conn: conn,
		srv:  srv,
		send: make(chan []byte, configs.PeerSendBuffer),
	}
}

// enqueue hands a frame to the write pump without blocking. The room holds
// its latch while broadcasting, a stalled socket must not stall the room, so
// a full buffer drops the frame and the next snapshot-bearing event catches
// the client up.
func (p *Peer) enqueue(frame []byte) {
	select {
	case p.send <- frame:
	default:
		configs.Warn(false, "peer "+p.pid+" send buffer full, dropping frame")
	}
}

// shutdown closes the send channel exactly once, which makes the write pump
// send a close frame and tear the connection down.
func (p *Peer) shutdown() {
	p.once.Do(func() { close(p.send) })
}

// readPump pumps inbound frames from the websocket to the room. There is at
// most one reader per connection.
func (p *Peer) readPump() {
	defer func() {
		p.srv.unregister(p)
		p.conn.Close()
	}()
	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				configs.DPrintf("peer %s read error: %v", p.pid, err)
			}
			return
		}
		p.srv.dispatch(p, data)
	}
}

// writePump pumps frames from the send channel to the websocket. There is at
// most one writer per connection.
func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
