package relaytest

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/codefionn/chatterm/internal/consts"
	"github.com/codefionn/chatterm/internal/logger"
	"github.com/codefionn/chatterm/internal/protocol"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = consts.Timeout10Seconds

	// Time allowed to read the next pong message from the peer.
	pongWait = consts.Timeout60Seconds

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// peer is one websocket connection to the relay
type peer struct {
	relay *Relay
	conn  *websocket.Conn
	send  chan string
	// name is guarded by the hub mutex
	name string
}

// readPump pumps frames from the connection into the relay
func (p *peer) readPump() {
	hub := p.relay.hub
	defer func() {
		select {
		case hub.unregister <- p:
		case <-hub.quit:
		}
		p.conn.Close()
	}()

	p.conn.SetReadLimit(consts.MaxFrameSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("relay read error: %v", err)
			}
			return
		}
		p.relay.record(string(data))
		p.handleFrame(string(data))
	}
}

func (p *peer) handleFrame(frame string) {
	hub := p.relay.hub
	env, err := protocol.Decode(frame)
	if err != nil {
		logger.Warn("relay: %v", err)
		return
	}

	switch env.Kind {
	case protocol.KindRegister:
		hub.setName(p, env.Payload())
		hub.Broadcast(hub.usersFrame())

	case protocol.KindMessage:
		payload, err := protocol.EncodeChatMessage(protocol.ChatMessage{
			From:    hub.nameOf(p),
			Message: env.Payload(),
		})
		if err != nil {
			logger.Error("relay: %v", err)
			return
		}
		out, err := protocol.Encode(protocol.NewMessage(payload))
		if err != nil {
			logger.Error("relay: %v", err)
			return
		}
		hub.Broadcast(out)

	default:
		logger.Debug("relay: ignoring %q envelope", env.Kind)
	}
}

// writePump pumps frames from the hub to the connection
func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}

		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
