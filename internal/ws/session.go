// Package ws adapts websocket connections to room sessions: it decodes
// inbound frames, binds a connection to a player at join time and pumps
// outbound room messages back to the client.
package ws

import (
	"context"
	"sync"
	"time"

	"coderace/internal/game"
	"coderace/pkg/errors"
	"coderace/pkg/utils/contextkey"
	"coderace/pkg/utils/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 << 10
	sendBuffer     = 64

	// Chat throughput per connection: a burst of 5, refilling at 1/s.
	chatRate  = 1
	chatBurst = 5
)

// Session is one websocket connection's binding to a room. It implements
// game.Conn; the room only ever sees the Send/Close face.
type Session struct {
	conn *websocket.Conn
	room *game.Room

	send      chan game.Outbound
	closed    chan struct{}
	closeOnce sync.Once

	chatLimiter *rate.Limiter

	// name holds the canonical name the room registered the player under.
	// It is set once on a successful join and read only by the read pump
	// afterwards.
	name   string
	joined bool
}

func newSession(conn *websocket.Conn, room *game.Room) *Session {
	return &Session{
		conn:        conn,
		room:        room,
		send:        make(chan game.Outbound, sendBuffer),
		closed:      make(chan struct{}),
		chatLimiter: rate.NewLimiter(chatRate, chatBurst),
	}
}

// Send enqueues one outbound message. It never blocks the room's loop; a
// consumer that cannot drain its buffer is disconnected instead.
func (s *Session) Send(msg game.Outbound) {
	select {
	case s.send <- msg:
	case <-s.closed:
	default:
		logger.Warn(s.logCtx(), "dropping slow websocket consumer")
		s.Close()
	}
}

// Close tears the session down. Safe to call from any goroutine, any
// number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

// run services the connection until either side goes away. It owns the
// session's lifecycle: on return the player's connection handle in the
// room has been cleared.
func (s *Session) run() {
	go s.writePump()
	s.readPump()

	if s.joined {
		s.room.Leave(s, s.name)
	}
	s.Close()
}

func (s *Session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug(s.logCtx(), "websocket read failed", zap.Error(err))
			}
			return
		}
		s.dispatch(data)
	}
}

// dispatch routes one decoded frame into the room. Protocol errors are
// unicast back to this connection only; the room never sees them.
func (s *Session) dispatch(data []byte) {
	msg, err := decodeInbound(data)
	if err != nil {
		s.sendError(err)
		return
	}

	if !s.joined {
		join, ok := msg.(joinMsg)
		if !ok {
			s.sendError(errors.New(errors.NotJoined).WithMessage("Join the room before sending other messages"))
			return
		}
		name, err := s.room.Join(s, join.Name)
		if err != nil {
			s.sendError(err)
			return
		}
		s.name = name
		s.joined = true
		return
	}

	switch msg := msg.(type) {
	case joinMsg:
		s.sendError(errors.New(errors.ProtocolMalformed).WithMessage("Already joined"))
	case startMsg:
		s.room.Start(s, s.name)
	case submitMsg:
		s.room.Submit(s, s.name, msg.Code)
	case lockMsg:
		s.room.Lock(s, s.name)
	case restartMsg:
		s.room.Restart(s, s.name)
	case chatMsg:
		if !s.chatLimiter.Allow() {
			s.sendError(errors.New(errors.ChatRateExceeded))
			return
		}
		s.room.Chat(s.name, msg.Message)
	}
}

func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.closed:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Session) sendError(err error) {
	s.Send(game.NewErrorMsg(errors.GetError(err).Error()))
}

func (s *Session) logCtx() context.Context {
	ctx := context.WithValue(context.Background(), contextkey.RoomID, s.room.ID())
	if s.name != "" {
		ctx = context.WithValue(ctx, contextkey.Player, s.name)
	}
	return ctx
}
