package wscore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/relaywire/wscore/metrics"
)

// Outbound frame kinds queued in the mailbox.
const (
	frameText = iota
	framePong
)

type outMessage struct {
	kind int
	data []byte
}

var errRapidRequest = &ServiceError{Type: ErrorTypeRapidRequest, Op: "session", Err: ErrRapidRequest}

// session is the server side of one live websocket connection: a read loop
// applying the abuse guard, a write loop draining the bounded mailbox, and
// flavor hooks attached by the supervisor.
type session struct {
	id   string
	conn *websocket.Conn

	send chan outMessage // the mailbox

	rapidLimit  time.Duration // zero disables the pacing rule
	lastRequest time.Time     // read-loop only
	slowTimeout time.Duration // per-write deadline

	// onText receives text frames that passed the guard and were not the
	// "ping" shortcut.
	onText func(text string)
	// onDetach undoes flavor registration during teardown; it runs before
	// onStop.
	onDetach func()
	// onStop fires exactly once when the session stops. The supervisor
	// installs it before the flavor attaches, so a teardown raised during
	// attach still releases the admission slot.
	onStop func()

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func newSession(conn *websocket.Conn, rapidLimit, slowTimeout time.Duration) *session {
	if slowTimeout <= 0 {
		slowTimeout = DefaultSlowClientTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &session{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan outMessage, MailboxCapacity),
		rapidLimit:  rapidLimit,
		lastRequest: time.Now(),
		slowTimeout: slowTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// stop tears the session down. Safe to call from any goroutine; the close
// hook fires exactly once.
func (s *session) stop() {
	s.once.Do(func() {
		s.cancel()
		s.conn.Close()
		if s.onDetach != nil {
			s.onDetach()
		}
		if s.onStop != nil {
			s.onStop()
		}
	})
}

// enqueueText places a text frame in the mailbox.
func (s *session) enqueueText(text string) bool {
	return s.enqueue(outMessage{kind: frameText, data: []byte(text)})
}

// enqueue queues one outbound frame. A full mailbox tears the session down
// rather than delaying the producer.
func (s *session) enqueue(msg outMessage) bool {
	select {
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.send <- msg:
		return true
	default:
		log.Warn().Str("client", s.id).Msg("Session mailbox full, closing connection")
		metrics.RecordOverflow()
		s.stop()
		return false
	}
}

// allowRequest applies the rapid-request rule to one inbound frame. Only
// called from the read loop.
func (s *session) allowRequest() bool {
	if s.rapidLimit <= 0 {
		return true
	}
	now := time.Now()
	if now.Sub(s.lastRequest) < s.rapidLimit {
		return false
	}
	s.lastRequest = now
	return true
}

// readPump processes inbound frames sequentially until the client closes,
// misbehaves, or the connection drops.
func (s *session) readPump() {
	defer s.stop()

	s.conn.SetPingHandler(func(payload string) error {
		if !s.allowRequest() {
			return errRapidRequest
		}
		s.enqueue(outMessage{kind: framePong, data: []byte(payload)})
		return nil
	})
	s.conn.SetPongHandler(func(string) error {
		if !s.allowRequest() {
			return errRapidRequest
		}
		return nil
	})

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("client", s.id).Msg("Websocket read error")
			}
			return
		}
		if !s.allowRequest() {
			log.Info().Str("client", s.id).Msg("Rapid request limit hit, closing connection")
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		text := string(data)
		if len(text) < 4 {
			continue
		}
		if strings.ToLower(text[:4]) == "ping" {
			s.enqueueText("pong")
			continue
		}
		if s.onText != nil {
			s.onText(text)
		}
	}
}

// writePump drains the mailbox, preserving enqueue order. Each write is
// bounded by the slow-client deadline.
func (s *session) writePump() {
	defer s.stop()

	for {
		select {
		case <-s.ctx.Done():
			deadline := time.Now().Add(s.slowTimeout)
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.slowTimeout))
			messageType := websocket.TextMessage
			if msg.kind == framePong {
				messageType = websocket.PongMessage
			}
			if err := s.conn.WriteMessage(messageType, msg.data); err != nil {
				log.Debug().Err(err).Str("client", s.id).Msg("Websocket write failed, closing connection")
				return
			}
		}
	}
}
