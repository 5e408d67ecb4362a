package formhttp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/schema"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 10
)

// clientMessage is a message from the browser.
type clientMessage struct {
	Op    string          `json:"op"`
	Field string          `json:"field,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// serverMessage is a message to the browser.
type serverMessage struct {
	Type   string            `json:"type"`
	State  *form.Snapshot    `json:"state,omitempty"`
	Values form.Values       `json:"values,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
	Error  *errors.Payload   `json:"error,omitempty"`
}

// liveSession binds one WebSocket connection to one form instance.
type liveSession struct {
	srv    *Server
	conn   *websocket.Conn
	schema *schema.Schema
	form   *form.Form
	logger *slog.Logger

	// out carries replies; state snapshots are coalesced into latest.
	out   chan serverMessage
	mu    sync.Mutex
	state *form.Snapshot
	ready chan struct{}
	done  chan struct{} // reader finished
	gone  chan struct{} // writer finished
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sch, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.config.Metrics.WebSocketError("upgrade")
		s.logger.Warn("websocket upgrade failed", "form", sch.ID, "error", err)
		return
	}

	sess := &liveSession{
		srv:    s,
		conn:   conn,
		schema: sch,
		logger: s.logger.With("form", sch.ID, "remote", r.RemoteAddr),
		out:    make(chan serverMessage, 16),
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		gone:   make(chan struct{}),
	}
	f, err := s.newForm(sch, form.WithOnSubmit(s.submitHook(sch.ID, nil)))
	if err != nil {
		sess.closeWith(websocket.CloseInternalServerErr, "form unavailable")
		return
	}
	sess.form = f

	s.config.Metrics.LiveOpened()
	defer s.config.Metrics.LiveClosed()
	sess.logger.Debug("live session opened")

	sess.run()
	sess.logger.Debug("live session closed")
}

// run serves the session until the connection ends.
func (l *liveSession) run() {
	unsubscribe := l.form.Subscribe(l.publish)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		l.writeLoop()
	}()

	l.readLoop()

	unsubscribe()
	close(l.done)
	wg.Wait()
	l.form.Close()
	l.conn.Close()
}

// publish stores the latest snapshot and wakes the writer.
func (l *liveSession) publish(snap form.Snapshot) {
	l.mu.Lock()
	l.state = &snap
	l.mu.Unlock()
	select {
	case l.ready <- struct{}{}:
	default:
	}
}

func (l *liveSession) readLoop() {
	l.conn.SetReadLimit(maxMessageSize)
	pongWait := l.srv.config.PingInterval * 2
	l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				l.srv.config.Metrics.WebSocketError("read")
				l.logger.Error("read error", "error", err)
			}
			return
		}
		l.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			l.srv.config.Metrics.WebSocketError("decode")
			l.reply(errorMessage(errors.New("F141").WithDetail("invalid JSON").Wrap(err)))
			continue
		}
		if err := l.handle(ctx, msg); err != nil {
			l.reply(errorMessage(err))
		}
	}
}

func (l *liveSession) handle(ctx context.Context, msg clientMessage) error {
	switch msg.Op {
	case "change":
		kind, ok := l.form.Kind(msg.Field)
		if !ok {
			return errors.New("F002").WithDetail("field " + strconv.Quote(msg.Field))
		}
		var raw any
		if len(msg.Value) > 0 {
			if err := json.Unmarshal(msg.Value, &raw); err != nil {
				return errors.New("F141").WithDetail("invalid value").Wrap(err)
			}
		}
		v, err := l.srv.coerce(kind, raw)
		if err != nil {
			return errors.New("F141").WithDetail("field " + strconv.Quote(msg.Field) + ": " + err.Error())
		}
		return l.form.SetValue(msg.Field, v)

	case "blur":
		return l.form.SetTouched(msg.Field, true)

	case "validate":
		if msg.Field == "" {
			_, err := l.form.Validate(ctx)
			return err
		}
		_, err := l.form.ValidateField(ctx, msg.Field)
		return err

	case "submit":
		outcome := l.form.HandleSubmit(ctx, nil)
		reply := serverMessage{Type: outcome.String()}
		switch outcome {
		case form.OutcomeSubmitted:
			reply.Values = l.form.Values()
		case form.OutcomeInvalid:
			reply.Errors = fieldErrors(l.form.Errors())
		}
		l.reply(reply)
		return nil

	case "reset":
		l.form.Reset()
		return nil
	}
	return errors.New("F141").WithDetail("unknown op " + strconv.Quote(msg.Op))
}

// reply queues a message for the writer. It drops the message when the
// session is ending.
func (l *liveSession) reply(msg serverMessage) {
	select {
	case l.out <- msg:
	case <-l.done:
	case <-l.gone:
	}
}

func (l *liveSession) writeLoop() {
	defer close(l.gone)
	ticker := time.NewTicker(l.srv.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			l.closeWith(websocket.CloseNormalClosure, "")
			return

		case msg := <-l.out:
			if !l.write(msg) {
				return
			}

		case <-l.ready:
			l.mu.Lock()
			snap := l.state
			l.mu.Unlock()
			if snap != nil && !l.write(serverMessage{Type: "state", State: snap}) {
				return
			}

		case <-ticker.C:
			l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				l.srv.config.Metrics.WebSocketError("write")
				return
			}
		}
	}
}

func (l *liveSession) write(msg serverMessage) bool {
	l.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := l.conn.WriteJSON(msg); err != nil {
		l.srv.config.Metrics.WebSocketError("write")
		l.logger.Warn("write failed", "type", msg.Type, "error", err)
		// Unblock the reader so the session ends.
		l.conn.Close()
		return false
	}
	return true
}

func (l *liveSession) closeWith(code int, text string) {
	l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	if l.form == nil {
		l.conn.Close()
	}
}

func errorMessage(err error) serverMessage {
	var fe *errors.Error
	if !stderrors.As(err, &fe) {
		fe = errors.Newf(errors.CategoryTransport, "%s", err.Error())
	}
	p := fe.Payload()
	return serverMessage{Type: "error", Error: &p}
}
