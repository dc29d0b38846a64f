package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/bytebufferpool"

	"chatsync/pkg/config"
	"chatsync/pkg/logger"
	"chatsync/pkg/models"
	"chatsync/pkg/telemetry"
)

// Subscriber consumes message events for one group. The feed session
// implements it.
type Subscriber interface {
	ApplyServerMessage(models.Message)
	ApplyServerDelete(id string)
}

// TypingSink consumes typing events. The typing tracker implements it.
type TypingSink interface {
	MarkTyping(groupID, userID string)
	StopTyping(groupID, userID string)
}

// Push consumes the asynchronous event stream. Disconnection is
// non-fatal: the REST path keeps working and Push reconnects with backoff
// transparently, re-sending the join handshake for every live
// subscription.
type Push struct {
	url              string
	apiKey           string
	handshakeTimeout time.Duration
	readBufferBytes  int
	reconnectMin     time.Duration
	reconnectMax     time.Duration

	typing TypingSink

	mu   sync.Mutex
	subs map[string]Subscriber
	conn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPush builds the adapter; Run must be called to start consuming.
func NewPush(cfg config.PushConfig, apiKey string, typing TypingSink) *Push {
	ctx, cancel := context.WithCancel(context.Background())
	return &Push{
		url:              cfg.URL,
		apiKey:           apiKey,
		handshakeTimeout: cfg.HandshakeTimeout.Duration(),
		readBufferBytes:  int(cfg.ReadBufferBytes.Int64()),
		reconnectMin:     cfg.ReconnectMin.Duration(),
		reconnectMax:     cfg.ReconnectMax.Duration(),
		typing:           typing,
		subs:             map[string]Subscriber{},
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Subscribe starts delivering the group's events to sub, joining the
// group on the live connection if one exists.
func (p *Push) Subscribe(groupID string, sub Subscriber) {
	p.mu.Lock()
	p.subs[groupID] = sub
	conn := p.conn
	p.mu.Unlock()
	if conn != nil {
		p.writeControl(conn, controlFrame{Type: "join", GroupID: groupID})
	}
}

// Unsubscribe stops consuming the group's events. In-flight deliveries
// already dequeued are discarded by the closed session, not here.
func (p *Push) Unsubscribe(groupID string) {
	p.mu.Lock()
	delete(p.subs, groupID)
	conn := p.conn
	p.mu.Unlock()
	if conn != nil {
		p.writeControl(conn, controlFrame{Type: "leave", GroupID: groupID})
	}
}

func (p *Push) writeControl(conn *websocket.Conn, f controlFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Warn("push_control_write_failed", "type", f.Type, "group", f.GroupID, "err", err)
	}
}

// Run dials and consumes until Close. Each disconnect doubles the backoff
// up to reconnect_max; a successful session resets it.
func (p *Push) Run() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		backoff := p.reconnectMin
		for {
			if p.ctx.Err() != nil {
				return
			}
			err := p.runOnce()
			if p.ctx.Err() != nil {
				return
			}
			if err != nil {
				logger.Warn("push_disconnected", "err", err, "retry_in", backoff.String())
			}
			telemetry.PushReconnects.Inc()
			select {
			case <-time.After(backoff):
			case <-p.ctx.Done():
				return
			}
			backoff *= 2
			if backoff > p.reconnectMax {
				backoff = p.reconnectMax
			}
		}
	}()
}

// runOnce dials, replays join handshakes and reads until the connection
// drops.
func (p *Push) runOnce() error {
	dialer := websocket.Dialer{
		HandshakeTimeout: p.handshakeTimeout,
		ReadBufferSize:   p.readBufferBytes,
	}
	hdr := map[string][]string{}
	if p.apiKey != "" {
		hdr["Authorization"] = []string{"Bearer " + p.apiKey}
	}
	conn, _, err := dialer.DialContext(p.ctx, p.url, hdr)
	if err != nil {
		return err
	}
	defer conn.Close()

	p.mu.Lock()
	p.conn = conn
	groups := make([]string, 0, len(p.subs))
	for g := range p.subs {
		groups = append(groups, g)
	}
	p.mu.Unlock()
	logger.Info("push_connected", "url", p.url, "groups", len(groups))

	for _, g := range groups {
		p.writeControl(conn, controlFrame{Type: "join", GroupID: g})
	}

	// close the socket when Close is called so the read loop unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-p.ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, rd, err := conn.NextReader()
		if err != nil {
			p.mu.Lock()
			p.conn = nil
			p.mu.Unlock()
			return err
		}
		buf := bytebufferpool.Get()
		if _, err := io.Copy(buf, rd); err != nil {
			bytebufferpool.Put(buf)
			continue
		}
		p.dispatch(buf.B)
		bytebufferpool.Put(buf)
	}
}

// dispatch decodes one frame and routes it. Events for groups without a
// live subscription are dropped silently: navigating away unsubscribes
// the scope.
func (p *Push) dispatch(raw []byte) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		logger.Warn("push_decode_failed", "err", err)
		return
	}

	if ev.Type == EventTyping {
		if p.typing == nil {
			return
		}
		if ev.IsTyping {
			p.typing.MarkTyping(ev.GroupID, ev.UserID)
		} else {
			p.typing.StopTyping(ev.GroupID, ev.UserID)
		}
		return
	}

	p.mu.Lock()
	sub := p.subs[ev.GroupID]
	p.mu.Unlock()
	if sub == nil {
		return
	}

	switch ev.Type {
	case EventNewMessage, EventMessageUpdated, EventMessageReacted:
		if ev.Message == nil {
			logger.Warn("push_event_without_message", "type", string(ev.Type), "group", ev.GroupID)
			return
		}
		sub.ApplyServerMessage(*ev.Message)
	case EventMessageDeleted:
		id := ev.MessageID
		if id == "" && ev.Message != nil {
			id = ev.Message.ID
		}
		if id != "" {
			sub.ApplyServerDelete(id)
		}
	default:
		logger.Debug("push_event_ignored", "type", string(ev.Type))
	}
}

// Close stops the consumer and closes any live connection.
func (p *Push) Close() {
	p.cancel()
	p.mu.Lock()
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.mu.Unlock()
	p.wg.Wait()
}
