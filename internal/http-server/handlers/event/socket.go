package event

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
)

// SocketEvent writes events to the publish endpoint of the websocket hub. The connection is
// dialed on first use and redialed after a write failure.
type SocketEvent struct {
	log    *slog.Logger
	url    string
	secret string
	mu     sync.Mutex
	conn   *websocket.Conn
}

func NewSocketEvent(log *slog.Logger, url string, secret string) *SocketEvent {
	return &SocketEvent{
		log:    log,
		url:    url,
		secret: secret,
	}
}

func (p *SocketEvent) TriggerEvent(channel string, eventName string, data map[string]interface{}) error {
	const op = "handlers.event.SocketEvent.TriggerEvent"

	msg, err := json.Marshal(Message{Channel: channel, Event: eventName, Data: data})
	if err != nil {
		p.log.Error("failed to marshal message", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		header := http.Header{}
		header.Set(PublishTokenHeader, p.secret)

		p.conn, _, err = websocket.DefaultDialer.Dial(p.url, header)
		if err != nil {
			p.conn = nil

			return fmt.Errorf("%s: dial: %w", op, err)
		}
	}

	if err = p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		p.log.Error("failed to trigger event", sl.String("event", eventName), sl.Err(err))

		_ = p.conn.Close()
		p.conn = nil

		return fmt.Errorf("%s: %w", op, err)
	}

	p.log.Debug("event triggered", sl.String("channel", channel), sl.String("event", eventName))

	return nil
}

func (p *SocketEvent) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil
	}

	err := p.conn.Close()
	p.conn = nil

	return err
}
