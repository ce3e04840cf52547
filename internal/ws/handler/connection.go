package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/http-server/handlers/event"
	resp "github.com/joelcab02/Lootea-Demo-sub001/internal/lib/api/response"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
)

const (
	DefaultChannel = "fairness"

	DefaultWriteWait = 5 * time.Second
)

type Subscription struct {
	Conn    *websocket.Conn
	Channel string
}

// Hub fans published messages out to every connection subscribed to the message's channel.
// All writes happen on the run goroutine, so each connection has a single writer.
//
// Subscribers are read-only: frames they send are discarded. Only connections on the publish
// route that present the shared secret may broadcast.
type Hub struct {
	channels    map[string]map[*websocket.Conn]bool
	broadcast   chan event.Message
	subscribe   chan Subscription
	unsubscribe chan Subscription
	done        chan struct{}
	secret      string
	writeWait   time.Duration
	log         *slog.Logger
}

type Option func(*Hub)

// WithWriteWait bounds how long a single subscriber write may block the hub.
func WithWriteWait(d time.Duration) Option {
	return func(hub *Hub) {
		hub.writeWait = d
	}
}

// NewHub creates a hub whose publish route accepts secret. An empty secret rejects every
// publisher.
func NewHub(log *slog.Logger, secret string, opts ...Option) *Hub {
	hub := &Hub{
		channels:    make(map[string]map[*websocket.Conn]bool),
		broadcast:   make(chan event.Message),
		subscribe:   make(chan Subscription),
		unsubscribe: make(chan Subscription),
		done:        make(chan struct{}),
		secret:      secret,
		writeWait:   DefaultWriteWait,
		log:         log,
	}

	for _, opt := range opts {
		opt(hub)
	}

	return hub
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (hub *Hub) run(ctx context.Context) {
	defer close(hub.done)

	for {
		select {
		case <-ctx.Done():
			for _, receivers := range hub.channels {
				for conn := range receivers {
					_ = conn.Close()
				}
			}

			return
		case sub := <-hub.subscribe:
			if hub.channels[sub.Channel] == nil {
				hub.channels[sub.Channel] = make(map[*websocket.Conn]bool)
			}

			hub.channels[sub.Channel][sub.Conn] = true
		case sub := <-hub.unsubscribe:
			hub.drop(sub.Channel, sub.Conn)
		case message := <-hub.broadcast:
			receivers, ok := hub.channels[message.Channel]
			if !ok {
				continue
			}

			data, err := json.Marshal(message)
			if err != nil {
				hub.log.Error("failed to marshal message", sl.Err(err))

				continue
			}

			hub.log.Info("broadcasting message",
				sl.String("channel", message.Channel),
				sl.String("event", message.Event))

			for conn := range receivers {
				if err = hub.write(conn, data); err != nil {
					hub.log.Warn("dropping subscriber", sl.String("channel", message.Channel), sl.Err(err))

					_ = conn.Close()
					hub.drop(message.Channel, conn)
				}
			}
		}
	}
}

func (hub *Hub) write(conn *websocket.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(hub.writeWait)); err != nil {
		return err
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func (hub *Hub) drop(channel string, conn *websocket.Conn) {
	delete(hub.channels[channel], conn)

	if len(hub.channels[channel]) == 0 {
		delete(hub.channels, channel)
	}
}

// HandleConnection subscribes the connection to the channel named by the channel query
// parameter. Inbound frames are read only to notice the close.
func (hub *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	channel := r.URL.Query().Get("channel")
	if channel == "" {
		channel = DefaultChannel
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", sl.Err(err))

		return
	}

	sub := Subscription{Conn: ws, Channel: channel}

	select {
	case hub.subscribe <- sub:
	case <-hub.done:
		_ = ws.Close()

		return
	}

	defer func() {
		select {
		case hub.unsubscribe <- sub:
		case <-hub.done:
		}

		if err := ws.Close(); err != nil {
			hub.log.Debug("failed to close connection", sl.Err(err))
		}
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			hub.log.Debug("connection closed", sl.Err(err))

			return
		}

		hub.log.Debug("discarding subscriber frame", sl.String("channel", channel))
	}
}

// HandlePublish accepts messages from an authenticated publisher and broadcasts them.
func (hub *Hub) HandlePublish(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get(event.PublishTokenHeader)

	if hub.secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(hub.secret)) != 1 {
		hub.log.Warn("rejected publisher", sl.String("remote_addr", r.RemoteAddr))

		resp.Render(w, r, resp.Error("invalid publish token", http.StatusUnauthorized))

		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Error("failed to upgrade connection", sl.Err(err))

		return
	}
	defer ws.Close()

	for {
		_, p, err := ws.ReadMessage()
		if err != nil {
			hub.log.Debug("publisher closed", sl.Err(err))

			return
		}

		var message event.Message
		if err = json.Unmarshal(p, &message); err != nil {
			hub.log.Error("failed to unmarshal message", sl.Err(err))

			continue
		}

		if message.Channel == "" {
			message.Channel = DefaultChannel
		}

		hub.log.Debug("incoming message",
			sl.String("channel", message.Channel),
			sl.String("event", message.Event))

		select {
		case hub.broadcast <- message:
		case <-hub.done:
			return
		}
	}
}

func (hub *Hub) RunServer(ctx context.Context) {
	go hub.run(ctx)
}
