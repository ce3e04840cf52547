package event

import (
	"fmt"
	"log/slog"

	"github.com/pusher/pusher-http-go/v5"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
)

type pusherTrigger interface {
	Trigger(channel string, eventName string, data interface{}) error
}

type PusherEvent struct {
	log    *slog.Logger
	pusher pusherTrigger
}

func NewPusherClient(appID, key, secret, cluster string) *pusher.Client {
	return &pusher.Client{
		AppID:   appID,
		Key:     key,
		Secret:  secret,
		Cluster: cluster,
		Secure:  true,
	}
}

func NewPusherEvent(log *slog.Logger, pusherClient pusherTrigger) *PusherEvent {
	return &PusherEvent{
		log:    log,
		pusher: pusherClient,
	}
}

func (p *PusherEvent) TriggerEvent(channel string, eventName string, data map[string]interface{}) error {
	const op = "handlers.event.PusherEvent.TriggerEvent"

	if err := p.pusher.Trigger(channel, eventName, data); err != nil {
		p.log.Error("failed to trigger pusher event", sl.String("event", eventName), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
