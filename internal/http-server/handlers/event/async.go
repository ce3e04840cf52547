package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/job"
)

var ErrStopped = errors.New("event pool is stopped")

type SendEventJob struct {
	EventMessage Message
	Event        Publisher
}

func (j *SendEventJob) Execute(_ context.Context) error {
	return j.Event.TriggerEvent(j.EventMessage.Channel, j.EventMessage.Event, j.EventMessage.Data)
}

// Async hands every event to a worker pool so callers never wait on the network.
type Async struct {
	next  Publisher
	pool  *job.WorkerPool
	delay time.Duration
}

func NewAsync(next Publisher, pool *job.WorkerPool, delay time.Duration) *Async {
	return &Async{next: next, pool: pool, delay: delay}
}

func (a *Async) TriggerEvent(channel string, eventName string, data map[string]interface{}) error {
	const op = "handlers.event.Async.TriggerEvent"

	ok := a.pool.Dispatch(&SendEventJob{
		EventMessage: Message{Channel: channel, Event: eventName, Data: data},
		Event:        a.next,
	}, a.delay)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrStopped)
	}

	return nil
}
