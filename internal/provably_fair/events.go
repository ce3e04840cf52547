package provably_fair

import (
	"log/slog"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const (
	EventChannel       = "fairness"
	EventSeedCommitted = "seed-committed"
	EventSeedRotated   = "seed-rotated"
)

// Publisher receives ledger announcements. Delivery failures never fail the ledger operation.
type Publisher interface {
	TriggerEvent(channel string, eventName string, data map[string]interface{}) error
}

type noopPublisher struct{}

func (noopPublisher) TriggerEvent(string, string, map[string]interface{}) error { return nil }

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.events = p }
}

func (l *Ledger) announceCommit(pair model.SeedPair) {
	l.publish(EventSeedCommitted, map[string]interface{}{
		"user_id":          pair.UserID,
		"client_seed":      pair.ClientSeed,
		"server_seed_hash": pair.ServerSeedHash,
	})
}

func (l *Ledger) announceRotation(rotation model.Rotation) {
	l.publish(EventSeedRotated, map[string]interface{}{
		"user_id":              rotation.Revealed.UserID,
		"revealed_server_seed": rotation.Revealed.ServerSeed,
		"server_seed_hash":     rotation.Revealed.ServerSeedHash,
		"final_nonce":          rotation.Revealed.Nonce,
		"new_server_seed_hash": rotation.Next.ServerSeedHash,
	})
}

func (l *Ledger) publish(name string, data map[string]interface{}) {
	if err := l.events.TriggerEvent(EventChannel, name, data); err != nil {
		l.log.Warn("failed to publish ledger event", slog.String("event", name), sl.Err(err))
	}
}
