package provably_fair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/metrics"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/random"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const serverSeedLength = 64

// Store persists seed pairs. Every mutating method must be atomic: it either fully applies or
// leaves no trace, and calls for the same user are serialized.
//
//go:generate go run github.com/vektra/mockery/v2@v2.28.2 --name=Store
type Store interface {
	// Create stores an active pair. Returns model.ErrAlreadyActive if the user has one.
	Create(ctx context.Context, pair model.SeedPair) (model.SeedPair, error)
	// Active returns the user's active pair or model.ErrNotFound.
	Active(ctx context.Context, userID string) (model.SeedPair, error)
	// Rotate reveals the active pair and stores next as the new active pair in one step.
	// next.ClientSeed is replaced by the retired pair's client seed.
	Rotate(ctx context.Context, userID string, next model.SeedPair, revealedAt time.Time) (model.Rotation, error)
	SetClientSeed(ctx context.Context, userID string, clientSeed string) error
	// ConsumeNonce increments the active nonce and returns the pair as it was before the increment.
	ConsumeNonce(ctx context.Context, userID string) (model.SeedPair, error)
	// History returns revealed pairs, newest first. limit <= 0 means no limit.
	History(ctx context.Context, userID string, limit int) ([]model.SeedPair, error)
}

type Ledger struct {
	store         Store
	log           *slog.Logger
	metrics       *metrics.Metrics
	newServerSeed func() (string, error)
	newClientSeed func() string
	now           func() time.Time
	onFatal       func(error)
	events        Publisher
}

type Option func(*Ledger)

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func WithServerSeedSource(fn func() (string, error)) Option {
	return func(l *Ledger) { l.newServerSeed = fn }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithFatalHandler sets the callback for HASH_FAILURE. The process is expected to stop.
func WithFatalHandler(fn func(error)) Option {
	return func(l *Ledger) { l.onFatal = fn }
}

func NewLedger(store Store, log *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		log:     log,
		metrics: metrics.New(),
		newServerSeed: func() (string, error) {
			return random.NewRandomString(serverSeedLength)
		},
		newClientSeed: func() string {
			return uuid.New().String()
		},
		now:     time.Now,
		onFatal: func(error) {},
		events:  noopPublisher{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Issue creates the first active pair for a user. clientSeed may be empty, in which case a
// random one is chosen.
func (l *Ledger) Issue(ctx context.Context, userID string, clientSeed string) (model.SeedPair, error) {
	const op = "provably_fair.Ledger.Issue"

	log := l.log.With(slog.String("op", op), slog.String("user_id", userID))

	if userID == "" {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "user id is empty"))
	}

	if clientSeed == "" {
		clientSeed = l.newClientSeed()
	}

	pair, err := l.newPair(userID, clientSeed)
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err = l.store.Create(ctx, pair)
	if err != nil {
		if !errors.Is(err, model.ErrAlreadyActive) {
			log.Error("failed to create seed pair", sl.Err(err))
		}

		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	l.metrics.SeedsIssued.Inc()

	log.Info("seed pair issued", slog.String("server_seed_hash", pair.ServerSeedHash))

	l.announceCommit(pair)

	return pair, nil
}

// Rotate reveals the active server seed and commits to a fresh one with the same client seed.
func (l *Ledger) Rotate(ctx context.Context, userID string) (model.Rotation, error) {
	const op = "provably_fair.Ledger.Rotate"

	log := l.log.With(slog.String("op", op), slog.String("user_id", userID))

	if userID == "" {
		return model.Rotation{}, fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "user id is empty"))
	}

	next, err := l.newPair(userID, "")
	if err != nil {
		return model.Rotation{}, fmt.Errorf("%s: %w", op, err)
	}

	rotation, err := l.store.Rotate(ctx, userID, next, l.now())
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			log.Error("failed to rotate seed pair", sl.Err(err))
		}

		return model.Rotation{}, fmt.Errorf("%s: %w", op, err)
	}

	l.metrics.SeedRotations.Inc()

	log.Info("seed pair rotated",
		slog.String("revealed_hash", rotation.Revealed.ServerSeedHash),
		slog.String("new_hash", rotation.Next.ServerSeedHash),
		slog.Int64("final_nonce", rotation.Revealed.Nonce))

	l.announceRotation(rotation)

	return rotation, nil
}

// SetClientSeed changes the client seed of the active pair without touching nonce or server seed.
func (l *Ledger) SetClientSeed(ctx context.Context, userID string, clientSeed string) error {
	const op = "provably_fair.Ledger.SetClientSeed"

	if userID == "" || clientSeed == "" {
		return fmt.Errorf("%s: %w", op, model.NewError(model.KindInvalidInput, "user id and client seed are required"))
	}

	if err := l.store.SetClientSeed(ctx, userID, clientSeed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	l.log.Info("client seed changed", slog.String("op", op), slog.String("user_id", userID))

	return nil
}

// NextNonce consumes the next nonce of the active pair. The first round of a pair gets 0.
func (l *Ledger) NextNonce(ctx context.Context, userID string) (int64, error) {
	const op = "provably_fair.Ledger.NextNonce"

	pair, err := l.consume(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return pair.Nonce, nil
}

// Roll consumes a nonce and derives the round's ticket from the same pair snapshot. The
// returned record carries the published hash only; the server seed stays secret until rotation.
func (l *Ledger) Roll(ctx context.Context, userID string) (model.RoundRecord, error) {
	const op = "provably_fair.Ledger.Roll"

	pair, err := l.consume(ctx, userID)
	if err != nil {
		return model.RoundRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	ticket, err := DeriveTicket(pair.ClientSeed, pair.ServerSeed, pair.Nonce)
	if err != nil {
		return model.RoundRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	l.log.Debug("round rolled",
		slog.String("op", op),
		slog.String("user_id", userID),
		slog.Int64("nonce", pair.Nonce),
		slog.Int("ticket", ticket))

	return model.RoundRecord{
		UserID:         pair.UserID,
		ClientSeed:     pair.ClientSeed,
		ServerSeedHash: pair.ServerSeedHash,
		Nonce:          pair.Nonce,
		ClaimedTicket:  ticket,
	}, nil
}

func (l *Ledger) Active(ctx context.Context, userID string) (model.PublicSeedPair, error) {
	const op = "provably_fair.Ledger.Active"

	pair, err := l.store.Active(ctx, userID)
	if err != nil {
		return model.PublicSeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair.Public(), nil
}

func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]model.PublicSeedPair, error) {
	const op = "provably_fair.Ledger.History"

	pairs, err := l.store.History(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]model.PublicSeedPair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p.Public())
	}

	return out, nil
}

func (l *Ledger) consume(ctx context.Context, userID string) (model.SeedPair, error) {
	if userID == "" {
		return model.SeedPair{}, model.NewError(model.KindInvalidInput, "user id is empty")
	}

	pair, err := l.store.ConsumeNonce(ctx, userID)
	if err != nil {
		return model.SeedPair{}, err
	}

	l.metrics.NoncesConsumed.Inc()

	return pair, nil
}

func (l *Ledger) newPair(userID string, clientSeed string) (model.SeedPair, error) {
	serverSeed, err := l.newServerSeed()
	if err != nil {
		hashErr := model.NewError(model.KindHashFailure, "server seed generation: %v", err)

		l.log.Error("entropy source failed", sl.Err(hashErr))
		l.onFatal(hashErr)

		return model.SeedPair{}, hashErr
	}

	return model.SeedPair{
		UserID:         userID,
		ClientSeed:     clientSeed,
		ServerSeed:     serverSeed,
		ServerSeedHash: Commit(serverSeed),
		IsActive:       true,
		CreatedAt:      l.now().UTC(),
	}, nil
}
