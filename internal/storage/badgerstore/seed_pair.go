package badgerstore

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const (
	keyPrefix   = "seed/"
	sequenceKey = "seq/seed_pair"

	maxConflictRetries = 16
	lockStripes        = 256
)

// SeedPairStore keeps seed pairs in an embedded Badger database.
//
// Layout:
//
//	seed/<hex user>/active            current pair
//	seed/<hex user>/revealed/<id>     revealed pairs, id zero padded
//
// Writers for the same user are serialized by one of a fixed set of striped mutexes; every
// mutation is a single read-write transaction, so it either commits completely or not at all.
type SeedPairStore struct {
	db    *badger.DB
	seq   *badger.Sequence
	locks [lockStripes]sync.Mutex
}

// Open opens a store at path. An empty path opens an in-memory database.
func Open(path string) (*SeedPairStore, error) {
	const op = "storage.badgerstore.Open"

	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	seq, err := db.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &SeedPairStore{db: db, seq: seq}, nil
}

func (s *SeedPairStore) Close() error {
	const op = "storage.badgerstore.Close"

	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func userPrefix(userID string) string {
	return keyPrefix + hex.EncodeToString([]byte(userID)) + "/"
}

func activeKey(userID string) []byte {
	return []byte(userPrefix(userID) + "active")
}

func revealedPrefix(userID string) []byte {
	return []byte(userPrefix(userID) + "revealed/")
}

func revealedKey(userID string, id int64) []byte {
	return append(revealedPrefix(userID), []byte(fmt.Sprintf("%020d", id))...)
}

func stripe(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))

	return int(h.Sum32() % lockStripes)
}

func (s *SeedPairStore) lock(userID string) func() {
	m := &s.locks[stripe(userID)]
	m.Lock()

	return m.Unlock
}

// update runs fn in a read-write transaction under the user's lock, retrying on conflicts.
func (s *SeedPairStore) update(ctx context.Context, userID string, fn func(txn *badger.Txn) error) error {
	unlock := s.lock(userID)
	defer unlock()

	var err error

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}

		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}

	return err
}

func (s *SeedPairStore) nextID() (int64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, err
	}

	return int64(n) + 1, nil
}

func getPair(txn *badger.Txn, key []byte) (model.SeedPair, error) {
	item, err := txn.Get(key)
	if err != nil {
		return model.SeedPair{}, err
	}

	var pair model.SeedPair

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &pair)
	})

	return pair, err
}

func getActive(txn *badger.Txn, userID string) (model.SeedPair, error) {
	pair, err := getPair(txn, activeKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.SeedPair{}, model.NewError(model.KindNotFound, "no active seed pair for user %q", userID)
	}

	return pair, err
}

func setPair(txn *badger.Txn, key []byte, pair model.SeedPair) error {
	data, err := json.Marshal(pair)
	if err != nil {
		return err
	}

	return txn.Set(key, data)
}

func (s *SeedPairStore) Create(ctx context.Context, pair model.SeedPair) (model.SeedPair, error) {
	const op = "storage.badgerstore.Create"

	err := s.update(ctx, pair.UserID, func(txn *badger.Txn) error {
		_, err := getActive(txn, pair.UserID)
		switch {
		case err == nil:
			return model.NewError(model.KindAlreadyActive, "user %q already has an active seed pair", pair.UserID)
		case !errors.Is(err, model.ErrNotFound):
			return err
		}

		if pair.ID, err = s.nextID(); err != nil {
			return err
		}

		return setPair(txn, activeKey(pair.UserID), pair)
	})
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *SeedPairStore) Active(ctx context.Context, userID string) (model.SeedPair, error) {
	const op = "storage.badgerstore.Active"

	if err := ctx.Err(); err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	var pair model.SeedPair

	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		pair, err = getActive(txn, userID)

		return err
	})
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (s *SeedPairStore) Rotate(
	ctx context.Context,
	userID string,
	next model.SeedPair,
	revealedAt time.Time,
) (model.Rotation, error) {
	const op = "storage.badgerstore.Rotate"

	var rotation model.Rotation

	err := s.update(ctx, userID, func(txn *badger.Txn) error {
		current, err := getActive(txn, userID)
		if err != nil {
			return err
		}

		revealed, err := current.Reveal(revealedAt)
		if err != nil {
			return err
		}

		if err = setPair(txn, revealedKey(userID, revealed.ID), revealed); err != nil {
			return err
		}

		successor := next
		successor.UserID = userID
		successor.ClientSeed = current.ClientSeed
		successor.Nonce = 0
		successor.IsActive = true
		successor.RevealedAt = nil

		if successor.ID, err = s.nextID(); err != nil {
			return err
		}

		if err = setPair(txn, activeKey(userID), successor); err != nil {
			return err
		}

		rotation = model.Rotation{Revealed: revealed, Next: successor}

		return nil
	})
	if err != nil {
		return model.Rotation{}, fmt.Errorf("%s: %w", op, err)
	}

	return rotation, nil
}

func (s *SeedPairStore) SetClientSeed(ctx context.Context, userID string, clientSeed string) error {
	const op = "storage.badgerstore.SetClientSeed"

	err := s.update(ctx, userID, func(txn *badger.Txn) error {
		current, err := getActive(txn, userID)
		if err != nil {
			return err
		}

		current.ClientSeed = clientSeed

		return setPair(txn, activeKey(userID), current)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *SeedPairStore) ConsumeNonce(ctx context.Context, userID string) (model.SeedPair, error) {
	const op = "storage.badgerstore.ConsumeNonce"

	var snapshot model.SeedPair

	err := s.update(ctx, userID, func(txn *badger.Txn) error {
		current, err := getActive(txn, userID)
		if err != nil {
			return err
		}

		snapshot = current
		current.Nonce++

		return setPair(txn, activeKey(userID), current)
	})
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return snapshot, nil
}

func (s *SeedPairStore) History(ctx context.Context, userID string, limit int) ([]model.SeedPair, error) {
	const op = "storage.badgerstore.History"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	prefix := revealedPrefix(userID)

	var pairs []model.SeedPair

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Reverse:        true,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			var pair model.SeedPair

			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &pair)
			})
			if err != nil {
				return err
			}

			pairs = append(pairs, pair)

			if limit > 0 && len(pairs) >= limit {
				break
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pairs, nil
}
