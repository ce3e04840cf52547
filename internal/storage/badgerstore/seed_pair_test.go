package badgerstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

func openStore(t *testing.T) *SeedPairStore {
	t.Helper()

	store, err := Open("")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

func activePair(userID, serverSeed string) model.SeedPair {
	return model.SeedPair{
		UserID:         userID,
		ClientSeed:     "client",
		ServerSeed:     serverSeed,
		ServerSeedHash: "hash-" + serverSeed,
		IsActive:       true,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestCreateRejectsSecondActivePair(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, activePair("u1", "s1"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = store.Create(ctx, activePair("u1", "s2"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAlreadyActive)

	active, err := store.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "s1", active.ServerSeed)
}

func TestActiveNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.Active(context.Background(), "nobody")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRotateRevealsAndReplaces(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, activePair("u1", "s1"))
	require.NoError(t, err)

	_, err = store.ConsumeNonce(ctx, "u1")
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	next := activePair("u1", "s2")
	next.ClientSeed = "ignored"

	rotation, err := store.Rotate(ctx, "u1", next, at)
	require.NoError(t, err)

	assert.Equal(t, first.ID, rotation.Revealed.ID)
	assert.False(t, rotation.Revealed.IsActive)
	require.NotNil(t, rotation.Revealed.RevealedAt)
	assert.True(t, at.Equal(*rotation.Revealed.RevealedAt))
	assert.Equal(t, int64(1), rotation.Revealed.Nonce)

	assert.True(t, rotation.Next.IsActive)
	assert.Equal(t, int64(0), rotation.Next.Nonce)
	assert.Equal(t, "client", rotation.Next.ClientSeed)
	assert.Equal(t, "s2", rotation.Next.ServerSeed)
	assert.NotEqual(t, first.ID, rotation.Next.ID)

	active, err := store.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, rotation.Next.ID, active.ID)

	history, err := store.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "s1", history[0].ServerSeed)
}

func TestRotateWithoutActivePair(t *testing.T) {
	store := openStore(t)

	_, err := store.Rotate(context.Background(), "u1", activePair("u1", "s"), time.Now())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, activePair("u1", "s0"))
	require.NoError(t, err)

	for i := 1; i <= 12; i++ {
		_, err = store.Rotate(ctx, "u1", activePair("u1", fmt.Sprintf("s%d", i)), time.Now())
		require.NoError(t, err)
	}

	history, err := store.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, history, 12)
	assert.Equal(t, "s11", history[0].ServerSeed)
	assert.Equal(t, "s0", history[11].ServerSeed)

	limited, err := store.History(ctx, "u1", 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, "s9", limited[2].ServerSeed)
}

func TestHistoryIsolatedPerUser(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, user := range []string{"a", "ab"} {
		_, err := store.Create(ctx, activePair(user, user+"-s0"))
		require.NoError(t, err)

		_, err = store.Rotate(ctx, user, activePair(user, user+"-s1"), time.Now())
		require.NoError(t, err)
	}

	history, err := store.History(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a-s0", history[0].ServerSeed)
}

func TestSetClientSeedKeepsNonce(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, activePair("u1", "s1"))
	require.NoError(t, err)

	_, err = store.ConsumeNonce(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, store.SetClientSeed(ctx, "u1", "mine"))

	active, err := store.Active(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "mine", active.ClientSeed)
	assert.Equal(t, int64(1), active.Nonce)
	assert.Equal(t, "s1", active.ServerSeed)

	assert.ErrorIs(t, store.SetClientSeed(ctx, "u2", "x"), model.ErrNotFound)
}

func TestConsumeNonceConcurrent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, activePair("u1", "s1"))
	require.NoError(t, err)

	const callers = 64

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		nonces = make(map[int64]int)
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			pair, err := store.ConsumeNonce(ctx, "u1")
			if !assert.NoError(t, err) {
				return
			}

			mu.Lock()
			nonces[pair.Nonce]++
			mu.Unlock()
		}()
	}

	wg.Wait()

	require.Len(t, nonces, callers)

	for n := int64(0); n < callers; n++ {
		assert.Equal(t, 1, nonces[n], "nonce %d", n)
	}
}

func TestCanceledContextHasNoEffect(t *testing.T) {
	store := openStore(t)

	_, err := store.Create(context.Background(), activePair("u1", "s1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.ConsumeNonce(ctx, "u1")
	require.ErrorIs(t, err, context.Canceled)

	active, err := store.Active(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), active.Nonce)
}

func TestStripeIsStableAndBounded(t *testing.T) {
	for i := 0; i < 1000; i++ {
		user := fmt.Sprintf("user-%d", i)

		s := stripe(user)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, lockStripes)
		assert.Equal(t, s, stripe(user))
	}
}

func TestManyUsersShareLockStripes(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	const users = lockStripes * 2

	var wg sync.WaitGroup

	for i := 0; i < users; i++ {
		wg.Add(1)

		go func(user string) {
			defer wg.Done()

			_, err := store.Create(ctx, activePair(user, "s-"+user))
			if !assert.NoError(t, err) {
				return
			}

			for n := int64(0); n < 3; n++ {
				pair, err := store.ConsumeNonce(ctx, user)
				if !assert.NoError(t, err) {
					return
				}

				assert.Equal(t, n, pair.Nonce, user)
			}
		}(fmt.Sprintf("user-%d", i))
	}

	wg.Wait()

	active, err := store.Active(ctx, "user-0")
	require.NoError(t, err)
	assert.Equal(t, int64(3), active.Nonce)
}
