package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/storage/mysql"
)

const (
	lockQuery   = `SELECT .* FROM seed_pairs WHERE user_id = \? AND is_active = 1 FOR UPDATE`
	activeQuery = `SELECT .* FROM seed_pairs WHERE user_id = \? AND is_active = 1$`
	insertQuery = `INSERT INTO seed_pairs`
)

var columns = []string{
	"id", "user_id", "client_seed", "server_seed", "server_seed_hash", "nonce", "is_active", "revealed_at", "created_at",
}

var created = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newRepo(t *testing.T) (*SeedPairRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewSeedPairRepository(mysql.New(db)), mock
}

func activeRow(id int64, nonce int64) *sqlmock.Rows {
	return sqlmock.NewRows(columns).
		AddRow(id, "u1", "client", "server", "hash", nonce, true, nil, created)
}

func newPair() model.SeedPair {
	return model.SeedPair{
		UserID:         "u1",
		ClientSeed:     "client",
		ServerSeed:     "server",
		ServerSeedHash: "hash",
		IsActive:       true,
		CreatedAt:      created,
	}
}

func TestCreate(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(insertQuery).
		WithArgs("u1", "client", "server", "hash", int64(0), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	pair, err := repo.Create(context.Background(), newPair())
	require.NoError(t, err)
	assert.Equal(t, int64(42), pair.ID)
}

func TestCreateWithActivePair(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(activeRow(1, 0))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newPair())
	assert.ErrorIs(t, err, model.ErrAlreadyActive)
}

func TestCreateDuplicateEntry(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(insertQuery).WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newPair())
	assert.ErrorIs(t, err, model.ErrAlreadyActive)
}

func TestCreateRetriesDeadlock(t *testing.T) {
	repo, mock := newRepo(t)

	deadlock := &gomysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectExec(insertQuery).WillReturnError(deadlock)
	mock.ExpectRollback()

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(activeRow(1, 0))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), newPair())
	assert.ErrorIs(t, err, model.ErrAlreadyActive)
}

func TestCreateRepeatedDeadlock(t *testing.T) {
	repo, mock := newRepo(t)

	deadlock := &gomysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}

	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnError(deadlock)
		mock.ExpectRollback()
	}

	_, err := repo.Create(context.Background(), newPair())
	assert.ErrorIs(t, err, model.ErrAlreadyActive)
}

func TestActive(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectPrepare(activeQuery).ExpectQuery().WithArgs("u1").WillReturnRows(activeRow(7, 3))

	pair, err := repo.Active(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), pair.ID)
	assert.Equal(t, int64(3), pair.Nonce)
	assert.True(t, pair.IsActive)
	assert.Nil(t, pair.RevealedAt)
	assert.True(t, created.Equal(pair.CreatedAt))
}

func TestActiveNotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectPrepare(activeQuery).ExpectQuery().WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Active(context.Background(), "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestRotate(t *testing.T) {
	repo, mock := newRepo(t)

	at := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(activeRow(7, 5))
	mock.ExpectExec(`UPDATE seed_pairs SET is_active = 0, revealed_at = \? WHERE id = \? AND is_active = 1`).
		WithArgs(at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQuery).
		WithArgs("u1", "client", "next", "next-hash", int64(0), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(8, 1))
	mock.ExpectCommit()

	next := model.SeedPair{ServerSeed: "next", ServerSeedHash: "next-hash", ClientSeed: "ignored", CreatedAt: at}

	rotation, err := repo.Rotate(context.Background(), "u1", next, at)
	require.NoError(t, err)

	assert.Equal(t, int64(7), rotation.Revealed.ID)
	assert.False(t, rotation.Revealed.IsActive)
	assert.Equal(t, int64(5), rotation.Revealed.Nonce)
	require.NotNil(t, rotation.Revealed.RevealedAt)
	assert.True(t, at.Equal(*rotation.Revealed.RevealedAt))

	assert.Equal(t, int64(8), rotation.Next.ID)
	assert.Equal(t, "client", rotation.Next.ClientSeed)
	assert.Equal(t, int64(0), rotation.Next.Nonce)
	assert.True(t, rotation.Next.IsActive)
}

func TestRotateRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(activeRow(7, 5))
	mock.ExpectExec(`UPDATE seed_pairs SET is_active = 0`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insertQuery).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Rotate(context.Background(), "u1", model.SeedPair{ServerSeed: "n", ServerSeedHash: "h"}, time.Now())
	assert.Error(t, err)
}

func TestRotateWithoutActivePair(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectRollback()

	_, err := repo.Rotate(context.Background(), "u1", model.SeedPair{}, time.Now())
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSetClientSeed(t *testing.T) {
	repo, mock := newRepo(t)

	const update = `UPDATE seed_pairs SET client_seed = \? WHERE user_id = \? AND is_active = 1`

	mock.ExpectPrepare(update).ExpectExec().WithArgs("mine", "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(update).ExpectExec().WithArgs("mine", "u2").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetClientSeed(context.Background(), "u1", "mine"))
	assert.ErrorIs(t, repo.SetClientSeed(context.Background(), "u2", "mine"), model.ErrNotFound)
}

func TestConsumeNonce(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(activeRow(7, 4))
	mock.ExpectExec(`UPDATE seed_pairs SET nonce = nonce \+ 1 WHERE id = \?`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pair, err := repo.ConsumeNonce(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), pair.Nonce)
	assert.Equal(t, "server", pair.ServerSeed)
}

func TestConsumeNonceWithoutActivePair(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQuery).WithArgs("u1").WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectRollback()

	_, err := repo.ConsumeNonce(context.Background(), "u1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestHistory(t *testing.T) {
	repo, mock := newRepo(t)

	revealed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(columns).
		AddRow(int64(9), "u1", "c", "s2", "h2", int64(3), false, revealed, created).
		AddRow(int64(4), "u1", "c", "s1", "h1", int64(10), false, revealed, created)

	mock.ExpectPrepare(`SELECT .* FROM seed_pairs WHERE user_id = \? AND is_active = 0 ORDER BY id DESC LIMIT \?`).
		ExpectQuery().
		WithArgs("u1", 2).
		WillReturnRows(rows)

	pairs, err := repo.History(context.Background(), "u1", 2)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Equal(t, int64(9), pairs[0].ID)
	assert.Equal(t, model.SeedRevealed, pairs[0].State())
	require.NotNil(t, pairs[1].RevealedAt)
	assert.True(t, revealed.Equal(*pairs[1].RevealedAt))
}

func TestHistoryWithoutLimit(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectPrepare(`ORDER BY id DESC$`).
		ExpectQuery().
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(columns))

	pairs, err := repo.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
