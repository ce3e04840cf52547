package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/storage/mysql"
)

const createAttempts = 2

const seedPairColumns = "id, user_id, client_seed, server_seed, server_seed_hash, nonce, is_active, revealed_at, created_at"

// SeedPairRepository keeps seed pairs in MySQL. The active row of a user is locked with
// SELECT ... FOR UPDATE for every mutation; the unique index on the generated active_user_id
// column rejects a second active row even without a row to lock.
type SeedPairRepository struct {
	dbhandler *mysql.Handler
}

func NewSeedPairRepository(dbhandler *mysql.Handler) *SeedPairRepository {
	return &SeedPairRepository{dbhandler: dbhandler}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSeedPair(row rowScanner) (model.SeedPair, error) {
	var (
		pair       model.SeedPair
		revealedAt sql.NullTime
	)

	err := row.Scan(
		&pair.ID,
		&pair.UserID,
		&pair.ClientSeed,
		&pair.ServerSeed,
		&pair.ServerSeedHash,
		&pair.Nonce,
		&pair.IsActive,
		&revealedAt,
		&pair.CreatedAt,
	)
	if err != nil {
		return model.SeedPair{}, err
	}

	if revealedAt.Valid {
		t := revealedAt.Time.UTC()
		pair.RevealedAt = &t
	}

	return pair, nil
}

func lockActive(ctx context.Context, tx *sql.Tx, userID string) (model.SeedPair, error) {
	const query = "SELECT " + seedPairColumns + " FROM seed_pairs WHERE user_id = ? AND is_active = 1 FOR UPDATE"

	pair, err := scanSeedPair(tx.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.SeedPair{}, model.NewError(model.KindNotFound, "no active seed pair for user %q", userID)
	}

	return pair, err
}

func insertSeedPair(ctx context.Context, tx *sql.Tx, pair model.SeedPair) (int64, error) {
	const query = "INSERT INTO seed_pairs(user_id," +
		" client_seed," +
		" server_seed," +
		" server_seed_hash," +
		" nonce," +
		" is_active," +
		" created_at) " +
		"VALUES(?, ?, ?, ?, ?, ?, ?)"

	res, err := tx.ExecContext(ctx, query,
		pair.UserID,
		pair.ClientSeed,
		pair.ServerSeed,
		pair.ServerSeedHash,
		pair.Nonce,
		pair.IsActive,
		pair.CreatedAt)
	if err != nil {
		if mysql.IsDuplicateEntry(err) {
			return 0, model.NewError(model.KindAlreadyActive, "user %q already has an active seed pair", pair.UserID)
		}

		return 0, err
	}

	return res.LastInsertId()
}

// Create inserts the first active pair of a user. Without a row to lock, two concurrent creates
// can deadlock on the gap lock; the loser is retried once and then sees the winner's row.
func (repo *SeedPairRepository) Create(ctx context.Context, pair model.SeedPair) (model.SeedPair, error) {
	const op = "repository.seed_pair.Create"

	var err error

	for attempt := 0; attempt < createAttempts; attempt++ {
		err = repo.dbhandler.WithTransaction(ctx, func(tx *sql.Tx) error {
			_, err := lockActive(ctx, tx, pair.UserID)
			switch {
			case err == nil:
				return model.NewError(model.KindAlreadyActive, "user %q already has an active seed pair", pair.UserID)
			case !errors.Is(err, model.ErrNotFound):
				return err
			}

			pair.ID, err = insertSeedPair(ctx, tx, pair)

			return err
		})
		if !mysql.IsDeadlock(err) {
			break
		}
	}

	if err != nil {
		if mysql.IsDeadlock(err) {
			err = model.NewError(model.KindAlreadyActive, "user %q is being issued a seed pair concurrently", pair.UserID)
		}

		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (repo *SeedPairRepository) Active(ctx context.Context, userID string) (model.SeedPair, error) {
	const op = "repository.seed_pair.Active"

	const query = "SELECT " + seedPairColumns + " FROM seed_pairs WHERE user_id = ? AND is_active = 1"

	row, err := repo.dbhandler.PrepareAndQueryRow(ctx, query, userID)
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := scanSeedPair(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SeedPair{}, fmt.Errorf("%s: %w", op,
				model.NewError(model.KindNotFound, "no active seed pair for user %q", userID))
		}

		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return pair, nil
}

func (repo *SeedPairRepository) Rotate(
	ctx context.Context,
	userID string,
	next model.SeedPair,
	revealedAt time.Time,
) (model.Rotation, error) {
	const op = "repository.seed_pair.Rotate"

	const reveal = "UPDATE seed_pairs SET is_active = 0, revealed_at = ? WHERE id = ? AND is_active = 1"

	var rotation model.Rotation

	err := repo.dbhandler.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := lockActive(ctx, tx, userID)
		if err != nil {
			return err
		}

		revealed, err := current.Reveal(revealedAt)
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, reveal, *revealed.RevealedAt, revealed.ID); err != nil {
			return err
		}

		next.UserID = userID
		next.ClientSeed = current.ClientSeed
		next.Nonce = 0
		next.IsActive = true

		next.ID, err = insertSeedPair(ctx, tx, next)
		if err != nil {
			return err
		}

		rotation = model.Rotation{Revealed: revealed, Next: next}

		return nil
	})
	if err != nil {
		return model.Rotation{}, fmt.Errorf("%s: %w", op, err)
	}

	return rotation, nil
}

func (repo *SeedPairRepository) SetClientSeed(ctx context.Context, userID string, clientSeed string) error {
	const op = "repository.seed_pair.SetClientSeed"

	const query = "UPDATE seed_pairs SET client_seed = ? WHERE user_id = ? AND is_active = 1"

	res, err := repo.dbhandler.PrepareAndExecute(ctx, query, clientSeed, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Open sets ClientFoundRows, so an unchanged seed still counts as one row.
	if affected == 0 {
		return fmt.Errorf("%s: %w", op,
			model.NewError(model.KindNotFound, "no active seed pair for user %q", userID))
	}

	return nil
}

func (repo *SeedPairRepository) ConsumeNonce(ctx context.Context, userID string) (model.SeedPair, error) {
	const op = "repository.seed_pair.ConsumeNonce"

	const increment = "UPDATE seed_pairs SET nonce = nonce + 1 WHERE id = ?"

	var snapshot model.SeedPair

	err := repo.dbhandler.WithTransaction(ctx, func(tx *sql.Tx) error {
		current, err := lockActive(ctx, tx, userID)
		if err != nil {
			return err
		}

		if _, err = tx.ExecContext(ctx, increment, current.ID); err != nil {
			return err
		}

		snapshot = current

		return nil
	})
	if err != nil {
		return model.SeedPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return snapshot, nil
}

func (repo *SeedPairRepository) History(ctx context.Context, userID string, limit int) ([]model.SeedPair, error) {
	const op = "repository.seed_pair.History"

	query := "SELECT " + seedPairColumns + " FROM seed_pairs WHERE user_id = ? AND is_active = 0 ORDER BY id DESC"
	args := []interface{}{userID}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := repo.dbhandler.PrepareAndQuery(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var pairs []model.SeedPair

	for rows.Next() {
		pair, err := scanSeedPair(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		pairs = append(pairs, pair)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return pairs, nil
}
