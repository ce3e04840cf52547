package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

const (
	errDuplicateEntry = 1062
	errDeadlock       = 1213
)

type Handler struct {
	Conn *sql.DB
}

func New(conn *sql.DB) *Handler {
	return &Handler{Conn: conn}
}

// Open connects with the mysql driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*Handler, error) {
	const op = "storage.mysql.Open"

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// revealed_at and created_at are scanned into time.Time.
	cfg.ParseTime = true
	cfg.ClientFoundRows = true

	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = conn.PingContext(ctx); err != nil {
		_ = conn.Close()

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return New(conn), nil
}

func (handler *Handler) Close() error {
	return handler.Conn.Close()
}

func (handler *Handler) PrepareAndExecute(ctx context.Context, statement string, args ...interface{}) (sql.Result, error) {
	const op = "storage.mysql.PrepareAndExecute"

	stmt, err := handler.Conn.PrepareContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

func (handler *Handler) PrepareAndQueryRow(ctx context.Context, statement string, args ...interface{}) (*sql.Row, error) {
	const op = "storage.mysql.PrepareAndQueryRow"

	stmt, err := handler.Conn.PrepareContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	return stmt.QueryRowContext(ctx, args...), nil
}

func (handler *Handler) PrepareAndQuery(ctx context.Context, statement string, args ...interface{}) (*sql.Rows, error) {
	const op = "storage.mysql.PrepareAndQuery"

	stmt, err := handler.Conn.PrepareContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return rows, nil
}

// WithTransaction runs fn inside a transaction. The transaction is committed when fn returns
// nil and rolled back otherwise, including on panic and context cancellation.
func (handler *Handler) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	const op = "storage.mysql.WithTransaction"

	tx, err := handler.Conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%s: %w (rollback: %v)", op, err, rbErr)
		}

		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IsDuplicateEntry reports whether err is a MySQL unique key violation.
func IsDuplicateEntry(err error) bool {
	var myErr *mysql.MySQLError

	return errors.As(err, &myErr) && myErr.Number == errDuplicateEntry
}

// IsDeadlock reports whether err is an InnoDB deadlock; the transaction was rolled back and may
// be retried.
func IsDeadlock(err error) bool {
	var myErr *mysql.MySQLError

	return errors.As(err, &myErr) && myErr.Number == errDeadlock
}
