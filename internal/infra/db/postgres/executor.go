package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"qr-ticket-system/internal/domain"
)

const uniqueViolation = "23505"

// executor is the subset of pgx shared by pools, connections and transactions.
type executor interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

var (
	_ executor = (*pgxpool.Pool)(nil)
	_ executor = (pgx.Tx)(nil)
)

func execSQL(ctx context.Context, ex executor, q string, args ...interface{}) (pgconn.CommandTag, error) {
	if ex == nil {
		return nil, domain.ErrInvalidExecContext
	}
	return ex.Exec(ctx, q, args...)
}

func pickRow(ctx context.Context, ex executor, q string, args ...interface{}) (pgx.Row, error) {
	if ex == nil {
		return nil, domain.ErrInvalidExecContext
	}
	return ex.QueryRow(ctx, q, args...), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
