package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"booking-scheduler/internal/migration"
	"booking-scheduler/internal/store"
	"booking-scheduler/internal/store/postgres/migrations"
)

const uniqueViolation = "23505"

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// Open connects to dbURL and verifies the connection.
func Open(ctx context.Context, dbURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}
	return &Store{DB: pool}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context, logFn func(string)) (int, error) {
	db := stdlib.OpenDBFromPool(s.DB)
	defer db.Close()
	return migration.NewRunner(db, migrations.FS).ApplyMigrations(ctx, logFn)
}

func (s *Store) Close() error {
	s.DB.Close()
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
