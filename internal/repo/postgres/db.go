package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/fellowship/internal/actorctx"
	"github.com/geocoder89/fellowship/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRole is the database role row level security is enforced against.
// It is created by the initial migration.
const SessionRole = "fellowship_session"

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB is a data client. A session DB runs every statement inside a transaction whose
// row level security subject is the actor on the context; a service DB connects with
// a role that bypasses row level security and is only used behind an access gate.
type DB struct {
	pool     *pgxpool.Pool
	prom     *observability.Prom
	elevated bool
}

func NewSessionDB(pool *pgxpool.Pool, prom *observability.Prom) *DB {
	return &DB{pool: pool, prom: prom}
}

func NewServiceDB(pool *pgxpool.Pool, prom *observability.Prom) *DB {
	return &DB{pool: pool, prom: prom, elevated: true}
}

func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// run executes fn as one observed logical op.
func (db *DB) run(ctx context.Context, op string, fn func(q Querier) error) error {
	return db.prom.ObserveDB(op, func() error {
		if db.elevated {
			return fn(db.pool)
		}
		return db.tx(ctx, func(tx pgx.Tx) error { return fn(tx) })
	})
}

// runTx is run for multi-statement ops that must commit together.
func (db *DB) runTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	return db.prom.ObserveDB(op, func() error {
		return db.tx(ctx, fn)
	})
}

func (db *DB) tx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if !db.elevated {
			subject, _ := actorctx.UserIDFrom(ctx)

			// both are transaction-local, so neither leaks to the next borrower of the connection
			if _, err := tx.Exec(ctx, `SET LOCAL ROLE `+SessionRole); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.claim.sub', $1, true)`, subject); err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}
