// Package database is the hand-rolled query layer over pgx. It keeps the
// generated-code shape (one Queries struct, one method per statement, params
// and row structs) so handlers can depend on narrow interfaces that
// *Queries satisfies, and tests can swap in map-backed fakes.
package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx that Queries needs. Both *pgxpool.Pool and
// pgx.Tx satisfy it, so the same Queries type runs inside and outside a
// transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// New returns a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries executes the application's SQL statements against db.
type Queries struct {
	db DBTX
}

// WithTx returns a Queries that runs on tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
