package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Tx is one all-or-nothing unit of work against the store. Every
// repository operation the control surface needs hangs off Tx, so the
// atomicity of a request is decided by where its WithTx scope begins and
// ends rather than by each caller.
type Tx struct {
	tx  *sql.Tx
	ctx context.Context
}

// WithTx runs fn inside a transaction. fn's error or panic rolls
// everything back; nil commits. The context bounds the whole scope, including waiting
// for the write lock.
func (db *DB) WithTx(ctx context.Context, fn func(*Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	// The pool holds a single connection, so a transaction left open by
	// a panicking fn would block every later caller.
	committed := false
	defer func() {
		if !committed {
			sqlTx.Rollback()
		}
	}()

	if err := fn(&Tx{tx: sqlTx, ctx: ctx}); err != nil {
		return err
	}

	committed = true
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) exec(query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(t.ctx, query, args...)
}

func (t *Tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(t.ctx, query, args...)
}

func (t *Tx) queryRow(query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(t.ctx, query, args...)
}

func toMillis(ts time.Time) int64 { return ts.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
