package txhooks

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Hooks collects callbacks to run once a transaction's outcome is known.
// Cache writes, lock releases and event publishes must not happen inside
// the transaction: they only make sense after commit (or need undoing
// after rollback). Callbacks run outside the transaction, in registration
// order, and must not assume the transaction is still open.
type Hooks struct {
	afterCommit   []func(ctx context.Context)
	afterRollback []func(ctx context.Context)
}

func New() *Hooks {
	return &Hooks{}
}

// AfterCommit registers fn to run if the transaction commits.
func (h *Hooks) AfterCommit(fn func(ctx context.Context)) {
	h.afterCommit = append(h.afterCommit, fn)
}

// AfterRollback registers fn to run if the transaction rolls back.
func (h *Hooks) AfterRollback(fn func(ctx context.Context)) {
	h.afterRollback = append(h.afterRollback, fn)
}

func (h *Hooks) runAfterCommit(ctx context.Context) {
	for _, fn := range h.afterCommit {
		fn(ctx)
	}
}

func (h *Hooks) runAfterRollback(ctx context.Context) {
	for _, fn := range h.afterRollback {
		fn(ctx)
	}
}

// WithTransaction runs fn inside a READ COMMITTED database transaction
// and fires the registered hooks once the outcome is known. A nil error
// fires the after-commit hooks; any error (including a failed commit)
// fires the after-rollback hooks and is returned unchanged.
//
// Hooks run on a context detached from the caller's cancellation: once
// the commit has happened the side effects must flow even if the request
// that triggered them has already gone away.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB, hooks *Hooks) error) error {
	hooks := New()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, hooks)
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})

	hookCtx := context.WithoutCancel(ctx)
	if err != nil {
		hooks.runAfterRollback(hookCtx)
		return err
	}

	hooks.runAfterCommit(hookCtx)
	return nil
}
