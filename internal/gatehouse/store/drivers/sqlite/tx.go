package sqlite

import (
	"context"
	"database/sql"

	"github.com/fennelworks/gatehouse/internal/gatehouse/store"
)

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the outer DB stays open.
func (t *txStore) Close() error { return nil }

// Ping is a no-op; the connection is already established by the transaction.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested transactions are not supported.
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

// ApplyMigrations is a no-op inside a transaction; migrations run at startup.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Users() store.Users                           { return &usersRepo{db: t.tx} }
func (t *txStore) Sessions() store.Sessions                     { return &sessionsRepo{db: t.tx} }
func (t *txStore) VerificationTokens() store.VerificationTokens { return &tokensRepo{db: t.tx} }
func (t *txStore) Identities() store.Identities                 { return &identitiesRepo{db: t.tx} }
