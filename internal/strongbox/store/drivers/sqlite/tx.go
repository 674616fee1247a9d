package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back and the DB stays open.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(context.Context, func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                   { return &usersRepo{q: t.tx} }
func (t *txStore) Sessions() store.Sessions             { return &sessionsRepo{q: t.tx} }
func (t *txStore) PasswordResets() store.PasswordResets { return &passwordResetsRepo{q: t.tx} }
func (t *txStore) Files() store.Files                   { return &filesRepo{q: t.tx} }
func (t *txStore) ShareGrants() store.ShareGrants       { return &shareGrantsRepo{q: t.tx} }
func (t *txStore) ShareLinks() store.ShareLinks         { return &shareLinksRepo{q: t.tx} }
func (t *txStore) BlobTombstones() store.BlobTombstones { return &blobTombstonesRepo{q: t.tx} }
func (t *txStore) SigningKeys() store.SigningKeys       { return &signingKeysRepo{q: t.tx} }

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }
