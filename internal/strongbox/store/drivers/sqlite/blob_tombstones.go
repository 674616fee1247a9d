package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
)

type blobTombstonesRepo struct {
	q dbtx
}

// CreateTombstone is idempotent per key.
func (r *blobTombstonesRepo) CreateTombstone(ctx context.Context, blobKey string, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO blob_tombstones (blob_key, attempts, created_at)
		VALUES (?, 0, ?)
		ON CONFLICT (blob_key) DO NOTHING`,
		blobKey, utc(now),
	)
	return err
}

func (r *blobTombstonesRepo) ListTombstones(ctx context.Context, limit int) ([]domain.BlobTombstone, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.QueryContext(ctx, `
		SELECT blob_key, attempts, created_at FROM blob_tombstones
		ORDER BY created_at, blob_key
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.BlobTombstone
	for rows.Next() {
		var t domain.BlobTombstone
		if err := rows.Scan(&t.BlobKey, &t.Attempts, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *blobTombstonesRepo) RecordTombstoneAttempt(ctx context.Context, blobKey string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE blob_tombstones SET attempts = attempts + 1 WHERE blob_key = ?`, blobKey)
	return err
}

func (r *blobTombstonesRepo) DeleteTombstone(ctx context.Context, blobKey string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM blob_tombstones WHERE blob_key = ?`, blobKey)
	return err
}
