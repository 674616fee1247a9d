package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
)

type signingKeysRepo struct {
	q dbtx
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, private_key_encrypted, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		k.ID, k.Kid, k.Algorithm, k.PrivateKeyEncrypted, utc(k.CreatedAt), utc(k.ExpiresAt),
	)
	return mapUnique(err)
}

func (r *signingKeysRepo) ListActiveSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, kid, algorithm, private_key_encrypted, created_at, expires_at
		FROM signing_keys
		WHERE expires_at > ?
		ORDER BY created_at DESC, id DESC`, utc(now))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.SigningKey
	for rows.Next() {
		var k domain.SigningKey
		if err := rows.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.PrivateKeyEncrypted, &k.CreatedAt, &k.ExpiresAt); err != nil {
			return nil, err
		}
		k.CreatedAt = k.CreatedAt.UTC()
		k.ExpiresAt = k.ExpiresAt.UTC()
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx, `DELETE FROM signing_keys WHERE expires_at <= ?`, utc(now)))
}
