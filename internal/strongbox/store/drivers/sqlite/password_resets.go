package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type passwordResetsRepo struct {
	q dbtx
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, p domain.PasswordReset) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.TokenHash, utc(p.ExpiresAt), utc(p.CreatedAt),
	)
	return mapUnique(err)
}

func (r *passwordResetsRepo) GetPasswordResetByHash(ctx context.Context, tokenHash string) (domain.PasswordReset, error) {
	var (
		p      domain.PasswordReset
		usedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_resets WHERE token_hash = ?`, tokenHash,
	).Scan(&p.ID, &p.UserID, &p.TokenHash, &p.ExpiresAt, &usedAt, &p.CreatedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}
	p.ExpiresAt = p.ExpiresAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UsedAt = mapNullTimePtr(usedAt)
	return p, nil
}

func (r *passwordResetsRepo) MarkPasswordResetUsed(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE password_resets SET used_at = ? WHERE id = ? AND used_at IS NULL`,
		utc(now), id,
	)
	return requireOneRow(res, err, store.ErrConflict)
}

func (r *passwordResetsRepo) DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at <= ? OR used_at IS NOT NULL`,
		utc(now),
	))
}
