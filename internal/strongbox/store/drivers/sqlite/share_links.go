package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type shareLinksRepo struct {
	q dbtx
}

const linkColumns = `id, file_id, token_hash, token_sealed, require_password,
	link_salt, link_wrapped_key, expires_at, active, deactivated_at, created_at`

func scanLink(row scanner) (domain.ShareLink, error) {
	var (
		l             domain.ShareLink
		deactivatedAt sql.NullTime
	)
	err := row.Scan(
		&l.ID, &l.FileID, &l.TokenHash, &l.TokenSealed, &l.RequirePassword,
		&l.LinkSalt, &l.LinkWrappedKey, &l.ExpiresAt, &l.Active, &deactivatedAt, &l.CreatedAt,
	)
	if err != nil {
		return domain.ShareLink{}, mapNotFound(err)
	}
	l.ExpiresAt = l.ExpiresAt.UTC()
	l.CreatedAt = l.CreatedAt.UTC()
	l.DeactivatedAt = mapNullTimePtr(deactivatedAt)
	return l, nil
}

func (r *shareLinksRepo) CreateLink(ctx context.Context, l domain.ShareLink) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO share_links (id, file_id, token_hash, token_sealed, require_password,
			link_salt, link_wrapped_key, expires_at, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.FileID, l.TokenHash, l.TokenSealed, l.RequirePassword,
		l.LinkSalt, l.LinkWrappedKey, utc(l.ExpiresAt), l.Active, utc(l.CreatedAt),
	)
	return mapUnique(err)
}

func (r *shareLinksRepo) GetLinkByTokenHash(ctx context.Context, tokenHash string) (domain.ShareLink, error) {
	return scanLink(r.q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM share_links WHERE token_hash = ?`, tokenHash))
}

func (r *shareLinksRepo) ListLinksByFile(ctx context.Context, fileID string) ([]domain.ShareLink, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+linkColumns+` FROM share_links
		WHERE file_id = ?
		ORDER BY created_at DESC, id DESC`, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ShareLink
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *shareLinksRepo) DeactivateLink(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE share_links
		SET active = 0, deactivated_at = ?, link_salt = NULL, link_wrapped_key = NULL
		WHERE id = ? AND active = 1`,
		utc(now), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Already inactive is fine; a missing row is not.
		var one int
		err := r.q.QueryRowContext(ctx, `SELECT 1 FROM share_links WHERE id = ?`, id).Scan(&one)
		if err != nil {
			return mapNotFound(err)
		}
	}
	return nil
}

func (r *shareLinksRepo) DeleteLinksByFile(ctx context.Context, fileID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM share_links WHERE file_id = ?`, fileID)
	return err
}

func (r *shareLinksRepo) DeactivateExpiredLinks(ctx context.Context, now time.Time) (int64, error) {
	n := utc(now)
	return rowsAffected(r.q.ExecContext(ctx, `
		UPDATE share_links
		SET active = 0, deactivated_at = ?, link_salt = NULL, link_wrapped_key = NULL
		WHERE active = 1 AND expires_at <= ?`,
		n, n,
	))
}

func (r *shareLinksRepo) DeleteInactiveLinksBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM share_links WHERE active = 0 AND deactivated_at < ?`,
		utc(cutoff),
	))
}

var _ store.ShareLinks = (*shareLinksRepo)(nil)
