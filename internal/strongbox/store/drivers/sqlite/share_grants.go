package sqlite

import (
	"context"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
)

type shareGrantsRepo struct {
	q dbtx
}

func scanGrant(row scanner) (domain.ShareGrant, error) {
	var (
		g    domain.ShareGrant
		perm string
	)
	if err := row.Scan(&g.FileID, &g.Email, &perm, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return domain.ShareGrant{}, mapNotFound(err)
	}
	g.Permission = domain.Permission(perm)
	g.CreatedAt = g.CreatedAt.UTC()
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, nil
}

func (r *shareGrantsRepo) UpsertGrant(ctx context.Context, g domain.ShareGrant) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO share_grants (file_id, email, permission, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (file_id, email) DO UPDATE SET
			permission = excluded.permission,
			updated_at = excluded.updated_at`,
		g.FileID, g.Email, string(g.Permission), utc(g.CreatedAt), utc(g.UpdatedAt),
	)
	return err
}

func (r *shareGrantsRepo) GetGrant(ctx context.Context, fileID, email string) (domain.ShareGrant, error) {
	return scanGrant(r.q.QueryRowContext(ctx, `
		SELECT file_id, email, permission, created_at, updated_at
		FROM share_grants WHERE file_id = ? AND email = ?`, fileID, email))
}

func (r *shareGrantsRepo) DeleteGrant(ctx context.Context, fileID, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM share_grants WHERE file_id = ? AND email = ?`, fileID, email)
	return err
}

func (r *shareGrantsRepo) ListGrantsByFile(ctx context.Context, fileID string) ([]domain.ShareGrant, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT file_id, email, permission, created_at, updated_at
		FROM share_grants WHERE file_id = ?
		ORDER BY email`, fileID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.ShareGrant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *shareGrantsRepo) DeleteGrantsByFile(ctx context.Context, fileID string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM share_grants WHERE file_id = ?`, fileID)
	return err
}
