package sqlite

import (
	"context"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type filesRepo struct {
	q dbtx
}

const fileColumns = `f.id, f.owner_id, f.name, f.size, f.content_type, f.blob_key,
	f.content_nonce, f.password_salt, f.password_wrapped_key,
	f.kdf_memory, f.kdf_iterations, f.kdf_parallelism,
	f.owner_salt, f.owner_wrapped_key, f.version, f.uploaded_at`

// fileDest returns scan destinations for fileColumns plus a finisher that
// copies the integer KDF columns into their narrower domain types.
func fileDest(f *domain.File) ([]any, func()) {
	var mem, iters, par int64
	dest := []any{
		&f.ID, &f.OwnerID, &f.Name, &f.Size, &f.ContentType, &f.BlobKey,
		&f.Envelope.ContentNonce, &f.Envelope.PasswordSalt, &f.Envelope.PasswordWrappedKey,
		&mem, &iters, &par,
		&f.Envelope.OwnerSalt, &f.Envelope.OwnerWrappedKey, &f.Version, &f.UploadedAt,
	}
	return dest, func() {
		f.Envelope.KDFMemory = uint32(mem)       // #nosec G115 -- validated on write
		f.Envelope.KDFIterations = uint32(iters) // #nosec G115
		f.Envelope.KDFParallelism = uint8(par)   // #nosec G115
		f.UploadedAt = f.UploadedAt.UTC()
	}
}

func scanFile(row scanner) (domain.File, error) {
	var f domain.File
	dest, finish := fileDest(&f)
	if err := row.Scan(dest...); err != nil {
		return domain.File{}, mapNotFound(err)
	}
	finish()
	return f, nil
}

func (r *filesRepo) CreateFile(ctx context.Context, f domain.File) error {
	env := f.Envelope
	version := f.Version
	if version == 0 {
		version = 1
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO files (id, owner_id, name, size, content_type, blob_key,
			content_nonce, password_salt, password_wrapped_key,
			kdf_memory, kdf_iterations, kdf_parallelism,
			owner_salt, owner_wrapped_key, version, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OwnerID, f.Name, f.Size, f.ContentType, f.BlobKey,
		env.ContentNonce, env.PasswordSalt, env.PasswordWrappedKey,
		int64(env.KDFMemory), int64(env.KDFIterations), int64(env.KDFParallelism),
		env.OwnerSalt, env.OwnerWrappedKey, version, utc(f.UploadedAt),
	)
	return mapUnique(err)
}

func (r *filesRepo) GetFile(ctx context.Context, id string) (domain.File, error) {
	return scanFile(r.q.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files f WHERE f.id = ?`, id))
}

func (r *filesRepo) ListFilesByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+fileColumns+` FROM files f
		WHERE f.owner_id = ?
		ORDER BY f.uploaded_at DESC, f.id DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *filesRepo) ListFilesSharedWith(ctx context.Context, email string) ([]domain.SharedFile, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+fileColumns+`, u.email, u.name, g.permission
		FROM share_grants g
		JOIN files f ON f.id = g.file_id
		JOIN users u ON u.id = f.owner_id
		WHERE g.email = ?
		ORDER BY f.uploaded_at DESC, f.id DESC`, email)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []domain.SharedFile
	for rows.Next() {
		var (
			sf   domain.SharedFile
			perm string
		)
		dest, finish := fileDest(&sf.File)
		dest = append(dest, &sf.OwnerEmail, &sf.OwnerName, &perm)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		finish()
		sf.Permission = domain.Permission(perm)
		out = append(out, sf)
	}
	return out, rows.Err()
}

func (r *filesRepo) BumpVersion(ctx context.Context, id string, expected int64) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE files SET version = version + 1 WHERE id = ? AND version = ?`,
		id, expected,
	)
	return requireOneRow(res, err, store.ErrConflict)
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
	return requireOneRow(res, err, store.ErrNotFound)
}
