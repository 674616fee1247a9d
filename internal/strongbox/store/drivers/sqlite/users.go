package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type usersRepo struct {
	q dbtx
}

const userColumns = `id, email, name, password_hash, otp_secret, otp_counter, created_at, updated_at`

func scanUser(row scanner) (domain.User, error) {
	var (
		u       domain.User
		counter int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.OTPSecret, &counter, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.OTPCounter = uint64(counter) // #nosec G115 -- counter only grows from zero
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, otp_secret, otp_counter, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.OTPSecret, utc(u.CreatedAt), utc(u.UpdatedAt),
	)
	return mapUnique(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, utc(now), userID,
	)
	return requireOneRow(res, err, store.ErrNotFound)
}

func (r *usersRepo) NextOTPCounter(ctx context.Context, userID string) (uint64, error) {
	var counter int64
	err := r.q.QueryRowContext(ctx,
		`UPDATE users SET otp_counter = otp_counter + 1 WHERE id = ? RETURNING otp_counter`,
		userID,
	).Scan(&counter)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return uint64(counter), nil // #nosec G115
}
