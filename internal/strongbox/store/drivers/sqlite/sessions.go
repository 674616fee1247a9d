package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/domain"
	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

type sessionsRepo struct {
	q dbtx
}

const sessionColumns = `id, user_id, state, otp_counter, otp_expires_at, otp_attempts,
	token_fingerprint, csrf_fingerprint, expires_at, created_at, updated_at`

func scanSession(row scanner) (domain.Session, error) {
	var (
		s       domain.Session
		state   string
		counter int64
	)
	err := row.Scan(
		&s.ID, &s.UserID, &state, &counter, &s.OTPExpiresAt, &s.OTPAttempts,
		&s.TokenFingerprint, &s.CSRFFingerprint, &s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}
	s.State = domain.SessionState(state)
	s.OTPCounter = uint64(counter) // #nosec G115
	s.OTPExpiresAt = s.OTPExpiresAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, state, otp_counter, otp_expires_at, otp_attempts,
			token_fingerprint, csrf_fingerprint, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, string(s.State), int64(s.OTPCounter), utc(s.OTPExpiresAt), s.OTPAttempts, // #nosec G115
		s.TokenFingerprint, s.CSRFFingerprint, utc(s.ExpiresAt), utc(s.CreatedAt), utc(s.UpdatedAt),
	)
	return mapUnique(err)
}

func (r *sessionsRepo) GetSession(ctx context.Context, id string) (domain.Session, error) {
	return scanSession(r.q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id))
}

func (r *sessionsRepo) GetLatestPendingSession(ctx context.Context, userID string) (domain.Session, error) {
	return scanSession(r.q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND state = 'pending_otp'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, userID))
}

func (r *sessionsRepo) IncrementOTPAttempts(ctx context.Context, id string, now time.Time) (domain.Session, error) {
	s, err := scanSession(r.q.QueryRowContext(ctx, `
		UPDATE sessions SET otp_attempts = otp_attempts + 1, updated_at = ?
		WHERE id = ? AND state = 'pending_otp'
		RETURNING `+sessionColumns, utc(now), id))
	if errors.Is(err, store.ErrNotFound) {
		return domain.Session{}, store.ErrConflict
	}
	return s, err
}

func (r *sessionsRepo) MarkAuthenticated(ctx context.Context, id, tokenFP, csrfFP string, expiresAt, now time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE sessions
		SET state = 'authenticated', token_fingerprint = ?, csrf_fingerprint = ?, expires_at = ?, updated_at = ?
		WHERE id = ? AND state = 'pending_otp'`,
		tokenFP, csrfFP, utc(expiresAt), utc(now), id,
	)
	return requireOneRow(res, err, store.ErrConflict)
}

func (r *sessionsRepo) ExpireSession(ctx context.Context, id string, now time.Time) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE sessions SET state = 'expired', updated_at = ? WHERE id = ? AND state != 'expired'`,
		utc(now), id,
	)
	return err
}

func (r *sessionsRepo) ExpireUserSessions(ctx context.Context, userID string, now time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`UPDATE sessions SET state = 'expired', updated_at = ? WHERE user_id = ? AND state != 'expired'`,
		utc(now), userID,
	))
}

func (r *sessionsRepo) ExpireStaleSessions(ctx context.Context, now time.Time) (int64, error) {
	n := utc(now)
	return rowsAffected(r.q.ExecContext(ctx, `
		UPDATE sessions SET state = 'expired', updated_at = ?
		WHERE (state = 'pending_otp' AND otp_expires_at <= ?)
		   OR (state = 'authenticated' AND expires_at <= ?)`,
		n, n, n,
	))
}

func (r *sessionsRepo) DeleteExpiredSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return rowsAffected(r.q.ExecContext(ctx,
		`DELETE FROM sessions WHERE state = 'expired' AND updated_at < ?`,
		utc(cutoff),
	))
}
