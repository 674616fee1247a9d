package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/strongbox/internal/strongbox/store"
)

const (
	DefaultHousekeepingInterval = 10 * time.Minute
	DefaultLinkRetention        = 30 * 24 * time.Hour
	DefaultSessionRetention     = 24 * time.Hour

	tombstoneBatch = 100
)

// HousekeepingService periodically sweeps expired sessions, reset tokens,
// links and signing keys, and retries blob deletes that did not complete.
type HousekeepingService struct {
	Store    store.Store
	Vault    *VaultService
	Logger   *slog.Logger
	Interval time.Duration

	// LinkRetention is how long a deactivated link stays listed before it is
	// purged. SessionRetention is the same for expired sessions.
	LinkRetention    time.Duration
	SessionRetention time.Duration

	Now func() time.Time
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval falls back to DefaultHousekeepingInterval.
func NewHousekeepingService(st store.Store, vault *VaultService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}
	return &HousekeepingService{
		Store:            st,
		Vault:            vault,
		Logger:           logger,
		Interval:         interval,
		LinkRetention:    DefaultLinkRetention,
		SessionRetention: DefaultSessionRetention,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *HousekeepingService) Run(ctx context.Context) error {
	s.Logger.Info("housekeeping service started", "interval", s.Interval)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.Logger.Info("housekeeping service stopped")
			return nil
		}
	}
}

// Sweep performs one cleanup pass. Each step is independent; a failure in
// one does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	now := clock(s.Now).now()
	s.Logger.Debug("starting housekeeping sweep")

	var ok int
	step := func(name string, fn func() (int64, error)) {
		n, err := fn()
		if err != nil {
			s.Logger.Error("housekeeping step failed", "step", name, "error", err)
			return
		}
		if n > 0 {
			s.Logger.Info("housekeeping step", "step", name, "affected", n)
		}
		ok++
	}

	step("expire_stale_sessions", func() (int64, error) {
		return s.Store.Sessions().ExpireStaleSessions(ctx, now)
	})
	step("delete_expired_sessions", func() (int64, error) {
		return s.Store.Sessions().DeleteExpiredSessionsBefore(ctx, now.Add(-s.SessionRetention))
	})
	step("delete_password_resets", func() (int64, error) {
		return s.Store.PasswordResets().DeleteExpiredPasswordResets(ctx, now)
	})
	step("deactivate_expired_links", func() (int64, error) {
		return s.Store.ShareLinks().DeactivateExpiredLinks(ctx, now)
	})
	step("purge_inactive_links", func() (int64, error) {
		return s.Store.ShareLinks().DeleteInactiveLinksBefore(ctx, now.Add(-s.LinkRetention))
	})
	step("delete_expired_signing_keys", func() (int64, error) {
		return s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	})
	if s.Vault != nil {
		step("purge_blob_tombstones", func() (int64, error) {
			n, err := s.Vault.PurgeTombstones(ctx, tombstoneBatch)
			return int64(n), err
		})
	}

	s.Logger.Debug("housekeeping sweep completed", "successful_steps", ok)
}
