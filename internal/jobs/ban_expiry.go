package jobs

import (
	"context"
	"log"
	"time"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/config"
)

type BanStore interface {
	DeactivateExpiredBans(ctx context.Context, now time.Time) (int64, error)
}

// StartBanExpiryJob periodically flips expired temp bans to inactive so the
// users listing and ban checks read current state without per-query expiry
// logic.
func StartBanExpiryJob(ctx context.Context, cfg config.Config, store BanStore) {
	if !cfg.BanSweepEnabled {
		return
	}
	interval := cfg.BanSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := cfg.BanSweepTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, timeout)
				expired, err := store.DeactivateExpiredBans(tickCtx, time.Now().UTC())
				cancel()
				if err != nil {
					log.Printf("ban expiry job error: %v", err)
					continue
				}
				if expired > 0 {
					log.Printf("ban expiry job deactivated %d bans", expired)
				}
			}
		}
	}()
}
