package service

import (
	"context"
	"time"

	"burnpace/internal/log"
)

// LiveRefresher pulls recent samples from the remote before every refresh.
// A failed sync is logged and the refresh runs on what the store holds.
type LiveRefresher struct {
	sync    *SyncService
	refresh *RefreshService
}

// NewLiveRefresher creates a refresher that syncs first
func NewLiveRefresher(sync *SyncService, refresh *RefreshService) *LiveRefresher {
	return &LiveRefresher{sync: sync, refresh: refresh}
}

func (l *LiveRefresher) Refresh(ctx context.Context, now time.Time) (*Summary, error) {
	result, err := l.sync.Sync(ctx, now, nil)
	switch {
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warnw("sync before refresh failed", "error", err)
	case len(result.Errors) > 0:
		log.Warnw("sync before refresh incomplete", "errors", len(result.Errors), "first", result.Errors[0])
	}
	return l.refresh.Refresh(ctx, now)
}
