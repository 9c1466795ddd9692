package debugstore

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RunRetentionSweep periodically deletes artifacts older than
// retentionHours, blocking until ctx is cancelled. Intended to be launched
// in its own goroutine from main.
func RunRetentionSweep(ctx context.Context, store Store, retentionHours int, interval time.Duration, log logrus.FieldLogger) {
	if store == nil || retentionHours <= 0 {
		return
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-time.Duration(retentionHours) * time.Hour)
			removed, err := store.CleanupOlderThan(ctx, cutoff)
			if err != nil {
				log.WithError(err).Warn("debug_artifact_retention_sweep_failed")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Info("debug_artifact_retention_swept")
			}
		}
	}
}
