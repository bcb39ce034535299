package metrics

import (
	"context"
	"time"
)

// KitStatus is the read side of the kit manager the loop samples.
type KitStatus interface {
	RefCount() int
	StatusInfo() map[string]interface{}
}

func recordMetricsLoop(ctx context.Context, status KitStatus) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			RecordKitStatus(ctx, status)
		case <-ctx.Done():
			log.Infof("context done, stop record metrics")
			return
		}
	}
}

func RecordKitStatus(ctx context.Context, status KitStatus) {
	KitRefs.Set(ctx, int64(status.RefCount()))

	info := status.StatusInfo()
	if info == nil {
		KitSynced.Set(ctx, 0)
		return
	}
	if height, ok := info["Last Block Height"].(uint64); ok {
		KitLastBlockHeight.Set(ctx, int64(height))
	}
	if state, ok := info["Sync State"].(string); ok && state == "synced" {
		KitSynced.Set(ctx, 1)
	} else {
		KitSynced.Set(ctx, 0)
	}
}

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}
