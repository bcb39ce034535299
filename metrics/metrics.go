package metrics

import (
	"github.com/ipfs-force-community/metrics"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Global Tags
var (
	AccountKey, _ = tag.NewKey("account")
	NetworkKey, _ = tag.NewKey("network")
	ReasonKey, _  = tag.NewKey("reason")
)

// Distribution
var defaultMillisecondsDistribution = view.Distribution(0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000, 4000, 5000, 7500, 10000)

var (
	KitCreated       = stats.Int64("evmkit/created", "Evm kit created", stats.UnitDimensionless)
	KitStopped       = stats.Int64("evmkit/stopped", "Evm kit stopped", stats.UnitDimensionless)
	KitStopFailed    = stats.Int64("evmkit/stop_failed", "Evm kit failed to stop", stats.UnitDimensionless)
	KitAcquireFailed = stats.Int64("evmkit/acquire_failed", "Evm kit acquire rejected", stats.UnitDimensionless)
	LifecycleEvent   = stats.Int64("evmkit/lifecycle", "Foreground and background transitions", stats.UnitDimensionless)

	// method call
	Acquire = stats.Float64("evmkit_acquire", "Call Acquire spent time", stats.UnitMilliseconds)

	KitRefs            = metrics.NewInt64("evmkit/refs", "Outstanding references of the live evm kit", stats.UnitDimensionless)
	KitLastBlockHeight = metrics.NewInt64("evmkit/last_block_height", "Last block height seen by the live evm kit", stats.UnitDimensionless)
	KitSynced          = metrics.NewInt64("evmkit/synced", "Live evm kit sync state. 0: not synced, 1: synced", "")
	ApiState           = metrics.NewInt64("api/state", "api service state. 0: down, 1: up", "")
)

var (
	kitCreatedView = &view.View{
		Measure:     KitCreated,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey, NetworkKey},
	}
	kitStoppedView = &view.View{
		Measure:     KitStopped,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey, ReasonKey},
	}
	kitStopFailedView = &view.View{
		Measure:     KitStopFailed,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey},
	}
	kitAcquireFailedView = &view.View{
		Measure:     KitAcquireFailed,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{AccountKey, ReasonKey},
	}
	lifecycleEventView = &view.View{
		Measure:     LifecycleEvent,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{ReasonKey},
	}

	// method call
	acquireView = &view.View{
		Measure:     Acquire,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{AccountKey},
	}
)

var views = []*view.View{
	kitCreatedView,
	kitStoppedView,
	kitStopFailedView,
	kitAcquireFailedView,
	lifecycleEventView,
	acquireView,
}

func init() {
	// register metrics
	_ = view.Register(views...)
}
