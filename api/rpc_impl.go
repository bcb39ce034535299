package api

import (
	"context"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"

	"github.com/ipfs-force-community/sophon-evmkit/adapter"
	"github.com/ipfs-force-community/sophon-evmkit/background"
	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
	"github.com/ipfs-force-community/sophon-evmkit/metrics"
	"github.com/ipfs-force-community/sophon-evmkit/version"
)

var _ IEvmKitAPI = (*EvmKitAPIImpl)(nil)

type EvmKitAPIImpl struct {
	kits       *kitmanager.KitManager
	background *background.Manager
	adapters   *adapter.Registry
}

func NewEvmKitAPIImpl(kits *kitmanager.KitManager, background *background.Manager, adapters *adapter.Registry) *EvmKitAPIImpl {
	return &EvmKitAPIImpl{
		kits:       kits,
		background: background,
		adapters:   adapters,
	}
}

func (e *EvmKitAPIImpl) StatusInfo(ctx context.Context) (map[string]interface{}, error) {
	return e.kits.StatusInfo(), nil
}

func (e *EvmKitAPIImpl) KitState(ctx context.Context) (*KitState, error) {
	state := &KitState{
		Refs:   e.kits.RefCount(),
		Status: e.kits.StatusInfo(),
	}
	if account := e.kits.ActiveAccount(); account != nil {
		state.Account = account.ID
	}
	return state, nil
}

func (e *EvmKitAPIImpl) EnterForeground(ctx context.Context) error {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.ReasonKey, "foreground"))
	stats.Record(ctx, metrics.LifecycleEvent.M(1))
	e.background.WillEnterForeground()
	return nil
}

func (e *EvmKitAPIImpl) EnterBackground(ctx context.Context) error {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.ReasonKey, "background"))
	stats.Record(ctx, metrics.LifecycleEvent.M(1))
	e.background.DidEnterBackground()
	return nil
}

func (e *EvmKitAPIImpl) ListAdapters(ctx context.Context) ([]adapter.State, error) {
	return e.adapters.States(), nil
}

func (e *EvmKitAPIImpl) Version(ctx context.Context) (string, error) {
	return version.UserVersion, nil
}
