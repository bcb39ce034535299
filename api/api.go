package api

import (
	"context"

	"github.com/ipfs-force-community/sophon-evmkit/adapter"
)

const Namespace = "EvmKit"

type KitState struct {
	Account string
	Refs    int
	Status  map[string]interface{}
}

type IEvmKitAPI interface {
	StatusInfo(ctx context.Context) (map[string]interface{}, error)
	KitState(ctx context.Context) (*KitState, error)
	EnterForeground(ctx context.Context) error
	EnterBackground(ctx context.Context) error
	ListAdapters(ctx context.Context) ([]adapter.State, error)
	Version(ctx context.Context) (string, error)
}

// EvmKitAPIStruct is the client side of IEvmKitAPI.
type EvmKitAPIStruct struct {
	Internal struct {
		StatusInfo      func(ctx context.Context) (map[string]interface{}, error)
		KitState        func(ctx context.Context) (*KitState, error)
		EnterForeground func(ctx context.Context) error
		EnterBackground func(ctx context.Context) error
		ListAdapters    func(ctx context.Context) ([]adapter.State, error)
		Version         func(ctx context.Context) (string, error)
	}
}

var _ IEvmKitAPI = (*EvmKitAPIStruct)(nil)

func (s *EvmKitAPIStruct) StatusInfo(ctx context.Context) (map[string]interface{}, error) {
	return s.Internal.StatusInfo(ctx)
}

func (s *EvmKitAPIStruct) KitState(ctx context.Context) (*KitState, error) {
	return s.Internal.KitState(ctx)
}

func (s *EvmKitAPIStruct) EnterForeground(ctx context.Context) error {
	return s.Internal.EnterForeground(ctx)
}

func (s *EvmKitAPIStruct) EnterBackground(ctx context.Context) error {
	return s.Internal.EnterBackground(ctx)
}

func (s *EvmKitAPIStruct) ListAdapters(ctx context.Context) ([]adapter.State, error) {
	return s.Internal.ListAdapters(ctx)
}

func (s *EvmKitAPIStruct) Version(ctx context.Context) (string, error) {
	return s.Internal.Version(ctx)
}
