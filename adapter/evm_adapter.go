package adapter

import (
	"context"
	"math/big"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
	"github.com/ipfs-force-community/sophon-evmkit/types"
)

var log = logging.Logger("adapter")

var (
	ErrAdapterStarted    = errors.New("adapter already started")
	ErrAdapterNotStarted = errors.New("adapter not started")
)

// KitProvider hands out shared kits.
type KitProvider interface {
	Acquire(ctx context.Context, wallet *types.Wallet, mode types.CommunicationMode) (kitmanager.Kit, error)
	Release() error
}

type State struct {
	Wallet          string
	Started         bool
	StartedAt       time.Time
	Address         string
	LastBlockHeight uint64
	SyncState       string
	SyncError       string
}

// EvmAdapter holds one reference on the kit between Start and Stop.
type EvmAdapter struct {
	wallet   *types.Wallet
	mode     types.CommunicationMode
	provider KitProvider

	lk        sync.Mutex
	kit       kitmanager.Kit
	startedAt time.Time
}

func NewEvmAdapter(wallet *types.Wallet, mode types.CommunicationMode, provider KitProvider) *EvmAdapter {
	return &EvmAdapter{wallet: wallet, mode: mode, provider: provider}
}

func (a *EvmAdapter) Wallet() *types.Wallet { return a.wallet }

func (a *EvmAdapter) Start(ctx context.Context) error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if a.kit != nil {
		return ErrAdapterStarted
	}
	kit, err := a.provider.Acquire(ctx, a.wallet, a.mode)
	if err != nil {
		return errors.Wrapf(err, "start adapter %s", a.wallet)
	}
	a.kit = kit
	a.startedAt = time.Now()
	log.Infof("adapter %s started, address %s", a.wallet, kit.Address().Hex())
	return nil
}

func (a *EvmAdapter) Stop() error {
	a.lk.Lock()
	defer a.lk.Unlock()

	if a.kit == nil {
		return ErrAdapterNotStarted
	}
	a.kit = nil
	a.startedAt = time.Time{}
	if err := a.provider.Release(); err != nil {
		return errors.Wrapf(err, "stop adapter %s", a.wallet)
	}
	log.Infof("adapter %s stopped", a.wallet)
	return nil
}

func (a *EvmAdapter) Started() bool {
	a.lk.Lock()
	defer a.lk.Unlock()
	return a.kit != nil
}

// Balance returns the wallet balance in wei.
func (a *EvmAdapter) Balance(ctx context.Context) (*big.Int, error) {
	a.lk.Lock()
	kit := a.kit
	a.lk.Unlock()

	if kit == nil {
		return nil, ErrAdapterNotStarted
	}
	return kit.Balance(ctx)
}

// SyncError is the error the kit reports, nil when synced or not started.
func (a *EvmAdapter) SyncError() error {
	a.lk.Lock()
	kit := a.kit
	a.lk.Unlock()

	if kit == nil {
		return nil
	}
	_, err := kit.SyncState()
	return err
}

func (a *EvmAdapter) State() State {
	a.lk.Lock()
	defer a.lk.Unlock()

	state := State{Wallet: a.wallet.String()}
	if a.kit == nil {
		return state
	}
	state.Started = true
	state.StartedAt = a.startedAt
	state.Address = a.kit.Address().Hex()
	state.LastBlockHeight = a.kit.LastBlockHeight()
	syncState, err := a.kit.SyncState()
	state.SyncState = string(syncState)
	if err != nil {
		state.SyncError = err.Error()
	}
	return state
}
