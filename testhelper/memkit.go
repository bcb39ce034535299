package testhelper

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ipfs-force-community/sophon-evmkit/evmkit"
	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
)

var _ kitmanager.Kit = (*MemKit)(nil)

// MemKit is an in-memory kit recording the calls it receives.
type MemKit struct {
	lk sync.Mutex

	AccountID  string
	Words      []string
	Network    evmkit.NetworkType
	Source     evmkit.SyncSource
	Etherscan  string
	StopErr    error
	StopDelay  time.Duration
	SyncErr    error
	Height     uint64
	BalanceWei *big.Int

	starts      int
	stops       int
	foregrounds int
	backgrounds int
}

func (m *MemKit) Start() {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.starts++
}

func (m *MemKit) Stop() error {
	m.lk.Lock()
	delay := m.StopDelay
	m.lk.Unlock()
	time.Sleep(delay)

	m.lk.Lock()
	defer m.lk.Unlock()
	m.stops++
	return m.StopErr
}

func (m *MemKit) OnEnterForeground() {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.foregrounds++
}

func (m *MemKit) OnEnterBackground() {
	m.lk.Lock()
	defer m.lk.Unlock()
	m.backgrounds++
}

func (m *MemKit) StatusInfo() map[string]interface{} {
	m.lk.Lock()
	defer m.lk.Unlock()
	state := string(evmkit.SyncStateSynced)
	if m.SyncErr != nil {
		state = string(evmkit.SyncStateNotSynced) + ": " + m.SyncErr.Error()
	}
	return map[string]interface{}{
		"Account":           m.AccountID,
		"Network":           m.Network.String(),
		"Sync Source":       m.Source.String(),
		"Sync State":        state,
		"Last Block Height": m.Height,
	}
}

func (m *MemKit) Address() common.Address {
	return common.BytesToAddress([]byte(m.AccountID))
}

func (m *MemKit) LastBlockHeight() uint64 {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.Height
}

func (m *MemKit) SyncState() (evmkit.SyncState, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.SyncErr != nil {
		return evmkit.SyncStateNotSynced, m.SyncErr
	}
	return evmkit.SyncStateSynced, nil
}

func (m *MemKit) Balance(ctx context.Context) (*big.Int, error) {
	m.lk.Lock()
	defer m.lk.Unlock()
	if m.BalanceWei == nil {
		return nil, fmt.Errorf("mock error")
	}
	return new(big.Int).Set(m.BalanceWei), nil
}

func (m *MemKit) Starts() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.starts
}

func (m *MemKit) Stops() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.stops
}

func (m *MemKit) Foregrounds() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.foregrounds
}

func (m *MemKit) Backgrounds() int {
	m.lk.Lock()
	defer m.lk.Unlock()
	return m.backgrounds
}

// MemKitFactory builds MemKits and keeps every kit it built.
type MemKitFactory struct {
	lk   sync.Mutex
	kits []*MemKit
	// StopErr and StopDelay are handed to every kit built afterwards.
	StopErr   error
	StopDelay time.Duration
	Fail      error
}

func (f *MemKitFactory) Build(words []string, passphrase string, network evmkit.NetworkType, source evmkit.SyncSource, etherscanKey, accountID string) (kitmanager.Kit, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	if f.Fail != nil {
		return nil, f.Fail
	}
	kit := &MemKit{
		AccountID:  accountID,
		Words:      words,
		Network:    network,
		Source:     source,
		Etherscan:  etherscanKey,
		StopErr:    f.StopErr,
		StopDelay:  f.StopDelay,
		Height:     100,
		BalanceWei: big.NewInt(1e18),
	}
	f.kits = append(f.kits, kit)
	return kit, nil
}

func (f *MemKitFactory) Kits() []*MemKit {
	f.lk.Lock()
	defer f.lk.Unlock()
	return append([]*MemKit{}, f.kits...)
}

func (f *MemKitFactory) Last() *MemKit {
	f.lk.Lock()
	defer f.lk.Unlock()
	if len(f.kits) == 0 {
		return nil
	}
	return f.kits[len(f.kits)-1]
}
