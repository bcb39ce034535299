package kitmanager

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	logging "github.com/ipfs/go-log/v2"
	"github.com/modern-go/reflect2"
	"github.com/pkg/errors"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/zap"

	"github.com/ipfs-force-community/sophon-evmkit/background"
	"github.com/ipfs-force-community/sophon-evmkit/config"
	"github.com/ipfs-force-community/sophon-evmkit/evmkit"
	"github.com/ipfs-force-community/sophon-evmkit/metrics"
	"github.com/ipfs-force-community/sophon-evmkit/types"
)

var log = logging.Logger("kit_manager")

var ErrManagerClosed = errors.New("kit manager closed")

const mnemonicWordCount = 12

// Kit is the session the manager shares between adapters of one account.
type Kit interface {
	Start()
	Stop() error
	OnEnterForeground()
	OnEnterBackground()
	StatusInfo() map[string]interface{}

	Address() common.Address
	LastBlockHeight() uint64
	SyncState() (evmkit.SyncState, error)
	Balance(ctx context.Context) (*big.Int, error)
}

var _ Kit = (*evmkit.Kit)(nil)

type KitFactory func(words []string, passphrase string, network evmkit.NetworkType, source evmkit.SyncSource, etherscanKey, accountID string) (Kit, error)

// NewEvmKitFactory builds go-ethereum backed kits polling at the configured intervals.
func NewEvmKitFactory(cfg *config.EthereumConfig) (KitFactory, error) {
	fg, bg, err := cfg.Intervals()
	if err != nil {
		return nil, err
	}
	return func(words []string, passphrase string, network evmkit.NetworkType, source evmkit.SyncSource, etherscanKey, accountID string) (Kit, error) {
		return evmkit.NewKit(words, passphrase, network, source, etherscanKey, accountID, evmkit.WithIntervals(fg, bg))
	}, nil
}

// Notifier delivers process lifecycle transitions.
type Notifier interface {
	RegisterListener(l background.Listener) func()
	InBackground() bool
}

// StopFailureReporter receives the errors of best-effort kit teardown.
type StopFailureReporter interface {
	ReportStopFailure(accountID string, err error)
}

type logStopFailureReporter struct{}

func (logStopFailureReporter) ReportStopFailure(accountID string, err error) {
	log.Desugar().Warn("stop evm kit failed", zap.String("account", accountID), zap.Error(err))
	ctx, _ := tag.New(context.Background(), tag.Upsert(metrics.AccountKey, accountID))
	stats.Record(ctx, metrics.KitStopFailed.M(1))
}

type Option func(m *KitManager)

func WithKitFactory(factory KitFactory) Option {
	return func(m *KitManager) { m.factory = factory }
}

func WithStopFailureReporter(reporter StopFailureReporter) Option {
	return func(m *KitManager) { m.reporter = reporter }
}

// activeKit ties the live kit to its account and reference count.
type activeKit struct {
	kit     Kit
	account *types.Account
	refs    int
}

var _ background.Listener = (*KitManager)(nil)

// KitManager owns at most one live kit and shares it between the adapters of
// the active account.
type KitManager struct {
	// lk serializes state transitions, kit construction and Stop included.
	lk     sync.Mutex
	active *activeKit // nil while idle
	closed bool
	// current is a copy of active for readers that must not wait on lk.
	current atomic.Pointer[activeKit]

	cfg        *config.EthereumConfig
	network    evmkit.NetworkType
	mode       types.CommunicationMode
	factory    KitFactory
	reporter   StopFailureReporter
	notifier   Notifier
	unregister func()
}

func NewKitManager(cfg *config.EthereumConfig, notifier Notifier, opts ...Option) (*KitManager, error) {
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}
	m := &KitManager{
		cfg:      cfg,
		network:  evmkit.NetworkFor(cfg.TestMode),
		mode:     mode,
		reporter: logStopFailureReporter{},
		notifier: notifier,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.factory == nil {
		if m.factory, err = NewEvmKitFactory(cfg); err != nil {
			return nil, err
		}
	}
	m.unregister = notifier.RegisterListener(m)
	return m, nil
}

// Acquire returns the kit of wallet's account and takes a reference on it.
// A live kit of another account is stopped first, also when the new account
// is then rejected. Every successful call must be paired with one Release.
func (m *KitManager) Acquire(ctx context.Context, wallet *types.Wallet, mode types.CommunicationMode) (Kit, error) {
	start := time.Now()
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}
	if wallet == nil || wallet.Account == nil {
		return nil, errors.Wrap(types.ErrUnsupportedAccountKind, "wallet has no account")
	}
	account := wallet.Account
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.AccountKey, account.ID))
	defer func() {
		stats.Record(ctx, metrics.Acquire.M(metrics.SinceInMilliseconds(start)))
	}()

	if m.active != nil {
		if m.active.account.Equal(account) {
			m.active.refs++
			m.publishLocked()
			metrics.KitRefs.Set(ctx, int64(m.active.refs))
			log.Debugf("reuse evm kit of account %s, refs %d", account.ID, m.active.refs)
			return m.active.kit, nil
		}
		log.Infof("active account switched from %s to %s", m.active.account.ID, account.ID)
		m.teardownLocked("account_switched")
	}

	mnemonic, err := supportedMnemonic(account)
	if err != nil {
		m.recordAcquireFailed(ctx, "unsupported_account")
		return nil, err
	}
	source, err := evmkit.SyncSourceFor(m.resolveMode(mode), m.network, m.cfg.InfuraProjectID, m.cfg.InfuraSecret)
	if err != nil {
		m.recordAcquireFailed(ctx, "sync_source")
		return nil, err
	}

	kit, err := m.factory(mnemonic.Words, mnemonic.Passphrase, m.network, *source, m.cfg.EtherscanAPIKey, account.ID)
	if err == nil && reflect2.IsNil(kit) {
		err = fmt.Errorf("kit factory returned no kit")
	}
	if err != nil {
		m.recordAcquireFailed(ctx, "create_kit")
		return nil, errors.Wrapf(err, "create evm kit for account %s", account.ID)
	}

	kit.Start()
	m.active = &activeKit{kit: kit, account: account, refs: 1}
	m.publishLocked()
	// a transition broadcast after publishing reaches the kit directly
	if m.notifier.InBackground() {
		kit.OnEnterBackground()
	}

	ctx, _ = tag.New(ctx, tag.Upsert(metrics.NetworkKey, m.network.String()))
	stats.Record(ctx, metrics.KitCreated.M(1))
	metrics.KitRefs.Set(ctx, int64(m.active.refs))
	log.Infow("evm kit created", "account", account.ID, "network", m.network, "source", source.String())
	return kit, nil
}

// Release gives back one reference. The kit is stopped when the last
// reference is released. Releasing while idle returns ErrNotAcquired.
func (m *KitManager) Release() error {
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.active == nil {
		log.Warn("release evm kit without a matching acquire")
		return types.ErrNotAcquired
	}

	m.active.refs--
	ctx, _ := tag.New(context.Background(), tag.Upsert(metrics.AccountKey, m.active.account.ID))
	metrics.KitRefs.Set(ctx, int64(m.active.refs))
	if m.active.refs < 1 {
		m.teardownLocked("released")
		return nil
	}
	m.publishLocked()
	return nil
}

// teardownLocked clears the active state and stops its kit. Stop failures go
// to the reporter and never to the caller. Readers see the manager idle before
// Stop is called.
func (m *KitManager) teardownLocked(reason string) {
	active := m.active
	m.active = nil
	m.publishLocked()

	ctx, _ := tag.New(context.Background(),
		tag.Upsert(metrics.AccountKey, active.account.ID),
		tag.Upsert(metrics.ReasonKey, reason))
	if err := active.kit.Stop(); err != nil {
		m.reporter.ReportStopFailure(active.account.ID, err)
	}
	stats.Record(ctx, metrics.KitStopped.M(1))
	metrics.KitRefs.Set(ctx, 0)
	log.Infof("evm kit of account %s stopped: %s", active.account.ID, reason)
}

// publishLocked copies active for lock-free readers.
func (m *KitManager) publishLocked() {
	if m.active == nil {
		m.current.Store(nil)
		return
	}
	snapshot := *m.active
	m.current.Store(&snapshot)
}

func (m *KitManager) resolveMode(mode types.CommunicationMode) types.CommunicationMode {
	if mode == types.CommunicationModeDefault {
		return m.mode
	}
	return mode
}

func (m *KitManager) recordAcquireFailed(ctx context.Context, reason string) {
	ctx, _ = tag.New(ctx, tag.Upsert(metrics.ReasonKey, reason))
	stats.Record(ctx, metrics.KitAcquireFailed.M(1))
}

func supportedMnemonic(account *types.Account) (types.MnemonicAccountType, error) {
	mnemonic, ok := account.Type.(types.MnemonicAccountType)
	if !ok {
		desc := "no key"
		if account.Type != nil {
			desc = account.Type.Description()
		}
		return types.MnemonicAccountType{}, errors.Wrapf(types.ErrUnsupportedAccountKind, "account %s: %s", account.ID, desc)
	}
	if len(mnemonic.Words) != mnemonicWordCount {
		return types.MnemonicAccountType{}, errors.Wrapf(types.ErrUnsupportedAccountKind,
			"account %s: mnemonic must be %d words, got %d", account.ID, mnemonicWordCount, len(mnemonic.Words))
	}
	return mnemonic, nil
}

func (m *KitManager) WillEnterForeground() {
	if kit := m.currentKit(); kit != nil {
		kit.OnEnterForeground()
	}
}

func (m *KitManager) DidEnterBackground() {
	if kit := m.currentKit(); kit != nil {
		kit.OnEnterBackground()
	}
}

// StatusInfo returns the live kit's diagnostics, nil while idle.
func (m *KitManager) StatusInfo() map[string]interface{} {
	kit := m.currentKit()
	if kit == nil {
		return nil
	}
	return kit.StatusInfo()
}

func (m *KitManager) RefCount() int {
	if current := m.current.Load(); current != nil {
		return current.refs
	}
	return 0
}

func (m *KitManager) ActiveAccount() *types.Account {
	if current := m.current.Load(); current != nil {
		return current.account
	}
	return nil
}

func (m *KitManager) Kit() Kit {
	return m.currentKit()
}

// currentKit never waits on a transition in progress.
func (m *KitManager) currentKit() Kit {
	if current := m.current.Load(); current != nil {
		return current.kit
	}
	return nil
}

// Close unsubscribes from the notifier and stops the live kit. Later acquires
// fail with ErrManagerClosed.
func (m *KitManager) Close() {
	m.lk.Lock()
	defer m.lk.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.unregister()
	if m.active != nil {
		m.teardownLocked("closed")
	}
}
