package evmkit

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/uuid"
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
)

var log = logging.Logger("evmkit")

// ChainClient is the part of ethclient.Client the kit syncs with.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*gethTypes.Header, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *gethTypes.Header) (ethereum.Subscription, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	Close()
}

type Dialer func(ctx context.Context, source SyncSource) (ChainClient, error)

func DialSyncSource(ctx context.Context, source SyncSource) (ChainClient, error) {
	rpcClient, err := rpc.DialContext(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	return ethclient.NewClient(rpcClient), nil
}

type SyncState string

const (
	SyncStateNotSynced SyncState = "not synced"
	SyncStateSyncing   SyncState = "syncing"
	SyncStateSynced    SyncState = "synced"
)

const (
	DefaultForegroundInterval = 15 * time.Second
	DefaultBackgroundInterval = 2 * time.Minute
	DefaultRetryInterval      = 10 * time.Second
	defaultStopTimeout        = 10 * time.Second
	requestTimeout            = 30 * time.Second
)

type Option func(k *Kit)

func WithDialer(dialer Dialer) Option {
	return func(k *Kit) { k.dialer = dialer }
}

func WithIntervals(foreground, background time.Duration) Option {
	return func(k *Kit) {
		if foreground > 0 {
			k.foregroundInterval = foreground
		}
		if background > 0 {
			k.backgroundInterval = background
		}
	}
}

func WithRetryInterval(d time.Duration) Option {
	return func(k *Kit) {
		if d > 0 {
			k.retryInterval = d
		}
	}
}

// Kit follows the chain head for one account over one sync source.
type Kit struct {
	id           uuid.UUID
	walletID     string
	network      NetworkType
	source       SyncSource
	etherscanKey string
	address      common.Address

	dialer             Dialer
	foregroundInterval time.Duration
	backgroundInterval time.Duration
	retryInterval      time.Duration
	stopTimeout        time.Duration

	modeCh chan struct{}
	done   chan struct{}

	lk              sync.Mutex
	cancel          context.CancelFunc
	started         bool
	stopped         bool
	background      bool
	client          ChainClient
	syncState       SyncState
	syncErr         error
	lastBlockHeight uint64
	lastBlockTime   time.Time
	startedAt       time.Time
}

func NewKit(words []string, passphrase string, network NetworkType, source SyncSource, etherscanKey, walletID string, opts ...Option) (*Kit, error) {
	if network.ChainID() == nil {
		return nil, errors.Errorf("unsupported network %s", network)
	}
	key, err := DeriveKey(words, passphrase, DefaultDerivationPath)
	if err != nil {
		return nil, errors.Wrap(err, "derive account key")
	}

	k := &Kit{
		id:                 uuid.New(),
		walletID:           walletID,
		network:            network,
		source:             source,
		etherscanKey:       etherscanKey,
		address:            crypto.PubkeyToAddress(key.PublicKey),
		dialer:             DialSyncSource,
		foregroundInterval: DefaultForegroundInterval,
		backgroundInterval: DefaultBackgroundInterval,
		retryInterval:      DefaultRetryInterval,
		stopTimeout:        defaultStopTimeout,
		modeCh:             make(chan struct{}, 1),
		done:               make(chan struct{}),
		syncState:          SyncStateNotSynced,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func (k *Kit) ID() uuid.UUID           { return k.id }
func (k *Kit) WalletID() string        { return k.walletID }
func (k *Kit) Network() NetworkType    { return k.network }
func (k *Kit) Address() common.Address { return k.address }

// Start begins syncing in the background. It returns immediately.
func (k *Kit) Start() {
	k.lk.Lock()
	defer k.lk.Unlock()

	if k.started || k.stopped {
		log.Warnf("kit %s already started or stopped", k.id)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	k.started = true
	k.startedAt = time.Now()
	k.syncState = SyncStateSyncing

	log.Infow("start evm kit", "id", k.id, "wallet", k.walletID, "network", k.network, "source", k.source.String(), "address", k.address.Hex())
	go k.run(ctx)
}

// Stop cancels the sync loop and closes the client. Calling it again is a no-op.
func (k *Kit) Stop() error {
	k.lk.Lock()
	if k.stopped {
		k.lk.Unlock()
		return nil
	}
	k.stopped = true
	started, cancel := k.started, k.cancel
	k.lk.Unlock()

	if !started {
		return nil
	}
	cancel()

	select {
	case <-k.done:
	case <-time.After(k.stopTimeout):
		return errors.Errorf("kit %s did not stop within %s", k.id, k.stopTimeout)
	}

	k.lk.Lock()
	k.syncState = SyncStateNotSynced
	k.syncErr = nil
	k.lk.Unlock()
	log.Infof("stop evm kit %s", k.id)
	return nil
}

func (k *Kit) OnEnterForeground() { k.setBackground(false) }

func (k *Kit) OnEnterBackground() { k.setBackground(true) }

func (k *Kit) setBackground(background bool) {
	k.lk.Lock()
	changed := k.background != background
	k.background = background
	k.lk.Unlock()

	if !changed {
		return
	}
	select {
	case k.modeCh <- struct{}{}:
	default:
	}
}

func (k *Kit) inBackground() bool {
	k.lk.Lock()
	defer k.lk.Unlock()
	return k.background
}

func (k *Kit) SyncState() (SyncState, error) {
	k.lk.Lock()
	defer k.lk.Unlock()
	return k.syncState, k.syncErr
}

func (k *Kit) LastBlockHeight() uint64 {
	k.lk.Lock()
	defer k.lk.Unlock()
	return k.lastBlockHeight
}

// Balance returns the balance of the kit's address at the latest block.
func (k *Kit) Balance(ctx context.Context) (*big.Int, error) {
	k.lk.Lock()
	client := k.client
	k.lk.Unlock()

	if client == nil {
		return nil, errors.Errorf("kit %s is not connected", k.id)
	}
	return client.BalanceAt(ctx, k.address, nil)
}

func (k *Kit) StatusInfo() map[string]interface{} {
	k.lk.Lock()
	defer k.lk.Unlock()

	state := string(k.syncState)
	if k.syncErr != nil {
		state = state + ": " + k.syncErr.Error()
	}
	info := map[string]interface{}{
		"Session ID":        k.id.String(),
		"Network":           k.network.String(),
		"Chain ID":          k.network.ChainID().String(),
		"Sync Source":       k.source.String(),
		"Address":           k.address.Hex(),
		"Sync State":        state,
		"Last Block Height": k.lastBlockHeight,
		"Background":        k.background,
		"Etherscan":         k.etherscanKey != "",
	}
	if !k.lastBlockTime.IsZero() {
		info["Last Block Time"] = k.lastBlockTime.UTC().Format(time.RFC3339)
	}
	if !k.startedAt.IsZero() {
		info["Started At"] = k.startedAt.UTC().Format(time.RFC3339)
	}
	return info
}

func (k *Kit) run(ctx context.Context) {
	defer close(k.done)

	for {
		err := k.syncOnce(ctx)
		if ctx.Err() != nil {
			return
		}
		k.setSyncError(err)
		log.Warnf("kit %s sync with %s failed, retry in %s: %v", k.id, k.source.Name, k.retryInterval, err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(k.retryInterval):
		}
	}
}

func (k *Kit) syncOnce(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	client, err := k.dialer(dialCtx, k.source)
	cancel()
	if err != nil {
		return errors.Wrapf(err, "dial %s", k.source.Name)
	}
	defer func() {
		k.lk.Lock()
		k.client = nil
		k.lk.Unlock()
		client.Close()
	}()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "get chain id")
	}
	if chainID.Cmp(k.network.ChainID()) != 0 {
		return errors.Errorf("sync source serves chain %s, expect %s", chainID, k.network.ChainID())
	}

	k.lk.Lock()
	k.client = client
	k.lk.Unlock()

	for {
		if k.source.Websocket && !k.inBackground() {
			err = k.followHeads(ctx, client)
		} else {
			err = k.pollHeads(ctx, client)
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// followHeads returns nil once the kit moves to background.
func (k *Kit) followHeads(ctx context.Context, client ChainClient) error {
	if err := k.fetchLatest(ctx, client); err != nil {
		return err
	}

	heads := make(chan *gethTypes.Header, 16)
	sub, err := client.SubscribeNewHead(ctx, heads)
	if err != nil {
		return errors.Wrap(err, "subscribe new heads")
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return errors.Wrap(err, "new heads subscription")
		case header := <-heads:
			k.onHeader(header)
		case <-k.modeCh:
			if k.inBackground() {
				log.Debugf("kit %s drop heads subscription in background", k.id)
				return nil
			}
		}
	}
}

// pollHeads returns nil when a websocket kit returns to foreground.
func (k *Kit) pollHeads(ctx context.Context, client ChainClient) error {
	if err := k.fetchLatest(ctx, client); err != nil {
		return err
	}

	ticker := time.NewTicker(k.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := k.fetchLatest(ctx, client); err != nil {
				return err
			}
		case <-k.modeCh:
			if k.source.Websocket && !k.inBackground() {
				return nil
			}
			ticker.Reset(k.pollInterval())
			if !k.inBackground() {
				if err := k.fetchLatest(ctx, client); err != nil {
					return err
				}
			}
		}
	}
}

func (k *Kit) pollInterval() time.Duration {
	if k.inBackground() {
		return k.backgroundInterval
	}
	return k.foregroundInterval
}

func (k *Kit) fetchLatest(ctx context.Context, client ChainClient) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	header, err := client.HeaderByNumber(reqCtx, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "get latest header")
	}
	k.onHeader(header)
	return nil
}

func (k *Kit) onHeader(header *gethTypes.Header) {
	if header == nil || header.Number == nil {
		return
	}
	k.lk.Lock()
	defer k.lk.Unlock()

	height := header.Number.Uint64()
	if height < k.lastBlockHeight {
		return
	}
	k.lastBlockHeight = height
	k.lastBlockTime = time.Unix(int64(header.Time), 0)
	k.syncState = SyncStateSynced
	k.syncErr = nil
	log.Debugf("kit %s latest block %d", k.id, height)
}

func (k *Kit) setSyncError(err error) {
	k.lk.Lock()
	defer k.lk.Unlock()
	k.syncState = SyncStateNotSynced
	k.syncErr = err
}
