package evmkit

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sophon-evmkit/types"
)

type mockSubscription struct {
	errCh        chan error
	once         sync.Once
	unsubscribed chan struct{}
}

func newMockSubscription() *mockSubscription {
	return &mockSubscription{errCh: make(chan error), unsubscribed: make(chan struct{})}
}

func (s *mockSubscription) Err() <-chan error { return s.errCh }

func (s *mockSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.unsubscribed) })
}

type mockChainClient struct {
	lk      sync.Mutex
	chainID *big.Int
	height  int64
	heads   chan<- *gethTypes.Header
	subs    []*mockSubscription
	closed  bool
	balance *big.Int
}

func newMockChainClient(chainID int64) *mockChainClient {
	return &mockChainClient{chainID: big.NewInt(chainID), height: 100, balance: big.NewInt(42)}
}

func (c *mockChainClient) ChainID(ctx context.Context) (*big.Int, error) {
	return c.chainID, nil
}

func (c *mockChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*gethTypes.Header, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.height++
	return &gethTypes.Header{Number: big.NewInt(c.height), Time: uint64(time.Now().Unix())}, nil
}

func (c *mockChainClient) SubscribeNewHead(ctx context.Context, ch chan<- *gethTypes.Header) (ethereum.Subscription, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	sub := newMockSubscription()
	c.heads = ch
	c.subs = append(c.subs, sub)
	return sub, nil
}

func (c *mockChainClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return c.balance, nil
}

func (c *mockChainClient) Close() {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.closed = true
}

func (c *mockChainClient) subscriptions() []*mockSubscription {
	c.lk.Lock()
	defer c.lk.Unlock()
	return append([]*mockSubscription{}, c.subs...)
}

func (c *mockChainClient) push(height int64) {
	c.lk.Lock()
	heads := c.heads
	c.lk.Unlock()
	heads <- &gethTypes.Header{Number: big.NewInt(height)}
}

func (c *mockChainClient) isClosed() bool {
	c.lk.Lock()
	defer c.lk.Unlock()
	return c.closed
}

func setupKit(t *testing.T, websocket bool, client *mockChainClient) *Kit {
	source := SyncSource{Name: "mock", URL: "https://node.example/v3/id", Websocket: websocket}
	kit, err := NewKit(types.ParseMnemonic(testMnemonic), "", EthMainNet, source, "etherscan", "wallet-1",
		WithDialer(func(ctx context.Context, source SyncSource) (ChainClient, error) {
			return client, nil
		}),
		WithIntervals(10*time.Millisecond, time.Hour),
		WithRetryInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	return kit
}

func TestKitPolling(t *testing.T) {
	client := newMockChainClient(1)
	kit := setupKit(t, false, client)

	_, err := kit.Balance(context.Background())
	require.Error(t, err)

	kit.Start()
	require.Eventually(t, func() bool { return kit.LastBlockHeight() > 102 }, time.Second, 5*time.Millisecond)

	state, err := kit.SyncState()
	require.NoError(t, err)
	require.Equal(t, SyncStateSynced, state)

	balance, err := kit.Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), balance.Int64())

	require.NoError(t, kit.Stop())
	require.NoError(t, kit.Stop())
	require.True(t, client.isClosed())
}

func TestKitWebsocket(t *testing.T) {
	client := newMockChainClient(1)
	kit := setupKit(t, true, client)
	kit.Start()
	defer func() { require.NoError(t, kit.Stop()) }()

	require.Eventually(t, func() bool { return len(client.subscriptions()) == 1 }, time.Second, 5*time.Millisecond)
	client.push(500)
	require.Eventually(t, func() bool { return kit.LastBlockHeight() == 500 }, time.Second, 5*time.Millisecond)

	t.Run("background drops subscription", func(t *testing.T) {
		kit.OnEnterBackground()
		sub := client.subscriptions()[0]
		select {
		case <-sub.unsubscribed:
		case <-time.After(time.Second):
			t.Fatal("subscription still alive in background")
		}
		require.Equal(t, true, kit.StatusInfo()["Background"])
	})

	t.Run("foreground subscribes again", func(t *testing.T) {
		kit.OnEnterForeground()
		require.Eventually(t, func() bool { return len(client.subscriptions()) == 2 }, time.Second, 5*time.Millisecond)
	})
}

func TestKitChainMismatch(t *testing.T) {
	kit := setupKit(t, false, newMockChainClient(5))
	kit.Start()
	defer func() { require.NoError(t, kit.Stop()) }()

	require.Eventually(t, func() bool {
		state, err := kit.SyncState()
		return state == SyncStateNotSynced && err != nil
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, kit.StatusInfo()["Sync State"], "expect 1")
}

func TestKitDialFailure(t *testing.T) {
	source := SyncSource{Name: "mock", URL: "https://node.example"}
	kit, err := NewKit(types.ParseMnemonic(testMnemonic), "", EthMainNet, source, "", "wallet-1",
		WithDialer(func(ctx context.Context, source SyncSource) (ChainClient, error) {
			return nil, errors.New("connection refused")
		}),
		WithRetryInterval(10*time.Millisecond),
	)
	require.NoError(t, err)
	kit.Start()

	require.Eventually(t, func() bool {
		_, err := kit.SyncState()
		return err != nil
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, kit.Stop())
}

func TestKitStatusInfo(t *testing.T) {
	kit := setupKit(t, false, newMockChainClient(1))
	info := kit.StatusInfo()
	require.Equal(t, "EthMainNet", info["Network"])
	require.Equal(t, "1", info["Chain ID"])
	require.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", info["Address"])
	require.Equal(t, string(SyncStateNotSynced), info["Sync State"])
	require.Equal(t, true, info["Etherscan"])
	require.NotContains(t, info, "Started At")

	// stop before start is allowed and a later start is ignored
	require.NoError(t, kit.Stop())
	kit.Start()
	require.NotContains(t, kit.StatusInfo(), "Started At")
}
