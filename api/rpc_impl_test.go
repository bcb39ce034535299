package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ipfs-force-community/sophon-evmkit/adapter"
	"github.com/ipfs-force-community/sophon-evmkit/api"
	"github.com/ipfs-force-community/sophon-evmkit/background"
	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
	"github.com/ipfs-force-community/sophon-evmkit/testhelper"
	"github.com/ipfs-force-community/sophon-evmkit/types"
	"github.com/ipfs-force-community/sophon-evmkit/version"
)

type env struct {
	impl     *api.EvmKitAPIImpl
	factory  *testhelper.MemKitFactory
	notifier *background.Manager
	registry *adapter.Registry
}

func setupAPI(t *testing.T) *env {
	e := &env{
		factory:  &testhelper.MemKitFactory{},
		notifier: background.NewManager(),
		registry: adapter.NewRegistry(),
	}
	manager, err := kitmanager.NewKitManager(testhelper.EthereumConfig(), e.notifier,
		kitmanager.WithKitFactory(e.factory.Build))
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	wallet := testhelper.NewEthWallet(testhelper.NewMnemonicAccount("1", 12))
	require.NoError(t, e.registry.Add(adapter.NewEvmAdapter(wallet, types.CommunicationModeDefault, manager)))
	e.impl = api.NewEvmKitAPIImpl(manager, e.notifier, e.registry)
	return e
}

func TestEvmKitAPIImpl(t *testing.T) {
	ctx := context.Background()
	e := setupAPI(t)

	t.Run("idle", func(t *testing.T) {
		status, err := e.impl.StatusInfo(ctx)
		require.NoError(t, err)
		require.Nil(t, status)

		state, err := e.impl.KitState(ctx)
		require.NoError(t, err)
		require.Equal(t, "", state.Account)
		require.Equal(t, 0, state.Refs)
	})

	require.NoError(t, e.registry.StartAll(ctx))

	t.Run("active", func(t *testing.T) {
		status, err := e.impl.StatusInfo(ctx)
		require.NoError(t, err)
		require.Equal(t, "1", status["Account"])

		state, err := e.impl.KitState(ctx)
		require.NoError(t, err)
		require.Equal(t, "1", state.Account)
		require.Equal(t, 1, state.Refs)

		adapters, err := e.impl.ListAdapters(ctx)
		require.NoError(t, err)
		require.Len(t, adapters, 1)
		require.True(t, adapters[0].Started)
		require.Equal(t, "ETH@1", adapters[0].Wallet)
	})

	t.Run("lifecycle", func(t *testing.T) {
		require.NoError(t, e.impl.EnterBackground(ctx))
		require.True(t, e.notifier.InBackground())
		require.Equal(t, 1, e.factory.Last().Backgrounds())

		require.NoError(t, e.impl.EnterForeground(ctx))
		require.False(t, e.notifier.InBackground())
		require.Equal(t, 1, e.factory.Last().Foregrounds())
	})

	t.Run("version", func(t *testing.T) {
		v, err := e.impl.Version(ctx)
		require.NoError(t, err)
		require.Equal(t, version.UserVersion, v)
	})

	require.NoError(t, e.registry.StopAll())
	require.Equal(t, 1, e.factory.Last().Stops())
}

func TestHealthcheck(t *testing.T) {
	ctx := context.Background()
	e := setupAPI(t)
	require.NoError(t, e.registry.StartAll(ctx))

	srv := httptest.NewServer(api.NewHandler(e.impl, e.registry.Check))
	defer srv.Close()

	get := func() int {
		resp, err := http.Get(srv.URL + "/healthcheck")
		require.NoError(t, err)
		defer resp.Body.Close() //nolint:errcheck
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, get())

	e.factory.Last().SyncErr = errors.New("dial infura: connection refused")
	require.Equal(t, http.StatusServiceUnavailable, get())
}
