package integrate

import (
	"context"
	"net/http/httptest"

	logging "github.com/ipfs/go-log/v2"
	"go.opencensus.io/plugin/ochttp"

	"github.com/ipfs-force-community/sophon-evmkit/adapter"
	"github.com/ipfs-force-community/sophon-evmkit/api"
	"github.com/ipfs-force-community/sophon-evmkit/background"
	"github.com/ipfs-force-community/sophon-evmkit/config"
	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
	"github.com/ipfs-force-community/sophon-evmkit/types"
	"github.com/ipfs-force-community/sophon-evmkit/version"
)

var log = logging.Logger("mock main")

type daemon struct {
	URL      string
	Kits     *kitmanager.KitManager
	Notifier *background.Manager
	Registry *adapter.Registry
}

// MockMain wires the daemon like RunMain does, with kits built by factory,
// and serves it on an httptest server until ctx is done.
func MockMain(ctx context.Context, cfg *config.Config, factory kitmanager.KitFactory, accounts []*types.Account) (*daemon, error) {
	log.Infof("sophon-evmkit current version %s", version.UserVersion)

	notifier := background.NewManager()
	kits, err := kitmanager.NewKitManager(cfg.Ethereum, notifier, kitmanager.WithKitFactory(factory))
	if err != nil {
		return nil, err
	}
	mode, err := cfg.Ethereum.Mode()
	if err != nil {
		kits.Close()
		return nil, err
	}

	registry := adapter.NewRegistry()
	shutdown := func() {
		if err := registry.StopAll(); err != nil {
			log.Warnf("stop adapters: %v", err)
		}
		kits.Close()
	}
	for _, account := range accounts {
		if err := registry.Add(adapter.NewEvmAdapter(types.NewWallet(account, types.Ether), mode, kits)); err != nil {
			shutdown()
			return nil, err
		}
	}
	if err := registry.StartAll(ctx); err != nil {
		shutdown()
		return nil, err
	}

	impl := api.NewEvmKitAPIImpl(kits, notifier, registry)
	handler := &ochttp.Handler{Handler: api.NewHandler(impl, registry.Check)}
	srv := httptest.NewServer(handler)

	go func() {
		<-ctx.Done()
		srv.Close()
		shutdown()
	}()

	return &daemon{URL: srv.URL, Kits: kits, Notifier: notifier, Registry: registry}, nil
}
