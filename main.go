package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	logging "github.com/ipfs/go-log/v2"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
	"github.com/urfave/cli/v2"
	"go.opencensus.io/plugin/ochttp"

	"github.com/ipfs-force-community/sophon-evmkit/adapter"
	"github.com/ipfs-force-community/sophon-evmkit/api"
	"github.com/ipfs-force-community/sophon-evmkit/background"
	"github.com/ipfs-force-community/sophon-evmkit/cmds"
	"github.com/ipfs-force-community/sophon-evmkit/config"
	"github.com/ipfs-force-community/sophon-evmkit/evmkit"
	"github.com/ipfs-force-community/sophon-evmkit/kitmanager"
	"github.com/ipfs-force-community/sophon-evmkit/metrics"
	"github.com/ipfs-force-community/sophon-evmkit/types"
	"github.com/ipfs-force-community/sophon-evmkit/version"
)

var log = logging.Logger("main")

var repoFlag = &cli.StringFlag{
	Name:    "repo",
	Usage:   "repo directory holding config.toml",
	Value:   config.DefaultRepo,
	EnvVars: []string{"SOPHON_EVMKIT_REPO"},
}

func main() {
	_ = logging.SetLogLevel("*", "INFO")

	app := &cli.App{
		Name:  "sophon-evmkit",
		Usage: "sophon-evmkit shares one evm sync session between the wallets of the active account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "host address and port the api will listen on",
				Value: "/ip4/127.0.0.1/tcp/45133",
			},
		},
		Commands: []*cli.Command{
			runCmd, initCmd,
			cmds.StatusCmd, cmds.AdaptersCmd, cmds.ForegroundCmd, cmds.BackgroundCmd, cmds.MnemonicCmds,
		},
	}
	app.Version = version.UserVersion
	if err := app.Run(os.Args); err != nil {
		log.Warn(err)
		os.Exit(1)
	}
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "write the default config to the repo",
	Flags: []cli.Flag{repoFlag},
	Action: func(cctx *cli.Context) error {
		cfgPath, err := config.ConfigPath(cctx.String("repo"))
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfgPath); err == nil {
			return fmt.Errorf("config %s already exists", cfgPath)
		}
		if err := config.WriteConfig(cfgPath, config.DefaultConfig()); err != nil {
			return err
		}
		log.Infof("write config to %s", cfgPath)
		return nil
	},
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "start sophon-evmkit daemon",
	Flags: []cli.Flag{
		repoFlag,
		&cli.StringFlag{Name: "mnemonic-file", Usage: "file holding the mnemonic of the active account"},
		&cli.StringFlag{Name: "passphrase", Usage: "bip39 passphrase of the mnemonic", EnvVars: []string{"SOPHON_EVMKIT_PASSPHRASE"}},
		&cli.StringFlag{Name: "infura-project-id", EnvVars: []string{"SOPHON_EVMKIT_INFURA_PROJECT_ID"}},
		&cli.StringFlag{Name: "infura-secret", EnvVars: []string{"SOPHON_EVMKIT_INFURA_SECRET"}},
		&cli.BoolFlag{Name: "test-mode", Usage: "follow the test network instead of mainnet"},
	},
	Action: func(cctx *cli.Context) error {
		cfgPath, err := config.ConfigPath(cctx.String("repo"))
		if err != nil {
			return err
		}
		cfg, err := config.ReadConfig(cfgPath)
		if err != nil {
			return errors.Wrapf(err, "read config %s", cfgPath)
		}
		if cctx.IsSet("listen") {
			cfg.API.ListenAddress = cctx.String("listen")
		}
		if cctx.IsSet("infura-project-id") {
			cfg.Ethereum.InfuraProjectID = cctx.String("infura-project-id")
		}
		if cctx.IsSet("infura-secret") {
			cfg.Ethereum.InfuraSecret = cctx.String("infura-secret")
		}
		if cctx.IsSet("test-mode") {
			cfg.Ethereum.TestMode = cctx.Bool("test-mode")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		var accounts []*types.Account
		if path := cctx.String("mnemonic-file"); path != "" {
			account, err := loadAccount(path, cctx.String("passphrase"))
			if err != nil {
				return err
			}
			accounts = append(accounts, account)
		}
		return RunMain(cctx.Context, cfg, accounts)
	},
}

// loadAccount reads a mnemonic phrase and names the account after its first
// derived address.
func loadAccount(path, passphrase string) (*types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	phrase := strings.TrimSpace(string(data))
	if !bip39.IsMnemonicValid(phrase) {
		log.Warnf("mnemonic in %s does not pass bip39 checksum", path)
	}
	words := types.ParseMnemonic(phrase)
	key, err := evmkit.DeriveKey(words, passphrase, evmkit.DefaultDerivationPath)
	if err != nil {
		return nil, errors.Wrapf(err, "derive key from %s", path)
	}
	return &types.Account{
		ID:     crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Name:   path,
		Type:   types.MnemonicAccountType{Words: words, Passphrase: passphrase},
		Origin: types.AccountOriginRestored,
	}, nil
}

func RunMain(ctx context.Context, cfg *config.Config, accounts []*types.Account) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Infof("sophon-evmkit current version %s, listen %s", version.UserVersion, cfg.API.ListenAddress)

	notifier := background.NewManager()
	kits, err := kitmanager.NewKitManager(cfg.Ethereum, notifier)
	if err != nil {
		return err
	}
	defer kits.Close()

	mode, err := cfg.Ethereum.Mode()
	if err != nil {
		return err
	}
	registry := adapter.NewRegistry()
	for _, account := range accounts {
		if err := registry.Add(adapter.NewEvmAdapter(types.NewWallet(account, types.Ether), mode, kits)); err != nil {
			return err
		}
	}
	// StopAll skips adapters that never started
	defer func() {
		if err := registry.StopAll(); err != nil {
			log.Warnf("stop adapters: %v", err)
		}
	}()
	if err := registry.StartAll(ctx); err != nil {
		return err
	}

	if err := metrics.SetupMetrics(ctx, cfg.Metrics, kits); err != nil {
		return err
	}

	impl := api.NewEvmKitAPIImpl(kits, notifier, registry)
	handler := api.NewHandler(impl, registry.Check)
	if cfg.Metrics.Enabled {
		handler = &ochttp.Handler{Handler: handler}
	}
	srv := &http.Server{Handler: handler}

	lifecycleCh := make(chan os.Signal, 2)
	signal.Notify(lifecycleCh, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(lifecycleCh)
	go func() {
		for {
			select {
			case sig := <-lifecycleCh:
				if sig == syscall.SIGUSR1 {
					notifier.DidEnterBackground()
				} else {
					notifier.WillEnterForeground()
				}
				log.Infow("lifecycle transition", "signal", sig, "background", notifier.InBackground())
			case <-ctx.Done():
				return
			}
		}
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warnw("received shutdown", "signal", sig)
		case <-ctx.Done():
			log.Warn("received shutdown")
		}

		log.Info("Shutting down...")
		if err := srv.Shutdown(context.TODO()); err != nil {
			log.Errorf("shutting down RPC server failed: %s", err)
		}
	}()

	addr, err := multiaddr.NewMultiaddr(cfg.API.ListenAddress)
	if err != nil {
		return err
	}
	nl, err := manet.Listen(addr)
	if err != nil {
		return err
	}

	log.Infof("start to rpc listen %s", nl.Addr())
	metrics.ApiState.Set(ctx, 1)
	defer metrics.ApiState.Set(context.Background(), 0)
	if err = srv.Serve(manet.NetListener(nl)); err != nil && err != http.ErrServerClosed {
		return err
	}

	log.Info("Graceful shutdown successful")
	return nil
}
