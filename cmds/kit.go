package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"
)

var StatusCmd = &cli.Command{
	Name:  "status",
	Usage: "show the state of the shared evm kit",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewEvmKitClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		state, err := api.KitState(cctx.Context)
		if err != nil {
			return err
		}
		return printJSON(state)
	},
}

var AdaptersCmd = &cli.Command{
	Name:  "adapters",
	Usage: "list the wallet adapters of the daemon",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewEvmKitClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		adapters, err := api.ListAdapters(cctx.Context)
		if err != nil {
			return err
		}
		return printJSON(adapters)
	},
}

var ForegroundCmd = &cli.Command{
	Name:  "foreground",
	Usage: "move the daemon to foreground, kit syncs at the foreground interval",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewEvmKitClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		return api.EnterForeground(cctx.Context)
	},
}

var BackgroundCmd = &cli.Command{
	Name:  "background",
	Usage: "move the daemon to background, kit syncs at the background interval",
	Action: func(cctx *cli.Context) error {
		api, closer, err := NewEvmKitClient(cctx)
		if err != nil {
			return err
		}
		defer closer()

		return api.EnterBackground(cctx.Context)
	},
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, " ", "\t")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
