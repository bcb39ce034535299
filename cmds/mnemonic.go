package cmds

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
	"github.com/urfave/cli/v2"
)

var MnemonicCmds = &cli.Command{
	Name:        "mnemonic",
	Usage:       "mnemonic cmds",
	Subcommands: []*cli.Command{newMnemonicCmd},
}

var newMnemonicCmd = &cli.Command{
	Name:  "new",
	Usage: "generate a 12 word bip39 mnemonic",
	Action: func(cctx *cli.Context) error {
		phrase, err := NewMnemonic()
		if err != nil {
			return err
		}
		fmt.Println(phrase)
		return nil
	},
}

// NewMnemonic returns a fresh 12 word phrase (128 bits of entropy).
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}
