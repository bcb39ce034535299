package cmds

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tyler-smith/go-bip39"
)

func TestNewMnemonic(t *testing.T) {
	phrase, err := NewMnemonic()
	require.NoError(t, err)
	require.Len(t, strings.Fields(phrase), 12)
	require.True(t, bip39.IsMnemonicValid(phrase))

	other, err := NewMnemonic()
	require.NoError(t, err)
	require.NotEqual(t, phrase, other)
}

func TestDialArgs(t *testing.T) {
	addr, err := DialArgs("/ip4/127.0.0.1/tcp/45133")
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:45133/rpc/v0", addr)

	addr, err = DialArgs("http://127.0.0.1:45133")
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:45133/rpc/v0", addr)
}
