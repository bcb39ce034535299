package types

import (
	"fmt"
	"strings"
)

type Coin struct {
	Uid      string
	Code     string
	Decimals int
}

var Ether = Coin{Uid: "ethereum", Code: "ETH", Decimals: 18}

type Wallet struct {
	Account *Account
	Coin    Coin
}

func NewWallet(account *Account, coin Coin) *Wallet {
	return &Wallet{Account: account, Coin: coin}
}

func (w *Wallet) String() string {
	if w.Account == nil {
		return w.Coin.Code
	}
	return fmt.Sprintf("%s@%s", w.Coin.Code, w.Account.ID)
}

// CommunicationMode is a hint for the channel a kit should sync over.
type CommunicationMode string

const (
	CommunicationModeDefault   CommunicationMode = ""
	CommunicationModeWebsocket CommunicationMode = "websocket"
	CommunicationModeHttp      CommunicationMode = "http"
)

func ParseCommunicationMode(s string) (CommunicationMode, error) {
	switch mode := CommunicationMode(strings.ToLower(strings.TrimSpace(s))); mode {
	case CommunicationModeDefault, CommunicationModeWebsocket, CommunicationModeHttp:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown communication mode %q", s)
	}
}
