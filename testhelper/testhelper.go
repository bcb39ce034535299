package testhelper

import (
	"fmt"
	"sync"

	"github.com/ipfs-force-community/sophon-evmkit/config"
	"github.com/ipfs-force-community/sophon-evmkit/types"
)

// TestMnemonic is the well known all-abandon BIP-39 phrase.
const TestMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func NewMnemonicAccount(id string, wordCount int) *types.Account {
	words := make([]string, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		words = append(words, fmt.Sprintf("word%d-%s", i, id))
	}
	return &types.Account{
		ID:     id,
		Name:   "account " + id,
		Type:   types.MnemonicAccountType{Words: words},
		Origin: types.AccountOriginRestored,
	}
}

func NewEthWallet(account *types.Account) *types.Wallet {
	return types.NewWallet(account, types.Ether)
}

func EthereumConfig() *config.EthereumConfig {
	cfg := config.DefaultConfig().Ethereum
	cfg.InfuraProjectID = "project"
	cfg.InfuraSecret = "secret"
	cfg.EtherscanAPIKey = "etherscan"
	return cfg
}

// StopFailures collects what the kit manager reports about failed stops.
type StopFailures struct {
	lk     sync.Mutex
	Errors map[string][]error
}

func (s *StopFailures) ReportStopFailure(accountID string, err error) {
	s.lk.Lock()
	defer s.lk.Unlock()
	if s.Errors == nil {
		s.Errors = make(map[string][]error)
	}
	s.Errors[accountID] = append(s.Errors[accountID], err)
}

func (s *StopFailures) Count() int {
	s.lk.Lock()
	defer s.lk.Unlock()
	n := 0
	for _, errs := range s.Errors {
		n += len(errs)
	}
	return n
}
