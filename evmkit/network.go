package evmkit

import (
	"fmt"
	"math/big"
)

type NetworkType int

const (
	EthMainNet NetworkType = iota
	EthRopsten
	EthGoerli
)

func (n NetworkType) ChainID() *big.Int {
	switch n {
	case EthMainNet:
		return big.NewInt(1)
	case EthRopsten:
		return big.NewInt(3)
	case EthGoerli:
		return big.NewInt(5)
	}
	return nil
}

func (n NetworkType) String() string {
	switch n {
	case EthMainNet:
		return "EthMainNet"
	case EthRopsten:
		return "EthRopsten"
	case EthGoerli:
		return "EthGoerli"
	}
	return fmt.Sprintf("NetworkType(%d)", int(n))
}

func (n NetworkType) infuraSubdomain() (string, bool) {
	switch n {
	case EthMainNet:
		return "mainnet", true
	case EthRopsten:
		return "ropsten", true
	case EthGoerli:
		return "goerli", true
	}
	return "", false
}

// NetworkFor maps the daemon's test-mode flag to a network.
func NetworkFor(testMode bool) NetworkType {
	if testMode {
		return EthRopsten
	}
	return EthMainNet
}
