package evmkit

import (
	"crypto/ecdsa"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// DefaultDerivationPath is m/44'/60'/0'/0/0.
var DefaultDerivationPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// DeriveKey walks the BIP-32 path from the BIP-39 seed of words.
func DeriveKey(words []string, passphrase string, path []uint32) (*ecdsa.PrivateKey, error) {
	seed := bip39.NewSeed(strings.Join(words, " "), passphrase)

	// the network only picks the serialization version bytes, never used here
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, errors.Wrap(err, "master key")
	}
	for _, index := range path {
		if key, err = key.Derive(index); err != nil {
			return nil, errors.Wrapf(err, "derive child %d", index)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return crypto.ToECDSA(priv.Serialize())
}
