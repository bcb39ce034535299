package types

import (
	"fmt"
	"strings"
)

// AccountOrigin tells whether the key material was generated here or restored.
type AccountOrigin string

const (
	AccountOriginCreated  AccountOrigin = "created"
	AccountOriginRestored AccountOrigin = "restored"
)

// AccountType is the key material behind an account. It is a closed set.
type AccountType interface {
	accountType()
	Description() string
}

type MnemonicAccountType struct {
	Words      []string
	Passphrase string
}

type PrivateKeyAccountType struct {
	Key []byte
}

// EvmAddressAccountType is a watch-only account.
type EvmAddressAccountType struct {
	Address string
}

func (MnemonicAccountType) accountType()   {}
func (PrivateKeyAccountType) accountType() {}
func (EvmAddressAccountType) accountType() {}

func (m MnemonicAccountType) Description() string {
	if m.Passphrase != "" {
		return fmt.Sprintf("%d words with passphrase", len(m.Words))
	}
	return fmt.Sprintf("%d words", len(m.Words))
}

func (PrivateKeyAccountType) Description() string { return "private key" }

func (e EvmAddressAccountType) Description() string { return "watch " + e.Address }

type Account struct {
	ID         string
	Name       string
	Type       AccountType
	Origin     AccountOrigin
	IsBackedUp bool
}

// Equal reports whether both accounts carry the same id and key material.
// Name and backup state are not part of an account's identity.
func (a *Account) Equal(o *Account) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.ID != o.ID {
		return false
	}
	return sameKeyMaterial(a.Type, o.Type)
}

func sameKeyMaterial(a, b AccountType) bool {
	switch at := a.(type) {
	case MnemonicAccountType:
		bt, ok := b.(MnemonicAccountType)
		return ok && at.Passphrase == bt.Passphrase && strings.Join(at.Words, " ") == strings.Join(bt.Words, " ")
	case PrivateKeyAccountType:
		bt, ok := b.(PrivateKeyAccountType)
		return ok && string(at.Key) == string(bt.Key)
	case EvmAddressAccountType:
		bt, ok := b.(EvmAddressAccountType)
		return ok && strings.EqualFold(at.Address, bt.Address)
	case nil:
		return b == nil
	}
	return false
}

// ParseMnemonic splits a phrase on any whitespace, dropping empty words.
func ParseMnemonic(phrase string) []string {
	return strings.Fields(phrase)
}
