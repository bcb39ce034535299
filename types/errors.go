package types

import "errors"

var (
	// ErrUnsupportedAccountKind is returned when an account cannot back an evm kit.
	ErrUnsupportedAccountKind = errors.New("unsupported account kind")
	// ErrSyncSourceConstruction is returned when the configured credentials
	// cannot produce a sync source.
	ErrSyncSourceConstruction = errors.New("could not construct sync source")
	// ErrNotAcquired is returned by a release that has no matching acquire.
	ErrNotAcquired = errors.New("evm kit is not acquired")
)
