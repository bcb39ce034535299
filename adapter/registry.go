package adapter

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
)

// Registry keeps the adapters of the running wallets.
type Registry struct {
	lk       sync.Mutex
	adapters map[string]*EvmAdapter
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]*EvmAdapter)}
}

func (r *Registry) Add(a *EvmAdapter) error {
	r.lk.Lock()
	defer r.lk.Unlock()

	key := a.Wallet().String()
	if _, ok := r.adapters[key]; ok {
		return fmt.Errorf("adapter %s already registered", key)
	}
	r.adapters[key] = a
	r.order = append(r.order, key)
	return nil
}

func (r *Registry) List() []*EvmAdapter {
	r.lk.Lock()
	defer r.lk.Unlock()

	adapters := make([]*EvmAdapter, 0, len(r.order))
	for _, key := range r.order {
		adapters = append(adapters, r.adapters[key])
	}
	return adapters
}

func (r *Registry) States() []State {
	var states []State
	for _, a := range r.List() {
		states = append(states, a.State())
	}
	return states
}

// StartAll starts every adapter that is not running yet.
func (r *Registry) StartAll(ctx context.Context) error {
	var errs error
	for _, a := range r.List() {
		if a.Started() {
			continue
		}
		errs = multierr.Append(errs, a.Start(ctx))
	}
	return errs
}

// StopAll stops every running adapter.
func (r *Registry) StopAll() error {
	var errs error
	for _, a := range r.List() {
		if !a.Started() {
			continue
		}
		errs = multierr.Append(errs, a.Stop())
	}
	return errs
}

// Check reports the first sync error of a started adapter.
func (r *Registry) Check(ctx context.Context) error {
	for _, a := range r.List() {
		if err := a.SyncError(); err != nil {
			return fmt.Errorf("%s: %w", a.Wallet(), err)
		}
	}
	return nil
}
