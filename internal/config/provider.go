// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package config

import (
	"sync/atomic"

	"github.com/spf13/pflag"

	"github.com/playgate/playgate/internal/crypto"
)

// Provider hands out immutable configuration snapshots and swaps in new
// ones atomically on reload. Readers holding an old snapshot keep a
// coherent view.
type Provider struct {
	current   atomic.Pointer[Config]
	path      string
	flags     *pflag.FlagSet
	providers *crypto.Registry
}

// NewProvider loads the initial configuration and remembers the sources
// for later reloads.
func NewProvider(path string, flags *pflag.FlagSet, providers *crypto.Registry) (*Provider, error) {
	cfg, err := Load(path, flags, providers)
	if err != nil {
		return nil, err
	}

	p := &Provider{path: path, flags: flags, providers: providers}
	p.current.Store(cfg)
	return p, nil
}

// Snapshot returns the current configuration.
func (p *Provider) Snapshot() *Config {
	return p.current.Load()
}

// Reload re-reads the configuration sources. On failure the previous
// snapshot stays in effect.
func (p *Provider) Reload() error {
	cfg, err := Load(p.path, p.flags, p.providers)
	if err != nil {
		return err
	}
	p.current.Store(cfg)
	return nil
}
