// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: registry/builtins.go
// Summary: Supports init-time registration of built-in panel kinds.

package registry

import "sync"

// BuiltInProvider returns a manifest for a registry instance.
type BuiltInProvider func(reg *Registry) *Manifest

var (
	builtInMu        sync.RWMutex
	builtInProviders []BuiltInProvider
)

func init() {
	RegisterBuiltInProvider(func(*Registry) *Manifest {
		return &Manifest{
			Name:         KindTerminal,
			DisplayName:  "Terminal",
			Description:  "Shell session backed by the terminal engine",
			Renders:      true,
			AcceptsInput: true,
			Portal:       true,
		}
	})
	RegisterBuiltInProvider(func(*Registry) *Manifest {
		return &Manifest{
			Name:         KindBrowser,
			DisplayName:  "Browser",
			Description:  "Embedded web view",
			Renders:      true,
			AcceptsInput: true,
		}
	})
	RegisterBuiltInProvider(func(*Registry) *Manifest {
		return &Manifest{
			Name:        KindMarkdown,
			DisplayName: "Markdown",
			Description: "Read-only rendered document",
			Renders:     true,
		}
	})
}

// RegisterBuiltInProvider registers an init-time built-in provider.
func RegisterBuiltInProvider(provider BuiltInProvider) {
	if provider == nil {
		return
	}
	builtInMu.Lock()
	builtInProviders = append(builtInProviders, provider)
	builtInMu.Unlock()
}

// RegisterBuiltIns registers all init-time built-ins into the provided registry.
func RegisterBuiltIns(reg *Registry) {
	if reg == nil {
		return
	}
	builtInMu.RLock()
	providers := append([]BuiltInProvider(nil), builtInProviders...)
	builtInMu.RUnlock()

	for _, provider := range providers {
		manifest := provider(reg)
		if manifest == nil {
			continue
		}
		_ = reg.RegisterBuiltIn(manifest)
	}
}
