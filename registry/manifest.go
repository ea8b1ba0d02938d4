// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: registry/manifest.go
// Summary: Describes a panel kind and the capabilities the session relies on.

package registry

import "fmt"

// Kind names a panel kind on the wire (the "panel_type" field).
type Kind string

const (
	KindTerminal Kind = "terminal"
	KindBrowser  Kind = "browser"
	KindMarkdown Kind = "markdown"
)

// Manifest describes a panel kind. The capability set is fixed: the session
// only ever asks whether a panel renders, accepts input, and is hosted in a
// portal near the window root.
type Manifest struct {
	// Name is the unique identifier for this kind (e.g., "terminal").
	Name Kind `json:"name"`

	// DisplayName is the human-readable name used in listings.
	DisplayName string `json:"displayName"`

	// Description provides a brief explanation of the panel.
	Description string `json:"description,omitempty"`

	// Renders reports whether surfaces of this kind are drawn by the
	// rendering collaborator and therefore accumulate draw counts.
	Renders bool `json:"renders"`

	// AcceptsInput reports whether typed text, shortcuts and file drops
	// may be delivered to surfaces of this kind.
	AcceptsInput bool `json:"acceptsInput"`

	// Portal reports whether the panel's view is portal-hosted.
	Portal bool `json:"portal"`
}

// Validate checks that the manifest is well-formed.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if m.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if m.DisplayName == "" {
		return fmt.Errorf("displayName cannot be empty")
	}
	if m.AcceptsInput && !m.Renders {
		return fmt.Errorf("panel %q accepts input but does not render", m.Name)
	}
	return nil
}
