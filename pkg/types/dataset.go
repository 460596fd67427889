// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PackDescriptor names the target pack of a dataset and carries the pack
// metadata used when creating one.
type PackDescriptor struct {
	// Collection is the pack address (e.g. "l5r5e.core-bonds").
	Collection string `json:"collection" yaml:"collection"`

	// Type is the pack's document type, used as the default record type
	// when a record carries none.
	Type string `json:"type,omitempty" yaml:"type,omitempty"`

	// System is the game system or domain the pack belongs to.
	System string `json:"system,omitempty" yaml:"system,omitempty"`

	// Label is the human-readable pack name.
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// Locked reports whether the pack rejects writes.
	Locked bool `json:"locked,omitempty" yaml:"locked,omitempty"`
}

// DisplayName returns the label, falling back to the collection.
func (p PackDescriptor) DisplayName() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Collection
}

// Dataset is the canonical content for one pack as published by the
// external source.
type Dataset struct {
	Pack      *PackDescriptor `json:"pack" yaml:"pack"`
	Documents []Record        `json:"documents" yaml:"documents"`

	// Rejected maps the position of a documents element that could not be
	// decoded as a record to its decode error. Documents holds nil there.
	Rejected map[int]error `json:"-" yaml:"-"`
}

// Reject returns the decode error for the document at i, if any.
func (d Dataset) Reject(i int) error {
	return d.Rejected[i]
}
