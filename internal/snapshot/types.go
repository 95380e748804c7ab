// Package snapshot captures, compares, and restores entity configuration
// as named, timestamped, immutable records.
package snapshot

import (
	"context"
	"time"
)

// Provider is the external configuration source for fleet entities.
// Implementations talk to whatever actually owns the entities; this
// package only cares about flat key/value configuration.
type Provider interface {
	// Status returns the entity's lifecycle status, e.g. "running".
	Status(ctx context.Context, typ string, id int) (string, error)

	// Config returns the entity's full configuration key/value set.
	Config(ctx context.Context, typ string, id int) (map[string]string, error)

	// SetConfig applies a single configuration key.
	SetConfig(ctx context.Context, typ string, id int, key, value string) error
}

// Record is one persisted snapshot, identified by (Type, ID, Name).
type Record struct {
	Type    string            `yaml:"type"`
	ID      int               `yaml:"id"`
	Name    string            `yaml:"name"`
	TakenAt time.Time         `yaml:"taken_at"`
	Status  string            `yaml:"status"`
	Config  map[string]string `yaml:"config"`
}
