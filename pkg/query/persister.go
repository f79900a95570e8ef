package query

import (
	"context"
	"time"

	json "github.com/json-iterator/go"
)

// Snapshot is the persisted form of one entry
type Snapshot struct {
	Key       string          `json:"key"`
	Source    string          `json:"source,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Persister is a second-level cache that outlives the process. A short-lived
// CLI invocation hydrates from it on a miss and writes successful loads back.
type Persister interface {
	Load(ctx context.Context, key string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	// DeletePrefix removes key and every key below it
	DeletePrefix(ctx context.Context, prefix string) error
	Clear(ctx context.Context) error
	Close() error
}
