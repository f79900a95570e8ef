// Package persist provides second-level stores for the query cache
package persist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"github.com/zfogg/threadline/pkg/query"
)

// File keeps one JSON snapshot per query key under a directory
type File struct {
	dir string
	ttl time.Duration
	mu  sync.Mutex
	now func() time.Time
}

// NewFile creates dir if needed. Snapshots older than ttl are ignored; a
// zero ttl keeps them forever.
func NewFile(dir string, ttl time.Duration) (*File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &File{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (f *File) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(f.dir, hex.EncodeToString(sum[:16])+".json")
}

func readSnapshot(path string) (*query.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap query.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return &snap, nil
}

// Load returns the snapshot for key, or nil if there is none
func (f *File) Load(_ context.Context, key string) (*query.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(key)
	snap, err := readSnapshot(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if snap.Key != key {
		return nil, nil
	}
	if f.ttl > 0 && f.now().Sub(snap.UpdatedAt) > f.ttl {
		_ = os.Remove(path)
		return nil, nil
	}
	return snap, nil
}

// Save writes the snapshot atomically
func (f *File) Save(_ context.Context, snap *query.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(snap.Key)
	tmp, err := os.CreateTemp(f.dir, ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// DeletePrefix removes key and every key below it
func (f *File) DeletePrefix(_ context.Context, prefix string) error {
	return f.removeWhere(func(key string) bool {
		return query.MatchesPrefix(key, prefix)
	})
}

// Clear removes every snapshot
func (f *File) Clear(_ context.Context) error {
	return f.removeWhere(func(string) bool { return true })
}

func (f *File) removeWhere(match func(key string) bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(f.dir, e.Name())
		snap, err := readSnapshot(path)
		// Unreadable snapshots are dropped along with matches
		if err == nil && !match(snap.Key) {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close is a no-op
func (f *File) Close() error {
	return nil
}
