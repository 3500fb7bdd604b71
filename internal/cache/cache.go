package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"logdex/internal/blob"
	"logdex/internal/index"
)

// DefaultSize is the number of decoded snapshots kept in memory.
const DefaultSize = 5

// Key identifies one cached snapshot. Snapshots are immutable, so a key
// never maps to different content over time.
type Key struct {
	MachineID string
	VersionID string
}

// SnapshotCache keeps decoded, validated snapshots in an LRU keyed by
// (machine, version). Concurrent misses for the same key are coalesced into
// a single blob fetch.
type SnapshotCache struct {
	blobs blob.Store
	lru   *lru.Cache[Key, *index.Snapshot]
	group singleflight.Group
}

func New(blobs blob.Store, size int) (*SnapshotCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	l, err := lru.New[Key, *index.Snapshot](size)
	if err != nil {
		return nil, err
	}
	return &SnapshotCache{blobs: blobs, lru: l}, nil
}

// Get returns the snapshot for key, loading it from blob storage on a miss.
// Every load re-validates the document before it is admitted; a snapshot that
// fails validation is never served. The second return value reports whether
// the call was a cache hit.
func (c *SnapshotCache) Get(ctx context.Context, key Key, storageKey string) (*index.Snapshot, bool, error) {
	if snap, ok := c.lru.Get(key); ok {
		return snap, true, nil
	}

	v, err, _ := c.group.Do(key.MachineID+"\x00"+key.VersionID, func() (any, error) {
		// A concurrent caller may have populated the entry while we
		// waited on the flight.
		if snap, ok := c.lru.Get(key); ok {
			return snap, nil
		}
		raw, err := c.blobs.Get(ctx, storageKey)
		if err != nil {
			return nil, fmt.Errorf("loading snapshot %s/%s: %w", key.MachineID, key.VersionID, err)
		}
		snap, err := index.Validate(raw)
		if err != nil {
			return nil, fmt.Errorf("snapshot %s/%s: %w", key.MachineID, key.VersionID, err)
		}
		c.lru.Add(key, snap)
		return snap, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*index.Snapshot), false, nil
}

// InvalidateMachine drops every cached snapshot belonging to the machine.
func (c *SnapshotCache) InvalidateMachine(machineID string) {
	for _, key := range c.lru.Keys() {
		if key.MachineID == machineID {
			c.lru.Remove(key)
		}
	}
}

// Len reports the number of cached snapshots.
func (c *SnapshotCache) Len() int {
	return c.lru.Len()
}
