package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"logdex/internal/blob"
	"logdex/internal/cache"
	"logdex/internal/index"
	"logdex/internal/search"
	"logdex/internal/version"
)

// NotFoundError reports a version id that does not exist.
type NotFoundError struct {
	VersionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("version %q not found", e.VersionID)
}

// NoActiveVersionError reports a machine with no active index to search.
type NoActiveVersionError struct {
	MachineID string
}

func (e *NoActiveVersionError) Error() string {
	return fmt.Sprintf("machine %q has no active index version", e.MachineID)
}

// Service coordinates version metadata, blob storage, and the snapshot
// cache. All index documents pass through validation on the way in
// (CreateVersion) and again on every cache load.
type Service struct {
	versions version.Store
	blobs    blob.Store
	cache    *cache.SnapshotCache
	log      *slog.Logger
}

// New wires the version store's change notifications into the cache so any
// metadata write drops that machine's cached snapshots.
func New(versions version.Store, blobs blob.Store, snapCache *cache.SnapshotCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	versions.OnChange(snapCache.InvalidateMachine)
	return &Service{versions: versions, blobs: blobs, cache: snapCache, log: logger}
}

// CreateVersion validates a raw index document, stores it, and registers a
// new inactive version for the machine. Activation is a separate step.
func (s *Service) CreateVersion(ctx context.Context, machineID string, raw []byte) (version.Version, error) {
	if machineID == "" {
		return version.Version{}, errors.New("machine id is required")
	}
	snap, err := index.Validate(raw)
	if err != nil {
		return version.Version{}, err
	}

	indexedAt, err := time.Parse(time.RFC3339, snap.CreatedAt)
	if err != nil {
		indexedAt = time.Now().UTC()
	}

	sum := sha256.Sum256(raw)
	v := version.Version{
		VersionID:     uuid.NewString(),
		MachineID:     machineID,
		CreatedAt:     time.Now().UTC(),
		IndexedAt:     indexedAt,
		SchemaVersion: snap.SchemaVersion,
		ContentHash:   hex.EncodeToString(sum[:]),
		TotalChunks:   snap.TotalChunks,
		TotalErrors:   snap.TotalErrors,
	}
	v.StorageKey = fmt.Sprintf("indexes/%s/%s.json", machineID, v.VersionID)
	if statsJSON, err := json.Marshal(snap.Stats); err == nil {
		v.StatsJSON = string(statsJSON)
	}

	if err := s.blobs.Put(ctx, v.StorageKey, raw); err != nil {
		return version.Version{}, fmt.Errorf("storing index document: %w", err)
	}
	if err := s.versions.Create(v); err != nil {
		// Reclaim the orphaned blob; the metadata insert is the commit point.
		if derr := s.blobs.Delete(ctx, v.StorageKey); derr != nil {
			s.log.Warn("orphaned index blob left behind", "key", v.StorageKey, "error", derr)
		}
		return version.Version{}, err
	}

	s.log.Info("index version created",
		"machine", machineID, "version", v.VersionID,
		"chunks", v.TotalChunks, "errors", v.TotalErrors)
	return v, nil
}

// owned returns the version only if it exists and belongs to the machine.
// A version of another machine is reported as not found, never disclosed.
func (s *Service) owned(machineID, versionID string) (version.Version, error) {
	v, err := s.versions.Get(versionID)
	if errors.Is(err, version.ErrNotFound) || (err == nil && v.MachineID != machineID) {
		return version.Version{}, &NotFoundError{VersionID: versionID}
	}
	return v, err
}

// Activate makes the given version the machine's active one, atomically
// deactivating any other.
func (s *Service) Activate(ctx context.Context, machineID, versionID string) (version.Version, error) {
	if _, err := s.owned(machineID, versionID); err != nil {
		return version.Version{}, err
	}
	v, err := s.versions.Activate(versionID)
	if errors.Is(err, version.ErrNotFound) {
		return version.Version{}, &NotFoundError{VersionID: versionID}
	}
	if err != nil {
		return version.Version{}, err
	}
	s.log.Info("index version activated", "machine", v.MachineID, "version", v.VersionID)
	return v, nil
}

// Delete removes a version's metadata and its stored document. If the
// deleted version was active, the newest remaining version takes over.
func (s *Service) Delete(ctx context.Context, machineID, versionID string) error {
	v, err := s.owned(machineID, versionID)
	if err != nil {
		return err
	}
	if err := s.versions.Delete(versionID); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, v.StorageKey); err != nil {
		s.log.Warn("deleting index blob failed", "key", v.StorageKey, "error", err)
	}
	s.log.Info("index version deleted", "machine", v.MachineID, "version", versionID)
	return nil
}

// GetActive returns the machine's active version, or nil when none exists.
func (s *Service) GetActive(ctx context.Context, machineID string) (*version.Version, error) {
	return s.versions.GetActive(machineID)
}

// ListVersions returns all versions for a machine, newest first.
func (s *Service) ListVersions(ctx context.Context, machineID string) ([]version.Version, error) {
	return s.versions.List(machineID)
}

// Download returns the raw stored index document for a version.
func (s *Service) Download(ctx context.Context, machineID, versionID string) ([]byte, version.Version, error) {
	v, err := s.owned(machineID, versionID)
	if err != nil {
		return nil, version.Version{}, err
	}
	raw, err := s.blobs.Get(ctx, v.StorageKey)
	if err != nil {
		return nil, version.Version{}, fmt.Errorf("fetching index document: %w", err)
	}
	return raw, v, nil
}

// SearchResult is the outcome of one query against a machine's active index.
type SearchResult struct {
	MachineID string         `json:"machine_id"`
	VersionID string         `json:"version_id"`
	Matches   []search.Match `json:"matches"`
}

// Search runs a query against the machine's active index version, loading
// the snapshot through the cache.
func (s *Service) Search(ctx context.Context, machineID, query string) (SearchResult, error) {
	active, err := s.versions.GetActive(machineID)
	if err != nil {
		return SearchResult{}, err
	}
	if active == nil {
		return SearchResult{}, &NoActiveVersionError{MachineID: machineID}
	}

	start := time.Now()
	snap, hit, err := s.cache.Get(ctx, cache.Key{MachineID: machineID, VersionID: active.VersionID}, active.StorageKey)
	if err != nil {
		return SearchResult{}, err
	}

	matches := search.Search(query, snap)
	s.log.Info("search",
		"machine", machineID, "version", active.VersionID,
		"cache_hit", hit, "matches", len(matches),
		"elapsed_ms", time.Since(start).Milliseconds())

	return SearchResult{
		MachineID: machineID,
		VersionID: active.VersionID,
		Matches:   matches,
	}, nil
}
