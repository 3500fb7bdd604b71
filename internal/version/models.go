package version

import "time"

// Version is one immutable index build registered for a machine. The index
// document itself lives in blob storage under StorageKey; this record carries
// the metadata needed to list, activate, and fetch it.
type Version struct {
	VersionID string    `json:"version_id"`
	MachineID string    `json:"machine_id"`
	CreatedAt time.Time `json:"created_at"`
	// IndexedAt is the snapshot's own created_at, i.e. when the extraction
	// ran on-device, as opposed to when the document was uploaded.
	IndexedAt     time.Time `json:"indexed_at"`
	SchemaVersion string    `json:"schema_version"`
	StorageKey    string    `json:"storage_key"`
	ContentHash   string    `json:"content_hash"`
	TotalChunks   int       `json:"total_chunks"`
	TotalErrors   int       `json:"total_errors"`
	StatsJSON     string    `json:"stats,omitempty"`
	IsActive      bool      `json:"is_active"`
}
