// Package model defines the persisted data types shared across tidy packages.
package model

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// TimestampLayout is the fixed-width layout used for ledger timestamps and
// artifact file names.
const TimestampLayout = "20060102_150405"

// ArtifactPrefix and ArtifactExt frame the timestamp in artifact file names.
const (
	ArtifactPrefix = "file_changes_"
	ArtifactExt    = ".json"
)
