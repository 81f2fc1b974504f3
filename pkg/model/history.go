package model

import "time"

// HistoryEventType identifies the kind of run recorded in the history log.
type HistoryEventType string

const (
	EventTypeOrganize HistoryEventType = "organize"
	EventTypeRevert   HistoryEventType = "revert"
	EventTypePrune    HistoryEventType = "prune"
)

// HistoryRecord is a single line in the run history (JSONL format).
type HistoryRecord struct {
	Timestamp  time.Time        `json:"timestamp"`
	RunID      string           `json:"run_id"`
	EventType  HistoryEventType `json:"event_type"`
	BasePath   string           `json:"base_path,omitempty"`
	Artifact   string           `json:"artifact,omitempty"`
	Details    map[string]any   `json:"details,omitempty"`
	PrevHash   HashValue        `json:"prev_hash"`
	RecordHash HashValue        `json:"record_hash"`
}
