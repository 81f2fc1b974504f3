package model

// ChangeKind discriminates ledger records.
type ChangeKind string

const (
	ChangeMove           ChangeKind = "move"
	ChangeFolderCreation ChangeKind = "folder_creation"
)

// Valid reports whether k is a known kind.
func (k ChangeKind) Valid() bool {
	return k == ChangeMove || k == ChangeFolderCreation
}

// ChangeRecord is one logged filesystem mutation.
// Source is empty for folder creations.
type ChangeRecord struct {
	Kind        ChangeKind `json:"Type"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
}

// LedgerArtifact is the on-disk form of a run's ledger. Changes keep the
// order in which the operations were performed.
type LedgerArtifact struct {
	BasePath  string         `json:"base_path"`
	Timestamp string         `json:"timestamp"`
	Changes   []ChangeRecord `json:"changes"`
}

// CountByKind returns the number of records of kind k.
func (a *LedgerArtifact) CountByKind(k ChangeKind) int {
	n := 0
	for _, c := range a.Changes {
		if c.Kind == k {
			n++
		}
	}
	return n
}
