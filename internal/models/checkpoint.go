package models

import "time"

// Checkpoint marks sync progress: documents created at or before LastSynced
// have been processed. It is monotonically non-decreasing and is the only
// cross-run shared mutable state besides the vault itself.
type Checkpoint struct {
	LastSynced time.Time `toml:"last_synced" json:"last_synced"`
	LastDocID  string    `toml:"last_doc_id" json:"last_doc_id"`
}

// IsZero reports whether no sync has completed yet.
func (c Checkpoint) IsZero() bool {
	return c.LastSynced.IsZero()
}

// Advance returns a checkpoint moved past the given document. The checkpoint
// never moves backward: an older timestamp leaves it unchanged.
func (c Checkpoint) Advance(docID string, createdAt time.Time) Checkpoint {
	if createdAt.Before(c.LastSynced) {
		return c
	}
	return Checkpoint{LastSynced: createdAt, LastDocID: docID}
}
