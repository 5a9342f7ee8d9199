package syncer

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/logging"
)

// StatusStore is the slice of a repository the sync status ledger needs.
type StatusStore interface {
	// MarkSynced clears the dirty flag iff the record's updated_at is still
	// at or below seenUpdatedAt. Calling it again for an already-synced
	// record is a no-op.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error
}

// Ledger guards the dirty flag around pushes.
//
// Finish is idempotent: retrying after an ambiguous network result simply
// re-clears an already-clear flag. The updated_at guard inside MarkSynced
// keeps a record dirty when a local edit landed while the push was in
// flight, which bounds the system to at most one effective in-flight push
// per record. If the process dies mid-push the record stays dirty and the
// next pass re-upserts the same remote value.
type Ledger struct {
	store StatusStore
	log   logging.Logger
}

// NewLedger returns a Ledger over the given status store.
func NewLedger(store StatusStore, log logging.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Finish records a successful remote upsert for the record.
func (l *Ledger) Finish(ctx context.Context, id string, seenUpdatedAt int64) error {
	if err := l.store.MarkSynced(ctx, id, seenUpdatedAt); err != nil {
		// The remote write already happened; the record stays dirty and
		// the next push is an idempotent overwrite.
		l.log.Warn(ctx, "failed to mark record synced, will re-push", "id", id, "error", err)
		return err
	}
	return nil
}
