package syncer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/remote"
)

// AccountWatcher consumes the accounts change-notification feed and applies
// each change to the local store as it arrives, so account edits and
// removals made elsewhere land without waiting for the next pull tick. A
// deleted document removes the local row.
type AccountWatcher struct {
	adapter *AccountAdapter
	col     remote.Collection
	retry   time.Duration
	log     logging.Logger
}

// NewAccountWatcher wires the watcher over the accounts collection.
func NewAccountWatcher(adapter *AccountAdapter, col remote.Collection, log logging.Logger) *AccountWatcher {
	return &AccountWatcher{
		adapter: adapter,
		col:     col,
		retry:   5 * time.Second,
		log:     log.With("component", "account-watcher"),
	}
}

// Run blocks consuming the feed until the context is cancelled, reopening
// the feed after transport failures.
func (w *AccountWatcher) Run(ctx context.Context) {
	w.log.Info(ctx, "account watcher started")
	for {
		if err := w.consume(ctx); err != nil {
			w.log.Warn(ctx, "change feed interrupted", "error", err)
		}
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "account watcher stopped")
			return
		case <-time.After(w.retry):
		}
	}
}

func (w *AccountWatcher) consume(ctx context.Context) error {
	feed, err := w.col.Changes(ctx)
	if err != nil {
		return err
	}
	for change := range feed {
		w.handle(ctx, change)
	}
	return ctx.Err()
}

func (w *AccountWatcher) handle(ctx context.Context, change remote.Change) {
	if change.Deleted {
		if err := w.adapter.removeLocal(ctx, change.ID); err != nil {
			w.log.Error(ctx, "failed to remove account", "email", change.ID, "error", err)
			return
		}
		w.log.Info(ctx, "account removed after remote deletion", "email", change.ID)
		return
	}
	if len(change.Doc) == 0 {
		return
	}
	if err := w.adapter.applyRemote(ctx, change.Doc); err != nil {
		w.log.Warn(ctx, "skipping account change", "email", change.ID, "error", err)
	}
}
