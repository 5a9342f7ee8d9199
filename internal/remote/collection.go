package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kivik/kivik/v4"
	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
)

type couchCollection struct {
	db  *kivik.DB
	log logging.Logger
}

func (c *couchCollection) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.db.Get(ctx, id).ScanDoc(&raw); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to get document %s: %w", id, err)
	}
	return raw, nil
}

func (c *couchCollection) Find(ctx context.Context, selector map[string]any) ([]json.RawMessage, error) {
	rows := c.db.Find(ctx, map[string]any{"selector": selector})
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw json.RawMessage
		if err := rows.ScanDoc(&raw); err != nil {
			// A row that cannot even be read as JSON is dropped here;
			// schema-level problems are handled by the adapters.
			c.log.Warn(ctx, "skipping unreadable document", "error", err)
			continue
		}
		docs = append(docs, raw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query result: %w", err)
	}
	return docs, nil
}

func (c *couchCollection) Upsert(ctx context.Context, id string, fields map[string]any) error {
	// A concurrent writer can bump _rev between our read and Put, so the
	// read-merge-put cycle retries on conflict with a short backoff.
	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(50*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		doc := map[string]any{}
		err := c.db.Get(ctx, id).ScanDoc(&doc)
		if err != nil && kivik.HTTPStatus(err) != http.StatusNotFound {
			return fmt.Errorf("failed to read document %s for upsert: %w", id, err)
		}

		doc["_id"] = id
		for k, v := range fields {
			doc[k] = v
		}

		if _, err := c.db.Put(ctx, id, doc); err != nil {
			if kivik.HTTPStatus(err) == http.StatusConflict {
				return retry.RetryableError(err)
			}
			return fmt.Errorf("failed to put document %s: %w", id, err)
		}
		return nil
	})
}

func (c *couchCollection) Changes(ctx context.Context) (<-chan Change, error) {
	feed := c.db.Changes(ctx, kivik.Params(map[string]any{
		"feed":         "continuous",
		"include_docs": true,
		"since":        "now",
		"heartbeat":    30000,
	}))
	if err := feed.Err(); err != nil {
		return nil, fmt.Errorf("failed to open changes feed: %w", err)
	}

	ch := make(chan Change)
	go func() {
		defer close(ch)
		defer feed.Close()
		for feed.Next() {
			change := Change{ID: feed.ID(), Deleted: feed.Deleted()}
			if !change.Deleted {
				var raw json.RawMessage
				if err := feed.ScanDoc(&raw); err != nil {
					c.log.Warn(ctx, "skipping unreadable change", "id", change.ID, "error", err)
					continue
				}
				change.Doc = raw
			}
			select {
			case ch <- change:
			case <-ctx.Done():
				return
			}
		}
		if err := feed.Err(); err != nil && ctx.Err() == nil {
			c.log.Error(ctx, "changes feed terminated", "error", err)
		}
	}()
	return ch, nil
}
