// Package remote wraps the CouchDB document store behind a small
// collection-oriented interface. One database per entity type, document id
// = the record's business key, so a retried push is an idempotent upsert.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-kivik/kivik/v4"

	"github.com/dmitrijs2005/movesync/internal/logging"
)

// Change is one entry from a collection's change-notification feed.
type Change struct {
	ID      string
	Doc     json.RawMessage
	Deleted bool
}

// Collection is the per-entity-type slice of the remote store the sync
// adapters work against. Implementations must map a missing document to
// common.ErrorNotFound.
type Collection interface {
	// Get returns the raw document stored at id.
	Get(ctx context.Context, id string) (json.RawMessage, error)

	// Find runs a field-equality query and returns the matching documents.
	Find(ctx context.Context, selector map[string]any) ([]json.RawMessage, error)

	// Upsert merges fields into the document at id, creating it when
	// absent. Fields not named are left untouched on the remote side.
	Upsert(ctx context.Context, id string, fields map[string]any) error

	// Changes opens a continuous change-notification feed. The channel is
	// closed when the feed ends or ctx is cancelled.
	Changes(ctx context.Context) (<-chan Change, error)
}

// Client connects to CouchDB and hands out per-entity collections.
type Client struct {
	kc     *kivik.Client
	prefix string
	log    logging.Logger
}

// New dials the CouchDB endpoint. The kivik "couch" driver must be
// registered by the caller (blank import of kivik/v4/couchdb).
func New(url, prefix string, log logging.Logger) (*Client, error) {
	kc, err := kivik.New("couch", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	return &Client{kc: kc, prefix: prefix, log: log}, nil
}

// EnsureCollections creates any missing databases, one per entity type.
func (c *Client) EnsureCollections(ctx context.Context, names []string) error {
	for _, name := range names {
		dbName := c.prefix + name
		exists, err := c.kc.DBExists(ctx, dbName)
		if err != nil {
			return fmt.Errorf("failed to check collection %s: %w", dbName, err)
		}
		if exists {
			continue
		}
		if err := c.kc.CreateDB(ctx, dbName); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", dbName, err)
		}
		c.log.Info(ctx, "created remote collection", "collection", dbName)
	}
	return nil
}

// Collection returns the handle for one entity type.
func (c *Client) Collection(name string) Collection {
	return &couchCollection{db: c.kc.DB(c.prefix + name), log: c.log.With("collection", name)}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.kc.Close()
}
