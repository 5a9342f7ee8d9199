// Package syncer reconciles the local store with the remote document
// collections. One adapter per entity type owns the wire-shape mapping and
// the push/pull loops; the conflict resolver decides merges; the wallet is
// the single entry point for balance mutations; the orchestrator sequences
// push-before-pull per scope.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/models"
)

// PushStats counts per-record outcomes of a batch push. A failed record
// stays dirty and is retried on the next orchestrated pass.
type PushStats struct {
	Pushed int
	Failed int
}

// Adapter is implemented once per entity type.
//
// PushUnsynced and PullForScope have partial-failure semantics: an error on
// one record is logged and the loop continues. Only store-unavailable-class
// errors abort the whole call.
type Adapter interface {
	EntityType() models.EntityType
	PushUnsynced(ctx context.Context, scope string) (PushStats, error)
	PushSingle(ctx context.Context, id string) error
	PullForScope(ctx context.Context, scopeKey string) error
}

var validate = validator.New()

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// fatal reports whether an error must abort the sync pass instead of being
// recovered per record.
func fatal(err error) bool {
	return errors.Is(err, common.ErrStoreUnavailable)
}

// malformed wraps a document decoding problem so pulls can skip the
// document with a logged reason.
func malformed(err error) error {
	if errors.Is(err, common.ErrMalformedDocument) || errors.Is(err, common.ErrInvalidEnum) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrMalformedDocument, err)
}
