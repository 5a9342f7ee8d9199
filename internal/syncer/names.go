package syncer

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/remote"
	"github.com/dmitrijs2005/movesync/internal/repositories/accounts"
)

// NameResolver maps an account email to a display name. Lookup order is
// local store, then the remote accounts collection, then a name derived
// from the email local part. Whatever is found is persisted locally so the
// next lookup is a single SELECT.
type NameResolver struct {
	repo accounts.Repository
	col  remote.Collection
	log  logging.Logger
}

// NewNameResolver wires the display-name resolution cache.
func NewNameResolver(repo accounts.Repository, col remote.Collection, log logging.Logger) *NameResolver {
	return &NameResolver{repo: repo, col: col, log: log.With("component", "names")}
}

// ResolveDisplayName returns a display name for the email. It never fails
// on remote trouble: the derived fallback is always available.
func (n *NameResolver) ResolveDisplayName(ctx context.Context, email string) (string, error) {
	local, err := n.repo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}
	if local != nil && local.DisplayName != "" {
		return local.DisplayName, nil
	}

	if name, ok := n.fromRemote(ctx, email, local); ok {
		return name, nil
	}

	name := deriveDisplayName(email)
	if err := n.persist(ctx, email, local, name); err != nil {
		return "", err
	}

	// Share the derived name so other devices stop re-deriving it. A field
	// merge keeps the real role and timestamps intact if the account
	// document appears remotely in the meantime.
	if err := n.col.Upsert(ctx, email, map[string]any{"email": email, "displayName": name}); err != nil {
		n.log.Debug(ctx, "derived name not shared", "email", email, "error", err)
	}
	return name, nil
}

// fromRemote tries the remote accounts collection. Any remote failure is
// treated as a miss.
func (n *NameResolver) fromRemote(ctx context.Context, email string, local *models.Account) (string, bool) {
	docs, err := n.col.Find(ctx, map[string]any{"email": email})
	if err != nil {
		n.log.Debug(ctx, "remote name lookup failed", "email", email, "error", err)
		return "", false
	}
	for _, raw := range docs {
		doc, err := decodeAccountDoc(raw)
		if err != nil {
			n.log.Warn(ctx, "skipping remote account document", "error", err)
			continue
		}
		if doc.DisplayName == "" {
			continue
		}
		if err := n.persist(ctx, email, local, doc.DisplayName); err != nil {
			n.log.Error(ctx, "failed to cache resolved name", "email", email, "error", err)
			return doc.DisplayName, true
		}
		return doc.DisplayName, true
	}
	return "", false
}

// persist writes the resolved name into the local store. When no account
// row exists yet a placeholder row is created with a zero updated_at, so a
// later pull of the real account document always wins the merge.
func (n *NameResolver) persist(ctx context.Context, email string, local *models.Account, name string) error {
	if local != nil {
		return n.repo.UpdateDisplayName(ctx, email, name, local.UpdatedAt, local.Dirty)
	}
	stub := &models.Account{
		Email:       email,
		Role:        models.RoleRenter,
		DisplayName: name,
		CreatedAt:   nowMillis(),
		SyncStatus:  models.SyncStatus{Dirty: false, UpdatedAt: 0},
	}
	return n.repo.Save(ctx, stub)
}

// deriveDisplayName builds a readable name from the email local part:
// "jane.doe@x" becomes "Jane Doe".
func deriveDisplayName(email string) string {
	localPart, _, _ := strings.Cut(email, "@")
	if localPart == "" {
		return email
	}
	words := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(words) == 0 {
		return localPart
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
