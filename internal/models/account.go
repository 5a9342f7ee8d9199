package models

import (
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
)

// Role classifies an account.
type Role string

const (
	RoleRenter Role = "RENTER"
	RoleOwner  Role = "OWNER"
	RoleDriver Role = "DRIVER"
)

// ParseRole validates a wire-level role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleRenter, RoleOwner, RoleDriver:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: role %q", common.ErrInvalidEnum, s)
}

// Account is a marketplace user. Business key: Email.
//
// CredentialHash is local-only: it is never written to a remote document
// and never accepted from one, regardless of timestamps.
type Account struct {
	Email          string
	Role           Role
	DisplayName    string
	Phone          string
	CredentialHash string
	CreatedAt      int64
	SyncStatus
}
