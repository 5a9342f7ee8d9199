package models

import (
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
)

// PaymentMethod is how a payment was made.
type PaymentMethod string

const (
	MethodWallet PaymentMethod = "WALLET"
	MethodCard   PaymentMethod = "CARD"
	MethodCash   PaymentMethod = "CASH"
)

// ParsePaymentMethod validates a wire-level payment method string.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodWallet, MethodCard, MethodCash:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("%w: payment method %q", common.ErrInvalidEnum, s)
}

// PaymentStatus tracks a payment's processing state.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// ParsePaymentStatus validates a wire-level payment status string.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentCaptured, PaymentFailed:
		return PaymentStatus(s), nil
	}
	return "", fmt.Errorf("%w: payment status %q", common.ErrInvalidEnum, s)
}

// Payment settles a rental. Business key: ID (generated). Scope for pulls
// is the rental id.
//
// BalanceSynced is distinct from the dirty flag: it records whether this
// payment has already been applied to a Balance, guarding against double
// application. It is only ever set by the wallet's atomic test-and-set.
type Payment struct {
	ID            string
	RentalID      string
	PayerEmail    string
	OwnerAmount   int64
	DriverAmount  int64
	PlatformFee   int64
	Method        PaymentMethod
	Status        PaymentStatus
	BalanceSynced bool
	CreatedAt     int64
	SyncStatus
}

// Total is the full amount the payer is charged.
func (p *Payment) Total() int64 {
	return p.OwnerAmount + p.DriverAmount + p.PlatformFee
}

// IncomeRecord credits a stakeholder for a rental. Business key: ID
// (generated). Scope for pulls is the recipient email. BalanceSynced works
// exactly as on Payment.
type IncomeRecord struct {
	ID             string
	RentalID       string
	RecipientEmail string
	Amount         int64
	Source         TxnSource
	BalanceSynced  bool
	CreatedAt      int64
	SyncStatus
}
