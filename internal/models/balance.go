package models

import (
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
)

// Balance is a user wallet. Business key: OwnerEmail.
//
// Amount is in the smallest currency unit. The remote copy is the
// unconditional source of truth: a pull always overwrites the local amount
// regardless of timestamps, and the amount is never recomputed from the
// transaction ledger on read.
type Balance struct {
	OwnerEmail string
	Amount     int64
	CreatedAt  int64
	SyncStatus
}

// TxnDirection is the side of a ledger entry.
type TxnDirection string

const (
	DirectionCredit TxnDirection = "CREDIT"
	DirectionDebit  TxnDirection = "DEBIT"
)

// ParseTxnDirection validates a wire-level direction string.
func ParseTxnDirection(s string) (TxnDirection, error) {
	switch TxnDirection(s) {
	case DirectionCredit, DirectionDebit:
		return TxnDirection(s), nil
	}
	return "", fmt.Errorf("%w: direction %q", common.ErrInvalidEnum, s)
}

// TxnSource categorizes what produced a ledger entry.
type TxnSource string

const (
	SourceRentalPayment TxnSource = "RENTAL_PAYMENT"
	SourceDriverPayout  TxnSource = "DRIVER_PAYOUT"
	SourceTopUp         TxnSource = "TOP_UP"
	SourceRefund        TxnSource = "REFUND"
	SourcePlatformFee   TxnSource = "PLATFORM_FEE"
)

// ParseTxnSource validates a wire-level source string.
func ParseTxnSource(s string) (TxnSource, error) {
	switch TxnSource(s) {
	case SourceRentalPayment, SourceDriverPayout, SourceTopUp, SourceRefund, SourcePlatformFee:
		return TxnSource(s), nil
	}
	return "", fmt.Errorf("%w: source %q", common.ErrInvalidEnum, s)
}

// BalanceTransaction is an append-only ledger entry. Business key: ID
// (generated). After creation only the sync flag ever changes; a pull never
// mutates an existing local row.
type BalanceTransaction struct {
	ID                string
	OwnerEmail        string
	CounterpartyEmail string // optional
	Direction         TxnDirection
	Source            TxnSource
	Amount            int64
	BalanceBefore     int64
	BalanceAfter      int64
	CreatedAt         int64
	SyncStatus
}
