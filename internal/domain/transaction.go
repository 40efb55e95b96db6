/**
 * @description
 * This file defines the transaction ledger models for the funds-service. A
 * Transaction is the immutable record of a subscribe or cancel action and its
 * outcome; the ledger is append-only and is the audit trail from which a user's
 * holdings can be reconstructed.
 *
 * @notes
 * - Amounts are stored as `int64` COP.
 * - Rows are never updated or deleted after insert. REJECTED rows carry the
 *   rejection reason; COMPLETED rows carry the applied amount.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TransactionTypeSubscription = "SUBSCRIPTION"
	TransactionTypeCancellation = "CANCELLATION"
)

// Transaction statuses.
const (
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusRejected  = "REJECTED"
)

// Transaction represents one row of the append-only transaction ledger.
// `transaction_id` is the external, human-readable identifier and carries a
// unique index; `id` is the database primary key.
type Transaction struct {
	ID            uuid.UUID `json:"id"`
	TransactionID string    `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	FundID        uuid.UUID `json:"fund_id"`
	FundName      string    `json:"fund_name"`
	Type          string    `json:"type"`   // 'SUBSCRIPTION' or 'CANCELLATION'
	Amount        int64     `json:"amount"` // in COP
	Status        string    `json:"status"` // 'COMPLETED' or 'REJECTED'
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SubscriptionRequest is the DTO for the subscribe endpoint.
type SubscriptionRequest struct {
	FundID uuid.UUID `json:"fund_id"`
	Amount int64     `json:"amount"` // in COP; must cover the fund minimum
}

// CancellationRequest is the DTO for the cancel endpoint.
type CancellationRequest struct {
	FundID uuid.UUID `json:"fund_id"`
}

// TransactionHistory is the recency-ordered ledger view returned to a user,
// together with the portfolio aggregates the original statement asks for.
type TransactionHistory struct {
	UserID            uuid.UUID     `json:"user_id"`
	Transactions      []Transaction `json:"transactions"`
	TotalInvested     int64         `json:"total_invested"`
	AvailableBalance  int64         `json:"available_balance"`
	TotalTransactions int           `json:"total_transactions"`
}
