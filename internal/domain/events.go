/**
 * @description
 * This file defines the message payloads published to RabbitMQ so that the
 * notification service can inform users about transaction outcomes. Dispatching
 * the actual email or SMS is not this service's job; it only emits the event.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionEvent is published after every transaction record is written,
// COMPLETED and REJECTED alike. NotifyVia carries the user's configured
// notification preference so consumers don't have to look it up.
type TransactionEvent struct {
	TransactionID string    `json:"transaction_id"`
	UserID        uuid.UUID `json:"user_id"`
	UserEmail     string    `json:"user_email"`
	FundName      string    `json:"fund_name"`
	Type          string    `json:"type"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Reason        *string   `json:"reason,omitempty"`
	NotifyVia     string    `json:"notify_via"` // 'email' or 'sms'
	Timestamp     time.Time `json:"timestamp"`
}
