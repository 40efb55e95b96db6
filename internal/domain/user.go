/**
 * @description
 * This file defines the account-side domain models for the funds-service: the
 * user record (which carries the available balance), the active fund holdings
 * that make up a user's portfolio, and the DTOs used by the API layer.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification channels a user can choose for transaction outcomes.
const (
	NotifyByEmail = "email"
	NotifyBySMS   = "sms"
)

// InitialBalance is the balance in COP every newly registered client starts with.
const InitialBalance int64 = 500000

// User represents a client account. Balance is the available (uninvested)
// amount and is only ever mutated by the transaction engine; it never goes
// negative. `email` carries a unique index.
type User struct {
	ID                     uuid.UUID  `json:"id"`
	Email                  string     `json:"email"`
	FullName               string     `json:"full_name"`
	Phone                  *string    `json:"phone,omitempty"`
	Balance                int64      `json:"balance"` // in COP
	NotificationPreference string     `json:"notification_preference"`
	IsActive               bool       `json:"is_active"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              *time.Time `json:"updated_at,omitempty"`

	// PasswordHash never leaves the service.
	PasswordHash string `json:"-"`
}

// Holding represents one active subscription of a user to a fund. The recorded
// amount is what was debited when the subscription opened and what a later
// cancellation refunds.
type Holding struct {
	UserID       uuid.UUID `json:"user_id"`
	FundID       uuid.UUID `json:"fund_id"`
	FundName     string    `json:"fund_name"`
	Amount       int64     `json:"amount"` // in COP
	SubscribedAt time.Time `json:"subscribed_at"`
}

// UserBalance is the portfolio summary returned by the balance endpoint.
type UserBalance struct {
	UserID               uuid.UUID `json:"user_id"`
	CurrentBalance       int64     `json:"current_balance"`        // available + invested
	AvailableBalance     int64     `json:"available_balance"`      // free to invest
	SubscribedFundsValue int64     `json:"subscribed_funds_value"` // total invested
}

// RegisterUserRequest is the DTO for the user registration endpoint.
type RegisterUserRequest struct {
	Email                  string  `json:"email"`
	FullName               string  `json:"full_name"`
	Phone                  *string `json:"phone,omitempty"`
	NotificationPreference string  `json:"notification_preference"`
	Password               string  `json:"password"`
}

// LoginRequest is the DTO for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
