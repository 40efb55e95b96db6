/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the funds-service. By defining an
 * interface, we decouple the transaction engine's business logic from the
 * PostgreSQL implementation, making the code more modular and easier to test.
 *
 * The two Apply* methods are the only writers of account balances and holdings.
 * Each one must run as a single all-or-nothing unit against the ledger and the
 * transaction log: a failed balance check leaves every table untouched.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/btgfunds/funds-service/internal/domain"
)

// Sentinel errors returned by repository implementations. The service layer
// matches these with errors.Is to drive its own error taxonomy.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrFundNotFound      = errors.New("fund not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateFund     = errors.New("fund name already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadySubscribed = errors.New("already subscribed to fund")
	ErrNotSubscribed     = errors.New("not subscribed to fund")
	// ErrSerialization surfaces a lost lock race inside the store; callers may
	// retry the whole operation once before giving up.
	ErrSerialization = errors.New("storage serialization conflict")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Fund catalog
	GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error)
	GetFundByName(ctx context.Context, name string) (*domain.Fund, error)
	// ListFunds returns funds ordered by name ascending.
	ListFunds(ctx context.Context, activeOnly bool) ([]domain.Fund, error)
	CreateFund(ctx context.Context, fund *domain.Fund) error
	SetFundActive(ctx context.Context, fundID uuid.UUID, active bool) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// Holdings
	GetHolding(ctx context.Context, userID, fundID uuid.UUID) (*domain.Holding, error)
	ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error)

	// ApplySubscription atomically debits tx.Amount from the user's balance,
	// opens the holding and appends the COMPLETED transaction row. It fails
	// with ErrInsufficientFunds or ErrAlreadySubscribed without mutating
	// anything when the re-check under lock does not hold.
	ApplySubscription(ctx context.Context, tx *domain.Transaction) error

	// ApplyCancellation atomically closes the holding, credits the refund back
	// to the user's balance and appends the COMPLETED transaction row. The
	// refunded amount is the one recorded on the holding; it is written back
	// into tx.Amount. Fails with ErrNotSubscribed without mutating anything.
	ApplyCancellation(ctx context.Context, tx *domain.Transaction) error

	// RecordTransaction appends a transaction row outside of any ledger
	// mutation. Used for REJECTED audit records.
	RecordTransaction(ctx context.Context, tx *domain.Transaction) error

	// ListTransactionsByUser returns the user's ledger, newest first.
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
}
