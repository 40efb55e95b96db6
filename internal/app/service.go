/**
 * @description
 * This file contains the core business logic for the funds-service. The
 * `Service` struct is the transaction engine: it validates and applies fund
 * subscriptions and cancellations against the account ledger and the fund
 * catalog, records every outcome in the append-only transaction log, and
 * publishes outcome events for the notification service.
 *
 * Key features:
 * - Two-phase validate-then-apply per operation; the apply step is a single
 *   all-or-nothing unit in the repository.
 * - Single-writer-per-account: a lazily created per-user mutex serializes
 *   operations on the same account while leaving other accounts untouched.
 * - One internal retry on a storage serialization conflict, then the failure
 *   surfaces as ErrConflictRetryExhausted.
 * - Business-rule rejections (insufficient funds, below minimum) leave a
 *   REJECTED audit row; the ledger itself is never half-applied.
 *
 * @dependencies
 * - github.com/google/uuid: For transaction identifiers.
 * - golang.org/x/crypto/bcrypt: For password hashing on the user endpoints.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing transaction outcome events.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/btgfunds/funds-service/internal/domain"
	"github.com/btgfunds/funds-service/internal/store"
	"github.com/btgfunds/funds-service/pkg/rabbitmq"
)

// TransactionEventsExchange is the durable topic exchange outcome events go to.
const TransactionEventsExchange = "funds.events"

// Errors surfaced by the transaction engine on top of the store sentinels.
var (
	ErrFundInactive           = errors.New("fund is not active")
	ErrBelowMinimumAmount     = errors.New("amount below fund minimum")
	ErrConflictRetryExhausted = errors.New("concurrent modification conflict, retry exhausted")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidRequest         = errors.New("invalid request")
)

// Service provides the core business logic for fund subscriptions.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	locks         accountLocks
}

// NewService creates a new funds service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher) *Service {
	return &Service{
		repo:          repo,
		eventProducer: producer,
	}
}

// newTransactionID builds the external transaction identifier in the
// TXN_<utc timestamp>_<suffix> shape the ledger has always used. The random
// suffix keeps IDs unique when one user completes several operations within
// the same second.
func newTransactionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("TXN_%s_%s", now.UTC().Format("20060102_150405"), suffix)
}

// Subscribe opens a fund subscription for the user.
//
// Validation order: fund exists, fund active, amount covers the minimum, not
// already subscribed, sufficient balance. Over-minimum amounts are permitted
// and recorded verbatim. On success the account debit, the holding and the
// COMPLETED ledger row are durable before this returns.
func (s *Service) Subscribe(ctx context.Context, userID, fundID uuid.UUID, amount int64) (*domain.Transaction, error) {
	mu := s.locks.acquire(userID)
	defer mu.Unlock()

	fund, err := s.repo.GetFundByID(ctx, fundID)
	if err != nil {
		return nil, err
	}
	if !fund.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrFundInactive, fund.Name)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if amount < fund.MinimumAmount {
		reason := fmt.Sprintf("amount %d below minimum %d for fund %s", amount, fund.MinimumAmount, fund.Name)
		s.recordRejection(ctx, user, fund, domain.TransactionTypeSubscription, amount, reason)
		return nil, fmt.Errorf("%w: fund %s requires at least %d COP, got %d", ErrBelowMinimumAmount, fund.Name, fund.MinimumAmount, amount)
	}

	// Idempotency guard: one active subscription per (user, fund) at a time.
	// The store re-checks this under lock; checking here gives the caller a
	// clean error without burning a ledger write.
	if _, err := s.repo.GetHolding(ctx, userID, fundID); err == nil {
		return nil, fmt.Errorf("%w: %s", store.ErrAlreadySubscribed, fund.Name)
	} else if !errors.Is(err, store.ErrNotSubscribed) {
		return nil, err
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: newTransactionID(now),
		UserID:        userID,
		FundID:        fundID,
		FundName:      fund.Name,
		Type:          domain.TransactionTypeSubscription,
		Amount:        amount,
		Status:        domain.TransactionStatusCompleted,
	}

	if err := s.applyWithRetry(ctx, tx, s.repo.ApplySubscription); err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			reason := fmt.Sprintf("no tiene saldo disponible para vincularse al fondo %s: required %d, available %d", fund.Name, amount, user.Balance)
			s.recordRejection(ctx, user, fund, domain.TransactionTypeSubscription, amount, reason)
			return nil, fmt.Errorf("%w: fund %s requires %d COP, available %d", store.ErrInsufficientFunds, fund.Name, amount, user.Balance)
		}
		return nil, err
	}

	log.Printf("level=info component=engine op=subscribe user_id=%s fund=%s amount=%d tx=%s", userID, fund.Name, amount, tx.TransactionID)
	s.publishOutcome(ctx, user, tx)
	return tx, nil
}

// Cancel closes the user's subscription to a fund and refunds the amount that
// was debited when the subscription opened.
func (s *Service) Cancel(ctx context.Context, userID, fundID uuid.UUID) (*domain.Transaction, error) {
	mu := s.locks.acquire(userID)
	defer mu.Unlock()

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	holding, err := s.repo.GetHolding(ctx, userID, fundID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	tx := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: newTransactionID(now),
		UserID:        userID,
		FundID:        fundID,
		FundName:      holding.FundName,
		Type:          domain.TransactionTypeCancellation,
		Amount:        holding.Amount, // the store overwrites this with the refunded amount
		Status:        domain.TransactionStatusCompleted,
	}

	if err := s.applyWithRetry(ctx, tx, s.repo.ApplyCancellation); err != nil {
		return nil, err
	}

	log.Printf("level=info component=engine op=cancel user_id=%s fund=%s refund=%d tx=%s", userID, holding.FundName, tx.Amount, tx.TransactionID)
	s.publishOutcome(ctx, user, tx)
	return tx, nil
}

// applyWithRetry runs the atomic store operation, retrying exactly once when
// the store reports a serialization conflict.
func (s *Service) applyWithRetry(ctx context.Context, tx *domain.Transaction, apply func(context.Context, *domain.Transaction) error) error {
	err := apply(ctx, tx)
	if !errors.Is(err, store.ErrSerialization) {
		return err
	}
	log.Printf("level=warn component=engine msg=\"serialization conflict, retrying once\" user_id=%s tx=%s", tx.UserID, tx.TransactionID)
	if err := apply(ctx, tx); err != nil {
		if errors.Is(err, store.ErrSerialization) {
			return ErrConflictRetryExhausted
		}
		return err
	}
	return nil
}

// recordRejection appends a REJECTED audit row and publishes the rejection
// event. The audit trail is best-effort: a failure to write it never turns a
// clean rejection into a different error.
func (s *Service) recordRejection(ctx context.Context, user *domain.User, fund *domain.Fund, txType string, amount int64, reason string) {
	tx := &domain.Transaction{
		ID:            uuid.New(),
		TransactionID: newTransactionID(time.Now()),
		UserID:        user.ID,
		FundID:        fund.ID,
		FundName:      fund.Name,
		Type:          txType,
		Amount:        amount,
		Status:        domain.TransactionStatusRejected,
		Reason:        &reason,
	}
	if err := s.repo.RecordTransaction(ctx, tx); err != nil {
		log.Printf("level=warn component=engine msg=\"failed to record rejection\" user_id=%s fund=%s err=%v", user.ID, fund.Name, err)
		return
	}
	s.publishOutcome(ctx, user, tx)
}

// publishOutcome emits the transaction event for the notification service.
// Publishing is not part of the atomic operation: a broker failure is logged
// and the already-durable transaction stands.
func (s *Service) publishOutcome(ctx context.Context, user *domain.User, tx *domain.Transaction) {
	if s.eventProducer == nil {
		return
	}
	event := domain.TransactionEvent{
		TransactionID: tx.TransactionID,
		UserID:        user.ID,
		UserEmail:     user.Email,
		FundName:      tx.FundName,
		Type:          tx.Type,
		Amount:        tx.Amount,
		Status:        tx.Status,
		Reason:        tx.Reason,
		NotifyVia:     user.NotificationPreference,
		Timestamp:     time.Now(),
	}
	routingKey := "funds.transaction." + strings.ToLower(tx.Status)
	if err := s.eventProducer.Publish(ctx, TransactionEventsExchange, routingKey, event); err != nil {
		log.Printf("level=warn component=engine msg=\"failed to publish transaction event\" tx=%s err=%v", tx.TransactionID, err)
	}
}

// --- Fund catalog ---

// ListFunds returns the catalog ordered by name.
func (s *Service) ListFunds(ctx context.Context, activeOnly bool) ([]domain.Fund, error) {
	return s.repo.ListFunds(ctx, activeOnly)
}

// GetFund returns a single fund by ID.
func (s *Service) GetFund(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	return s.repo.GetFundByID(ctx, fundID)
}

// CreateFund adds a new fund to the catalog (admin operation).
func (s *Service) CreateFund(ctx context.Context, req domain.CreateFundRequest) (*domain.Fund, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: fund name is required", ErrInvalidRequest)
	}
	if !domain.ValidFundCategory(req.Category) {
		return nil, fmt.Errorf("%w: category must be FPV or FIC", ErrInvalidRequest)
	}
	if req.MinimumAmount <= 0 {
		return nil, fmt.Errorf("%w: minimum amount must be positive", ErrInvalidRequest)
	}

	fund := &domain.Fund{
		ID:            uuid.New(),
		Name:          name,
		Category:      req.Category,
		MinimumAmount: req.MinimumAmount,
		IsActive:      true,
	}
	if err := s.repo.CreateFund(ctx, fund); err != nil {
		return nil, err
	}
	return fund, nil
}

// SetFundActive toggles a fund's active flag (admin operation).
func (s *Service) SetFundActive(ctx context.Context, fundID uuid.UUID, active bool) error {
	return s.repo.SetFundActive(ctx, fundID, active)
}

// --- Accounts ---

// GetUser returns the account for the given user ID.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// GetBalance returns the user's portfolio summary: available balance, total
// invested across active holdings, and their sum.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.UserBalance, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.repo.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	var invested int64
	for _, h := range holdings {
		invested += h.Amount
	}

	return &domain.UserBalance{
		UserID:               userID,
		CurrentBalance:       user.Balance + invested,
		AvailableBalance:     user.Balance,
		SubscribedFundsValue: invested,
	}, nil
}

// ListHoldings returns the user's active fund holdings.
func (s *Service) ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	return s.repo.ListHoldings(ctx, userID)
}

// GetTransactionHistory returns the user's ledger newest-first together with
// the invested/available aggregates. REJECTED rows appear in the list but do
// not contribute to the totals.
func (s *Service) GetTransactionHistory(ctx context.Context, userID uuid.UUID) (*domain.TransactionHistory, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var invested int64
	for _, t := range txs {
		if t.Status != domain.TransactionStatusCompleted {
			continue
		}
		switch t.Type {
		case domain.TransactionTypeSubscription:
			invested += t.Amount
		case domain.TransactionTypeCancellation:
			invested -= t.Amount
		}
	}
	if invested < 0 {
		invested = 0
	}

	return &domain.TransactionHistory{
		UserID:            userID,
		Transactions:      txs,
		TotalInvested:     invested,
		AvailableBalance:  user.Balance,
		TotalTransactions: len(txs),
	}, nil
}

// --- User registration and authentication ---

// RegisterUser creates a new client account with the initial balance.
func (s *Service) RegisterUser(ctx context.Context, req domain.RegisterUserRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidRequest)
	}
	if len(strings.TrimSpace(req.FullName)) < 2 {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidRequest)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidRequest)
	}
	if req.Phone != nil && !strings.HasPrefix(*req.Phone, "+57") {
		return nil, fmt.Errorf("%w: phone must use the Colombian +57 format", ErrInvalidRequest)
	}
	pref := req.NotificationPreference
	if pref == "" {
		pref = domain.NotifyByEmail
	}
	if pref != domain.NotifyByEmail && pref != domain.NotifyBySMS {
		return nil, fmt.Errorf("%w: notification preference must be email or sms", ErrInvalidRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:                     uuid.New(),
		Email:                  email,
		FullName:               strings.TrimSpace(req.FullName),
		Phone:                  req.Phone,
		Balance:                domain.InitialBalance,
		NotificationPreference: pref,
		PasswordHash:           string(hash),
		IsActive:               true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("level=info component=engine op=register user_id=%s email=%s", user.ID, user.Email)
	return user, nil
}

// AuthenticateUser verifies credentials and returns the matching user.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
