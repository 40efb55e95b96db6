package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/btgfunds/funds-service/internal/domain"
	"github.com/btgfunds/funds-service/internal/store"
)

// memoryRepo is an in-memory Repository used by the engine tests. Its Apply*
// methods mirror the transactional contract of the Postgres implementation:
// every check happens before any mutation, under one lock.
type memoryRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	funds    map[uuid.UUID]*domain.Fund
	holdings map[uuid.UUID]map[uuid.UUID]*domain.Holding
	txs      []domain.Transaction

	// serializationFailures makes the next N Apply* calls fail with
	// ErrSerialization before doing anything.
	serializationFailures int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:    make(map[uuid.UUID]*domain.User),
		funds:    make(map[uuid.UUID]*domain.Fund),
		holdings: make(map[uuid.UUID]map[uuid.UUID]*domain.Holding),
	}
}

func (m *memoryRepo) GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funds[fundID]
	if !ok {
		return nil, store.ErrFundNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *memoryRepo) GetFundByName(ctx context.Context, name string) (*domain.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.funds {
		if f.Name == name {
			cp := *f
			return &cp, nil
		}
	}
	return nil, store.ErrFundNotFound
}

func (m *memoryRepo) ListFunds(ctx context.Context, activeOnly bool) ([]domain.Fund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Fund
	for _, f := range m.funds {
		if activeOnly && !f.IsActive {
			continue
		}
		out = append(out, *f)
	}
	// Ordered by name ascending, as the contract requires.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Name < out[i].Name {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateFund(ctx context.Context, fund *domain.Fund) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.funds {
		if f.Name == fund.Name {
			return store.ErrDuplicateFund
		}
	}
	fund.CreatedAt = time.Now()
	cp := *fund
	m.funds[fund.ID] = &cp
	return nil
}

func (m *memoryRepo) SetFundActive(ctx context.Context, fundID uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.funds[fundID]
	if !ok {
		return store.ErrFundNotFound
	}
	f.IsActive = active
	return nil
}

func (m *memoryRepo) CreateUser(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return store.ErrDuplicateEmail
		}
	}
	user.CreatedAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *memoryRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memoryRepo) GetHolding(ctx context.Context, userID, fundID uuid.UUID) (*domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.holdings[userID][fundID]
	if !ok {
		return nil, store.ErrNotSubscribed
	}
	cp := *h
	return &cp, nil
}

func (m *memoryRepo) ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Holding
	for _, h := range m.holdings[userID] {
		out = append(out, *h)
	}
	return out, nil
}

func (m *memoryRepo) ApplySubscription(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serializationFailures > 0 {
		m.serializationFailures--
		return store.ErrSerialization
	}

	u, ok := m.users[tx.UserID]
	if !ok {
		return store.ErrUserNotFound
	}
	if _, held := m.holdings[tx.UserID][tx.FundID]; held {
		return store.ErrAlreadySubscribed
	}
	if u.Balance < tx.Amount {
		return store.ErrInsufficientFunds
	}

	u.Balance -= tx.Amount
	if m.holdings[tx.UserID] == nil {
		m.holdings[tx.UserID] = make(map[uuid.UUID]*domain.Holding)
	}
	m.holdings[tx.UserID][tx.FundID] = &domain.Holding{
		UserID:       tx.UserID,
		FundID:       tx.FundID,
		FundName:     tx.FundName,
		Amount:       tx.Amount,
		SubscribedAt: time.Now(),
	}
	tx.CreatedAt = time.Now()
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memoryRepo) ApplyCancellation(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serializationFailures > 0 {
		m.serializationFailures--
		return store.ErrSerialization
	}

	u, ok := m.users[tx.UserID]
	if !ok {
		return store.ErrUserNotFound
	}
	h, held := m.holdings[tx.UserID][tx.FundID]
	if !held {
		return store.ErrNotSubscribed
	}

	delete(m.holdings[tx.UserID], tx.FundID)
	u.Balance += h.Amount
	tx.Amount = h.Amount
	tx.CreatedAt = time.Now()
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memoryRepo) RecordTransaction(ctx context.Context, tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx.CreatedAt = time.Now()
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *memoryRepo) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].UserID == userID {
			out = append(out, m.txs[i])
		}
	}
	return out, nil
}

func (m *memoryRepo) balanceOf(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		t.Fatalf("user %s not found", userID)
	}
	return u.Balance
}

func (m *memoryRepo) transactionCount(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.txs {
		if tx.Status == status {
			n++
		}
	}
	return n
}

// capturingPublisher records every published event for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []domain.TransactionEvent
	keys   []string
}

func (p *capturingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := body.(domain.TransactionEvent); ok {
		p.events = append(p.events, ev)
		p.keys = append(p.keys, routingKey)
	}
	return nil
}

func (p *capturingPublisher) Close() {}

// testEnv wires a Service over the in-memory repo with the seed catalog and
// the demo client (balance 500000).
type testEnv struct {
	repo        *memoryRepo
	publisher   *capturingPublisher
	service     *Service
	userID      uuid.UUID
	fundsByName map[string]uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newMemoryRepo()
	publisher := &capturingPublisher{}

	catalog := []struct {
		name     string
		category string
		minimum  int64
	}{
		{"FPV_BTG_PACTUAL_RECAUDADORA", domain.FundCategoryFPV, 75000},
		{"FPV_BTG_PACTUAL_ECOPETROL", domain.FundCategoryFPV, 125000},
		{"DEUDAPRIVADA", domain.FundCategoryFIC, 50000},
		{"FDO-ACCIONES", domain.FundCategoryFIC, 250000},
		{"FPV_BTG_PACTUAL_DINAMICA", domain.FundCategoryFPV, 100000},
	}

	fundsByName := make(map[string]uuid.UUID)
	for _, c := range catalog {
		fund := &domain.Fund{
			ID:            uuid.New(),
			Name:          c.name,
			Category:      c.category,
			MinimumAmount: c.minimum,
			IsActive:      true,
		}
		if err := repo.CreateFund(context.Background(), fund); err != nil {
			t.Fatalf("seed fund %s: %v", c.name, err)
		}
		fundsByName[c.name] = fund.ID
	}

	user := &domain.User{
		ID:                     uuid.New(),
		Email:                  "cliente@btgpactual.com",
		FullName:               "Cliente BTG",
		Balance:                domain.InitialBalance,
		NotificationPreference: domain.NotifyByEmail,
		PasswordHash:           "x",
		IsActive:               true,
	}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	return &testEnv{
		repo:        repo,
		publisher:   publisher,
		service:     NewService(repo, publisher),
		userID:      user.ID,
		fundsByName: fundsByName,
	}
}

func TestSubscribeRecaudadoraScenario(t *testing.T) {
	env := newTestEnv(t)
	fundID := env.fundsByName["FPV_BTG_PACTUAL_RECAUDADORA"]

	tx, err := env.service.Subscribe(context.Background(), env.userID, fundID, 75000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tx.Status != domain.TransactionStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", tx.Status)
	}
	if tx.Amount != 75000 {
		t.Fatalf("expected amount 75000, got %d", tx.Amount)
	}
	if tx.Type != domain.TransactionTypeSubscription {
		t.Fatalf("expected SUBSCRIPTION, got %s", tx.Type)
	}
	if !strings.HasPrefix(tx.TransactionID, "TXN_") {
		t.Fatalf("unexpected transaction id %q", tx.TransactionID)
	}

	if got := env.repo.balanceOf(t, env.userID); got != 425000 {
		t.Fatalf("expected balance 425000, got %d", got)
	}
	holdings, _ := env.repo.ListHoldings(context.Background(), env.userID)
	if len(holdings) != 1 || holdings[0].FundName != "FPV_BTG_PACTUAL_RECAUDADORA" {
		t.Fatalf("expected one RECAUDADORA holding, got %+v", holdings)
	}
	if n := env.repo.transactionCount(domain.TransactionStatusCompleted); n != 1 {
		t.Fatalf("expected one COMPLETED transaction, got %d", n)
	}

	if len(env.publisher.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(env.publisher.events))
	}
	ev := env.publisher.events[0]
	if ev.Status != domain.TransactionStatusCompleted || ev.NotifyVia != domain.NotifyByEmail {
		t.Fatalf("unexpected event %+v", ev)
	}
	if env.publisher.keys[0] != "funds.transaction.completed" {
		t.Fatalf("unexpected routing key %q", env.publisher.keys[0])
	}
}

func TestSubscribeValidationFailures(t *testing.T) {
	tests := []struct {
		name      string
		fund      string
		amount    int64
		setup     func(t *testing.T, env *testEnv)
		wantErr   error
		wantAudit int // REJECTED rows expected after the call
	}{
		{
			name:    "unknown fund",
			fund:    "",
			amount:  100000,
			wantErr: store.ErrFundNotFound,
		},
		{
			name:   "inactive fund",
			fund:   "DEUDAPRIVADA",
			amount: 50000,
			setup: func(t *testing.T, env *testEnv) {
				if err := env.repo.SetFundActive(context.Background(), env.fundsByName["DEUDAPRIVADA"], false); err != nil {
					t.Fatalf("deactivate fund: %v", err)
				}
			},
			wantErr: ErrFundInactive,
		},
		{
			name:      "below minimum",
			fund:      "FDO-ACCIONES",
			amount:    100000,
			wantErr:   ErrBelowMinimumAmount,
			wantAudit: 1,
		},
		{
			name:   "already subscribed",
			fund:   "FPV_BTG_PACTUAL_DINAMICA",
			amount: 100000,
			setup: func(t *testing.T, env *testEnv) {
				if _, err := env.service.Subscribe(context.Background(), env.userID, env.fundsByName["FPV_BTG_PACTUAL_DINAMICA"], 100000); err != nil {
					t.Fatalf("first subscribe: %v", err)
				}
			},
			wantErr: store.ErrAlreadySubscribed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(t, env)
			}
			balanceBefore := env.repo.balanceOf(t, env.userID)
			completedBefore := env.repo.transactionCount(domain.TransactionStatusCompleted)

			fundID := uuid.New()
			if tt.fund != "" {
				fundID = env.fundsByName[tt.fund]
			}

			_, err := env.service.Subscribe(context.Background(), env.userID, fundID, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if got := env.repo.balanceOf(t, env.userID); got != balanceBefore {
				t.Fatalf("balance changed on failed subscribe: %d -> %d", balanceBefore, got)
			}
			if n := env.repo.transactionCount(domain.TransactionStatusCompleted); n != completedBefore {
				t.Fatalf("COMPLETED count changed on failed subscribe: %d -> %d", completedBefore, n)
			}
			if n := env.repo.transactionCount(domain.TransactionStatusRejected); n != tt.wantAudit {
				t.Fatalf("expected %d REJECTED rows, got %d", tt.wantAudit, n)
			}
		})
	}
}

func TestSubscribeInsufficientFundsScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 500000 - 75000 = 425000
	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FPV_BTG_PACTUAL_RECAUDADORA"], 75000); err != nil {
		t.Fatalf("recaudadora subscribe: %v", err)
	}
	// Over-minimum contribution is permitted and recorded verbatim: 425000 - 250000 = 175000
	tx, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FPV_BTG_PACTUAL_ECOPETROL"], 250000)
	if err != nil {
		t.Fatalf("ecopetrol subscribe: %v", err)
	}
	if tx.Amount != 250000 {
		t.Fatalf("expected over-minimum amount recorded verbatim, got %d", tx.Amount)
	}
	if got := env.repo.balanceOf(t, env.userID); got != 175000 {
		t.Fatalf("expected balance 175000, got %d", got)
	}

	// 175000 < 250000: rejected with an audit record, balance untouched.
	_, err = env.service.Subscribe(ctx, env.userID, env.fundsByName["FDO-ACCIONES"], 250000)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := env.repo.balanceOf(t, env.userID); got != 175000 {
		t.Fatalf("balance changed on rejected subscribe: got %d", got)
	}
	if n := env.repo.transactionCount(domain.TransactionStatusRejected); n != 1 {
		t.Fatalf("expected one REJECTED audit row, got %d", n)
	}
	rejected := env.publisher.events[len(env.publisher.events)-1]
	if rejected.Status != domain.TransactionStatusRejected || rejected.Reason == nil {
		t.Fatalf("expected rejected event with reason, got %+v", rejected)
	}
}

func TestCancelRoundTripRestoresBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fundID := env.fundsByName["DEUDAPRIVADA"]

	before := env.repo.balanceOf(t, env.userID)
	if _, err := env.service.Subscribe(ctx, env.userID, fundID, 60000); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	tx, err := env.service.Cancel(ctx, env.userID, fundID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if tx.Type != domain.TransactionTypeCancellation || tx.Status != domain.TransactionStatusCompleted {
		t.Fatalf("unexpected cancellation record %+v", tx)
	}
	if tx.Amount != 60000 {
		t.Fatalf("expected refund of 60000 (the amount originally debited), got %d", tx.Amount)
	}

	if got := env.repo.balanceOf(t, env.userID); got != before {
		t.Fatalf("round trip did not restore balance: want %d, got %d", before, got)
	}
	holdings, _ := env.repo.ListHoldings(ctx, env.userID)
	if len(holdings) != 0 {
		t.Fatalf("expected no holdings after cancel, got %+v", holdings)
	}
}

func TestCancelNotSubscribed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	before := env.repo.balanceOf(t, env.userID)
	_, err := env.service.Cancel(ctx, env.userID, env.fundsByName["FDO-ACCIONES"])
	if !errors.Is(err, store.ErrNotSubscribed) {
		t.Fatalf("expected ErrNotSubscribed, got %v", err)
	}
	if got := env.repo.balanceOf(t, env.userID); got != before {
		t.Fatalf("cancel of non-held fund mutated balance: %d -> %d", before, got)
	}
	if n := env.repo.transactionCount(domain.TransactionStatusCompleted) + env.repo.transactionCount(domain.TransactionStatusRejected); n != 0 {
		t.Fatalf("cancel of non-held fund wrote %d ledger rows", n)
	}
}

func TestSerializationConflictRetry(t *testing.T) {
	t.Run("recovers after one conflict", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.serializationFailures = 1

		tx, err := env.service.Subscribe(context.Background(), env.userID, env.fundsByName["DEUDAPRIVADA"], 50000)
		if err != nil {
			t.Fatalf("expected retry to succeed, got %v", err)
		}
		if tx.Status != domain.TransactionStatusCompleted {
			t.Fatalf("expected COMPLETED, got %s", tx.Status)
		}
	})

	t.Run("gives up after the retry", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.serializationFailures = 2

		_, err := env.service.Subscribe(context.Background(), env.userID, env.fundsByName["DEUDAPRIVADA"], 50000)
		if !errors.Is(err, ErrConflictRetryExhausted) {
			t.Fatalf("expected ErrConflictRetryExhausted, got %v", err)
		}
		if got := env.repo.balanceOf(t, env.userID); got != domain.InitialBalance {
			t.Fatalf("balance changed on exhausted retry: got %d", got)
		}
	})
}

func TestGetBalanceAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FPV_BTG_PACTUAL_RECAUDADORA"], 75000); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FPV_BTG_PACTUAL_DINAMICA"], 100000); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	balance, err := env.service.GetBalance(ctx, env.userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.AvailableBalance != 325000 {
		t.Fatalf("expected available 325000, got %d", balance.AvailableBalance)
	}
	if balance.SubscribedFundsValue != 175000 {
		t.Fatalf("expected invested 175000, got %d", balance.SubscribedFundsValue)
	}
	if balance.CurrentBalance != 500000 {
		t.Fatalf("expected current 500000, got %d", balance.CurrentBalance)
	}
}

func TestGetTransactionHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["DEUDAPRIVADA"], 50000); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FPV_BTG_PACTUAL_DINAMICA"], 100000); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.service.Cancel(ctx, env.userID, env.fundsByName["DEUDAPRIVADA"]); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// A rejection shows up in the list but not in the totals.
	if _, err := env.service.Subscribe(ctx, env.userID, env.fundsByName["FDO-ACCIONES"], 10000); !errors.Is(err, ErrBelowMinimumAmount) {
		t.Fatalf("expected ErrBelowMinimumAmount, got %v", err)
	}

	history, err := env.service.GetTransactionHistory(ctx, env.userID)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if history.TotalTransactions != 4 {
		t.Fatalf("expected 4 ledger rows, got %d", history.TotalTransactions)
	}
	if history.TotalInvested != 100000 {
		t.Fatalf("expected invested 100000, got %d", history.TotalInvested)
	}
	if history.AvailableBalance != 400000 {
		t.Fatalf("expected available 400000, got %d", history.AvailableBalance)
	}
	// Newest first.
	if history.Transactions[0].Status != domain.TransactionStatusRejected {
		t.Fatalf("expected newest row to be the rejection, got %+v", history.Transactions[0])
	}
}

func TestRegisterAndAuthenticateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.service.RegisterUser(ctx, domain.RegisterUserRequest{
		Email:    "Nuevo@Cliente.com",
		FullName: "Nuevo Cliente",
		Password: "supersecret",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "nuevo@cliente.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if user.Balance != domain.InitialBalance {
		t.Fatalf("expected initial balance %d, got %d", domain.InitialBalance, user.Balance)
	}
	if user.NotificationPreference != domain.NotifyByEmail {
		t.Fatalf("expected default email preference, got %q", user.NotificationPreference)
	}

	if _, err := env.service.AuthenticateUser(ctx, "nuevo@cliente.com", "supersecret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := env.service.AuthenticateUser(ctx, "nuevo@cliente.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := env.service.AuthenticateUser(ctx, "nobody@cliente.com", "supersecret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterUserValidation(t *testing.T) {
	env := newTestEnv(t)
	badPhone := "3001234567"

	tests := []struct {
		name string
		req  domain.RegisterUserRequest
	}{
		{"missing email", domain.RegisterUserRequest{FullName: "A B", Password: "longenough"}},
		{"short password", domain.RegisterUserRequest{Email: "a@b.com", FullName: "A B", Password: "short"}},
		{"short name", domain.RegisterUserRequest{Email: "a@b.com", FullName: "A", Password: "longenough"}},
		{"bad phone", domain.RegisterUserRequest{Email: "a@b.com", FullName: "A B", Password: "longenough", Phone: &badPhone}},
		{"bad preference", domain.RegisterUserRequest{Email: "a@b.com", FullName: "A B", Password: "longenough", NotificationPreference: "pigeon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.service.RegisterUser(context.Background(), tt.req); !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestCreateFundValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.service.CreateFund(ctx, domain.CreateFundRequest{Name: "NUEVO", Category: "BONDS", MinimumAmount: 1000}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for bad category, got %v", err)
	}
	if _, err := env.service.CreateFund(ctx, domain.CreateFundRequest{Name: "NUEVO", Category: domain.FundCategoryFIC, MinimumAmount: 0}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero minimum, got %v", err)
	}
	if _, err := env.service.CreateFund(ctx, domain.CreateFundRequest{Name: "DEUDAPRIVADA", Category: domain.FundCategoryFIC, MinimumAmount: 1000}); !errors.Is(err, store.ErrDuplicateFund) {
		t.Fatalf("expected ErrDuplicateFund, got %v", err)
	}

	fund, err := env.service.CreateFund(ctx, domain.CreateFundRequest{Name: "  NUEVO  ", Category: domain.FundCategoryFIC, MinimumAmount: 20000})
	if err != nil {
		t.Fatalf("create fund: %v", err)
	}
	if fund.Name != "NUEVO" || !fund.IsActive {
		t.Fatalf("unexpected fund %+v", fund)
	}
}
