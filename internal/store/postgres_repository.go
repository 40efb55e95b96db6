/**
 * @description
 * This file implements the `Repository` interface using PostgreSQL via the pgx
 * driver. It contains all the SQL queries and the transactional logic that
 * backs the funds-service ledger.
 *
 * Key features:
 * - ApplySubscription and ApplyCancellation run in a single database
 *   transaction with `SELECT ... FOR UPDATE` on the account row, so the
 *   balance check-then-mutate is serialized per account at the store level.
 * - Balance checks happen before any mutation; a failed check rolls back with
 *   nothing written.
 * - pgx.ErrNoRows and unique-violation SQLSTATEs are mapped onto the package's
 *   sentinel errors so callers never see driver-level errors for expected cases.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and transaction support.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/btgfunds/funds-service/internal/domain"
)

// PostgresRepository handles database operations for the funds-service.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new repository backed by the given pool.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isSerializationFailure reports whether err is a serialization failure or
// deadlock, both of which are safe to retry as a whole operation.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

// --- Fund catalog ---

const fundColumns = `id, name, category, minimum_amount, is_active, created_at`

func scanFund(row pgx.Row) (*domain.Fund, error) {
	var f domain.Fund
	err := row.Scan(&f.ID, &f.Name, &f.Category, &f.MinimumAmount, &f.IsActive, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFundNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetFundByID retrieves a fund by its primary key.
func (r *PostgresRepository) GetFundByID(ctx context.Context, fundID uuid.UUID) (*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE id = $1`
	return scanFund(r.db.QueryRow(ctx, query, fundID))
}

// GetFundByName retrieves a fund by its unique name.
func (r *PostgresRepository) GetFundByName(ctx context.Context, name string) (*domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds WHERE name = $1`
	return scanFund(r.db.QueryRow(ctx, query, name))
}

// ListFunds returns the catalog ordered by name ascending. With activeOnly set,
// deactivated funds are filtered out.
func (r *PostgresRepository) ListFunds(ctx context.Context, activeOnly bool) ([]domain.Fund, error) {
	query := `SELECT ` + fundColumns + ` FROM funds ORDER BY name ASC`
	if activeOnly {
		query = `SELECT ` + fundColumns + ` FROM funds WHERE is_active ORDER BY name ASC`
	}
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funds []domain.Fund
	for rows.Next() {
		var f domain.Fund
		if err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.MinimumAmount, &f.IsActive, &f.CreatedAt); err != nil {
			return nil, err
		}
		funds = append(funds, f)
	}
	return funds, rows.Err()
}

// CreateFund inserts a new catalog entry.
func (r *PostgresRepository) CreateFund(ctx context.Context, fund *domain.Fund) error {
	query := `
        INSERT INTO funds (id, name, category, minimum_amount, is_active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query, fund.ID, fund.Name, fund.Category, fund.MinimumAmount, fund.IsActive).
		Scan(&fund.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateFund
		}
		return err
	}
	return nil
}

// SetFundActive toggles a fund's active flag. Funds are never deleted.
func (r *PostgresRepository) SetFundActive(ctx context.Context, fundID uuid.UUID, active bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE funds SET is_active = $2 WHERE id = $1`, fundID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFundNotFound
	}
	return nil
}

// --- Users ---

const userColumns = `id, email, full_name, phone, balance, notification_preference,
        password_hash, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.Balance,
		&u.NotificationPreference, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user account.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *domain.User) error {
	query := `
        INSERT INTO users (id, email, full_name, phone, balance, notification_preference, password_hash, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at
    `
	err := r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FullName, user.Phone, user.Balance,
		user.NotificationPreference, user.PasswordHash, user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by primary key.
func (r *PostgresRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// GetUserByEmail retrieves a user by their unique email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// --- Holdings ---

// GetHolding retrieves the active holding for a (user, fund) pair.
func (r *PostgresRepository) GetHolding(ctx context.Context, userID, fundID uuid.UUID) (*domain.Holding, error) {
	query := `
        SELECT h.user_id, h.fund_id, f.name, h.amount, h.subscribed_at
        FROM holdings h
        JOIN funds f ON f.id = h.fund_id
        WHERE h.user_id = $1 AND h.fund_id = $2
    `
	var h domain.Holding
	err := r.db.QueryRow(ctx, query, userID, fundID).
		Scan(&h.UserID, &h.FundID, &h.FundName, &h.Amount, &h.SubscribedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotSubscribed
		}
		return nil, err
	}
	return &h, nil
}

// ListHoldings returns all active holdings for a user, ordered by fund name.
func (r *PostgresRepository) ListHoldings(ctx context.Context, userID uuid.UUID) ([]domain.Holding, error) {
	query := `
        SELECT h.user_id, h.fund_id, f.name, h.amount, h.subscribed_at
        FROM holdings h
        JOIN funds f ON f.id = h.fund_id
        WHERE h.user_id = $1
        ORDER BY f.name ASC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []domain.Holding
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.UserID, &h.FundID, &h.FundName, &h.Amount, &h.SubscribedAt); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// --- Atomic ledger operations ---

const insertTransactionQuery = `
        INSERT INTO transactions (id, transaction_id, user_id, fund_id, fund_name, type, amount, status, reason)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at
    `

// ApplySubscription debits the balance, opens the holding and appends the
// COMPLETED subscription row, all inside one database transaction. The account
// row is locked for the duration so no interleaved operation can observe a
// partially applied state or drive the balance negative.
func (r *PostgresRepository) ApplySubscription(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin subscription tx: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var balance int64
	err = dbTx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, tx.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if isSerializationFailure(err) {
			return ErrSerialization
		}
		return err
	}

	// Re-check the idempotency guard under lock.
	var exists bool
	err = dbTx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM holdings WHERE user_id = $1 AND fund_id = $2)`,
		tx.UserID, tx.FundID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadySubscribed
	}

	// The balance check must precede any mutation: no partial debit.
	if balance < tx.Amount {
		return ErrInsufficientFunds
	}

	if _, err := dbTx.Exec(ctx,
		`UPDATE users SET balance = balance - $2, updated_at = NOW() WHERE id = $1`,
		tx.UserID, tx.Amount,
	); err != nil {
		return err
	}

	if _, err := dbTx.Exec(ctx,
		`INSERT INTO holdings (user_id, fund_id, amount) VALUES ($1, $2, $3)`,
		tx.UserID, tx.FundID, tx.Amount,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadySubscribed
		}
		return err
	}

	if err := dbTx.QueryRow(ctx, insertTransactionQuery,
		tx.ID, tx.TransactionID, tx.UserID, tx.FundID, tx.FundName,
		tx.Type, tx.Amount, tx.Status, tx.Reason,
	).Scan(&tx.CreatedAt); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return ErrSerialization
		}
		return fmt.Errorf("commit subscription tx: %w", err)
	}
	return nil
}

// ApplyCancellation closes the holding, credits the originally debited amount
// back to the balance and appends the COMPLETED cancellation row, all inside
// one database transaction. tx.Amount is set to the refunded amount.
func (r *PostgresRepository) ApplyCancellation(ctx context.Context, tx *domain.Transaction) error {
	dbTx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin cancellation tx: %w", err)
	}
	defer dbTx.Rollback(ctx)

	var balance int64
	err = dbTx.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1 FOR UPDATE`, tx.UserID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if isSerializationFailure(err) {
			return ErrSerialization
		}
		return err
	}

	var refund int64
	err = dbTx.QueryRow(ctx,
		`DELETE FROM holdings WHERE user_id = $1 AND fund_id = $2 RETURNING amount`,
		tx.UserID, tx.FundID,
	).Scan(&refund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotSubscribed
		}
		return err
	}
	tx.Amount = refund

	if _, err := dbTx.Exec(ctx,
		`UPDATE users SET balance = balance + $2, updated_at = NOW() WHERE id = $1`,
		tx.UserID, refund,
	); err != nil {
		return err
	}

	if err := dbTx.QueryRow(ctx, insertTransactionQuery,
		tx.ID, tx.TransactionID, tx.UserID, tx.FundID, tx.FundName,
		tx.Type, tx.Amount, tx.Status, tx.Reason,
	).Scan(&tx.CreatedAt); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return ErrSerialization
		}
		return fmt.Errorf("commit cancellation tx: %w", err)
	}
	return nil
}

// RecordTransaction appends a transaction row with no ledger mutation. Used
// for REJECTED audit records; the ledger tables are never touched here.
func (r *PostgresRepository) RecordTransaction(ctx context.Context, tx *domain.Transaction) error {
	return r.db.QueryRow(ctx, insertTransactionQuery,
		tx.ID, tx.TransactionID, tx.UserID, tx.FundID, tx.FundName,
		tx.Type, tx.Amount, tx.Status, tx.Reason,
	).Scan(&tx.CreatedAt)
}

// ListTransactionsByUser returns the user's ledger, newest first. The query is
// backed by the (user_id, created_at DESC) compound index.
func (r *PostgresRepository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	query := `
        SELECT id, transaction_id, user_id, fund_id, fund_name, type, amount, status, reason, created_at
        FROM transactions
        WHERE user_id = $1
        ORDER BY created_at DESC, transaction_id DESC
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.TransactionID, &t.UserID, &t.FundID, &t.FundName,
			&t.Type, &t.Amount, &t.Status, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
