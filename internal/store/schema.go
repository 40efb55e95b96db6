/**
 * @description
 * This file owns schema creation and initial data seeding for the
 * funds-service. Both are explicit routines taking a pool handle so that tests
 * and deployments can run them against isolated database instances; nothing
 * here runs as a package-level side effect.
 *
 * The unique indexes on users.email, funds.name and
 * transactions.transaction_id, plus the compound (user_id, created_at DESC)
 * index on transactions, are part of the service's performance contract for
 * "transactions for user ordered by recency".
 */

package store

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/btgfunds/funds-service/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS funds (
    id             UUID PRIMARY KEY,
    name           TEXT NOT NULL,
    category       TEXT NOT NULL CHECK (category IN ('FPV', 'FIC')),
    minimum_amount BIGINT NOT NULL CHECK (minimum_amount > 0),
    is_active      BOOLEAN NOT NULL DEFAULT TRUE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS funds_name_key ON funds (name);

CREATE TABLE IF NOT EXISTS users (
    id                      UUID PRIMARY KEY,
    email                   TEXT NOT NULL,
    full_name               TEXT NOT NULL,
    phone                   TEXT,
    balance                 BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    notification_preference TEXT NOT NULL DEFAULT 'email',
    password_hash           TEXT NOT NULL,
    is_active               BOOLEAN NOT NULL DEFAULT TRUE,
    created_at              TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at              TIMESTAMPTZ
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (email);

CREATE TABLE IF NOT EXISTS holdings (
    user_id       UUID NOT NULL REFERENCES users (id),
    fund_id       UUID NOT NULL REFERENCES funds (id),
    amount        BIGINT NOT NULL CHECK (amount > 0),
    subscribed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, fund_id)
);

CREATE TABLE IF NOT EXISTS transactions (
    id             UUID PRIMARY KEY,
    transaction_id TEXT NOT NULL,
    user_id        UUID NOT NULL REFERENCES users (id),
    fund_id        UUID NOT NULL REFERENCES funds (id),
    fund_name      TEXT NOT NULL,
    type           TEXT NOT NULL CHECK (type IN ('SUBSCRIPTION', 'CANCELLATION')),
    amount         BIGINT NOT NULL CHECK (amount > 0),
    status         TEXT NOT NULL CHECK (status IN ('COMPLETED', 'REJECTED')),
    reason         TEXT,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS transactions_transaction_id_key ON transactions (transaction_id);
CREATE INDEX IF NOT EXISTS transactions_user_recency_idx ON transactions (user_id, created_at DESC);
`

// EnsureSchema creates the service's tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schemaDDL)
	return err
}

// defaultFunds is the fixed catalog from the business statement.
var defaultFunds = []domain.Fund{
	{Name: "FPV_BTG_PACTUAL_RECAUDADORA", Category: domain.FundCategoryFPV, MinimumAmount: 75000},
	{Name: "FPV_BTG_PACTUAL_ECOPETROL", Category: domain.FundCategoryFPV, MinimumAmount: 125000},
	{Name: "DEUDAPRIVADA", Category: domain.FundCategoryFIC, MinimumAmount: 50000},
	{Name: "FDO-ACCIONES", Category: domain.FundCategoryFIC, MinimumAmount: 250000},
	{Name: "FPV_BTG_PACTUAL_DINAMICA", Category: domain.FundCategoryFPV, MinimumAmount: 100000},
}

// DemoUserEmail identifies the seeded demo client.
const DemoUserEmail = "cliente@btgpactual.com"

// SeedDefaultData inserts the five catalog funds and the demo client account
// (balance 500000 COP, no subscriptions). It is idempotent: entries that
// already exist are left untouched.
func SeedDefaultData(ctx context.Context, db *pgxpool.Pool, demoPasswordHash string) error {
	repo := NewPostgresRepository(db)

	for i := range defaultFunds {
		fund := defaultFunds[i]
		fund.ID = uuid.New()
		fund.IsActive = true
		if err := repo.CreateFund(ctx, &fund); err != nil {
			if errors.Is(err, ErrDuplicateFund) {
				continue
			}
			return err
		}
		log.Printf("level=info component=seed msg=\"fund created\" name=%s minimum=%d", fund.Name, fund.MinimumAmount)
	}

	demo := &domain.User{
		ID:                     uuid.New(),
		Email:                  DemoUserEmail,
		FullName:               "Cliente BTG",
		Balance:                domain.InitialBalance,
		NotificationPreference: domain.NotifyByEmail,
		PasswordHash:           demoPasswordHash,
		IsActive:               true,
	}
	if err := repo.CreateUser(ctx, demo); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return err
	}
	log.Printf("level=info component=seed msg=\"demo user created\" email=%s balance=%d", demo.Email, demo.Balance)
	return nil
}
