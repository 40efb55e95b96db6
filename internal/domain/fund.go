/**
 * @description
 * This file defines the fund catalog models for the funds-service. A Fund is an
 * investment vehicle with a minimum required contribution; the catalog is seeded
 * at startup and funds are never deleted, only deactivated.
 *
 * @notes
 * - Amounts are stored as `int64` Colombian pesos (COP). The catalog works in
 *   whole pesos, which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Fund categories as defined by the catalog.
const (
	FundCategoryFPV = "FPV" // Fondo de Pensiones Voluntarias
	FundCategoryFIC = "FIC" // Fondo de Inversión Colectiva
)

// Fund represents a single entry in the fund catalog. This struct maps directly
// to the `funds` table in the database; `name` carries a unique index.
type Fund struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`       // 'FPV' or 'FIC'
	MinimumAmount int64     `json:"minimum_amount"` // in COP
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateFundRequest is the DTO for the admin fund-creation endpoint.
type CreateFundRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	MinimumAmount int64  `json:"minimum_amount"`
}

// ValidFundCategory reports whether the given category is one the catalog accepts.
func ValidFundCategory(category string) bool {
	return category == FundCategoryFPV || category == FundCategoryFIC
}
