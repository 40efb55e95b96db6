/**
 * @description
 * This file contains the HTTP handlers for the funds-service API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the transaction
 * engine; none of them touch balances or holdings directly.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/btgfunds/funds-service/internal/app"
	"github.com/btgfunds/funds-service/internal/domain"
	"github.com/btgfunds/funds-service/internal/store"
)

// RateLimiter throttles per-user access to the money-movement endpoints.
// A nil limiter disables throttling.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Handlers holds the application service and ancillary settings handlers need.
type Handlers struct {
	service     *app.Service
	jwtSecret   string
	jwtExpiry   time.Duration
	limiter     RateLimiter
	limitPerMin int
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(service *app.Service, jwtSecret string, jwtExpiry time.Duration, limiter RateLimiter, limitPerMin int) *Handlers {
	return &Handlers{
		service:     service,
		jwtSecret:   jwtSecret,
		jwtExpiry:   jwtExpiry,
		limiter:     limiter,
		limitPerMin: limitPerMin,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			log.Printf("level=error component=api msg=\"failed to encode response\" err=%v", err)
		}
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

// writeEngineError maps transaction-engine errors onto HTTP statuses.
func (h *Handlers) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrFundNotFound), errors.Is(err, store.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, store.ErrAlreadySubscribed),
		errors.Is(err, store.ErrNotSubscribed),
		errors.Is(err, app.ErrFundInactive),
		errors.Is(err, app.ErrConflictRetryExhausted):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrBelowMinimumAmount),
		errors.Is(err, app.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateEmail), errors.Is(err, store.ErrDuplicateFund):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("level=error component=api msg=\"unexpected service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// authedUserID pulls the authenticated user id from the context, writing the
// error response itself when it is missing.
func (h *Handlers) authedUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "could not get user ID from context")
		return uuid.Nil, false
	}
	return userID, true
}

// consumeRateLimit enforces the per-user subscribe/cancel budget. It returns
// false after writing the 429 response when the budget is exhausted.
func (h *Handlers) consumeRateLimit(w http.ResponseWriter, r *http.Request, scope string, userID uuid.UUID) bool {
	if h.limiter == nil || h.limitPerMin <= 0 {
		return true
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, userID.String(), h.limitPerMin, time.Minute)
	if err != nil {
		// Fail open: the limiter protects capacity, it is not a correctness gate.
		log.Printf("level=warn component=api msg=\"rate limiter unavailable\" scope=%s err=%v", scope, err)
		return true
	}
	if count > h.limitPerMin {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "too many requests, slow down")
		return false
	}
	return true
}

// --- User endpoints ---

// RegisterUserHandler handles POST /users/register.
func (h *Handlers) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	user, err := h.service.RegisterUser(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

// LoginHandler handles POST /users/login.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	user, err := h.service.AuthenticateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			h.writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.writeEngineError(w, err)
		return
	}

	token, err := IssueToken(h.jwtSecret, user.ID, h.jwtExpiry)
	if err != nil {
		log.Printf("level=error component=api msg=\"failed to sign token\" user_id=%s err=%v", user.ID, err)
		h.writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	h.writeJSON(w, http.StatusOK, loginResponse{AccessToken: token, TokenType: "bearer", User: user})
}

// ProfileHandler handles GET /users/profile.
func (h *Handlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authedUserID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// BalanceHandler handles GET /users/me/balance.
func (h *Handlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authedUserID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, balance)
}

// HistoryHandler handles GET /users/me/history.
func (h *Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authedUserID(w, r)
	if !ok {
		return
	}
	history, err := h.service.GetTransactionHistory(r.Context(), userID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// --- Fund catalog endpoints ---

// ListFundsHandler handles GET /funds?active_only=.
func (h *Handlers) ListFundsHandler(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if raw := r.URL.Query().Get("active_only"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "active_only must be a boolean")
			return
		}
		activeOnly = parsed
	}

	funds, err := h.service.ListFunds(r.Context(), activeOnly)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if funds == nil {
		funds = []domain.Fund{}
	}
	h.writeJSON(w, http.StatusOK, funds)
}

// GetFundHandler handles GET /funds/{fundID}.
func (h *Handlers) GetFundHandler(w http.ResponseWriter, r *http.Request) {
	fundID, err := uuid.Parse(chi.URLParam(r, "fundID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid fund ID")
		return
	}
	fund, err := h.service.GetFund(r.Context(), fundID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, fund)
}

// CreateFundHandler handles POST /funds.
func (h *Handlers) CreateFundHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	fund, err := h.service.CreateFund(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, fund)
}

type fundStatusRequest struct {
	IsActive bool `json:"is_active"`
}

// SetFundStatusHandler handles PUT /funds/{fundID}/status.
func (h *Handlers) SetFundStatusHandler(w http.ResponseWriter, r *http.Request) {
	fundID, err := uuid.Parse(chi.URLParam(r, "fundID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid fund ID")
		return
	}
	var req fundStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.service.SetFundActive(r.Context(), fundID, req.IsActive); err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"is_active": req.IsActive})
}

// --- Transaction engine endpoints ---

// SubscribeHandler handles POST /funds/subscribe.
func (h *Handlers) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authedUserID(w, r)
	if !ok {
		return
	}
	if !h.consumeRateLimit(w, r, "subscribe", userID) {
		return
	}

	var req domain.SubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.FundID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "fund_id is required")
		return
	}
	if req.Amount <= 0 {
		h.writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	tx, err := h.service.Subscribe(r.Context(), userID, req.FundID, req.Amount)
	if err != nil {
		log.Printf("level=warn component=api endpoint=subscribe outcome=failed user_id=%s fund_id=%s err=%v", userID, req.FundID, err)
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// CancelHandler handles POST /funds/cancel.
func (h *Handlers) CancelHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authedUserID(w, r)
	if !ok {
		return
	}
	if !h.consumeRateLimit(w, r, "cancel", userID) {
		return
	}

	var req domain.CancellationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.FundID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "fund_id is required")
		return
	}

	tx, err := h.service.Cancel(r.Context(), userID, req.FundID)
	if err != nil {
		log.Printf("level=warn component=api endpoint=cancel outcome=failed user_id=%s fund_id=%s err=%v", userID, req.FundID, err)
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}
