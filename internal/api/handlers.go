/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paywave/ledger-service/internal/app"
	"github.com/paywave/ledger-service/internal/domain"
	"github.com/paywave/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// transferResponse is sent back after a completed transfer so the client can
// show the amount moved and the fee charged.
type transferResponse struct {
	Message string `json:"message"`
	Amount  int64  `json:"amount"`
	Fee     int64  `json:"fee"`
}

// RegisterHandler handles new account registration.
func (h *LedgerHandlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=register outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	accountID, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			h.writeError(w, http.StatusConflict, "An account with this mobile number or email already exists")
			return
		}
		log.Printf("level=warn component=api endpoint=register outcome=failed err=%v", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"id":      accountID.String(),
		"message": "Account created and awaiting admin approval",
	})
}

// LoginHandler verifies a PIN and issues a bearer token.
func (h *LedgerHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, "login", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetAccountByEmailHandler returns the public view of one account.
func (h *LedgerHandlers) GetAccountByEmailHandler(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	account, err := h.service.GetAccountByEmail(r.Context(), email)
	if err != nil {
		h.handleServiceError(w, "get_account_by_email", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// ProfileHandler returns the caller's own account.
func (h *LedgerHandlers) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, "profile", err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// BalanceHandler returns the caller's current balance.
func (h *LedgerHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, "balance", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// SendMoneyHandler handles user-to-user transfers.
func (h *LedgerHandlers) SendMoneyHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.SendMoneyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=send_money outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	receipt, err := h.service.SendMoney(r.Context(), accountID, req)
	if err != nil {
		h.handleServiceError(w, "send_money", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferResponse{
		Message: "Transfer completed",
		Amount:  receipt.Amount,
		Fee:     receipt.Fee,
	})
}

// CashOutHandler handles transfers from a user to an agent.
func (h *LedgerHandlers) CashOutHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.CashOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=cash_out outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	receipt, err := h.service.CashOut(r.Context(), accountID, req)
	if err != nil {
		h.handleServiceError(w, "cash_out", err)
		return
	}

	h.writeJSON(w, http.StatusOK, transferResponse{
		Message: "Cash-out completed",
		Amount:  receipt.Amount,
		Fee:     receipt.Fee,
	})
}

// CreateCashInRequestHandler opens a pending cash-in request addressed to an agent.
func (h *LedgerHandlers) CreateCashInRequestHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var req domain.CreateCashInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	requestID, err := h.service.CreateCashInRequest(r.Context(), accountID, req)
	if err != nil {
		h.handleServiceError(w, "create_cash_in", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"id":      requestID.String(),
		"message": "Cash-in request created and awaiting agent approval",
	})
}

// PendingCashInHandler lists the pending cash-in requests addressed to the calling agent.
func (h *LedgerHandlers) PendingCashInHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	requests, err := h.service.ListPendingCashIn(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, "pending_cash_in", err)
		return
	}
	h.writeJSON(w, http.StatusOK, requests)
}

// ApproveCashInHandler settles a pending cash-in request.
func (h *LedgerHandlers) ApproveCashInHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var body domain.ApproveCashInRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	requestID, err := uuid.Parse(body.RequestID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request ID format")
		return
	}

	request, err := h.service.ApproveCashIn(r.Context(), accountID, requestID)
	if err != nil {
		h.handleServiceError(w, "approve_cash_in", err)
		return
	}
	h.writeJSON(w, http.StatusOK, request)
}

// UserTransactionsHandler returns the recent ledger records for a mobile number.
func (h *LedgerHandlers) UserTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	mobile := chi.URLParam(r, "mobileNumber")
	transactions, err := h.service.UserTransactions(r.Context(), mobile)
	if err != nil {
		h.handleServiceError(w, "user_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

// ListAccountsHandler returns every account. Admin only.
func (h *LedgerHandlers) ListAccountsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	accounts, err := h.service.ListAccounts(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, "list_accounts", err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// ApproveAccountHandler activates a pending account. Admin only.
func (h *LedgerHandlers) ApproveAccountHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	var body domain.ApproveAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	targetID, err := uuid.Parse(body.AccountID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid account ID format")
		return
	}

	if err := h.service.ApproveAccount(r.Context(), callerID, targetID); err != nil {
		h.handleServiceError(w, "approve_account", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Account approved"})
}

// SystemTransactionsHandler returns every ledger record. Admin only.
func (h *LedgerHandlers) SystemTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get account ID from context")
		return
	}

	transactions, err := h.service.SystemTransactions(r.Context(), accountID)
	if err != nil {
		h.handleServiceError(w, "system_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, transactions)
}

// handleServiceError maps service layer errors to HTTP status codes.
func (h *LedgerHandlers) handleServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrDuplicateAccount):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrAgentNotFound),
		errors.Is(err, store.ErrCashInRequestNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, app.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredential):
		h.writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s outcome=failed err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// writeJSON is a helper for writing JSON responses.
func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
