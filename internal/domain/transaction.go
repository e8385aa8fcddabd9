/**
 * @description
 * This file defines the append-only transaction ledger record and the cash-in
 * request model. A Transaction is written exactly once, as the terminal step
 * of a successful cash-in approval, and is never updated afterwards.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TransactionTypeCashIn = "cash-in"
)

// Transaction is the immutable historical record of a completed cash-in.
// Maps directly to the `transactions` table.
type Transaction struct {
	ID               uuid.UUID `json:"id"`
	Type             string    `json:"type"`
	Amount           int64     `json:"amount"`
	UserID           uuid.UUID `json:"user_id"`
	AgentID          uuid.UUID `json:"agent_id"`
	UserMobileNumber string    `json:"user_mobile_number"`
	AgentMobile      string    `json:"agent_mobile_number"`
	AgentEmail       string    `json:"agent_email"`
	Timestamp        time.Time `json:"timestamp"`
}

// Cash-in request status values. The only transition is pending -> approved,
// performed once by the addressed agent.
const (
	CashInStatusPending  = "pending"
	CashInStatusApproved = "approved"
)

// CashInRequest is a user's ask for an agent to convert physical cash into a
// balance credit. Both parties' contact details are snapshotted at creation.
// Maps directly to the `cash_in_requests` table.
type CashInRequest struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	AgentID          uuid.UUID `json:"agent_id"`
	Amount           int64     `json:"amount"`
	Status           string    `json:"status"`
	UserEmail        string    `json:"user_email"`
	UserMobileNumber string    `json:"user_mobile_number"`
	AgentEmail       string    `json:"agent_email"`
	AgentMobile      string    `json:"agent_mobile_number"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateCashInRequest is the DTO for opening a cash-in request.
type CreateCashInRequest struct {
	AgentMobile string `json:"agent_mobile"`
	Amount      int64  `json:"amount"`
}

// ApproveCashInRequest is the DTO for the agent approval endpoint.
type ApproveCashInRequest struct {
	RequestID string `json:"request_id"`
}
