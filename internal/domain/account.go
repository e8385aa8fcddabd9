/**
 * @description
 * This file defines the account model and the role/status enumerations for the
 * ledger-service. Roles are a closed set; per-role monetary policy (the
 * provisional registration balance and the activation grant) lives in lookup
 * tables here so the lifecycle rules are visible in one place.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest currency unit, which avoids
 *   floating-point inaccuracies with financial data.
 * - The PIN is never held in clear form; accounts carry only the bcrypt hash.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role identifies what an account is allowed to do. The set is closed:
// ordinary users move their own money, agents service cash-in/cash-out,
// admins administer accounts.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// ParseRole validates a client-supplied role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAgent, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Account status values. An account is created pending and becomes active
// exactly once, via admin approval.
const (
	StatusPending = "pending"
	StatusActive  = "active"
)

// registrationBalances is the provisional balance assigned at registration,
// before the account is approved. Agents hold a float so they can service
// cash-outs immediately after activation.
var registrationBalances = map[Role]int64{
	RoleUser:  0,
	RoleAgent: 10000,
	RoleAdmin: 0,
}

// activationGrants is the balance an admin approval overwrites onto the
// account. The registration balance is provisional and is discarded here.
var activationGrants = map[Role]int64{
	RoleUser:  40,
	RoleAgent: 1000,
	RoleAdmin: 0,
}

// RegistrationBalance returns the provisional balance for a newly registered
// account of the given role.
func RegistrationBalance(role Role) int64 {
	return registrationBalances[role]
}

// ActivationGrant returns the balance assigned when an admin activates an
// account of the given role.
func ActivationGrant(role Role) int64 {
	return activationGrants[role]
}

// Account is a ledger account. Maps directly to the `accounts` table.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	MobileNumber string    `json:"mobile_number"`
	Email        string    `json:"email"`
	SecretHash   string    `json:"-"`
	Role         Role      `json:"role"`
	Status       string    `json:"status"`
	Balance      int64     `json:"balance"` // smallest currency unit
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the DTO for the registration endpoint.
type RegisterRequest struct {
	Name         string `json:"name"`
	PIN          string `json:"pin"`
	MobileNumber string `json:"mobile_number"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// LoginRequest is the DTO for the login endpoint. The identifier may be a
// mobile number or an email address.
type LoginRequest struct {
	MobileOrEmail string `json:"mobile_or_email"`
	PIN           string `json:"pin"`
}

// ApproveAccountRequest is the DTO for the admin approval endpoint.
type ApproveAccountRequest struct {
	AccountID string `json:"account_id"`
}

// SendMoneyRequest is the DTO for user-to-user transfers.
type SendMoneyRequest struct {
	RecipientMobile string `json:"recipient_mobile"`
	Amount          int64  `json:"amount"`
	PIN             string `json:"pin"`
}

// CashOutRequest is the DTO for transfers to an agent.
type CashOutRequest struct {
	AgentMobile string `json:"agent_mobile"`
	Amount      int64  `json:"amount"`
	PIN         string `json:"pin"`
}

// TransferReceipt is returned after a completed transfer. Fee is what the
// sender paid on top of Amount.
type TransferReceipt struct {
	Amount int64 `json:"amount"`
	Fee    int64 `json:"fee"`
}
