/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for
 * all data access operations required by the ledger-service. By defining an
 * interface, we decouple the ledger's business logic from the specific database
 * implementation (e.g., PostgreSQL), making the core testable without a live
 * store.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: For UUID handling.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/paywave/ledger-service/internal/domain"
)

// TransferParams describes one atomic balance movement. DebitAmount is taken
// from the sender (amount plus any fee), CreditAmount is added to the
// recipient, and RequiredBalance is the funds threshold validated under the
// row lock before either side is applied. RequiredBalance may be lower than
// DebitAmount; the fee model deliberately checks the transfer amount alone.
type TransferParams struct {
	SenderID        uuid.UUID
	RecipientID     uuid.UUID
	DebitAmount     int64
	CreditAmount    int64
	RequiredBalance int64
}

// Repository defines the set of methods for interacting with the database.
// All multi-row balance mutations are single atomic operations here; no other
// path may alter an account balance.
type Repository interface {
	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAccountByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error)
	FindAgentByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByIdentifier(ctx context.Context, mobileOrEmail string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ActivateAccount(ctx context.Context, id uuid.UUID, grant int64) error

	// Transfer engine
	TransferBetween(ctx context.Context, p TransferParams) error

	// Cash-in workflow
	CreateCashInRequest(ctx context.Context, req *domain.CashInRequest) error
	ListPendingCashInRequests(ctx context.Context, agentID uuid.UUID) ([]domain.CashInRequest, error)
	ApproveCashInRequest(ctx context.Context, requestID, agentID uuid.UUID) (*domain.CashInRequest, error)

	// Transaction history
	FindTransactionsByUserMobile(ctx context.Context, mobile string, limit int) ([]domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
}
