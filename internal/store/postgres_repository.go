/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * for accounts, cash-in requests, and the transaction ledger.
 *
 * The balance-moving operations (`TransferBetween`, `ApproveCashInRequest`) run
 * inside a single database transaction with `SELECT ... FOR UPDATE` row locks,
 * so a debit and its matching credit are never visible separately and
 * concurrent transfers touching the same account cannot read a stale balance.
 *
 * @dependencies
 * - bytes, context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/paywave/ledger-service/internal/domain"
)

var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrAgentNotFound         = errors.New("agent not found")
	ErrDuplicateAccount      = errors.New("mobile number or email already registered")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrCashInRequestNotFound = errors.New("cash-in request not found")
)

const accountColumns = `id, name, mobile_number, email, secret_hash, role, status, balance, created_at, updated_at`

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateAccount inserts a new account row. Duplicate mobile numbers or emails
// surface as ErrDuplicateAccount via the unique indexes on those columns.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, mobile_number, email, secret_hash, role, status, balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		account.ID,
		account.Name,
		account.MobileNumber,
		account.Email,
		account.SecretHash,
		account.Role,
		account.Status,
		account.Balance,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		return err
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.MobileNumber,
		&account.Email,
		&account.SecretHash,
		&account.Role,
		&account.Status,
		&account.Balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByID retrieves an account by its unique id.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindAccountByMobileNumber retrieves an account by its mobile number.
func (r *PostgresRepository) FindAccountByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE mobile_number = $1`
	return scanAccount(r.db.QueryRow(ctx, query, mobile))
}

// FindAgentByMobileNumber retrieves an account by mobile number, requiring the
// agent role. A match with any other role reports ErrAgentNotFound.
func (r *PostgresRepository) FindAgentByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE mobile_number = $1 AND role = $2`
	account, err := scanAccount(r.db.QueryRow(ctx, query, mobile, domain.RoleAgent))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	return account, nil
}

// FindAccountByEmail retrieves an account by its email address.
func (r *PostgresRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return scanAccount(r.db.QueryRow(ctx, query, email))
}

// FindAccountByIdentifier retrieves an account by mobile number or email.
// Used by login, where the client supplies either.
func (r *PostgresRepository) FindAccountByIdentifier(ctx context.Context, mobileOrEmail string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE mobile_number = $1 OR lower(email) = lower($1)`
	return scanAccount(r.db.QueryRow(ctx, query, mobileOrEmail))
}

// ListAccounts retrieves all accounts, newest first.
func (r *PostgresRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		err := rows.Scan(
			&account.ID,
			&account.Name,
			&account.MobileNumber,
			&account.Email,
			&account.SecretHash,
			&account.Role,
			&account.Status,
			&account.Balance,
			&account.CreatedAt,
			&account.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// ActivateAccount flips a pending account to active and overwrites its balance
// with the role-dependent activation grant. The registration-time balance is
// provisional and is discarded here.
func (r *PostgresRepository) ActivateAccount(ctx context.Context, id uuid.UUID, grant int64) error {
	query := `UPDATE accounts SET status = $1, balance = $2, updated_at = NOW() WHERE id = $3`
	result, err := r.db.Exec(ctx, query, domain.StatusActive, grant, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// lockBalances locks the two account rows in ascending id order and returns
// their current balances keyed by account id. A fixed lock order prevents two
// concurrent transfers on the same pair from deadlocking each other.
func lockBalances(ctx context.Context, tx pgx.Tx, a, b uuid.UUID) (map[uuid.UUID]int64, error) {
	first, second := a, b
	if bytes.Compare(second[:], first[:]) < 0 {
		first, second = second, first
	}

	balances := make(map[uuid.UUID]int64, 2)
	for _, id := range []uuid.UUID{first, second} {
		var balance int64
		err := tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&balance)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}
		balances[id] = balance
	}
	return balances, nil
}

// TransferBetween atomically debits the sender and credits the recipient.
// The sender's funds are re-validated against RequiredBalance while the row
// is locked, so a concurrent transfer cannot over-spend a stale balance.
func (r *PostgresRepository) TransferBetween(ctx context.Context, p TransferParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	balances, err := lockBalances(ctx, tx, p.SenderID, p.RecipientID)
	if err != nil {
		return err
	}

	if balances[p.SenderID] < p.RequiredBalance {
		return ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2`,
		p.DebitAmount, p.SenderID,
	); err != nil {
		return fmt.Errorf("failed to debit sender: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		p.CreditAmount, p.RecipientID,
	); err != nil {
		return fmt.Errorf("failed to credit recipient: %w", err)
	}

	return tx.Commit(ctx)
}

// CreateCashInRequest persists a new pending cash-in request. No balance is
// touched until the addressed agent approves.
func (r *PostgresRepository) CreateCashInRequest(ctx context.Context, req *domain.CashInRequest) error {
	query := `
		INSERT INTO cash_in_requests (
			id, user_id, agent_id, amount, status,
			user_email, user_mobile_number, agent_email, agent_mobile_number
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.UserID,
		req.AgentID,
		req.Amount,
		req.Status,
		req.UserEmail,
		req.UserMobileNumber,
		req.AgentEmail,
		req.AgentMobile,
	)
	return err
}

const cashInColumns = `id, user_id, agent_id, amount, status, user_email, user_mobile_number, agent_email, agent_mobile_number, created_at, updated_at`

func scanCashInRequest(row pgx.Row) (*domain.CashInRequest, error) {
	var req domain.CashInRequest
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.AgentID,
		&req.Amount,
		&req.Status,
		&req.UserEmail,
		&req.UserMobileNumber,
		&req.AgentEmail,
		&req.AgentMobile,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrCashInRequestNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListPendingCashInRequests returns all pending requests addressed to an agent,
// newest first.
func (r *PostgresRepository) ListPendingCashInRequests(ctx context.Context, agentID uuid.UUID) ([]domain.CashInRequest, error) {
	query := `
		SELECT ` + cashInColumns + `
		FROM cash_in_requests
		WHERE agent_id = $1 AND status = $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, agentID, domain.CashInStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []domain.CashInRequest
	for rows.Next() {
		var req domain.CashInRequest
		err := rows.Scan(
			&req.ID,
			&req.UserID,
			&req.AgentID,
			&req.Amount,
			&req.Status,
			&req.UserEmail,
			&req.UserMobileNumber,
			&req.AgentEmail,
			&req.AgentMobile,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// ApproveCashInRequest performs the full approval as one database transaction:
// lock and validate the pending request, lock both parties' accounts, check
// the agent's funds, move the balance, mark the request approved, and append
// the ledger record. A request that is not pending or not addressed to this
// agent reports ErrCashInRequestNotFound, so a second approval can never
// double-credit.
func (r *PostgresRepository) ApproveCashInRequest(ctx context.Context, requestID, agentID uuid.UUID) (*domain.CashInRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the request row and validate it is still pending.
	req, err := scanCashInRequest(tx.QueryRow(ctx, `
		SELECT `+cashInColumns+`
		FROM cash_in_requests
		WHERE id = $1 AND agent_id = $2 AND status = $3
		FOR UPDATE
	`, requestID, agentID, domain.CashInStatusPending))
	if err != nil {
		return nil, err
	}

	// 2. Lock both accounts and check the agent's funds under the lock.
	balances, err := lockBalances(ctx, tx, req.AgentID, req.UserID)
	if err != nil {
		return nil, err
	}
	if balances[req.AgentID] < req.Amount {
		return nil, ErrInsufficientFunds
	}

	// 3. Move the balance: the agent's digital float pays for the credit.
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		req.Amount, req.UserID,
	); err != nil {
		return nil, fmt.Errorf("failed to credit user: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE id = $2`,
		req.Amount, req.AgentID,
	); err != nil {
		return nil, fmt.Errorf("failed to debit agent: %w", err)
	}

	// 4. Terminal state transition.
	if _, err := tx.Exec(ctx,
		`UPDATE cash_in_requests SET status = $1, updated_at = NOW() WHERE id = $2`,
		domain.CashInStatusApproved, req.ID,
	); err != nil {
		return nil, fmt.Errorf("failed to mark request approved: %w", err)
	}

	// 5. Append the ledger record inside the same transaction.
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (id, type, amount, user_id, agent_id, user_mobile_number, agent_mobile_number, agent_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.New(),
		domain.TransactionTypeCashIn,
		req.Amount,
		req.UserID,
		req.AgentID,
		req.UserMobileNumber,
		req.AgentMobile,
		req.AgentEmail,
	); err != nil {
		return nil, fmt.Errorf("failed to append transaction record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	req.Status = domain.CashInStatusApproved
	return req, nil
}

const transactionColumns = `id, type, amount, user_id, agent_id, user_mobile_number, agent_mobile_number, agent_email, created_at`

// FindTransactionsByUserMobile retrieves the most recent ledger records for a
// mobile number, newest first.
func (r *PostgresRepository) FindTransactionsByUserMobile(ctx context.Context, mobile string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_mobile_number = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, mobile, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListTransactions retrieves every ledger record, newest first.
func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	for rows.Next() {
		var tr domain.Transaction
		err := rows.Scan(
			&tr.ID,
			&tr.Type,
			&tr.Amount,
			&tr.UserID,
			&tr.AgentID,
			&tr.UserMobileNumber,
			&tr.AgentMobile,
			&tr.AgentEmail,
			&tr.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tr)
	}
	return transactions, rows.Err()
}
