/**
 * @description
 * This file contains the core business logic for the ledger-service. The
 * `Service` struct owns the account lifecycle, the authorization gate, the
 * transfer engine, and the cash-in workflow, coordinating between the database
 * repository and the message broker.
 *
 * Key features:
 * - Role-gated mutations: every balance-changing operation re-reads the
 *   caller's account, so role checks never trust stale state.
 * - Fee model: flat fee above a threshold for send-money, percentage fee for
 *   cash-out; both debits move with their credit in one atomic store call.
 * - Publishes ledger events to RabbitMQ for asynchronous consumers.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - golang.org/x/crypto/bcrypt: PIN hash verification.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paywave/ledger-service/internal/domain"
	"github.com/paywave/ledger-service/internal/store"
	"github.com/paywave/ledger-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount     = errors.New("amount is below the minimum transfer amount")
	ErrInvalidCredential = errors.New("invalid PIN")
	ErrForbidden         = errors.New("access denied")
	ErrRateLimited       = errors.New("too many transfer attempts")
)

// FeePolicy holds the monetary rules of the transfer engine. Amounts are in
// the smallest currency unit; CashOutFeeBasisPoints is hundredths of a percent
// (150 = 1.5%).
type FeePolicy struct {
	MinTransferAmount     int64
	SendMoneyFeeThreshold int64
	SendMoneyFlatFee      int64
	CashOutFeeBasisPoints int64
}

// DefaultFeePolicy matches the production fee schedule.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		MinTransferAmount:     50,
		SendMoneyFeeThreshold: 100,
		SendMoneyFlatFee:      5,
		CashOutFeeBasisPoints: 150,
	}
}

// SendMoneyFee returns the flat fee charged on a user-to-user transfer.
func (p FeePolicy) SendMoneyFee(amount int64) int64 {
	if amount > p.SendMoneyFeeThreshold {
		return p.SendMoneyFlatFee
	}
	return 0
}

// CashOutFee returns the percentage fee on a cash-out, rounded half-up to the
// nearest unit.
func (p FeePolicy) CashOutFee(amount int64) int64 {
	return (amount*p.CashOutFeeBasisPoints + 5000) / 10000
}

// RateLimiter throttles repeated money operations per account.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Service provides the core business logic of the ledger.
type Service struct {
	repo   store.Repository
	events rabbitmq.Publisher
	tokens *TokenManager
	fees   FeePolicy

	limiter           RateLimiter
	transferRateLimit int
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, events rabbitmq.Publisher, tokens *TokenManager, fees FeePolicy) *Service {
	return &Service{
		repo:   repo,
		events: events,
		tokens: tokens,
		fees:   fees,
	}
}

// SetRateLimiter enables per-account throttling of money operations.
func (s *Service) SetRateLimiter(limiter RateLimiter, perMinute int) {
	s.limiter = limiter
	s.transferRateLimit = perMinute
}

// Register creates a new pending account. The PIN is stored only as a bcrypt
// hash; the starting balance depends on the role (agents hold a provisional
// float). Duplicate mobile numbers or emails surface store.ErrDuplicateAccount.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (uuid.UUID, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return uuid.Nil, err
	}

	secretHash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to hash PIN: %w", err)
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Name:         req.Name,
		MobileNumber: req.MobileNumber,
		Email:        req.Email,
		SecretHash:   string(secretHash),
		Role:         role,
		Status:       domain.StatusPending,
		Balance:      domain.RegistrationBalance(role),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return uuid.Nil, err
	}

	log.Printf("level=info component=ledger op=register account_id=%s role=%s", account.ID, role)
	return account.ID, nil
}

// Login verifies the PIN against the stored hash and issues a bearer token.
// The identifier may be a mobile number or an email address.
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (string, error) {
	account, err := s.repo.FindAccountByIdentifier(ctx, req.MobileOrEmail)
	if err != nil {
		return "", err
	}
	if err := verifySecret(req.PIN, account.SecretHash); err != nil {
		return "", err
	}
	return s.tokens.Issue(account.ID)
}

// GetAccount retrieves one account by id.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, id)
}

// GetAccountByEmail retrieves one account by email address.
func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.repo.FindAccountByEmail(ctx, email)
}

// GetBalance returns the caller's current balance.
func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// requireRole re-reads the caller's account and checks its role. Any load
// failure denies: a caller whose account cannot be confirmed fresh is treated
// as unauthorized rather than trusted on token age.
func (s *Service) requireRole(ctx context.Context, accountID uuid.UUID, role domain.Role) (*domain.Account, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, ErrForbidden
	}
	if account.Role != role {
		return nil, ErrForbidden
	}
	return account, nil
}

// ListAccounts returns every account. Admin only.
func (s *Service) ListAccounts(ctx context.Context, callerID uuid.UUID) ([]domain.Account, error) {
	if _, err := s.requireRole(ctx, callerID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListAccounts(ctx)
}

// ApproveAccount activates a pending account and overwrites its balance with
// the role-dependent activation grant. Admin only.
func (s *Service) ApproveAccount(ctx context.Context, callerID, accountID uuid.UUID) error {
	if _, err := s.requireRole(ctx, callerID, domain.RoleAdmin); err != nil {
		return err
	}

	target, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return err
	}
	grant := domain.ActivationGrant(target.Role)
	if err := s.repo.ActivateAccount(ctx, target.ID, grant); err != nil {
		return err
	}

	log.Printf("level=info component=ledger op=approve_account account_id=%s role=%s grant=%d", target.ID, target.Role, grant)
	s.publish(ctx, rabbitmq.RouteAccountApproved, rabbitmq.AccountApprovedEvent{
		AccountID: target.ID,
		Role:      string(target.Role),
		Grant:     grant,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// SendMoney transfers to another account resolved by mobile number. A flat fee
// applies above the fee threshold; the funds check is against the transfer
// amount alone while the debit includes the fee, matching the production fee
// schedule.
func (s *Service) SendMoney(ctx context.Context, senderID uuid.UUID, req domain.SendMoneyRequest) (*domain.TransferReceipt, error) {
	if req.Amount < s.fees.MinTransferAmount {
		return nil, ErrInvalidAmount
	}
	if err := s.checkRateLimit(ctx, "send_money", senderID); err != nil {
		return nil, err
	}

	sender, err := s.repo.FindAccountByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if err := verifySecret(req.PIN, sender.SecretHash); err != nil {
		return nil, err
	}

	fee := s.fees.SendMoneyFee(req.Amount)
	// Advisory pre-check; the authoritative check runs under the row lock.
	if sender.Balance < req.Amount {
		return nil, store.ErrInsufficientFunds
	}

	recipient, err := s.repo.FindAccountByMobileNumber(ctx, req.RecipientMobile)
	if err != nil {
		return nil, err
	}

	if err := s.repo.TransferBetween(ctx, store.TransferParams{
		SenderID:        sender.ID,
		RecipientID:     recipient.ID,
		DebitAmount:     req.Amount + fee,
		CreditAmount:    req.Amount,
		RequiredBalance: req.Amount,
	}); err != nil {
		return nil, err
	}

	log.Printf("level=info component=ledger op=send_money sender_id=%s recipient_id=%s amount=%d fee=%d", sender.ID, recipient.ID, req.Amount, fee)
	s.publish(ctx, rabbitmq.RouteTransferSent, rabbitmq.TransferEvent{
		Kind:        "send_money",
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		Amount:      req.Amount,
		Fee:         fee,
		Timestamp:   time.Now().UTC(),
	})
	return &domain.TransferReceipt{Amount: req.Amount, Fee: fee}, nil
}

// CashOut transfers to an agent resolved by mobile number, charging a
// percentage fee. The counterpart must hold the agent role.
func (s *Service) CashOut(ctx context.Context, senderID uuid.UUID, req domain.CashOutRequest) (*domain.TransferReceipt, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.checkRateLimit(ctx, "cash_out", senderID); err != nil {
		return nil, err
	}

	sender, err := s.repo.FindAccountByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if err := verifySecret(req.PIN, sender.SecretHash); err != nil {
		return nil, err
	}
	if sender.Balance < req.Amount {
		return nil, store.ErrInsufficientFunds
	}

	agent, err := s.repo.FindAgentByMobileNumber(ctx, req.AgentMobile)
	if err != nil {
		return nil, err
	}

	fee := s.fees.CashOutFee(req.Amount)
	if err := s.repo.TransferBetween(ctx, store.TransferParams{
		SenderID:        sender.ID,
		RecipientID:     agent.ID,
		DebitAmount:     req.Amount + fee,
		CreditAmount:    req.Amount,
		RequiredBalance: req.Amount,
	}); err != nil {
		return nil, err
	}

	log.Printf("level=info component=ledger op=cash_out sender_id=%s agent_id=%s amount=%d fee=%d", sender.ID, agent.ID, req.Amount, fee)
	s.publish(ctx, rabbitmq.RouteTransferCashOut, rabbitmq.TransferEvent{
		Kind:        "cash_out",
		SenderID:    sender.ID,
		RecipientID: agent.ID,
		Amount:      req.Amount,
		Fee:         fee,
		Timestamp:   time.Now().UTC(),
	})
	return &domain.TransferReceipt{Amount: req.Amount, Fee: fee}, nil
}

// CreateCashInRequest opens a pending cash-in request addressed to an agent.
// No balance moves until the agent approves.
func (s *Service) CreateCashInRequest(ctx context.Context, userID uuid.UUID, req domain.CreateCashInRequest) (uuid.UUID, error) {
	if req.Amount <= 0 {
		return uuid.Nil, ErrInvalidAmount
	}

	user, err := s.repo.FindAccountByID(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	agent, err := s.repo.FindAgentByMobileNumber(ctx, req.AgentMobile)
	if err != nil {
		return uuid.Nil, err
	}

	request := &domain.CashInRequest{
		ID:               uuid.New(),
		UserID:           user.ID,
		AgentID:          agent.ID,
		Amount:           req.Amount,
		Status:           domain.CashInStatusPending,
		UserEmail:        user.Email,
		UserMobileNumber: user.MobileNumber,
		AgentEmail:       agent.Email,
		AgentMobile:      agent.MobileNumber,
	}
	if err := s.repo.CreateCashInRequest(ctx, request); err != nil {
		return uuid.Nil, err
	}

	log.Printf("level=info component=ledger op=create_cash_in request_id=%s user_id=%s agent_id=%s amount=%d", request.ID, user.ID, agent.ID, req.Amount)
	return request.ID, nil
}

// ListPendingCashIn returns the pending requests addressed to the calling
// agent. Agent only.
func (s *Service) ListPendingCashIn(ctx context.Context, agentID uuid.UUID) ([]domain.CashInRequest, error) {
	if _, err := s.requireRole(ctx, agentID, domain.RoleAgent); err != nil {
		return nil, err
	}
	return s.repo.ListPendingCashInRequests(ctx, agentID)
}

// ApproveCashIn completes a pending request addressed to the calling agent:
// the user is credited, the agent is debited, the request becomes approved,
// and a cash-in ledger record is appended, all in one atomic store call.
func (s *Service) ApproveCashIn(ctx context.Context, agentID, requestID uuid.UUID) (*domain.CashInRequest, error) {
	if _, err := s.requireRole(ctx, agentID, domain.RoleAgent); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, "approve_cash_in", agentID); err != nil {
		return nil, err
	}

	request, err := s.repo.ApproveCashInRequest(ctx, requestID, agentID)
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=ledger op=approve_cash_in request_id=%s user_id=%s agent_id=%s amount=%d", request.ID, request.UserID, request.AgentID, request.Amount)
	s.publish(ctx, rabbitmq.RouteCashInApproved, rabbitmq.CashInApprovedEvent{
		RequestID: request.ID,
		UserID:    request.UserID,
		AgentID:   request.AgentID,
		Amount:    request.Amount,
		Timestamp: time.Now().UTC(),
	})
	return request, nil
}

// UserTransactions returns the most recent ledger records for a mobile number,
// newest first.
func (s *Service) UserTransactions(ctx context.Context, mobile string) ([]domain.Transaction, error) {
	return s.repo.FindTransactionsByUserMobile(ctx, mobile, 10)
}

// SystemTransactions returns every ledger record. Admin only.
func (s *Service) SystemTransactions(ctx context.Context, callerID uuid.UUID) ([]domain.Transaction, error) {
	if _, err := s.requireRole(ctx, callerID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx)
}

// verifySecret compares a plaintext PIN against the stored bcrypt hash.
func verifySecret(pin, secretHash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(pin)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

// checkRateLimit consumes one attempt from the per-account window. Limiter
// outages are logged and do not block money movement.
func (s *Service) checkRateLimit(ctx context.Context, scope string, accountID uuid.UUID) error {
	if s.limiter == nil || s.transferRateLimit <= 0 {
		return nil
	}
	count, _, err := s.limiter.ConsumeRateLimit(ctx, scope, accountID.String(), s.transferRateLimit, time.Minute)
	if err != nil {
		log.Printf("level=warn component=ledger msg=\"rate limiter unavailable\" scope=%s account_id=%s err=%v", scope, accountID, err)
		return nil
	}
	if count > s.transferRateLimit {
		return ErrRateLimited
	}
	return nil
}

// publish sends a ledger event, tolerating a nil producer.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, rabbitmq.LedgerExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=ledger msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}
