package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/paywave/ledger-service/internal/domain"
	"github.com/paywave/ledger-service/internal/store"
	"github.com/paywave/ledger-service/pkg/rabbitmq"
)

func hashPIN(t *testing.T, pin string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash pin: %v", err)
	}
	return string(hash)
}

type publisherStub struct {
	routingKeys []string
	bodies      []interface{}
}

func (p *publisherStub) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *publisherStub) Close() {}

func newTestService(repo store.Repository) (*Service, *publisherStub) {
	events := &publisherStub{}
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(repo, events, tokens, DefaultFeePolicy()), events
}

type registerRepoStub struct {
	store.Repository

	created   *domain.Account
	createErr error
}

func (s *registerRepoStub) CreateAccount(ctx context.Context, account *domain.Account) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = account
	return nil
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name        string
		role        string
		wantBalance int64
		wantErr     bool
	}{
		{name: "user starts with zero balance", role: "user", wantBalance: 0},
		{name: "agent starts with provisional float", role: "agent", wantBalance: 10000},
		{name: "admin starts with zero balance", role: "admin", wantBalance: 0},
		{name: "rejects unknown role", role: "superuser", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &registerRepoStub{}
			svc, _ := newTestService(repo)

			id, err := svc.Register(context.Background(), domain.RegisterRequest{
				Name:         "Test Account",
				PIN:          "12345",
				MobileNumber: "01700000001",
				Email:        "test@example.com",
				Role:         tt.role,
			})
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got account %s", id)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.created == nil {
				t.Fatal("expected account to be created")
			}
			if repo.created.Status != domain.StatusPending {
				t.Fatalf("expected pending status, got %q", repo.created.Status)
			}
			if repo.created.Balance != tt.wantBalance {
				t.Fatalf("expected balance %d, got %d", tt.wantBalance, repo.created.Balance)
			}
			if repo.created.SecretHash == "12345" || repo.created.SecretHash == "" {
				t.Fatal("expected PIN to be stored as a hash")
			}
		})
	}
}

func TestRegister_PropagatesDuplicateAccount(t *testing.T) {
	repo := &registerRepoStub{createErr: store.ErrDuplicateAccount}
	svc, _ := newTestService(repo)

	_, err := svc.Register(context.Background(), domain.RegisterRequest{
		Name: "Dup", PIN: "12345", MobileNumber: "01700000001", Email: "dup@example.com", Role: "user",
	})
	if !errors.Is(err, store.ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

type loginRepoStub struct {
	store.Repository

	account *domain.Account
	findErr error
}

func (s *loginRepoStub) FindAccountByIdentifier(ctx context.Context, mobileOrEmail string) (*domain.Account, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.account, nil
}

func TestLogin(t *testing.T) {
	accountID := uuid.New()
	repo := &loginRepoStub{account: &domain.Account{
		ID:         accountID,
		SecretHash: hashPIN(t, "12345"),
	}}
	svc, _ := newTestService(repo)

	t.Run("issues token for valid PIN", func(t *testing.T) {
		token, err := svc.Login(context.Background(), domain.LoginRequest{MobileOrEmail: "01700000001", PIN: "12345"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := svc.tokens.Verify(token)
		if err != nil {
			t.Fatalf("issued token failed verification: %v", err)
		}
		if got != accountID {
			t.Fatalf("expected token subject %s, got %s", accountID, got)
		}
	})

	t.Run("rejects wrong PIN", func(t *testing.T) {
		_, err := svc.Login(context.Background(), domain.LoginRequest{MobileOrEmail: "01700000001", PIN: "99999"})
		if !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("expected ErrInvalidCredential, got %v", err)
		}
	})

	t.Run("propagates unknown identifier", func(t *testing.T) {
		repo := &loginRepoStub{findErr: store.ErrAccountNotFound}
		svc, _ := newTestService(repo)
		_, err := svc.Login(context.Background(), domain.LoginRequest{MobileOrEmail: "nobody", PIN: "12345"})
		if !errors.Is(err, store.ErrAccountNotFound) {
			t.Fatalf("expected ErrAccountNotFound, got %v", err)
		}
	})
}

type transferRepoStub struct {
	store.Repository

	accounts map[uuid.UUID]*domain.Account
	byMobile map[string]*domain.Account

	transferParams *store.TransferParams
	transferErr    error
}

func (s *transferRepoStub) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (s *transferRepoStub) FindAccountByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error) {
	account, ok := s.byMobile[mobile]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (s *transferRepoStub) FindAgentByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error) {
	account, ok := s.byMobile[mobile]
	if !ok || account.Role != domain.RoleAgent {
		return nil, store.ErrAgentNotFound
	}
	return account, nil
}

func (s *transferRepoStub) TransferBetween(ctx context.Context, p store.TransferParams) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	s.transferParams = &p
	return nil
}

func newTransferRepoStub(t *testing.T, senderBalance int64) (*transferRepoStub, uuid.UUID, uuid.UUID) {
	t.Helper()
	senderID := uuid.New()
	recipientID := uuid.New()
	sender := &domain.Account{
		ID:         senderID,
		Role:       domain.RoleUser,
		Balance:    senderBalance,
		SecretHash: hashPIN(t, "12345"),
	}
	recipient := &domain.Account{
		ID:           recipientID,
		MobileNumber: "01800000002",
		Role:         domain.RoleUser,
	}
	agent := &domain.Account{
		ID:           uuid.New(),
		MobileNumber: "01900000003",
		Role:         domain.RoleAgent,
		Balance:      100000,
	}
	return &transferRepoStub{
		accounts: map[uuid.UUID]*domain.Account{senderID: sender, recipientID: recipient, agent.ID: agent},
		byMobile: map[string]*domain.Account{recipient.MobileNumber: recipient, agent.MobileNumber: agent},
	}, senderID, recipientID
}

func TestSendMoney(t *testing.T) {
	tests := []struct {
		name          string
		senderBalance int64
		amount        int64
		pin           string
		wantErr       error
		wantDebit     int64
		wantCredit    int64
		wantRequired  int64
		wantFee       int64
	}{
		{
			name:          "below minimum is rejected",
			senderBalance: 1000,
			amount:        49,
			pin:           "12345",
			wantErr:       ErrInvalidAmount,
		},
		{
			name:          "at fee threshold no fee applies",
			senderBalance: 1000,
			amount:        100,
			pin:           "12345",
			wantDebit:     100,
			wantCredit:    100,
			wantRequired:  100,
			wantFee:       0,
		},
		{
			name:          "above fee threshold flat fee applies",
			senderBalance: 1000,
			amount:        101,
			pin:           "12345",
			wantDebit:     106,
			wantCredit:    101,
			wantRequired:  101,
			wantFee:       5,
		},
		{
			name:          "funds check is against the amount alone",
			senderBalance: 120,
			amount:        120,
			pin:           "12345",
			wantDebit:     125,
			wantCredit:    120,
			wantRequired:  120,
			wantFee:       5,
		},
		{
			name:          "insufficient balance is rejected",
			senderBalance: 100,
			amount:        200,
			pin:           "12345",
			wantErr:       store.ErrInsufficientFunds,
		},
		{
			name:          "wrong PIN is rejected",
			senderBalance: 1000,
			amount:        100,
			pin:           "99999",
			wantErr:       ErrInvalidCredential,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, senderID, recipientID := newTransferRepoStub(t, tt.senderBalance)
			svc, events := newTestService(repo)

			receipt, err := svc.SendMoney(context.Background(), senderID, domain.SendMoneyRequest{
				RecipientMobile: "01800000002",
				Amount:          tt.amount,
				PIN:             tt.pin,
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if repo.transferParams != nil {
					t.Fatal("expected no transfer to be attempted")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			p := repo.transferParams
			if p == nil {
				t.Fatal("expected a transfer to run")
			}
			if p.SenderID != senderID || p.RecipientID != recipientID {
				t.Fatalf("unexpected transfer parties: %+v", p)
			}
			if p.DebitAmount != tt.wantDebit || p.CreditAmount != tt.wantCredit || p.RequiredBalance != tt.wantRequired {
				t.Fatalf("expected debit=%d credit=%d required=%d, got %+v", tt.wantDebit, tt.wantCredit, tt.wantRequired, p)
			}
			if receipt.Fee != tt.wantFee {
				t.Fatalf("expected fee %d, got %d", tt.wantFee, receipt.Fee)
			}
			if len(events.routingKeys) != 1 || events.routingKeys[0] != rabbitmq.RouteTransferSent {
				t.Fatalf("expected one %s event, got %v", rabbitmq.RouteTransferSent, events.routingKeys)
			}
		})
	}
}

func TestSendMoney_UnknownRecipient(t *testing.T) {
	repo, senderID, _ := newTransferRepoStub(t, 1000)
	svc, _ := newTestService(repo)

	_, err := svc.SendMoney(context.Background(), senderID, domain.SendMoneyRequest{
		RecipientMobile: "00000000000",
		Amount:          100,
		PIN:             "12345",
	})
	if !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCashOut(t *testing.T) {
	tests := []struct {
		name          string
		senderBalance int64
		amount        int64
		agentMobile   string
		wantErr       error
		wantDebit     int64
		wantFee       int64
	}{
		{
			name:          "charges percentage fee",
			senderBalance: 10000,
			amount:        1000,
			agentMobile:   "01900000003",
			wantDebit:     1015,
			wantFee:       15,
		},
		{
			name:          "fee rounds half up",
			senderBalance: 10000,
			amount:        100,
			agentMobile:   "01900000003",
			wantDebit:     102,
			wantFee:       2,
		},
		{
			name:          "rejects non-positive amount",
			senderBalance: 10000,
			amount:        0,
			agentMobile:   "01900000003",
			wantErr:       ErrInvalidAmount,
		},
		{
			name:          "rejects non-agent counterparty",
			senderBalance: 10000,
			amount:        1000,
			agentMobile:   "01800000002",
			wantErr:       store.ErrAgentNotFound,
		},
		{
			name:          "rejects insufficient balance",
			senderBalance: 500,
			amount:        1000,
			agentMobile:   "01900000003",
			wantErr:       store.ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, senderID, _ := newTransferRepoStub(t, tt.senderBalance)
			svc, _ := newTestService(repo)

			receipt, err := svc.CashOut(context.Background(), senderID, domain.CashOutRequest{
				AgentMobile: tt.agentMobile,
				Amount:      tt.amount,
				PIN:         "12345",
			})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			p := repo.transferParams
			if p == nil {
				t.Fatal("expected a transfer to run")
			}
			if p.DebitAmount != tt.wantDebit {
				t.Fatalf("expected debit %d, got %d", tt.wantDebit, p.DebitAmount)
			}
			if receipt.Fee != tt.wantFee {
				t.Fatalf("expected fee %d, got %d", tt.wantFee, receipt.Fee)
			}
		})
	}
}

type adminRepoStub struct {
	store.Repository

	accounts map[uuid.UUID]*domain.Account

	activatedID    uuid.UUID
	activatedGrant int64
	listCalled     bool
}

func (s *adminRepoStub) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (s *adminRepoStub) ActivateAccount(ctx context.Context, id uuid.UUID, grant int64) error {
	s.activatedID = id
	s.activatedGrant = grant
	return nil
}

func (s *adminRepoStub) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.listCalled = true
	return nil, nil
}

func (s *adminRepoStub) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return nil, nil
}

func TestApproveAccount(t *testing.T) {
	adminID := uuid.New()
	userID := uuid.New()
	agentID := uuid.New()
	repo := &adminRepoStub{accounts: map[uuid.UUID]*domain.Account{
		adminID: {ID: adminID, Role: domain.RoleAdmin},
		userID:  {ID: userID, Role: domain.RoleUser, Status: domain.StatusPending, Balance: 0},
		agentID: {ID: agentID, Role: domain.RoleAgent, Status: domain.StatusPending, Balance: 10000},
	}}
	svc, events := newTestService(repo)

	tests := []struct {
		name      string
		targetID  uuid.UUID
		wantGrant int64
	}{
		{name: "user activation grants bonus", targetID: userID, wantGrant: 40},
		{name: "agent activation overwrites provisional float", targetID: agentID, wantGrant: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ApproveAccount(context.Background(), adminID, tt.targetID); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.activatedID != tt.targetID {
				t.Fatalf("expected activation of %s, got %s", tt.targetID, repo.activatedID)
			}
			if repo.activatedGrant != tt.wantGrant {
				t.Fatalf("expected grant %d, got %d", tt.wantGrant, repo.activatedGrant)
			}
		})
	}

	if len(events.routingKeys) != 2 {
		t.Fatalf("expected two approval events, got %v", events.routingKeys)
	}
	for _, key := range events.routingKeys {
		if key != rabbitmq.RouteAccountApproved {
			t.Fatalf("expected %s event, got %s", rabbitmq.RouteAccountApproved, key)
		}
	}
}

func TestAdminGate(t *testing.T) {
	adminID := uuid.New()
	userID := uuid.New()
	repo := &adminRepoStub{accounts: map[uuid.UUID]*domain.Account{
		adminID: {ID: adminID, Role: domain.RoleAdmin},
		userID:  {ID: userID, Role: domain.RoleUser},
	}}
	svc, _ := newTestService(repo)

	t.Run("non-admin cannot list accounts", func(t *testing.T) {
		if _, err := svc.ListAccounts(context.Background(), userID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
		if repo.listCalled {
			t.Fatal("expected no repository call for denied caller")
		}
	})

	t.Run("non-admin cannot approve accounts", func(t *testing.T) {
		if err := svc.ApproveAccount(context.Background(), userID, adminID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("non-admin cannot read system ledger", func(t *testing.T) {
		if _, err := svc.SystemTransactions(context.Background(), userID); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown caller is denied, not surfaced as missing", func(t *testing.T) {
		if _, err := svc.ListAccounts(context.Background(), uuid.New()); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("admin can list accounts", func(t *testing.T) {
		if _, err := svc.ListAccounts(context.Background(), adminID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !repo.listCalled {
			t.Fatal("expected repository list call")
		}
	})
}

type cashInRepoStub struct {
	store.Repository

	accounts map[uuid.UUID]*domain.Account
	byMobile map[string]*domain.Account

	created    *domain.CashInRequest
	approved   *domain.CashInRequest
	approveErr error

	approvedRequestID uuid.UUID
	approvedAgentID   uuid.UUID
}

func (s *cashInRepoStub) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, store.ErrAccountNotFound
	}
	return account, nil
}

func (s *cashInRepoStub) FindAgentByMobileNumber(ctx context.Context, mobile string) (*domain.Account, error) {
	account, ok := s.byMobile[mobile]
	if !ok || account.Role != domain.RoleAgent {
		return nil, store.ErrAgentNotFound
	}
	return account, nil
}

func (s *cashInRepoStub) CreateCashInRequest(ctx context.Context, req *domain.CashInRequest) error {
	s.created = req
	return nil
}

func (s *cashInRepoStub) ListPendingCashInRequests(ctx context.Context, agentID uuid.UUID) ([]domain.CashInRequest, error) {
	return nil, nil
}

func (s *cashInRepoStub) ApproveCashInRequest(ctx context.Context, requestID, agentID uuid.UUID) (*domain.CashInRequest, error) {
	s.approvedRequestID = requestID
	s.approvedAgentID = agentID
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return s.approved, nil
}

func newCashInRepoStub(t *testing.T) (*cashInRepoStub, uuid.UUID, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	agentID := uuid.New()
	user := &domain.Account{
		ID:           userID,
		Role:         domain.RoleUser,
		MobileNumber: "01700000001",
		Email:        "user@example.com",
	}
	agent := &domain.Account{
		ID:           agentID,
		Role:         domain.RoleAgent,
		MobileNumber: "01900000003",
		Email:        "agent@example.com",
	}
	return &cashInRepoStub{
		accounts: map[uuid.UUID]*domain.Account{userID: user, agentID: agent},
		byMobile: map[string]*domain.Account{agent.MobileNumber: agent},
	}, userID, agentID
}

func TestCreateCashInRequest(t *testing.T) {
	repo, userID, agentID := newCashInRepoStub(t)
	svc, _ := newTestService(repo)

	t.Run("creates pending request with party snapshot", func(t *testing.T) {
		id, err := svc.CreateCashInRequest(context.Background(), userID, domain.CreateCashInRequest{
			AgentMobile: "01900000003",
			Amount:      500,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		req := repo.created
		if req == nil || req.ID != id {
			t.Fatal("expected request to be created")
		}
		if req.Status != domain.CashInStatusPending {
			t.Fatalf("expected pending status, got %q", req.Status)
		}
		if req.UserID != userID || req.AgentID != agentID {
			t.Fatalf("unexpected request parties: %+v", req)
		}
		if req.UserMobileNumber != "01700000001" || req.AgentMobile != "01900000003" {
			t.Fatalf("expected party contact snapshot, got %+v", req)
		}
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		_, err := svc.CreateCashInRequest(context.Background(), userID, domain.CreateCashInRequest{
			AgentMobile: "01900000003",
			Amount:      0,
		})
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})

	t.Run("rejects unknown agent", func(t *testing.T) {
		_, err := svc.CreateCashInRequest(context.Background(), userID, domain.CreateCashInRequest{
			AgentMobile: "00000000000",
			Amount:      500,
		})
		if !errors.Is(err, store.ErrAgentNotFound) {
			t.Fatalf("expected ErrAgentNotFound, got %v", err)
		}
	})
}

func TestApproveCashIn(t *testing.T) {
	t.Run("agent settles addressed request", func(t *testing.T) {
		repo, userID, agentID := newCashInRepoStub(t)
		requestID := uuid.New()
		repo.approved = &domain.CashInRequest{
			ID:      requestID,
			UserID:  userID,
			AgentID: agentID,
			Amount:  500,
			Status:  domain.CashInStatusApproved,
		}
		svc, events := newTestService(repo)

		request, err := svc.ApproveCashIn(context.Background(), agentID, requestID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if request.Status != domain.CashInStatusApproved {
			t.Fatalf("expected approved status, got %q", request.Status)
		}
		if repo.approvedRequestID != requestID || repo.approvedAgentID != agentID {
			t.Fatalf("unexpected approval scoping: request=%s agent=%s", repo.approvedRequestID, repo.approvedAgentID)
		}
		if len(events.routingKeys) != 1 || events.routingKeys[0] != rabbitmq.RouteCashInApproved {
			t.Fatalf("expected one %s event, got %v", rabbitmq.RouteCashInApproved, events.routingKeys)
		}
	})

	t.Run("non-agent is denied", func(t *testing.T) {
		repo, userID, _ := newCashInRepoStub(t)
		svc, _ := newTestService(repo)

		_, err := svc.ApproveCashIn(context.Background(), userID, uuid.New())
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("already settled request surfaces as not found", func(t *testing.T) {
		repo, _, agentID := newCashInRepoStub(t)
		repo.approveErr = store.ErrCashInRequestNotFound
		svc, events := newTestService(repo)

		_, err := svc.ApproveCashIn(context.Background(), agentID, uuid.New())
		if !errors.Is(err, store.ErrCashInRequestNotFound) {
			t.Fatalf("expected ErrCashInRequestNotFound, got %v", err)
		}
		if len(events.routingKeys) != 0 {
			t.Fatalf("expected no events on failed approval, got %v", events.routingKeys)
		}
	})
}

type limiterStub struct {
	count int
	err   error
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if l.err != nil {
		return 0, 0, l.err
	}
	return l.count, 1, nil
}

func TestSendMoney_RateLimit(t *testing.T) {
	t.Run("over the limit is rejected", func(t *testing.T) {
		repo, senderID, _ := newTransferRepoStub(t, 1000)
		svc, _ := newTestService(repo)
		svc.SetRateLimiter(&limiterStub{count: 31}, 30)

		_, err := svc.SendMoney(context.Background(), senderID, domain.SendMoneyRequest{
			RecipientMobile: "01800000002", Amount: 100, PIN: "12345",
		})
		if !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected ErrRateLimited, got %v", err)
		}
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		repo, senderID, _ := newTransferRepoStub(t, 1000)
		svc, _ := newTestService(repo)
		svc.SetRateLimiter(&limiterStub{err: errors.New("redis down")}, 30)

		if _, err := svc.SendMoney(context.Background(), senderID, domain.SendMoneyRequest{
			RecipientMobile: "01800000002", Amount: 100, PIN: "12345",
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestFeePolicy(t *testing.T) {
	policy := DefaultFeePolicy()

	t.Run("send money fee", func(t *testing.T) {
		tests := []struct {
			amount int64
			want   int64
		}{
			{amount: 50, want: 0},
			{amount: 100, want: 0},
			{amount: 101, want: 5},
			{amount: 100000, want: 5},
		}
		for _, tt := range tests {
			if got := policy.SendMoneyFee(tt.amount); got != tt.want {
				t.Fatalf("SendMoneyFee(%d): expected %d, got %d", tt.amount, tt.want, got)
			}
		}
	})

	t.Run("cash out fee", func(t *testing.T) {
		tests := []struct {
			amount int64
			want   int64
		}{
			{amount: 1, want: 0},
			{amount: 100, want: 2},
			{amount: 1000, want: 15},
			{amount: 333, want: 5},
			{amount: 10000, want: 150},
		}
		for _, tt := range tests {
			if got := policy.CashOutFee(tt.amount); got != tt.want {
				t.Fatalf("CashOutFee(%d): expected %d, got %d", tt.amount, tt.want, got)
			}
		}
	})
}
