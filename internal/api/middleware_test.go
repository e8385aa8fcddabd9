package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paywave/ledger-service/internal/app"
)

func TestAuthMiddleware(t *testing.T) {
	tokens := app.NewTokenManager("test-secret", time.Hour)
	accountID := uuid.New()
	validToken, err := tokens.Issue(accountID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	var gotID uuid.UUID
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = GetAccountID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(tokens)(next)

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{name: "missing header", authHeader: "", wantStatus: http.StatusUnauthorized},
		{name: "malformed header", authHeader: "Token abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer garbage", wantStatus: http.StatusUnauthorized},
		{name: "valid token", authHeader: "Bearer " + validToken, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotID, gotOK = uuid.Nil, false

			req := httptest.NewRequest(http.MethodGet, "/balance", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK {
				if !gotOK {
					t.Fatal("expected account ID in request context")
				}
				if gotID != accountID {
					t.Fatalf("expected account ID %s, got %s", accountID, gotID)
				}
			}
		})
	}
}

func TestGetAccountID_MissingFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	if _, ok := GetAccountID(req.Context()); ok {
		t.Fatal("expected no account ID in a bare context")
	}
}
