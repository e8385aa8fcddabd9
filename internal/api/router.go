/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/paywave/ledger-service/internal/app"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, tokens *app.TokenManager) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Public endpoints.
	r.Post("/register", h.RegisterHandler)
	r.Post("/login", h.LoginHandler)
	r.Get("/users/{email}", h.GetAccountByEmailHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(tokens))

		r.Get("/profile", h.ProfileHandler)
		r.Get("/balance", h.BalanceHandler)
		r.Post("/send-money", h.SendMoneyHandler)
		r.Post("/cash-out", h.CashOutHandler)

		// Cash-in workflow endpoints
		r.Post("/cash-in-request", h.CreateCashInRequestHandler)
		r.Get("/cash-in-requests", h.PendingCashInHandler)
		r.Post("/approve-cash-in", h.ApproveCashInHandler)

		r.Get("/user-transactions/{mobileNumber}", h.UserTransactionsHandler)

		// Admin endpoints; role checks run in the service layer.
		r.Get("/admin/users", h.ListAccountsHandler)
		r.Post("/admin/approve", h.ApproveAccountHandler)
		r.Get("/system-transactions", h.SystemTransactionsHandler)
	})

	return r
}
