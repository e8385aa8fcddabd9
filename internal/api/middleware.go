/**
 * @description
 * This file contains custom middleware for the HTTP router. Middlewares are used
 * to process requests before they reach the final handler, perfect for tasks like
 * authentication, logging, or adding context to a request.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - internal/app: For bearer token verification.
 */

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/paywave/ledger-service/internal/app"
)

// AccountIDContextKey is a custom type for the context key to avoid collisions.
type AccountIDContextKey string

const accountIDKey AccountIDContextKey = "accountID"

// AuthMiddleware creates a middleware that validates bearer tokens issued at
// login and places the account id in the request context.
func AuthMiddleware(tokens *app.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Get the Authorization header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			// Extract the token from "Bearer <token>"
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			accountID, err := tokens.Verify(tokenString)
			if err != nil {
				http.Error(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			// Add the account ID to the request context
			ctx := context.WithValue(r.Context(), accountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccountID retrieves the authenticated account ID from the request context.
// Handlers should use this function to get the caller's identity.
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	accountID, ok := ctx.Value(accountIDKey).(uuid.UUID)
	return accountID, ok
}
