package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"sunquote/backend/services/quote-service/internal/models"
)

type contextKey string

const staffKey contextKey = "staff"

// Staff roles allowed to use privileged quote options.
var staffRoles = map[string]bool{"staff": true, "admin": true}

// Staff identifies an authenticated staff member.
type Staff struct {
	ID   string
	Role string
}

// Chain applies middlewares in order.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// StaffAuth validates an optional bearer token. Requests without one pass through
// anonymously; a present but invalid token is rejected.
func StaffAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeUnauthorized(w, "invalid authorization header")
				return
			}
			if secret == "" {
				writeUnauthorized(w, "token authentication disabled")
				return
			}

			token, err := jwt.Parse(strings.TrimSpace(parts[1]), func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenInvalidClaims
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeUnauthorized(w, "invalid token")
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeUnauthorized(w, "invalid token claims")
				return
			}

			staff, ok := extractStaff(claims)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithStaff(r.Context(), staff)))
		})
	}
}

func extractStaff(claims jwt.MapClaims) (Staff, bool) {
	role, _ := claims["role"].(string)
	role = strings.ToLower(strings.TrimSpace(role))
	if !staffRoles[role] {
		return Staff{}, false
	}
	var id string
	switch v := claims["sub"].(type) {
	case string:
		id = v
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}
	return Staff{ID: id, Role: role}, true
}

// WithStaff marks the context as belonging to a staff member.
func WithStaff(ctx context.Context, staff Staff) context.Context {
	return context.WithValue(ctx, staffKey, staff)
}

// StaffFromContext returns the authenticated staff member, if any.
func StaffFromContext(ctx context.Context) (Staff, bool) {
	staff, ok := ctx.Value(staffKey).(Staff)
	return staff, ok
}

// AuthorizeQuote rejects privileged options on anonymous requests.
func AuthorizeQuote(ctx context.Context, req models.QuoteRequest) error {
	if req.CommissionMarginOverride == nil {
		return nil
	}
	if _, ok := StaffFromContext(ctx); ok {
		return nil
	}
	return fmt.Errorf("commission override requires staff credentials: %w", models.ErrForbidden)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, "{\"error\":%q}\n", message)
}
