// Package tenant resolves the organization an authenticated request is
// scoped to. The surrounding platform issues the tokens; this middleware
// only extracts and verifies the organization claim.
package tenant

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey struct{}

// Middleware verifies the bearer token and stores the org_id claim in
// the request context. Requests without a valid organization are
// rejected before any handler runs.
func Middleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}

			_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}

				return secret, nil
			})
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			orgClaim, _ := claims["org_id"].(string)

			orgID, err := uuid.Parse(orgClaim)
			if err != nil {
				http.Error(w, "invalid organization claim", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOrgID(r.Context(), orgID)))
		})
	}
}

func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, orgID)
}

// OrgID returns the organization the request is scoped to.
func OrgID(ctx context.Context) (uuid.UUID, bool) {
	orgID, ok := ctx.Value(ctxKey{}).(uuid.UUID)

	return orgID, ok
}
