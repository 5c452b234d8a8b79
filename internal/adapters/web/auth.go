package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"sme-billing/internal/core"
)

type authClaimsKey struct{}
type membershipKey struct{}

// AuthClaims holds the authenticated user's identity extracted from the JWT.
type AuthClaims struct {
	UserID string
	Email  string
}

// authFromContext returns the auth claims stored in ctx, or nil.
func authFromContext(ctx context.Context) *AuthClaims {
	v, _ := ctx.Value(authClaimsKey{}).(*AuthClaims)
	return v
}

// membershipFromContext returns the membership checked by RequireMembership, or nil.
func membershipFromContext(ctx context.Context) *core.Membership {
	v, _ := ctx.Value(membershipKey{}).(*core.Membership)
	return v
}

// jwtClaims is the access-token payload issued by the identity provider.
type jwtClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// bearerToken reads the token from the Authorization header, falling back to the
// auth_token cookie used by browser sessions.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// parseToken verifies an HS256 token and returns its claims. The subject is the user ID.
func (h *Handler) parseToken(raw string) (*AuthClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if h.jwtAudience != "" {
		opts = append(opts, jwt.WithAudience(h.jwtAudience))
	}
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return h.jwtSecret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &AuthClaims{UserID: claims.Subject, Email: claims.Email}, nil
}

// RequireAuth is chi middleware that validates the bearer token and injects
// AuthClaims into the request context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		claims, err := h.parseToken(raw)
		if err != nil {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), authClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireMembership rejects requests for a {companyID} the caller does not belong to.
// Must run after RequireAuth.
func (h *Handler) RequireMembership(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := authFromContext(r.Context())
		if claims == nil {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}
		companyID, err := strconv.Atoi(chi.URLParam(r, "companyID"))
		if err != nil || companyID <= 0 {
			writeError(w, r, "invalid company id", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		m, err := h.svc.CheckMembership(r.Context(), companyID, claims.UserID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), membershipKey{}, m)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// me handles GET /api/me: the caller's identity and companies.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := authFromContext(r.Context())
	companies, err := h.svc.ListMyCompanies(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	type meResponse struct {
		UserID    string            `json:"user_id"`
		Email     string            `json:"email"`
		Companies []core.Membership `json:"companies"`
	}
	writeJSON(w, meResponse{UserID: claims.UserID, Email: claims.Email, Companies: companies})
}
