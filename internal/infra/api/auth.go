package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"qr-ticket-system/internal/domain"
	"qr-ticket-system/internal/domain/model"
	"qr-ticket-system/internal/infra/logging"
)

// ===== Session/JWT primitives =====

type AuthConfig struct {
	HMACSecret   []byte
	CookieName   string
	CookieDomain string
	SecureCookie bool
	TTL          time.Duration
}

type AuthManager struct{ cfg AuthConfig }

func NewAuthManager(secret string, secure bool, domain string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &AuthManager{cfg: AuthConfig{
		HMACSecret:   []byte(secret),
		CookieName:   "staff_session",
		CookieDomain: domain, // "" keeps the cookie host-only
		SecureCookie: secure,
		TTL:          ttl,
	}}
}

type StaffClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Mint signs a session for the account and sets it as an HttpOnly cookie.
func (a *AuthManager) Mint(w http.ResponseWriter, acc *model.StaffAccount) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(a.cfg.TTL)
	claims := StaffClaims{
		Role: string(acc.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Subject:   acc.Username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.cfg.HMACSecret)
	if err != nil {
		return "", time.Time{}, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    signed,
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   int(a.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	return signed, exp, nil
}

func (a *AuthManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

var errMissingToken = errors.New("missing token")

func (a *AuthManager) ParseFromRequest(r *http.Request) (*StaffClaims, error) {
	// Authorization: Bearer <jwt>
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		if len(hdr) > 7 && strings.EqualFold(hdr[:7], "bearer ") {
			return a.parse(strings.TrimSpace(hdr[7:]))
		}
	}
	if c, err := r.Cookie(a.cfg.CookieName); err == nil && c.Value != "" {
		return a.parse(c.Value)
	}
	return nil, errMissingToken
}

func (a *AuthManager) parse(tok string) (*StaffClaims, error) {
	claims := &StaffClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.cfg.HMACSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

type claimsKey struct{}

func claimsFrom(ctx context.Context) *StaffClaims {
	c, _ := ctx.Value(claimsKey{}).(*StaffClaims)
	return c
}

// RequireRole rejects requests without a valid session (401) or whose role
// is not in roles (403).
func (a *AuthManager) RequireRole(s *Server, roles ...model.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := a.ParseFromRequest(r)
			if err != nil {
				s.fail(w, r, domain.ErrUnauthorized)
				return
			}
			acc := &model.StaffAccount{Username: claims.Subject, Role: model.ParseRole(claims.Role)}
			if !acc.HasAnyRole(roles...) {
				s.fail(w, r, domain.ErrForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logging.WithStaff(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
