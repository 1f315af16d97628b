package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, expired or mis-signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUserNotAllowed is returned for valid tokens of unknown users.
	ErrUserNotAllowed = errors.New("user not allowed")
)

// Claims carries the authenticated user's mail address.
type Claims struct {
	jwt.RegisteredClaims

	Mail string `json:"mail"`
}

// Verifier validates bearer tokens and checks the user against the
// configured allow list.
type Verifier struct {
	secret  []byte
	allowed map[string]struct{}
}

// NewVerifier creates a verifier. allowedUsers is the comma-separated list
// from configuration.
func NewVerifier(secret string, allowedUsers string) *Verifier {
	allowed := make(map[string]struct{})

	for _, user := range strings.Split(allowedUsers, ",") {
		user = strings.TrimSpace(user)
		if user != "" {
			allowed[strings.ToLower(user)] = struct{}{}
		}
	}

	return &Verifier{
		secret:  []byte(secret),
		allowed: allowed,
	}
}

// Verify parses and validates a token and returns the user's mail.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Mail == "" {
		return "", ErrInvalidToken
	}

	if _, ok := v.allowed[strings.ToLower(claims.Mail)]; !ok {
		return "", ErrUserNotAllowed
	}

	return claims.Mail, nil
}

// IssueToken signs a token for a user. Used by the keygen command.
func IssueToken(secret, mail string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Mail: mail,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

type userKey struct{}

// ContextWithUser stores the authenticated user's mail in the context.
func ContextWithUser(ctx context.Context, mail string) context.Context {
	return context.WithValue(ctx, userKey{}, mail)
}

// UserFromContext returns the authenticated user's mail, if any.
func UserFromContext(ctx context.Context) string {
	if mail, ok := ctx.Value(userKey{}).(string); ok {
		return mail
	}

	return ""
}

// Middleware authorizes every admin operation as early as possible in the
// request lifecycle.
func Middleware(api huma.API, verifier *Verifier) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		header := ctx.Header("Authorization")

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "missing bearer token")

			return
		}

		mail, err := verifier.Verify(token)
		if err != nil {
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "unauthorized", err)

			return
		}

		next(huma.WithContext(ctx, ContextWithUser(ctx.Context(), mail)))
	}
}
