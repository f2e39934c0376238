package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/go-codecollab/internal/types"
)

const (
	tokenCookieKey = "token"
	tokenQueryKey  = "token"
	bearerPrefix   = "Bearer "
)

const (
	userIdClaim = "user-id"
	nameClaim   = "name"
	expClaim    = "exp"
)

var errNoToken = errors.New("no token")

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p types.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (types.Principal, bool) {
	p, ok := ctx.Value(principalKey).(types.Principal)
	return p, ok
}

// tokenFromRequest looks for a token in the session cookie, then the
// Authorization header, then the query string. Browsers cannot set headers
// on a WebSocket handshake, hence the query fallback.
func tokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(tokenCookieKey); err == nil && c.Value != "" {
		return c.Value, nil
	}

	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimPrefix(h, bearerPrefix), nil
	}

	if t := r.URL.Query().Get(tokenQueryKey); t != "" {
		return t, nil
	}

	return "", errNoToken
}

func (s *CollabApp) verifyToken(tokenString string) (*jwt.Token, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return token, nil
}

func (s *CollabApp) principalFromToken(tokenString string) (types.Principal, error) {
	token, err := s.verifyToken(tokenString)
	if err != nil {
		return types.Principal{}, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.Principal{}, fmt.Errorf("invalid token claims")
	}

	var userId string
	switch id := claims[userIdClaim].(type) {
	case string:
		userId = id
	case float64:
		userId = strconv.FormatInt(int64(id), 10)
	}
	if userId == "" {
		return types.Principal{}, fmt.Errorf("invalid user id claim")
	}

	name, _ := claims[nameClaim].(string)
	return types.Principal{UserId: userId, Name: name}, nil
}
