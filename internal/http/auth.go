package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/policy"
)

// Authenticate resolves the acting identity from a bearer token minted by the
// upstream auth service. Requests without a valid token proceed as anonymous;
// each handler decides what anonymous callers may do.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := actorFromHeader(r.Header.Get("Authorization"), secret)
			next.ServeHTTP(w, r.WithContext(policy.WithActor(r.Context(), actor)))
		})
	}
}

func actorFromHeader(header, secret string) policy.Actor {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || secret == "" {
		return policy.Actor{}
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return policy.Actor{}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return policy.Actor{}
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return policy.Actor{}
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return policy.Actor{}
	}

	email, _ := claims["email"].(string)

	return policy.Actor{ID: id, Email: email}
}
