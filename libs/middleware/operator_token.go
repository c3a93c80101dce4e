package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"
)

type bearerTokenKey struct{}

// OperatorTokens is the set of credentials accepted on operator-only
// endpoints, loaded from OPERATOR_TOKENS as a comma separated list.
var OperatorTokens = splitTokens(os.Getenv("OPERATOR_TOKENS"))

func splitTokens(raw string) []string {
	tokens := []string{}
	for _, token := range strings.Split(raw, ",") {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// BearerToken pulls the bearer token out of the Authorization header and
// stores it on the request context for guards further down the chain.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string

		bearer := r.Header.Get("Authorization")
		if len(bearer) > 7 && strings.EqualFold(bearer[0:7], "bearer ") {
			token = bearer[7:]
		}
		ctx := context.WithValue(r.Context(), bearerTokenKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isOperatorToken(list []string, token string) bool {
	if token == "" {
		return false
	}
	for _, valid := range list {
		// NOTE token length information is leaked even with subtle.ConstantTimeCompare
		if subtle.ConstantTimeCompare([]byte(valid), []byte(token)) == 1 {
			return true
		}
	}
	return false
}

func operatorInContext(ctx context.Context) bool {
	token, ok := ctx.Value(bearerTokenKey{}).(string)
	return ok && isOperatorToken(OperatorTokens, token)
}

// OperatorAuthorizedOnly restricts a handler to requests carrying one of the
// configured operator tokens. When OPERATOR_TOKENS is unset the guard lets
// everything through, local stacks do not mint credentials.
// NOTE the token is populated onto the context by BearerToken
func OperatorAuthorizedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(OperatorTokens) > 0 && !operatorInContext(r.Context()) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
