package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/docchat-go/internal/logging"
)

// authRealm is the realm advertised in WWW-Authenticate challenges.
const authRealm = `Bearer realm="docchat"`

// authMiddleware requires "Authorization: Bearer <apiKey>" on next.
// An empty apiKey disables auth; New warns about that once at startup.
// Token values are never logged.
func authMiddleware(apiKey string, next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		switch {
		case !ok:
			reject(w, r, authRealm, "authorization required", "missing bearer token")
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			reject(w, r, authRealm+` error="invalid_token"`, "invalid token", "invalid bearer token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// reject writes a 401 with the given challenge.
func reject(w http.ResponseWriter, r *http.Request, challenge, body, reason string) {
	logging.FromContext(r.Context()).Warn("auth: "+reason, slog.String("path", r.URL.Path))
	w.Header().Set("WWW-Authenticate", challenge)
	http.Error(w, body, http.StatusUnauthorized)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive. ok is false when the header is
// absent, uses another scheme, or carries an empty token.
func bearerToken(r *http.Request) (token string, ok bool) {
	scheme, rest, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(rest)
	return token, token != ""
}
