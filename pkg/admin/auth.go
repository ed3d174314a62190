package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
)

// tokenValidator holds SHA-256 digests of the accepted bearer tokens so
// comparisons run in constant time regardless of token length.
type tokenValidator struct {
	digests [][sha256.Size]byte
}

func newTokenValidator(tokens []string) *tokenValidator {
	v := &tokenValidator{}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		v.digests = append(v.digests, sha256.Sum256([]byte(tok)))
	}
	return v
}

// Enabled reports whether any token is configured.
func (v *tokenValidator) Enabled() bool {
	return len(v.digests) > 0
}

// Validate reports whether tok matches a configured token.
func (v *tokenValidator) Validate(tok string) bool {
	sum := sha256.Sum256([]byte(tok))
	ok := 0
	for i := range v.digests {
		ok |= subtle.ConstantTimeCompare(sum[:], v.digests[i][:])
	}
	return ok == 1
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}

// authMiddleware rejects requests without a valid bearer token. It passes
// everything through when no tokens are configured.
func authMiddleware(v *tokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !v.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok || !v.Validate(tok) {
				logger.WarnContext(r.Context(), "admin request rejected",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"token_present", ok,
				)
				w.Header().Set("WWW-Authenticate", `Bearer realm="webserv-admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
