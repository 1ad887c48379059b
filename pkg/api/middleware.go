package api

import (
	"crypto/subtle"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// requestLogger logs incoming HTTP requests.
func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		s.log.WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("remote", r.RemoteAddr).
			WithField("duration", time.Since(start)).
			Debug("Request handled")
	})
}

// adminAuth guards mutating endpoints with HTTP basic auth checked
// against the configured bcrypt hash.
func (s *server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || !s.checkAdminCredentials(username, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="crossbench"`)
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"authentication required"})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *server) checkAdminCredentials(username, password string) bool {
	if subtle.ConstantTimeCompare(
		[]byte(username), []byte(s.cfg.Admin.Username),
	) != 1 {
		return false
	}

	return bcrypt.CompareHashAndPassword(
		[]byte(s.cfg.Admin.PasswordBcrypt), []byte(password),
	) == nil
}
