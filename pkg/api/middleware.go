package api

import (
	"fmt"
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

// validateAuthUsers checks that every configured password is a bcrypt
// hash so a misconfigured plaintext password fails at startup, not on
// first login.
func (s *server) validateAuthUsers() error {
	for _, user := range s.cfg.Auth.Users {
		if _, err := bcrypt.Cost([]byte(user.Password)); err != nil {
			return fmt.Errorf("auth user %q: password is not a bcrypt hash: %w",
				user.Username, err)
		}
	}

	return nil
}

// basicAuth enforces HTTP basic authentication against the configured
// users. Passwords in config are bcrypt hashes.
func (s *server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="benchstand"`)
			writeJSON(w, http.StatusUnauthorized,
				errorResponse{"authentication required"})

			return
		}

		for _, user := range s.cfg.Auth.Users {
			if user.Username != username {
				continue
			}

			if bcrypt.CompareHashAndPassword(
				[]byte(user.Password), []byte(password),
			) == nil {
				next.ServeHTTP(w, r)

				return
			}

			break
		}

		w.Header().Set("WWW-Authenticate", `Basic realm="benchstand"`)
		writeJSON(w, http.StatusUnauthorized,
			errorResponse{"invalid credentials"})
	})
}
