package identity

import (
	"errors"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireSession rejects requests without a valid bearer token. onFail
// writes the 401 response; the error is ErrUnauthenticated or wraps it.
func RequireSession(v Verifier, onFail func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r)
			if !ok {
				onFail(w, r, ErrUnauthenticated)
				return
			}
			s, err := v.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrUnauthenticated) {
					err = errors.Join(ErrUnauthenticated, err)
				}
				onFail(w, r, err)
				return
			}
			s.Token = token
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
		})
	}
}
