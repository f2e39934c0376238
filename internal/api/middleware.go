package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/npezzotti/go-codecollab/internal/types"
)

func (s *CollabApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Printf("panic: %v", panicError)
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// identityMiddleware attaches the request's principal to its context. A
// request without a token is anonymous when that is allowed; a bad token is
// always rejected.
func (s *CollabApp) identityMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var principal types.Principal

		tokenString, err := tokenFromRequest(r)
		switch {
		case errors.Is(err, errNoToken) && s.allowAnonymous:
			// anonymous
		case err != nil:
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		default:
			principal, err = s.principalFromToken(tokenString)
			if err != nil {
				s.log.Printf("failed to extract principal from token: %v", err)
				errResp := NewUnauthorizedError()
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}

		ctx := WithPrincipal(r.Context(), principal)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
