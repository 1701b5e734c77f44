package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

const LoginPath = "/auth/login"

// Session resolves the session cookie, if any, and stores the caller on the
// request context. It never rejects a request. Extended sessions get a
// fresh cookie.
func (s *Service) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.TokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)

			return
		}

		id, err := s.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, model.ErrUnauthorized) {
				logging.FromContext(r.Context()).Errorw("authenticate", "error", err)
			}
			next.ServeHTTP(w, r)

			return
		}

		if id.Refreshed {
			http.SetCookie(w, s.Cookie(id))
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireSession answers 401 when the request carries no valid session.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			if err := render.Render(w, r, errresponse.ErrUnauthorized); err != nil {
				logging.FromContext(r.Context()).Errorw(err.Error())
			}

			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequirePageSession redirects anonymous visitors to the login page.
func RequirePageSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			http.Redirect(w, r, LoginPath, http.StatusFound)

			return
		}

		next.ServeHTTP(w, r)
	})
}
