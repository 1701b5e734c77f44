package pages

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)

		return
	}

	h.render(w, r, http.StatusOK, "login", &view{Title: "Sign in"})
}

func (h *Handler) SubmitLogin(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{"email": strings.TrimSpace(r.PostFormValue("email"))}
	in := auth.SignInRequest{Email: form["email"], Password: r.PostFormValue("password")}

	id, err := h.auth.SignIn(r.Context(), in, clientMeta(r))
	if err != nil {
		var verr *model.ValidationError
		errs := map[string]string{}
		switch {
		case errors.As(err, &verr):
			errs = fieldErrors(verr)
		case errors.Is(err, auth.ErrInvalidCredentials):
			errs["form"] = "Invalid email or password"
		default:
			h.internalError(w, r, err)

			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, "login", &view{Title: "Sign in", Form: form, Errors: errs})

		return
	}

	http.SetCookie(w, h.auth.Cookie(id))
	redirect(w, r, "/dashboard", "success", "Welcome back, "+id.User.Name+"!")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if auth.UserFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)

		return
	}

	h.render(w, r, http.StatusOK, "register", &view{Title: "Register"})
}

func (h *Handler) SubmitRegister(w http.ResponseWriter, r *http.Request) {
	form := map[string]string{
		"name":  strings.TrimSpace(r.PostFormValue("name")),
		"email": strings.TrimSpace(r.PostFormValue("email")),
	}
	in := auth.SignUpRequest{Name: form["name"], Email: form["email"], Password: r.PostFormValue("password")}

	if repeat := r.PostFormValue("repeatPassword"); repeat != in.Password {
		errs := map[string]string{"repeatPassword": "Passwords do not match"}
		if repeat == "" {
			errs["repeatPassword"] = "Required Field"
		}
		h.render(w, r, http.StatusUnprocessableEntity, "register", &view{Title: "Register", Form: form, Errors: errs})

		return
	}

	id, err := h.auth.SignUp(r.Context(), in, clientMeta(r))
	if err != nil {
		var verr *model.ValidationError
		errs := map[string]string{}
		switch {
		case errors.As(err, &verr):
			errs = fieldErrors(verr)
		case errors.Is(err, model.ErrConflict):
			errs["email"] = "User already exists"
		default:
			h.internalError(w, r, err)

			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, "register", &view{Title: "Register", Form: form, Errors: errs})

		return
	}

	http.SetCookie(w, h.auth.Cookie(id))
	redirect(w, r, "/dashboard", "success", "Account created successfully!")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.auth.TokenFromRequest(r); token != "" {
		if err := h.auth.SignOut(r.Context(), token); err != nil {
			h.internalError(w, r, err)

			return
		}
	}

	http.SetCookie(w, h.auth.ClearCookie())
	redirect(w, r, auth.LoginPath, "success", "You have been logged out")
}

func clientMeta(r *http.Request) auth.ClientMeta {
	return auth.ClientMeta{IPAddress: auth.ClientIP(r), UserAgent: r.UserAgent()}
}
