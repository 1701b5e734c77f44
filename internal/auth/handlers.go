package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/model"
	"github.com/SergeyParamoshkin/blogcms/internal/userpayload"
)

// AuthResponse answers a successful sign-up or sign-in.
type AuthResponse struct {
	Token string                   `json:"token"`
	User  *userpayload.UserPayload `json:"user"`
}

func (a *AuthResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// SessionResponse is the body of get-session for a signed-in caller.
type SessionResponse struct {
	Session *model.Session           `json:"session"`
	User    *userpayload.UserPayload `json:"user"`
}

func (a *SessionResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type successResponse struct {
	Success bool `json:"success"`
}

func (a *successResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

var errInvalidCredentials = &errresponse.ErrResponse{
	HTTPStatusCode: http.StatusUnauthorized,
	StatusText:     "Unauthorized",
	Message:        "Invalid email or password",
}

// Handler serves the /auth API.
type Handler struct {
	svc     *Service
	limiter *RateLimiter
}

func NewHandler(svc *Service, limiter *RateLimiter) *Handler {
	return &Handler{svc: svc, limiter: limiter}
}

// Mount registers the auth routes on r. The Session middleware must
// already run on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.limiter.Handler)
			r.Post("/sign-up/email", h.SignUp)
			r.Post("/sign-in/email", h.SignIn)
		})
		r.Post("/sign-out", h.SignOut)
		r.Get("/get-session", h.GetSession)
	})
}

func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	data := &SignUpRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	id, err := h.svc.SignUp(r.Context(), *data, meta(r))
	if err != nil {
		h.renderErr(w, r, errresponse.FromError(err))

		return
	}

	h.signedIn(w, r, id)
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	data := &SignInRequest{}
	if err := render.Bind(r, data); err != nil {
		h.renderErr(w, r, errresponse.ErrInvalidRequest(err))

		return
	}

	id, err := h.svc.SignIn(r.Context(), *data, meta(r))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.renderErr(w, r, errInvalidCredentials)

			return
		}
		h.renderErr(w, r, errresponse.FromError(err))

		return
	}

	h.signedIn(w, r, id)
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := h.svc.TokenFromRequest(r); token != "" {
		if err := h.svc.SignOut(r.Context(), token); err != nil {
			h.renderErr(w, r, errresponse.ErrInternal(err))

			return
		}
	}

	http.SetCookie(w, h.svc.ClearCookie())
	h.render(w, r, &successResponse{Success: true})
}

// GetSession answers the caller's session or JSON null.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		render.JSON(w, r, nil)

		return
	}

	h.render(w, r, &SessionResponse{Session: id.Session, User: userpayload.NewUserPayloadResponse(id.User)})
}

func (h *Handler) signedIn(w http.ResponseWriter, r *http.Request, id *Identity) {
	http.SetCookie(w, h.svc.Cookie(id))
	h.render(w, r, &AuthResponse{Token: id.Token, User: userpayload.NewUserPayloadResponse(id.User)})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, rd render.Renderer) {
	if err := render.Render(w, r, rd); err != nil {
		h.renderErr(w, r, errresponse.ErrRender(err))
	}
}

func (h *Handler) renderErr(w http.ResponseWriter, r *http.Request, rd render.Renderer) {
	if err := render.Render(w, r, rd); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

func meta(r *http.Request) ClientMeta {
	return ClientMeta{IPAddress: ClientIP(r), UserAgent: r.UserAgent()}
}
