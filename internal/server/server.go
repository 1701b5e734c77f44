// Package server assembles the HTTP router of the CMS.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blogcms/internal/apidocs"
	"github.com/SergeyParamoshkin/blogcms/internal/article"
	"github.com/SergeyParamoshkin/blogcms/internal/auth"
	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/errresponse"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/metrics"
	"github.com/SergeyParamoshkin/blogcms/internal/pages"
	"github.com/SergeyParamoshkin/blogcms/internal/session"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
	"github.com/SergeyParamoshkin/blogcms/internal/user"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options are the dependencies of the router.
type Options struct {
	Config  *config.Config
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics

	Users    user.Store
	Articles article.Store
	Sessions session.Store
	Images   upload.ImageStore

	// UploadsDir is served under the path of the upload base URL when set.
	UploadsDir string
	Health     []Pinger
}

// NewRouter wires the handlers of the JSON API, the pages and the static
// files.
func NewRouter(opts Options) (chi.Router, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("server: missing config")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	authSvc := auth.NewService(opts.Users, opts.Sessions, cfg.Auth)
	limiter := auth.NewRateLimiter(cfg.Auth.RateLimit, cfg.Auth.RateBurst)
	articles := article.NewService(opts.Articles)

	var uploader *upload.Uploader
	if opts.Images != nil {
		uploader = upload.NewUploader(opts.Images, cfg.Upload.MaxBytes)
	}

	pagesHandler, err := pages.NewHandler(authSvc, limiter, articles, uploader)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(corsHandler(cfg.CORSOrigins))
	r.Use(authSvc.Session)

	r.Get("/healthz", health(opts.Health))
	apidocs.FileServer(r, "/swagger-ui", apidocs.Swagger())
	if opts.UploadsDir != "" {
		prefix, err := uploadsPath(cfg.Upload.BaseURL)
		if err != nil {
			return nil, err
		}
		apidocs.FileServer(r, prefix, http.Dir(opts.UploadsDir))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			renderErr(w, r, errresponse.ErrNotFound)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			renderErr(w, r, errresponse.ErrMethodNotAllowed)
		})

		auth.NewHandler(authSvc, limiter).Mount(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession)
			article.NewHandler(articles).Mount(r)
			user.NewHandler(opts.Users).Mount(r)
			if uploader != nil {
				upload.NewHandler(uploader).Mount(r)
			}
		})
	})

	pagesHandler.Mount(r)

	return r, nil
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	anyOrigin := false
	for _, o := range origins {
		if o == "*" {
			anyOrigin = true
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: !anyOrigin,
		MaxAge:           300,
	})
}

func health(deps []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				logging.FromContext(r.Context()).Errorw("health check failed", "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("unavailable"))

				return
			}
		}

		_, err := w.Write([]byte("ok"))
		if err != nil {
			logging.FromContext(r.Context()).Errorw(err.Error())
		}
	}
}

func uploadsPath(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse upload base url: %w", err)
	}

	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return "", fmt.Errorf("upload base url %q has no path", baseURL)
	}

	return p, nil
}

func renderErr(w http.ResponseWriter, r *http.Request, rd render.Renderer) {
	if err := render.Render(w, r, rd); err != nil {
		logging.FromContext(r.Context()).Errorw(err.Error())
	}
}

// Errors handed straight to render.Respond are logged and answered with a
// generic body instead of the raw message.
func init() {
	render.Respond = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		if err, ok := v.(error); ok {
			if _, ok := r.Context().Value(render.StatusCtxKey).(int); !ok {
				render.Status(r, http.StatusInternalServerError)
			}
			logging.FromContext(r.Context()).Errorw("responding with error", "error", err)
			render.DefaultResponder(w, r, render.M{"status": "error"})

			return
		}

		render.DefaultResponder(w, r, v)
	}
}
