package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/docgen"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/SergeyParamoshkin/blogcms/internal/article"
	"github.com/SergeyParamoshkin/blogcms/internal/config"
	"github.com/SergeyParamoshkin/blogcms/internal/logging"
	"github.com/SergeyParamoshkin/blogcms/internal/memstore"
	"github.com/SergeyParamoshkin/blogcms/internal/metrics"
	"github.com/SergeyParamoshkin/blogcms/internal/mongodb"
	"github.com/SergeyParamoshkin/blogcms/internal/server"
	"github.com/SergeyParamoshkin/blogcms/internal/session"
	"github.com/SergeyParamoshkin/blogcms/internal/upload"
	"github.com/SergeyParamoshkin/blogcms/internal/user"
)

const (
	shutdownTimeout   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// backends are the stores chosen by the configuration.
type backends struct {
	users      user.Store
	articles   article.Store
	sessions   session.Store
	images     upload.ImageStore
	uploadsDir string
	health     []server.Pinger
	closers    []func(context.Context) error
}

func (b *backends) close(ctx context.Context, log *zap.SugaredLogger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.Errorw("closing backend", "error", err)
		}
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	switch cfg.Store.Backend {
	case config.BackendMemory:
		db := memstore.New()
		b.users, b.articles, b.sessions = db.Users(), db.Articles(), db.Sessions()
	default:
		client, err := mongodb.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)

		db := mongodb.New(client.Database(cfg.Mongo.Database))
		if err := db.EnsureIndexes(ctx); err != nil {
			b.close(ctx, zap.NewNop().Sugar())

			return nil, err
		}
		b.users, b.articles, b.sessions = db.Users(), db.Articles(), db.Sessions()
		b.health = append(b.health, db)
	}

	if cfg.Store.SessionBackend == config.SessionBackendRedis {
		client, err := session.NewRedisClient(cfg.Redis)
		if err != nil {
			b.close(ctx, zap.NewNop().Sugar())

			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })

		store := session.NewRedisStore(client)
		b.sessions = store
		b.health = append(b.health, store)
	}

	switch cfg.Upload.Backend {
	case config.UploadCloudinary:
		store, err := upload.NewCloudinaryStore(cfg.Upload.Cloudinary)
		if err != nil {
			b.close(ctx, zap.NewNop().Sugar())

			return nil, err
		}
		b.images = store
	default:
		store, err := upload.NewLocalStore(cfg.Upload.Dir, cfg.Upload.BaseURL)
		if err != nil {
			b.close(ctx, zap.NewNop().Sugar())

			return nil, err
		}
		b.images = store
		b.uploadsDir = store.Dir()
	}

	return b, nil
}

func serve(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.IsProd())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.close(context.Background(), sugar)

	m, err := metrics.New(ServiceName)
	if err != nil {
		return err
	}

	router, err := server.NewRouter(server.Options{
		Config:     cfg,
		Logger:     sugar,
		Metrics:    m,
		Users:      b.users,
		Articles:   b.articles,
		Sessions:   b.sessions,
		Images:     b.images,
		UploadsDir: b.uploadsDir,
		Health:     b.health,
	})
	if err != nil {
		return err
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", m.Handler().ServeHTTP)

	servers := []*http.Server{
		{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		{Addr: cfg.DiagAddr, Handler: diagRouter, ReadHeaderTimeout: readHeaderTimeout},
	}

	errc := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			sugar.Infow("listening", "addr", srv.Addr, "env", cfg.Env)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(srv)
	}

	select {
	case <-ctx.Done():
		sugar.Infow("shutting down")
	case err = <-errc:
		sugar.Errorw("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			sugar.Errorw("shutdown", "addr", srv.Addr, "error", serr)
		}
	}

	return err
}

// routes prints the docs of a router built on throwaway in-memory stores.
func routes(c *cli.Context) error {
	cfg := docsConfig()
	db := memstore.New()
	images, err := upload.NewLocalStore(os.TempDir(), cfg.Upload.BaseURL)
	if err != nil {
		return err
	}

	r, err := server.NewRouter(server.Options{
		Config:     cfg,
		Users:      db.Users(),
		Articles:   db.Articles(),
		Sessions:   db.Sessions(),
		Images:     images,
		UploadsDir: images.Dir(),
	})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		fmt.Fprintln(c.App.Writer, docgen.JSONRoutesDoc(r))

		return nil
	}

	fmt.Fprintln(c.App.Writer, docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
		ProjectPath: "github.com/SergeyParamoshkin/blogcms",
		Intro:       "Routes of the blog CMS: the JSON API under /api and the dashboard pages.",
	}))

	return nil
}

func indexes(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Store.Backend != config.BackendMongo {
		return fmt.Errorf("indexes need STORE_BACKEND=%s, got %q", config.BackendMongo, cfg.Store.Backend)
	}

	client, err := mongodb.Connect(c.Context, cfg.Mongo)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	if err := mongodb.New(client.Database(cfg.Mongo.Database)).EnsureIndexes(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "indexes ready on %s\n", cfg.Mongo.Database)

	return nil
}

func docsConfig() *config.Config {
	return &config.Config{
		Env:         config.EnvDevelopment,
		CORSOrigins: []string{"*"},
		Auth: config.AuthConfig{
			Secret:            "routes-doc-secret-routes-doc-secret",
			SessionTTL:        7 * 24 * time.Hour,
			SessionUpdateAge:  24 * time.Hour,
			CookieName:        "blogcms.session_token",
			MinPasswordLength: 6,
			MaxPasswordLength: 128,
			RateLimit:         1,
			RateBurst:         5,
		},
		Upload: config.UploadConfig{
			Backend:  config.UploadLocal,
			MaxBytes: 5 << 20,
			BaseURL:  "http://localhost:3333/uploads",
		},
	}
}
