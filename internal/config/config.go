// Package config loads the service configuration from environment variables.
// Every problem found while loading is collected and reported at once.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendMongo  = "mongo"
	BackendMemory = "memory"

	SessionBackendStore = "store"
	SessionBackendRedis = "redis"

	UploadCloudinary = "cloudinary"
	UploadLocal      = "local"

	minSecretLength = 32
)

// Config is the top-level configuration of the service.
type Config struct {
	Env            string
	Addr           string
	DiagAddr       string
	RequestTimeout time.Duration
	CORSOrigins    []string

	Store  StoreConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Upload UploadConfig
}

// StoreConfig selects the persistence backends.
type StoreConfig struct {
	Backend        string
	SessionBackend string
}

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI            string
	Database       string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
	SocketTimeout  time.Duration
}

// RedisConfig holds the session cache connection settings. URL wins over
// Addr when both are set.
type RedisConfig struct {
	URL      string
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds session and password settings.
type AuthConfig struct {
	Secret            string
	SessionTTL        time.Duration
	SessionUpdateAge  time.Duration
	CookieName        string
	CookieSecure      bool
	MinPasswordLength int
	MaxPasswordLength int
	// PasswordCost is the bcrypt cost; zero selects the library default.
	PasswordCost int
	RateLimit    float64
	RateBurst    int
}

// UploadConfig selects and configures the image host.
type UploadConfig struct {
	Backend    string
	MaxBytes   int64
	Dir        string
	BaseURL    string
	Cloudinary CloudinaryConfig
}

// CloudinaryConfig holds the image hosting API credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool {
	return c.Env == EnvProduction
}

type loader struct {
	errors []string
}

func (l *loader) fail(format string, args ...interface{}) {
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
}

func (l *loader) required(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		l.fail("missing required environment variable: %s", key)

		return ""
	}

	return value
}

func (l *loader) str(key, def string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}

	return def
}

func (l *loader) int(key string, def int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		l.fail("invalid value for %s: expected integer, got '%s'", key, raw)

		return def
	}

	return v
}

func (l *loader) float(key string, def float64) float64 {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		l.fail("invalid value for %s: expected number, got '%s'", key, raw)

		return def
	}

	return v
}

func (l *loader) bool(key string, def bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		l.fail("invalid value for %s: expected boolean, got '%s'", key, raw)

		return def
	}

	return v
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		l.fail("invalid value for %s: expected duration string, got '%s'", key, raw)

		return def
	}

	return v
}

func (l *loader) oneOf(key, def string, allowed ...string) string {
	v := l.str(key, def)
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	l.fail("invalid value for %s: '%s' is not one of %s", key, v, strings.Join(allowed, ", "))

	return def
}

func (l *loader) list(key string, def []string) []string {
	raw := l.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	l := &loader{}

	cfg := &Config{
		Env:            l.oneOf("APP_ENV", EnvDevelopment, EnvDevelopment, EnvProduction),
		Addr:           l.str("BLOGCMS_ADDR", ":3333"),
		DiagAddr:       l.str("BLOGCMS_DIAG_ADDR", ":9999"),
		RequestTimeout: l.duration("REQUEST_TIMEOUT", 60*time.Second),
		CORSOrigins:    l.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	cfg.Store = StoreConfig{
		Backend:        l.oneOf("STORE_BACKEND", BackendMongo, BackendMongo, BackendMemory),
		SessionBackend: l.oneOf("SESSION_BACKEND", SessionBackendStore, SessionBackendStore, SessionBackendRedis),
	}

	cfg.Mongo = MongoConfig{
		Database:       l.str("MONGO_DB", "blog-cms"),
		MaxPoolSize:    uint64(l.int("MONGO_MAX_POOL_SIZE", 10)),
		MinPoolSize:    uint64(l.int("MONGO_MIN_POOL_SIZE", 5)),
		MaxIdleTime:    l.duration("MONGO_MAX_IDLE_TIME", 30*time.Second),
		ConnectTimeout: l.duration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		SocketTimeout:  l.duration("MONGO_SOCKET_TIMEOUT", 45*time.Second),
	}
	if cfg.Store.Backend == BackendMongo {
		cfg.Mongo.URI = l.required("MONGO_URI")
	}

	cfg.Redis = RedisConfig{
		URL:      l.str("REDIS_URL", ""),
		Addr:     l.str("REDIS_ADDR", "localhost:6379"),
		Password: l.str("REDIS_PASSWORD", ""),
		DB:       l.int("REDIS_DB", 0),
	}

	cfg.Auth = AuthConfig{
		Secret:            l.required("AUTH_SECRET"),
		SessionTTL:        l.duration("SESSION_TTL", 7*24*time.Hour),
		SessionUpdateAge:  l.duration("SESSION_UPDATE_AGE", 24*time.Hour),
		CookieName:        l.str("SESSION_COOKIE", "blogcms.session_token"),
		MinPasswordLength: l.int("MIN_PASSWORD_LENGTH", 6),
		MaxPasswordLength: l.int("MAX_PASSWORD_LENGTH", 128),
		PasswordCost:      l.int("PASSWORD_COST", 0),
		RateLimit:         l.float("AUTH_RATE_LIMIT", 1),
		RateBurst:         l.int("AUTH_RATE_BURST", 5),
	}
	cfg.Auth.CookieSecure = l.bool("COOKIE_SECURE", cfg.IsProd())
	if cfg.Auth.Secret != "" && len(cfg.Auth.Secret) < minSecretLength {
		l.fail("AUTH_SECRET must be at least %d bytes long", minSecretLength)
	}
	if cfg.Auth.SessionUpdateAge >= cfg.Auth.SessionTTL {
		l.fail("SESSION_UPDATE_AGE (%s) must be shorter than SESSION_TTL (%s)", cfg.Auth.SessionUpdateAge, cfg.Auth.SessionTTL)
	}
	if cfg.Auth.MinPasswordLength < 1 || cfg.Auth.MinPasswordLength > cfg.Auth.MaxPasswordLength {
		l.fail("MIN_PASSWORD_LENGTH must be between 1 and MAX_PASSWORD_LENGTH")
	}

	cfg.Upload = UploadConfig{
		Backend:  l.oneOf("UPLOAD_BACKEND", UploadLocal, UploadCloudinary, UploadLocal),
		MaxBytes: int64(l.int("UPLOAD_MAX_BYTES", 5<<20)),
		Dir:      l.str("UPLOAD_DIR", "./uploads"),
		BaseURL:  l.str("UPLOAD_BASE_URL", "http://localhost:3333/uploads"),
	}
	if cfg.Upload.Backend == UploadLocal {
		if u, err := url.Parse(cfg.Upload.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			l.fail("UPLOAD_BASE_URL must be an absolute URL, got %q", cfg.Upload.BaseURL)
		}
	}
	if cfg.Upload.Backend == UploadCloudinary {
		cfg.Upload.Cloudinary = CloudinaryConfig{
			CloudName: l.required("CLOUDINARY_CLOUD_NAME"),
			APIKey:    l.required("CLOUDINARY_API_KEY"),
			APISecret: l.required("CLOUDINARY_API_SECRET"),
			Folder:    l.str("CLOUDINARY_FOLDER", "uploads"),
		}
	}

	if len(l.errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(l.errors, "\n- "))
	}

	return cfg, nil
}
