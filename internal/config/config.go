package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Identity provider modes.
const (
	IdentityModeLocal = "local"
	IdentityModeOIDC  = "oidc"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
	SessionStoreMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Identity     IdentityConfig
	Session      SessionConfig
	Notification NotificationConfig
	Monitor      MonitorConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN                string
	MaxConns           int32
	MinConns           int32
	RunMigrations      bool
	ConnMaxIdleSec     int32
	ConnMaxLifeSec     int32
	ConnectMaxWaitSecs int
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for locally issued credentials.
type AuthConfig struct {
	JWTSecret               string
	AccessTokenTTLMinutes   int
	PasswordResetTTLMinutes int
	BcryptCost              int
}

// IdentityConfig selects and configures the identity provider that resolves
// bearer credentials.
type IdentityConfig struct {
	Mode        string
	IssuerURL   string
	UserInfoURL string
	AdminURL    string
	ServiceKey  string
}

// Configured reports whether the remote provider has everything it needs.
func (i IdentityConfig) Configured() bool {
	return i.UserInfoURL != "" && i.AdminURL != "" && i.ServiceKey != ""
}

// SessionConfig configures the active-session registry.
type SessionConfig struct {
	Store          string
	RedisPrefix    string
	SlotTTLMinutes int
}

// SlotTTL returns how long a registered session id is retained; zero means forever.
func (s SessionConfig) SlotTTL() time.Duration {
	if s.SlotTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(s.SlotTTLMinutes) * time.Minute
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// MonitorConfig configures the sessionwatch client.
type MonitorConfig struct {
	ServerURL           string
	Token               string
	SessionID           string
	InitialDelaySeconds int
	IntervalSeconds     int
}

// InitialDelay returns the wait before the first check.
func (m MonitorConfig) InitialDelay() time.Duration {
	return time.Duration(m.InitialDelaySeconds) * time.Second
}

// Interval returns the polling interval.
func (m MonitorConfig) Interval() time.Duration {
	return time.Duration(m.IntervalSeconds) * time.Second
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	identityMode := strings.ToLower(getEnv("IDENTITY_MODE", IdentityModeLocal))
	switch identityMode {
	case IdentityModeLocal, IdentityModeOIDC:
	default:
		return nil, fmt.Errorf("invalid IDENTITY_MODE %q", identityMode)
	}

	sessionStore := strings.ToLower(getEnv("SESSION_STORE", SessionStorePostgres))
	switch sessionStore {
	case SessionStorePostgres, SessionStoreRedis, SessionStoreMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE %q", sessionStore)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "tooltime-session-guard"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:                os.Getenv("POSTGRES_DSN"),
			MaxConns:           maxConns,
			MinConns:           minConns,
			RunMigrations:      runMigrations,
			ConnMaxIdleSec:     connMaxIdle,
			ConnMaxLifeSec:     connMaxLife,
			ConnectMaxWaitSecs: getEnvAsInt("POSTGRES_CONNECT_MAX_WAIT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:               getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:   getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			PasswordResetTTLMinutes: getEnvAsInt("AUTH_PASSWORD_RESET_TTL_MINUTES", 30),
			BcryptCost:              getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Identity: IdentityConfig{
			Mode:        identityMode,
			IssuerURL:   os.Getenv("IDENTITY_ISSUER_URL"),
			UserInfoURL: os.Getenv("IDENTITY_USERINFO_URL"),
			AdminURL:    strings.TrimRight(os.Getenv("IDENTITY_ADMIN_URL"), "/"),
			ServiceKey:  os.Getenv("IDENTITY_SERVICE_KEY"),
		},
		Session: SessionConfig{
			Store:          sessionStore,
			RedisPrefix:    getEnv("SESSION_REDIS_PREFIX", "tooltime"),
			SlotTTLMinutes: getEnvAsInt("SESSION_SLOT_TTL_MINUTES", 0),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Monitor: MonitorConfig{
			ServerURL:           strings.TrimRight(getEnv("SESSIONWATCH_SERVER_URL", "http://127.0.0.1:8080"), "/"),
			Token:               os.Getenv("SESSIONWATCH_TOKEN"),
			SessionID:           os.Getenv("SESSIONWATCH_SESSION_ID"),
			InitialDelaySeconds: getEnvAsInt("SESSIONWATCH_INITIAL_DELAY_SECONDS", 5),
			IntervalSeconds:     getEnvAsInt("SESSIONWATCH_INTERVAL_SECONDS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
