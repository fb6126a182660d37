package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App           AppConfig
	Database      DatabaseConfig
	Supabase      SupabaseConfig
	PermissionAPI PermissionAPIConfig
	Guard         GuardConfig
	Session       SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	WsLogFilePath      string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	OtelEnabled        bool
	OtelEndpoint       string
}

type DatabaseConfig struct {
	Connection string
}

type SupabaseConfig struct {
	URL            string
	AnonKey        string
	JWTSecret      string
	SessionTimeout time.Duration // bound on the initial session fetch
}

type PermissionAPIConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	WarmupTimeout  time.Duration
	SleepThreshold time.Duration // a server idle this long is assumed asleep
	SlowThreshold  time.Duration
}

type GuardConfig struct {
	InitTimeout time.Duration
}

type SessionConfig struct {
	CookieName string
	IdleTTL    time.Duration
	SecureOnly bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	env := getEnv("GO_ENV", "development")

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        env,
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			WsLogFilePath:      getEnv("WS_LOG_FILE_PATH", "logs/sync.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			OtelEnabled:        getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			AnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			SessionTimeout: getEnvAsDuration("SUPABASE_SESSION_TIMEOUT", 10*time.Second),
		},
		PermissionAPI: PermissionAPIConfig{
			BaseURL:        getEnv("PERMISSION_API_URL", "http://localhost:8000"),
			RequestTimeout: getEnvAsDuration("PERMISSION_API_TIMEOUT", 8*time.Second),
			WarmupTimeout:  getEnvAsDuration("WARMUP_TIMEOUT", 15*time.Second),
			SleepThreshold: getEnvAsDuration("WARMUP_SLEEP_THRESHOLD", 15*time.Minute),
			SlowThreshold:  getEnvAsDuration("WARMUP_SLOW_THRESHOLD", 3*time.Second),
		},
		Guard: GuardConfig{
			InitTimeout: getEnvAsDuration("GUARD_INIT_TIMEOUT", 5*time.Second),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "bt_sid"),
			IdleTTL:    getEnvAsDuration("SESSION_IDLE_TTL", 2*time.Hour),
			SecureOnly: env == "production",
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("5s") or a bare number of milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if ms := getEnvAsInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
