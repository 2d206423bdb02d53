package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// session tokens
	JWTSecret          string
	SessionTTLHours    int
	PwChangeTTLMinutes int

	// lockout policy
	LockoutThreshold int
	LockoutMinutes   int

	// password reset
	ResetTokenTTLMinutes int
	PublicBaseURL        string

	// authorization role cache refresh bound
	RoleCacheTTLSeconds int

	// seeded admin account
	AdminEmail    string
	AdminPassword string
	AdminName     string

	AllowedOrigins []string

	OTLPEndpoint string
}

func Load() Config {
	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	return Config{
		Env:   env,
		Port:  port,
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		SessionTTLHours:    getEnvInt("SESSION_TTL_HOURS", 24),
		PwChangeTTLMinutes: getEnvInt("PWCHANGE_TTL_MINUTES", 10),

		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", 5),
		LockoutMinutes:   getEnvInt("LOCKOUT_MINUTES", 30),

		ResetTokenTTLMinutes: getEnvInt("RESET_TOKEN_TTL_MINUTES", 60),
		PublicBaseURL:        getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),

		RoleCacheTTLSeconds: getEnvInt("ROLE_CACHE_TTL_SECONDS", 30),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Super Admin"),

		AllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "communityhub")
	pass := getEnv("DB_PASSWORD", "communityhub")
	name := getEnv("DB_NAME", "communityhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) PwChangeTTL() time.Duration {
	return time.Duration(c.PwChangeTTLMinutes) * time.Minute
}

func (c Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

func (c Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenTTLMinutes) * time.Minute
}

func (c Config) RoleCacheTTL() time.Duration {
	return time.Duration(c.RoleCacheTTLSeconds) * time.Second
}

// WithTimeout bounds one downstream call. Deriving from the parent keeps the
// request's trace and actor flowing into repositories and audit writes.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
