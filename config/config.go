package config

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const sqliteScheme = "sqlite:///"

// DefaultSecret is the development placeholder used when SECRET_KEY is unset.
// Never run a real deployment with it.
const DefaultSecret = "your-secret-key"

type Config struct {
	DatabaseURL      string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string
	DatabaseName     string
	SQLitePath       string

	ServerPort string
	JWTSecret  string

	AuthUsername string
	AuthPassword string

	LogLevel       string
	LogDevelopment bool

	ForecastSortByDate bool
	CORSOrigins        []string
}

func LoadConfig() Config {
	return Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseHost:       os.Getenv("RDS_HOSTNAME"),
		DatabasePort:       getEnv("RDS_PORT", "5432"),
		DatabaseUser:       getEnv("RDS_USERNAME", "postgres"),
		DatabasePassword:   os.Getenv("RDS_PASSWORD"),
		DatabaseName:       getEnv("RDS_DB_NAME", "sales"),
		SQLitePath:         getEnv("SQLITE_PATH", "sales.db"),
		ServerPort:         getEnv("SERVER_PORT", "5000"),
		JWTSecret:          getEnv("SECRET_KEY", DefaultSecret),
		AuthUsername:       getEnv("AUTH_USERNAME", "user"),
		AuthPassword:       getEnv("AUTH_PASSWORD", "pass"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogDevelopment:     getBool("LOG_DEVELOPMENT", false),
		ForecastSortByDate: getBool("FORECAST_SORT_BY_DATE", false),
		CORSOrigins:        getList("CORS_ORIGINS", []string{"*"}),
	}
}

// UsesPostgres reports whether a Postgres store is configured. Otherwise the
// local SQLite database at SQLiteFile is used.
func (c Config) UsesPostgres() bool {
	if strings.HasPrefix(c.DatabaseURL, sqliteScheme) {
		return false
	}
	return c.DatabaseURL != "" || c.DatabaseHost != ""
}

// SQLiteFile is the database file path, taken from a sqlite:///path
// DATABASE_URL when one is set.
func (c Config) SQLiteFile() string {
	if strings.HasPrefix(c.DatabaseURL, sqliteScheme) {
		if path := strings.TrimPrefix(c.DatabaseURL, sqliteScheme); path != "" {
			return path
		}
	}
	return c.SQLitePath
}

func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultSecret
}

func (c Config) Addr() string {
	return ":" + c.ServerPort
}

func (c Config) PostgresConnStr() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
	)
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return b
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// InitSQLite opens the local database file, creating its directory if needed.
// SQLite allows one writer, so the pool is a single connection.
func InitSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// InitDB opens the Postgres pool and checks it is reachable.
func InitDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.PostgresConnStr())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
