package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL       string
	ServerAddr        string
	LogLevel          string
	StoreBackend      string
	CommitMaxAttempts int
	MigrationsDir     string
	ParticipantHeader string
	MetricsEnabled    bool
	ShutdownTimeout   time.Duration
	// SeedPairings preloads the in-memory pairing directory.
	SeedPairings []SeedPairing
}

// SeedPairing is one entry of MEMORY_PAIRINGS.
type SeedPairing struct {
	PairingID  string
	ProviderID string
	SeekerID   string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "negotiation")
		pass := getenv("POSTGRES_PASSWORD", "negotiation_pass")
		db := getenv("POSTGRES_DB", "negotiation")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	backend := strings.ToLower(getenv("STORE_BACKEND", BackendPostgres))
	if backend != BackendPostgres && backend != BackendMemory {
		return nil, fmt.Errorf("unsupported STORE_BACKEND %q", backend)
	}
	attempts := parseInt(getenv("COMMIT_MAX_ATTEMPTS", "5"), 5)
	if attempts < 1 {
		return nil, fmt.Errorf("COMMIT_MAX_ATTEMPTS must be at least 1, got %d", attempts)
	}

	seeds, err := parseSeedPairings(os.Getenv("MEMORY_PAIRINGS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:       dsn,
		ServerAddr:        getenv("SERVER_ADDR", "0.0.0.0:8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		StoreBackend:      backend,
		CommitMaxAttempts: attempts,
		MigrationsDir:     getenv("MIGRATIONS_DIR", "internal/migrations"),
		ParticipantHeader: getenv("PARTICIPANT_HEADER", "X-Participant-ID"),
		MetricsEnabled:    parseBool(getenv("METRICS_ENABLED", "true"), true),
		ShutdownTimeout:   parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		SeedPairings:      seeds,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

// parseSeedPairings reads "pairing:provider:seeker" entries separated by commas.
func parseSeedPairings(val string) ([]SeedPairing, error) {
	var out []SeedPairing
	for _, entry := range strings.Split(val, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid MEMORY_PAIRINGS entry %q, want pairing:provider:seeker", entry)
		}
		out = append(out, SeedPairing{PairingID: parts[0], ProviderID: parts[1], SeekerID: parts[2]})
	}
	return out, nil
}
