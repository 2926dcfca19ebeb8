// Package config reads server settings from the environment, an optional .env
// file and the local.properties secrets file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/BaGreal2/cinematch-server/internal/buildconfig"
	"github.com/BaGreal2/cinematch-server/internal/buildconst"
)

const (
	StoreSQL      = "sql"
	StoreFirebase = "firebase"
	StoreMemory   = "memory"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	JWTSecret   string

	// TMDBToken is the v4 read access token; TMDBAPIKey is used only when
	// it is empty.
	TMDBToken   string
	TMDBAPIKey  string
	TMDBBaseURL string
	TMDBTimeout time.Duration

	FirebaseURL         string
	FirebaseCredentials string
	FirebaseProjectID   string
	// FirebaseAuth enables Firebase ID tokens next to our own JWTs.
	FirebaseAuth bool

	LobbyStore string
	LobbyTTL   time.Duration
	// DeckPages is how many TMDB pages a lobby deck starts with.
	DeckPages int
	Debug     bool

	// PropertiesFile is where the secrets were looked up; empty when absent.
	PropertiesFile string
}

// MissingError lists required settings that resolved to nothing.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "missing required settings: " + strings.Join(e.Keys, ", ")
}

// LoadEnv loads .env into the process environment. A missing file is not fatal;
// the caller decides whether to warn.
func LoadEnv() error {
	return godotenv.Load()
}

func Load() (*Config, error) {
	path := os.Getenv("PROPERTIES_FILE")
	if path == "" {
		path = buildconfig.DefaultFile
	}
	return LoadFrom(os.LookupEnv, path)
}

// LoadFrom resolves each setting from lookup first, then the properties file,
// then the generated constants. The literal "null" never counts as a value.
func LoadFrom(lookup func(string) (string, bool), propertiesPath string) (*Config, error) {
	props, err := buildconfig.Load(propertiesPath)
	if err != nil {
		return nil, err
	}

	env := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	secret := func(envKey, propKey, generated string) string {
		if v := env(envKey, ""); v != "" {
			return v
		}
		if v, ok := props.Get(propKey); ok && v != "" && v != buildconfig.Null {
			return v
		}
		if generated != buildconfig.Null {
			return generated
		}
		return ""
	}

	cfg := &Config{
		Port:        env("PORT", "8080"),
		DBDriver:    env("DB_DRIVER", "sqlite3"),
		DatabaseURL: env("DATABASE_URL", "./cinematch.db"),
		JWTSecret:   env("JWT_SECRET", ""),

		TMDBToken:   secret("TMDB_API_BEARER", buildconfig.TMDBReadAccessToken, buildconst.TMDB_READ_ACCESS_TOKEN),
		TMDBAPIKey:  secret("TMDB_API_KEY", buildconfig.TMDBAPIKey, buildconst.TMDB_API_KEY),
		TMDBBaseURL: env("TMDB_BASE_URL", ""),

		FirebaseURL:         secret("FB_ROUTE_INSTANCE_URL", buildconfig.FBRouteInstanceURL, buildconst.FB_ROUTE_INSTANCE_URL),
		FirebaseCredentials: env("FIREBASE_CREDENTIALS", ""),
		FirebaseProjectID:   env("FIREBASE_PROJECT_ID", ""),

		TMDBTimeout: 10 * time.Second,

		LobbyStore: env("LOBBY_STORE", StoreSQL),
		LobbyTTL:   24 * time.Hour,
		DeckPages:  1,
	}
	if props.Found() {
		cfg.PropertiesFile = props.Path()
	}

	var errs []error
	if cfg.Debug, err = strconv.ParseBool(env("DEBUG", "false")); err != nil {
		errs = append(errs, fmt.Errorf("DEBUG: %w", err))
	}
	if cfg.FirebaseAuth, err = strconv.ParseBool(env("FIREBASE_AUTH", "false")); err != nil {
		errs = append(errs, fmt.Errorf("FIREBASE_AUTH: %w", err))
	}
	if v := env("LOBBY_TTL", ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			errs = append(errs, fmt.Errorf("LOBBY_TTL: invalid duration %q", v))
		} else {
			cfg.LobbyTTL = ttl
		}
	}
	if v := env("TMDB_TIMEOUT", ""); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil || timeout <= 0 {
			errs = append(errs, fmt.Errorf("TMDB_TIMEOUT: invalid duration %q", v))
		} else {
			cfg.TMDBTimeout = timeout
		}
	}
	if v := env("DECK_PAGES", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 10 {
			errs = append(errs, fmt.Errorf("DECK_PAGES: want 1-10, got %q", v))
		} else {
			cfg.DeckPages = n
		}
	}

	switch cfg.DBDriver {
	case "sqlite3", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver))
	}
	switch cfg.LobbyStore {
	case StoreSQL, StoreMemory:
	case StoreFirebase:
		if cfg.FirebaseURL == "" {
			errs = append(errs, errors.New("LOBBY_STORE=firebase needs FB_ROUTE_INSTANCE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("LOBBY_STORE: unknown store %q", cfg.LobbyStore))
	}
	if cfg.FirebaseAuth && cfg.FirebaseURL == "" {
		errs = append(errs, errors.New("FIREBASE_AUTH needs FB_ROUTE_INSTANCE_URL"))
	}

	var missing []string
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.TMDBToken == "" && cfg.TMDBAPIKey == "" {
		missing = append(missing, "TMDB_API_BEARER or "+buildconfig.TMDBReadAccessToken+" or "+buildconfig.TMDBAPIKey)
	}
	if len(missing) > 0 {
		errs = append(errs, &MissingError{Keys: missing})
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
