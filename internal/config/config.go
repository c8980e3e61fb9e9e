package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store modes.
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// DefaultNamespace is used when APP_ID is not set.
const DefaultNamespace = "default-app-id"

type Config struct {
	App       AppConfig
	Store     StoreConfig
	Sales     SalesConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Env      string
	Port     string
	Timezone string
}

type StoreConfig struct {
	Mode            string
	Firebase        FirebaseConfig
	CredentialsFile string
	Namespace       string
}

// FirebaseConfig is the JSON connection descriptor handed to the app at
// startup. Only the project id is needed server side.
type FirebaseConfig struct {
	ProjectID string `json:"projectId"`
	APIKey    string `json:"apiKey,omitempty"`
}

type SalesConfig struct {
	DefaultExchangeRate float64
	ResubscribeDelay    time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8081")
	v.SetDefault("APP_TIMEZONE", "Europe/Prague")
	v.SetDefault("STORE", StoreFirestore)
	v.SetDefault("FIREBASE_CONFIG", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")
	v.SetDefault("APP_ID", DefaultNamespace)
	v.SetDefault("DEFAULT_EXCHANGE_RATE", 5.8)
	v.SetDefault("RESUBSCRIBE_DELAY", "5s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("APP_ENV"),
			Port:     v.GetString("APP_PORT"),
			Timezone: v.GetString("APP_TIMEZONE"),
		},
		Store: StoreConfig{
			Mode:            strings.ToLower(v.GetString("STORE")),
			CredentialsFile: v.GetString("FIRESTORE_CREDENTIALS_FILE"),
			Namespace:       strings.TrimSpace(v.GetString("APP_ID")),
		},
		Sales: SalesConfig{
			DefaultExchangeRate: v.GetFloat64("DEFAULT_EXCHANGE_RATE"),
			ResubscribeDelay:    v.GetDuration("RESUBSCRIBE_DELAY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}
	if cfg.Store.Namespace == "" {
		cfg.Store.Namespace = DefaultNamespace
	}

	if raw := strings.TrimSpace(v.GetString("FIREBASE_CONFIG")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Store.Firebase); err != nil {
			return nil, fmt.Errorf("invalid FIREBASE_CONFIG: %w", err)
		}
	}

	switch cfg.Store.Mode {
	case StoreMemory:
	case StoreFirestore:
		if cfg.Store.Firebase.ProjectID == "" {
			return nil, fmt.Errorf("FIREBASE_CONFIG must carry a projectId when STORE=%s", StoreFirestore)
		}
	default:
		return nil, fmt.Errorf("unknown STORE %q", cfg.Store.Mode)
	}

	if _, err := time.LoadLocation(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	return cfg, nil
}

// Location returns the configured time zone.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
