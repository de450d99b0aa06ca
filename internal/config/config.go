package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/querybridge/querybridge/internal/engine"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	DefaultEngine string
	Relational    RelationalConfig
	Columnar      ColumnarConfig
	AI            AIConfig
	Scrape        ScrapeConfig
	Search        SearchConfig
	Assist        AssistConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// RelationalConfig is the fallback PostgreSQL target used when a request
// carries no descriptor override.
type RelationalConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// ColumnarConfig is the fallback parquet dataset target.
type ColumnarConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	Dataset         string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

type AIConfig struct {
	Provider        string
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
}

type ScrapeConfig struct {
	ProxyBaseURL string
	APIKey       string
	Timeout      time.Duration
}

type SearchConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AssistConfig struct {
	// TimeZone resolves the current hour when a greet request omits one.
	TimeZone string
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYBRIDGE_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYBRIDGE_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "QUERYBRIDGE_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_DEFAULT_ENGINE", &cfg.DefaultEngine); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_DB_HOST", &cfg.Relational.Host); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYBRIDGE_DB_PORT", &cfg.Relational.Port); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_DB_NAME", &cfg.Relational.Database); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_DB_USER", &cfg.Relational.User); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_DB_PASSWORD", &cfg.Relational.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_ENDPOINT", &cfg.Columnar.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_REGION", &cfg.Columnar.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_BUCKET", &cfg.Columnar.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_DATASET", &cfg.Columnar.Dataset); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_ACCESS_KEY", &cfg.Columnar.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_WAREHOUSE_SECRET_KEY", &cfg.Columnar.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYBRIDGE_WAREHOUSE_USE_SSL", &cfg.Columnar.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "GEMINI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYBRIDGE_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYBRIDGE_AI_MAX_OUTPUT_TOKENS", &cfg.AI.MaxOutputTokens); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_SCRAPE_PROXY_URL", &cfg.Scrape.ProxyBaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_SCRAPE_API_KEY", &cfg.Scrape.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_SCRAPE_TIMEOUT", &cfg.Scrape.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_SEARCH_BASE_URL", &cfg.Search.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYBRIDGE_SEARCH_TIMEOUT", &cfg.Search.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_ASSIST_TIMEZONE", &cfg.Assist.TimeZone); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYBRIDGE_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "QUERYBRIDGE_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYBRIDGE_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYBRIDGE_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if _, err := engine.ParseKind(cfg.DefaultEngine); err != nil {
		return Config{}, fmt.Errorf("invalid QUERYBRIDGE_DEFAULT_ENGINE: %w", err)
	}
	return cfg, nil
}

// DefaultEngineKind is the engine used when a request omits db_config. Load
// has already validated the value.
func (c Config) DefaultEngineKind() engine.Kind {
	kind, err := engine.ParseKind(c.DefaultEngine)
	if err != nil {
		return engine.KindRelational
	}
	return kind
}

// DefaultDescriptor assembles the fallback connection descriptor for the
// requested engine kind from the loaded configuration.
func (c Config) DefaultDescriptor(kind engine.Kind) (engine.Descriptor, error) {
	switch kind {
	case engine.KindRelational:
		return engine.Descriptor{
			Kind: engine.KindRelational,
			Relational: engine.RelationalConfig{
				Host:     c.Relational.Host,
				Port:     c.Relational.Port,
				Database: c.Relational.Database,
				User:     c.Relational.User,
				Password: c.Relational.Password,
			},
		}, nil
	case engine.KindColumnar:
		return engine.Descriptor{
			Kind: engine.KindColumnar,
			Columnar: engine.ColumnarConfig{
				Endpoint:        c.Columnar.Endpoint,
				Bucket:          c.Columnar.Bucket,
				Dataset:         c.Columnar.Dataset,
				AccessKeyID:     c.Columnar.AccessKeyID,
				SecretAccessKey: c.Columnar.SecretAccessKey,
				UseSSL:          c.Columnar.UseSSL,
			},
		}, nil
	default:
		return engine.Descriptor{}, fmt.Errorf("%w: %q", engine.ErrUnsupportedEngine, kind)
	}
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querybridge-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		DefaultEngine: string(engine.KindRelational),
		Relational: RelationalConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
			Password: "postgres",
		},
		Columnar: ColumnarConfig{
			Endpoint: "localhost:9000",
			Region:   "us-east-1",
			Bucket:   "querybridge",
			Dataset:  "demo",
			UseSSL:   false,
		},
		AI: AIConfig{
			Provider:        "gemini",
			BaseURL:         "",
			Model:           "gemini-2.0-flash",
			Temperature:     0.7,
			MaxOutputTokens: 200,
			Timeout:         15 * time.Second,
		},
		Scrape: ScrapeConfig{
			ProxyBaseURL: "http://api.scraperapi.com",
			Timeout:      15 * time.Second,
		},
		Search: SearchConfig{
			BaseURL: "https://html.duckduckgo.com",
			Timeout: 10 * time.Second,
		},
		Assist: AssistConfig{
			TimeZone: "Asia/Kolkata",
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.Columnar.UseSSL = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
