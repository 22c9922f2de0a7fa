package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings for both binaries. Each service reads the
// sections it needs and ignores the rest.
type Config struct {
	Env      string
	API      APIConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Blob     BlobConfig
	Resolver ResolverConfig
	Auth     AuthConfig
	Model    ModelConfig
}

// APIConfig holds the ingestion service HTTP settings.
type APIConfig struct {
	ListenAddr      string
	MaxUploadSize   int64
	ShutdownTimeout time.Duration
	// PositionMatchExact switches the position filter from substring to
	// exact matching. Substring is the default, consistent with the name
	// filter.
	PositionMatchExact bool
}

// PostgresConfig holds the record store connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Dbname   string
}

// DSN renders the gorm/pgx connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		p.Host, p.User, p.Password, p.Dbname, p.Port)
}

// RedisConfig holds the identifier cache settings.
type RedisConfig struct {
	Addr string
	TTL  time.Duration
}

// BlobConfig holds the photo storage settings.
type BlobConfig struct {
	Dir string
}

// ResolverConfig holds the outbound call policy toward the identifier
// resolver, plus the resolver's own listen address.
type ResolverConfig struct {
	BaseURL        string
	ListenAddr     string
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// AuthConfig enables the bearer-token middleware when Secret is set.
type AuthConfig struct {
	Secret   string
	Audience string
}

// ModelConfig points at the classifier artifact and its label table.
type ModelConfig struct {
	Path       string
	LabelsPath string
	InputSize  int
}

// Load reads the yaml config referenced by path, applying defaults and
// STAFF_* environment overrides.
func Load(path string) (*Config, error) {
	vpr := viper.New()

	vpr.SetDefault("env", "production")
	vpr.SetDefault("api.listen_addr", ":8080")
	vpr.SetDefault("api.max_upload_size", 8<<20)
	vpr.SetDefault("api.shutdown_timeout", 15*time.Second)
	vpr.SetDefault("api.position_match_exact", false)
	vpr.SetDefault("postgres.port", "5432")
	vpr.SetDefault("redis.ttl", time.Hour)
	vpr.SetDefault("blob.dir", "photos")
	vpr.SetDefault("resolver.base_url", "http://127.0.0.1:9000")
	vpr.SetDefault("resolver.listen_addr", ":9000")
	vpr.SetDefault("resolver.max_attempts", 3)
	vpr.SetDefault("resolver.attempt_timeout", 10*time.Second)
	vpr.SetDefault("resolver.initial_backoff", 100*time.Millisecond)
	vpr.SetDefault("resolver.max_backoff", 2*time.Second)
	vpr.SetDefault("model.path", "ocr_model.tflite")
	vpr.SetDefault("model.labels_path", "labels.txt")
	vpr.SetDefault("model.input_size", 150)

	vpr.SetEnvPrefix("STAFF")
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()

	if path != "" {
		vpr.SetConfigFile(path)
		if err := vpr.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	return &Config{
		Env: vpr.GetString("env"),
		API: APIConfig{
			ListenAddr:         vpr.GetString("api.listen_addr"),
			MaxUploadSize:      vpr.GetInt64("api.max_upload_size"),
			ShutdownTimeout:    vpr.GetDuration("api.shutdown_timeout"),
			PositionMatchExact: vpr.GetBool("api.position_match_exact"),
		},
		Postgres: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Dbname:   vpr.GetString("postgres.db_name"),
		},
		Redis: RedisConfig{
			Addr: vpr.GetString("redis.addr"),
			TTL:  vpr.GetDuration("redis.ttl"),
		},
		Blob: BlobConfig{
			Dir: vpr.GetString("blob.dir"),
		},
		Resolver: ResolverConfig{
			BaseURL:        vpr.GetString("resolver.base_url"),
			ListenAddr:     vpr.GetString("resolver.listen_addr"),
			MaxAttempts:    vpr.GetInt("resolver.max_attempts"),
			AttemptTimeout: vpr.GetDuration("resolver.attempt_timeout"),
			InitialBackoff: vpr.GetDuration("resolver.initial_backoff"),
			MaxBackoff:     vpr.GetDuration("resolver.max_backoff"),
		},
		Auth: AuthConfig{
			Secret:   vpr.GetString("auth.secret"),
			Audience: vpr.GetString("auth.audience"),
		},
		Model: ModelConfig{
			Path:       vpr.GetString("model.path"),
			LabelsPath: vpr.GetString("model.labels_path"),
			InputSize:  vpr.GetInt("model.input_size"),
		},
	}, nil
}
