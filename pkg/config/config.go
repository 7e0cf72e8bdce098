package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/travigo/journeymapper/pkg/util"
	"gopkg.in/yaml.v3"
)

type Config struct {
	MongoDB struct {
		Connection string `yaml:"connection" validate:"required"`
		Database   string `yaml:"database" validate:"required"`
	} `yaml:"mongodb"`

	Redis struct {
		Address  string `yaml:"address" validate:"required"`
		Password string `yaml:"password"`
		Database int    `yaml:"database" validate:"gte=0"`
	} `yaml:"redis"`

	GeneratedIDPrefix string `yaml:"generatedIdPrefix" validate:"required"`

	BlobStore struct {
		Kind      string `yaml:"kind" validate:"oneof=gcs filesystem"`
		Bucket    string `yaml:"bucket" validate:"required_if=Kind gcs"`
		Subfolder string `yaml:"subfolder"`
		Directory string `yaml:"directory" validate:"required_if=Kind filesystem"`
	} `yaml:"blobStore"`

	TempFileDirectory string        `yaml:"tempFileDirectory" validate:"required"`
	PollInterval      time.Duration `yaml:"pollInterval" validate:"gt=0"`
	ImportDisabled    bool          `yaml:"importDisabled"`

	CacheIdleTTL            time.Duration `yaml:"cacheIdleTTL" validate:"gt=0"`
	HealthAllowedInactivity time.Duration `yaml:"healthAllowedInactivity" validate:"gt=0"`

	Notifier struct {
		Kind    string `yaml:"kind" validate:"oneof=none rmq nats"`
		Queue   string `yaml:"queue" validate:"required_if=Kind rmq"`
		NATSURL string `yaml:"natsUrl" validate:"required_if=Kind nats"`
		Subject string `yaml:"subject" validate:"required_if=Kind nats"`
	} `yaml:"notifier"`

	LeaderElection struct {
		Enabled  bool          `yaml:"enabled"`
		Key      string        `yaml:"key" validate:"required_if=Enabled true"`
		LeaseTTL time.Duration `yaml:"leaseTTL"`
	} `yaml:"leaderElection"`

	Elasticsearch struct {
		Address  string `yaml:"address"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"elasticsearch"`

	Listen string `yaml:"listen" validate:"required"`
}

func Default() *Config {
	cfg := &Config{}

	cfg.MongoDB.Connection = "mongodb://localhost:27017/"
	cfg.MongoDB.Database = "journeymapper"
	cfg.Redis.Address = "localhost:6379"
	cfg.BlobStore.Kind = "gcs"
	cfg.BlobStore.Subfolder = "outbound/netex/"
	cfg.TempFileDirectory = os.TempDir()
	cfg.PollInterval = 5 * time.Minute
	cfg.CacheIdleTTL = 24 * time.Hour
	cfg.HealthAllowedInactivity = 48 * time.Hour
	cfg.Notifier.Kind = "none"
	cfg.Notifier.Queue = "dated-service-journeys"
	cfg.Notifier.Subject = "journeymapper.datedservicejourney"
	cfg.LeaderElection.Key = "journeymapper:leader"
	cfg.LeaderElection.LeaseTTL = 10 * time.Minute
	cfg.Listen = ":8080"

	return cfg
}

// Load builds the configuration from the defaults, an optional YAML file named by TRAVIGO_CONFIG_FILE
// and finally the TRAVIGO_* environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := Default()
	env := util.GetEnvironmentVariables()

	if path := env["TRAVIGO_CONFIG_FILE"]; path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		if err := yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvironment(env); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The leader renews its lease once per poll so a shorter lease would lapse between loads
	if cfg.LeaderElection.Enabled && cfg.LeaderElection.LeaseTTL <= cfg.PollInterval {
		return fmt.Errorf("invalid configuration: leader lease %s must be longer than the poll interval %s", cfg.LeaderElection.LeaseTTL, cfg.PollInterval)
	}

	return nil
}

func (cfg *Config) applyEnvironment(env map[string]string) error {
	setString(env, "TRAVIGO_MONGODB_CONNECTION", &cfg.MongoDB.Connection)
	setString(env, "TRAVIGO_MONGODB_DATABASE", &cfg.MongoDB.Database)
	setString(env, "TRAVIGO_REDIS_ADDRESS", &cfg.Redis.Address)
	setString(env, "TRAVIGO_REDIS_PASSWORD", &cfg.Redis.Password)
	setString(env, "TRAVIGO_GENERATED_ID_PREFIX", &cfg.GeneratedIDPrefix)
	setString(env, "TRAVIGO_BLOBSTORE_KIND", &cfg.BlobStore.Kind)
	setString(env, "TRAVIGO_BLOBSTORE_BUCKET", &cfg.BlobStore.Bucket)
	setString(env, "TRAVIGO_BLOBSTORE_SUBFOLDER", &cfg.BlobStore.Subfolder)
	setString(env, "TRAVIGO_BLOBSTORE_DIRECTORY", &cfg.BlobStore.Directory)
	setString(env, "TRAVIGO_TEMPFILE_DIRECTORY", &cfg.TempFileDirectory)
	setString(env, "TRAVIGO_NOTIFIER_KIND", &cfg.Notifier.Kind)
	setString(env, "TRAVIGO_NOTIFIER_QUEUE", &cfg.Notifier.Queue)
	setString(env, "TRAVIGO_NATS_URL", &cfg.Notifier.NATSURL)
	setString(env, "TRAVIGO_NOTIFIER_SUBJECT", &cfg.Notifier.Subject)
	setString(env, "TRAVIGO_LEADER_KEY", &cfg.LeaderElection.Key)
	setString(env, "TRAVIGO_ELASTICSEARCH_ADDRESS", &cfg.Elasticsearch.Address)
	setString(env, "TRAVIGO_ELASTICSEARCH_USERNAME", &cfg.Elasticsearch.Username)
	setString(env, "TRAVIGO_ELASTICSEARCH_PASSWORD", &cfg.Elasticsearch.Password)
	setString(env, "TRAVIGO_LISTEN", &cfg.Listen)

	if value := env["TRAVIGO_REDIS_DATABASE"]; value != "" {
		database, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRAVIGO_REDIS_DATABASE %q: %w", value, err)
		}
		cfg.Redis.Database = database
	}

	if value := env["TRAVIGO_IMPORT_DISABLED"]; value != "" {
		cfg.ImportDisabled = isTruthy(value)
	}

	if value := env["TRAVIGO_LEADER_ELECTION"]; value != "" {
		cfg.LeaderElection.Enabled = isTruthy(value)
	}

	durations := map[string]*time.Duration{
		"TRAVIGO_POLL_INTERVAL":             &cfg.PollInterval,
		"TRAVIGO_CACHE_IDLE_TTL":            &cfg.CacheIdleTTL,
		"TRAVIGO_HEALTH_ALLOWED_INACTIVITY": &cfg.HealthAllowedInactivity,
		"TRAVIGO_LEADER_LEASE_TTL":          &cfg.LeaderElection.LeaseTTL,
	}
	for name, target := range durations {
		value := env[name]
		if value == "" {
			continue
		}

		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		*target = duration
	}

	return nil
}

func setString(env map[string]string, name string, target *string) {
	if value := env[name]; value != "" {
		*target = value
	}
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}
