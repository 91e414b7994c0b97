package config

import (
	"strings"
	"time"

	"rental-inventory/pkg/database"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

type Config struct {
	Env             string        `envconfig:"ENV" default:"development"`
	Port            string        `envconfig:"APP_PORT" default:"8080"`
	GRPCPort        string        `envconfig:"GRPC_PORT" default:"9090"`
	Backend         string        `envconfig:"REPOSITORY_BACKEND" default:"postgres"`
	RefreshInterval time.Duration `envconfig:"STORE_REFRESH_INTERVAL" default:"5m"`

	DB     database.Config `envconfig:"DB"`
	Dynamo Dynamo          `envconfig:"DYNAMO"`
	Redis  Redis           `envconfig:"REDIS"`
	Kafka  Kafka           `envconfig:"KAFKA"`
	Auth   Auth            `envconfig:"AUTH"`
}

type Dynamo struct {
	Region          string `envconfig:"REGION" default:"ap-northeast-2"`
	Endpoint        string `envconfig:"ENDPOINT"`
	TablePrefix     string `envconfig:"TABLE_PREFIX" default:"rental-"`
	StaticAccessKey string `envconfig:"ACCESS_KEY"`
	StaticSecretKey string `envconfig:"SECRET_KEY"`
}

type Redis struct {
	Enabled  bool          `envconfig:"ENABLED" default:"false"`
	Addr     string        `envconfig:"ADDR" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	TTL      time.Duration `envconfig:"TTL" default:"60s"`
}

type Kafka struct {
	Enabled     bool     `envconfig:"ENABLED" default:"false"`
	Brokers     []string `envconfig:"BROKERS" default:"localhost:9092"`
	LedgerTopic string   `envconfig:"LEDGER_TOPIC" default:"inventory-ledger"`
	ScanTopic   string   `envconfig:"SCAN_TOPIC" default:"stock-scans"`
	GroupID     string   `envconfig:"GROUP_ID" default:"rental-inventory"`
}

type Auth struct {
	// JWTSecret enables bearer-token staff attribution when non-empty.
	JWTSecret string `envconfig:"JWT_SECRET"`
}

func Load(log *zap.Logger) *Config {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Error("Failed to read configuration from environment", zap.Error(err))
		panic("invalid configuration: " + err.Error())
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	switch cfg.Backend {
	case BackendPostgres, BackendDynamoDB, BackendMemory:
	default:
		log.Error("Unknown repository backend", zap.String("backend", cfg.Backend))
		panic("unknown REPOSITORY_BACKEND: " + cfg.Backend)
	}

	return &cfg
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
