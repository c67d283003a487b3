package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Remote store (Admin GraphQL API)
	ShopDomain    string `envconfig:"SHOP_DOMAIN" required:"true"`
	AdminAPIToken string `envconfig:"ADMIN_API_TOKEN" required:"true"`
	APIVersion    string `envconfig:"API_VERSION" default:"2024-07"`
	LocationID    string `envconfig:"LOCATION_ID"` // empty: resolve primary location per event

	// Webhook intake
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" required:"true"`

	// Temp-variant eviction
	TempVariantCeiling int           `envconfig:"TEMP_VARIANT_CEILING" default:"40"`
	EvictionBuffer     time.Duration `envconfig:"EVICTION_BUFFER" default:"72h"`
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"0"` // 0: external scheduler only

	// Incident store
	AWSRegion         string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	IncidentTableName string `envconfig:"INCIDENT_TABLE_NAME" default:"reconciliation-incidents"`

	// Lifecycle events
	KafkaBrokers string `envconfig:"KAFKA_BROKERS"` // empty: publishing disabled
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"inventory-events"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LocalMode bool   `envconfig:"LOCAL_MODE" default:"true"` // run without AWS (incidents logged only)
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
