package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the encodeflow bridge.
// It is loaded once at process start and passed into the handlers; nothing
// re-reads the environment after that.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Media   MediaConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Tracing TracingConfig
	Metrics MetricsConfig
	Upload  UploadConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"encodeflow-bridge"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"0.1.0"`
	LogLevel    string `env:"APP_LOG_LEVEL" envDefault:"info"`
}

type HTTPConfig struct {
	Addr         string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"60s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
}

// MediaConfig holds the credentials and addressing for the remote
// media-encoding account.
type MediaConfig struct {
	TenantID           string `env:"MEDIA_TENANT_ID"`
	LoginEndpoint      string `env:"MEDIA_LOGIN_ENDPOINT" envDefault:"https://login.microsoftonline.com/"`
	ManagementEndpoint string `env:"MEDIA_MANAGEMENT_ENDPOINT" envDefault:"https://management.azure.com/"`
	ClientID           string `env:"MEDIA_CLIENT_ID"`
	ClientSecret       string `env:"MEDIA_CLIENT_SECRET"`
	SubscriptionID     string `env:"MEDIA_SUBSCRIPTION_ID"`
	ResourceGroup      string `env:"MEDIA_RESOURCE_GROUP"`
	AccountName        string `env:"MEDIA_ACCOUNT_NAME"`
	APIVersion         string `env:"MEDIA_API_VERSION" envDefault:"2022-07-01"`

	TransformName       string        `env:"MEDIA_TRANSFORM_NAME" envDefault:"Content Adaptive Multiple Bitrate MP4"`
	StreamingPolicyName string        `env:"MEDIA_STREAMING_POLICY" envDefault:"Predefined_ClearStreamingOnly"`
	UploadURLExpiry     time.Duration `env:"MEDIA_UPLOAD_URL_EXPIRY" envDefault:"1h"`
}

type KafkaConfig struct {
	Brokers          []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	LifecycleTopic   string        `env:"KAFKA_LIFECYCLE_TOPIC" envDefault:"encodeflow.lifecycle"`
	Retries          int           `env:"KAFKA_RETRIES" envDefault:"3"`
	RetryBackoff     time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"500ms"`
	CompressionCodec string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize        int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout     time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
}

// StorageConfig points at the object store that holds inbound blobs announced
// through bucket notifications.
type StorageConfig struct {
	Provider  string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint  string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region    string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	Bucket    string `env:"STORAGE_BUCKET" envDefault:"encodeflow-inbox"`
	AccessKey string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=encodeflow"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9102"`
}

type UploadConfig struct {
	MaxSizeBytes      int64 `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"10737418240"`
	MultipartMemBytes int64 `env:"UPLOAD_MULTIPART_MEM_BYTES" envDefault:"52428800"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Media.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (m MediaConfig) validate() error {
	var missing []string
	if m.TenantID == "" {
		missing = append(missing, "MEDIA_TENANT_ID")
	}
	if m.ClientID == "" {
		missing = append(missing, "MEDIA_CLIENT_ID")
	}
	if m.ClientSecret == "" {
		missing = append(missing, "MEDIA_CLIENT_SECRET")
	}
	if m.SubscriptionID == "" {
		missing = append(missing, "MEDIA_SUBSCRIPTION_ID")
	}
	if m.ResourceGroup == "" {
		missing = append(missing, "MEDIA_RESOURCE_GROUP")
	}
	if m.AccountName == "" {
		missing = append(missing, "MEDIA_ACCOUNT_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("media config incomplete, missing %v", missing)
	}
	return nil
}
