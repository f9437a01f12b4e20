package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures the full runtime configuration for the intake service.
type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	Kafka   KafkaConfig
	Storage StorageConfig
	Speech  SpeechConfig
	Probe   ProbeConfig
	Audit   AuditConfig
	Tracing TracingConfig
	Metrics MetricsConfig
}

type AppConfig struct {
	Name        string `env:"APP_NAME" envDefault:"discoveryflow-intake"`
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

type KafkaConfig struct {
	Brokers            []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	NotificationsTopic string        `env:"KAFKA_NOTIFICATIONS_TOPIC" envDefault:"discoveryflow.notifications"`
	NotificationsGroup string        `env:"KAFKA_NOTIFICATIONS_GROUP" envDefault:"discoveryflow-intake"`
	ProcessedTopic     string        `env:"KAFKA_PROCESSED_TOPIC" envDefault:"discoveryflow.processed"`
	Retries            int           `env:"KAFKA_RETRIES" envDefault:"3"`
	RetryBackoff       time.Duration `env:"KAFKA_RETRY_BACKOFF" envDefault:"500ms"`
	CompressionCodec   string        `env:"KAFKA_COMPRESSION_CODEC" envDefault:"snappy"`
	BatchSize          int           `env:"KAFKA_BATCH_SIZE" envDefault:"100"`
	BatchTimeout       time.Duration `env:"KAFKA_BATCH_TIMEOUT" envDefault:"1s"`
	FetchMinBytes      int           `env:"KAFKA_FETCH_MIN_BYTES" envDefault:"1"`
	FetchMaxBytes      int           `env:"KAFKA_FETCH_MAX_BYTES" envDefault:"10485760"`
	FetchMaxWait       time.Duration `env:"KAFKA_FETCH_MAX_WAIT" envDefault:"1s"`
}

type StorageConfig struct {
	Provider     string `env:"STORAGE_PROVIDER" envDefault:"minio"`
	Endpoint     string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	Region       string `env:"STORAGE_REGION" envDefault:"us-east-1"`
	OutputBucket string `env:"STORAGE_OUTPUT_BUCKET" envDefault:"discovery-processed"`
	AccessKey    string `env:"STORAGE_ACCESS_KEY" envDefault:"minioadmin"`
	SecretKey    string `env:"STORAGE_SECRET_KEY" envDefault:"minioadmin"`
	UseSSL       bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
}

type SpeechConfig struct {
	Endpoint   string        `env:"SPEECH_ENDPOINT" envDefault:"http://localhost:9200/v2/speech:recognize"`
	Recognizer string        `env:"SPEECH_RECOGNIZER" envDefault:"recognizers/discovery-recognizer"`
	Language   string        `env:"SPEECH_LANGUAGE" envDefault:"en-US"`
	Model      string        `env:"SPEECH_MODEL" envDefault:"long"`
	Timeout    time.Duration `env:"SPEECH_TIMEOUT" envDefault:"5m"`
}

type ProbeConfig struct {
	Binary  string        `env:"PROBE_BINARY" envDefault:"ffprobe"`
	Timeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"30s"`
}

type AuditConfig struct {
	ObjectKey      string        `env:"AUDIT_OBJECT_KEY" envDefault:"logs/logs.txt"`
	MaxAttempts    int           `env:"AUDIT_MAX_ATTEMPTS" envDefault:"5"`
	InitialBackoff time.Duration `env:"AUDIT_INITIAL_BACKOFF" envDefault:"500ms"`
}

type TracingConfig struct {
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	Insecure     bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	SampleRatio  float64 `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1.0"`
	ResourceAttr string  `env:"OTEL_RESOURCE_ATTRIBUTES" envDefault:"service.namespace=discoveryflow"`
}

type MetricsConfig struct {
	Addr string `env:"METRICS_ADDR" envDefault:":9102"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
