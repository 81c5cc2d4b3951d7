package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Timeout         time.Duration `env:"SERVER_TIMEOUT" envDefault:"2m"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ThrottleLimit   int           `env:"SERVER_THROTTLE_LIMIT" envDefault:"50"`
	MaxUploadBytes  int64         `env:"SERVER_MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

// UpstreamConfig describes the OpenAI-compatible chat completions provider.
// An empty APIKey switches the generate endpoint into mock mode.
type UpstreamConfig struct {
	APIKey  string `env:"ARK_API_KEY"`
	BaseURL string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Model   string `env:"ARK_MODEL_ID" envDefault:"ep-20251103135155-sdk24"`
}

type TracingConfig struct {
	Enable       bool   `env:"TRACING_ENABLE"`
	ServiceName  string `env:"TRACING_SERVICE_NAME" envDefault:"image-edit"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
