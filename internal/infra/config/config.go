package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port int `env:"PORT" envDefault:"3000"`

	CloudflareAccountID string `env:"CLOUDFLARE_ACCOUNT_ID,required,notEmpty"`
	CloudflareAPIToken  string `env:"CLOUDFLARE_API_TOKEN,required,notEmpty"`
	CallbackURL         string `env:"CALLBACK_URL,required,notEmpty"`

	EngineDir        string        `env:"ENGINE_DIR"        envDefault:"/facefusion"`
	EnginePython     string        `env:"ENGINE_PYTHON"     envDefault:"python"`
	EngineEntrypoint string        `env:"ENGINE_ENTRYPOINT" envDefault:"facefusion.py"`
	EngineTimeout    time.Duration `env:"ENGINE_TIMEOUT"    envDefault:"30m"`

	WorkDir     string `env:"WORK_DIR"      envDefault:"/tmp/facefusion-api"`
	KeepWorkDir bool   `env:"KEEP_WORK_DIR" envDefault:"false"`

	StreamRetentionDays int `env:"STREAM_RETENTION_DAYS" envDefault:"31"`

	MetricsPort    int    `env:"METRICS_PORT"    envDefault:"8083"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT" envDefault:"http://jaeger:4318/v1/traces"`
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
