package config

import "github.com/caarlos0/env/v10"

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort      string `env:"HTTP_PORT" envDefault:"5000"`
	DatabaseURL   string `env:"DATABASE_URL,required"`
	SessionSecret string `env:"SESSION_SECRET,required"`
	Login         string `env:"LOGIN,required"`
	Senha         string `env:"SENHA,required"`

	WAHABaseURL string `env:"WAHA_API,required"`
	WAHAAPIKey  string `env:"WAHA_API_KEY,required"`
	WAHASession string `env:"WAHA_SESSION" envDefault:"default"`
	WebhookKey  string `env:"WEBHOOK_KEY"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIEmbedding string `env:"OPENAI_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	SessionTTLHours int `env:"SESSION_TTL_HOURS" envDefault:"12"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`
	AlertEmail   string `env:"ALERT_EMAIL"`
}

// RequiredVars lista las variables obligatorias que validan los scripts operativos.
var RequiredVars = []string{
	"SESSION_SECRET",
	"DATABASE_URL",
	"WAHA_API",
	"WAHA_API_KEY",
	"LOGIN",
	"SENHA",
	"OPENAI_API_KEY",
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
