package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppPort        int           `mapstructure:"APP_PORT"`
	BackendURL     string        `mapstructure:"BACKEND_URL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	SessionDBPath  string        `mapstructure:"SESSION_DB_PATH"`
	SessionTTL     time.Duration `mapstructure:"SESSION_TTL"`
	Greeting       string        `mapstructure:"GREETING"`
	AllowedOrigins []string      `mapstructure:"ALLOWED_ORIGINS"`
	SendRateLimit  float64       `mapstructure:"SEND_RATE_LIMIT"`
	SendRateBurst  int           `mapstructure:"SEND_RATE_BURST"`
	StaticDir      string        `mapstructure:"STATIC_DIR"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", 4200)
	v.SetDefault("BACKEND_URL", "http://localhost:8080")
	v.SetDefault("REQUEST_TIMEOUT", 120*time.Second)
	v.SetDefault("SESSION_DB_PATH", "./data/sessions.db")
	v.SetDefault("SESSION_TTL", 12*time.Hour)
	v.SetDefault("GREETING", "Hi! Ask me anything.")
	v.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:4200"})
	v.SetDefault("SEND_RATE_LIMIT", 2.0)
	v.SetDefault("SEND_RATE_BURST", 5)
	v.SetDefault("STATIC_DIR", "./web/dist")
	v.SetDefault("LOG_LEVEL", "INFO")
}

// LoadConfig reads defaults, an optional .env file and the environment, in
// increasing order of precedence.
func LoadConfig() (*Config, error) {
	return Load(viper.GetViper())
}

// Load is LoadConfig against a caller-owned viper instance, so the CLI can
// bind its flags before the values are resolved.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./web")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {

			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
