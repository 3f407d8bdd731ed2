package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	API struct {
		BaseURL         string
		Timeout         time.Duration
		WithCredentials bool
	}
	Notify struct {
		ErrorTitle   string
		ErrorMessage string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	_ = godotenv.Load() // optional .env, existing environment wins

	v := viper.New()
	v.SetEnvPrefix("AUTHCLIENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.baseurl", "http://localhost:8001/api/")
	v.SetDefault("api.timeout", "30s")
	v.SetDefault("api.withcredentials", true)
	v.SetDefault("notify.errortitle", "Oops...")
	v.SetDefault("notify.errormessage", "We have a problem with the network, please try again later")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return fmt.Errorf("api base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api base url must be http or https, got %q", base)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	return nil
}
