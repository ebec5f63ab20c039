package config

import (
	"log"

	"github.com/spf13/viper"
)

type GitHubConfig struct {
	Token      string `mapstructure:"token"`
	APIBaseURL string `mapstructure:"api_base_url"`
}

type EmailConfig struct {
	From              string `mapstructure:"from"`
	SMTPHost          string `mapstructure:"smtp_host"`
	SMTPPort          int    `mapstructure:"smtp_port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	InviteURLTemplate string `mapstructure:"invite_url_template"`
}

type StripeConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type Config struct {
	DatabaseURL    string       `mapstructure:"database_url"`
	ServerPort     string       `mapstructure:"server_port"`
	JWTSecret      string       `mapstructure:"jwt_secret"`
	CatalogPath    string       `mapstructure:"catalog_path"`
	AllowedOrigins []string     `mapstructure:"allowed_origins"`
	GitHub         GitHubConfig `mapstructure:"github"`
	Email          EmailConfig  `mapstructure:"email"`
	Stripe         StripeConfig `mapstructure:"stripe"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}

	if config.JWTSecret == "" {
		log.Fatal("JWT secret must be set in the config file")
	}

	if config.CatalogPath == "" {
		config.CatalogPath = "catalog.yaml"
	}

	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"http://localhost:3000"}
	}

	if config.GitHub.APIBaseURL == "" {
		config.GitHub.APIBaseURL = "https://api.github.com"
	}

	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Email.InviteURLTemplate == "" {
		config.Email.InviteURLTemplate = "https://blockkit.dev/team/accept?token=%s"
	}

	return &config
}
