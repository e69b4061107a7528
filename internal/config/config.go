package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration read from the environment
type Config struct {
	Port         int    `env:"PORT"          envDefault:"3000"`
	PortAttempts int    `env:"PORT_ATTEMPTS" envDefault:"50"`
	PublicDir    string `env:"PUBLIC_DIR"    envDefault:"public"`
	DataDir      string `env:"DATA_DIR"      envDefault:"data"`
	OwnerName    string `env:"OWNER_NAME"    envDefault:"Prashant Sir"`

	DatabaseURL            string        `env:"DATABASE_URL"`
	DatabaseName           string        `env:"DATABASE_NAME"`
	DatabaseConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"5s"`

	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"15s"`

	SMTP   SMTP
	Twilio Twilio
	Log    Log
}

// SMTP configures the email channel
type SMTP struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT"`
	User      string `env:"SMTP_USER"`
	Password  string `env:"SMTP_PASS"`
	Recipient string `env:"RECIPIENT_EMAIL"`
	From      string `env:"FROM_EMAIL"`
}

// Sender returns the envelope sender, falling back to the SMTP user
func (s SMTP) Sender() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}

func (s SMTP) complete() bool {
	return s.Host != "" && s.Port != 0 && s.User != "" && s.Password != "" && s.Recipient != ""
}

// Twilio configures the WhatsApp channel
type Twilio struct {
	AccountSID         string `env:"TWILIO_ACCOUNT_SID"`
	AuthToken          string `env:"TWILIO_AUTH_TOKEN"`
	From               string `env:"TWILIO_WHATSAPP_FROM"`
	DefaultCountryCode string `env:"TWILIO_DEFAULT_COUNTRY_CODE" envDefault:"+91"`
	APIURL             string `env:"TWILIO_API_URL"              envDefault:"https://api.twilio.com"`
}

func (t Twilio) complete() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != ""
}

// Log configures the logger
type Log struct {
	Level  string `env:"LOG_LEVEL"  envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"console"`
	File   string `env:"LOG_FILE"`
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PortAttempts < 1 {
		cfg.PortAttempts = 1
	}
	return &cfg, nil
}

// Email returns the SMTP settings, or nil when the email channel is not fully configured
func (c *Config) Email() *SMTP {
	if !c.SMTP.complete() {
		return nil
	}
	s := c.SMTP
	return &s
}

// Chat returns the Twilio settings, or nil when the WhatsApp channel is not fully configured
func (c *Config) Chat() *Twilio {
	if !c.Twilio.complete() {
		return nil
	}
	t := c.Twilio
	return &t
}
