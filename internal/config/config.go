package config

import (
	"log"
	"os"
)

type Config struct {
	Port    string
	DBDSN   string
	LogFile string

	// Notification channels; an empty endpoint disables the channel.
	SMTPAddr      string // host:port
	SMTPFrom      string
	SMSGatewayURL string
	WebhookURL    string
}

func Load() Config {
	cfg := Config{
		Port:          getenv("PORT", "8080"),
		DBDSN:         getenv("DB_DSN", "voltmart.db"),
		LogFile:       getenv("LOG_FILE", "./voltmart.log"),
		SMTPAddr:      os.Getenv("SMTP_ADDR"),
		SMTPFrom:      getenv("SMTP_FROM", "no-reply@voltmart.test"),
		SMSGatewayURL: os.Getenv("SMS_GATEWAY_URL"),
		WebhookURL:    os.Getenv("WEBHOOK_URL"),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s SMTP=%v SMS=%v WEBHOOK=%v",
		cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.SMTPAddr != "", cfg.SMSGatewayURL != "", cfg.WebhookURL != "")
	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
