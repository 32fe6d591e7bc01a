package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	InternalToken string

	LogLevel  string
	LogFormat string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	CompanyName    string
	CompanyPhone   string
	CompanyAddress string

	FontRegular string
	FontBold    string

	GenRetries  int
	GenBackoff  time.Duration
	GenTimeout  time.Duration
	SendRetries int
	SendBackoff time.Duration

	ValidityDays int
	VATRateBP    int64
}

func MustLoad() Config {
	return Config{
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		DatabaseURL:   mustEnv("DATABASE_URL"),
		InternalToken: mustEnv("INTERNAL_TOKEN"),

		LogLevel:  env("LOG_LEVEL", "info"),
		LogFormat: env("LOG_FORMAT", "json"),

		OpenAIBaseURL: env("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:  mustEnv("OPENAI_API_KEY"),
		OpenAIModel:   env("OPENAI_MODEL", "gpt-4o-mini"),

		SMTPHost:     env("SMTP_HOST", ""),
		SMTPPort:     envInt("SMTP_PORT", 587),
		SMTPUser:     env("SMTP_USER", ""),
		SMTPPassword: env("SMTP_PASSWORD", ""),
		SMTPFrom:     env("SMTP_FROM", ""),

		CompanyName:    env("COMPANY_NAME", ""),
		CompanyPhone:   env("COMPANY_PHONE", ""),
		CompanyAddress: env("COMPANY_ADDRESS", ""),

		FontRegular: env("QUOTE_FONT_REGULAR", ""),
		FontBold:    env("QUOTE_FONT_BOLD", ""),

		GenRetries:  envInt("GEN_RETRIES", 2),
		GenBackoff:  envDuration("GEN_BACKOFF", time.Second),
		GenTimeout:  envDuration("GEN_TIMEOUT", 20*time.Second),
		SendRetries: envInt("SEND_RETRIES", 2),
		SendBackoff: envDuration("SEND_BACKOFF", time.Second),

		ValidityDays: envInt("VALIDITY_DAYS", 30),
		VATRateBP:    int64(envInt("VAT_RATE_BP", 1000)),
	}
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing env %s", k)
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("env %s: %v", k, err)
	}
	return d
}
