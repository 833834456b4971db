package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var lookupEnv = os.LookupEnv

// loadDotEnv seeds the process environment from ./.env when present.
// Variables already set win over the file.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}
}

// parseEnv overlays Config with environment variables. Malformed numbers or
// durations panic, same as a malformed JSON file.
//
// EMAIL_USER and EMAIL_PASS are accepted as aliases for SMTP_USER and
// SMTP_PASSWORD.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				panic(err)
			}
			*dst = n
		}
	}

	str(&config.HTTPAddr, "HTTP_ADDR")
	if port, ok := lookup("PORT"); ok && port != "" && config.HTTPAddr == ":5000" {
		config.HTTPAddr = ":" + port
	}
	str(&config.Storage, "STORAGE")
	str(&config.DatabaseDSN, "DATABASE_DSN")
	str(&config.SecretKey, "JWT_SECRET")
	dur(&config.TokenValidity, "TOKEN_VALIDITY")
	dur(&config.ResetCodeValidity, "RESET_CODE_VALIDITY")
	num(&config.BcryptCost, "BCRYPT_COST")
	num(&config.HashWorkers, "HASH_WORKERS")
	str(&config.SMTPHost, "SMTP_HOST")
	num(&config.SMTPPort, "SMTP_PORT")
	str(&config.SMTPUser, "SMTP_USER", "EMAIL_USER")
	str(&config.SMTPPassword, "SMTP_PASSWORD", "EMAIL_PASS")
	str(&config.MailFrom, "MAIL_FROM")
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		config.CORSOrigins = splitList(v)
	}
	dur(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	str(&config.LogLevel, "LOG_LEVEL")
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
