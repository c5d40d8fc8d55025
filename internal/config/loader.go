package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "RESERVATIONS_"

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort             int
	SQLiteDSN            string
	SessionSecret        string
	SessionTTL           time.Duration
	Location             *time.Location
	LogLevel             string
	SeedFile             string
	AMQPURL              string
	AMQPExchange         string
	BookingRatePerMinute int
	MetricsEnabled       bool
}

// Load parses configuration values from the current process environment.
//
// When the file named by RESERVATIONS_ENV_FILE (default ".env") exists it is read
// first; variables already present in the environment take precedence. Missing
// and invalid values are collected and reported together.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPPort:             8080,
		SQLiteDSN:            "reservations.db",
		SessionTTL:           24 * time.Hour,
		Location:             time.Local,
		LogLevel:             "info",
		AMQPExchange:         "reservations.notifications",
		BookingRatePerMinute: 30,
		MetricsEnabled:       true,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	if portValue := lookup("HTTP_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, envPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := lookup("SQLITE_DSN"); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := lookup("SESSION_SECRET"); secret == "" {
		missing = append(missing, envPrefix+"SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := lookup("SESSION_TTL"); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, envPrefix+"SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if zone := lookup("TIMEZONE"); zone != "" {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			invalid = append(invalid, envPrefix+"TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if level := strings.ToLower(lookup("LOG_LEVEL")); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			invalid = append(invalid, envPrefix+"LOG_LEVEL")
		}
	}

	cfg.SeedFile = lookup("SEED_FILE")
	cfg.AMQPURL = lookup("AMQP_URL")
	if exchange := lookup("AMQP_EXCHANGE"); exchange != "" {
		cfg.AMQPExchange = exchange
	}

	if rateValue := lookup("BOOKING_RATE_PER_MINUTE"); rateValue != "" {
		perMinute, err := strconv.Atoi(rateValue)
		if err != nil || perMinute < 0 {
			invalid = append(invalid, envPrefix+"BOOKING_RATE_PER_MINUTE")
		} else {
			cfg.BookingRatePerMinute = perMinute
		}
	}

	if enabled := lookup("METRICS_ENABLED"); enabled != "" {
		value, err := strconv.ParseBool(enabled)
		if err != nil {
			invalid = append(invalid, envPrefix+"METRICS_ENABLED")
		} else {
			cfg.MetricsEnabled = value
		}
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if len(invalid) > 0 {
		errs = append(errs, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", ")))
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	return cfg, nil
}

func lookup(name string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + name))
}

func loadEnvFile() error {
	path := lookup("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
