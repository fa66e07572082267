package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values. Each field corresponds to an
// environment variable. Business-rule values (quota, discount, threshold)
// carry defaults so the service can start with nothing but APP_ENV and
// APP_PORT set; everything else is tunable per deployment.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DailyDiscountQuota int     // maximum discounted bookings per calendar day (R2 rule)
	DiscountPercentage float64 // discount percentage applied under the R1 rule
	HighValueThreshold float64 // base price above which an order is discount-eligible

	Timezone       *time.Location // local timezone for "today" (quota keys, birthdays)
	TransactionTTL time.Duration  // idle lifetime of a transaction record in Redis

	SimulateBookingFailure bool // initial state of the booking failure simulation
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values cause
// the program to exit with a fatal log message. An unknown TIMEZONE is also
// fatal: silently falling back to UTC would shift every quota day boundary.
func Load() Config {
	tzName := envStr("TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", tzName, err)
	}
	return Config{
		Env:                    must("APP_ENV"),
		Port:                   must("APP_PORT"),
		DailyDiscountQuota:     envInt("DAILY_DISCOUNT_QUOTA", 100),
		DiscountPercentage:     envFloat("DISCOUNT_PERCENTAGE", 12.0),
		HighValueThreshold:     envFloat("HIGH_VALUE_THRESHOLD", 1000.0),
		Timezone:               loc,
		TransactionTTL:         time.Duration(envInt("TRANSACTION_TTL_SECONDS", 3600)) * time.Second,
		SimulateBookingFailure: envBool("SIMULATE_BOOKING_FAILURE", false),
	}
}

// Today returns the current date in the configured timezone as YYYY-MM-DD.
// Quota counter keys are derived from this value.
func (c Config) Today() string {
	return time.Now().In(c.Timezone).Format("2006-01-02")
}

// Now returns the current time in the configured timezone.
func (c Config) Now() time.Time {
	return time.Now().In(c.Timezone)
}

// SecondsUntilMidnight returns the number of seconds until the next local
// midnight. Used as the expiry for a freshly created quota counter so the
// counter resets itself at the day boundary.
func (c Config) SecondsUntilMidnight() int {
	now := time.Now().In(c.Timezone)
	midnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, c.Timezone)
	return int(midnight.Sub(now) / time.Second)
}

// MidnightTTL is SecondsUntilMidnight as a time.Duration.
func (c Config) MidnightTTL() time.Duration {
	return time.Duration(c.SecondsUntilMidnight()) * time.Second
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}
