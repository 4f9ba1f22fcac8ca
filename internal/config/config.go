// README: Config loader; reads .env when present, then env vars with defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	HTTP struct {
		Addr string `envconfig:"HTTP_ADDR" default:":8080"`
	}
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone string `envconfig:"TIMEZONE" default:"Asia/Taipei"`

	Line struct {
		ChannelSecret      string `envconfig:"LINE_CHANNEL_SECRET" required:"true"`
		ChannelAccessToken string `envconfig:"LINE_CHANNEL_ACCESS_TOKEN" required:"true"`
	}

	Sheets struct {
		SpreadsheetID   string `envconfig:"SHEETS_SPREADSHEET_ID" required:"true"`
		CredentialsFile string `envconfig:"SHEETS_CREDENTIALS_FILE"`
		Orders          string `envconfig:"ORDERS_TABLE" default:"Orders"`
		Archive         string `envconfig:"ARCHIVE_TABLE" default:"DeletedOrders"`
		Prices          string `envconfig:"PRICE_TABLE" default:"Prices"`
		Monthly         string `envconfig:"MONTHLY_TABLE" default:"MonthlySummary"`
		Customers       string `envconfig:"CUSTOMER_TABLE" default:"CustomerSummary"`
	}

	// Optional backends; empty disables them.
	Redis struct {
		Addr string `envconfig:"REDIS_ADDR"`
	}
	DB struct {
		DSN string `envconfig:"DB_DSN"`
	}

	Jobs struct {
		AggregateCron string `envconfig:"AGGREGATE_CRON" default:"*/30 * * * *"`
		ReminderCron  string `envconfig:"REMINDER_CRON" default:"0 9 * * *"`
	}

	Bank struct {
		Name    string `envconfig:"BANK_NAME"`
		Code    string `envconfig:"BANK_CODE"`
		Account string `envconfig:"BANK_ACCOUNT"`
	}
}

// Load reads envFiles (default ".env") if they exist and then the process
// environment. A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves Timezone; every date comparison in the bot uses it.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
