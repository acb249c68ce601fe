package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                          string        `mapstructure:"PORT"`
	DatabasePath                  string        `mapstructure:"DATABASE_PATH"`
	SpreadsheetID                 string        `mapstructure:"SPREADSHEET_ID"`
	GoogleCredentialsFile         string        `mapstructure:"GOOGLE_CREDENTIALS_FILE"`
	CookSheet                     string        `mapstructure:"COOK_SHEET"`
	SheetsTimeout                 time.Duration `mapstructure:"SHEETS_TIMEOUT"`
	CacheTTL                      time.Duration `mapstructure:"CACHE_TTL"`
	WindowRows                    int           `mapstructure:"WINDOW_ROWS"`
	Timezone                      string        `mapstructure:"TIMEZONE"`
	SheetDateLayouts              []string      `mapstructure:"SHEET_DATE_LAYOUTS"`
	CookieSecret                  string        `mapstructure:"COOKIE_SECRET"`
	CSRFKey                       string        `mapstructure:"CSRF_KEY"`
	SecureCookies                 bool          `mapstructure:"SECURE_COOKIES"`
	TrustedOrigins                []string      `mapstructure:"TRUSTED_ORIGINS"`
	DiscordBotToken               string        `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordNotificationsChannelID string        `mapstructure:"DISCORD_NOTIFICATIONS_CHANNEL_ID"`
	LogLevel                      string        `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env file", "error", err)
	}

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DATABASE_PATH", "faellesspisning.db")
	viper.SetDefault("SPREADSHEET_ID", "1xDN0cD_-LM6DRp7qqW9vNfHd6kxsj9W_BjZD2aPFTPY")
	viper.SetDefault("GOOGLE_CREDENTIALS_FILE", "service-account.json")
	viper.SetDefault("COOK_SHEET", "KOK")
	viper.SetDefault("SHEETS_TIMEOUT", 10*time.Second)
	viper.SetDefault("CACHE_TTL", 10*time.Minute)
	viper.SetDefault("WINDOW_ROWS", 30)
	viper.SetDefault("TIMEZONE", "Europe/Copenhagen")
	viper.SetDefault("SHEET_DATE_LAYOUTS", []string{"2006-01-02", "1/2/2006", "02-01-2006"})
	viper.SetDefault("TRUSTED_ORIGINS", []string{"localhost:8080", "127.0.0.1:8080"})
	viper.SetDefault("LOG_LEVEL", "info")

	viper.BindEnv("COOKIE_SECRET")
	viper.BindEnv("CSRF_KEY")
	viper.BindEnv("SECURE_COOKIES")
	viper.BindEnv("DISCORD_BOT_TOKEN")
	viper.BindEnv("DISCORD_NOTIFICATIONS_CHANNEL_ID")

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &config, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
