package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Token   TokenConfig
	Invoice InvoiceConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type TokenConfig struct {
	// Prefix for all issued token numbers, e.g. "KBR" produces "KBR-001"
	Prefix string
	// Pad is the minimum width of the numeric suffix; longer values grow past it
	Pad int
}

type InvoiceConfig struct {
	// Prefix for synthesized invoice numbers, e.g. "KBR" produces "KBR-INV-202501-123456"
	Prefix string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	accessExpiry, err := time.ParseDuration(viper.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(viper.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	config := &Config{
		App: AppConfig{
			Port: viper.GetString("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Name:     viper.GetString("DB_NAME"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		Token: TokenConfig{
			Prefix: viper.GetString("TOKEN_PREFIX"),
			Pad:    viper.GetInt("TOKEN_PAD"),
		},
		Invoice: InvoiceConfig{
			Prefix: viper.GetString("INVOICE_PREFIX"),
		},
	}

	if config.Token.Prefix == "" {
		config.Token.Prefix = "KBR"
	}
	if config.Token.Pad <= 0 {
		config.Token.Pad = 3
	}
	if config.Invoice.Prefix == "" {
		config.Invoice.Prefix = config.Token.Prefix
	}

	return config, nil
}
