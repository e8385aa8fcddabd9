/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables. Monetary values are in
// the smallest currency unit.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	AccessTokenSecret          string `mapstructure:"ACCESS_TOKEN_SECRET"`
	TokenTTLMinutes            int    `mapstructure:"TOKEN_TTL_MINUTES"`
	MinTransferAmount          int64  `mapstructure:"MIN_TRANSFER_AMOUNT"`
	SendMoneyFeeThreshold      int64  `mapstructure:"SEND_MONEY_FEE_THRESHOLD"`
	SendMoneyFlatFee           int64  `mapstructure:"SEND_MONEY_FLAT_FEE"`
	CashOutFeeBasisPoints      int64  `mapstructure:"CASH_OUT_FEE_BASIS_POINTS"`
	TransferRateLimitPerMinute int    `mapstructure:"TRANSFER_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("TOKEN_TTL_MINUTES", 60)
	viper.SetDefault("MIN_TRANSFER_AMOUNT", 50)
	viper.SetDefault("SEND_MONEY_FEE_THRESHOLD", 100)
	viper.SetDefault("SEND_MONEY_FLAT_FEE", 5)
	viper.SetDefault("CASH_OUT_FEE_BASIS_POINTS", 150)
	viper.SetDefault("TRANSFER_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("ACCESS_TOKEN_SECRET", "ACCESS_TOKEN_SECRET", "JWT_SECRET")
	_ = viper.BindEnv("TOKEN_TTL_MINUTES")
	_ = viper.BindEnv("MIN_TRANSFER_AMOUNT")
	_ = viper.BindEnv("SEND_MONEY_FEE_THRESHOLD")
	_ = viper.BindEnv("SEND_MONEY_FLAT_FEE")
	_ = viper.BindEnv("CASH_OUT_FEE_BASIS_POINTS")
	_ = viper.BindEnv("TRANSFER_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}
	config.AccessTokenSecret = strings.TrimSpace(config.AccessTokenSecret)

	if config.TokenTTLMinutes <= 0 {
		config.TokenTTLMinutes = 60
	}
	if config.MinTransferAmount < 0 {
		log.Printf("level=warn component=config msg=\"negative minimum transfer amount configured; coercing to zero\" amount=%d", config.MinTransferAmount)
		config.MinTransferAmount = 0
	}
	if config.SendMoneyFlatFee < 0 {
		log.Printf("level=warn component=config msg=\"negative send-money fee configured; coercing to zero\" fee=%d", config.SendMoneyFlatFee)
		config.SendMoneyFlatFee = 0
	}
	if config.CashOutFeeBasisPoints < 0 {
		log.Printf("level=warn component=config msg=\"negative cash-out fee configured; coercing to zero\" basis_points=%d", config.CashOutFeeBasisPoints)
		config.CashOutFeeBasisPoints = 0
	}
	if config.CashOutFeeBasisPoints > 10000 {
		log.Printf("level=warn component=config msg=\"cash-out fee too high; capping at 100 percent\" basis_points=%d", config.CashOutFeeBasisPoints)
		config.CashOutFeeBasisPoints = 10000
	}
	if config.TransferRateLimitPerMinute <= 0 {
		config.TransferRateLimitPerMinute = 30
	}

	return
}
