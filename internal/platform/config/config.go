package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// VNPayConfig holds the VNPay merchant credentials and endpoints.
type VNPayConfig struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	APIURL     string
	ReturnURL  string
}

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	EnableDBCheck bool
	JWTSecret     string
	JWTIssuer     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GatewayTimeout time.Duration
	InvoiceLockTTL time.Duration

	RateLimit string

	VNPay VNPayConfig
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "pos-backoffice")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_TIMEOUT", "15s")
	viper.SetDefault("INVOICE_LOCK_TTL", "30s")
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("VNPAY_TMN_CODE", "")
	viper.SetDefault("VNPAY_HASH_SECRET", "")
	viper.SetDefault("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	viper.SetDefault("VNPAY_API_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction")
	viper.SetDefault("VNPAY_RETURN_URL", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	gatewayTimeoutStr := viper.GetString("GATEWAY_TIMEOUT")
	gatewayTimeout, err := time.ParseDuration(gatewayTimeoutStr)
	if err != nil {
		gatewayTimeout = 15 * time.Second
		log.Printf("Warning: Invalid value for GATEWAY_TIMEOUT ('%s'). Defaulting to %s.\n", gatewayTimeoutStr, gatewayTimeout.String())
	}

	lockTTLStr := viper.GetString("INVOICE_LOCK_TTL")
	lockTTL, err := time.ParseDuration(lockTTLStr)
	if err != nil {
		lockTTL = 30 * time.Second
		log.Printf("Warning: Invalid value for INVOICE_LOCK_TTL ('%s'). Defaulting to %s.\n", lockTTLStr, lockTTL.String())
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RedisAddr = viper.GetString("REDIS_ADDR")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RedisDB = viper.GetInt("REDIS_DB")
	cfg.GatewayTimeout = gatewayTimeout
	cfg.InvoiceLockTTL = lockTTL
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.VNPay = VNPayConfig{
		TmnCode:    viper.GetString("VNPAY_TMN_CODE"),
		HashSecret: viper.GetString("VNPAY_HASH_SECRET"),
		PayURL:     viper.GetString("VNPAY_PAY_URL"),
		APIURL:     viper.GetString("VNPAY_API_URL"),
		ReturnURL:  viper.GetString("VNPAY_RETURN_URL"),
	}
	if cfg.VNPay.TmnCode == "" || cfg.VNPay.HashSecret == "" {
		log.Println("Warning: VNPAY_TMN_CODE / VNPAY_HASH_SECRET not set. VNPay payments will not function.")
	}

	return cfg, nil
}
