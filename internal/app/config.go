package app

import (
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"

	"github.com/xenking/smart-trolley/internal/domain/cart"
	"github.com/xenking/smart-trolley/internal/domain/checkout"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (TROLLEY_ prefix), a .env file, flags or YAML files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (TROLLEY_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImageBaseURL string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (TROLLEY_API_KEY_PEPPER)" flag:"api-key-pepper"`
	StoreName    string `default:"Smart Trolley" usage:"Store name printed on receipts" flag:"store-name"`
	Payment      PaymentConfig
	Checkout     CheckoutConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PaymentConfig is the static payee shown on the payment step.
type PaymentConfig struct {
	PayeeID   string `env:"PAYEE_ID" usage:"UPI payee address (pa)" flag:"payee-id"`
	PayeeName string `default:"Smart Trolley" usage:"Payee display name (pn)"`
	Currency  string `default:"INR" usage:"Payment currency (cu)"`
	Note      string `default:"Payment for Order" usage:"Transaction note (tn)"`
}

// CheckoutConfig controls checkout sessions and stock gating.
type CheckoutConfig struct {
	SessionTTL  time.Duration `default:"30m" usage:"Lifetime of an idle checkout session"`
	StockPolicy string        `env:"STOCK_POLICY" default:"advisory" usage:"Stock policy: advisory or strict"`
}

// RedisConfig selects the Redis session store. Sessions stay in process
// memory when neither URL nor Addr is set.
type RedisConfig struct {
	URL      string `usage:"Redis URL (TROLLEY_REDIS_URL or REDIS_URL)"`
	Addr     string `usage:"Redis address host:port"`
	Password string `usage:"Redis password"`
	DB       int    `default:"0" usage:"Redis database"`
}

// Enabled reports whether Redis is configured.
func (c RedisConfig) Enabled() bool {
	return c.URL != "" || c.Addr != ""
}

// KafkaConfig enables order event publishing.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers; publishing is disabled when empty"`
	Topic   string   `default:"trolley.orders" usage:"Order events topic"`
}

// RateLimitConfig controls the per-client token bucket.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads .env, then configuration from the environment, flags and
// YAML files, applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "TROLLEY",
		Files:     []string{"config.yaml", "/etc/trolley/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided variables such as
// DATABASE_URL, REDIS_URL and PORT onto the TROLLEY_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Redis.URL == "" {
		c.Redis.URL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set TROLLEY_DATABASE_URL or DATABASE_URL")
	}
	if strings.TrimSpace(c.Payment.PayeeID) == "" {
		return errors.New("payee id is required: set TROLLEY_PAYMENT_PAYEE_ID")
	}
	if _, err := cart.ParseStockPolicy(c.Checkout.StockPolicy); err != nil {
		return errors.Wrap(err, "checkout")
	}
	if c.Checkout.SessionTTL < 0 {
		return errors.Errorf("checkout session ttl %s is negative", c.Checkout.SessionTTL)
	}
	if c.RateLimit.Max <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit max and window must be positive")
	}
	return nil
}

// PaymentTarget converts the payment section.
func (c *Config) PaymentTarget() checkout.PaymentTarget {
	return checkout.PaymentTarget{
		PayeeID:   strings.TrimSpace(c.Payment.PayeeID),
		PayeeName: c.Payment.PayeeName,
		Currency:  c.Payment.Currency,
		Note:      c.Payment.Note,
	}
}

// StockPolicy returns the validated stock policy.
func (c *Config) StockPolicy() cart.StockPolicy {
	p, err := cart.ParseStockPolicy(c.Checkout.StockPolicy)
	if err != nil {
		return cart.StockAdvisory
	}
	return p
}
