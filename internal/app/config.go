package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/molino-storefront/internal/domain/checkout"
	"github.com/xenking/molino-storefront/internal/events"
	"github.com/xenking/molino-storefront/internal/mail"
	"github.com/xenking/molino-storefront/internal/playlab"
	"github.com/xenking/molino-storefront/internal/square"
	"github.com/xenking/molino-storefront/internal/storage/postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (MOLINO_ prefix), flags, or YAML config files.
// Vendor credentials are optional at startup: the routes that need them
// answer 500 until they are set.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL URL for sessions and the checkout ledger; in-memory when empty (MOLINO_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Database    postgres.PoolConfig

	Square   square.Config
	Playlab  playlab.Config
	Kafka    events.Config
	Mail     mail.Config
	Checkout CheckoutConfig
	Catalog  CatalogConfig
	Session  SessionConfig

	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CheckoutConfig is the checkout policy.
type CheckoutConfig struct {
	CompleteOrders bool          `default:"false" usage:"Mark paid orders COMPLETED instead of leaving them OPEN for staff" flag:"complete-orders"`
	ScheduleLead   time.Duration `default:"30m" usage:"Minimum lead time for scheduled pickups"`
	ASAPEstimate   time.Duration `default:"15m" usage:"Pickup estimate for ASAP orders"`
	OrderSource    string        `default:"Online Ordering Site" usage:"Order source recorded on vendor orders"`
	LedgerLimit    int           `default:"10000" usage:"Checkout entries kept in memory when no database is configured"`
}

func (c CheckoutConfig) policy() checkout.Config {
	return checkout.Config{
		CompleteOrders: c.CompleteOrders,
		ScheduleLead:   c.ScheduleLead,
		ASAPEstimate:   c.ASAPEstimate,
		OrderSource:    c.OrderSource,
	}
}

// CatalogConfig controls menu reads.
type CatalogConfig struct {
	CacheTTL    time.Duration `default:"1m" usage:"Menu cache lifetime; 0 disables caching" flag:"catalog-cache-ttl"`
	Placeholder string        `default:"/images/menu-placeholder.jpg" usage:"Image for items without a catalog image"`
}

// SessionConfig controls cart and chat session state.
type SessionConfig struct {
	TTL           time.Duration `default:"168h" usage:"Idle lifetime of cart and chat state" flag:"session-ttl"`
	SweepInterval time.Duration `default:"10m" usage:"How often expired session state is removed"`
	SecureCookies bool          `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookies"`
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MOLINO",
		Files:     []string{"config.yaml", "/etc/molino/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)
	return &cfg, nil
}

// applyPlatformDefaults fills unset values from the unprefixed variables the
// vendors document and hosting platforms provide.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	fill(&c.DatabaseURL, "DATABASE_URL")

	fill(&c.Square.AccessToken, "SQUARE_ACCESS_TOKEN")
	fill(&c.Square.LocationID, "SQUARE_LOCATION_ID", "NEXT_PUBLIC_SQUARE_LOCATION_ID")
	fill(&c.Square.ApplicationID, "SQUARE_APPLICATION_ID", "NEXT_PUBLIC_SQUARE_APPLICATION_ID")
	if v := getenv("SQUARE_ENVIRONMENT"); v != "" && getenv("MOLINO_SQUARE_ENVIRONMENT") == "" {
		c.Square.Environment = v
	}

	fill(&c.Playlab.ProjectID, "PLAYLAB_PROJECT_ID", "NEXT_PUBLIC_PLAYLAB_PROJECT_ID")
	fill(&c.Playlab.APIKey, "PLAYLAB_API_KEY", "NEXT_PUBLIC_PLAYLAB_API_KEY")

	fill(&c.Mail.APIKey, "SENDGRID_API_KEY")
	if len(c.Kafka.Brokers) == 0 {
		if v := getenv("KAFKA_BROKERS"); v != "" {
			c.Kafka.Brokers = strings.Split(v, ",")
		}
	}

	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
