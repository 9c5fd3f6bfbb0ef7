package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Stripe   StripeConfig
	Facebook FacebookConfig
	Delivery DeliveryConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type StripeConfig struct {
	// SecretKey authenticates re-fetch calls against the Stripe API.
	SecretKey string
	// WebhookSecret is the signing secret for the webhook endpoint.
	WebhookSecret string
	// APIBaseURL is overridable for tests.
	APIBaseURL string
	// SignatureTolerance bounds the age of a signed timestamp.
	SignatureTolerance time.Duration
}

type FacebookConfig struct {
	PixelID        string
	AccessToken    string
	TestEventCode  string
	EventSourceURL string
	APIVersion     string
	// APIBaseURL is overridable for tests.
	APIBaseURL string
}

type DeliveryConfig struct {
	MaxAttempts int
	Timeout     time.Duration
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// DefaultEventSourceURL is used for attribution metadata when no
// override is configured.
const DefaultEventSourceURL = "https://checkout.stripe.com"

// Load reads configuration from the environment once at startup.
// Relay credentials (Stripe secrets, pixel id, access token) may be
// absent here so the health endpoint works on an unconfigured
// instance; ValidateRelay reports them per-request instead.
func Load() (*Config, error) {
	getDefault := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	getInt := func(key string, fallback int) (int, error) {
		val := os.Getenv(key)
		if val == "" {
			return fallback, nil
		}
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %q", key, val)
		}
		return parsed, nil
	}

	maxAttempts, err := getInt("DELIVERY_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	timeoutSeconds, err := getInt("DELIVERY_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	backoffBaseMs, err := getInt("DELIVERY_BACKOFF_BASE_MS", 250)
	if err != nil {
		return nil, err
	}
	backoffMaxMs, err := getInt("DELIVERY_BACKOFF_MAX_MS", 2000)
	if err != nil {
		return nil, err
	}
	toleranceSeconds, err := getInt("STRIPE_SIGNATURE_TOLERANCE_SECONDS", 300)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Host: getDefault("SERVER_HOST", "0.0.0.0"),
			Port: getDefault("SERVER_PORT", "8080"),
		},
		Stripe: StripeConfig{
			SecretKey:          os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret:      os.Getenv("STRIPE_WEBHOOK_SECRET"),
			APIBaseURL:         getDefault("STRIPE_API_BASE_URL", "https://api.stripe.com"),
			SignatureTolerance: time.Duration(toleranceSeconds) * time.Second,
		},
		Facebook: FacebookConfig{
			PixelID:        os.Getenv("FB_PIXEL_ID"),
			AccessToken:    os.Getenv("FB_ACCESS_TOKEN"),
			TestEventCode:  os.Getenv("FB_TEST_EVENT_CODE"),
			EventSourceURL: getDefault("EVENT_SOURCE_URL", DefaultEventSourceURL),
			APIVersion:     getDefault("FB_API_VERSION", "v18.0"),
			APIBaseURL:     getDefault("FB_API_BASE_URL", "https://graph.facebook.com"),
		},
		Delivery: DeliveryConfig{
			MaxAttempts: maxAttempts,
			Timeout:     time.Duration(timeoutSeconds) * time.Second,
			BackoffBase: time.Duration(backoffBaseMs) * time.Millisecond,
			BackoffMax:  time.Duration(backoffMaxMs) * time.Millisecond,
		},
	}

	return config, nil
}

// ValidateRelay reports which relay credentials are missing. The
// webhook handler calls this per request and answers 500 until the
// instance is fully configured.
func (c *Config) ValidateRelay() error {
	var missing []string
	if c.Stripe.SecretKey == "" {
		missing = append(missing, "STRIPE_SECRET_KEY")
	}
	if c.Stripe.WebhookSecret == "" {
		missing = append(missing, "STRIPE_WEBHOOK_SECRET")
	}
	if c.Facebook.PixelID == "" {
		missing = append(missing, "FB_PIXEL_ID")
	}
	if c.Facebook.AccessToken == "" {
		missing = append(missing, "FB_ACCESS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}
