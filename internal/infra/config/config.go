package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Client configures the terminal chat client.
type Client struct {
	Env            string
	LogLevel       string
	APIURL         string
	ViewerID       string
	ListingID      string
	HostID         string
	ConversationID string
	AllowHostChat  bool
	HTTPTimeout    time.Duration
	Location       *time.Location
}

// Stub configures the REST contract stub.
type Stub struct {
	Env              string
	LogLevel         string
	HTTPAddr         string
	Store            string
	MongoURI         string
	MongoDB          string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	OutboxInterval   time.Duration
}

// LoadClient parses client configuration from the current environment.
func LoadClient() (Client, error) {
	cfg := Client{
		Env:            getEnv("APP_ENV", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		APIURL:         getEnv("CHAT_API_URL", "http://localhost:8080/api"),
		ViewerID:       strings.TrimSpace(os.Getenv("CHAT_VIEWER_ID")),
		ListingID:      strings.TrimSpace(os.Getenv("CHAT_LISTING_ID")),
		HostID:         strings.TrimSpace(os.Getenv("CHAT_HOST_ID")),
		ConversationID: strings.TrimSpace(os.Getenv("CHAT_CONVERSATION_ID")),
	}
	allow, err := parseBoolEnv("CHAT_ALLOW_HOST", false)
	if err != nil {
		return Client{}, err
	}
	cfg.AllowHostChat = allow

	timeout, err := parseDurationEnv("CHAT_HTTP_TIMEOUT", 5*time.Second)
	if err != nil {
		return Client{}, err
	}
	cfg.HTTPTimeout = timeout

	cfg.Location = time.Local
	if tz := strings.TrimSpace(os.Getenv("CHAT_TZ")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Client{}, fmt.Errorf("invalid CHAT_TZ: %w", err)
		}
		cfg.Location = loc
	}

	if cfg.ConversationID == "" && (cfg.ListingID == "" || cfg.HostID == "") {
		return Client{}, fmt.Errorf("CHAT_LISTING_ID and CHAT_HOST_ID are required unless CHAT_CONVERSATION_ID is set")
	}
	return cfg, nil
}

// LoadStub parses stub server configuration from the current environment.
func LoadStub() (Stub, error) {
	cfg := Stub{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		Store:            strings.ToLower(getEnv("CHAT_STORE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "rentme_chat"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
	}
	for _, raw := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker := strings.TrimSpace(raw); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}
	interval, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Stub{}, err
	}
	cfg.OutboxInterval = interval

	switch cfg.Store {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Stub{}, fmt.Errorf("MONGO_URI is required when CHAT_STORE=mongo")
		}
	default:
		return Stub{}, fmt.Errorf("unsupported CHAT_STORE: %s", cfg.Store)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
