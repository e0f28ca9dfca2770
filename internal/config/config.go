package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath      string
	DataDir     string
	FiltersPath string
	FeedsCSV    string

	// Channel metadata for the output feed
	SiteURL         string
	FeedTitle       string
	FeedDescription string

	// Editorial settings
	Timezone   string
	MaxResults int
	TopCount   int

	// When set, exhausted caption retries fall back to the stock caption
	// instead of soft-accepting a repetitive candidate.
	CaptionStrict bool

	// External services
	OpenAIKey   string
	OpenAIModel string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
	TwilioTo         string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Processing settings
	WorkerCount int

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults,
// with credentials pulled from the environment.
func DefaultConfig() *Config {
	defaultLevel, _ := zerolog.ParseLevel(DefaultLogLevel)
	logLevel := GetEnvLogLevel("NEWSDESK_LOG_LEVEL", defaultLevel)

	return &Config{
		DBPath:      DefaultDBPath,
		DataDir:     DefaultDataDir,
		FiltersPath: DefaultFiltersPath,
		FeedsCSV:    DefaultFeedsCSV,

		SiteURL:         DefaultSiteURL,
		FeedTitle:       DefaultFeedTitle,
		FeedDescription: DefaultFeedDescription,

		Timezone:      DefaultTimezone,
		MaxResults:    DefaultMaxResults,
		TopCount:      DefaultTopCount,
		CaptionStrict: GetEnvBool("NEWSDESK_CAPTION_STRICT", false),

		OpenAIKey:   GetEnvString("OPENAI_API_KEY", ""),
		OpenAIModel: GetEnvString("NEWSDESK_OPENAI_MODEL", DefaultOpenAIModel),

		TwilioAccountSID: GetEnvString("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  GetEnvString("TWILIO_AUTH_TOKEN", ""),
		TwilioFrom:       GetEnvString("TWILIO_FROM_NUMBER", ""),
		TwilioTo:         GetEnvString("TWILIO_TO_NUMBER", ""),

		ServerHost:  DefaultServerHost,
		ServerPort:  DefaultServerPort,
		APIKey:      GetEnvString("NEWSDESK_API_KEY", ""),
		WorkerCount: DefaultWorkerCount,
		LogLevel:    logLevel,
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Location resolves the configured reference timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ArtifactPath returns the path of a named pipeline artifact in the data dir.
func (c *Config) ArtifactPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

// Filters holds the title filter configuration loaded from filters.json.
type Filters struct {
	ExcludedKeywords []string `json:"excluded_keywords"`
}

// LoadFilters reads the filter configuration. A missing file is not an
// error; it just means no titles are excluded.
func LoadFilters(path string) (*Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Filters{}, nil
		}
		return nil, fmt.Errorf("failed to read filters file: %w", err)
	}

	var f Filters
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse filters file %s: %w", path, err)
	}
	return &f, nil
}
