package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Matching    MatchingConfig    `toml:"matching"`
	Workflow    WorkflowConfig    `toml:"workflow"`
	Temporal    TemporalConfig    `toml:"temporal"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Gemini  GeminiConfig  `toml:"gemini"`
}

// SpotifyConfig contains Spotify API credentials and, after login, the
// persisted OAuth tokens.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenExpiry  time.Time `toml:"token_expiry,omitempty"`
}

// Map converts the credentials to the map shape the catalog constructor takes.
func (s SpotifyConfig) Map() map[string]string {
	m := map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
		"access_token":  s.AccessToken,
		"refresh_token": s.RefreshToken,
	}
	if !s.TokenExpiry.IsZero() {
		m["token_expiry"] = s.TokenExpiry.Format(time.RFC3339)
	}
	return m
}

// Update stores the tokens from a completed OAuth flow.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidCredentials)
	}
	s.AccessToken = token.AccessToken
	s.RefreshToken = token.RefreshToken
	s.TokenExpiry = token.Expiry
	return nil
}

// GeminiConfig contains credentials for the AI disambiguation service.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// MatchingConfig contains candidate scoring and disambiguation thresholds.
//
// All values are policy knobs, not hardcoded behavior: Threshold is the
// minimum acceptable score, Margin the gap required for an unambiguous top
// candidate, AIFloor the minimum score that justifies an AI escalation,
// ExactCutoff the score at or above which a match is tagged exact.
type MatchingConfig struct {
	Threshold   float64 `toml:"threshold"`
	Margin      float64 `toml:"margin"`
	AIFloor     float64 `toml:"ai_floor"`
	ExactCutoff float64 `toml:"exact_cutoff"`
	TopN        int     `toml:"top_n"`
	UseAI       bool    `toml:"use_ai"`
}

// WorkflowConfig selects the execution backend and bounds pipeline runtime.
type WorkflowConfig struct {
	// Mode is "standalone" or "temporal".
	Mode string `toml:"mode"`
	// TimeoutBudgetSeconds bounds a whole pipeline run. Keep it strictly
	// below any host-imposed ceiling (e.g. 55 under a 60s function limit).
	TimeoutBudgetSeconds int `toml:"timeout_budget_seconds"`
}

// TemporalConfig contains durable execution engine connection settings.
type TemporalConfig struct {
	Host      string `toml:"host"`
	Namespace string `toml:"namespace"`
	TaskQueue string `toml:"task_queue"`
}

// DatabaseConfig contains search cache database settings.
type DatabaseConfig struct {
	Path            string `toml:"path"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	CacheTTLMinutes int    `toml:"cache_ttl_minutes"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// SaveConfig writes the configuration back to path as TOML.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
