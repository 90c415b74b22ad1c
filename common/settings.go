package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/birmacher/tutor-relay/logger"
	"gopkg.in/yaml.v3"
)

const (
	ProviderAzure     = "azure"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Generation holds the sampling parameters sent with every upstream request.
type Generation struct {
	Model            string  `yaml:"model"`
	Temperature      float32 `yaml:"temperature"`
	TopP             float32 `yaml:"top_p"`
	MaxTokens        int     `yaml:"max_tokens"`
	FrequencyPenalty float32 `yaml:"frequency_penalty"`
	PresencePenalty  float32 `yaml:"presence_penalty"`
}

type Upstream struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	APIVersion string `yaml:"api_version"`
	// Seconds allowed for the upstream to accept the request. Streaming itself is not bounded.
	APITimeout int `yaml:"api_timeout"`
	MaxRetries int `yaml:"max_retries"`
}

type Server struct {
	Addr          string `yaml:"addr"`
	MetricsAddr   string `yaml:"metrics_addr"`
	AllowedOrigin string `yaml:"allowed_origin"`
}

type Settings struct {
	Upstream         Upstream   `yaml:"upstream"`
	Generation       Generation `yaml:"generation"`
	Server           Server     `yaml:"server"`
	SystemPromptFile string     `yaml:"system_prompt_file"`
}

var settingsFilenames = []string{"relay.yml", "relay.yaml"}

func WithDefaultSettings() Settings {
	return Settings{
		Upstream: Upstream{
			Provider:   ProviderAzure,
			APIVersion: "2024-12-01-preview",
			APITimeout: 60,
			MaxRetries: 0,
		},
		Generation: Generation{
			Model:            DefaultModel(ProviderAzure),
			Temperature:      0.2,
			TopP:             0.9,
			MaxTokens:        300,
			FrequencyPenalty: 0.8,
			PresencePenalty:  0.6,
		},
		Server: Server{
			Addr:          ":8000",
			AllowedOrigin: "http://localhost:5173",
		},
	}
}

// WithYamlFile overlays the settings file at path onto the defaults. With an
// empty path the working directory is searched for relay.yml or relay.yaml.
// An explicit path that cannot be read is an error; a missing discovered
// file is not.
func WithYamlFile(path string) (Settings, error) {
	settings := WithDefaultSettings()

	if path == "" {
		for _, name := range settingsFilenames {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
		if path == "" {
			logger.Debug("No settings file found, using defaults")
			return settings, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	logger.Infof("Using settings from YAML file: %s", path)
	return settings, nil
}

// DefaultModel returns the model used for provider when none is configured
func DefaultModel(provider string) string {
	switch provider {
	case ProviderAzure, ProviderOpenAI:
		return "gpt-4.1"
	case ProviderAnthropic:
		return "claude-3-7-sonnet-latest"
	}
	return ""
}

// SelectProvider switches the upstream provider. The API key, endpoint and
// model configured for a different provider are dropped so they never reach
// the new one.
func (s *Settings) SelectProvider(provider string) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == s.Upstream.Provider {
		return
	}
	s.Upstream.Provider = provider
	s.Upstream.APIKey = ""
	s.Upstream.Endpoint = ""
	s.Generation.Model = DefaultModel(provider)
}

// ApplyEnv overlays environment variables onto the settings. A non-empty
// provider takes precedence over LLM_PROVIDER; credentials are then looked
// up for the resulting provider only.
func (s *Settings) ApplyEnv(getenv func(string) string, provider string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	s.Upstream.Provider = strings.ToLower(s.Upstream.Provider)
	selected := s.Upstream.Provider
	set(&selected, "LLM_PROVIDER")
	if provider != "" {
		selected = provider
	}
	s.SelectProvider(selected)

	switch s.Upstream.Provider {
	case ProviderAzure:
		set(&s.Upstream.APIKey, "AZURE_OPENAI_API_KEY")
		set(&s.Upstream.Endpoint, "AZURE_OPENAI_ENDPOINT")
		set(&s.Upstream.APIVersion, "AZURE_OPENAI_API_VERSION")
		set(&s.Generation.Model, "AZURE_OPENAI_MODEL")
	case ProviderOpenAI:
		set(&s.Upstream.APIKey, "OPENAI_API_KEY")
		set(&s.Upstream.Endpoint, "OPENAI_BASE_URL")
		set(&s.Generation.Model, "OPENAI_MODEL")
	case ProviderAnthropic:
		set(&s.Upstream.APIKey, "ANTHROPIC_API_KEY")
		set(&s.Upstream.Endpoint, "ANTHROPIC_BASE_URL")
		set(&s.Generation.Model, "ANTHROPIC_MODEL")
	}

	set(&s.Server.Addr, "RELAY_ADDR")
	set(&s.Server.MetricsAddr, "METRICS_ADDR")
	set(&s.Server.AllowedOrigin, "ALLOWED_ORIGIN")
	set(&s.SystemPromptFile, "SYSTEM_PROMPT_FILE")
}

// Validate checks the settings for values the relay cannot start with.
// Credentials are not checked; a missing key fails on the first upstream call.
func (s Settings) Validate() error {
	switch s.Upstream.Provider {
	case ProviderAzure, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported provider: %s", s.Upstream.Provider)
	}
	if s.Generation.Model == "" {
		return fmt.Errorf("model identifier cannot be empty")
	}
	if s.Generation.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.Generation.MaxTokens)
	}
	if s.Server.Addr == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if s.Upstream.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", s.Upstream.MaxRetries)
	}
	return nil
}
