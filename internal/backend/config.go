package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxOutputTokens = 2048
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// Config describes one OpenAI-compatible endpoint. It is immutable once the
// roster is loaded.
type Config struct {
	ID                   string      `yaml:"id" json:"id"`
	DisplayName          string      `yaml:"display_name" json:"display_name"`
	APIKey               string      `yaml:"api_key" json:"-"`
	BaseURL              string      `yaml:"base_url" json:"base_url"`
	Model                string      `yaml:"model" json:"model"`
	SystemPromptGenerate string      `yaml:"system_prompt_generate" json:"-"`
	SystemPromptExplain  string      `yaml:"system_prompt_explain" json:"-"`
	MaxOutputTokens      int         `yaml:"max_output_tokens" json:"max_output_tokens"`
	Retry                RetryConfig `yaml:"retry" json:"-"`
}

// RetryConfig opts a backend into retrying transient provider failures.
// MaxRetries of zero means a single attempt.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

type Defaults struct {
	BaseURL         string      `yaml:"base_url"`
	APIKey          string      `yaml:"api_key"`
	MaxOutputTokens int         `yaml:"max_output_tokens"`
	Retry           RetryConfig `yaml:"retry"`
}

// Roster is the parsed backends file.
type Roster struct {
	Defaults     Defaults `yaml:"defaults"`
	Preprocessor Config   `yaml:"preprocessor"`
	Backends     []Config `yaml:"backends"`
}

// LoadRoster reads the backends file at path. ${VAR} references are expanded
// from the environment before parsing.
func LoadRoster(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backends file: %w", err)
	}
	return ParseRoster(data)
}

func ParseRoster(data []byte) (*Roster, error) {
	var r Roster
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &r); err != nil {
		return nil, fmt.Errorf("parsing backends file: %w", err)
	}

	r.Preprocessor = r.Defaults.apply(r.Preprocessor)
	if err := r.Preprocessor.validate(); err != nil {
		return nil, fmt.Errorf("preprocessor: %w", err)
	}
	if r.Preprocessor.APIKey == "" {
		return nil, fmt.Errorf("preprocessor %q: api_key is required", r.Preprocessor.ID)
	}

	seen := make(map[string]struct{}, len(r.Backends))
	backends := make([]Config, 0, len(r.Backends))
	for i, b := range r.Backends {
		b = r.Defaults.apply(b)
		if err := b.validate(); err != nil {
			return nil, fmt.Errorf("backend %d: %w", i, err)
		}
		if _, dup := seen[b.ID]; dup {
			return nil, fmt.Errorf("backend %q: duplicate id", b.ID)
		}
		seen[b.ID] = struct{}{}

		if b.APIKey == "" {
			slog.Warn("skipping backend without credential", "backend_id", b.ID)
			continue
		}
		backends = append(backends, b)
	}
	r.Backends = backends

	return &r, nil
}

func (d Defaults) apply(c Config) Config {
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.APIKey == "" {
		c.APIKey = d.APIKey
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = d.MaxOutputTokens
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.DisplayName == "" {
		c.DisplayName = c.ID
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = d.Retry.InitialInterval
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = d.Retry.MaxInterval
	}
	if c.Retry.InitialInterval == 0 {
		c.Retry.InitialInterval = DefaultInitialInterval
	}
	if c.Retry.MaxInterval == 0 {
		c.Retry.MaxInterval = DefaultMaxInterval
	}
	return c
}

func (c Config) validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.Model == "" {
		errs = append(errs, fmt.Errorf("%q: model is required", c.ID))
	}
	if c.MaxOutputTokens < 0 {
		errs = append(errs, fmt.Errorf("%q: max_output_tokens must be positive", c.ID))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%q: retry.max_retries must not be negative", c.ID))
	}
	return errors.Join(errs...)
}
