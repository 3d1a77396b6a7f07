package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// Config carries process-level settings plus the environment-derived
// provider defaults used when no stored configuration exists.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	defaults map[string]*schema.GenerationConfig
}

// envBinding maps one provider id to the environment variables that can
// configure it without any stored config.
type envBinding struct {
	provider llm.ProviderName
	apiKey   string
	baseURL  string
	model    string
	// present reports whether the binding yields a usable default
	present func(apiKey, baseURL string) bool
}

var bindings = []envBinding{
	{
		provider: llm.OpenAI,
		apiKey:   "OPENAI_API_KEY",
		baseURL:  "OPENAI_BASE_URL",
		model:    "OPENAI_DEFAULT_MODEL",
		present:  func(key, _ string) bool { return key != "" },
	},
	{
		provider: llm.Anthropic,
		apiKey:   "ANTHROPIC_API_KEY",
		baseURL:  "ANTHROPIC_BASE_URL",
		model:    "ANTHROPIC_DEFAULT_MODEL",
		present:  func(key, _ string) bool { return key != "" },
	},
	{
		provider: llm.Google,
		apiKey:   "GOOGLE_API_KEY",
		baseURL:  "GOOGLE_BASE_URL",
		model:    "GOOGLE_DEFAULT_MODEL",
		present:  func(key, _ string) bool { return key != "" },
	},
	{
		// a local daemon needs no credential; a set base url opts in
		provider: llm.Ollama,
		baseURL:  "OLLAMA_BASE_URL",
		model:    "OLLAMA_DEFAULT_MODEL",
		present:  func(_, base string) bool { return base != "" },
	},
	{
		// compatible endpoints are only usable with an explicit url
		provider: llm.Compat,
		apiKey:   "COMPAT_API_KEY",
		baseURL:  "COMPAT_BASE_URL",
		model:    "COMPAT_DEFAULT_MODEL",
		present:  func(_, base string) bool { return base != "" },
	},
}

// Load reads process settings and provider defaults from a .env file (if
// present) and the environment. Absent variables leave the provider with no
// default rather than a broken one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:      v.GetString("env"),
		LogLevel: v.GetString("log_level"),
		defaults: map[string]*schema.GenerationConfig{},
	}

	for _, b := range bindings {
		key := v.GetString(b.apiKey)
		base := v.GetString(b.baseURL)
		if !b.present(key, base) {
			continue
		}
		cfg.defaults[string(b.provider)] = &schema.GenerationConfig{
			Provider: string(b.provider),
			APIKey:   key,
			BaseURL:  base,
			Model:    v.GetString(b.model),
		}
	}

	if v.GetBool("OPENAI_USE_RESPONSES_API") {
		if d, ok := cfg.defaults[string(llm.OpenAI)]; ok {
			d.UseResponsesAPI = true
		}
	}

	return cfg, nil
}

// Default returns the environment-derived config for a provider, or an
// error naming the variables that would enable it. Mutating the returned
// value does not affect later calls.
func (c *Config) Default(provider string) (*schema.GenerationConfig, error) {
	d, ok := c.defaults[provider]
	if !ok {
		return nil, fmt.Errorf("provider %q has no environment default (set %s)", provider, enablingVars(provider))
	}
	return d.Clone(), nil
}

// Configured lists the providers that have environment defaults.
func (c *Config) Configured() []string {
	out := make([]string, 0, len(c.defaults))
	for p := range c.defaults {
		out = append(out, p)
	}
	return out
}

func enablingVars(provider string) string {
	for _, b := range bindings {
		if string(b.provider) != provider {
			continue
		}
		if b.apiKey != "" {
			return b.apiKey
		}
		return b.baseURL
	}
	return "its API key"
}
