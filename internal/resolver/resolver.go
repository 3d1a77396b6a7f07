package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/nulzo/llm-bridge/internal/config"
	"github.com/nulzo/llm-bridge/internal/llm"
	"github.com/nulzo/llm-bridge/pkg/schema"
)

// ErrNotFound is returned by Store implementations when a user has no
// stored configuration for a provider.
var ErrNotFound = errors.New("configuration not found")

// ErrNotConfigured means neither a stored config nor an environment
// default exists for the requested provider.
var ErrNotConfigured = errors.New("provider not configured")

// Store holds per-user provider configurations. Implementations return
// ErrNotFound when nothing is stored; any other error aborts resolution.
type Store interface {
	Get(ctx context.Context, userID, provider string) (*schema.GenerationConfig, error)
}

// Resolver decides which GenerationConfig serves a request: the user's
// stored config when one exists, otherwise the environment default.
type Resolver struct {
	store Store
	env   *config.Config
}

func New(store Store, env *config.Config) *Resolver {
	return &Resolver{store: store, env: env}
}

// Resolve finds the effective config for a user and provider. The returned
// value is private to the caller; mutating it affects neither the store nor
// the environment defaults.
func (r *Resolver) Resolve(ctx context.Context, userID, provider string) (*schema.GenerationConfig, error) {
	if r.store != nil {
		stored, err := r.store.Get(ctx, userID, provider)
		if err == nil {
			return stored.Clone(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("reading stored config for %s: %w", provider, err)
		}
	}

	def, err := r.env.Default(provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%v)", ErrNotConfigured, provider, err)
	}
	return def, nil
}

// AdapterFor maps a resolved config onto the provider id whose adapter
// should serve it. OpenAI configs that opt into the responses API run on
// the responses adapter while staying stored under "openai".
func AdapterFor(cfg *schema.GenerationConfig) string {
	if cfg.Provider == string(llm.OpenAI) && cfg.UseResponsesAPI {
		return string(llm.OpenAIResponses)
	}
	return cfg.Provider
}
