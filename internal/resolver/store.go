package resolver

import (
	"context"
	"sync"

	"github.com/nulzo/llm-bridge/pkg/schema"
)

// MemoryStore is a concurrency-safe in-memory Store. Useful on its own for
// single-process embedders and as the reference Store behavior.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]*schema.GenerationConfig
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: map[string]*schema.GenerationConfig{}}
}

func key(userID, provider string) string { return userID + "\x00" + provider }

func (s *MemoryStore) Get(ctx context.Context, userID, provider string) (*schema.GenerationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[key(userID, provider)]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg.Clone(), nil
}

// Set validates and stores a config under the user and its provider id.
func (s *MemoryStore) Set(ctx context.Context, userID string, cfg *schema.GenerationConfig) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[key(userID, cfg.Provider)] = cfg.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[key(userID, provider)]; !ok {
		return ErrNotFound
	}
	delete(s.configs, key(userID, provider))
	return nil
}
