package store

import (
	"context"
	"encoding/json"

	"github.com/livecap/livecap/internal/model"
)

// GetConfig returns the persisted app config, or the defaults when
// none has been stored yet.
func (s *Store) GetConfig(ctx context.Context) (model.AppConfig, error) {
	cfg := model.DefaultAppConfig()
	err := s.view(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, configKey)
		if err != nil || !ok {
			return err
		}
		return json.Unmarshal(v, &cfg)
	})
	return cfg, err
}

// SeedConfig stores cfg only when no config has been persisted yet.
// Later config set calls always win over the seed.
func (s *Store) SeedConfig(ctx context.Context, cfg model.AppConfig) error {
	b, err := json.Marshal(&cfg)
	if err != nil {
		return err
	}
	return s.update(ctx, func(t *txn) error {
		_, ok, err := t.get(ctx, configKey)
		if err != nil || ok {
			return err
		}
		return t.put(ctx, configKey, b)
	})
}

// SetConfig overwrites the persisted app config.
func (s *Store) SetConfig(ctx context.Context, cfg model.AppConfig) error {
	b, err := json.Marshal(&cfg)
	if err != nil {
		return err
	}
	return s.update(ctx, func(t *txn) error {
		return t.put(ctx, configKey, b)
	})
}
