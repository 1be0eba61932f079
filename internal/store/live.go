package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/livecap/livecap/internal/model"
)

// SaveLive overwrites the cached descriptor for its URL.
func (s *Store) SaveLive(ctx context.Context, live *model.LiveDescriptor) error {
	b, err := json.Marshal(live)
	if err != nil {
		return err
	}
	return s.update(ctx, func(t *txn) error {
		return t.put(ctx, liveKey(live.URL), b)
	})
}

// GetLive returns the cached descriptor for url, or nil when none is
// cached.
func (s *Store) GetLive(ctx context.Context, url string) (*model.LiveDescriptor, error) {
	var live *model.LiveDescriptor
	err := s.view(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, liveKey(url))
		if err != nil || !ok {
			return err
		}
		live = &model.LiveDescriptor{}
		return json.Unmarshal(v, live)
	})
	if err != nil {
		return nil, err
	}
	return live, nil
}

// DeleteLive drops the cached descriptor for url.
func (s *Store) DeleteLive(ctx context.Context, url string) error {
	return s.update(ctx, func(t *txn) error {
		_, err := t.delete(ctx, liveKey(url))
		return err
	})
}

// liveInTxn is the best-effort in-transaction variant used when
// attaching descriptors to plan and history listings.
func (s *Store) liveInTxn(ctx context.Context, t *txn, url string) *model.LiveDescriptor {
	v, ok, err := t.get(ctx, liveKey(url))
	if err != nil || !ok {
		return nil
	}
	var live model.LiveDescriptor
	if err := json.Unmarshal(v, &live); err != nil {
		slog.Warn("skipping undecodable live row", "url", url, "error", err)
		return nil
	}
	return &live
}
