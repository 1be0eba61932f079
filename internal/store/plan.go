package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/livecap/livecap/internal/model"
)

// SavePlan upserts the plan for its URL.
func (s *Store) SavePlan(ctx context.Context, plan *model.RecordingPlan) error {
	b, err := json.Marshal(plan)
	if err != nil {
		return err
	}
	return s.update(ctx, func(t *txn) error {
		return t.put(ctx, planKey(plan.URL), b)
	})
}

// GetPlan returns the plan for url, or ErrPlanNotFound.
func (s *Store) GetPlan(ctx context.Context, url string) (*model.RecordingPlan, error) {
	var plan model.RecordingPlan
	err := s.view(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, planKey(url))
		if err != nil {
			return err
		}
		if !ok {
			return ErrPlanNotFound
		}
		return json.Unmarshal(v, &plan)
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// Plans lists every plan, newest first. Rows that fail to decode are
// skipped with a warning rather than failing the whole list.
func (s *Store) Plans(ctx context.Context) ([]model.RecordingPlan, error) {
	return s.listPlans(ctx, false)
}

// EnabledPlans lists only enabled plans, newest first.
func (s *Store) EnabledPlans(ctx context.Context) ([]model.RecordingPlan, error) {
	return s.listPlans(ctx, true)
}

func (s *Store) listPlans(ctx context.Context, enabledOnly bool) ([]model.RecordingPlan, error) {
	var plans []model.RecordingPlan
	err := s.view(ctx, func(t *txn) error {
		return t.scan(ctx, planPrefix, func(key string, value []byte) error {
			var plan model.RecordingPlan
			if err := json.Unmarshal(value, &plan); err != nil {
				slog.Warn("skipping undecodable plan row", "key", key, "error", err)
				return nil
			}
			if enabledOnly && !plan.Enabled {
				return nil
			}
			if plan.LiveInfo == nil {
				plan.LiveInfo = s.liveInTxn(ctx, t, plan.URL)
			}
			plans = append(plans, plan)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CreatedAt > plans[j].CreatedAt })
	return plans, nil
}

// DeletePlan removes the plan for url; deleting an absent plan is not
// an error.
func (s *Store) DeletePlan(ctx context.Context, url string) error {
	return s.update(ctx, func(t *txn) error {
		_, err := t.delete(ctx, planKey(url))
		return err
	})
}

// SetPlanEnabled flips the enabled flag and stamps UpdatedAt.
func (s *Store) SetPlanEnabled(ctx context.Context, url string, enabled bool) error {
	return s.update(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, planKey(url))
		if err != nil {
			return err
		}
		if !ok {
			return ErrPlanNotFound
		}
		var plan model.RecordingPlan
		if err := json.Unmarshal(v, &plan); err != nil {
			return err
		}
		plan.Enabled = enabled
		plan.UpdatedAt = time.Now().UnixMilli()
		b, err := json.Marshal(&plan)
		if err != nil {
			return err
		}
		return t.put(ctx, planKey(url), b)
	})
}

// MarkPollingTime records when the plan poller last ran.
func (s *Store) MarkPollingTime(ctx context.Context, at time.Time) error {
	return s.update(ctx, func(t *txn) error {
		return t.put(ctx, pollingTimeKey, encodeTime(at.UnixMilli()))
	})
}

// LastPollingTime returns the last poller run in unix milliseconds, or
// 0 when the poller has never run.
func (s *Store) LastPollingTime(ctx context.Context) (int64, error) {
	var ms int64
	err := s.view(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, pollingTimeKey)
		if err != nil || !ok {
			return err
		}
		ms, err = decodeTime(v)
		return err
	})
	return ms, err
}
