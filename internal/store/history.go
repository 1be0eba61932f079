package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/livecap/livecap/internal/model"
)

// addLock creates the recording lock for url inside t. It fails with
// ErrAlreadyRecording when a lock exists, failing the enclosing
// transaction as a whole. The lock value is the capture start time so
// the matching history row can be located when the lock is removed.
func addLock(ctx context.Context, t *txn, url string, startTime int64) error {
	key := lockKey(url)
	if _, ok, err := t.get(ctx, key); err != nil {
		return err
	} else if ok {
		return ErrAlreadyRecording
	}
	return t.put(ctx, key, encodeTime(startTime))
}

// removeLock deletes the recording lock for url inside t, returning
// the start time it held, or ErrNotRecording.
func removeLock(ctx context.Context, t *txn, url string) (int64, error) {
	key := lockKey(url)
	v, ok, err := t.get(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNotRecording
	}
	if _, err := t.delete(ctx, key); err != nil {
		return 0, err
	}
	return decodeTime(v)
}

// IsRecording reports whether the lock table holds an entry for url.
// This is the single source of truth for recording state.
func (s *Store) IsRecording(ctx context.Context, url string) (bool, error) {
	var recording bool
	err := s.view(ctx, func(t *txn) error {
		_, ok, err := t.get(ctx, lockKey(url))
		recording = ok
		return err
	})
	return recording, err
}

// OpenHistory creates the recording lock and the history row for
// history.URL as one atomic unit. When a lock already exists the whole
// transaction fails with ErrAlreadyRecording and no row is written.
func (s *Store) OpenHistory(ctx context.Context, history *model.RecordingHistory) error {
	b, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.update(ctx, func(t *txn) error {
		if err := addLock(ctx, t, history.URL, history.StartTime); err != nil {
			return err
		}
		return t.put(ctx, historyKey(history.URL, history.StartTime), b)
	})
}

// CloseHistory removes the lock for url and closes the matching
// history row (status NotRecording, end time now) as one atomic unit.
// It returns the start time the lock held. Fails with ErrNotRecording
// when no lock exists.
func (s *Store) CloseHistory(ctx context.Context, url string) (int64, error) {
	var startTime int64
	err := s.update(ctx, func(t *txn) error {
		var err error
		startTime, err = removeLock(ctx, t, url)
		if err != nil {
			return err
		}
		return closeRow(ctx, t, url, startTime)
	})
	return startTime, err
}

// FinishHistory closes a specific history row, dropping its lock if
// one is still present. Recovery uses this to repair rows whose lock
// was lost, which CloseHistory would refuse to touch.
func (s *Store) FinishHistory(ctx context.Context, url string, startTime int64) error {
	return s.update(ctx, func(t *txn) error {
		if _, err := t.delete(ctx, lockKey(url)); err != nil {
			return err
		}
		return closeRow(ctx, t, url, startTime)
	})
}

func closeRow(ctx context.Context, t *txn, url string, startTime int64) error {
	key := historyKey(url, startTime)
	v, ok, err := t.get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s@%d", ErrHistoryNotFound, url, startTime)
	}
	var history model.RecordingHistory
	if err := json.Unmarshal(v, &history); err != nil {
		return err
	}
	history.Status = model.StatusNotRecording
	history.EndTime = time.Now().UnixMilli()
	b, err := json.Marshal(&history)
	if err != nil {
		return err
	}
	return t.put(ctx, key, b)
}

// GetHistory returns one history row, or ErrHistoryNotFound.
func (s *Store) GetHistory(ctx context.Context, url string, startTime int64) (*model.RecordingHistory, error) {
	var history model.RecordingHistory
	err := s.view(ctx, func(t *txn) error {
		v, ok, err := t.get(ctx, historyKey(url, startTime))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s@%d", ErrHistoryNotFound, url, startTime)
		}
		return json.Unmarshal(v, &history)
	})
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// Histories lists every capture attempt, most recent first. The file
// size and deleted flag are recomputed from the filesystem on every
// call; they are never persisted. Undecodable rows are skipped with a
// warning.
func (s *Store) Histories(ctx context.Context) ([]model.RecordingHistory, error) {
	var histories []model.RecordingHistory
	err := s.view(ctx, func(t *txn) error {
		return t.scan(ctx, historyPrefix, func(key string, value []byte) error {
			var history model.RecordingHistory
			if err := json.Unmarshal(value, &history); err != nil {
				slog.Warn("skipping undecodable history row", "key", key, "error", err)
				return nil
			}
			if history.LiveInfo == nil {
				history.LiveInfo = s.liveInTxn(ctx, t, history.URL)
			}
			histories = append(histories, history)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	for i := range histories {
		if fi, err := os.Stat(histories[i].Path); err == nil {
			histories[i].FileSize = fi.Size()
		} else {
			histories[i].Deleted = true
		}
	}
	sort.Slice(histories, func(i, j int) bool { return histories[i].StartTime > histories[j].StartTime })
	return histories, nil
}

// DeleteHistory removes one history row, optionally deleting the
// recorded file along with it.
func (s *Store) DeleteHistory(ctx context.Context, url string, startTime int64, deleteFile bool) error {
	if deleteFile {
		history, err := s.GetHistory(ctx, url, startTime)
		if err != nil {
			return err
		}
		if err := os.Remove(history.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete recording file: %w", err)
		}
	}
	return s.update(ctx, func(t *txn) error {
		_, err := t.delete(ctx, historyKey(url, startTime))
		return err
	})
}
