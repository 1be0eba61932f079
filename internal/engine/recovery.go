package engine

import (
	"context"
	"log/slog"

	"github.com/livecap/livecap/internal/model"
)

// Recover closes history rows left open by a crash. Any row still in
// Recording state whose URL has no live handle in the registry belongs
// to a process that no longer exists.
func (e *Engine) Recover(ctx context.Context) error {
	rows, err := e.st.Histories(ctx)
	if err != nil {
		return err
	}
	for i := range rows {
		row := &rows[i]
		if row.Status != model.StatusRecording || e.reg.Contains(row.URL) {
			continue
		}
		if err := e.st.FinishHistory(ctx, row.URL, row.StartTime); err != nil {
			slog.Error("recover history row", "url", row.URL, "start", row.StartTime, "error", err)
			continue
		}
		slog.Info("closed dangling history row", "url", row.URL, "start", row.StartTime)
	}
	return nil
}
