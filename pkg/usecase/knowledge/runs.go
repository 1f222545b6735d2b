package knowledge

import (
	"context"

	"github.com/m-mizutani/voxkb/pkg/model"
)

// ListRuns returns journaled runs, newest first.
func (u *UseCase) ListRuns(ctx context.Context, offset, limit int) ([]*model.Run, error) {
	return u.journal.ListRuns(ctx, offset, limit)
}

// GetRun returns one journaled run.
func (u *UseCase) GetRun(ctx context.Context, id model.RunID) (*model.Run, error) {
	if id == "" {
		return nil, model.InvalidInput("run_id", "run id is required")
	}
	return u.journal.GetRun(ctx, id)
}
