package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
)

// Memory keeps runs for the lifetime of the process.
type Memory struct {
	mu   sync.RWMutex
	runs map[model.RunID]*model.Run
}

var _ interfaces.RunRepository = (*Memory)(nil)

// NewMemory creates an empty in-memory journal
func NewMemory() *Memory {
	return &Memory{
		runs: make(map[model.RunID]*model.Run),
	}
}

func (r *Memory) PutRun(ctx context.Context, run *model.Run) error {
	if run == nil || run.ID == "" {
		return goerr.New("run id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *run
	r.runs[run.ID] = &copied
	return nil
}

func (r *Memory) GetRun(ctx context.Context, id model.RunID) (*model.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, goerr.Wrap(ErrRunNotFound, "run not found", goerr.V("run_id", id))
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns runs newest first
func (r *Memory) ListRuns(ctx context.Context, offset, limit int) ([]*model.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	r.mu.RLock()
	runs := make([]*model.Run, 0, len(r.runs))
	for _, run := range r.runs {
		copied := *run
		runs = append(runs, &copied)
	}
	r.mu.RUnlock()

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	if offset >= len(runs) {
		return []*model.Run{}, nil
	}
	end := offset + limit
	if end > len(runs) {
		end = len(runs)
	}
	return runs[offset:end], nil
}
