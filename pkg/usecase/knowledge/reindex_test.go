package knowledge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/usecase/knowledge"
)

func TestReindex(t *testing.T) {
	ctx := context.Background()
	docs := &mockDocs{
		getFunc: func(ctx context.Context, id model.DocumentID) (*model.Document, error) {
			return &model.Document{ID: id, Name: "Guide", SourceType: model.SourceTypeFile}, nil
		},
	}

	t.Run("failed index can be retried and attached", func(t *testing.T) {
		index := &mockIndex{status: model.IndexStatusFailed}
		agents := newMockAgents(testAgent)
		uc := knowledge.New(docs, index, agents, knowledge.WithAgentID(testAgent))

		first, err := uc.Reindex(ctx, "doc_1", model.ReindexOptions{Attach: true})
		gt.NoError(t, err)
		gt.Equal(t, first.IndexStatus, model.IndexStatusFailed)
		gt.False(t, first.Attached)

		index.status = model.IndexStatusSucceeded
		second, err := uc.Reindex(ctx, "doc_1", model.ReindexOptions{Attach: true})
		gt.NoError(t, err)
		gt.Equal(t, second.IndexStatus, model.IndexStatusSucceeded)
		gt.True(t, second.Attached)
		gt.Equal(t, index.Calls(), 2)
		gt.Equal(t, agents.Entries(testAgent), []model.KnowledgeBaseEntry{
			{ID: "doc_1", Name: "Guide", Type: model.SourceTypeFile, UsageMode: model.UsageModeAuto},
		})

		run, err := uc.GetRun(ctx, second.RunID)
		gt.NoError(t, err)
		gt.Equal(t, run.Operation, model.OperationReindex)
	})

	t.Run("without attach only computes", func(t *testing.T) {
		index := &mockIndex{}
		agents := newMockAgents(testAgent)
		uc := knowledge.New(docs, index, agents, knowledge.WithAgentID(testAgent))

		result, err := uc.Reindex(ctx, "doc_1", model.ReindexOptions{Model: "custom"})
		gt.NoError(t, err)
		gt.False(t, result.Attached)
		gt.Equal(t, result.Stage(model.StageAttach).Status, model.StageSkipped)
		gt.Equal(t, index.models, []string{"custom"})
		gt.Equal(t, agents.SetCalls(), 0)
	})

	t.Run("missing document aborts", func(t *testing.T) {
		index := &mockIndex{}
		docs := &mockDocs{
			getFunc: func(ctx context.Context, id model.DocumentID) (*model.Document, error) {
				return nil, &model.UpstreamError{Method: "GET", Status: 404}
			},
		}
		uc := knowledge.New(docs, index, newMockAgents(testAgent), knowledge.WithAgentID(testAgent))

		_, err := uc.Reindex(ctx, "doc_x", model.ReindexOptions{})
		gt.True(t, model.IsNotFound(err))
		gt.Equal(t, index.Calls(), 0)
	})

	t.Run("empty id", func(t *testing.T) {
		uc := knowledge.New(docs, &mockIndex{}, newMockAgents(testAgent))
		_, err := uc.Reindex(ctx, "", model.ReindexOptions{})
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("attach needs an agent", func(t *testing.T) {
		uc := knowledge.New(docs, &mockIndex{}, newMockAgents(testAgent))
		_, err := uc.Reindex(ctx, "doc_1", model.ReindexOptions{Attach: true})
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	})
}
