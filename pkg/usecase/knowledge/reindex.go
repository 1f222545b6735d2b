package knowledge

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
)

// Reindex requests index computation again for an existing document and, when asked,
// attaches it once the index has succeeded. It is the retry path for documents left
// pending or failed by Ingest.
func (u *UseCase) Reindex(ctx context.Context, docID model.DocumentID, opts model.ReindexOptions) (*model.IngestResult, error) {
	startedAt := time.Now()

	if docID == "" {
		return nil, model.InvalidInput("document_id", "document id is required")
	}
	agentID := u.agentOrDefault(opts.AgentID)
	if opts.Attach && agentID == "" {
		return nil, model.InvalidInput("agent_id", "agent id is required to attach the document")
	}
	embeddingModel := opts.Model
	if embeddingModel == "" {
		embeddingModel = u.embeddingModel
	}

	result := &model.IngestResult{
		RunID:   model.NewRunID(),
		AgentID: agentID,
	}
	ctx = logging.WithAttrs(ctx, "run_id", result.RunID, "document_id", docID)

	doc, err := u.docs.GetDocument(ctx, docID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get document for reindex", goerr.V("document_id", docID))
	}
	if doc.Name == "" {
		doc.Name = model.FallbackName(doc.ID)
	}
	result.Document = doc
	result.Record(model.StageResolve, model.StageOK, nil)

	if u.computeIndex(ctx, result, embeddingModel) && opts.Attach {
		u.attachResult(ctx, result)
	} else {
		reason := "index status is " + string(result.IndexStatus)
		if !opts.Attach {
			reason = "attachment not requested"
		}
		result.Record(model.StageAttach, model.StageSkipped, goerr.New(reason))
	}

	u.record(ctx, model.OperationReindex, nil, result, startedAt)

	logging.From(ctx).Info("reindex finished",
		"index_status", result.IndexStatus,
		"attached", result.Attached,
	)
	return result, nil
}
