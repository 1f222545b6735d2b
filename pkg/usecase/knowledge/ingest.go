package knowledge

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// Ingest turns a source into a document, computes its index and attaches it to the agent.
//
// An error is returned only when nothing was created: invalid input, policy rejection
// or a failed create call. Once the document exists, later failures are recorded in
// the result stages and Attached stays false.
func (u *UseCase) Ingest(ctx context.Context, src model.Source, opts model.IngestOptions) (*model.IngestResult, error) {
	startedAt := time.Now()

	if err := src.Validate(); err != nil {
		return nil, err
	}

	opts.AgentID = u.agentOrDefault(opts.AgentID)
	if opts.AgentID == "" && !opts.SkipAttach {
		return nil, model.InvalidInput("agent_id", "agent id is required to attach the document")
	}

	result := &model.IngestResult{
		RunID:   model.NewRunID(),
		AgentID: opts.AgentID,
	}
	ctx = logging.WithAttrs(ctx, "run_id", result.RunID, "source", src.Reference())
	logger := logging.From(ctx)

	// admission
	if u.policy != nil {
		decision, err := u.policy.Evaluate(ctx, model.NewPolicyInput(&src, opts))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to evaluate admission policy")
		}
		if decision.Denied() {
			return nil, goerr.Wrap(model.ErrPolicyRejected, "source rejected by policy",
				goerr.V("source", src.Reference()),
				goerr.V("reasons", decision.Deny))
		}
		if opts.DisplayName == "" {
			opts.DisplayName = decision.Name
		}
		if opts.Model == "" {
			opts.Model = decision.Model
		}
		result.Record(model.StagePolicy, model.StageOK, nil)
	}
	if opts.Model == "" {
		opts.Model = u.embeddingModel
	}

	// create
	logger.Debug("creating document", "kind", src.Kind)
	doc, err := u.create(ctx, &src, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create document", goerr.V("source", src.Reference()))
	}
	result.Document = doc
	result.Record(model.StageCreate, model.StageOK, nil)
	ctx = logging.WithAttrs(ctx, "document_id", doc.ID)
	logger = logging.From(ctx)

	u.resolveMetadata(ctx, result, opts.DisplayName)

	if u.computeIndex(ctx, result, opts.Model) && !opts.SkipAttach {
		u.attachResult(ctx, result)
	} else {
		reason := "index status is " + string(result.IndexStatus)
		if opts.SkipAttach {
			reason = "attachment disabled"
		}
		result.Record(model.StageAttach, model.StageSkipped, goerr.New(reason))
	}

	u.record(ctx, model.OperationIngest, &src, result, startedAt)

	logger.Info("ingestion finished",
		"index_status", result.IndexStatus,
		"attached", result.Attached,
	)
	return result, nil
}

func (u *UseCase) create(ctx context.Context, src *model.Source, opts model.IngestOptions) (*model.Document, error) {
	switch src.Kind {
	case model.SourceTypeFile:
		return u.docs.CreateFromFile(ctx, interfaces.CreateFileInput{
			Data:        src.Data,
			Filename:    src.Filename,
			MIMEType:    src.ContentType(),
			DisplayName: opts.DisplayName,
			AgentID:     opts.AgentID,
		})
	case model.SourceTypeURL:
		return u.docs.CreateFromURL(ctx, interfaces.CreateURLInput{
			URL:         src.URL,
			DisplayName: opts.DisplayName,
			AgentID:     opts.AgentID,
		})
	default:
		return nil, model.InvalidInput("source", "unsupported source kind")
	}
}

// resolveMetadata makes sure the document has a name for its knowledge-base entry.
// A failed lookup falls back to a synthesized name and never aborts.
func (u *UseCase) resolveMetadata(ctx context.Context, result *model.IngestResult, displayName string) {
	doc := result.Document
	if doc.Name == "" {
		doc.Name = displayName
	}
	if doc.Name != "" && doc.SourceType != "" {
		return
	}

	got, err := u.docs.GetDocument(ctx, doc.ID)
	if err == nil && got.Name != "" {
		doc.Name = got.Name
		if doc.SourceType == "" {
			doc.SourceType = got.SourceType
		}
		if doc.CreatedAt == nil {
			doc.CreatedAt = got.CreatedAt
		}
		result.Record(model.StageResolve, model.StageOK, nil)
		return
	}

	if err == nil {
		err = goerr.New("remote document has no name")
	}
	logging.From(ctx).Warn("failed to resolve document metadata, using fallback name", "error", err)
	if doc.Name == "" {
		doc.Name = model.FallbackName(doc.ID)
	}
	result.Record(model.StageResolve, model.StageFailed, err)
}

// computeIndex reports whether the index status licenses attachment.
// A failed call is recorded as a failed index, the document stays usable.
func (u *UseCase) computeIndex(ctx context.Context, result *model.IngestResult, embeddingModel string) bool {
	idx, err := u.index.ComputeIndex(ctx, result.Document.ID, embeddingModel)
	if err != nil {
		logging.From(ctx).Warn("index computation failed, document kept", "error", err)
		result.IndexStatus = model.IndexStatusFailed
		result.Record(model.StageIndex, model.StageFailed, err)
		return false
	}

	result.Index = idx
	result.IndexStatus = idx.Status

	switch idx.Status {
	case model.IndexStatusSucceeded:
		result.Record(model.StageIndex, model.StageOK, nil)
	case model.IndexStatusPending:
		result.Record(model.StageIndex, model.StagePending, nil)
	default:
		result.Record(model.StageIndex, model.StageFailed, goerr.New("remote index computation failed", goerr.V("model", idx.Model)))
	}

	return idx.Attachable()
}

// attachResult runs the attach continuation and captures its failure into the result.
func (u *UseCase) attachResult(ctx context.Context, result *model.IngestResult) {
	doc := result.Document
	entry := model.NewKnowledgeBaseEntry(doc.ID, doc.Name, doc.SourceType)

	res, err := u.attach(ctx, result.AgentID, entry)
	if err != nil {
		logging.From(ctx).Warn("attachment failed, document kept", "error", err)
		result.Record(model.StageAttach, model.StageFailed, err)
		return
	}

	result.Attached = res.Attached
	result.Record(model.StageAttach, model.StageOK, nil)
}

// record writes the run to the journal. Journal failures never fail the pipeline.
func (u *UseCase) record(ctx context.Context, op string, src *model.Source, result *model.IngestResult, startedAt time.Time) {
	if u.journal == nil {
		return
	}
	run := model.NewRun(op, src, result, startedAt)
	if err := u.journal.PutRun(ctx, run); err != nil {
		logging.From(ctx).Warn("failed to record run", "error", err)
		result.Record(model.StageJournal, model.StageFailed, err)
	}
}

// IngestBatch ingests independent sources concurrently, at most `concurrency` at a time.
// Each source gets its own item; one failure does not stop the others.
func (u *UseCase) IngestBatch(ctx context.Context, sources []model.Source, opts model.IngestOptions, concurrency int) []*model.BatchItem {
	if concurrency <= 0 {
		concurrency = 1
	}

	items := make([]*model.BatchItem, len(sources))
	var eg errgroup.Group
	eg.SetLimit(concurrency)

	for i := range sources {
		src := sources[i]
		items[i] = &model.BatchItem{Source: src.Reference()}

		eg.Go(func() error {
			result, err := u.Ingest(ctx, src, opts)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			items[i].Result = result
			return nil
		})
	}

	_ = eg.Wait()
	return items
}
