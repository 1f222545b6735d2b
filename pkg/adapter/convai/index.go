package convai

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
)

// IndexClient requests semantic index computation for documents.
type IndexClient struct {
	client *Client
}

var _ interfaces.IndexComputer = (*IndexClient)(nil)

// ComputeIndex asks the remote service to compute (or report) the index of a document.
// The returned status may be pending; only succeeded licenses attachment.
func (x *IndexClient) ComputeIndex(ctx context.Context, id model.DocumentID, embeddingModel string) (*model.Index, error) {
	if id == "" {
		return nil, model.InvalidInput("document_id", "document id is empty")
	}
	if embeddingModel == "" {
		embeddingModel = model.DefaultEmbeddingModel
	}

	req, err := jsonRequest(http.MethodPost, documentPath(id, "rag-index"), &computeIndexRequest{Model: embeddingModel})
	if err != nil {
		return nil, err
	}

	var resp indexResponse
	if err := x.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to compute index",
			goerr.V("document_id", id),
			goerr.V("model", embeddingModel))
	}

	idx := &model.Index{
		ID:         resp.ID,
		DocumentID: id,
		Model:      resp.Model,
		Status:     resp.status,
		Progress:   resp.ProgressPercentage,
	}
	if idx.Model == "" {
		idx.Model = embeddingModel
	}
	return idx, nil
}
