package knowledge

import (
	"context"
	"iter"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
)

// ListDocuments returns one page of documents.
func (u *UseCase) ListDocuments(ctx context.Context, filter model.DocumentFilter) (*model.Page[*model.Document], error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	return u.docs.ListDocuments(ctx, filter)
}

// AllDocuments walks every page starting from filter.Cursor. Iteration stops at the first error.
func (u *UseCase) AllDocuments(ctx context.Context, filter model.DocumentFilter) iter.Seq2[*model.Document, error] {
	return func(yield func(*model.Document, error) bool) {
		for {
			page, err := u.ListDocuments(ctx, filter)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, doc := range page.Items {
				if !yield(doc, nil) {
					return
				}
			}
			if !page.HasMore || page.NextCursor == "" || page.NextCursor == filter.Cursor {
				return
			}
			filter.Cursor = page.NextCursor
		}
	}
}

// GetDocument returns the document metadata.
func (u *UseCase) GetDocument(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	if id == "" {
		return nil, model.InvalidInput("document_id", "document id is required")
	}
	return u.docs.GetDocument(ctx, id)
}

// DeleteDocument removes the document from the store. Agents that still reference it
// are not updated; use DependentAgents first to find them.
func (u *UseCase) DeleteDocument(ctx context.Context, id model.DocumentID) error {
	if id == "" {
		return model.InvalidInput("document_id", "document id is required")
	}
	if err := u.docs.DeleteDocument(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to delete document", goerr.V("document_id", id))
	}
	return nil
}

// DependentAgents returns one page of agents referencing the document.
func (u *UseCase) DependentAgents(ctx context.Context, id model.DocumentID, req model.PageRequest) (*model.Page[model.AgentID], error) {
	if id == "" {
		return nil, model.InvalidInput("document_id", "document id is required")
	}
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	return u.docs.DependentAgents(ctx, id, req)
}

// AgentConfig returns the knowledge-base view of the agent.
func (u *UseCase) AgentConfig(ctx context.Context, id model.AgentID) (*model.AgentConfig, error) {
	id = u.agentOrDefault(id)
	if id == "" {
		return nil, model.InvalidInput("agent_id", "agent id is required")
	}
	return u.agents.GetAgentConfig(ctx, id)
}
