package interfaces

import (
	"context"
	"io"

	"github.com/m-mizutani/voxkb/pkg/model"
)

// DocumentStore is the remote knowledge-base document API
type DocumentStore interface {
	// CreateFromFile uploads file bytes as a new document
	CreateFromFile(ctx context.Context, input CreateFileInput) (*model.Document, error)

	// CreateFromURL creates a new document by letting the remote service fetch url
	CreateFromURL(ctx context.Context, input CreateURLInput) (*model.Document, error)

	// GetDocument fetches one document
	GetDocument(ctx context.Context, id model.DocumentID) (*model.Document, error)

	// ListDocuments returns one page of documents
	ListDocuments(ctx context.Context, filter model.DocumentFilter) (*model.Page[*model.Document], error)

	// DeleteDocument removes a document
	DeleteDocument(ctx context.Context, id model.DocumentID) error

	// DependentAgents returns one page of agents that reference the document
	DependentAgents(ctx context.Context, id model.DocumentID, page model.PageRequest) (*model.Page[model.AgentID], error)
}

type CreateFileInput struct {
	Data        []byte
	Filename    string
	MIMEType    string
	DisplayName string
	AgentID     model.AgentID
}

type CreateURLInput struct {
	URL         string
	DisplayName string
	AgentID     model.AgentID
}

// IndexComputer requests semantic index computation for a document
type IndexComputer interface {
	ComputeIndex(ctx context.Context, id model.DocumentID, embeddingModel string) (*model.Index, error)
}

// AgentConfigurator reads and partially updates remote agent configuration
type AgentConfigurator interface {
	GetAgentConfig(ctx context.Context, id model.AgentID) (*model.AgentConfig, error)

	// SetKnowledgeBase replaces only the knowledge-base list of the agent
	SetKnowledgeBase(ctx context.Context, id model.AgentID, entries []model.KnowledgeBaseEntry) error
}

// RunRepository is the journal of ingestion runs
type RunRepository interface {
	PutRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, id model.RunID) (*model.Run, error)
	ListRuns(ctx context.Context, offset, limit int) ([]*model.Run, error)
}

// SourcePolicy decides whether a source may be ingested
type SourcePolicy interface {
	Evaluate(ctx context.Context, input *model.PolicyInput) (*model.PolicyDecision, error)
}

// ObjectStore reads objects used as file sources
type ObjectStore interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}
