package knowledge

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
)

// AttachInput names the document to reference from an agent's knowledge base.
// Empty Name or Type are resolved from the document store.
type AttachInput struct {
	AgentID    model.AgentID
	DocumentID model.DocumentID
	Name       string
	Type       model.SourceType
}

// Attach appends the document to the agent's knowledge base unless it is already there.
// A document that is already present is not an error: Attached is false and AlreadyPresent is true.
func (u *UseCase) Attach(ctx context.Context, input AttachInput) (*model.AttachResult, error) {
	agentID := u.agentOrDefault(input.AgentID)
	if agentID == "" {
		return nil, model.InvalidInput("agent_id", "agent id is required")
	}
	if input.DocumentID == "" {
		return nil, model.InvalidInput("document_id", "document id is required")
	}

	if input.Name == "" || input.Type == "" {
		doc, err := u.docs.GetDocument(ctx, input.DocumentID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve document for attachment", goerr.V("document_id", input.DocumentID))
		}
		if input.Name == "" {
			input.Name = doc.Name
		}
		if input.Type == "" {
			input.Type = doc.SourceType
		}
		if input.Name == "" {
			input.Name = model.FallbackName(input.DocumentID)
		}
	}

	entry := model.NewKnowledgeBaseEntry(input.DocumentID, input.Name, input.Type)
	if err := entry.Validate(); err != nil {
		return nil, goerr.Wrap(model.ErrInvalidInput, "invalid knowledge base entry",
			goerr.V("field", "type"),
			goerr.V("reason", err.Error()))
	}

	return u.attach(ctx, agentID, entry)
}

// attach is the read-modify-write on the agent's knowledge-base list.
// Calls for the same agent are serialized within this process; writers in other
// processes can still interleave and the last write wins.
func (u *UseCase) attach(ctx context.Context, agentID model.AgentID, entry model.KnowledgeBaseEntry) (*model.AttachResult, error) {
	unlock, err := u.locks.lock(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "interrupted while waiting for agent lock", goerr.V("agent_id", agentID))
	}
	defer unlock()

	logger := logging.From(ctx).With("agent_id", agentID, "document_id", entry.ID)

	cfg, err := u.agents.GetAgentConfig(ctx, agentID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read agent knowledge base", goerr.V("agent_id", agentID))
	}

	if cfg.HasDocument(entry.ID) {
		logger.Debug("document already attached")
		return &model.AttachResult{
			Attached:       false,
			AlreadyPresent: true,
			Entries:        len(cfg.KnowledgeBase),
		}, nil
	}

	// prior order is kept; the new entry always goes last
	entries := make([]model.KnowledgeBaseEntry, 0, len(cfg.KnowledgeBase)+1)
	entries = append(entries, cfg.KnowledgeBase...)
	entries = append(entries, entry)

	if err := u.agents.SetKnowledgeBase(ctx, agentID, entries); err != nil {
		return nil, goerr.Wrap(err, "failed to write agent knowledge base",
			goerr.V("agent_id", agentID),
			goerr.V("document_id", entry.ID))
	}

	logger.Info("document attached", "entries", len(entries))
	return &model.AttachResult{
		Attached: true,
		Entries:  len(entries),
	}, nil
}

// agentLocks is a keyed lock. Each agent has a one-slot channel so waiting respects ctx.
type agentLocks struct {
	mu    sync.Mutex
	slots map[model.AgentID]chan struct{}
}

func newAgentLocks() *agentLocks {
	return &agentLocks{
		slots: make(map[model.AgentID]chan struct{}),
	}
}

func (x *agentLocks) lock(ctx context.Context, id model.AgentID) (func(), error) {
	x.mu.Lock()
	slot, ok := x.slots[id]
	if !ok {
		slot = make(chan struct{}, 1)
		x.slots[id] = slot
	}
	x.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
