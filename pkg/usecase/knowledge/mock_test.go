package knowledge_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
)

// mockDocs is a mock implementation of interfaces.DocumentStore
type mockDocs struct {
	createFileFunc func(ctx context.Context, input interfaces.CreateFileInput) (*model.Document, error)
	createURLFunc  func(ctx context.Context, input interfaces.CreateURLInput) (*model.Document, error)
	getFunc        func(ctx context.Context, id model.DocumentID) (*model.Document, error)
	listFunc       func(ctx context.Context, filter model.DocumentFilter) (*model.Page[*model.Document], error)
	deleteFunc     func(ctx context.Context, id model.DocumentID) error
	dependentsFunc func(ctx context.Context, id model.DocumentID, req model.PageRequest) (*model.Page[model.AgentID], error)

	createCalls atomic.Int32
	getCalls    atomic.Int32
	seq         atomic.Int32
}

func (m *mockDocs) CreateFromFile(ctx context.Context, input interfaces.CreateFileInput) (*model.Document, error) {
	m.createCalls.Add(1)
	if m.createFileFunc != nil {
		return m.createFileFunc(ctx, input)
	}
	name := input.DisplayName
	if name == "" {
		name = input.Filename
	}
	return &model.Document{ID: m.nextID(), Name: name, SourceType: model.SourceTypeFile}, nil
}

func (m *mockDocs) CreateFromURL(ctx context.Context, input interfaces.CreateURLInput) (*model.Document, error) {
	m.createCalls.Add(1)
	if m.createURLFunc != nil {
		return m.createURLFunc(ctx, input)
	}
	return &model.Document{ID: m.nextID(), Name: input.DisplayName, SourceType: model.SourceTypeURL, URL: input.URL}, nil
}

func (m *mockDocs) GetDocument(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	m.getCalls.Add(1)
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocs) ListDocuments(ctx context.Context, filter model.DocumentFilter) (*model.Page[*model.Document], error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocs) DeleteDocument(ctx context.Context, id model.DocumentID) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockDocs) DependentAgents(ctx context.Context, id model.DocumentID, req model.PageRequest) (*model.Page[model.AgentID], error) {
	if m.dependentsFunc != nil {
		return m.dependentsFunc(ctx, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocs) nextID() model.DocumentID {
	n := m.seq.Add(1)
	return model.DocumentID(fmt.Sprintf("doc_%d", n))
}

// mockIndex is a mock implementation of interfaces.IndexComputer
type mockIndex struct {
	status model.IndexStatus
	err    error

	mu     sync.Mutex
	calls  []model.DocumentID
	models []string
}

func (m *mockIndex) ComputeIndex(ctx context.Context, id model.DocumentID, embeddingModel string) (*model.Index, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.models = append(m.models, embeddingModel)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	status := m.status
	if status == "" {
		status = model.IndexStatusSucceeded
	}
	return &model.Index{DocumentID: id, Model: embeddingModel, Status: status}, nil
}

func (m *mockIndex) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockAgents keeps knowledge-base lists in memory like the remote agent service.
// Reads and writes are deliberately separated by a delay so unserialized
// read-modify-write cycles lose updates.
type mockAgents struct {
	getErr error
	setErr error
	delay  time.Duration

	mu       sync.Mutex
	entries  map[model.AgentID][]model.KnowledgeBaseEntry
	getCalls int
	setCalls int
}

func newMockAgents(id model.AgentID, entries ...model.KnowledgeBaseEntry) *mockAgents {
	return &mockAgents{
		entries: map[model.AgentID][]model.KnowledgeBaseEntry{id: entries},
	}
}

func (m *mockAgents) GetAgentConfig(ctx context.Context, id model.AgentID) (*model.AgentConfig, error) {
	m.mu.Lock()
	m.getCalls++
	entries, ok := m.entries[id]
	copied := append([]model.KnowledgeBaseEntry{}, entries...)
	m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if !ok {
		return nil, &model.UpstreamError{Method: "GET", Path: "/v1/convai/agents/" + id.String(), Status: 404}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return &model.AgentConfig{AgentID: id, KnowledgeBase: copied}, nil
}

func (m *mockAgents) SetKnowledgeBase(ctx context.Context, id model.AgentID, entries []model.KnowledgeBaseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[id] = append([]model.KnowledgeBaseEntry{}, entries...)
	return nil
}

func (m *mockAgents) Entries(id model.AgentID) []model.KnowledgeBaseEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.KnowledgeBaseEntry{}, m.entries[id]...)
}

func (m *mockAgents) SetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCalls
}

// mockPolicy is a mock implementation of interfaces.SourcePolicy
type mockPolicy struct {
	decision *model.PolicyDecision
	err      error
	inputs   []*model.PolicyInput
}

func (m *mockPolicy) Evaluate(ctx context.Context, input *model.PolicyInput) (*model.PolicyDecision, error) {
	m.inputs = append(m.inputs, input)
	if m.err != nil {
		return nil, m.err
	}
	if m.decision == nil {
		return &model.PolicyDecision{}, nil
	}
	return m.decision, nil
}

// failingJournal rejects every write
type failingJournal struct{}

func (failingJournal) PutRun(ctx context.Context, run *model.Run) error {
	return errors.New("journal unavailable")
}

func (failingJournal) GetRun(ctx context.Context, id model.RunID) (*model.Run, error) {
	return nil, errors.New("journal unavailable")
}

func (failingJournal) ListRuns(ctx context.Context, offset, limit int) ([]*model.Run, error) {
	return nil, errors.New("journal unavailable")
}
