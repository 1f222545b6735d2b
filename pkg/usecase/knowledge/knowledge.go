package knowledge

import (
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/repository"
)

// UseCase drives the knowledge-base pipeline: create a document, compute its index
// and attach it to an agent. It holds no copy of remote state.
type UseCase struct {
	docs   interfaces.DocumentStore
	index  interfaces.IndexComputer
	agents interfaces.AgentConfigurator

	journal interfaces.RunRepository
	policy  interfaces.SourcePolicy

	agentID        model.AgentID
	embeddingModel string
	locks          *agentLocks
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithAgentID sets the default agent used when a call names none
func WithAgentID(id model.AgentID) Option {
	return func(uc *UseCase) {
		uc.agentID = id
	}
}

// WithEmbeddingModel sets the default embedding model for index computation
func WithEmbeddingModel(name string) Option {
	return func(uc *UseCase) {
		if name != "" {
			uc.embeddingModel = name
		}
	}
}

// WithJournal sets the run journal. Runs are kept in memory by default.
func WithJournal(repo interfaces.RunRepository) Option {
	return func(uc *UseCase) {
		uc.journal = repo
	}
}

// WithPolicy sets the admission policy evaluated before documents are created
func WithPolicy(policy interfaces.SourcePolicy) Option {
	return func(uc *UseCase) {
		uc.policy = policy
	}
}

// New creates a new knowledge UseCase instance
func New(
	docs interfaces.DocumentStore,
	index interfaces.IndexComputer,
	agents interfaces.AgentConfigurator,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		docs:           docs,
		index:          index,
		agents:         agents,
		journal:        repository.NewMemory(),
		embeddingModel: model.DefaultEmbeddingModel,
		locks:          newAgentLocks(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// AgentID returns the default agent
func (u *UseCase) AgentID() model.AgentID {
	return u.agentID
}

func (u *UseCase) agentOrDefault(id model.AgentID) model.AgentID {
	if id != "" {
		return id
	}
	return u.agentID
}
