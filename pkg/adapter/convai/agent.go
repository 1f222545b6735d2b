package convai

import (
	"context"
	"net/http"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
)

const agentsPath = "/v1/convai/agents"

// AgentClient reads agent configuration and updates its knowledge-base list.
type AgentClient struct {
	client *Client
}

var _ interfaces.AgentConfigurator = (*AgentClient)(nil)

func agentPath(id model.AgentID) string {
	return agentsPath + "/" + url.PathEscape(string(id))
}

func (x *AgentClient) GetAgentConfig(ctx context.Context, id model.AgentID) (*model.AgentConfig, error) {
	if id == "" {
		return nil, model.InvalidInput("agent_id", "agent id is empty")
	}

	var resp agentResponse
	req := request{method: http.MethodGet, path: agentPath(id)}
	if err := x.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get agent config", goerr.V("agent_id", id))
	}

	cfg := &model.AgentConfig{
		AgentID:       model.AgentID(resp.AgentID),
		Name:          resp.Name,
		KnowledgeBase: append([]model.KnowledgeBaseEntry{}, resp.knowledgeBase()...),
	}
	if cfg.AgentID == "" {
		cfg.AgentID = id
	}
	return cfg, nil
}

// SetKnowledgeBase sends a partial update holding only the knowledge-base list.
// Other agent fields are left out of the body so concurrent edits to them survive.
func (x *AgentClient) SetKnowledgeBase(ctx context.Context, id model.AgentID, entries []model.KnowledgeBaseEntry) error {
	if id == "" {
		return model.InvalidInput("agent_id", "agent id is empty")
	}
	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return goerr.Wrap(model.ErrInvalidInput, "invalid knowledge base entry",
				goerr.V("field", "knowledge_base"),
				goerr.V("index", i),
				goerr.V("reason", err.Error()))
		}
	}

	req, err := jsonRequest(http.MethodPatch, agentPath(id), newKnowledgeBasePatch(entries))
	if err != nil {
		return err
	}

	if err := x.client.do(ctx, req, nil); err != nil {
		return goerr.Wrap(err, "failed to update agent knowledge base",
			goerr.V("agent_id", id),
			goerr.V("entries", len(entries)))
	}
	return nil
}
