package convai

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
)

type documentMetadata struct {
	CreatedAtUnixSecs     int64 `json:"created_at_unix_secs"`
	LastUpdatedAtUnixSecs int64 `json:"last_updated_at_unix_secs"`
	SizeBytes             int64 `json:"size_bytes"`
}

type documentResponse struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	URL      string            `json:"url"`
	Metadata *documentMetadata `json:"metadata"`
}

func (x *documentResponse) validate() error {
	if x.ID == "" {
		return goerr.New("document has no id")
	}
	if x.Type != "" && !model.SourceType(x.Type).Valid() {
		return goerr.New("document has unknown type", goerr.V("id", x.ID), goerr.V("type", x.Type))
	}
	return nil
}

func (x *documentResponse) toModel() *model.Document {
	doc := &model.Document{
		ID:         model.DocumentID(x.ID),
		Name:       x.Name,
		SourceType: model.SourceType(x.Type),
		URL:        x.URL,
	}
	if x.Metadata != nil {
		doc.SizeBytes = x.Metadata.SizeBytes
		doc.CreatedAt = unixTime(x.Metadata.CreatedAtUnixSecs)
		doc.UpdatedAt = unixTime(x.Metadata.LastUpdatedAtUnixSecs)
	}
	return doc
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// documentDetailResponse is a full document as returned by get and list; type is required.
type documentDetailResponse struct {
	documentResponse
}

func (x *documentDetailResponse) validate() error {
	if err := x.documentResponse.validate(); err != nil {
		return err
	}
	if x.Type == "" {
		return goerr.New("document has no type", goerr.V("id", x.ID))
	}
	return nil
}

type createURLRequest struct {
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
}

type listDocumentsResponse struct {
	Documents  []*documentDetailResponse `json:"documents"`
	NextCursor *string             `json:"next_cursor"`
	HasMore    bool                `json:"has_more"`
}

func (x *listDocumentsResponse) validate() error {
	for i, doc := range x.Documents {
		if doc == nil {
			return goerr.New("null document in listing", goerr.V("index", i))
		}
		if err := doc.validate(); err != nil {
			return goerr.Wrap(err, "invalid document in listing", goerr.V("index", i))
		}
	}
	return nil
}

type dependentAgent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type dependentAgentsResponse struct {
	DependentAgents []dependentAgent `json:"dependent_agents"`
	NextCursor      *string          `json:"next_cursor"`
	HasMore         bool             `json:"has_more"`
}

func (x *dependentAgentsResponse) validate() error {
	if x.DependentAgents == nil {
		return goerr.New("dependent_agents is missing")
	}
	return nil
}

type computeIndexRequest struct {
	Model string `json:"model"`
}

type indexResponse struct {
	ID                 string  `json:"id"`
	Model              string  `json:"model"`
	Status             string  `json:"status"`
	ProgressPercentage float64 `json:"progress_percentage"`

	status model.IndexStatus
}

// Remote index states collapse into pending, succeeded and failed.
var indexStatusMap = map[string]model.IndexStatus{
	"created":             model.IndexStatusPending,
	"processing":          model.IndexStatusPending,
	"succeeded":           model.IndexStatusSucceeded,
	"failed":              model.IndexStatusFailed,
	"rag_limit_exceeded":  model.IndexStatusFailed,
	"document_too_small":  model.IndexStatusFailed,
	"cannot_index_folder": model.IndexStatusFailed,
}

func (x *indexResponse) validate() error {
	status, ok := indexStatusMap[x.Status]
	if !ok {
		return goerr.New("unknown index status", goerr.V("status", x.Status))
	}
	x.status = status
	return nil
}

type agentPrompt struct {
	KnowledgeBase []model.KnowledgeBaseEntry `json:"knowledge_base"`
}

type agentSection struct {
	Prompt *agentPrompt `json:"prompt,omitempty"`
}

type conversationConfig struct {
	Agent *agentSection `json:"agent,omitempty"`
}

type agentResponse struct {
	AgentID            string              `json:"agent_id"`
	Name               string              `json:"name"`
	ConversationConfig *conversationConfig `json:"conversation_config"`
}

func (x *agentResponse) validate() error {
	if x.ConversationConfig == nil {
		return goerr.New("agent has no conversation_config")
	}
	for i := range x.knowledgeBase() {
		entry := &x.ConversationConfig.Agent.Prompt.KnowledgeBase[i]
		if entry.UsageMode == "" {
			entry.UsageMode = model.UsageModeAuto
		}
		if err := entry.Validate(); err != nil {
			return goerr.Wrap(err, "invalid knowledge base entry", goerr.V("index", i))
		}
	}
	return nil
}

func (x *agentResponse) knowledgeBase() []model.KnowledgeBaseEntry {
	if x.ConversationConfig == nil || x.ConversationConfig.Agent == nil || x.ConversationConfig.Agent.Prompt == nil {
		return nil
	}
	return x.ConversationConfig.Agent.Prompt.KnowledgeBase
}

// agentKnowledgeBasePatch carries only the knowledge_base list under its nested path.
type agentKnowledgeBasePatch struct {
	ConversationConfig conversationConfig `json:"conversation_config"`
}

func newKnowledgeBasePatch(entries []model.KnowledgeBaseEntry) *agentKnowledgeBasePatch {
	if entries == nil {
		entries = []model.KnowledgeBaseEntry{}
	}
	return &agentKnowledgeBasePatch{
		ConversationConfig: conversationConfig{
			Agent: &agentSection{
				Prompt: &agentPrompt{KnowledgeBase: entries},
			},
		},
	}
}
