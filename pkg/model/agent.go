package model

import (
	"github.com/m-mizutani/goerr/v2"
)

type UsageMode string

const (
	// UsageModeAuto keeps the entry always eligible for retrieval.
	UsageModeAuto   UsageMode = "auto"
	UsageModePrompt UsageMode = "prompt"
)

// KnowledgeBaseEntry is one element of an agent's ordered knowledge-base list.
type KnowledgeBaseEntry struct {
	Type      SourceType `json:"type" yaml:"type"`
	Name      string     `json:"name" yaml:"name"`
	ID        DocumentID `json:"id" yaml:"id"`
	UsageMode UsageMode  `json:"usage_mode" yaml:"usage_mode"`
}

// NewKnowledgeBaseEntry builds an entry with the auto usage mode.
func NewKnowledgeBaseEntry(id DocumentID, name string, typ SourceType) KnowledgeBaseEntry {
	return KnowledgeBaseEntry{
		Type:      typ,
		Name:      name,
		ID:        id,
		UsageMode: UsageModeAuto,
	}
}

// Validate checks that all tagged fields are present and known
func (x *KnowledgeBaseEntry) Validate() error {
	if x.ID == "" {
		return goerr.New("knowledge base entry has no id")
	}
	if x.Name == "" {
		return goerr.New("knowledge base entry has no name", goerr.V("id", x.ID))
	}
	if !x.Type.Valid() {
		return goerr.New("knowledge base entry has unknown type", goerr.V("id", x.ID), goerr.V("type", x.Type))
	}
	switch x.UsageMode {
	case UsageModeAuto, UsageModePrompt:
	default:
		return goerr.New("knowledge base entry has unknown usage mode", goerr.V("id", x.ID), goerr.V("usage_mode", x.UsageMode))
	}
	return nil
}

// AgentConfig is the subset of remote agent configuration this system reads.
type AgentConfig struct {
	AgentID       AgentID              `json:"agent_id" yaml:"agent_id"`
	Name          string               `json:"name,omitempty" yaml:"name,omitempty"`
	KnowledgeBase []KnowledgeBaseEntry `json:"knowledge_base" yaml:"knowledge_base"`
}

// HasDocument reports whether the knowledge base already references id.
func (x *AgentConfig) HasDocument(id DocumentID) bool {
	for _, entry := range x.KnowledgeBase {
		if entry.ID == id {
			return true
		}
	}
	return false
}

// AttachResult is the outcome of an attach call. AlreadyPresent is the no-op success case.
type AttachResult struct {
	Attached       bool `json:"attached" yaml:"attached"`
	AlreadyPresent bool `json:"already_present" yaml:"already_present"`
	Entries        int  `json:"entries" yaml:"entries"`
}
