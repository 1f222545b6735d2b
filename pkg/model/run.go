package model

import (
	"time"

	"github.com/google/uuid"
)

type RunID string

// NewRunID generates a new unique RunID
func NewRunID() RunID {
	return RunID(uuid.New().String())
}

// Run is the journal record of one ingestion or reindex invocation.
// It records what happened, never the document content.
type Run struct {
	ID          RunID          `json:"id" yaml:"id" firestore:"id"`
	Operation   string         `json:"operation" yaml:"operation" firestore:"operation"`
	SourceKind  SourceType     `json:"source_kind,omitempty" yaml:"source_kind,omitempty" firestore:"source_kind"`
	SourceRef   string         `json:"source_ref,omitempty" yaml:"source_ref,omitempty" firestore:"source_ref"`
	DocumentID  DocumentID     `json:"document_id" yaml:"document_id" firestore:"document_id"`
	AgentID     AgentID        `json:"agent_id,omitempty" yaml:"agent_id,omitempty" firestore:"agent_id"`
	IndexStatus IndexStatus    `json:"index_status" yaml:"index_status" firestore:"index_status"`
	Attached    bool           `json:"attached" yaml:"attached" firestore:"attached"`
	Stages      []*StageReport `json:"stages" yaml:"stages" firestore:"stages"`
	CreatedAt   time.Time      `json:"created_at" yaml:"created_at" firestore:"created_at"`
	FinishedAt  time.Time      `json:"finished_at" yaml:"finished_at" firestore:"finished_at"`
}

const (
	OperationIngest  = "ingest"
	OperationReindex = "reindex"
)

// NewRun builds a run record from a pipeline result.
func NewRun(op string, src *Source, result *IngestResult, startedAt time.Time) *Run {
	run := &Run{
		ID:          result.RunID,
		Operation:   op,
		AgentID:     result.AgentID,
		IndexStatus: result.IndexStatus,
		Attached:    result.Attached,
		Stages:      result.Stages,
		CreatedAt:   startedAt,
		FinishedAt:  time.Now(),
	}
	if src != nil {
		run.SourceKind = src.Kind
		run.SourceRef = src.Reference()
	}
	if result.Document != nil {
		run.DocumentID = result.Document.ID
	}
	return run
}
