package model

// DefaultEmbeddingModel is the multilingual model used when no other model is requested.
const DefaultEmbeddingModel = "multilingual_e5_large_instruct"

type IndexStatus string

const (
	IndexStatusPending   IndexStatus = "pending"
	IndexStatusSucceeded IndexStatus = "succeeded"
	IndexStatusFailed    IndexStatus = "failed"
)

// Index is the semantic retrieval structure computed over one Document.
type Index struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	DocumentID DocumentID  `json:"document_id" yaml:"document_id"`
	Model      string      `json:"model" yaml:"model"`
	Status     IndexStatus `json:"status" yaml:"status"`
	Progress   float64     `json:"progress,omitempty" yaml:"progress,omitempty"`
}

// Attachable reports whether the index status licenses attachment. Only succeeded does.
func (x *Index) Attachable() bool {
	return x != nil && x.Status == IndexStatusSucceeded
}
