package model

import (
	"time"
)

type DocumentID string

func (x DocumentID) String() string { return string(x) }

type AgentID string

func (x AgentID) String() string { return string(x) }

// SourceType is the kind of raw source a document was ingested from.
type SourceType string

const (
	SourceTypeFile SourceType = "file"
	SourceTypeURL  SourceType = "url"
	SourceTypeText SourceType = "text"
)

// Valid reports whether the remote service is allowed to return this type.
func (x SourceType) Valid() bool {
	switch x {
	case SourceTypeFile, SourceTypeURL, SourceTypeText:
		return true
	default:
		return false
	}
}

// Document is a unit of ingested content held by the remote knowledge-base service.
// It is never mutated locally.
type Document struct {
	ID           DocumentID `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	SourceType   SourceType `json:"source_type" yaml:"source_type"`
	ContentType  string     `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	OwnerAgentID AgentID    `json:"owner_agent_id,omitempty" yaml:"owner_agent_id,omitempty"`
	URL          string     `json:"url,omitempty" yaml:"url,omitempty"`
	SizeBytes    int64      `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// FallbackName is the synthesized label used when no name could be resolved.
func FallbackName(id DocumentID) string {
	return "Document " + string(id)
}

// DocumentFilter selects a page of documents.
type DocumentFilter struct {
	Cursor    string
	PageSize  int
	Search    string
	OwnedOnly bool
	AgentID   AgentID
}

const (
	DefaultPageSize = 30
	MaxPageSize     = 100
)

// Normalize applies the default page size and validates the bound.
func (f DocumentFilter) Normalize() (DocumentFilter, error) {
	size, err := normalizePageSize(f.PageSize)
	if err != nil {
		return f, err
	}
	f.PageSize = size
	return f, nil
}

// PageRequest selects a page of a cursor-paginated listing.
type PageRequest struct {
	Cursor   string
	PageSize int
}

// Normalize applies the default page size and validates the bound.
func (r PageRequest) Normalize() (PageRequest, error) {
	size, err := normalizePageSize(r.PageSize)
	if err != nil {
		return r, err
	}
	r.PageSize = size
	return r, nil
}

func normalizePageSize(size int) (int, error) {
	if size == 0 {
		return DefaultPageSize, nil
	}
	if size < 1 || size > MaxPageSize {
		return 0, InvalidInput("page_size", "page size must be between 1 and 100")
	}
	return size, nil
}

// Page is one forward-only slice of a listing. NextCursor is empty on the last page.
type Page[T any] struct {
	Items      []T    `json:"items" yaml:"items"`
	NextCursor string `json:"next_cursor,omitempty" yaml:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more" yaml:"has_more"`
}
