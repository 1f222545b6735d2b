package mcp

import (
	"context"

	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/usecase/knowledge"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type ingestURLParams struct {
	URL        string `json:"url" jsonschema:"Absolute http or https URL the knowledge-base service fetches"`
	Name       string `json:"name,omitempty" jsonschema:"Display name of the document"`
	AgentID    string `json:"agent_id,omitempty" jsonschema:"Agent to attach the document to. Defaults to the configured agent"`
	Model      string `json:"model,omitempty" jsonschema:"Embedding model for the index"`
	SkipAttach bool   `json:"skip_attach,omitempty" jsonschema:"Create and index the document without attaching it"`
}

type attachParams struct {
	DocumentID string `json:"document_id" jsonschema:"Document to reference from the agent knowledge base"`
	AgentID    string `json:"agent_id,omitempty" jsonschema:"Agent to attach to. Defaults to the configured agent"`
}

type reindexParams struct {
	DocumentID string `json:"document_id" jsonschema:"Document whose index is recomputed"`
	AgentID    string `json:"agent_id,omitempty" jsonschema:"Agent to attach to when attach is set"`
	Model      string `json:"model,omitempty" jsonschema:"Embedding model for the index"`
	Attach     bool   `json:"attach,omitempty" jsonschema:"Attach the document once the index has succeeded"`
}

type listParams struct {
	Cursor   string `json:"cursor,omitempty" jsonschema:"Cursor from a previous page"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Items per page, 1 to 100"`
	Search   string `json:"search,omitempty" jsonschema:"Name prefix filter"`
}

type documentParams struct {
	DocumentID string `json:"document_id" jsonschema:"Document ID"`
}

type dependentsParams struct {
	DocumentID string `json:"document_id" jsonschema:"Document ID"`
	Cursor     string `json:"cursor,omitempty" jsonschema:"Cursor from a previous page"`
	PageSize   int    `json:"page_size,omitempty" jsonschema:"Items per page, 1 to 100"`
}

type agentParams struct {
	AgentID string `json:"agent_id,omitempty" jsonschema:"Agent ID. Defaults to the configured agent"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_url",
		Description: "Create a knowledge-base document from a URL, compute its index and attach it to an agent",
	}, s.ingestURL)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "attach_document",
		Description: "Add an existing document to an agent knowledge base. Already attached documents are left as is",
	}, s.attachDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "reindex_document",
		Description: "Compute the index of an existing document again, optionally attaching it on success",
	}, s.reindexDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List knowledge-base documents page by page",
	}, s.listDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get metadata of one knowledge-base document",
	}, s.getDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a knowledge-base document. Agents referencing it are not updated",
	}, s.deleteDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "dependent_agents",
		Description: "List agents whose knowledge base references a document",
	}, s.dependentAgents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "agent_knowledge_base",
		Description: "Show the ordered knowledge-base list of an agent",
	}, s.agentKnowledgeBase)
}

func (s *Server) ingestURL(ctx context.Context, req *mcp.CallToolRequest, params *ingestURLParams) (*mcp.CallToolResult, any, error) {
	result, err := s.uc.Ingest(ctx, model.URLSource(params.URL), model.IngestOptions{
		DisplayName: params.Name,
		AgentID:     model.AgentID(params.AgentID),
		Model:       params.Model,
		SkipAttach:  params.SkipAttach,
	})
	if err != nil {
		return errorResult(ctx, "ingest_url", err)
	}
	return jsonResult(result)
}

func (s *Server) attachDocument(ctx context.Context, req *mcp.CallToolRequest, params *attachParams) (*mcp.CallToolResult, any, error) {
	result, err := s.uc.Attach(ctx, knowledge.AttachInput{
		AgentID:    model.AgentID(params.AgentID),
		DocumentID: model.DocumentID(params.DocumentID),
	})
	if err != nil {
		return errorResult(ctx, "attach_document", err)
	}
	return jsonResult(result)
}

func (s *Server) reindexDocument(ctx context.Context, req *mcp.CallToolRequest, params *reindexParams) (*mcp.CallToolResult, any, error) {
	result, err := s.uc.Reindex(ctx, model.DocumentID(params.DocumentID), model.ReindexOptions{
		AgentID: model.AgentID(params.AgentID),
		Model:   params.Model,
		Attach:  params.Attach,
	})
	if err != nil {
		return errorResult(ctx, "reindex_document", err)
	}
	return jsonResult(result)
}

func (s *Server) listDocuments(ctx context.Context, req *mcp.CallToolRequest, params *listParams) (*mcp.CallToolResult, any, error) {
	page, err := s.uc.ListDocuments(ctx, model.DocumentFilter{
		Cursor:   params.Cursor,
		PageSize: params.PageSize,
		Search:   params.Search,
	})
	if err != nil {
		return errorResult(ctx, "list_documents", err)
	}
	return jsonResult(page)
}

func (s *Server) getDocument(ctx context.Context, req *mcp.CallToolRequest, params *documentParams) (*mcp.CallToolResult, any, error) {
	doc, err := s.uc.GetDocument(ctx, model.DocumentID(params.DocumentID))
	if err != nil {
		return errorResult(ctx, "get_document", err)
	}
	return jsonResult(doc)
}

func (s *Server) deleteDocument(ctx context.Context, req *mcp.CallToolRequest, params *documentParams) (*mcp.CallToolResult, any, error) {
	if err := s.uc.DeleteDocument(ctx, model.DocumentID(params.DocumentID)); err != nil {
		return errorResult(ctx, "delete_document", err)
	}
	return jsonResult(map[string]any{"deleted": params.DocumentID})
}

func (s *Server) dependentAgents(ctx context.Context, req *mcp.CallToolRequest, params *dependentsParams) (*mcp.CallToolResult, any, error) {
	page, err := s.uc.DependentAgents(ctx, model.DocumentID(params.DocumentID), model.PageRequest{
		Cursor:   params.Cursor,
		PageSize: params.PageSize,
	})
	if err != nil {
		return errorResult(ctx, "dependent_agents", err)
	}
	return jsonResult(page)
}

func (s *Server) agentKnowledgeBase(ctx context.Context, req *mcp.CallToolRequest, params *agentParams) (*mcp.CallToolResult, any, error) {
	cfg, err := s.uc.AgentConfig(ctx, model.AgentID(params.AgentID))
	if err != nil {
		return errorResult(ctx, "agent_knowledge_base", err)
	}
	return jsonResult(cfg)
}
