package convai

import (
	"bytes"
	"context"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
)

const knowledgeBasePath = "/v1/convai/knowledge-base"

// DocumentStore is a thin typed client over the knowledge-base document API.
type DocumentStore struct {
	client *Client
}

var _ interfaces.DocumentStore = (*DocumentStore)(nil)

func documentPath(id model.DocumentID, suffix ...string) string {
	p := knowledgeBasePath + "/" + url.PathEscape(string(id))
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (s *DocumentStore) CreateFromFile(ctx context.Context, input interfaces.CreateFileInput) (*model.Document, error) {
	if len(input.Data) == 0 {
		return nil, model.InvalidInput("file", "file payload is empty")
	}
	if input.Filename == "" {
		return nil, model.InvalidInput("filename", "filename is required")
	}

	mimeType := input.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "file",
		"filename": input.Filename,
	}))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create file part")
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, goerr.Wrap(err, "failed to write file part")
	}

	if input.DisplayName != "" {
		if err := w.WriteField("name", input.DisplayName); err != nil {
			return nil, goerr.Wrap(err, "failed to write name field")
		}
	}
	if input.AgentID != "" {
		if err := w.WriteField("agent_id", string(input.AgentID)); err != nil {
			return nil, goerr.Wrap(err, "failed to write agent_id field")
		}
	}
	if err := w.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close multipart body")
	}

	req := request{
		method:      http.MethodPost,
		path:        knowledgeBasePath + "/file",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}

	var resp documentResponse
	if err := s.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to create document from file", goerr.V("filename", input.Filename))
	}

	doc := resp.toModel()
	doc.SourceType = model.SourceTypeFile
	doc.ContentType = mimeType
	doc.OwnerAgentID = input.AgentID
	doc.SizeBytes = int64(len(input.Data))
	return doc, nil
}

func (s *DocumentStore) CreateFromURL(ctx context.Context, input interfaces.CreateURLInput) (*model.Document, error) {
	if err := model.ValidateURL(input.URL); err != nil {
		return nil, err
	}

	req, err := jsonRequest(http.MethodPost, knowledgeBasePath+"/url", &createURLRequest{
		URL:     input.URL,
		Name:    input.DisplayName,
		AgentID: string(input.AgentID),
	})
	if err != nil {
		return nil, err
	}

	var resp documentResponse
	if err := s.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to create document from url", goerr.V("url", input.URL))
	}

	doc := resp.toModel()
	doc.SourceType = model.SourceTypeURL
	doc.URL = input.URL
	doc.OwnerAgentID = input.AgentID
	return doc, nil
}

func (s *DocumentStore) GetDocument(ctx context.Context, id model.DocumentID) (*model.Document, error) {
	if id == "" {
		return nil, model.InvalidInput("document_id", "document id is empty")
	}

	var resp documentDetailResponse
	req := request{method: http.MethodGet, path: documentPath(id)}
	if err := s.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("document_id", id))
	}

	return resp.toModel(), nil
}

func (s *DocumentStore) ListDocuments(ctx context.Context, filter model.DocumentFilter) (*model.Page[*model.Document], error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page_size", strconv.Itoa(filter.PageSize))
	if filter.Cursor != "" {
		query.Set("cursor", filter.Cursor)
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}
	if filter.OwnedOnly {
		query.Set("show_only_owned_documents", "true")
	}
	if filter.AgentID != "" {
		query.Set("agent_id", string(filter.AgentID))
	}

	var resp listDocumentsResponse
	req := request{method: http.MethodGet, path: knowledgeBasePath, query: query}
	if err := s.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to list documents", goerr.V("cursor", filter.Cursor))
	}

	page := &model.Page[*model.Document]{
		Items:   make([]*model.Document, 0, len(resp.Documents)),
		HasMore: resp.HasMore,
	}
	for _, d := range resp.Documents {
		page.Items = append(page.Items, d.toModel())
	}
	if resp.NextCursor != nil && resp.HasMore {
		page.NextCursor = *resp.NextCursor
	}

	return page, nil
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, id model.DocumentID) error {
	if id == "" {
		return model.InvalidInput("document_id", "document id is empty")
	}

	req := request{method: http.MethodDelete, path: documentPath(id)}
	if err := s.client.do(ctx, req, nil); err != nil {
		return goerr.Wrap(err, "failed to delete document", goerr.V("document_id", id))
	}
	return nil
}

func (s *DocumentStore) DependentAgents(ctx context.Context, id model.DocumentID, page model.PageRequest) (*model.Page[model.AgentID], error) {
	if id == "" {
		return nil, model.InvalidInput("document_id", "document id is empty")
	}
	page, err := page.Normalize()
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page_size", strconv.Itoa(page.PageSize))
	if page.Cursor != "" {
		query.Set("cursor", page.Cursor)
	}

	var resp dependentAgentsResponse
	req := request{method: http.MethodGet, path: documentPath(id, "dependent-agents"), query: query}
	if err := s.client.do(ctx, req, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to get dependent agents", goerr.V("document_id", id))
	}

	result := &model.Page[model.AgentID]{
		Items:   make([]model.AgentID, 0, len(resp.DependentAgents)),
		HasMore: resp.HasMore,
	}
	for _, a := range resp.DependentAgents {
		// agents the caller cannot see are reported without id
		if a.ID == "" {
			continue
		}
		result.Items = append(result.Items, model.AgentID(a.ID))
	}
	if resp.NextCursor != nil && resp.HasMore {
		result.NextCursor = *resp.NextCursor
	}

	return result, nil
}
