// Package convaitest provides an in-memory fake of the remote conversational AI
// knowledge-base and agent API for tests.
package convaitest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/m-mizutani/voxkb/pkg/model"
)

// Route names used for call counting and failure injection.
const (
	RouteCreateFile = "create_file"
	RouteCreateURL  = "create_url"
	RouteGetDoc     = "get_document"
	RouteList       = "list_documents"
	RouteDelete     = "delete_document"
	RouteIndex      = "compute_index"
	RouteDependents = "dependent_agents"
	RouteGetAgent   = "get_agent"
	RoutePatchAgent = "patch_agent"
)

type document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
	Size int    `json:"-"`
}

type agent struct {
	name    string
	entries []model.KnowledgeBaseEntry
	patches []map[string]any
}

type failure struct {
	status int
	body   string
	times  int
}

// Upload is a received multipart file upload.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
	Name        string
	AgentID     string
}

// Server is a fake remote service. All state is guarded by mu.
type Server struct {
	*httptest.Server

	APIKey string

	mu          sync.Mutex
	seq         int
	docs        map[string]*document
	order       []string
	agents      map[string]*agent
	dependents  map[string][]string
	indexStatus map[string]string
	failures    map[string]*failure
	rawReplies  map[string]string
	calls       map[string]int
	uploads     []Upload
	unauthCalls int
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	s := &Server{
		APIKey:      "test-api-key",
		docs:        map[string]*document{},
		agents:      map[string]*agent{},
		dependents:  map[string][]string{},
		indexStatus: map[string]string{},
		failures:    map[string]*failure{},
		rawReplies:  map[string]string{},
		calls:       map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/convai/knowledge-base/file", s.wrap(RouteCreateFile, s.createFile))
	mux.HandleFunc("POST /v1/convai/knowledge-base/url", s.wrap(RouteCreateURL, s.createURL))
	mux.HandleFunc("GET /v1/convai/knowledge-base", s.wrap(RouteList, s.list))
	mux.HandleFunc("GET /v1/convai/knowledge-base/{id}", s.wrap(RouteGetDoc, s.getDocument))
	mux.HandleFunc("DELETE /v1/convai/knowledge-base/{id}", s.wrap(RouteDelete, s.deleteDocument))
	mux.HandleFunc("POST /v1/convai/knowledge-base/{id}/rag-index", s.wrap(RouteIndex, s.computeIndex))
	mux.HandleFunc("GET /v1/convai/knowledge-base/{id}/dependent-agents", s.wrap(RouteDependents, s.dependentAgents))
	mux.HandleFunc("GET /v1/convai/agents/{id}", s.wrap(RouteGetAgent, s.getAgent))
	mux.HandleFunc("PATCH /v1/convai/agents/{id}", s.wrap(RoutePatchAgent, s.patchAgent))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *Server) wrap(route string, h func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		if r.Header.Get("xi-api-key") != s.APIKey {
			s.unauthCalls++
			s.mu.Unlock()
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "invalid api key"})
			return
		}
		if f, ok := s.failures[route]; ok && f.times != 0 {
			if f.times > 0 {
				f.times--
			}
			s.mu.Unlock()
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		if raw, ok := s.rawReplies[route]; ok {
			s.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, raw)
			return
		}
		defer s.mu.Unlock()
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, what, id string) {
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": fmt.Sprintf("%s %s not found", what, id)})
}

// Fail makes the next `times` calls to route respond with status and body.
// A negative times fails every call.
func (s *Server) Fail(route string, status int, body string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = &failure{status: status, body: body, times: times}
}

// Reply makes every call to route respond 200 with the raw body.
func (s *Server) Reply(route, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawReplies[route] = body
}

// Calls returns how many requests reached route, including injected failures.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls returns the number of requests across all routes.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// AddAgent registers an agent with an initial knowledge-base list.
func (s *Server) AddAgent(id, name string, entries ...model.KnowledgeBaseEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[id] = &agent{name: name, entries: append([]model.KnowledgeBaseEntry{}, entries...)}
}

// Entries returns the current knowledge-base list of an agent.
func (s *Server) Entries(agentID string) []model.KnowledgeBaseEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil
	}
	return append([]model.KnowledgeBaseEntry{}, a.entries...)
}

// Patches returns the raw PATCH bodies received for an agent.
func (s *Server) Patches(agentID string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[agentID]
	if !ok {
		return nil
	}
	return append([]map[string]any{}, a.patches...)
}

// AddDocument registers an existing document. Documents added later list first.
func (s *Server) AddDocument(id, name, typ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putDoc(&document{ID: id, Name: name, Type: typ})
}

func (s *Server) putDoc(d *document) {
	s.docs[d.ID] = d
	s.order = append(s.order, d.ID)
}

// HasDocument reports whether a document exists.
func (s *Server) HasDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[id]
	return ok
}

// DocumentCount returns the number of stored documents.
func (s *Server) DocumentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Uploads returns the received file uploads.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload{}, s.uploads...)
}

// SetIndexStatus sets the remote index status returned for a document; "*" sets the default.
func (s *Server) SetIndexStatus(docID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexStatus[docID] = status
}

// SetDependents sets the agents that reference a document.
func (s *Server) SetDependents(docID string, agentIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dependents[docID] = agentIDs
}

func (s *Server) newID() string {
	s.seq++
	return fmt.Sprintf("doc_%d", s.seq)
}

func (s *Server) createFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	up := Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Name:        r.FormValue("name"),
		AgentID:     r.FormValue("agent_id"),
	}
	s.uploads = append(s.uploads, up)

	name := up.Name
	if name == "" {
		name = up.Filename
	}
	d := &document{ID: s.newID(), Name: name, Type: "file", Size: len(data)}
	s.putDoc(d)
	writeJSON(w, http.StatusOK, map[string]any{"id": d.ID, "name": d.Name})
}

func (s *Server) createURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string `json:"url"`
		Name    string `json:"name"`
		AgentID string `json:"agent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "url is required"})
		return
	}

	name := req.Name
	if name == "" {
		parts := strings.Split(strings.TrimRight(req.URL, "/"), "/")
		name = parts[len(parts)-1]
	}
	d := &document{ID: s.newID(), Name: name, Type: "url", URL: req.URL}
	s.putDoc(d)
	writeJSON(w, http.StatusOK, map[string]any{"id": d.ID, "name": d.Name})
}

func (s *Server) docJSON(d *document) map[string]any {
	v := map[string]any{
		"id":   d.ID,
		"name": d.Name,
		"type": d.Type,
		"metadata": map[string]any{
			"created_at_unix_secs":      1700000000,
			"last_updated_at_unix_secs": 1700000000,
			"size_bytes":                d.Size,
		},
	}
	if d.URL != "" {
		v["url"] = d.URL
	}
	return v
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d, ok := s.docs[id]
	if !ok {
		notFound(w, "document", id)
		return
	}
	writeJSON(w, http.StatusOK, s.docJSON(d))
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || size <= 0 {
		size = 30
	}
	offset := 0
	if c := q.Get("cursor"); c != "" {
		offset, err = strconv.Atoi(c)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "bad cursor"})
			return
		}
	}
	search := strings.ToLower(q.Get("search"))

	// newest first
	var matched []*document
	for i := len(s.order) - 1; i >= 0; i-- {
		d, ok := s.docs[s.order[i]]
		if !ok {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Name), search) {
			continue
		}
		matched = append(matched, d)
	}

	docs := []map[string]any{}
	end := offset + size
	if end > len(matched) {
		end = len(matched)
	}
	for i := offset; i < end; i++ {
		docs = append(docs, s.docJSON(matched[i]))
	}

	resp := map[string]any{"documents": docs, "has_more": end < len(matched), "next_cursor": nil}
	if end < len(matched) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.docs[id]; !ok {
		notFound(w, "document", id)
		return
	}
	delete(s.docs, id)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "{}")
}

func (s *Server) computeIndex(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.docs[id]; !ok {
		notFound(w, "document", id)
		return
	}
	var req struct {
		Model string `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "model is required"})
		return
	}

	status, ok := s.indexStatus[id]
	if !ok {
		status, ok = s.indexStatus["*"]
	}
	if !ok {
		status = "succeeded"
	}
	progress := 0
	if status == "succeeded" {
		progress = 100
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":                  "idx_" + id,
		"model":               req.Model,
		"status":              status,
		"progress_percentage": progress,
	})
}

func (s *Server) dependentAgents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.docs[id]; !ok {
		notFound(w, "document", id)
		return
	}
	q := r.URL.Query()
	size, err := strconv.Atoi(q.Get("page_size"))
	if err != nil || size <= 0 {
		size = 30
	}
	offset, _ := strconv.Atoi(q.Get("cursor"))

	all := s.dependents[id]
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	agents := []map[string]any{}
	for _, a := range all[offset:end] {
		agents = append(agents, map[string]any{"id": a, "name": a, "type": "available"})
	}
	resp := map[string]any{"dependent_agents": agents, "has_more": end < len(all), "next_cursor": nil}
	if end < len(all) {
		resp["next_cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := s.agents[id]
	if !ok {
		notFound(w, "agent", id)
		return
	}
	entries := a.entries
	if entries == nil {
		entries = []model.KnowledgeBaseEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"name":     a.name,
		"conversation_config": map[string]any{
			"agent": map[string]any{
				"first_message": "Hi, how can I help?",
				"prompt": map[string]any{
					"prompt":         "You are a helpful assistant.",
					"llm":            "gemini-2.0-flash",
					"knowledge_base": entries,
				},
			},
			"tts": map[string]any{"voice_id": "voice_1"},
		},
		"platform_settings": map[string]any{"widget": map[string]any{"variant": "compact"}},
	})
}

func (s *Server) patchAgent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := s.agents[id]
	if !ok {
		notFound(w, "agent", id)
		return
	}

	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "invalid json"})
		return
	}
	a.patches = append(a.patches, body)

	var patch struct {
		ConversationConfig *struct {
			Agent *struct {
				Prompt *struct {
					KnowledgeBase []model.KnowledgeBaseEntry `json:"knowledge_base"`
				} `json:"prompt"`
			} `json:"agent"`
		} `json:"conversation_config"`
	}
	if err := json.Unmarshal(raw, &patch); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": err.Error()})
		return
	}
	if c := patch.ConversationConfig; c != nil && c.Agent != nil && c.Agent.Prompt != nil && c.Agent.Prompt.KnowledgeBase != nil {
		a.entries = c.Agent.Prompt.KnowledgeBase
	}
	writeJSON(w, http.StatusOK, map[string]any{"agent_id": id})
}
