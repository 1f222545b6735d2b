package model

// PolicyInput is the document passed to the admission policy as `input`.
type PolicyInput struct {
	Kind        SourceType `json:"kind"`
	URL         string     `json:"url,omitempty"`
	Host        string     `json:"host,omitempty"`
	Filename    string     `json:"filename,omitempty"`
	MIMEType    string     `json:"mime_type,omitempty"`
	Size        int        `json:"size"`
	DisplayName string     `json:"display_name,omitempty"`
	AgentID     AgentID    `json:"agent_id,omitempty"`
}

// NewPolicyInput builds policy input from a validated source.
func NewPolicyInput(src *Source, opts IngestOptions) *PolicyInput {
	return &PolicyInput{
		Kind:        src.Kind,
		URL:         src.URL,
		Host:        src.Host(),
		Filename:    src.Filename,
		MIMEType:    src.ContentType(),
		Size:        len(src.Data),
		DisplayName: opts.DisplayName,
		AgentID:     opts.AgentID,
	}
}

// PolicyDecision is the admission policy outcome. Empty Name/Model mean no override.
type PolicyDecision struct {
	Deny  []string `json:"deny,omitempty"`
	Name  string   `json:"name,omitempty"`
	Model string   `json:"model,omitempty"`
}

// Denied reports whether any deny reason was produced.
func (x *PolicyDecision) Denied() bool {
	return x != nil && len(x.Deny) > 0
}
