package policy

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/topdown/print"
)

// Query is the Rego document holding the admission decision.
//
//	package voxkb.ingest
//
//	deny contains msg if { ... }   # any message rejects the source
//	name := "..." if { ... }        # display name when the caller gave none
//	model := "..." if { ... }       # embedding model when the caller gave none
const Query = "data.voxkb.ingest"

// Engine evaluates the admission policy for sources before they are created remotely.
type Engine struct {
	query *rego.PreparedEvalQuery
}

var _ interfaces.SourcePolicy = (*Engine)(nil)

// New loads the policy from policyDir. A directory without .rego files yields an
// engine that admits everything.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	query, err := loadPolicy(ctx, policyDir)
	if err != nil {
		return nil, err
	}
	return &Engine{query: query}, nil
}

// Empty reports whether no policy was loaded.
func (e *Engine) Empty() bool {
	return e.query == nil
}

// regoPrintHook forwards Rego print() statements to the context logger
type regoPrintHook struct {
	ctx context.Context
}

func (h *regoPrintHook) Print(_ print.Context, message string) error {
	logging.From(h.ctx).Debug("rego print", "message", message)
	return nil
}

// Evaluate runs the policy against one source.
func (e *Engine) Evaluate(ctx context.Context, input *model.PolicyInput) (*model.PolicyDecision, error) {
	if e.query == nil {
		return &model.PolicyDecision{}, nil
	}

	raw, err := toInput(input)
	if err != nil {
		return nil, err
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(raw), rego.EvalPrintHook(&regoPrintHook{ctx: ctx}))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to evaluate admission policy")
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return &model.PolicyDecision{}, nil
	}

	data, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return nil, goerr.New("invalid policy result: not an object", goerr.V("query", Query))
	}

	decision := &model.PolicyDecision{
		Name:  getString(data, "name"),
		Model: getString(data, "model"),
	}

	if denyData, ok := data["deny"]; ok {
		reasons, ok := denyData.([]any)
		if !ok {
			return nil, goerr.New("invalid policy result: deny is not a set", goerr.V("deny", denyData))
		}
		for _, r := range reasons {
			msg, ok := r.(string)
			if !ok {
				b, _ := json.Marshal(r)
				msg = string(b)
			}
			decision.Deny = append(decision.Deny, msg)
		}
		sort.Strings(decision.Deny)
	}

	logging.From(ctx).Debug("admission policy evaluated",
		"denied", decision.Denied(),
		"name", decision.Name,
		"model", decision.Model,
	)
	return decision, nil
}

// toInput converts the typed input into the plain JSON shape Rego sees as `input`.
func toInput(input *model.PolicyInput) (map[string]any, error) {
	b, err := json.Marshal(input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal policy input")
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal policy input")
	}
	return raw, nil
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
