package convai_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/adapter/convai/convaitest"
	"github.com/m-mizutani/voxkb/pkg/model"
)

func TestGetAgentConfig(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Receptionist",
		model.NewKnowledgeBaseEntry("doc_1", "FAQ", model.SourceTypeFile),
		model.NewKnowledgeBaseEntry("doc_2", "Pricing", model.SourceTypeURL),
	)

	cfg, err := newClient(t, srv).Agents().GetAgentConfig(context.Background(), "agent_1")
	gt.NoError(t, err)
	gt.Equal(t, cfg.AgentID, model.AgentID("agent_1"))
	gt.Equal(t, cfg.Name, "Receptionist")
	gt.A(t, cfg.KnowledgeBase).Length(2)
	gt.Equal(t, cfg.KnowledgeBase[0].ID, model.DocumentID("doc_1"))
	gt.Equal(t, cfg.KnowledgeBase[1].UsageMode, model.UsageModeAuto)
	gt.True(t, cfg.HasDocument("doc_2"))
	gt.False(t, cfg.HasDocument("doc_3"))
}

func TestGetAgentConfigNotFound(t *testing.T) {
	srv := convaitest.New(t)

	_, err := newClient(t, srv).Agents().GetAgentConfig(context.Background(), "missing")
	gt.Error(t, err)
	gt.True(t, model.IsNotFound(err))
}

func TestGetAgentConfigMalformedEntries(t *testing.T) {
	testCases := map[string]string{
		"missing id":      `{"agent_id":"a","conversation_config":{"agent":{"prompt":{"knowledge_base":[{"type":"file","name":"x","usage_mode":"auto"}]}}}}`,
		"unknown type":    `{"agent_id":"a","conversation_config":{"agent":{"prompt":{"knowledge_base":[{"id":"d","type":"video","name":"x","usage_mode":"auto"}]}}}}`,
		"missing name":    `{"agent_id":"a","conversation_config":{"agent":{"prompt":{"knowledge_base":[{"id":"d","type":"url","usage_mode":"auto"}]}}}}`,
		"bad usage mode":  `{"agent_id":"a","conversation_config":{"agent":{"prompt":{"knowledge_base":[{"id":"d","type":"url","name":"x","usage_mode":"sometimes"}]}}}}`,
		"no conversation": `{"agent_id":"a"}`,
		"not json":        `<html>oops</html>`,
	}

	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			srv := convaitest.New(t)
			srv.Reply(convaitest.RouteGetAgent, body)

			_, err := newClient(t, srv).Agents().GetAgentConfig(context.Background(), "a")
			gt.Error(t, err)
			_, ok := model.AsUpstream(err)
			gt.True(t, ok)
		})
	}
}

func TestGetAgentConfigDefaultsUsageMode(t *testing.T) {
	srv := convaitest.New(t)
	srv.Reply(convaitest.RouteGetAgent,
		`{"agent_id":"a","conversation_config":{"agent":{"prompt":{"knowledge_base":[{"id":"d","type":"url","name":"x"}]}}}}`)

	cfg, err := newClient(t, srv).Agents().GetAgentConfig(context.Background(), "a")
	gt.NoError(t, err)
	gt.Equal(t, cfg.KnowledgeBase[0].UsageMode, model.UsageModeAuto)
}

func TestGetAgentConfigWithoutPrompt(t *testing.T) {
	srv := convaitest.New(t)
	srv.Reply(convaitest.RouteGetAgent, `{"agent_id":"a","conversation_config":{"agent":{}}}`)

	cfg, err := newClient(t, srv).Agents().GetAgentConfig(context.Background(), "a")
	gt.NoError(t, err)
	gt.A(t, cfg.KnowledgeBase).Length(0)
}

func TestSetKnowledgeBaseSendsOnlyKnowledgeBase(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Receptionist")
	agents := newClient(t, srv).Agents()

	entries := []model.KnowledgeBaseEntry{
		model.NewKnowledgeBaseEntry("doc_1", "FAQ", model.SourceTypeFile),
	}
	gt.NoError(t, agents.SetKnowledgeBase(context.Background(), "agent_1", entries))
	gt.Equal(t, srv.Entries("agent_1"), entries)

	patches := srv.Patches("agent_1")
	gt.A(t, patches).Length(1)
	gt.Equal(t, len(patches[0]), 1)

	conv := patches[0]["conversation_config"].(map[string]any)
	gt.Equal(t, len(conv), 1)
	agent := conv["agent"].(map[string]any)
	gt.Equal(t, len(agent), 1)
	prompt := agent["prompt"].(map[string]any)
	gt.Equal(t, len(prompt), 1)
	kb := prompt["knowledge_base"].([]any)
	gt.A(t, kb).Length(1)
	entry := kb[0].(map[string]any)
	gt.Equal(t, entry["id"], "doc_1")
	gt.Equal(t, entry["usage_mode"], "auto")
}

func TestSetKnowledgeBaseEmptyListIsArray(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Receptionist", model.NewKnowledgeBaseEntry("doc_1", "FAQ", model.SourceTypeFile))

	gt.NoError(t, newClient(t, srv).Agents().SetKnowledgeBase(context.Background(), "agent_1", nil))
	gt.A(t, srv.Entries("agent_1")).Length(0)
}

func TestSetKnowledgeBaseRejectsInvalidEntry(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Receptionist")

	err := newClient(t, srv).Agents().SetKnowledgeBase(context.Background(), "agent_1", []model.KnowledgeBaseEntry{
		{ID: "doc_1", Type: "video", Name: "x", UsageMode: model.UsageModeAuto},
	})
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
	gt.Equal(t, srv.Calls(convaitest.RoutePatchAgent), 0)
}
