package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/voxkb/pkg/adapter/convai/convaitest"
	"github.com/m-mizutani/voxkb/pkg/cli"
	"github.com/m-mizutani/voxkb/pkg/model"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, srv *convaitest.Server, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := cli.NewAppForTest(&out, &errOut)

	argv := []string{"voxkb", args[0]}
	if srv != nil {
		argv = append(argv,
			"--api-key", srv.APIKey,
			"--base-url", srv.URL,
			"--rate-limit", "0",
			"--agent-id", "agent_1",
			"--log-level", "warn",
		)
	}
	argv = append(argv, args[1:]...)

	err := app.Run(context.Background(), argv)
	return out.String(), err
}

func TestIngestURL(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	out, err := run(t, srv, "ingest", "--format", "json", "https://example.com/handbook")
	gt.NoError(t, err)

	var result model.IngestResult
	gt.NoError(t, json.Unmarshal([]byte(out), &result))
	gt.True(t, result.Attached)
	gt.Equal(t, result.Document.Name, "handbook")
	gt.Equal(t, srv.Entries("agent_1")[0].ID, result.Document.ID)
}

func TestIngestFile(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	path := filepath.Join(t.TempDir(), "faq.txt")
	gt.NoError(t, os.WriteFile(path, []byte("Q: hours?\nA: 9-5\n"), 0644))

	out, err := run(t, srv, "ingest", "--name", "FAQ", path)
	gt.NoError(t, err)
	gt.S(t, out).Contains("FAQ")
	gt.S(t, out).Contains("attached=true")

	uploads := srv.Uploads()
	gt.A(t, uploads).Length(1)
	gt.Equal(t, uploads[0].Filename, "faq.txt")
	gt.Equal(t, uploads[0].Name, "FAQ")
}

func TestIngestNoAttach(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	_, err := run(t, srv, "ingest", "--no-attach", "https://example.com/a")
	gt.NoError(t, err)
	gt.Equal(t, srv.DocumentCount(), 1)
	gt.A(t, srv.Entries("agent_1")).Length(0)
	gt.Equal(t, srv.Calls(convaitest.RoutePatchAgent), 0)
}

func TestIngestBatch(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	out, err := run(t, srv, "ingest", "--format", "yaml", "https://example.com/a", "https://example.com/b", "https://example.com/c")
	gt.NoError(t, err)

	var items []model.BatchItem
	gt.NoError(t, yaml.Unmarshal([]byte(out), &items))
	gt.A(t, items).Length(3)
	gt.Equal(t, items[1].Source, "https://example.com/b")
	gt.A(t, srv.Entries("agent_1")).Length(3)
}

func TestIngestMissingFile(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	_, err := run(t, srv, "ingest", filepath.Join(t.TempDir(), "missing.pdf"))
	gt.Error(t, err)
	gt.Equal(t, srv.TotalCalls(), 0)
}

func TestIngestPolicyRejects(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")

	dir := t.TempDir()
	gt.NoError(t, os.WriteFile(filepath.Join(dir, "ingest.rego"), []byte(`package voxkb.ingest

deny contains "only docs.example.com" if {
	input.host != "docs.example.com"
}
`), 0644))

	_, err := run(t, srv, "ingest", "--policy-dir", dir, "https://evil.example.net/a")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrPolicyRejected))
	gt.Equal(t, srv.TotalCalls(), 0)

	_, err = run(t, srv, "ingest", "--policy-dir", dir, "https://docs.example.com/a")
	gt.NoError(t, err)
	gt.Equal(t, srv.DocumentCount(), 1)
}

func TestRequiresAPIKey(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "")
	_, err := run(t, nil, "list")
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("api-key is required")
}

func TestAttachAndKnowledgeBase(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")
	srv.AddDocument("doc_a", "Alpha", "file")

	out, err := run(t, srv, "attach", "doc_a")
	gt.NoError(t, err)
	gt.S(t, out).Contains("doc_a attached")

	out, err = run(t, srv, "attach", "doc_a")
	gt.NoError(t, err)
	gt.S(t, out).Contains("already attached")
	gt.Equal(t, srv.Calls(convaitest.RoutePatchAgent), 1)

	out, err = run(t, srv, "kb", "--format", "json")
	gt.NoError(t, err)
	var cfg model.AgentConfig
	gt.NoError(t, json.Unmarshal([]byte(out), &cfg))
	gt.Equal(t, cfg.KnowledgeBase, []model.KnowledgeBaseEntry{
		{ID: "doc_a", Name: "Alpha", Type: model.SourceTypeFile, UsageMode: model.UsageModeAuto},
	})
}

func TestListAndShow(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_a", "Alpha", "file")
	srv.AddDocument("doc_b", "Beta", "url")
	srv.AddDocument("doc_c", "Gamma", "text")

	out, err := run(t, srv, "list", "--page-size", "2", "--format", "json")
	gt.NoError(t, err)
	var page model.Page[*model.Document]
	gt.NoError(t, json.Unmarshal([]byte(out), &page))
	gt.A(t, page.Items).Length(2)
	gt.True(t, page.HasMore)

	out, err = run(t, srv, "list", "--page-size", "2", "--all", "--format", "json")
	gt.NoError(t, err)
	gt.NoError(t, json.Unmarshal([]byte(out), &page))
	gt.A(t, page.Items).Length(3)

	out, err = run(t, srv, "show", "doc_b")
	gt.NoError(t, err)
	gt.S(t, out).Contains("Beta")
	gt.S(t, out).Contains("url")

	_, err = run(t, srv, "list", "--page-size", "500")
	gt.True(t, errors.Is(err, model.ErrInvalidInput))
}

func TestDelete(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_a", "Alpha", "file")
	srv.SetDependents("doc_a", "agent_1")

	_, err := run(t, srv, "delete", "doc_a")
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("referenced by agents")
	gt.True(t, srv.HasDocument("doc_a"))

	out, err := run(t, srv, "agents", "doc_a")
	gt.NoError(t, err)
	gt.S(t, out).Contains("agent_1")

	_, err = run(t, srv, "delete", "--force", "doc_a")
	gt.NoError(t, err)
	gt.False(t, srv.HasDocument("doc_a"))
}

func TestReindex(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddAgent("agent_1", "Support")
	srv.AddDocument("doc_a", "Alpha", "file")
	srv.SetIndexStatus("doc_a", "processing")

	out, err := run(t, srv, "reindex", "--attach", "doc_a")
	gt.NoError(t, err)
	gt.S(t, out).Contains("index=pending")
	gt.A(t, srv.Entries("agent_1")).Length(0)

	srv.SetIndexStatus("doc_a", "succeeded")
	out, err = run(t, srv, "reindex", "--attach", "doc_a")
	gt.NoError(t, err)
	gt.S(t, out).Contains("attached=true")
	gt.A(t, srv.Entries("agent_1")).Length(1)
}

func TestUnsupportedFormat(t *testing.T) {
	srv := convaitest.New(t)
	srv.AddDocument("doc_a", "Alpha", "file")

	_, err := run(t, srv, "show", "--format", "xml", "doc_a")
	gt.Error(t, err)
	gt.S(t, err.Error()).Contains("unsupported output format")
}
