package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func formatFlag(dst *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Aliases:     []string{"o"},
		Usage:       "Output format (text, json, yaml)",
		Value:       formatText,
		Sources:     cli.EnvVars("VOXKB_FORMAT"),
		Destination: dst,
	}
}

// render writes v in the requested format. text falls back to textFn.
func render(w io.Writer, format string, v any, textFn func(w io.Writer)) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode json")
		}
		return nil

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return goerr.Wrap(err, "failed to encode yaml")
		}
		return enc.Close()

	case formatText, "":
		textFn(w)
		return nil

	default:
		return goerr.New("unsupported output format", goerr.V("format", format))
	}
}

func printDocument(w io.Writer, doc *model.Document) {
	fmt.Fprintf(w, "ID:          %s\n", doc.ID)
	fmt.Fprintf(w, "Name:        %s\n", doc.Name)
	fmt.Fprintf(w, "Type:        %s\n", doc.SourceType)
	if doc.URL != "" {
		fmt.Fprintf(w, "URL:         %s\n", doc.URL)
	}
	if doc.ContentType != "" {
		fmt.Fprintf(w, "Content:     %s\n", doc.ContentType)
	}
	if doc.SizeBytes > 0 {
		fmt.Fprintf(w, "Size:        %d bytes\n", doc.SizeBytes)
	}
	if doc.OwnerAgentID != "" {
		fmt.Fprintf(w, "Owner:       %s\n", doc.OwnerAgentID)
	}
	if doc.CreatedAt != nil {
		fmt.Fprintf(w, "Created:     %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printIngestResult(w io.Writer, r *model.IngestResult) {
	if r.Document != nil {
		fmt.Fprintf(w, "%s\t%s\tindex=%s\tattached=%t\n", r.Document.ID, r.Document.Name, r.IndexStatus, r.Attached)
	}
	for _, s := range r.Stages {
		if s.Status == model.StageOK {
			continue
		}
		line := fmt.Sprintf("  %s: %s", s.Stage, s.Status)
		if s.Error != "" {
			line += " (" + s.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func printRun(w io.Writer, run *model.Run) {
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\tindex=%s\tattached=%t\t%s\n",
		run.CreatedAt.Format("2006-01-02 15:04:05"),
		run.ID,
		run.Operation,
		run.DocumentID,
		run.IndexStatus,
		run.Attached,
		run.SourceRef,
	)
}
