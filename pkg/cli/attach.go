package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/usecase/knowledge"
	"github.com/urfave/cli/v3"
)

func attachCommand() *cli.Command {
	var (
		cfg     config
		name    string
		docType string
		format  string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Entry name. Resolved from the document when empty",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Entry type (file, url, text). Resolved from the document when empty",
			Destination: &docType,
		},
		formatFlag(&format),
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "attach",
		Usage:     "Add an existing document to the agent knowledge base",
		ArgsUsage: "<document-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			docID := c.Args().First()
			if docID == "" {
				return goerr.New("document id is required")
			}

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := uc.Attach(ctx, knowledge.AttachInput{
				DocumentID: model.DocumentID(docID),
				Name:       name,
				Type:       model.SourceType(docType),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to attach document", goerr.V("document_id", docID))
			}

			return render(c.Root().Writer, format, result, func(w io.Writer) {
				switch {
				case result.Attached:
					fmt.Fprintf(w, "%s attached (%d entries)\n", docID, result.Entries)
				case result.AlreadyPresent:
					fmt.Fprintf(w, "%s already attached (%d entries)\n", docID, result.Entries)
				}
			})
		},
	}
}

func knowledgeBaseCommand() *cli.Command {
	var (
		cfg    config
		format string
	)

	flags := []cli.Flag{formatFlag(&format)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "kb",
		Usage:     "Show the ordered knowledge-base list of an agent",
		ArgsUsage: "[agent-id]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			agentCfg, err := uc.AgentConfig(ctx, model.AgentID(c.Args().First()))
			if err != nil {
				return goerr.Wrap(err, "failed to get agent knowledge base")
			}

			return render(c.Root().Writer, format, agentCfg, func(w io.Writer) {
				for i, e := range agentCfg.KnowledgeBase {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, e.ID, e.Type, e.UsageMode, e.Name)
				}
			})
		},
	}
}
