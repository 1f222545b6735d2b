package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/urfave/cli/v3"
)

func reindexCommand() *cli.Command {
	var (
		cfg        config
		embedModel string
		attach     bool
		format     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Embedding model for this computation",
			Destination: &embedModel,
		},
		&cli.BoolFlag{
			Name:        "attach",
			Usage:       "Attach the document to the agent once the index has succeeded",
			Destination: &attach,
		},
		formatFlag(&format),
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "reindex",
		Usage:     "Compute the index of an existing document again",
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

			result, err := uc.Reindex(ctx, model.DocumentID(docID), model.ReindexOptions{
				Model:  embedModel,
				Attach: attach,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to reindex document", goerr.V("document_id", docID))
			}

			return render(c.Root().Writer, format, result, func(w io.Writer) {
				printIngestResult(w, result)
			})
		},
	}
}
