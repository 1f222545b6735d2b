package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/urfave/cli/v3"
)

func listCommand() *cli.Command {
	var (
		cfg      config
		cursor   string
		pageSize int64
		search   string
		owned    bool
		all      bool
		format   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "cursor",
			Usage:       "Cursor returned by a previous page",
			Destination: &cursor,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Aliases:     []string{"l"},
			Usage:       "Documents per page (1-100)",
			Value:       model.DefaultPageSize,
			Destination: &pageSize,
		},
		&cli.StringFlag{
			Name:        "search",
			Aliases:     []string{"s"},
			Usage:       "Filter by document name",
			Destination: &search,
		},
		&cli.BoolFlag{
			Name:        "owned",
			Usage:       "Only documents created by the agent",
			Destination: &owned,
		},
		&cli.BoolFlag{
			Name:        "all",
			Usage:       "Follow cursors until the last page",
			Destination: &all,
		},
		formatFlag(&format),
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "list",
		Usage: "List knowledge-base documents",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			filter := model.DocumentFilter{
				Cursor:    cursor,
				PageSize:  int(pageSize),
				Search:    search,
				OwnedOnly: owned,
			}
			if owned {
				filter.AgentID = model.AgentID(cfg.agentID)
			}

			page := &model.Page[*model.Document]{}
			if all {
				for doc, err := range uc.AllDocuments(ctx, filter) {
					if err != nil {
						return goerr.Wrap(err, "failed to list documents")
					}
					page.Items = append(page.Items, doc)
				}
			} else {
				page, err = uc.ListDocuments(ctx, filter)
				if err != nil {
					return goerr.Wrap(err, "failed to list documents")
				}
			}

			return render(c.Root().Writer, format, page, func(w io.Writer) {
				for _, d := range page.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.SourceType, d.Name)
				}
				if page.HasMore {
					fmt.Fprintf(w, "next cursor: %s\n", page.NextCursor)
				}
			})
		},
	}
}

func showCommand() *cli.Command {
	var (
		cfg    config
		format string
	)

	flags := []cli.Flag{formatFlag(&format)}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "show",
		Usage:     "Show metadata of a document",
		ArgsUsage: "<document-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			doc, err := uc.GetDocument(ctx, model.DocumentID(c.Args().First()))
			if err != nil {
				return goerr.Wrap(err, "failed to show document")
			}

			return render(c.Root().Writer, format, doc, func(w io.Writer) {
				printDocument(w, doc)
			})
		},
	}
}

func deleteCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "force",
			Aliases:     []string{"f"},
			Usage:       "Delete even if agents still reference the document",
			Destination: &force,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a document",
		ArgsUsage: "<document-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			docID := model.DocumentID(c.Args().First())
			if docID == "" {
				return goerr.New("document id is required")
			}

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if !force {
				page, err := uc.DependentAgents(ctx, docID, model.PageRequest{})
				if err != nil {
					return goerr.Wrap(err, "failed to check dependent agents", goerr.V("document_id", docID))
				}
				if len(page.Items) > 0 {
					return goerr.New("document is referenced by agents, use --force to delete",
						goerr.V("document_id", docID),
						goerr.V("agents", page.Items))
				}
			}

			if err := uc.DeleteDocument(ctx, docID); err != nil {
				return err
			}
			fmt.Fprintf(c.Root().Writer, "%s deleted\n", docID)
			return nil
		},
	}
}

func dependentsCommand() *cli.Command {
	var (
		cfg      config
		cursor   string
		pageSize int64
		format   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "cursor",
			Usage:       "Cursor returned by a previous page",
			Destination: &cursor,
		},
		&cli.IntFlag{
			Name:        "page-size",
			Aliases:     []string{"l"},
			Usage:       "Agents per page (1-100)",
			Value:       model.DefaultPageSize,
			Destination: &pageSize,
		},
		formatFlag(&format),
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "agents",
		Usage:     "List agents that reference a document",
		ArgsUsage: "<document-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			page, err := uc.DependentAgents(ctx, model.DocumentID(c.Args().First()), model.PageRequest{
				Cursor:   cursor,
				PageSize: int(pageSize),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list dependent agents")
			}

			return render(c.Root().Writer, format, page, func(w io.Writer) {
				for _, id := range page.Items {
					fmt.Fprintln(w, id)
				}
				if page.HasMore {
					fmt.Fprintf(w, "next cursor: %s\n", page.NextCursor)
				}
			})
		},
	}
}
