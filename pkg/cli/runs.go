package cli

import (
	"context"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/urfave/cli/v3"
)

func runsCommand() *cli.Command {
	var (
		cfg    config
		offset int64
		limit  int64
		format string
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "offset",
			Usage:       "Offset for pagination",
			Value:       0,
			Destination: &offset,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of runs to list",
			Value:       20,
			Destination: &limit,
		},
		formatFlag(&format),
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, journalFlags(&cfg)...)

	return &cli.Command{
		Name:      "runs",
		Usage:     "Show journaled ingestion runs, newest first, or one run by ID",
		ArgsUsage: "[run-id]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			if cfg.firestoreProject == "" {
				return goerr.New("firestore-project is required to read the run journal")
			}

			journal, closeJournal, err := cfg.newJournal(ctx)
			if err != nil {
				return err
			}
			defer closeJournal()

			if id := c.Args().First(); id != "" {
				run, err := journal.GetRun(ctx, model.RunID(id))
				if err != nil {
					return goerr.Wrap(err, "failed to get run", goerr.V("run_id", id))
				}
				return render(c.Root().Writer, format, run, func(w io.Writer) {
					printRun(w, run)
					for _, s := range run.Stages {
						line := "  " + string(s.Stage) + ": " + string(s.Status)
						if s.Error != "" {
							line += " (" + s.Error + ")"
						}
						_, _ = io.WriteString(w, line+"\n")
					}
				})
			}

			runs, err := journal.ListRuns(ctx, int(offset), int(limit))
			if err != nil {
				return goerr.Wrap(err, "failed to list runs")
			}
			return render(c.Root().Writer, format, runs, func(w io.Writer) {
				for _, run := range runs {
					printRun(w, run)
				}
			})
		},
	}
}
