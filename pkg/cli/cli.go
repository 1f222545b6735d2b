package cli

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"
)

// Version is set at build time
var Version = "dev"

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := newApp(os.Stdout, os.Stderr)

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

func newApp(w, errW io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "voxkb",
		Usage:     "Knowledge-base ingestion for conversational voice agents",
		Version:   Version,
		Writer:    w,
		ErrWriter: errW,
		Commands: []*cli.Command{
			ingestCommand(),
			attachCommand(),
			reindexCommand(),
			listCommand(),
			showCommand(),
			deleteCommand(),
			dependentsCommand(),
			knowledgeBaseCommand(),
			runsCommand(),
			serveCommand(),
		},
	}
}
