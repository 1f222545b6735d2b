package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/service/mcp"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	var (
		cfg       config
		transport string
		addr      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "transport",
			Aliases:     []string{"t"},
			Usage:       "MCP transport (stdio, http)",
			Value:       "stdio",
			Sources:     cli.EnvVars("VOXKB_MCP_TRANSPORT"),
			Destination: &transport,
		},
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Listen address for the http transport",
			Value:       "127.0.0.1:8080",
			Sources:     cli.EnvVars("VOXKB_MCP_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the pipeline as MCP tools",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			// stdout carries the protocol; logs always go to stderr
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			server := mcp.NewServer(uc, c.Root().Version)

			switch transport {
			case "stdio":
				return server.RunStdio(ctx)
			case "http":
				return serveHTTP(ctx, addr, server.Handler())
			default:
				return goerr.New("unsupported transport",
					goerr.V("transport", transport),
					goerr.V("supported", []string{"stdio", "http"}))
			}
		},
	}
}

func serveHTTP(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.From(ctx).Info("serving MCP over http", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return goerr.Wrap(err, "http server failed", goerr.V("addr", addr))
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return goerr.Wrap(err, "failed to shut down http server")
		}
		return nil
	}
}
