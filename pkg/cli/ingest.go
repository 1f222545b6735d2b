package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/adapter"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// maxSourceSize bounds file sources read into memory
const maxSourceSize = 64 << 20

func ingestCommand() *cli.Command {
	var (
		cfg         config
		name        string
		embedModel  string
		mimeType    string
		noAttach    bool
		concurrency int64
		format      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "name",
			Aliases:     []string{"n"},
			Usage:       "Display name of the document (single source only)",
			Destination: &name,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Embedding model for this ingestion",
			Destination: &embedModel,
		},
		&cli.StringFlag{
			Name:        "mime-type",
			Usage:       "MIME type of file sources. Derived from the extension when empty",
			Destination: &mimeType,
		},
		&cli.BoolFlag{
			Name:        "no-attach",
			Usage:       "Create and index without attaching to the agent",
			Sources:     cli.EnvVars("VOXKB_NO_ATTACH"),
			Destination: &noAttach,
		},
		&cli.IntFlag{
			Name:        "concurrency",
			Aliases:     []string{"c"},
			Usage:       "Sources ingested in parallel",
			Value:       2,
			Sources:     cli.EnvVars("VOXKB_CONCURRENCY"),
			Destination: &concurrency,
		},
		formatFlag(&format),
	}
	flags = append(flags, allFlags(&cfg)...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Create documents from files, gs:// objects or URLs, index them and attach them to the agent",
		ArgsUsage: "<file|gs://bucket/object|https://url>...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx, c.Root().ErrWriter)

			args := c.Args().Slice()
			if len(args) == 0 {
				return goerr.New("at least one source is required")
			}
			if name != "" && len(args) > 1 {
				return goerr.New("--name can be used with a single source only")
			}

			uc, cleanup, err := cfg.newUseCase(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			loader := &sourceLoader{cfg: &cfg, mimeType: mimeType}
			defer loader.Close()

			sources := make([]model.Source, 0, len(args))
			for _, arg := range args {
				src, err := loader.Load(ctx, arg)
				if err != nil {
					return err
				}
				sources = append(sources, src)
			}

			opts := model.IngestOptions{
				DisplayName: name,
				Model:       embedModel,
				SkipAttach:  noAttach,
			}

			w := c.Root().Writer
			spin := newSpinner(c.Root().ErrWriter, fmt.Sprintf(" ingesting %d source(s)", len(sources)))
			spin.Start()

			if len(sources) == 1 {
				result, err := uc.Ingest(ctx, sources[0], opts)
				spin.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to ingest", goerr.V("source", args[0]))
				}
				return render(w, format, result, func(w io.Writer) {
					printIngestResult(w, result)
				})
			}

			items := uc.IngestBatch(ctx, sources, opts, int(concurrency))
			spin.Stop()

			if err := render(w, format, items, func(w io.Writer) {
				for _, item := range items {
					if item.Error != "" {
						fmt.Fprintf(w, "%s\terror: %s\n", item.Source, item.Error)
						continue
					}
					printIngestResult(w, item.Result)
				}
			}); err != nil {
				return err
			}

			var failed int
			for _, item := range items {
				if item.Error != "" {
					failed++
				}
			}
			if failed > 0 {
				return goerr.New("some sources failed", goerr.V("failed", failed), goerr.V("total", len(items)))
			}
			return nil
		},
	}
}

// newSpinner returns a spinner on w. It stays silent when w is not a terminal.
func newSpinner(w io.Writer, suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = suffix
	return s
}

// sourceLoader turns command arguments into sources
type sourceLoader struct {
	cfg      *config
	mimeType string
	storage  interfaces.ObjectStore
	closer   func() error
}

func (x *sourceLoader) Load(ctx context.Context, arg string) (model.Source, error) {
	switch {
	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		return model.URLSource(arg), nil

	case adapter.IsGCSURI(arg):
		if _, _, err := adapter.ParseGCSURI(arg); err != nil {
			return model.Source{}, err
		}
		if x.storage == nil {
			storage, err := x.cfg.newStorage(ctx)
			if err != nil {
				return model.Source{}, err
			}
			x.storage = storage
			x.closer = storage.Close
		}
		return readObject(ctx, x.storage, arg, x.mimeType)

	default:
		data, err := readLimited(arg)
		if err != nil {
			return model.Source{}, err
		}
		logging.From(ctx).Debug("loaded file source", "path", arg, "size", len(data))
		return model.FileSource(data, filepath.Base(arg), x.mimeType), nil
	}
}

func (x *sourceLoader) Close() {
	if x.closer != nil {
		_ = x.closer()
	}
}

// readObject reads a gs:// object into a file source
func readObject(ctx context.Context, store interfaces.ObjectStore, uri, mimeType string) (model.Source, error) {
	r, err := store.Get(ctx, uri)
	if err != nil {
		return model.Source{}, err
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, maxSourceSize+1))
	if err != nil {
		return model.Source{}, goerr.Wrap(err, "failed to read object", goerr.V("uri", uri))
	}
	if len(data) > maxSourceSize {
		return model.Source{}, model.InvalidInput("file", "object exceeds maximum source size")
	}

	_, object, _ := adapter.ParseGCSURI(uri)
	return model.FileSource(data, filepath.Base(object), mimeType), nil
}

func readLimited(path string) ([]byte, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open source file", goerr.V("path", path))
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSourceSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read source file", goerr.V("path", path))
	}
	if len(data) > maxSourceSize {
		return nil, model.InvalidInput("file", "file exceeds maximum source size")
	}
	return data, nil
}
