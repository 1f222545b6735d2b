package cli

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voxkb/pkg/adapter"
	"github.com/m-mizutani/voxkb/pkg/adapter/convai"
	"github.com/m-mizutani/voxkb/pkg/interfaces"
	"github.com/m-mizutani/voxkb/pkg/model"
	"github.com/m-mizutani/voxkb/pkg/policy"
	"github.com/m-mizutani/voxkb/pkg/repository"
	"github.com/m-mizutani/voxkb/pkg/usecase/knowledge"
	"github.com/m-mizutani/voxkb/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// config holds configuration values
type config struct {
	// Remote service
	apiKey      string
	agentID     string
	baseURL     string
	timeout     time.Duration
	rateLimit   float64
	readRetries int64

	// Pipeline
	embeddingModel string
	policyDir      string

	// Journal
	firestoreProject  string
	firestoreDatabase string
	gcpCredentials    string

	// Logging
	logLevel  string
	logFormat string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "api-key",
			Usage:       "API key of the conversational AI service",
			Sources:     cli.EnvVars("ELEVENLABS_API_KEY"),
			Destination: &cfg.apiKey,
		},
		&cli.StringFlag{
			Name:        "agent-id",
			Aliases:     []string{"a"},
			Usage:       "Default agent whose knowledge base is updated",
			Sources:     cli.EnvVars("ELEVENLABS_AGENT_ID"),
			Destination: &cfg.agentID,
		},
		&cli.StringFlag{
			Name:        "base-url",
			Usage:       "Base URL of the conversational AI service",
			Value:       convai.DefaultBaseURL,
			Sources:     cli.EnvVars("VOXKB_BASE_URL"),
			Destination: &cfg.baseURL,
		},
		&cli.DurationFlag{
			Name:        "timeout",
			Usage:       "Timeout of each remote call",
			Value:       convai.DefaultTimeout,
			Sources:     cli.EnvVars("VOXKB_TIMEOUT"),
			Destination: &cfg.timeout,
		},
		&cli.FloatFlag{
			Name:        "rate-limit",
			Usage:       "Maximum remote calls per second (0 disables the limit)",
			Value:       convai.DefaultRateLimit,
			Sources:     cli.EnvVars("VOXKB_RATE_LIMIT"),
			Destination: &cfg.rateLimit,
		},
		&cli.IntFlag{
			Name:        "read-retries",
			Usage:       "Attempts for idempotent reads on transient failures",
			Value:       convai.DefaultReadRetries,
			Sources:     cli.EnvVars("VOXKB_READ_RETRIES"),
			Destination: &cfg.readRetries,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("VOXKB_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("VOXKB_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
	}
}

// pipelineFlags returns flags for ingestion behavior with destination config
func pipelineFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Default embedding model for index computation",
			Value:       model.DefaultEmbeddingModel,
			Sources:     cli.EnvVars("VOXKB_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.StringFlag{
			Name:        "policy-dir",
			Usage:       "Directory of Rego admission policies (package voxkb.ingest)",
			Sources:     cli.EnvVars("VOXKB_POLICY_DIR"),
			Destination: &cfg.policyDir,
		},
	}
}

// journalFlags returns flags for the run journal with destination config
func journalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project of the Firestore run journal. Runs are kept in memory when empty",
			Sources:     cli.EnvVars("VOXKB_FIRESTORE_PROJECT"),
			Destination: &cfg.firestoreProject,
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       repository.DefaultDatabaseID,
			Sources:     cli.EnvVars("VOXKB_FIRESTORE_DATABASE"),
			Destination: &cfg.firestoreDatabase,
		},
		&cli.StringFlag{
			Name:        "gcp-credentials",
			Usage:       "Path to Google Cloud credentials JSON",
			Sources:     cli.EnvVars("GOOGLE_APPLICATION_CREDENTIALS"),
			Destination: &cfg.gcpCredentials,
		},
	}
}

// allFlags returns every config flag
func allFlags(cfg *config) []cli.Flag {
	flags := globalFlags(cfg)
	flags = append(flags, pipelineFlags(cfg)...)
	flags = append(flags, journalFlags(cfg)...)
	return flags
}

// setupLogger installs the configured logger as default and into ctx
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, cfg.logFormat, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// newClient creates a new remote service client
func (cfg *config) newClient() (*convai.Client, error) {
	if cfg.apiKey == "" {
		return nil, goerr.New("api-key is required")
	}

	client, err := convai.New(cfg.apiKey,
		convai.WithBaseURL(cfg.baseURL),
		convai.WithTimeout(cfg.timeout),
		convai.WithRateLimit(cfg.rateLimit),
		convai.WithReadRetries(int(cfg.readRetries)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create client")
	}
	return client, nil
}

func (cfg *config) gcpOptions() []option.ClientOption {
	if cfg.gcpCredentials == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.gcpCredentials)}
}

// newJournal creates the run journal. Without a Firestore project runs live in memory.
func (cfg *config) newJournal(ctx context.Context) (interfaces.RunRepository, func(), error) {
	if cfg.firestoreProject == "" {
		return repository.NewMemory(), func() {}, nil
	}

	repo, err := repository.New(ctx, cfg.firestoreProject, cfg.firestoreDatabase, cfg.gcpOptions()...)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create run journal")
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logging.From(ctx).Warn("failed to close run journal", "error", err)
		}
	}, nil
}

// newPolicy loads the admission policy, or returns nil when no directory is configured
func (cfg *config) newPolicy(ctx context.Context) (interfaces.SourcePolicy, error) {
	if cfg.policyDir == "" {
		return nil, nil
	}

	engine, err := policy.New(ctx, cfg.policyDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load admission policy", goerr.V("dir", cfg.policyDir))
	}
	if engine.Empty() {
		logging.From(ctx).Warn("no policy file found", "dir", cfg.policyDir)
		return nil, nil
	}
	return engine, nil
}

// newStorage creates a Cloud Storage reader for gs:// sources
func (cfg *config) newStorage(ctx context.Context) (*adapter.Storage, error) {
	storage, err := adapter.NewStorage(ctx, cfg.gcpOptions()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newUseCase wires the pipeline. The returned function releases its resources.
func (cfg *config) newUseCase(ctx context.Context) (*knowledge.UseCase, func(), error) {
	client, err := cfg.newClient()
	if err != nil {
		return nil, nil, err
	}

	journal, closeJournal, err := cfg.newJournal(ctx)
	if err != nil {
		return nil, nil, err
	}

	opts := []knowledge.Option{
		knowledge.WithAgentID(model.AgentID(cfg.agentID)),
		knowledge.WithEmbeddingModel(cfg.embeddingModel),
		knowledge.WithJournal(journal),
	}

	pol, err := cfg.newPolicy(ctx)
	if err != nil {
		closeJournal()
		return nil, nil, err
	}
	if pol != nil {
		opts = append(opts, knowledge.WithPolicy(pol))
	}

	uc := knowledge.New(client.Documents(), client.Indexes(), client.Agents(), opts...)
	return uc, closeJournal, nil
}
