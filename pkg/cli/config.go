package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/mnemo/pkg/adapter"
	"github.com/m-mizutani/mnemo/pkg/model"
	"github.com/m-mizutani/mnemo/pkg/repository"
	"github.com/m-mizutani/mnemo/pkg/service/docstore"
	"github.com/m-mizutani/mnemo/pkg/service/embedding"
	"github.com/m-mizutani/mnemo/pkg/service/index"
	"github.com/m-mizutani/mnemo/pkg/service/queue"
	"github.com/m-mizutani/mnemo/pkg/usecase/memory"
	"github.com/m-mizutani/mnemo/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string
	bucket   string
	backend  string

	// Agent scope
	agentID string
	channel string

	// Embedding provider
	geminiProject  string
	geminiLocation string
	embeddingModel string

	// Policy
	policyPath      string
	scopePolicyPath string

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "agent-id",
			Aliases:     []string{"a"},
			Usage:       "Agent ID owning the memory",
			Sources:     cli.EnvVars("MNEMO_AGENT_ID"),
			Destination: &cfg.agentID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Aliases:     []string{"b"},
			Usage:       "Cloud Storage bucket for memory documents",
			Sources:     cli.EnvVars("MNEMO_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Storage backend: firestore or mem (ephemeral, for local use)",
			Value:       "firestore",
			Sources:     cli.EnvVars("MNEMO_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "channel",
			Usage:       "Channel kind of the calling context: direct, group or broadcast",
			Value:       "direct",
			Sources:     cli.EnvVars("MNEMO_CHANNEL"),
			Destination: &cfg.channel,
		},
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to the YAML retrieval policy file",
			Sources:     cli.EnvVars("MNEMO_POLICY"),
			Destination: &cfg.policyPath,
		},
		&cli.StringFlag{
			Name:        "scope-policy",
			Usage:       "Path to a Rego scope policy replacing the built-in one",
			Sources:     cli.EnvVars("MNEMO_SCOPE_POLICY"),
			Destination: &cfg.scopePolicyPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level: debug, info, warn or error",
			Value:       "info",
			Sources:     cli.EnvVars("MNEMO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// llmFlags returns flags for the embedding provider with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name",
			Sources:     cli.EnvVars("MNEMO_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
	}
}

func (cfg *config) agent() (model.AgentID, error) {
	id := model.AgentID(cfg.agentID)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

func (cfg *config) channelContext() model.ChannelContext {
	return model.ChannelContext{Kind: model.ChannelKind(cfg.channel)}
}

// newRepository creates the chunk/cache repository for the selected backend
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.backend {
	case "mem":
		return repository.NewMemory(), nil
	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required")
		}
		return repository.New(ctx, cfg.project, cfg.database)
	default:
		return nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// newStorage creates the document storage substrate for the selected backend
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	switch cfg.backend {
	case "mem":
		return adapter.NewMemoryStorage(), nil
	case "firestore":
		return adapter.NewStorage(ctx, cfg.bucket)
	default:
		return nil, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

// newEmbedder creates the embedding provider
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	return adapter.NewEmbedder(ctx, adapter.EmbedderConfig{
		Provider: adapter.ProviderGemini,
		Project:  cfg.geminiProject,
		Location: cfg.geminiLocation,
		Model:    cfg.embeddingModel,
	})
}

// service bundles the assembled components for one command invocation
type service struct {
	uc    *memory.UseCase
	guard *memory.ScopeGuard
	queue *queue.Queue
}

// shutdown drains pending indexing jobs
func (s *service) shutdown() {
	s.queue.Stop()
}

// newService assembles the full memory stack from the configuration
func (cfg *config) newService(ctx context.Context) (*service, error) {
	policy, err := memory.LoadConfig(cfg.policyPath)
	if err != nil {
		return nil, err
	}

	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}

	storage, err := cfg.newStorage(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create embedder")
	}

	cache := embedding.New(repo, embedder, embedding.WithTimeout(policy.EmbedTimeout))
	indexer := index.New(repo, cache, index.WithMaxChunkChars(policy.MaxChunkChars))
	docs := docstore.New(storage)

	q := queue.New(queue.WithRetryPolicy(queue.RetryPolicy{
		MaxAttempts:    policy.Retry.MaxAttempts,
		InitialBackoff: policy.Retry.InitialBackoff,
		MaxBackoff:     policy.Retry.MaxBackoff,
	}))
	q.Start(ctx)

	guard, err := memory.NewScopeGuard(ctx, cfg.scopePolicyPath)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create scope guard")
	}

	return &service{
		uc:    memory.New(docs, indexer, q, policy),
		guard: guard,
		queue: q,
	}, nil
}

// loggerContext attaches a leveled logger to the context
func (cfg *config) loggerContext(ctx context.Context) context.Context {
	return logging.With(ctx, logging.New(cfg.logLevel, nil))
}
