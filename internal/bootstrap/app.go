package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ats-backend/internal/account"
	"ats-backend/internal/analyses"
	googleauth "ats-backend/internal/auth"
	"ats-backend/internal/documents"
	"ats-backend/internal/llm"
	"ats-backend/internal/llm/gemini"
	"ats-backend/internal/llm/heuristic"
	"ats-backend/internal/llm/openai"
	"ats-backend/internal/queue"
	"ats-backend/internal/services/health"
	sharedauth "ats-backend/internal/shared/auth"
	"ats-backend/internal/shared/config"
	"ats-backend/internal/shared/server"
	"ats-backend/internal/shared/storage/db"
	"ats-backend/internal/shared/storage/object"
	localstore "ats-backend/internal/shared/storage/object/local"
	s3store "ats-backend/internal/shared/storage/object/s3"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/usage"
	"ats-backend/internal/users"
	"ats-backend/internal/workerproc"
)

const (
	serviceName      = "ats-backend"
	tokenTTL         = 7 * 24 * time.Hour
	localQueueBuffer = 32
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.ObjectStore
	Queue     queue.Client
	Documents *documents.Service
	Analyses  *analyses.Service
	Usage     *usage.Service
	Users     *users.Service
	Account   *account.Service
	Signer    *sharedauth.Signer

	shutdownTracing func(context.Context) error
}

// repos groups the storage backends picked for the current environment.
type repos struct {
	documents interface {
		documents.DocumentsRepo
		account.Claimer
	}
	analyses interface {
		analyses.Repo
		account.Claimer
	}
	users users.Repo
	usage *usage.Service
}

// Build wires every service and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	shutdown, err := telemetry.SetupTracing(cfg.TracesExporter, serviceName)
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// deployed environments migrate through cmd/migrate
	if isDevLike(cfg.Env) {
		if _, err := db.RunMigrations(ctx, sqlDB); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := NewLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}

	signer, err := sharedauth.NewSigner(cfg.JWTSecret, tokenTTL)
	if err != nil {
		return nil, err
	}

	r := buildRepos(sqlDB, cfg)
	docSvc := &documents.Service{
		Store:           store,
		Repo:            r.documents,
		StorageProvider: cfg.ObjectStoreType,
	}
	analysisSvc := &analyses.Service{
		Repo:          r.analyses,
		Usage:         r.usage,
		Documents:     docSvc,
		LLM:           client,
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMModel,
		PromptVersion: cfg.PromptVersion,
		Timeout:       cfg.LLMTimeout,
		PendingTTL:    cfg.PendingSaveTTL,
	}
	queueClient, err := buildQueue(ctx, cfg, analysisSvc)
	if err != nil {
		return nil, err
	}
	userSvc := users.NewService(r.users)
	accountSvc := account.NewService(r.documents, r.analyses, sqlDB)
	google := googleauth.NewGoogleService(googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}, signer, userSvc)
	usageHandler := usage.NewHandler(r.usage)

	probes := health.NewService()
	if sqlDB != nil {
		probes.Add("database", func(ctx context.Context) error {
			return db.Ping(ctx, sqlDB, time.Second)
		})
	}
	probes.Add("inference", func(context.Context) error {
		if client.State() == "open" {
			return llm.ErrCircuitOpen
		}
		return nil
	})

	app := &App{
		Config:          cfg,
		DB:              sqlDB,
		Store:           store,
		Queue:           queueClient,
		Documents:       docSvc,
		Analyses:        analysisSvc,
		Usage:           r.usage,
		Users:           userSvc,
		Account:         accountSvc,
		Signer:          signer,
		shutdownTracing: shutdown,
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Verifier: signer,
		Health:   probes,
		Public:   []server.RouteRegistrar{google},
		Handlers: []server.RouteRegistrar{
			users.NewHandler(userSvc),
			account.NewHandler(accountSvc),
			documents.NewHandler(docSvc),
			analyses.NewHandler(analysisSvc, queueClient),
			usageHandler,
		},
		DevRoutes: []server.DevRegistrar{usageHandler},
	})

	return app, nil
}

// Close drains in-process jobs, flushes traces and releases the database
// pool. A Lambda-held pool stays open for the next invocation.
func (a *App) Close(ctx context.Context) {
	if local, ok := a.Queue.(*queue.Local); ok {
		local.Close()
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			log.Printf("bootstrap: tracing shutdown: %v", err)
		}
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildRepos(sqlDB *sql.DB, cfg config.Config) repos {
	policy := usage.DefaultPolicy()
	if cfg.UsageLimit > 0 {
		policy.Limit = cfg.UsageLimit
	}
	if sqlDB != nil {
		return repos{
			documents: &documents.PGRepo{DB: sqlDB},
			analyses:  &analyses.PGRepo{DB: sqlDB},
			users:     &users.PGRepo{DB: sqlDB},
			usage:     usage.NewPostgresService(usage.NewPGStore(sqlDB, policy)),
		}
	}
	return repos{
		documents: documents.NewMemoryRepo(),
		analyses:  analyses.NewMemoryRepo(),
		users:     users.NewMemoryRepo(),
		usage:     usage.NewService(policy),
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, errors.New("DATABASE_URL is required")
	}

	profile := db.CurrentProfile()
	connect := db.Connect
	if profile == db.ProfileLambda {
		connect = db.Shared
	}
	sqlDB, err := connect(ctx, cfg.DatabaseURL, db.OptionsFor(profile).WithEnv())
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, errors.New("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

// buildQueue publishes async jobs to SQS when configured. Otherwise jobs run
// on in-process workers with the same duplicate handling as cmd/worker.
func buildQueue(ctx context.Context, cfg config.Config, runner workerproc.Runner) (queue.Client, error) {
	if cfg.QueueURL != "" {
		return queue.NewSQSClient(ctx, cfg.QueueURL, cfg.AWSRegion)
	}
	return queue.NewLocal(cfg.WorkerConcurrency, localQueueBuffer, func(ctx context.Context, msg queue.Message) error {
		_, err := workerproc.Process(ctx, runner, msg)
		return err
	}), nil
}

// NewLLM picks the inference provider from cfg and puts it behind the
// circuit breaker.
func NewLLM(ctx context.Context, cfg config.Config) (*llm.BreakerClient, error) {
	var next llm.Client
	switch cfg.LLMProvider {
	case "openai":
		c, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		if err != nil {
			return nil, err
		}
		next = c
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: cfg.LLMModel})
		if err != nil {
			return nil, err
		}
		next = c
	default:
		next = heuristic.New()
	}
	return llm.WithBreaker(next, llm.BreakerSettings{
		Name:                cfg.LLMProvider,
		MaxRequests:         cfg.BreakerMaxRequests,
		Interval:            cfg.BreakerInterval,
		Timeout:             cfg.BreakerTimeout,
		ConsecutiveFailures: cfg.BreakerFailures,
	}), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}
