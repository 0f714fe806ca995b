package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"biolens-backend/internal/analyses"
	"biolens-backend/internal/auth"
	"biolens-backend/internal/credits"
	"biolens-backend/internal/queue"
	"biolens-backend/internal/samples"
	"biolens-backend/internal/shared/config"
	"biolens-backend/internal/shared/server"
	"biolens-backend/internal/shared/server/middleware"
	"biolens-backend/internal/shared/server/respond"
	"biolens-backend/internal/shared/storage/db"
	"biolens-backend/internal/shared/storage/object"
	objectlocal "biolens-backend/internal/shared/storage/object/local"
	objects3 "biolens-backend/internal/shared/storage/object/s3"
	"biolens-backend/internal/shared/telemetry"
	"biolens-backend/internal/users"
	"biolens-backend/internal/vision"
	"biolens-backend/internal/workerproc"
)

// App holds every wired dependency. Construction is explicit; nothing
// here lives in a package-level singleton.
type App struct {
	Config   config.Config
	DB       *sql.DB
	Router   *gin.Engine
	Analyses *analyses.Service
	Credits  *credits.Service
	Samples  *samples.Service
	Worker   *workerproc.Processor
}

// NewAPI wires the HTTP server dependency graph.
func NewAPI(ctx context.Context) (*App, error) {
	cfg := config.Load()

	app, err := newCore(ctx, cfg, db.DefaultServerOptions())
	if err != nil {
		return nil, err
	}

	usersSvc := app.usersService()
	googleAuth := auth.NewGoogleHandler(cfg, usersSvc, app.Credits)
	if googleAuth == nil {
		telemetry.Warn("bootstrap.google_auth_disabled", nil)
	}

	deps := server.RouterDeps{
		Env:            cfg.Env,
		AllowedOrigins: cfg.CORSAllowOrigin,
		Samples:        samples.NewHandler(app.Samples),
		Analyses:       analyses.NewHandler(app.Analyses),
		Credits:        credits.NewHandler(app.Credits),
	}
	if googleAuth != nil {
		deps.GoogleAuth = googleAuth
	}
	deps.DevGrantCredits = devGrantCredits(app.Credits)

	app.Router = server.NewRouter(deps)
	return app, nil
}

// NewWorker wires the queue consumer dependency graph.
func NewWorker(ctx context.Context) (*App, error) {
	cfg := config.Load()

	app, err := newCore(ctx, cfg, db.DefaultWorkerOptions())
	if err != nil {
		return nil, err
	}

	sqsClient, err := queue.NewSQSClientFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("init sqs: %w", err)
	}
	if sqsClient == nil {
		return nil, fmt.Errorf("BL_SQS_QUEUE_URL is required for the worker")
	}

	app.Worker = workerproc.New(sqsClient, app.Analyses)
	return app, nil
}

// newCore wires the pieces shared by the API and the worker.
func newCore(ctx context.Context, cfg config.Config, dbOpts db.Options) (*App, error) {
	var database *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		database, err = db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(dbOpts))
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
	} else {
		telemetry.Warn("bootstrap.memory_mode", map[string]any{
			"detail": "DATABASE_URL not set; using in-memory repositories",
		})
	}

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		sampleRepo   samples.Repo
		analysisRepo analyses.Repo
		creditStore  credits.Store
	)
	if database != nil {
		sampleRepo = samples.NewPGRepo(database)
		analysisRepo = analyses.NewPGRepo(database)
		creditStore = credits.NewPGStore(database)
	} else {
		sampleRepo = samples.NewMemoryRepo()
		analysisRepo = analyses.NewMemoryRepo()
		creditStore = credits.NewMemoryStore()
	}

	creditsSvc := credits.NewService(creditStore)
	samplesSvc := samples.NewService(sampleRepo, store)

	provider, err := newVisionProvider(cfg)
	if err != nil {
		return nil, err
	}

	sqsClient, err := queue.NewSQSClientFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("init sqs: %w", err)
	}
	var queueClient queue.Client
	if sqsClient != nil {
		queueClient = sqsClient
	}

	analysesSvc := analyses.NewService(analysisRepo, samplesSvc, creditsSvc, provider, queueClient)

	return &App{
		Config:   cfg,
		DB:       database,
		Analyses: analysesSvc,
		Credits:  creditsSvc,
		Samples:  samplesSvc,
	}, nil
}

func newObjectStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	if cfg.ObjectStoreType == "s3" {
		store, err := objects3.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("init s3 store: %w", err)
		}
		return store, nil
	}
	return objectlocal.New(cfg.LocalStoreDir), nil
}

func newVisionProvider(cfg config.Config) (vision.Provider, error) {
	if cfg.VisionProvider != "openai" {
		return nil, fmt.Errorf("unsupported vision provider %q", cfg.VisionProvider)
	}

	primary := vision.NewOpenAIProvider(cfg.VisionAPIKey, cfg.VisionModel, cfg.VisionBaseURL)
	if cfg.VisionFallbackModel == "" || cfg.VisionFallbackModel == cfg.VisionModel {
		return primary, nil
	}
	fallback := vision.NewOpenAIProvider(cfg.VisionAPIKey, cfg.VisionFallbackModel, cfg.VisionBaseURL)
	return vision.NewFailoverProvider(primary, fallback), nil
}

func (a *App) usersService() *users.Service {
	if a.DB != nil {
		return users.NewService(users.NewPGRepo(a.DB))
	}
	return users.NewService(users.NewMemoryRepo())
}

// devGrantCredits tops up the caller's balance outside production.
func devGrantCredits(creditsSvc *credits.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserIDFromContext(c)
		if userID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}
		var body struct {
			Amount int `json:"amount"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || body.Amount <= 0 || body.Amount > 100 {
			respond.Error(c, http.StatusBadRequest, "invalid_request", "amount must be in 1..100", nil)
			return
		}
		b, err := creditsSvc.Grant(c.Request.Context(), userID, body.Amount)
		if err != nil {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to grant credits", nil)
			return
		}
		respond.OK(c, gin.H{"balance": b.Balance})
	}
}
