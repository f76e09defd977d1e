package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/analyses"
	"tender-backend/internal/config"
	"tender-backend/internal/crossanalysis"
	"tender-backend/internal/llm"
	openai "tender-backend/internal/llm/openai"
	"tender-backend/internal/memory"
	"tender-backend/internal/runs"
	"tender-backend/internal/shared/server"
	"tender-backend/internal/shared/storage/db"
	"tender-backend/internal/vector"
)

const llmTimeout = 120 * time.Second

// App holds shared dependencies.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sql.DB
	Index        *vector.Index
	AnalysesRepo analyses.Repo
	RunsRepo     runs.Repo
	RunsService  *runs.Service
	RunsHandler  *runs.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	index, err := vector.Open(cfg.VectorDBPath)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Index:  index,
	}
	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:      app.Config,
		RunsHandler: app.RunsHandler,
	})
	return app, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			return err
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildServices(app *App) {
	var runsRepo runs.Repo
	var analysesRepo analyses.Repo
	if app.DB != nil {
		runsRepo = &runs.PGRepo{DB: app.DB}
		analysesRepo = &analyses.PGRepo{DB: app.DB}
	} else {
		runsRepo = runs.NewMemoryRepo()
		analysesRepo = analyses.NewMemoryRepo()
	}

	cfg := app.Config
	llmClient := llm.Client(llm.PlaceholderClient{})
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.EmbeddingModel, llmTimeout)
		if err != nil {
			log.Printf("bootstrap: openai client init failed; using placeholder: %v", err)
		} else {
			llmClient = client
		}
	}

	analyzer := &analyses.Service{
		Repo:        analysesRepo,
		LLM:         llmClient,
		Model:       cfg.LLMModel,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	cross := &crossanalysis.Service{
		LLM:         llmClient,
		Index:       app.Index,
		Scope:       crossanalysis.SimilarityScope(cfg.Scope),
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	memorySvc := &memory.Service{
		LLM:         llmClient,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}

	app.RunsRepo = runsRepo
	app.AnalysesRepo = analysesRepo
	app.RunsService = &runs.Service{
		Repo:          runsRepo,
		AnalysesRepo:  analysesRepo,
		Analyzer:      analyzer,
		Cross:         cross,
		Memory:        memorySvc,
		LLM:           llmClient,
		Index:         app.Index,
		Workers:       cfg.Workers,
		RetentionDays: cfg.RetentionDays,
	}
	app.RunsHandler = runs.NewHandler(app.RunsService)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
