// Package admin implements the tomed daemon commands.
package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
	"github.com/tome-labs/tome/internal/api/handlers"
	"github.com/tome-labs/tome/internal/config"
	"github.com/tome-labs/tome/internal/database"
	"github.com/tome-labs/tome/internal/domain"
	"github.com/tome-labs/tome/internal/embedding"
	"github.com/tome-labs/tome/internal/jobs"
	"github.com/tome-labs/tome/internal/llm"
	"github.com/tome-labs/tome/internal/repository"
	"github.com/tome-labs/tome/internal/server"
	"github.com/tome-labs/tome/internal/service"
	"github.com/tome-labs/tome/internal/telemetry"
	"github.com/tome-labs/tome/internal/vectorstore"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the tome API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	docRepo := repository.NewDocumentRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)

	provider, err := embedding.New(cfg.EmbeddingConfig())
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	vectorCfg := cfg.VectorConfig()
	if vectorCfg.Dimensions > 0 && provider.Dimension() > 0 && vectorCfg.Dimensions != provider.Dimension() {
		return fmt.Errorf("embedding dimension mismatch: provider %q produces %d-dimension vectors, store expects %d",
			provider.ModelName(), provider.Dimension(), vectorCfg.Dimensions)
	}

	store, err := vectorstore.New(vectorCfg, pool)
	if err != nil {
		return fmt.Errorf("failed to create vector store: %w", err)
	}
	log.Printf("vector store: %s (%d dimensions), embeddings: %s", cfg.VectorBackend, vectorCfg.Dimensions, provider.ModelName())

	knowledgeSvc, err := service.NewKnowledgeService(docRepo, store, provider, cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return fmt.Errorf("failed to create knowledge service: %w", err)
	}
	searchSvc := service.NewSearchService(store, provider)

	var completer service.ChatCompleter
	if cfg.HasOpenAI() {
		client, err := llm.NewClient(llm.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.ChatModel,
		})
		if err != nil {
			return fmt.Errorf("failed to create chat client: %w", err)
		}
		completer = client
	} else {
		completer = &NoOpChatCompleter{}
	}
	chatSvc := service.NewChatService(convRepo, searchSvc, completer)
	progressSvc := service.NewProgressService(progressRepo)

	indexer := jobs.NewIndexingWorker(docRepo, knowledgeSvc)
	worker := jobs.NewWorker(indexer, cfg.WorkerInterval)
	go worker.Start(ctx)
	log.Println("indexing worker started")

	routerCfg := server.RouterConfig{
		KnowledgeHandler: handlers.NewKnowledgeHandler(knowledgeSvc),
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		ChatHandler:      handlers.NewChatHandler(chatSvc),
		ProgressHandler:  handlers.NewProgressHandler(progressSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	worker.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

// NoOpChatCompleter is wired when no chat backend is configured. Requests
// reach the chat endpoint and fail with a clear message instead of a panic.
type NoOpChatCompleter struct{}

func (c *NoOpChatCompleter) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage, tools []openai.Tool) (llm.Stream, error) {
	return nil, domain.NewDomainError(domain.ErrCodeConfiguration, "chat not configured: TOME_OPENAI_API_KEY required")
}

func (c *NoOpChatCompleter) Model() string {
	return "none"
}

func runMigrations(databaseURL string) error {
	// golang-migrate needs a database/sql connection
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
