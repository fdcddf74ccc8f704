package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"jobtrail/features/application"
	"jobtrail/features/chat"
	"jobtrail/features/job"
	"jobtrail/features/mail"
	"jobtrail/features/notes"
	"jobtrail/features/reminder"
	"jobtrail/features/stats"
	"jobtrail/features/user"
	"jobtrail/internal/adapter/gmail"
	"jobtrail/internal/adapter/notion"
	"jobtrail/internal/config"
	"jobtrail/internal/cursor"
	"jobtrail/internal/ingest"
	"jobtrail/internal/middleware"
	"jobtrail/internal/retrieval"
	"jobtrail/internal/text"
	"jobtrail/internal/worker"
)

// VectorStore is everything the app needs from the vector index.
type VectorStore interface {
	Upsert(ctx context.Context, records []ingest.VectorRecord) error
	DeleteByEntity(ctx context.Context, owner, entityID string) error
	Search(ctx context.Context, queryVector []float32, owner string, k int) ([]retrieval.Match, error)
	FetchContent(ctx context.Context, ids []string) (map[string]string, error)
	CountChunks(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// Embedder covers both single-text and batch embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type App struct {
	Handler http.Handler

	MailService *mail.Service
	UserService *user.Service

	ExtractConsumer *worker.ExtractConsumer
	ApplyConsumer   *worker.ApplyConsumer
	EmbedConsumer   *worker.EmbedConsumer

	port int
}

func New(
	cfg *config.Config,
	db *sql.DB,
	vecStore VectorStore,
	taskPub TaskPublisher,
	embedder Embedder,
	extractor worker.Extractor,
	generator chat.Answerer,
) (*App, error) {

	// Feature: User (credentials for every per-owner adapter call)
	userRepo := user.NewPostgresRepo(db)
	userService := user.NewService(userRepo)
	userHandler := user.NewHandler(userService)

	// Adapters: Notion
	notionSink := notion.NewSink(userService)
	notionSource := notion.NewSource(userService)

	// Feature: Application
	appRepo := application.NewPostgresRepo(db)
	appService := application.NewService(appRepo, notionSink)
	appHandler := application.NewHandler(appService)

	// Feature: Job (dead letters)
	jobRepo := job.NewPostgresRepo(db)
	jobService := job.NewService(jobRepo, taskPub)
	jobHandler := job.NewHandler(jobService)

	// Ingest pipeline
	chunker, err := text.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunker config: %w", err)
	}
	pipeline := ingest.NewPipeline(chunker, embedder, vecStore)

	// Feature: Notes
	notesRepo := notes.NewPostgresRepo(db)
	notesService := notes.NewService(notesRepo, notionSource, vecStore, taskPub)
	notesHandler := notes.NewHandler(notesService, userService)

	// Feature: Mail
	cursorTracker := cursor.NewTracker(cursor.NewPostgresStore(db))
	mailService := mail.NewService(cursorTracker, gmail.NewSource(), userService, taskPub)
	mailHandler := mail.NewHandler(mailService, userService)

	// Feature: Chat
	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}
	retrievalService := retrieval.NewService(embedder, vecStore, vecStore, cfg.SearchTopK, queryLogger)
	chatService := chat.NewService(retrievalService, generator)
	chatHandler := chat.NewHandler(chatService)

	// Feature: Reminder
	reminderService := reminder.NewService(appRepo, reminder.NewGate(cfg.ReminderLookaheadDays), taskPub)
	reminderHandler := reminder.NewHandler(reminderService)

	// Feature: Stats
	statsHandler := stats.NewHandler(userRepo, appRepo, notesRepo, jobRepo, vecStore)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /gmail/notifications", middleware.CorrelationID(enableCORS(mailHandler.Notify)))
	mux.Handle("POST /mail/sync", middleware.CorrelationID(enableCORS(mailHandler.Sweep)))
	mux.Handle("POST /notes/sync", middleware.CorrelationID(enableCORS(notesHandler.Sync)))
	mux.Handle("POST /ask", middleware.CorrelationID(enableCORS(chatHandler.Ask)))

	mux.Handle("GET /applications", middleware.CorrelationID(enableCORS(appHandler.List)))
	mux.Handle("POST /reminders/run", middleware.CorrelationID(enableCORS(reminderHandler.Run)))

	mux.Handle("GET /users", middleware.CorrelationID(enableCORS(userHandler.List)))
	mux.Handle("POST /users", middleware.CorrelationID(enableCORS(userHandler.Save)))

	mux.Handle("GET /jobs/failed", middleware.CorrelationID(enableCORS(jobHandler.List)))
	mux.Handle("POST /jobs/{id}/retry", middleware.CorrelationID(enableCORS(jobHandler.Retry)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		MailService:     mailService,
		UserService:     userService,
		ExtractConsumer: worker.NewExtractConsumer(extractor, taskPub, jobRepo),
		ApplyConsumer:   worker.NewApplyConsumer(appService, jobRepo),
		EmbedConsumer:   worker.NewEmbedConsumer(notionSource, pipeline, notesRepo),
		port:            cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
