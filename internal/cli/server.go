package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"lms-service/internal/app"
	"lms-service/internal/config"
	"lms-service/internal/domain"
	"lms-service/internal/infra/memory"
	pgstore "lms-service/internal/infra/postgres"
	rediscache "lms-service/internal/infra/redis"
	transport "lms-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the LMS server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		users      app.UserRepository
		courses    app.CourseRepository
		mcqs       app.MCQRepository
		attempts   app.AttemptRepository
		aggregates app.AggregateRepository
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		store := pgstore.NewStore(db)
		users, courses, mcqs, attempts = store, store, store, store
		aggregates = pgstore.NewAggregateStore(pool)
	} else {
		store := memory.NewStore()
		seedDemoData(ctx, store)
		users, courses, mcqs, attempts = store, store, store, store
		aggregates = store
	}

	if cfg.Redis.Addr != "" {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheTTL := config.TTLDuration(cfg.Redis.TTL, time.Minute)
		aggregates = rediscache.NewAggregateCache(redisClient, aggregates, cacheTTL)
	}

	service := app.NewLMSService(users, courses, mcqs, attempts, aggregates)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting lms service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemoData loads a minimal course bank so the in-memory mode is usable
// out of the box; swap in Postgres for real deployments.
func seedDemoData(ctx context.Context, store *memory.Store) {
	course := domain.Course{
		ID:          uuid.NewString(),
		Name:        "Go Fundamentals",
		Description: "Introductory course covering Go basics",
		Duration:    "4 weeks",
		Instructor:  "Demo Instructor",
		CreatedAt:   time.Now().UTC(),
	}
	if err := store.CreateCourse(ctx, &course); err != nil {
		log.Printf("seed course: %v", err)
		return
	}
	seedMCQs := []domain.MCQ{
		{
			ID:             uuid.NewString(),
			CourseID:       course.ID,
			Prompt:         "Which keyword declares a variable?",
			Options:        []string{"let", "var", "def"},
			CorrectOptions: []int{1},
		},
		{
			ID:               uuid.NewString(),
			CourseID:         course.ID,
			Prompt:           "Which of these are built-in types?",
			Options:          []string{"int", "class", "string"},
			CorrectOptions:   []int{0, 2},
			IsMultipleAnswer: true,
		},
	}
	for _, mcq := range seedMCQs {
		m := mcq
		if err := store.CreateMCQ(ctx, &m); err != nil {
			log.Printf("seed mcq: %v", err)
		}
	}
}
