package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/smuotoe/GeoElevate-sub000/internal/app"
	"github.com/smuotoe/GeoElevate-sub000/internal/config"
	"github.com/smuotoe/GeoElevate-sub000/internal/domain"
	"github.com/smuotoe/GeoElevate-sub000/internal/infra/memory"
	pginfra "github.com/smuotoe/GeoElevate-sub000/internal/infra/postgres"
	redisinfra "github.com/smuotoe/GeoElevate-sub000/internal/infra/redis"
	transport "github.com/smuotoe/GeoElevate-sub000/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the match engine server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleBatches())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	var store app.MatchStore
	if redisClient != nil {
		store = redisinfra.NewMatchStore(redisClient, redisTTL)
	} else {
		store = memory.NewMatchStore()
	}

	threshold := cfg.Game.SimilarityThreshold
	if threshold == 0 {
		threshold = domain.DefaultSimilarityThreshold
	}
	service := app.NewMatchService(bank, store, app.MatchConfig{
		QuestionCount: cfg.Game.QuestionCount,
		ResultDwell:   config.Millis(cfg.Game.ResultDwellMs, 0),
		DeadlineGrace: config.Millis(cfg.Game.DeadlineGraceMs, 0),
		Matcher:       domain.NewMatcher(threshold),
	})

	auth := func(token string) bool {
		return cfg.Server.Token == "" || token == cfg.Server.Token
	}
	wsHandler := transport.NewWSHandler(service, auth)
	matchHandler := transport.NewMatchHandler(service, auth)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.Handle("/matches", matchHandler)
	mux.Handle("/matches/", matchHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting match engine on :%s", finalPort)
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

// sampleBatches seeds a small in-memory question set for running without
// Postgres.
func sampleBatches() map[string][]domain.Question {
	capitals := []domain.Question{
		{ID: "q1", Prompt: "What is the capital of France?", Options: []string{"Paris", "Lisbon", "Madrid", "Rome"}, CorrectAnswer: "Paris"},
		{ID: "q2", Prompt: "What is the capital of Japan?", Options: []string{"Tokyo", "Kyoto", "Osaka", "Seoul"}, CorrectAnswer: "Tokyo"},
		{ID: "q3", Prompt: "What is the capital of Kenya?", Options: []string{"Nairobi", "Mombasa", "Kampala", "Lagos"}, CorrectAnswer: "Nairobi"},
		{ID: "q4", Prompt: "What is the capital of Canada?", Options: []string{"Ottawa", "Toronto", "Vancouver", "Montreal"}, CorrectAnswer: "Ottawa"},
		{ID: "q5", Prompt: "What is the capital of Brazil?", Options: []string{"Brasilia", "Rio de Janeiro", "Sao Paulo", "Salvador"}, CorrectAnswer: "Brasilia"},
	}
	countries := []domain.Question{
		{ID: "q1", Prompt: "Which country does this flag belong to?", ImageRef: "flags/fr.png", CorrectAnswer: "France"},
		{ID: "q2", Prompt: "Which country does this flag belong to?", ImageRef: "flags/jp.png", CorrectAnswer: "Japan"},
		{ID: "q3", Prompt: "Which country does this flag belong to?", ImageRef: "flags/ke.png", CorrectAnswer: "Kenya"},
		{ID: "q4", Prompt: "Which country does this flag belong to?", ImageRef: "flags/ca.png", CorrectAnswer: "Canada"},
		{ID: "q5", Prompt: "Which country does this flag belong to?", ImageRef: "flags/br.png", CorrectAnswer: "Brazil"},
	}
	return map[string][]domain.Question{
		"capitals:medium::choice": capitals,
		"flags:medium::text":      countries,
	}
}
