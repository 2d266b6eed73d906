package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/example/show-platform/internal/platform/auth"
	platformconfig "github.com/example/show-platform/internal/platform/config"
	"github.com/example/show-platform/internal/platform/db"
	"github.com/example/show-platform/internal/platform/events"
	"github.com/example/show-platform/internal/platform/httpserver"
	"github.com/example/show-platform/internal/platform/logging"
	"github.com/example/show-platform/internal/platform/natsconn"
	"github.com/example/show-platform/internal/platform/run"
	"github.com/example/show-platform/services/discussion/internal/attachments"
	"github.com/example/show-platform/services/discussion/internal/config"
	"github.com/example/show-platform/services/discussion/internal/handlers"
	"github.com/example/show-platform/services/discussion/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := platformconfig.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	svcCfg := config.Load()
	releaser := initReleaser(svcCfg, log)

	comments, reports, closeStore := initStores(cfg, log, releaser)
	if closeStore != nil {
		defer closeStore()
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	verifier := auth.JWTVerifier{Secret: []byte(jwtSecret)}

	// Events are fire-and-forget; a missing NATS only costs downstream
	// analytics, never a request.
	var publisher *events.Publisher
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats unavailable, discussion events disabled", zap.Error(err))
	} else {
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			log.Warn("jetstream unavailable, discussion events disabled", zap.Error(err))
		} else {
			publisher = events.New(js, log)
		}
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	// Public read, personalized when a valid token is present.
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalUser(verifier))
		r.Get("/v1/episodes/{episode_id}/comments", handlers.ListEpisodeComments(comments))
	})

	// Authenticated writes.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Post("/v1/episodes/{episode_id}/comments", handlers.CreateComment(comments, publisher))
		r.Put("/v1/comments/{comment_id}", handlers.UpdateComment(comments, publisher))
		r.Delete("/v1/comments/{comment_id}", handlers.DeleteComment(comments, publisher))
		r.Post("/v1/comments/{comment_id}/vote", handlers.VoteComment(comments, publisher))
		r.Post("/v1/comments/{comment_id}/reports", handlers.SubmitReport(reports, publisher))
		r.Get("/v1/moderation/violations", handlers.ListViolations(reports))
	})

	// Moderation queue.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireModerator)
		r.Get("/v1/moderation/reports", handlers.ListOpenReports(reports))
		r.Post("/v1/moderation/reports/{report_id}/dismiss", handlers.DismissReport(reports, publisher))
		r.Post("/v1/moderation/reports/{report_id}/resolve", handlers.ResolveReport(reports, publisher))
		r.Delete("/v1/moderation/comments/{comment_id}", handlers.RemoveComment(reports, publisher))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

func initReleaser(svcCfg config.Config, log *zap.Logger) store.AttachmentReleaser {
	if svcCfg.AttachmentServiceURL == "" {
		log.Warn("ATTACHMENT_SERVICE_URL not set, attachment releases disabled")
		return attachments.Noop{}
	}
	return attachments.New(svcCfg.AttachmentServiceURL, log)
}

// initStores selects the storage backend. In production (APP_ENV=production)
// it requires a working Postgres connection and terminates the process
// otherwise.
func initStores(cfg platformconfig.AppConfig, log *zap.Logger, releaser store.AttachmentReleaser) (store.CommentStore, store.ReportStore, func()) {
	fallback := func(reason string, err error) (store.CommentStore, store.ReportStore, func()) {
		if cfg.IsProduction() {
			log.Error("postgres is required in production", zap.String("reason", reason), zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("falling back to in-memory store (development only)", zap.String("reason", reason), zap.Error(err))
		mem := store.NewInMemoryStore(releaser)
		return mem, mem, nil
	}

	if cfg.DatabaseURL == "" {
		return fallback("DATABASE_URL not set", nil)
	}

	pool, err := db.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return fallback("postgres unavailable", err)
	}

	log.Info("discussion store: postgres")
	pg := store.NewPostgresStore(pool, releaser)
	return pg, pg, pool.Close
}
