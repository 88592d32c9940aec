package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/donorjournal-backend/api/controllers"
	decisioncontrollers "github.com/angelmondragon/donorjournal-backend/api/controllers/decisions"
	journalcontrollers "github.com/angelmondragon/donorjournal-backend/api/controllers/journals"
	stageeventcontrollers "github.com/angelmondragon/donorjournal-backend/api/controllers/stageevents"
	"github.com/angelmondragon/donorjournal-backend/api/middleware"
	"github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/internal/progress"
	"github.com/angelmondragon/donorjournal-backend/internal/stageevents"
	"github.com/angelmondragon/donorjournal-backend/pkg/config"
	"github.com/angelmondragon/donorjournal-backend/pkg/db"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/redis"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	decisionService decisions.Service,
	stageEventService stageevents.Service,
	progressService progress.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// typed nils must not leak into interfaces
	var (
		redisPinger controllers.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		if cfg.FeatureFlags.Idempotency {
			idemStore = redisClient
		}
	}

	writeRetry := retry.Policy{
		Attempts:  cfg.Journal.MaxWriteRetries,
		BaseDelay: cfg.Journal.RetryBaseDelay,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/decisions", func(r chi.Router) {
			r.Post("/", decisioncontrollers.Create(decisionService, logg))
			r.Get("/{decisionId}", decisioncontrollers.Get(decisionService, logg))
			r.Patch("/{decisionId}", decisioncontrollers.Update(decisionService, writeRetry, logg))
			r.Get("/{decisionId}/history", decisioncontrollers.History(decisionService, logg))
		})

		r.Route("/journals/{journalId}", func(r chi.Router) {
			r.Get("/decisions", journalcontrollers.Decisions(decisionService, logg))
			r.Get("/progress", journalcontrollers.Progress(progressService, logg))
			r.Get("/pipeline-breakdown", journalcontrollers.Breakdown(stageEventService, logg))
			r.Get("/stage-activity", journalcontrollers.StageActivity(stageEventService, logg))
			r.Get("/decision-trends", journalcontrollers.DecisionTrends(decisionService, logg))
		})

		r.Post("/stage-events", stageeventcontrollers.Append(stageEventService, writeRetry, logg))

		r.Route("/journal-members/{membershipId}", func(r chi.Router) {
			r.Get("/stage-events", stageeventcontrollers.List(stageEventService, logg))
			r.Get("/stage-summary", stageeventcontrollers.Summary(stageEventService, logg))
			r.Get("/transition", stageeventcontrollers.Transition(stageEventService, logg))
		})
	})

	return r
}
