package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightstock/imagery-backend/api/controllers"
	"github.com/brightstock/imagery-backend/api/middleware"
	"github.com/brightstock/imagery-backend/internal/batch"
	"github.com/brightstock/imagery-backend/internal/commission"
	"github.com/brightstock/imagery-backend/internal/discounts"
	"github.com/brightstock/imagery-backend/internal/intake"
	"github.com/brightstock/imagery-backend/pkg/config"
	"github.com/brightstock/imagery-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           controllers.Pinger
	Redis        controllers.Pinger
	GCS          controllers.Pinger
	Commission   commission.Service
	Discounts    discounts.Service
	Intake       intake.Service
	Orchestrator *batch.Orchestrator
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps(deps)))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/pricing/line-items", controllers.PricingEstimate(deps.Commission, deps.Discounts, logg))

		r.Route("/providers/{providerId}/discounts", func(r chi.Router) {
			r.Get("/", controllers.DiscountList(deps.Discounts, logg))
			r.Post("/", controllers.DiscountCreate(deps.Discounts, logg))
			r.Put("/{code}", controllers.DiscountUpdate(deps.Discounts, logg))
			r.Delete("/{code}", controllers.DiscountDelete(deps.Discounts, logg))
		})

		r.Route("/batch/sessions", func(r chi.Router) {
			r.Post("/", controllers.BatchSessionOpen(deps.Orchestrator, logg))
			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.BatchSessionGet(deps.Orchestrator, logg))
				r.Post("/files", controllers.BatchFileRegister(deps.Orchestrator, deps.Intake, logg))
				r.Delete("/files/{fileId}", controllers.BatchFileRemove(deps.Intake, logg))
				r.Patch("/listings/{fileId}", controllers.BatchListingEdit(deps.Orchestrator, logg))
				r.Put("/selection", controllers.BatchSelectionSet(deps.Orchestrator, logg))
				r.Post("/ai-terms/accept", controllers.BatchAITermsAccept(deps.Orchestrator, logg))
				r.Post("/commit", controllers.BatchCommit(deps.Orchestrator, logg))
			})
		})
	})

	return r
}

func healthDeps(deps Deps) map[string]controllers.Pinger {
	out := map[string]controllers.Pinger{}
	if deps.DB != nil {
		out["database"] = deps.DB
	}
	if deps.Redis != nil {
		out["redis"] = deps.Redis
	}
	if deps.GCS != nil {
		out["gcs"] = deps.GCS
	}
	return out
}
