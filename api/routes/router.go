package routes

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricingfeeds-backend/api/controllers"
	"github.com/angelmondragon/pricingfeeds-backend/api/middleware"
	"github.com/angelmondragon/pricingfeeds-backend/internal/ingest"
	feedsvc "github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type uploadAccepter interface {
	Accept(ctx context.Context, fileName string, file io.Reader) (string, error)
}

type taskStatusReader interface {
	Get(ctx context.Context, taskID string) (*ingest.TaskRecord, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database pinger,
	cache pinger,
	feedService feedsvc.Service,
	uploadService uploadAccepter,
	statusStore taskStatusReader,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.ExtraOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, database, cache))
	})

	r.Post("/upload", controllers.UploadFeedFile(cfg, uploadService, logg))
	r.Get("/status/{taskID}", controllers.TaskStatus(statusStore, logg))

	r.Route("/api", func(r chi.Router) {
		r.Post("/search", controllers.SearchFeeds(feedService, logg))

		r.Route("/pricing_feeds", func(r chi.Router) {
			r.Post("/", controllers.CreateFeed(feedService, logg))
			r.Get("/", controllers.ListFeeds(feedService, logg))
			r.Post("/bulk_update", controllers.BulkUpdateFeeds(feedService, logg))
			r.Get("/{feedID}", controllers.GetFeed(feedService, logg))
			r.Put("/{feedID}", controllers.UpdateFeed(feedService, logg))
			r.Delete("/{feedID}", controllers.DeleteFeed(feedService, logg))
		})
	})

	return r
}
