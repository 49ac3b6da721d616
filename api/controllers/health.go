package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/pricingfeeds-backend/api/responses"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pricing-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
// A nil pinger is skipped so partial deployments can still come up.
func HealthReady(cfg *config.Config, logg *logger.Logger, database pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Pricing-Env", cfg.App.Env)

		checks := []struct {
			name string
			dep  pinger
		}{
			{"db", database},
			{"redis", cache},
		}

		for _, check := range checks {
			if check.dep == nil {
				continue
			}
			if err := check.dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.name+" is unreachable").
						WithDetails(map[string]string{"dependency": check.name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
