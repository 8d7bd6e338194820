package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tunnelpay/tunnelpay-backend/api/responses"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

const readinessTimeout = 3 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TunnelPay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TunnelPay-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for name, pinger := range map[string]db.Pinger{"db": dbP, "redis": redisP} {
			if pinger == nil {
				checks[name] = "not configured"
				healthy = false
				continue
			}
			if err := pinger.Ping(ctx); err != nil {
				logg.Error(ctx, name+" readiness probe failed", err)
				checks[name] = "unreachable"
				healthy = false
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
