package app

import (
	"context"
	"net/http"
	"time"
)

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status         string     `json:"status"`
	SystemInfo     SystemInfo `json:"systemInfo"`
	Cache          string     `json:"cache"`
	ActiveSessions int        `json:"activeSessions"`
}

func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	cacheStatus := "UP"

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	if err := app.redis.Ping(ctx).Err(); err != nil {
		app.logger.Warn("redis ping failed", "error", err)
		cacheStatus = "DOWN"
	}

	resp := HealthcheckResponse{
		Status: "UP",
		SystemInfo: SystemInfo{
			Version:     version,
			Environment: app.config.Env,
		},
		Cache:          cacheStatus,
		ActiveSessions: app.checkouts.Len(),
	}

	app.writeJSON(w, http.StatusOK, resp, nil)
}
