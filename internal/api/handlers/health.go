package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthCheck reports process liveness.
func HealthCheck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyCheck reports whether the backing stores are reachable.
func ReadyCheck(db Pinger, objects ObjectStorage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := http.StatusOK

		if err := db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}

		if objects != nil {
			if err := objects.Health(ctx); err != nil {
				checks["object_storage"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				checks["object_storage"] = "ok"
			}
		}

		RespondJSON(w, status, checks)
	}
}
