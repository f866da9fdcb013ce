package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// HealthFunc reports component health; a non-nil error marks the node unhealthy
type HealthFunc func() map[string]error

// NewAdminRouter serves health, prometheus metrics and the websocket event stream
func NewAdminRouter(health HealthFunc, metrics http.Handler, events http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := http.StatusOK
		if health != nil {
			for name, err := range health() {
				if err != nil {
					checks[name] = err.Error()
					status = http.StatusServiceUnavailable
					continue
				}
				checks[name] = "ok"
			}
		}
		body := map[string]any{"healthy": status == http.StatusOK, "checks": checks}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}).Methods("GET")

	router.Handle("/metrics", metrics).Methods("GET")
	router.Handle("/ws", events)

	return router
}
