package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/orangebot/orangebot/internal/collector"
	"github.com/orangebot/orangebot/internal/storage"
)

// Router serves the read-only status API. Match control happens in game
// chat; the HTTP surface only observes.
type Router struct {
	mux     *mux.Router
	manager *collector.ServerManager
	store   *storage.Store // nil when result history is disabled
	hub     *Hub
	log     *logrus.Entry
}

// NewRouter wires the HTTP routes
func NewRouter(manager *collector.ServerManager, store *storage.Store) *Router {
	rt := &Router{
		mux:     mux.NewRouter(),
		manager: manager,
		store:   store,
		hub:     NewHub(),
		log:     logrus.WithField("component", "api"),
	}

	rt.mux.HandleFunc("/api/servers", rt.handleServers).Methods(http.MethodGet)
	rt.mux.HandleFunc("/api/servers/{addr}", rt.handleServer).Methods(http.MethodGet)
	rt.mux.HandleFunc("/api/results", rt.handleResults).Methods(http.MethodGet)
	rt.mux.HandleFunc("/api/series/{id}", rt.handleSeries).Methods(http.MethodGet)
	rt.mux.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet)
	rt.mux.HandleFunc("/ws", rt.handleWebSocket)
	rt.mux.Handle("/metrics", promhttp.Handler())

	return rt
}

// Hub returns the WebSocket hub for event wiring
func (rt *Router) Hub() *Hub {
	return rt.hub
}

// ServeHTTP implements http.Handler
func (rt *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	rt.mux.ServeHTTP(w, req)
}

func (rt *Router) handleServers(w http.ResponseWriter, req *http.Request) {
	rt.writeJSON(w, http.StatusOK, rt.manager.Statuses())
}

func (rt *Router) handleServer(w http.ResponseWriter, req *http.Request) {
	addr := mux.Vars(req)["addr"]
	status, ok := rt.manager.Status(addr)
	if !ok {
		rt.writeError(w, http.StatusNotFound, "server not found")
		return
	}
	rt.writeJSON(w, http.StatusOK, status)
}

func (rt *Router) handleResults(w http.ResponseWriter, req *http.Request) {
	if rt.store == nil {
		rt.writeError(w, http.StatusNotFound, "result history disabled")
		return
	}

	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	results, err := rt.store.ListMapResults(req.Context(), req.URL.Query().Get("server"), limit)
	if err != nil {
		rt.log.WithField("error", err.Error()).Error("listing results failed")
		rt.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	rt.writeJSON(w, http.StatusOK, results)
}

func (rt *Router) handleSeries(w http.ResponseWriter, req *http.Request) {
	if rt.store == nil {
		rt.writeError(w, http.StatusNotFound, "result history disabled")
		return
	}

	results, err := rt.store.ListSeriesResults(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		rt.log.WithField("error", err.Error()).Error("listing series failed")
		rt.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if len(results) == 0 {
		rt.writeError(w, http.StatusNotFound, "series not found")
		return
	}
	rt.writeJSON(w, http.StatusOK, results)
}

func (rt *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	rt.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"servers":    len(rt.manager.Statuses()),
		"ws_clients": rt.hub.ClientCount(),
	})
}

func (rt *Router) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		rt.log.WithField("error", err.Error()).Warn("could not encode response")
	}
}

func (rt *Router) writeError(w http.ResponseWriter, code int, msg string) {
	rt.writeJSON(w, code, map[string]string{"error": msg})
}
