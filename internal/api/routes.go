package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kikiluvv/autoclip/internal/journal"
	"github.com/kikiluvv/autoclip/internal/perspective"
)

// RunStore is the read side of the run journal
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]*journal.Run, error)
	GetRun(ctx context.Context, id string) (*journal.Run, error)
	Transitions(ctx context.Context, runID, perspective string) ([]journal.Transition, error)
}

type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_s"`
}

type RunsResponse struct {
	Runs []*journal.Run `json:"runs"`
}

type PerspectiveInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	File  string `json:"script_file"`
}

func NewRouter(cfg ServerConfig) *chi.Mux {
	logger := cfg.Logger.With().Str("component", "api").Logger()
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggingMiddleware(logger))

	r.Get("/healthz", healthHandler(cfg))
	r.Get("/perspectives", perspectivesHandler(cfg))
	r.Get("/runs", listRunsHandler(cfg))
	r.Get("/runs/{runID}", getRunHandler(cfg))
	r.Get("/runs/{runID}/perspectives/{name}/transitions", transitionsHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func perspectivesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := r.URL.Query().Get("lang")
		if lang == "" {
			lang = cfg.Language
		}
		all := perspective.All()
		out := make([]PerspectiveInfo, len(all))
		for i, k := range all {
			out[i] = PerspectiveInfo{
				Name:  k.String(),
				Label: perspective.Label(k, lang),
				File:  perspective.ScriptFileName(k),
			}
		}
		WriteJSON(w, http.StatusOK, out)
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		runs, err := cfg.Store.ListRuns(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}
		if runs == nil {
			runs = []*journal.Run{}
		}
		WriteJSON(w, http.StatusOK, RunsResponse{Runs: runs})
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := cfg.Store.GetRun(r.Context(), chi.URLParam(r, "runID"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if run == nil {
			WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, run)
	}
}

func transitionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		history, err := cfg.Store.Transitions(r.Context(), chi.URLParam(r, "runID"), chi.URLParam(r, "name"))
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if len(history) == 0 {
			WriteError(w, http.StatusNotFound, "no transitions recorded", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, history)
	}
}
