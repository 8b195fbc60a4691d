package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"riverwatch/internal/types"
)

// MetadataReader lists and fetches station metadata documents.
type MetadataReader interface {
	List(ctx context.Context, provider types.Provider) ([]types.StationMetadata, error)
	Get(ctx context.Context, provider types.Provider, stationID string) (*types.StationMetadata, error)
}

// CurrentReader fetches the current-conditions cache document.
type CurrentReader interface {
	Get(ctx context.Context, provider types.Provider, stationID string) (*types.CurrentConditions, error)
}

// YearlyReader fetches one year document.
type YearlyReader interface {
	Get(ctx context.Context, provider types.Provider, stationID string, year int) (*types.YearlyReadings, error)
}

// Pinger reports store liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StationHandler maps HTTP requests to store reads. The API is read-only;
// all writes happen through the scheduled jobs.
type StationHandler struct {
	metadata MetadataReader
	current  CurrentReader
	yearly   YearlyReader
	pinger   Pinger
	logger   *slog.Logger
}

// StationHandlerConfig holds the dependencies for a StationHandler.
type StationHandlerConfig struct {
	Metadata MetadataReader
	Current  CurrentReader
	Yearly   YearlyReader
	Pinger   Pinger
	Logger   *slog.Logger
}

// NewStationHandler creates a StationHandler with the given configuration.
func NewStationHandler(cfg StationHandlerConfig) *StationHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &StationHandler{
		metadata: cfg.Metadata,
		current:  cfg.Current,
		yearly:   cfg.Yearly,
		pinger:   cfg.Pinger,
		logger:   logger,
	}
}

// NewRouter builds the full router for the read API.
func NewRouter(h *StationHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.HandleHealth)
	r.Route("/v1/stations", func(r chi.Router) {
		r.Get("/", h.HandleListStations)
		r.Get("/{stationID}/current", h.HandleGetCurrent)
		r.Get("/{stationID}/readings/{year}", h.HandleGetYearlyReadings)
	})
	return r
}

// HandleHealth handles GET /healthz: process liveness plus a store ping.
func (h *StationHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.pinger.Ping(r.Context()); err != nil {
		writeError(w, h.logger, types.NewAppError(types.ErrCodeInternalDB, "store unreachable", err))
		return
	}
	writeData(w, map[string]string{"status": "ok"})
}

// HandleListStations handles GET /v1/stations.
func (h *StationHandler) HandleListStations(w http.ResponseWriter, r *http.Request) {
	metas, err := h.metadata.List(r.Context(), types.ProviderEnvironmentCanada)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if metas == nil {
		metas = []types.StationMetadata{}
	}
	writeData(w, metas)
}

// HandleGetCurrent handles GET /v1/stations/{stationID}/current.
func (h *StationHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	cc, err := h.current.Get(r.Context(), types.ProviderEnvironmentCanada, stationID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if cc == nil {
		writeError(w, h.logger, types.NewAppError(types.ErrCodeNotFoundStation,
			"no current conditions for station", nil))
		return
	}
	writeData(w, cc)
}

// HandleGetYearlyReadings handles GET /v1/stations/{stationID}/readings/{year}.
func (h *StationHandler) HandleGetYearlyReadings(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, h.logger, types.NewAppError(types.ErrCodeValidationInvalidParam,
			"year must be an integer", err))
		return
	}

	doc, err := h.yearly.Get(r.Context(), types.ProviderEnvironmentCanada, stationID, year)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if doc == nil {
		writeError(w, h.logger, types.NewAppError(types.ErrCodeNotFoundStation,
			"no readings stored for station and year", nil))
		return
	}
	writeData(w, doc)
}
