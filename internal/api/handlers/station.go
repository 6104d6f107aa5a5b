package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/randytsao24/nearstation/internal/metrics"
	"github.com/randytsao24/nearstation/internal/models"
	"github.com/randytsao24/nearstation/internal/resolver"
)

const (
	TooFarForDirections   = "Location is too far away for directions"
	retryLaterMessage     = "Another process is handling this request, please try again shortly."
	internalErrorMessage  = "An error occurred while processing your request."
	unavailableMessage    = "Station data is currently unavailable."
	directionsUnavailable = "Directions are currently unavailable."
)

type nearestStationRequest struct {
	Latitude          *float64 `json:"latitude" validate:"required,latitude"`
	Longitude         *float64 `json:"longitude" validate:"required,longitude"`
	IncludeDirections bool     `json:"include_directions"`
}

type StationHandler struct {
	resolver   StationResolver
	directions DirectionsFinder
	areas      AreaClassifier
	metrics    metrics.Sink
	log        *zap.Logger
	mode       string
	validate   *validator.Validate
}

// NewStationHandler creates the nearest-station handler. directions may be nil,
// in which case include_directions is ignored.
func NewStationHandler(res StationResolver, dirs DirectionsFinder, areas AreaClassifier, sink metrics.Sink, log *zap.Logger, mode string) *StationHandler {
	if sink == nil {
		sink = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StationHandler{
		resolver:   res,
		directions: dirs,
		areas:      areas,
		metrics:    sink,
		log:        log.Named("station"),
		mode:       mode,
		validate:   validator.New(),
	}
}

// NearestStation resolves the station closest to the posted coordinate and
// optionally attaches directions to it.
func (h *StationHandler) NearestStation(w http.ResponseWriter, r *http.Request) {
	h.metrics.Inc(metrics.APICalls)

	var req nearestStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
			return
		}
		h.fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.fail(w, http.StatusBadRequest, "latitude and longitude must be valid coordinates")
		return
	}

	raw := models.Coordinate{Lat: *req.Latitude, Lng: *req.Longitude}
	area, _ := h.areas.Classify(raw.Normalize())

	res, err := h.resolver.Resolve(r.Context(), raw, area)
	if err != nil {
		h.resolveFailed(w, raw, err)
		return
	}

	body := map[string]any{
		"status":          "success",
		"nearest_station": res.Result,
		"service_area":    res.Area,
		"directions":      nil,
	}

	switch {
	case res.Outcome == resolver.OutcomeDistant:
		body["directions"] = TooFarForDirections
	case req.IncludeDirections && h.directions != nil:
		dirs, err := h.directions.Directions(r.Context(), res.Location, res.Result, h.mode)
		if err != nil {
			h.log.Warn("directions failed, returning station only", zap.Error(err))
			body["directions_error"] = directionsUnavailable
		} else {
			body["directions"] = dirs
		}
	}

	h.metrics.Inc(metrics.SuccessfulResponses)
	writeJSON(w, http.StatusOK, body)
}

func (h *StationHandler) resolveFailed(w http.ResponseWriter, raw models.Coordinate, err error) {
	switch {
	case errors.Is(err, resolver.ErrInvalidCoordinate):
		h.fail(w, http.StatusBadRequest, "latitude and longitude must be valid coordinates")
	case errors.Is(err, resolver.ErrRetryExhausted):
		h.fail(w, http.StatusTooManyRequests, retryLaterMessage)
	case errors.Is(err, resolver.ErrEmptyCatalog):
		h.log.Error("no stations available", zap.Float64("lat", raw.Lat), zap.Float64("lng", raw.Lng), zap.Error(err))
		h.fail(w, http.StatusServiceUnavailable, unavailableMessage)
	default:
		h.log.Error("error processing nearest_station request", zap.Error(err))
		h.fail(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

func (h *StationHandler) fail(w http.ResponseWriter, status int, msg string) {
	h.metrics.Inc(metrics.FailedResponses)
	writeJSON(w, status, map[string]any{
		"status": "error",
		"error":  msg,
	})
}
