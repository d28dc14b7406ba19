package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billing-tools/internal/common/logger"
	"billing-tools/internal/common/metrics"
	"billing-tools/internal/common/validation"
)

const maxBodyBytes = 1 << 20

// PredictionIDHeader carries the id of the prediction served in a response.
const PredictionIDHeader = "X-Prediction-ID"

// StatsReader returns per-tenant prediction counters.
type StatsReader interface {
	Stats(ctx context.Context, tenantID string) (TenantStats, error)
}

// Handler serves the sidecar HTTP API.
type Handler struct {
	service *Service
	stats   StatsReader
	logger  logger.Logger
	mux     *http.ServeMux
}

// NewHandler registers all routes. stats may be nil, in which case the tenant
// stats endpoint answers 404.
func NewHandler(service *Service, stats StatsReader, log logger.Logger) http.Handler {
	h := &Handler{
		service: service,
		stats:   stats,
		logger:  log,
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/ready", h.ready)
	h.mux.Handle("/metrics", promhttp.Handler())
	h.mux.HandleFunc("/predict/anomaly", h.predict)
	h.mux.HandleFunc("/tenants/{tenant_id}/stats", h.tenantStats)
	h.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, http.StatusNotFound, "Not Found")
	})

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h.mux.ServeHTTP(rec, r)

	path := r.Pattern
	if path == "" || path == "/" {
		path = "unmatched"
	}
	metrics.HTTPRequestDuration.
		WithLabelValues(path, r.Method, strconv.Itoa(rec.status)).
		Observe(time.Since(start).Seconds())
}

// health always reports ok; it does not depend on any integration.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large")
			return
		}
		jsonErr(w, http.StatusBadRequest, "There was an error parsing the body")
		return
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		unprocessable(w, []validationDetail{{Loc: []string{"body"}, Msg: "Field required", Type: "missing"}})
		return
	}

	invoice, result, err := ParseInvoice(body)
	if err != nil {
		unprocessable(w, []validationDetail{{Loc: []string{"body"}, Msg: "JSON decode error", Type: "json_invalid"}})
		return
	}
	if !result.Valid {
		unprocessable(w, toDetails(result))
		return
	}

	prediction, err := h.service.Predict(r.Context(), "http", invoice)
	if err != nil {
		h.logger.Error("prediction failed", map[string]interface{}{"error": err})
		jsonErr(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	w.Header().Set(PredictionIDHeader, prediction.ID)
	jsonResp(w, http.StatusOK, prediction.Result)
}

func (h *Handler) tenantStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}
	if h.stats == nil {
		jsonErr(w, http.StatusNotFound, "Not Found")
		return
	}

	tenantID := r.PathValue("tenant_id")
	stats, err := h.stats.Stats(r.Context(), tenantID)
	if err != nil {
		h.logger.Warn("failed to read tenant stats", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err,
		})
		jsonErr(w, http.StatusServiceUnavailable, "Stats unavailable")
		return
	}
	jsonResp(w, http.StatusOK, stats)
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func toDetails(result *validation.ValidationResult) []validationDetail {
	details := make([]validationDetail, 0, len(result.Errors))
	for _, e := range result.Errors {
		loc := []string{"body"}
		if e.Field != "" {
			loc = append(loc, strings.Split(e.Field, ".")...)
		}

		d := validationDetail{Loc: loc, Msg: e.Message, Type: e.Code}
		switch {
		case e.Code == "required":
			d.Type, d.Msg = "missing", "Field required"
		case e.Code == "invalid_type" && e.Expected == "string":
			d.Type, d.Msg = "string_type", "Input should be a valid string"
		case e.Code == "invalid_type" && (e.Expected == "number" || e.Expected == "[number,string]"):
			d.Type, d.Msg = "float_type", "Input should be a valid number"
		case e.Code == "invalid_type" && e.Expected == "object":
			d.Type, d.Msg = "model_attributes_type", "Input should be a valid dictionary or object to extract fields from"
		}
		details = append(details, d)
	}
	return details
}

func unprocessable(w http.ResponseWriter, details []validationDetail) {
	jsonResp(w, http.StatusUnprocessableEntity, map[string]interface{}{"detail": details})
}

// --- helpers ---------------------------------------------------------------

func jsonResp(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, status int, msg string) {
	jsonResp(w, status, map[string]string{"detail": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
