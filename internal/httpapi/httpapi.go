package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"hargapanel/backend/internal/analytics"
	"hargapanel/backend/internal/synccache"
)

type API struct {
	cache         *synccache.Cache
	analytics     *analytics.Engine
	allowedOrigin string
}

func New(cache *synccache.Cache, engine *analytics.Engine, allowedOrigin string) *API {
	return &API{
		cache:         cache,
		analytics:     engine,
		allowedOrigin: allowedOrigin,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)

	// The spreadsheet frontend calls the bare paths; keep /api aliases
	// for everything else deployed behind a path-based proxy.
	mux.HandleFunc("/data", a.handleData)
	mux.HandleFunc("/api/data", a.handleData)
	mux.HandleFunc("/sync", a.handleSync)
	mux.HandleFunc("/api/sync", a.handleSync)

	mux.HandleFunc("/api/v1/forecast", a.handleForecast)
	mux.HandleFunc("/api/v1/pricing-index", a.handlePricingIndex)
	mux.HandleFunc("/api/v1/dashboard", a.handleDashboard)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleData serves the full snapshot. Read failures are reported
// in-band with a 200: the frontend treats any non-200 as a dead backend
// and shows a blank screen, while an {error} payload renders a banner
// and keeps the last good local state.
func (a *API) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	snap, err := a.cache.Snapshot(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"error": a.cache.LastError()})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

type syncRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req syncRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		writeError(w, http.StatusBadRequest, errors.New("sync action required"))
		return
	}

	if err := a.cache.ApplySync(r.Context(), req.Action, req.Data); err != nil {
		// Sync failures carry user-facing hints (deployment access,
		// circuit state), so the message goes out verbatim.
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": a.cache.LastError()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	snap, err := a.cache.Snapshot(r.Context())
	if err != nil {
		writeUnavailable(w, a.cache.LastError())
		return
	}

	q := r.URL.Query()
	filters := analytics.ForecastFilters{
		Location:  strings.TrimSpace(q.Get("location")),
		SKU:       strings.TrimSpace(q.Get("sku")),
		StartDate: strings.TrimSpace(q.Get("start")),
		EndDate:   strings.TrimSpace(q.Get("end")),
		Category:  strings.TrimSpace(q.Get("category")),
		BySKUOnly: strings.TrimSpace(q.Get("group")) != "sku-location",
	}

	rows := a.analytics.Forecast(r.Context(), a.cache.Version(), snap, filters)
	writeJSON(w, http.StatusOK, map[string]any{"forecast": rows})
}

func (a *API) handlePricingIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	snap, err := a.cache.Snapshot(r.Context())
	if err != nil {
		writeUnavailable(w, a.cache.LastError())
		return
	}

	q := r.URL.Query()
	filters := analytics.PricingFilters{
		Location: strings.TrimSpace(q.Get("location")),
		SKU:      strings.TrimSpace(q.Get("sku")),
		Grade:    strings.TrimSpace(q.Get("grade")),
	}

	groups := a.analytics.PricingIndex(r.Context(), a.cache.Version(), snap, filters)
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	snap, err := a.cache.Snapshot(r.Context())
	if err != nil {
		writeUnavailable(w, a.cache.LastError())
		return
	}

	report := a.analytics.Dashboard(r.Context(), a.cache.Version(), snap)
	writeJSON(w, http.StatusOK, report)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Vary", "Origin")

		// Bulk sales imports arrive as one sync payload, so the cap is
		// generous compared to typical JSON APIs.
		if r.Method == http.MethodPost && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s %s", requestID, r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeUnavailable reports a missing snapshot to the analytics
// endpoints. Unlike /data these are not consumed by the legacy frontend,
// so they use a real 503 instead of the in-band 200.
func writeUnavailable(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "snapshot belum tersedia"
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": msg})
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
