package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"vendor is required"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports per-component readiness
// @Description Readiness with per-component status
type ReadyResponse struct {
	Status     string            `json:"status" example:"ready"`
	Components map[string]string `json:"components"`
}

// VendorsResponse lists the vendor vocabulary
// @Description Vendor vocabulary
type VendorsResponse struct {
	Vendors []string `json:"vendors"`
	Count   int      `json:"count" example:"412"`
}

// RebuildQueuedResponse is returned when a rebuild was handed to a worker
// @Description Queued rebuild
type RebuildQueuedResponse struct {
	TaskID string `json:"task_id" example:"0b5c7f5e-8f0a-4a55-9c0e-d6f1d1a0c8f4"`
	Vendor string `json:"vendor" example:"fedora"`
	Status string `json:"status" example:"pending"`
}

// ReloadResponse reports the vocabulary size after a reload
// @Description Vocabulary reload result
type ReloadResponse struct {
	Vendors int `json:"vendors" example:"412"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the store, lock and queue backends
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Components: make(map[string]string, len(s.pingers))}
	status := http.StatusOK
	for name, p := range s.pingers {
		if p == nil {
			continue
		}
		if err := p.Ping(r.Context()); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api docs not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}

// Query endpoints

// handleAsk godoc
// @Summary      Ask a question
// @Description  Infers intent and vendor from a free-text question, refreshes the vendor when stale and answers from the lake
// @Tags         Query
// @Produce      json
// @Param        q      query     string  true   "Question, e.g. latest fedora version"
// @Param        limit  query     int     false  "Evidence limit"
// @Success      200    {object}  domain.Answer
// @Failure      400    {object}  ErrorResponse  "Missing question"
// @Failure      500    {object}  ErrorResponse  "Internal server error"
// @Router       /ask [get]
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	answer, err := s.answers.Ask(r.Context(), q, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleAnswer godoc
// @Summary      Answer for a resolved intent
// @Description  Reads Gold and Silver for a known intent and vendor without triggering a build
// @Tags         Query
// @Produce      json
// @Param        intent  query     string  true   "VERSION, CVE, PATCH or GENERIC"
// @Param        vendor  query     string  true   "Vendor name"
// @Param        limit   query     int     false  "Evidence limit"
// @Success      200     {object}  domain.Answer
// @Failure      400     {object}  ErrorResponse  "Invalid intent or missing vendor"
// @Failure      500     {object}  ErrorResponse  "Internal server error"
// @Router       /answer [get]
func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	intent, err := domain.ParseIntent(r.URL.Query().Get("intent"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "intent must be one of VERSION, CVE, PATCH, GENERIC")
		return
	}
	vendor := strings.TrimSpace(r.URL.Query().Get("vendor"))
	if vendor == "" {
		writeError(w, http.StatusBadRequest, "vendor is required")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	answer, err := s.answers.Answer(r.Context(), intent, vendor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// handleSearch godoc
// @Summary      Full-text sentence search
// @Description  Searches kept sentences, optionally restricted to a vendor
// @Tags         Query
// @Produce      json
// @Param        q       query     string  true   "Search text"
// @Param        vendor  query     string  false  "Vendor filter"
// @Param        limit   query     int     false  "Maximum hits"
// @Success      200     {array}   domain.SearchHit
// @Failure      400     {object}  ErrorResponse  "Missing query"
// @Failure      503     {object}  ErrorResponse  "Search index not configured"
// @Router       /search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	hits, err := s.answers.Search(r.Context(), r.URL.Query().Get("vendor"), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if hits == nil {
		hits = []domain.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

// Vendor endpoints

// handleListVendors godoc
// @Summary      List vendors
// @Description  Returns the vendor vocabulary used for matching
// @Tags         Vendors
// @Produce      json
// @Success      200  {object}  VendorsResponse
// @Router       /vendors [get]
func (s *Server) handleListVendors(w http.ResponseWriter, r *http.Request) {
	names := []string{}
	if s.vocabulary != nil {
		if set := s.vocabulary.Vendors(); set != nil {
			names = set.Names()
		}
	}
	writeJSON(w, http.StatusOK, VendorsResponse{Vendors: names, Count: len(names)})
}

// handleVendorStatus godoc
// @Summary      Vendor build status
// @Description  Lists every built vendor with its last build time and freshness
// @Tags         Vendors
// @Produce      json
// @Success      200  {array}   domain.VendorStatus
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /vendors/status [get]
func (s *Server) handleVendorStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.lake.Status(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if statuses == nil {
		statuses = []domain.VendorStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleLakeTotals godoc
// @Summary      Lake row counts
// @Description  Counts documents, sentences and facts held in the lake plus the sentences in the search index
// @Tags         Vendors
// @Produce      json
// @Success      200  {object}  domain.LakeTotals
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /lake/totals [get]
func (s *Server) handleLakeTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := s.lake.Totals(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// handleLatestVersion godoc
// @Summary      Latest resolved version
// @Description  Returns the resolved latest version row for a vendor
// @Tags         Vendors
// @Produce      json
// @Param        vendor  path      string  true  "Vendor name"
// @Success      200     {object}  domain.LatestVersion
// @Failure      404     {object}  ErrorResponse  "No resolved version"
// @Router       /vendors/{vendor}/latest [get]
func (s *Server) handleLatestVersion(w http.ResponseWriter, r *http.Request) {
	if s.latest == nil {
		writeError(w, http.StatusServiceUnavailable, "latest version view not configured")
		return
	}
	vendor := strings.ToLower(strings.TrimSpace(r.PathValue("vendor")))

	row, err := s.latest.Get(r.Context(), vendor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// handleRebuild godoc
// @Summary      Force a vendor rebuild
// @Description  Rebuilds a vendor regardless of TTL. With a task queue configured the rebuild is queued for a worker. When the build lock stays busy the vendor is not rebuilt and the result carries a warning.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        vendor  path      string  true  "Vendor name"
// @Success      200     {object}  domain.BuildResult  "Rebuilt, or skipped with a warning while the build lock is busy"
// @Success      202     {object}  RebuildQueuedResponse
// @Failure      401     {object}  ErrorResponse  "Unauthorized"
// @Failure      403     {object}  ErrorResponse  "Admin access required"
// @Failure      404     {object}  ErrorResponse  "Vendor not in vocabulary"
// @Failure      503     {object}  ErrorResponse  "Admin API disabled"
// @Router       /vendors/{vendor}/rebuild [post]
func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	vendor := strings.ToLower(strings.TrimSpace(r.PathValue("vendor")))

	if s.taskQueue != nil {
		if s.vocabulary != nil {
			if set := s.vocabulary.Vendors(); set.Len() > 0 && !set.Contains(vendor) {
				writeDomainError(w, domain.ErrVendorUnknown)
				return
			}
		}
		task := domain.NewTask(domain.TaskTypeRebuildVendor, vendor)
		if err := s.taskQueue.Enqueue(r.Context(), task); err != nil {
			requestLogger(r.Context(), s.logger).Error("failed to enqueue rebuild", "vendor", vendor, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to queue rebuild")
			return
		}
		writeJSON(w, http.StatusAccepted, RebuildQueuedResponse{
			TaskID: task.ID,
			Vendor: vendor,
			Status: string(task.Status),
		})
		return
	}

	result, err := s.lake.Rebuild(r.Context(), vendor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleReloadVocabulary godoc
// @Summary      Reload vendor vocabulary
// @Description  Re-reads the vendor file into the running vocabulary
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ReloadResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      403  {object}  ErrorResponse  "Admin access required"
// @Failure      500  {object}  ErrorResponse  "Reload failed"
// @Router       /vendors/reload [post]
func (s *Server) handleReloadVocabulary(w http.ResponseWriter, r *http.Request) {
	if s.vocabulary == nil {
		writeError(w, http.StatusServiceUnavailable, "vocabulary not configured")
		return
	}

	n, err := s.vocabulary.Reload(r.Context())
	if err != nil {
		requestLogger(r.Context(), s.logger).Error("vocabulary reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{Vendors: n})
}

// Helpers

// parseLimit reads the optional limit parameter. It writes a 400 and
// returns false when the value is not a non-negative integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// writeDomainError maps domain errors to HTTP status codes
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrVendorUnknown), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrLockTimeout), errors.Is(err, domain.ErrIndexUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
