package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/opengov-pk/shafaf/internal/assistant"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/metrics"
	"github.com/opengov-pk/shafaf/internal/repository"
	"github.com/opengov-pk/shafaf/internal/risk"
	"github.com/xuri/excelize/v2"
)

// cacheTTL bounds staleness of cached bill lookups and the dashboard
// snapshot.
const cacheTTL = 5 * time.Minute

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	scorer    *risk.Scorer
	responder *assistant.Responder
	metrics   *metrics.Metrics
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, scorer *risk.Scorer, responder *assistant.Responder, m *metrics.Metrics, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		scorer:    scorer,
		responder: responder,
		metrics:   m,
		version:   version,
	}
}

// FraudDetect handles POST /fraud-detect. The submission is scored and
// returned; nothing is persisted.
func (h *Handler) FraudDetect(w http.ResponseWriter, r *http.Request) {
	var sub domain.ContractSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	assessment, err := h.scorer.Assess(r.Context(), &sub)
	if err != nil {
		if errors.Is(err, risk.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
			return
		}
		slog.Error("assessment failed", "contract", sub.ContractNumber, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAssessment(assessment.Level, assessment.Score)
	}
	h.publishAssessment(r, assessment, &sub)

	writeJSON(w, http.StatusOK, assessment)
}

// publishAssessment emits the scored event, and the alert event for HIGH
// and CRITICAL results. Publish failures never fail the request.
func (h *Handler) publishAssessment(r *http.Request, a *domain.Assessment, sub *domain.ContractSubmission) {
	if h.bus == nil {
		return
	}

	payload, err := json.Marshal(domain.AssessmentEvent{
		AssessmentID:   a.ID,
		ContractNumber: a.ContractNumber,
		Supplier:       sub.Supplier,
		Amount:         sub.Amount,
		Score:          a.Score,
		Level:          a.Level,
		Flags:          len(a.Flags),
	})
	if err != nil {
		slog.Error("failed to encode assessment event", "error", err)
		return
	}

	ctx := r.Context()
	if err := h.bus.Publish(ctx, domain.TopicAssessment, payload); err != nil {
		slog.Warn("failed to publish assessment event", "error", err)
	}

	// The alert worker counts and logs these; here they are only published.
	if domain.SeverityRank(a.Level) >= domain.SeverityRank(domain.RiskHigh) {
		if err := h.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Warn("failed to publish alert event", "error", err)
		}
	}
}

// Assistant handles POST /assistant. The responder never fails; an empty
// message yields the fallback reply with 200.
func (h *Handler) Assistant(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	reply := h.responder.Reply(r.Context(), &req)

	if h.metrics != nil {
		h.metrics.RecordAssistantExchange(reply.Intent, reply.Language)
	}
	h.publishConversation(r, &req, reply)

	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) publishConversation(r *http.Request, req *domain.ChatRequest, reply *domain.ChatReply) {
	if h.bus == nil {
		return
	}

	payload, err := json.Marshal(domain.ConversationEvent{
		Intent:     reply.Intent,
		Language:   reply.Language,
		Confidence: reply.Confidence,
		UserID:     req.UserID,
	})
	if err != nil {
		slog.Error("failed to encode conversation event", "error", err)
		return
	}
	if err := h.bus.Publish(r.Context(), domain.TopicConversation, payload); err != nil {
		slog.Warn("failed to publish conversation event", "error", err)
	}
}

// BillInquiryRequest is the body for POST /bill-inquiry. GET passes the
// same fields as query parameters.
type BillInquiryRequest struct {
	CNIC          string `json:"cnic"`
	AccountNumber string `json:"account_number,omitempty"`
}

// BillInquiryResponse is the success payload for bill inquiries.
type BillInquiryResponse struct {
	Status      string          `json:"status"`
	Citizen     *domain.Citizen `json:"citizen"`
	Bills       []*domain.Bill  `json:"bills"`
	TotalAmount float64         `json:"total_amount"`
	BillCount   int             `json:"bill_count"`
}

// BillInquiry handles POST /bill-inquiry and GET /bill-inquiry?cnic=.
// A malformed CNIC is rejected before any store access; an unknown CNIC
// is a plain 404, not a failure.
func (h *Handler) BillInquiry(w http.ResponseWriter, r *http.Request) {
	var req BillInquiryRequest
	if r.Method == http.MethodGet {
		req.CNIC = r.URL.Query().Get("cnic")
		req.AccountNumber = r.URL.Query().Get("account_number")
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid JSON request body",
			})
			return
		}
	}

	cnic := domain.NormalizeCNIC(req.CNIC)
	if !domain.ValidCNIC(cnic) {
		h.recordLookup("invalid")
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CNIC format, expected 12345-1234567-1",
		})
		return
	}

	account := strings.ToUpper(strings.TrimSpace(req.AccountNumber))
	cacheKey := domain.CacheKeyBills + cnic

	if account == "" {
		if cached := h.cacheGet(r, cacheKey); cached != nil {
			h.recordLookup("found")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write(cached)
			return
		}
	}

	ctx := r.Context()
	citizen, err := h.repo.GetCitizenByCNIC(ctx, cnic)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.recordLookup("not_found")
		writeJSON(w, http.StatusNotFound, map[string]string{
			"status":  "not_found",
			"cnic":    cnic,
			"message": "no citizen record for this CNIC",
		})
		return
	case err != nil:
		h.recordLookup("error")
		slog.Error("citizen lookup failed", "cnic", cnic, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "store unavailable",
		})
		return
	}

	bills, err := h.repo.ListBillsByCNIC(ctx, cnic)
	if err != nil {
		h.recordLookup("error")
		slog.Error("bill listing failed", "cnic", cnic, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "store unavailable",
		})
		return
	}

	if account != "" {
		filtered := bills[:0]
		for _, b := range bills {
			if strings.EqualFold(b.Account, account) {
				filtered = append(filtered, b)
			}
		}
		bills = filtered
	}

	var total float64
	for _, b := range bills {
		total += b.Amount
	}

	resp := BillInquiryResponse{
		Status:      "ok",
		Citizen:     citizen,
		Bills:       bills,
		TotalAmount: total,
		BillCount:   len(bills),
	}
	h.recordLookup("found")

	if account == "" {
		h.cacheSet(r, cacheKey, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListContracts handles GET /contracts with optional risk_level,
// supplier, and limit filters.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	level := strings.ToUpper(strings.TrimSpace(q.Get("risk_level")))
	if level != "" && domain.SeverityRank(level) < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unknown risk_level: " + level,
		})
		return
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = n
	}

	contracts, err := h.repo.ListContracts(r.Context(), domain.ContractFilter{
		RiskLevel: level,
		Supplier:  q.Get("supplier"),
		Limit:     limit,
	})
	if err != nil {
		slog.Error("contract listing failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "store unavailable",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"contracts": contracts,
		"count":     len(contracts),
	})
}

// DashboardResponse aggregates both sides of the store for the
// transparency dashboard.
type DashboardResponse struct {
	Contracts *domain.ContractStats `json:"contracts"`
	Bills     *domain.BillStats     `json:"bills"`
	Timestamp time.Time             `json:"timestamp"`
}

// Dashboard handles GET /analytics/dashboard. The snapshot is cached;
// staleness up to the TTL is acceptable.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	if cached := h.cacheGet(r, domain.CacheKeyDashboard); cached != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(cached)
		return
	}

	resp, err := h.buildDashboard(r)
	if err != nil {
		slog.Error("dashboard aggregation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "store unavailable",
		})
		return
	}

	h.cacheSet(r, domain.CacheKeyDashboard, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) buildDashboard(r *http.Request) (*DashboardResponse, error) {
	ctx := r.Context()

	contractStats, err := h.repo.ContractStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("contract stats: %w", err)
	}
	billStats, err := h.repo.BillStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("bill stats: %w", err)
	}

	return &DashboardResponse{
		Contracts: contractStats,
		Bills:     billStats,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ExportAnalytics handles GET /analytics/export, streaming the dashboard
// aggregates as an XLSX workbook.
func (h *Handler) ExportAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.buildDashboard(r)
	if err != nil {
		slog.Error("analytics export failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "store unavailable",
		})
		return
	}

	f, err := buildWorkbook(snapshot)
	if err != nil {
		slog.Error("workbook build failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "export failed",
		})
		return
	}
	defer f.Close()

	filename := "shafaf-analytics-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := f.Write(w); err != nil {
		slog.Error("workbook write failed", "error", err)
	}
}

func buildWorkbook(snapshot *DashboardResponse) (*excelize.File, error) {
	f := excelize.NewFile()

	const overview = "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return nil, err
	}

	rows := [][2]interface{}{
		{"Metric", "Value"},
		{"Total contracts", snapshot.Contracts.TotalContracts},
		{"Total contract value (Rs.)", snapshot.Contracts.TotalValue},
		{"Total bills", snapshot.Bills.TotalBills},
		{"Total billed amount (Rs.)", snapshot.Bills.TotalAmount},
		{"Average bill amount (Rs.)", snapshot.Bills.AvgAmount},
		{"Generated at", snapshot.Timestamp.Format(time.RFC3339)},
	}
	for i, row := range rows {
		cell := "A" + strconv.Itoa(i+1)
		if err := f.SetCellValue(overview, cell, row[0]); err != nil {
			return nil, err
		}
		cell = "B" + strconv.Itoa(i+1)
		if err := f.SetCellValue(overview, cell, row[1]); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(overview, "A", "B", 30); err != nil {
		return nil, err
	}

	const distribution = "Risk Distribution"
	if _, err := f.NewSheet(distribution); err != nil {
		return nil, err
	}
	f.SetCellValue(distribution, "A1", "Risk level")
	f.SetCellValue(distribution, "B1", "Contracts")
	for i, level := range domain.RiskLevels {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(distribution, "A"+row, level)
		f.SetCellValue(distribution, "B"+row, snapshot.Contracts.RiskDistribution[level])
	}

	const suppliers = "Top Suppliers"
	if _, err := f.NewSheet(suppliers); err != nil {
		return nil, err
	}
	f.SetCellValue(suppliers, "A1", "Supplier")
	f.SetCellValue(suppliers, "B1", "Total value (Rs.)")

	names := make([]string, 0, len(snapshot.Contracts.TopSuppliers))
	for name := range snapshot.Contracts.TopSuppliers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		vi, vj := snapshot.Contracts.TopSuppliers[names[i]], snapshot.Contracts.TopSuppliers[names[j]]
		if vi != vj {
			return vi > vj
		}
		return names[i] < names[j]
	})
	for i, name := range names {
		row := strconv.Itoa(i + 2)
		f.SetCellValue(suppliers, "A"+row, name)
		f.SetCellValue(suppliers, "B"+row, snapshot.Contracts.TopSuppliers[name])
	}
	if err := f.SetColWidth(suppliers, "A", "B", 30); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Root handles GET /, describing the service and its endpoints.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":     "shafaf",
		"description": "Government transparency service: procurement fraud scoring and citizen services assistant",
		"version":     h.version,
		"endpoints": []string{
			"POST /fraud-detect",
			"POST /assistant",
			"POST /bill-inquiry",
			"GET /bill-inquiry?cnic=",
			"GET /contracts",
			"GET /analytics/dashboard",
			"GET /analytics/export",
			"GET /health",
			"GET /metrics",
		},
	})
}

// cacheGet returns the cached payload or nil. Cache trouble degrades to
// a direct store read.
func (h *Handler) cacheGet(r *http.Request, key string) []byte {
	if h.cache == nil {
		return nil
	}
	cached, err := h.cache.Get(r.Context(), key)
	if err != nil {
		slog.Warn("cache read failed", "key", key, "error", err)
		return nil
	}
	return cached
}

func (h *Handler) cacheSet(r *http.Request, key string, value interface{}) {
	if h.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := h.cache.Set(r.Context(), key, payload, cacheTTL); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

func (h *Handler) recordLookup(result string) {
	if h.metrics != nil {
		h.metrics.RecordStoreLookup(result)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
