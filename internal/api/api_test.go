package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/opengov-pk/shafaf/internal/assistant"
	"github.com/opengov-pk/shafaf/internal/bus"
	"github.com/opengov-pk/shafaf/internal/cache"
	"github.com/opengov-pk/shafaf/internal/domain"
	"github.com/opengov-pk/shafaf/internal/history"
	"github.com/opengov-pk/shafaf/internal/metrics"
	"github.com/opengov-pk/shafaf/internal/repository"
	"github.com/opengov-pk/shafaf/internal/risk"
)

// newTestServer builds a server over a seeded temp SQLite store with the
// in-process cache and bus.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	ctx := context.Background()
	seedStore(t, ctx, repo)

	lru := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(16)
	t.Cleanup(func() { eventBus.Close() })

	extractor := risk.NewExtractor(history.NewService(repo, lru), 5)
	scorer, err := risk.NewScorer(risk.Config{}, extractor, nil)
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}
	responder := assistant.NewResponder(repo, domain.AssistantConfig{
		DefaultLanguage: domain.LanguageEnglish,
	})

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
	return NewServer(cfg, repo, lru, eventBus, scorer, responder, metrics.New(), "test-v1")
}

func seedStore(t *testing.T, ctx context.Context, repo domain.Repository) {
	t.Helper()

	citizen := &domain.Citizen{
		ID: "cit-001", CNIC: "42101-1234567-1", Name: "احمد علی",
		Language: domain.LanguageUrdu, Status: domain.CitizenActive,
	}
	if err := repo.InsertCitizen(ctx, citizen); err != nil {
		t.Fatalf("failed to seed citizen: %v", err)
	}

	bills := []*domain.Bill{
		{ID: "bill-001", Account: "PWR-100001", CNIC: "42101-1234567-1", Type: domain.BillElectricity,
			Amount: 2500.50, DueDate: time.Date(2023, 8, 15, 0, 0, 0, 0, time.UTC), Status: domain.BillPending},
		{ID: "bill-003", Account: "WTR-100003", CNIC: "42101-1234567-1", Type: domain.BillWater,
			Amount: 950.25, DueDate: time.Date(2023, 8, 20, 0, 0, 0, 0, time.UTC), Status: domain.BillPaid},
	}
	for _, b := range bills {
		if err := repo.InsertBill(ctx, b); err != nil {
			t.Fatalf("failed to seed bill: %v", err)
		}
	}

	contracts := []*domain.Contract{
		{ID: "con-001", ContractNumber: "CONTRACT-H1", Description: "Hospital equipment",
			Amount: 8_000_000, Supplier: "MedEquip Ltd", Country: "Germany",
			AwardDate: time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC),
			DurationMonths: 6, BidCount: 2, RiskScore: 0.7439, RiskLevel: domain.RiskHigh},
		{ID: "con-002", ContractNumber: "CONTRACT-M1", Description: "Road works",
			Amount: 5_000_000, Supplier: "ABC Construction", Country: "Pakistan",
			AwardDate: time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC),
			DurationMonths: 18, BidCount: 4, RiskScore: 0.5090, RiskLevel: domain.RiskMedium},
		{ID: "con-003", ContractNumber: "CONTRACT-L1", Description: "IT upgrade",
			Amount: 2_500_000, Supplier: "Tech Solutions Inc", Country: "USA",
			AwardDate: time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC),
			DurationMonths: 12, BidCount: 6, RiskScore: 0.2591, RiskLevel: domain.RiskLow},
	}
	for _, c := range contracts {
		if err := repo.InsertContract(ctx, c); err != nil {
			t.Fatalf("failed to seed contract: %v", err)
		}
	}
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestFraudDetectEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("HighRiskContract", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/fraud-detect", domain.ContractSubmission{
			ContractNumber: "PROC-2024-917",
			Description:    "Emergency medical supplies",
			Amount:         8_000_000,
			Supplier:       "Bulk Medical Traders",
			Country:        "Pakistan",
			DurationMonths: 6,
			BidCount:       2,
		})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.Assessment
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.ID == "" {
			t.Error("expected assessment_id in response")
		}
		if resp.ContractNumber != "PROC-2024-917" {
			t.Errorf("contract_number = %q", resp.ContractNumber)
		}
		if resp.Score < 0 || resp.Score > 1 {
			t.Errorf("risk_score out of range: %v", resp.Score)
		}
		if resp.Level != domain.RiskHigh {
			t.Errorf("risk_level = %q, want HIGH", resp.Level)
		}
		if resp.Recommendation == "" {
			t.Error("expected recommendation in response")
		}
		if len(resp.Features) == 0 {
			t.Error("expected extracted features in response")
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		body := domain.ContractSubmission{
			ContractNumber: "PROC-2024-918",
			Description:    "Bridge repair",
			Amount:         12_000_000,
			Supplier:       "Crown Builders",
			Country:        "Pakistan",
			AwardDate:      "2024-03-08",
			DurationMonths: 9,
			BidCount:       2,
		}
		first := doJSON(t, server, http.MethodPost, "/fraud-detect", body)
		second := doJSON(t, server, http.MethodPost, "/fraud-detect", body)

		var a, b domain.Assessment
		json.Unmarshal(first.Body.Bytes(), &a)
		json.Unmarshal(second.Body.Bytes(), &b)

		if a.Score != b.Score || a.Level != b.Level {
			t.Errorf("resubmission changed the result: %v/%s vs %v/%s", a.Score, a.Level, b.Score, b.Level)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/fraud-detect", domain.ContractSubmission{
			ContractNumber: "PROC-2024-919",
			Description:    "No amount",
			Supplier:       "Vendor",
			Country:        "Pakistan",
		})

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["error"] == "" {
			t.Error("expected error message in response")
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/fraud-detect", strings.NewReader("not-json"))
		req.Header.Set("Content-Type", "application/json")

		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("ResponseHeaders", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/fraud-detect", domain.ContractSubmission{
			ContractNumber: "PROC-2024-920",
			Description:    "Office furniture",
			Amount:         450_000,
			Supplier:       "Wood Works",
			Country:        "Pakistan",
			DurationMonths: 12,
			BidCount:       5,
		})

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header in response")
		}
		if !strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
			t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
		}
	})
}

func TestAssistantEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("Greeting", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assistant", domain.ChatRequest{Message: "Hello!"})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var reply domain.ChatReply
		if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if reply.Intent != domain.IntentGreeting {
			t.Errorf("intent = %q, want greeting", reply.Intent)
		}
		if reply.Language != domain.LanguageEnglish {
			t.Errorf("language = %q, want english", reply.Language)
		}
	})

	t.Run("EmptyMessageIsNotAnError", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assistant", domain.ChatRequest{Message: ""})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 for empty message, got %d", rr.Code)
		}
		var reply domain.ChatReply
		json.Unmarshal(rr.Body.Bytes(), &reply)
		if reply.Intent != domain.IntentFallback {
			t.Errorf("intent = %q, want fallback", reply.Intent)
		}
		if reply.Confidence != 0 {
			t.Errorf("confidence = %v, want 0", reply.Confidence)
		}
	})

	t.Run("BillLookupThroughChat", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/assistant", domain.ChatRequest{
			Message: "check bill for cnic 42101-1234567-1",
		})

		var reply domain.ChatReply
		if err := json.Unmarshal(rr.Body.Bytes(), &reply); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if reply.Intent != domain.IntentBillInquiry {
			t.Errorf("intent = %q, want bill_inquiry", reply.Intent)
		}
		if !strings.Contains(reply.Response, "PWR-100001") {
			t.Errorf("reply does not list the stored bill: %q", reply.Response)
		}
	})
}

func TestBillInquiryEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("KnownCNIC", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/bill-inquiry", BillInquiryRequest{CNIC: "42101-1234567-1"})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp BillInquiryResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Status != "ok" {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.Citizen == nil || resp.Citizen.Name != "احمد علی" {
			t.Errorf("unexpected citizen: %+v", resp.Citizen)
		}
		if resp.BillCount != 2 {
			t.Errorf("bill_count = %d, want 2", resp.BillCount)
		}
		if resp.TotalAmount != 3450.75 {
			t.Errorf("total_amount = %v, want 3450.75", resp.TotalAmount)
		}
	})

	t.Run("QueryParameterForm", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/bill-inquiry?cnic=42101-1234567-1", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp BillInquiryResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.BillCount != 2 {
			t.Errorf("bill_count = %d, want 2", resp.BillCount)
		}
	})

	t.Run("AccountFilter", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/bill-inquiry", BillInquiryRequest{
			CNIC:          "42101-1234567-1",
			AccountNumber: "PWR-100001",
		})

		var resp BillInquiryResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.BillCount != 1 {
			t.Fatalf("bill_count = %d, want 1", resp.BillCount)
		}
		if resp.Bills[0].Account != "PWR-100001" {
			t.Errorf("account = %q", resp.Bills[0].Account)
		}
	})

	t.Run("UnknownCNICIsNotFound", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/bill-inquiry", BillInquiryRequest{CNIC: "99999-9999999-9"})

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp["status"] != "not_found" {
			t.Errorf("status = %q, want not_found", resp["status"])
		}
		if resp["cnic"] != "99999-9999999-9" {
			t.Errorf("cnic = %q", resp["cnic"])
		}
	})

	t.Run("MalformedCNIC", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/bill-inquiry", BillInquiryRequest{CNIC: "12345-67"})

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if !strings.Contains(resp["error"], "CNIC") {
			t.Errorf("error = %q", resp["error"])
		}
	})

	t.Run("UnformattedDigitsAccepted", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodPost, "/bill-inquiry", BillInquiryRequest{CNIC: "4210112345671"})

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200 for normalizable CNIC, got %d", rr.Code)
		}
	})
}

func TestContractsEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("ListAll", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/contracts", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Contracts []*domain.Contract `json:"contracts"`
			Count     int                `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 3 {
			t.Errorf("count = %d, want 3", resp.Count)
		}
	})

	t.Run("FilterByLevel", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/contracts?risk_level=HIGH", nil)

		var resp struct {
			Contracts []*domain.Contract `json:"contracts"`
			Count     int                `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count != 1 {
			t.Fatalf("count = %d, want 1", resp.Count)
		}
		if resp.Contracts[0].RiskLevel != domain.RiskHigh {
			t.Errorf("risk_level = %q", resp.Contracts[0].RiskLevel)
		}
	})

	t.Run("UnknownLevel", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/contracts?risk_level=EXTREME", nil)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestDashboardEndpoint(t *testing.T) {
	server := newTestServer(t)

	t.Run("Aggregates", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/analytics/dashboard", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp DashboardResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Contracts.TotalContracts != 3 {
			t.Errorf("total_contracts = %d, want 3", resp.Contracts.TotalContracts)
		}
		if resp.Bills.TotalBills != 2 {
			t.Errorf("total_bills = %d, want 2", resp.Bills.TotalBills)
		}
		if resp.Contracts.RiskDistribution[domain.RiskHigh] != 1 {
			t.Errorf("risk_distribution[HIGH] = %d, want 1", resp.Contracts.RiskDistribution[domain.RiskHigh])
		}
	})

	t.Run("SnapshotIsCached", func(t *testing.T) {
		first := doJSON(t, server, http.MethodGet, "/analytics/dashboard", nil)
		second := doJSON(t, server, http.MethodGet, "/analytics/dashboard", nil)

		a := strings.TrimSpace(first.Body.String())
		b := strings.TrimSpace(second.Body.String())
		if a != b {
			t.Error("cached snapshot differs from the first response")
		}
	})
}

func TestExportEndpoint(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodGet, "/analytics/export", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheet") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), ".xlsx") {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	if body := rr.Body.Bytes(); len(body) < 2 || body[0] != 'P' || body[1] != 'K' {
		t.Error("expected an XLSX (zip) payload")
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := newTestServer(t)

	t.Run("Status", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/health", nil)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp StatusResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Status != "healthy" {
			t.Errorf("status = %q", resp.Status)
		}
		if resp.Version != "test-v1" {
			t.Errorf("version = %q", resp.Version)
		}
		for _, name := range []string{"database", "model", "cache"} {
			if resp.Checks[name] != "up" {
				t.Errorf("check %s = %q, want up", name, resp.Checks[name])
			}
		}
	})

	t.Run("Live", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/health/live", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rr := doJSON(t, server, http.MethodGet, "/health/ready", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	doJSON(t, server, http.MethodPost, "/fraud-detect", domain.ContractSubmission{
		ContractNumber: "PROC-2024-921",
		Description:    "Street lighting",
		Amount:         450_000,
		Supplier:       "Luman Electric",
		Country:        "Pakistan",
		DurationMonths: 12,
		BidCount:       5,
	})

	rr := doJSON(t, server, http.MethodGet, "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "shafaf_risk_assessments_total") {
		t.Error("exposition missing assessment counter")
	}
	if !strings.Contains(body, "shafaf_http_requests_total") {
		t.Error("exposition missing request counter")
	}
}

func TestRootEndpoint(t *testing.T) {
	server := newTestServer(t)

	rr := doJSON(t, server, http.MethodGet, "/", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Service   string   `json:"service"`
		Version   string   `json:"version"`
		Endpoints []string `json:"endpoints"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Service != "shafaf" {
		t.Errorf("service = %q", resp.Service)
	}
	if len(resp.Endpoints) == 0 {
		t.Error("expected endpoint list")
	}
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedRequestID = GetRequestID(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("RateLimiterEnforcesBurst", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1)
		handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		if first.Code != http.StatusOK {
			t.Fatalf("first request: expected 200, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
		if second.Code != http.StatusTooManyRequests {
			t.Fatalf("second request: expected 429, got %d", second.Code)
		}

		otherClient := httptest.NewRequest(http.MethodGet, "/", nil)
		otherClient.RemoteAddr = "198.51.100.7:4411"
		third := httptest.NewRecorder()
		handler.ServeHTTP(third, otherClient)
		if third.Code != http.StatusOK {
			t.Errorf("distinct client: expected 200, got %d", third.Code)
		}
	})
}
