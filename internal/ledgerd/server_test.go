package ledgerd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pantrack/internal/ledger"
	"pantrack/internal/testutil/testlog"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := Appear(ServerConfig{
		ID:    "ledgerd-test",
		Addr:  ":0",
		Token: "secret",
	}, seededStore())
	srv.RegisterRoutes()
	return srv
}

func postScan(t *testing.T, srv *Server, token string, req ledger.ScanRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq := httptest.NewRequest(http.MethodPost, "/slip/scan-qr", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.HTTPRouter().ServeHTTP(rr, httpReq)
	return rr
}

func TestScanEndpointSessionFlow(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	rr := postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{55, 56}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var first ledger.ScanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if err := first.Validate(); err != nil {
		t.Fatalf("response shape: %v", err)
	}
	if first.ScannedCasesCount != 1 || len(first.Data) != 2 {
		t.Fatalf("unexpected first response: %+v", first)
	}

	rr = postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 200, SlipIDs: []int{70}, SessionKey: first.SessionKey})
	var second ledger.ScanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if second.SessionKey != first.SessionKey {
		t.Fatalf("expected session continuity, got %q vs %q", second.SessionKey, first.SessionKey)
	}
	if second.ScannedCasesCount != 2 {
		t.Fatalf("expected server-incremented count 2, got %d", second.ScannedCasesCount)
	}
}

func TestScanEndpointRequiresBearerToken(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	rr := postScan(t, srv, "", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{55}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = postScan(t, srv, "wrong", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{55}})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rr.Code)
	}
}

func TestScanEndpointRejectsBadRequests(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	httpReq := httptest.NewRequest(http.MethodPost, "/slip/scan-qr", bytes.NewReader([]byte("{not json")))
	httpReq.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	srv.HTTPRouter().ServeHTTP(rr, httpReq)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rr.Code)
	}

	if rr := postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{999}}); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown slip, got %d", rr.Code)
	}
	if rr := postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{70}}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for case mismatch, got %d", rr.Code)
	}
	if rr := postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102}); rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty slip list, got %d", rr.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	first := postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{55}})
	var scanResp ledger.ScanResponse
	_ = json.Unmarshal(first.Body.Bytes(), &scanResp)
	postScan(t, srv, "secret", ledger.ScanRequest{CaseID: 102, SlipIDs: []int{55}, SessionKey: scanResp.SessionKey})

	httpReq := httptest.NewRequest(http.MethodGet, "/slip/driver-history/slip/55", nil)
	httpReq.Header.Set("Authorization", "Bearer secret")
	rr := httptest.NewRecorder()
	srv.HTTPRouter().ServeHTTP(rr, httpReq)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp ledger.HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data.Slip.ID != 55 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(resp.Data.DriverHistory) != 2 {
		t.Fatalf("expected two custody entries, got %d", len(resp.Data.DriverHistory))
	}
	if resp.Data.Slip.CurrentLocation != "Lab - Front Desk" {
		t.Fatalf("unexpected current location %q", resp.Data.Slip.CurrentLocation)
	}
}

func TestHistoryEndpointErrors(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	for path, want := range map[string]int{
		"/slip/driver-history/slip/999": http.StatusNotFound,
		"/slip/driver-history/slip/abc": http.StatusBadRequest,
	} {
		httpReq := httptest.NewRequest(http.MethodGet, path, nil)
		httpReq.Header.Set("Authorization", "Bearer secret")
		rr := httptest.NewRecorder()
		srv.HTTPRouter().ServeHTTP(rr, httpReq)
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}
}

func TestHealthAndReadyAreOpen(t *testing.T) {
	testlog.Start(t)
	srv := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		httpReq := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		srv.HTTPRouter().ServeHTTP(rr, httpReq)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, rr.Code)
		}
	}
}
