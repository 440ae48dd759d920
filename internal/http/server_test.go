package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"moneta/internal/core"
	"moneta/internal/memory"
)

type publishedEvent struct {
	ID int64
	Op string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) PublishTransactionChange(_ context.Context, id int64, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{ID: id, Op: op})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func ptr(v int64) *int64 { return &v }

func newTestServer(t *testing.T) (*Server, *fakePublisher) {
	srv, pub, _ := newTestServerWithIDs(t)
	return srv, pub
}

func newTestServerWithIDs(t *testing.T) (*Server, *fakePublisher, []int64) {
	t.Helper()

	store := memory.NewStore()
	store.AddAccount(core.Account{ID: 1, Name: "Checking", InitialBalance: 500, Currency: "EUR"})
	store.AddAccount(core.Account{ID: 2, Name: "Savings", InitialBalance: 1000, Currency: "EUR"})
	store.AddCategory(core.Category{ID: 10, Name: "Food", Kind: core.KindExpense})
	store.AddCategory(core.Category{ID: 11, ParentID: ptr(10), Name: "Groceries", Kind: core.KindExpense})
	store.AddCategory(core.Category{ID: 12, Name: "Salary", Kind: core.KindIncome})

	ctx := context.Background()
	txs := []core.Transaction{
		{Date: core.NewDate(2024, 6, 3), Kind: core.KindIncome, Amount: 2000, AccountID: 1, CategoryID: ptr(12), Memo: "salary"},
		{Date: core.NewDate(2024, 6, 5), Kind: core.KindExpense, Amount: 80, AccountID: 1, CategoryID: ptr(11), Memo: "supermarket"},
		{Date: core.NewDate(2024, 6, 8), Kind: core.KindExpense, Amount: 40, AccountID: 1, CategoryID: ptr(10), Memo: "lunch"},
	}
	ids := make([]int64, 0, len(txs))
	for _, tx := range txs {
		id, err := store.CreateTransaction(ctx, tx)
		if err != nil {
			t.Fatalf("seed transaction: %v", err)
		}
		ids = append(ids, id)
	}

	pub := &fakePublisher{}
	srv := NewServer(":0", store, pub, Options{ExportRowLimit: 100})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, pub, ids
}

func doRequest(srv *Server, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doRequest(srv, http.MethodGet, path, "")
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
}

func TestHandleReport(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/report?preset=custom&start=2024-06-01&end=2024-06-30", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != "ready" {
		t.Errorf("state = %s, want ready", resp.State)
	}
	if resp.Cached {
		t.Error("first load should not be served from cache")
	}
	if !resp.Transactions.OK || len(resp.Transactions.Data) != 3 {
		t.Errorf("transactions section: ok=%v len=%d", resp.Transactions.OK, len(resp.Transactions.Data))
	}
	if !resp.Comparison.OK {
		t.Errorf("bounded period should have a comparison, got error %q", resp.Comparison.Error)
	}

	// Same filter again is a cache hit.
	rr = doRequest(srv, http.MethodGet, "/api/report?preset=custom&start=2024-06-01&end=2024-06-30", "")
	var cached reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cached); err != nil {
		t.Fatalf("decode cached response: %v", err)
	}
	if !cached.Cached {
		t.Error("second identical request should be served from cache")
	}
	if cached.SnapshotID != resp.SnapshotID {
		t.Error("cached response should reuse the snapshot")
	}
}

func TestHandleReport_UnboundedComparison(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/report", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var resp reportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.State != "ready" {
		t.Errorf("state = %s, want ready despite missing comparison", resp.State)
	}
	if resp.Comparison.OK {
		t.Error("all-time filter should leave the comparison section unavailable")
	}
}

func TestHandleReport_InvalidSelection(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown preset", "/api/report?preset=yesterday"},
		{"malformed date", "/api/report?preset=custom&start=junk"},
		{"inverted range", "/api/report?preset=custom&start=2024-06-30&end=2024-06-01"},
		{"bad account id", "/api/report?account_id=abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(srv, http.MethodGet, tt.target, "")
			if rr.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rr.Code)
			}
		})
	}
}

func TestCreateTransaction(t *testing.T) {
	srv, pub := newTestServer(t)

	body := `{"date":"2024-06-15","type":"EXPENSE","amount":12.5,"account_id":1,"category_id":10,"memo":"coffee"}`
	rr := doRequest(srv, http.MethodPost, "/api/transactions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var created map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created["id"] == 0 {
		t.Error("created id should be returned")
	}

	events := pub.published()
	if len(events) != 1 || events[0].Op != "created" {
		t.Errorf("published events = %v, want one created event", events)
	}
}

func TestCreateTransaction_Validation(t *testing.T) {
	srv, pub := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"bad kind", `{"date":"2024-06-15","type":"LOAN","amount":10,"account_id":1}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"date":"2024-06-15","type":"EXPENSE","amount":0,"account_id":1}`, http.StatusUnprocessableEntity},
		{"transfer without destination", `{"date":"2024-06-15","type":"TRANSFER","amount":10,"account_id":1}`, http.StatusUnprocessableEntity},
		{"self transfer", `{"date":"2024-06-15","type":"TRANSFER","amount":10,"account_id":1,"to_account_id":1}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(srv, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}

	if len(pub.published()) != 0 {
		t.Error("rejected mutations must not publish change events")
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	srv, pub, ids := newTestServerWithIDs(t)

	body := `{"date":"2024-06-05","type":"EXPENSE","amount":95,"account_id":1,"category_id":11,"memo":"supermarket"}`
	rr := doRequest(srv, http.MethodPut, fmt.Sprintf("/api/transactions/%d", ids[1]), body)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", ids[2]), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body = %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(srv, http.MethodDelete, "/api/transactions/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rr.Code)
	}

	rr = doRequest(srv, http.MethodDelete, "/api/transactions/99999", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", rr.Code)
	}

	events := pub.published()
	if len(events) != 2 {
		t.Fatalf("published %d events, want 2", len(events))
	}
	if events[0].Op != "updated" || events[1].Op != "deleted" {
		t.Errorf("event ops = %v", events)
	}
}

func TestMutationInvalidatesReportCache(t *testing.T) {
	srv, _ := newTestServer(t)

	target := "/api/report?preset=custom&start=2024-06-01&end=2024-06-30"
	first := doRequest(srv, http.MethodGet, target, "")

	body := `{"date":"2024-06-20","type":"EXPENSE","amount":30,"account_id":1,"category_id":10}`
	if rr := doRequest(srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rr.Code)
	}

	second := doRequest(srv, http.MethodGet, target, "")
	var before, after reportResponse
	if err := json.Unmarshal(first.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode first response: %v", err)
	}
	if err := json.Unmarshal(second.Body.Bytes(), &after); err != nil {
		t.Fatalf("decode second response: %v", err)
	}

	if after.Cached {
		t.Error("mutation should have purged the snapshot cache")
	}
	if len(after.Transactions.Data) != len(before.Transactions.Data)+1 {
		t.Errorf("after mutation got %d transactions, want %d",
			len(after.Transactions.Data), len(before.Transactions.Data)+1)
	}
}

func TestHandleCategories(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/categories", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var categories []indentedCategoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &categories); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(categories) != 3 {
		t.Fatalf("got %d categories, want 3", len(categories))
	}

	depths := map[string]int{}
	for _, c := range categories {
		depths[c.Name] = c.Depth
	}
	if depths["Food"] != 0 || depths["Groceries"] != 1 {
		t.Errorf("depths = %v", depths)
	}
}

func TestHandleCategorySpending(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/categories/spending?preset=custom&start=2024-06-01&end=2024-06-30", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var shares []categoryShareResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &shares); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// Groceries rolls up under Food, so one aggregate share.
	if len(shares) != 1 {
		t.Fatalf("got %d shares, want 1", len(shares))
	}
	if shares[0].Name != "Food" || shares[0].Total != 120 {
		t.Errorf("share = %+v", shares[0])
	}
	if shares[0].Percentage != 100 {
		t.Errorf("percentage = %v, want 100", shares[0].Percentage)
	}
	if shares[0].Color == "" {
		t.Error("share should carry a palette color")
	}
}

func TestHandleAccounts(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/accounts", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var accounts []core.AccountWithBalance
	if err := json.Unmarshal(rr.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}
}

func TestHandleExportCSV(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doRequest(srv, http.MethodGet, "/api/export/csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 {
		t.Errorf("got %d CSV lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Date,Type,Account") {
		t.Errorf("header = %q", lines[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		method string
		target string
	}{
		{http.MethodDelete, "/api/report"},
		{http.MethodPost, "/api/accounts"},
		{http.MethodPut, "/api/transactions"},
		{http.MethodPost, "/api/transactions/1"},
	}

	for _, tt := range tests {
		rr := doRequest(srv, tt.method, tt.target, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.target, rr.Code)
		}
	}
}
