package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MJE43/onering-odds/internal/engine"
	"github.com/MJE43/onering-odds/internal/odds"
	"github.com/MJE43/onering-odds/internal/scan"
	"github.com/MJE43/onering-odds/internal/store"
	"go.uber.org/zap"
)

var (
	batchOnce sync.Once
	testBatch *engine.Batch
)

func sharedBatch(t *testing.T) *engine.Batch {
	t.Helper()
	batchOnce.Do(func() {
		b, err := engine.GenerateBatch(20_000, engine.DefaultSeed)
		if err != nil {
			t.Fatalf("GenerateBatch: %v", err)
		}
		testBatch = b
	})
	return testBatch
}

func newTestServer(t *testing.T, withDB bool) *Server {
	t.Helper()
	var db store.DB
	if withDB {
		sqlite, err := store.NewSQLiteDB(":memory:")
		if err != nil {
			t.Fatalf("Failed to create test database: %v", err)
		}
		t.Cleanup(func() { sqlite.Close() })
		if err := sqlite.Migrate(); err != nil {
			t.Fatalf("Failed to migrate: %v", err)
		}
		db = sqlite
	}
	return NewServer(sharedBatch(t), db, zap.NewNop(), Options{Workers: 2})
}

func do(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, errType string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("Expected status %d, got %d: %s", status, w.Code, w.Body.String())
	}
	var e EngineError
	decode(t, w, &e)
	if e.Type != errType {
		t.Errorf("Expected error type %q, got %q", errType, e.Type)
	}
	if e.Timestamp == "" {
		t.Error("Expected timestamp on error response")
	}
}

func TestHealthEndpoint(t *testing.T) {
	for _, withDB := range []bool{true, false} {
		h := newTestServer(t, withDB).Routes()
		w := do(t, h, http.MethodGet, "/health", nil)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if w.Header().Get("X-Engine-Version") != EngineVersion {
			t.Error("Missing X-Engine-Version header")
		}
		var resp HealthCheckResponse
		decode(t, w, &resp)
		if resp.SampleSize != 20_000 || resp.Seed != engine.DefaultSeed {
			t.Errorf("batch = (%d, %d)", resp.SampleSize, resp.Seed)
		}
		want := HealthStatusHealthy
		if !withDB {
			want = HealthStatusDegraded
		}
		if resp.Status != want {
			t.Errorf("withDB=%v: status = %s, want %s", withDB, resp.Status, want)
		}
	}
}

func TestModesEndpoint(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/modes", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp ModesResponse
	decode(t, w, &resp)
	if len(resp.Modes) != 3 {
		t.Errorf("Expected 3 modes, got %d", len(resp.Modes))
	}
	if resp.EngineVersion == "" {
		t.Error("Expected engine version in response")
	}
}

func TestEstimateEndpoint(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/estimate?target=14&pool_size=3&feat_mode=favoured&weary=true", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp EstimateResponse
	decode(t, w, &resp)

	cfg := odds.Config{
		Target:   14,
		PoolSize: 3,
		Variant:  odds.Variant{FeatMode: odds.FeatFavored, Weary: true},
	}
	want, err := odds.EstimateSuccess(sharedBatch(t), cfg)
	if err != nil {
		t.Fatalf("EstimateSuccess: %v", err)
	}
	if resp.Probability != want {
		t.Errorf("probability = %f, want %f", resp.Probability, want)
	}
	if resp.Display != scan.FormatProbability(want) {
		t.Errorf("display = %q, want %q", resp.Display, scan.FormatProbability(want))
	}
	if resp.Variant != cfg.Variant {
		t.Errorf("variant = %+v, want %+v", resp.Variant, cfg.Variant)
	}
}

func TestEstimateEndpointErrors(t *testing.T) {
	h := newTestServer(t, false).Routes()
	tests := []struct {
		name    string
		query   string
		errType string
	}{
		{"missing target", "pool_size=2", ErrTypeValidation},
		{"bad target", "target=x&pool_size=2", ErrTypeValidation},
		{"bad mode", "target=12&pool_size=2&feat_mode=blessed", ErrTypeValidation},
		{"bad flag", "target=12&pool_size=2&weary=sometimes", ErrTypeValidation},
		{"zero target", "target=0&pool_size=2", ErrTypeInvalidArgument},
		{"pool too large", "target=12&pool_size=6", ErrTypeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, "/api/v1/estimate?"+tt.query, nil)
			expectError(t, w, http.StatusBadRequest, tt.errType)
		})
	}
}

func TestEstimateEndpointEmptyBatch(t *testing.T) {
	h := NewServer(nil, nil, zap.NewNop(), Options{}).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/estimate?target=12&pool_size=2", nil)
	expectError(t, w, http.StatusBadRequest, ErrTypeEmptyBatch)
}

func TestCreateTableDefaults(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodPost, "/api/v1/tables", TableRequest{FeatMode: "Ill-favoured", Miserable: true})

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp TableResponse
	decode(t, w, &resp)
	if resp.ID != "" {
		t.Errorf("unsaved table has ID %q", resp.ID)
	}
	if len(resp.Table.Targets) != 12 || len(resp.Table.PoolSizes) != 5 {
		t.Fatalf("table is %dx%d, want 12x5", len(resp.Table.Targets), len(resp.Table.PoolSizes))
	}
	if resp.Table.Variant.FeatMode != odds.FeatIllFavored || !resp.Table.Variant.Miserable {
		t.Errorf("variant = %+v", resp.Table.Variant)
	}

	want, err := scan.BuildTable(scan.DefaultTargets(), scan.DefaultPoolSizes(), resp.Table.Variant, sharedBatch(t))
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	for r := range want.Cells {
		for c := range want.Cells[r] {
			if resp.Table.Cells[r][c] != want.Cells[r][c] {
				t.Errorf("cell (%d,%d) = %f, want %f", r, c, resp.Table.Cells[r][c], want.Cells[r][c])
			}
			if resp.Display[r][c] != scan.FormatProbability(want.Cells[r][c]) {
				t.Errorf("display (%d,%d) = %q", r, c, resp.Display[r][c])
			}
		}
	}
}

func TestCreateTableValidation(t *testing.T) {
	h := newTestServer(t, true).Routes()

	manyTargets := make([]int, MaxTargets+1)
	for i := range manyTargets {
		manyTargets[i] = 12
	}
	tests := []struct {
		name string
		req  TableRequest
	}{
		{"bad mode", TableRequest{FeatMode: "Blessed"}},
		{"zero target", TableRequest{Targets: []int{12, 0}}},
		{"bad pool", TableRequest{PoolSizes: []int{0}}},
		{"too many targets", TableRequest{Targets: manyTargets}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/v1/tables", tt.req)
			expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tables", strings.NewReader(`{"feat_mode":"Normal","hope":3}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
}

func TestSaveWithoutDatabase(t *testing.T) {
	h := newTestServer(t, false).Routes()

	w := do(t, h, http.MethodPost, "/api/v1/tables", TableRequest{Save: true})
	expectError(t, w, http.StatusServiceUnavailable, ErrTypeServiceUnavailable)

	for _, path := range []string{"/api/v1/tables", "/api/v1/tables/abc", "/api/v1/tables/abc/csv"} {
		w := do(t, h, http.MethodGet, path, nil)
		expectError(t, w, http.StatusServiceUnavailable, ErrTypeServiceUnavailable)
	}
}

func TestStoredTableLifecycle(t *testing.T) {
	h := newTestServer(t, true).Routes()

	w := do(t, h, http.MethodPost, "/api/v1/tables", TableRequest{
		FeatMode:  "Favored",
		Weary:     true,
		Targets:   []int{16, 12},
		PoolSizes: []int{2, 4},
		Save:      true,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var created TableResponse
	decode(t, w, &created)
	if created.ID == "" || created.CreatedAt == nil {
		t.Fatalf("saved table missing id or created_at: %+v", created)
	}

	// Fetch it back
	w = do(t, h, http.MethodGet, "/api/v1/tables/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var fetched TableResponse
	decode(t, w, &fetched)
	if fetched.Table.Variant != created.Table.Variant {
		t.Errorf("variant = %+v, want %+v", fetched.Table.Variant, created.Table.Variant)
	}
	if fetched.Table.Targets[0] != 16 || fetched.Table.PoolSizes[1] != 4 {
		t.Errorf("axes = %v x %v", fetched.Table.Targets, fetched.Table.PoolSizes)
	}
	for r := range created.Table.Cells {
		for c := range created.Table.Cells[r] {
			if fetched.Table.Cells[r][c] != created.Table.Cells[r][c] {
				t.Errorf("cell (%d,%d) = %f, want %f", r, c, fetched.Table.Cells[r][c], created.Table.Cells[r][c])
			}
		}
	}

	// CSV export
	w = do(t, h, http.MethodGet, "/api/v1/tables/"+created.ID+"/csv", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 3 || strings.Join(records[0], ",") != "target,2,4" || records[1][0] != "16" {
		t.Errorf("CSV = %v", records)
	}
	if records[1][1] != created.Display[0][0] {
		t.Errorf("CSV cell = %q, want %q", records[1][1], created.Display[0][0])
	}

	// Listing and filtering
	w = do(t, h, http.MethodGet, "/api/v1/tables?feat_mode=favoured", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var list TablesListResponse
	decode(t, w, &list)
	if list.TotalCount != 1 || list.Tables[0].ID != created.ID {
		t.Errorf("list = %+v", list.TablesList)
	}

	w = do(t, h, http.MethodGet, "/api/v1/tables?feat_mode=Normal", nil)
	decode(t, w, &list)
	if list.TotalCount != 0 {
		t.Errorf("Expected no Normal tables, got %d", list.TotalCount)
	}

	w = do(t, h, http.MethodGet, "/api/v1/tables?page=x", nil)
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)
	w = do(t, h, http.MethodGet, "/api/v1/tables?page=9223372036854775807", nil)
	expectError(t, w, http.StatusBadRequest, ErrTypeValidation)

	// Delete
	w = do(t, h, http.MethodDelete, "/api/v1/tables/"+created.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", w.Code)
	}
	w = do(t, h, http.MethodGet, "/api/v1/tables/"+created.ID, nil)
	expectError(t, w, http.StatusNotFound, ErrTypeNotFound)
	w = do(t, h, http.MethodDelete, "/api/v1/tables/"+created.ID, nil)
	expectError(t, w, http.StatusNotFound, ErrTypeNotFound)
}

func TestRecoveryHandler(t *testing.T) {
	eh := NewErrorHandler(zap.NewNop())
	h := eh.RecoveryHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	expectError(t, w, http.StatusInternalServerError, ErrTypeInternal)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodOptions, "/api/v1/tables", nil)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Missing CORS header")
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/version", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var info VersionInfo
	decode(t, w, &info)
	if info != GetVersionInfo() {
		t.Errorf("version = %+v, want %+v", info, GetVersionInfo())
	}
}

// brokenDB fails every query.
type brokenDB struct{}

var errDiskGone = errors.New("disk I/O error")

func (brokenDB) Close() error                                            { return nil }
func (brokenDB) Migrate() error                                          { return nil }
func (brokenDB) SaveTable(*store.TableRecord) error                      { return errDiskGone }
func (brokenDB) GetTable(string) (*store.TableRecord, error)             { return nil, errDiskGone }
func (brokenDB) ListTables(store.TablesQuery) (*store.TablesList, error) { return nil, errDiskGone }
func (brokenDB) DeleteTable(string) error                                { return errDiskGone }

func TestInternalErrorCarriesCause(t *testing.T) {
	h := NewServer(sharedBatch(t), brokenDB{}, zap.NewNop(), Options{}).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/tables/abc", nil)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	var e EngineError
	decode(t, w, &e)
	if e.Type != ErrTypeInternal || e.Message != "Internal server error" {
		t.Errorf("error = (%q, %q)", e.Type, e.Message)
	}
	if e.Context["cause"] != errDiskGone.Error() {
		t.Errorf("cause = %v, want %q", e.Context["cause"], errDiskGone.Error())
	}
	if e.Context["table_id"] != "abc" {
		t.Errorf("table_id = %v", e.Context["table_id"])
	}

	w = do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health with failing database = %d, want 503", w.Code)
	}
}

func TestClientErrorHasNoCause(t *testing.T) {
	h := newTestServer(t, false).Routes()
	w := do(t, h, http.MethodGet, "/api/v1/estimate?target=0&pool_size=2", nil)

	var e EngineError
	decode(t, w, &e)
	if _, ok := e.Context["cause"]; ok {
		t.Errorf("client error exposes cause: %v", e.Context)
	}
	if !strings.Contains(e.Message, "target must be positive") {
		t.Errorf("message = %q", e.Message)
	}
}
