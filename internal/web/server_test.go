package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/unidata/internal/config"
	"github.com/JonMunkholm/unidata/internal/store"
	"github.com/JonMunkholm/unidata/internal/table"
)

const surveyCSV = "Participant,Dollars Spent\nann,$12.345\nbob,$1.005\ncy,\n"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20, MaxConcurrent: 2, MaxWaitTime: 50 * time.Millisecond},
		Format: config.FormatConfig{Currency: "$", Precision: 2, Delimiter: ","},
	}
}

// fakeSaver records the last Save call.
type fakeSaver struct {
	name   string
	source string
	rows   int
}

func (f *fakeSaver) Save(_ context.Context, name, source string, runID uuid.UUID, t *table.Table) (store.Run, error) {
	f.name, f.source, f.rows = name, source, t.NumRows()
	target, err := store.TableName(name)
	if err != nil {
		return store.Run{}, err
	}
	return store.Run{ID: runID, Table: target, Source: source, Rows: int64(t.NumRows())}, nil
}

// uploadRequest builds a multipart POST with an optional file and plan.
func uploadRequest(t *testing.T, path, filename, content, plan string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if plan != "" {
		if err := mw.WriteField("plan", plan); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFormat_Success(t *testing.T) {
	s := NewServer(testConfig(), nil)
	plan := `{"columns":["Dollars Spent"],"non_negative":["Dollars Spent"]}`
	rec := serve(s, uploadRequest(t, "/api/format", "coffee.csv", surveyCSV, plan))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp FormatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(resp.RunID); err != nil {
		t.Errorf("run_id %q is not a UUID", resp.RunID)
	}
	if resp.Source != "coffee.csv" {
		t.Errorf("source = %q", resp.Source)
	}

	wantCols := []ColumnInfo{{"Participant", "text"}, {"Dollars Spent", "float"}}
	if len(resp.Columns) != 2 || resp.Columns[0] != wantCols[0] || resp.Columns[1] != wantCols[1] {
		t.Errorf("columns = %v, want %v", resp.Columns, wantCols)
	}

	if len(resp.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(resp.Rows))
	}
	if resp.Rows[0][1] != 12.35 {
		t.Errorf("row 0 = %v, want 12.35", resp.Rows[0][1])
	}
	if resp.Rows[1][1] != 1.01 {
		t.Errorf("row 1 = %v, want 1.01", resp.Rows[1][1])
	}
	if resp.Rows[2][1] != nil {
		t.Errorf("row 2 = %v, want null", resp.Rows[2][1])
	}
	if resp.Table != "" {
		t.Errorf("table = %q, want none without persist", resp.Table)
	}
}

func TestFormat_ConfigDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.Format.Columns = []string{"Dollars Spent"}
	cfg.Format.Precision = 1
	s := NewServer(cfg, nil)

	rec := serve(s, uploadRequest(t, "/api/format", "coffee.csv", surveyCSV, ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp FormatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Rows[0][1] != 12.3 {
		t.Errorf("row 0 = %v, want 12.3", resp.Rows[0][1])
	}
}

func TestFormat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		content    string
		plan       string
		wantStatus int
		wantCode   string
		wantColumn string
	}{
		{
			name:       "non-string column",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":["Dollars Spent",42]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL009",
		},
		{
			name:       "missing column",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":["Nope"]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL005",
			wantColumn: "Nope",
		},
		{
			name:       "invalid number",
			filename:   "coffee.csv",
			content:    "Dollars Spent\n$12.00\nabc\n",
			plan:       `{"columns":["Dollars Spent"]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL002",
			wantColumn: "Dollars Spent",
		},
		{
			name:       "negative value",
			filename:   "coffee.csv",
			content:    "Dollars Spent\n$1.00\n-$0.01\n",
			plan:       `{"columns":["Dollars Spent"],"non_negative":["Dollars Spent"]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VAL008",
			wantColumn: "Dollars Spent",
		},
		{
			name:       "non-negative on text column",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"non_negative":["Participant"]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL007",
			wantColumn: "Participant",
		},
		{
			name:       "malformed plan",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL009",
		},
		{
			name:       "no file",
			plan:       `{}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "empty file",
			filename:   "empty.csv",
			content:    "",
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name:       "precision above max",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":["Dollars Spent"],"precision":309}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL009",
		},
		{
			name:       "precision beyond int32",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":["Dollars Spent"],"precision":2247483653}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VAL009",
		},
		{
			name:       "persist without database",
			filename:   "coffee.csv",
			content:    surveyCSV,
			plan:       `{"columns":["Dollars Spent"],"persist":true}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "DB001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig(), nil)
			rec := serve(s, uploadRequest(t, "/api/format", tt.filename, tt.content, tt.plan))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			resp := decodeError(t, rec)
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
			if resp.Column != tt.wantColumn {
				t.Errorf("column = %q, want %q", resp.Column, tt.wantColumn)
			}
			if resp.Message == "" || resp.Action == "" {
				t.Errorf("message/action missing: %+v", resp)
			}
		})
	}
}

func TestFormat_FileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 16
	s := NewServer(cfg, nil)

	rec := serve(s, uploadRequest(t, "/api/format", "coffee.csv", surveyCSV, ""))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "FILE001" {
		t.Errorf("code = %q, want FILE001", resp.Code)
	}
}

func TestFormat_Persist(t *testing.T) {
	saver := &fakeSaver{}
	s := NewServer(testConfig(), saver)

	plan := `{"columns":["Dollars Spent"],"persist":true}`
	rec := serve(s, uploadRequest(t, "/api/format", "coffee-survey.csv", surveyCSV, plan))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp FormatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if saver.name != "coffee-survey" || saver.source != "coffee-survey.csv" || saver.rows != 3 {
		t.Errorf("Save called with name=%q source=%q rows=%d", saver.name, saver.source, saver.rows)
	}
	if resp.Table != "coffee_survey" || resp.Saved != 3 {
		t.Errorf("table = %q saved = %d, want coffee_survey 3", resp.Table, resp.Saved)
	}
}

func TestFormat_PersistNamedTable(t *testing.T) {
	saver := &fakeSaver{}
	s := NewServer(testConfig(), saver)

	plan := `{"persist":true,"table":"Coffee 2019"}`
	rec := serve(s, uploadRequest(t, "/api/format", "coffee.csv", surveyCSV, plan))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if saver.name != "Coffee 2019" {
		t.Errorf("Save name = %q, want %q", saver.name, "Coffee 2019")
	}
}

func TestFormat_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	s := NewServer(cfg, nil)

	if err := s.limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.limiter.Release()

	rec := serve(s, uploadRequest(t, "/api/format", "coffee.csv", surveyCSV, ""))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "UPL002" {
		t.Errorf("code = %q, want UPL002", resp.Code)
	}
}

func TestColumns(t *testing.T) {
	s := NewServer(testConfig(), nil)
	rec := serve(s, uploadRequest(t, "/api/columns", "coffee.csv", surveyCSV, ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ColumnsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Rows != 3 || len(resp.Columns) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Columns[0].Name != "Participant" || resp.Columns[1].Name != "Dollars Spent" {
		t.Errorf("columns = %v", resp.Columns)
	}
	if resp.Columns[1].Kind != "text" {
		t.Errorf("unformatted column kind = %q, want text", resp.Columns[1].Kind)
	}
}

func TestStatus(t *testing.T) {
	s := NewServer(testConfig(), &fakeSaver{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Runs        LimiterStatus `json:"runs"`
		Persistence bool          `json:"persistence"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Persistence || resp.Runs.MaxConcurrent != 2 || resp.Runs.Available != 2 {
		t.Errorf("status = %+v", resp)
	}
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := NewServer(cfg, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(s, req); rec.Code != http.StatusOK {
		t.Errorf("with key: status = %d, want 200", rec.Code)
	}

	if rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("healthz: status = %d, want 200 without key", rec.Code)
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := NewServer(testConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() after Shutdown error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() kept serving after Shutdown")
	}
}
