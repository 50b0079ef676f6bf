package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"faturamento/internal/cache"
	"faturamento/internal/core"
	"faturamento/internal/services"
	"faturamento/internal/sheets/file"
	"faturamento/internal/sheets/memory"
	"faturamento/internal/storage"
)

var header = []string{"Mês", "Ano", "Faturamento - Valor", "Meta - Valor"}

func sampleTable() core.Table {
	return core.Table{Header: header, Rows: [][]any{
		{"01-Jan", "2024", "1000", "900"},
		{"01-Jan", "2025", "1,200", "1,000"},
		{"02-Fev", "2024", "800", "900"},
	}}
}

type testServer struct {
	*Server
}

func newTestServer(t *testing.T, withUploads bool, cfg Config, ready ...ReadinessCheck) testServer {
	t.Helper()
	c := cache.NewLRUCache[core.Report](16, time.Minute)
	reports := services.NewReportService(services.ReportDefaults{}, c, nil,
		services.Source{Name: "memory", Reader: memory.New(sampleTable())})

	var uploads *services.UploadService
	if withUploads {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "faturamento.db"))
		if err != nil {
			t.Fatalf("open repository: %v", err)
		}
		t.Cleanup(func() { _ = repo.Close() })
		uploads = services.NewUploadService(repo, nil, reports, c, nil)
	}

	srv := NewServer(cfg, reports, uploads, nil, ready...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return testServer{srv}
}

func (s testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

const sampleCSV = "Mês,Ano,Faturamento - Valor,Meta - Valor\n01-Jan,2024,1000,900\n01-Jan,2025,\"1,200\",\"1,000\"\n02-Fev,2024,800,900\n"

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, false, Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := srv.do(t, httptest.NewRequest(http.MethodGet, path, nil)); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	failing := newTestServer(t, false, Config{}, func(context.Context) error { return errors.New("db down") })
	if rr := failing.do(t, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing check = %d", rr.Code)
	}
}

func TestGetReport(t *testing.T) {
	srv := newTestServer(t, false, Config{})
	rr := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	if rr.Header().Get("X-Request-ID") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing middleware headers: %v", rr.Header())
	}

	view := decodeBody[ReportView](t, rr)
	if len(view.YearSummaries) != 2 {
		t.Fatalf("summaries = %+v", view.YearSummaries)
	}
	y2024 := view.YearSummaries[0]
	if y2024.TotalRevenue != "1800" || y2024.TotalRevenueFormatted != "R$ 1.800" || y2024.AttainmentFormatted != "100.0%" {
		t.Fatalf("2024 = %+v", y2024)
	}
	if view.Growth.InsufficientData || view.Growth.Formatted != "-33.3%" {
		t.Fatalf("growth = %+v", view.Growth)
	}
	if len(view.Pivot.Rows) != 2 || view.Pivot.Rows[1].Values[1].Value != nil {
		t.Fatalf("pivot = %+v", view.Pivot)
	}

	rr = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/report?years=2025&quarters=1", nil))
	view = decodeBody[ReportView](t, rr)
	if len(view.Years) != 1 || view.Years[0] != 2025 || !view.Growth.InsufficientData || view.Growth.GrowthPct != nil {
		t.Fatalf("filtered view = %+v", view)
	}
}

func TestGetReportRejectsBadSelections(t *testing.T) {
	srv := newTestServer(t, false, Config{})
	for _, q := range []string{"quarters=5", "years=abc", "policy=skip"} {
		rr := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/report?"+q, nil))
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("%s: status=%d", q, rr.Code)
		}
		if body := decodeBody[ErrorResponse](t, rr); body.Error != "invalid_selection" {
			t.Fatalf("%s: error = %+v", q, body)
		}
	}
}

func TestPostReport(t *testing.T) {
	srv := newTestServer(t, false, Config{MaxUploadBytes: 4096})

	t.Run("json table", func(t *testing.T) {
		body := `{"header":["Mês","Ano","Faturamento - Valor","Meta - Valor"],"rows":[["03-Mar",2024,1500.5,1000],["04-Abr",2024,"n/a",1000]]}`
		req := httptest.NewRequest(http.MethodPost, "/api/report?policy=drop", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := srv.do(t, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		view := decodeBody[ReportView](t, rr)
		if view.DroppedRows != 1 || view.YearSummaries[0].TotalRevenue != "1500.5" {
			t.Fatalf("view = %+v", view)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		body := `{"header":["Mês","Ano","Faturamento - Valor"],"rows":[["01-Jan",2024,1]]}`
		req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := srv.do(t, req)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status=%d", rr.Code)
		}
		if e := decodeBody[ErrorResponse](t, rr); e.Error != "column_not_found" || e.Field != core.FieldTarget {
			t.Fatalf("error = %+v", e)
		}
	})

	t.Run("malformed row aborts", func(t *testing.T) {
		body := `{"header":["Mês","Ano","Faturamento - Valor","Meta - Valor"],"rows":[["01-Jan",2024,1,1],["02-Fev","24",1,1]]}`
		req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := srv.do(t, req)
		e := decodeBody[ErrorResponse](t, rr)
		if rr.Code != http.StatusUnprocessableEntity || e.Error != "malformed_record" || e.Row == nil || *e.Row != 1 {
			t.Fatalf("status=%d error=%+v", rr.Code, e)
		}
	})

	t.Run("xlsx upload", func(t *testing.T) {
		data, err := file.EncodeXLSX(sampleTable(), "Plan1")
		if err != nil {
			t.Fatal(err)
		}
		srvBig := newTestServer(t, false, Config{})
		body, ct := multipartBody(t, "faturamento.xlsx", data)
		req := httptest.NewRequest(http.MethodPost, "/api/report", body)
		req.Header.Set("Content-Type", ct)
		rr := srvBig.do(t, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
		}
		if view := decodeBody[ReportView](t, rr); len(view.YearSummaries) != 2 {
			t.Fatalf("view = %+v", view)
		}
	})

	t.Run("unsupported media", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader("x"))
		req.Header.Set("Content-Type", "text/plain")
		if rr := srv.do(t, req); rr.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("status=%d", rr.Code)
		}

		body, ct := multipartBody(t, "notes.txt", []byte("hello"))
		req = httptest.NewRequest(http.MethodPost, "/api/report", body)
		req.Header.Set("Content-Type", ct)
		if rr := srv.do(t, req); rr.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("txt upload status=%d", rr.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"header":["Mês"],"rows":[["` + strings.Repeat("x", 8192) + `"]]}`
		req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(big))
		req.Header.Set("Content-Type", "application/json")
		if rr := srv.do(t, req); rr.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status=%d", rr.Code)
		}
	})
}

func TestUploadFlow(t *testing.T) {
	srv := newTestServer(t, true, Config{})

	body, ct := multipartBody(t, "faturamento.csv", []byte(sampleCSV))
	req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
	req.Header.Set("Content-Type", ct)
	rr := srv.do(t, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	res := decodeBody[services.UploadResult](t, rr)
	if res.Queued || res.Upload.ID == "" || res.Upload.RowCount != 3 {
		t.Fatalf("result = %+v", res)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/uploads/"+res.Upload.ID {
		t.Fatalf("location = %q", loc)
	}

	rr = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	list := decodeBody[map[string][]storage.Upload](t, rr)
	if len(list["uploads"]) != 1 || list["uploads"][0].Name != "faturamento.csv" {
		t.Fatalf("list = %+v", list)
	}

	rr = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads/"+res.Upload.ID+"/report?years=2024", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("report status=%d body=%s", rr.Code, rr.Body.String())
	}
	if view := decodeBody[ReportView](t, rr); len(view.YearSummaries) != 1 || view.YearSummaries[0].TotalRevenue != "1800" {
		t.Fatalf("view = %+v", view)
	}

	for _, path := range []string{"/api/uploads/missing", "/api/uploads/missing/report"} {
		rr = srv.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	rr = srv.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads?limit=0", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("limit=0 status=%d", rr.Code)
	}
}

func TestUploadsDisabled(t *testing.T) {
	srv := newTestServer(t, false, Config{})
	rr := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/uploads", nil))
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestRateLimitAppliesToPost(t *testing.T) {
	srv := newTestServer(t, false, Config{RateLimitPerMinute: 1})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/report", strings.NewReader(`{"header":["Mês","Ano","Faturamento - Valor","Meta - Valor"],"rows":[]}`))
		req.Header.Set("Content-Type", "application/json")
		return srv.do(t, req).Code
	}
	if code := post(); code != http.StatusOK {
		t.Fatalf("first post = %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second post = %d", code)
	}
	if rr := srv.do(t, httptest.NewRequest(http.MethodGet, "/api/report", nil)); rr.Code != http.StatusOK {
		t.Fatalf("GET should not be limited, got %d", rr.Code)
	}
}
