package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"faturamento/internal/config"
	"faturamento/internal/core"
	"faturamento/internal/services"
)

const seedCSV = "Mês,Ano,Faturamento - Valor,Meta - Valor\n01-Jan,2024,100,90\n01-Jan,2025,150,100\n"

func buildReport(t *testing.T, res *BackendResult) {
	t.Helper()
	svc := services.NewReportService(services.ReportDefaults{}, nil, nil, res.Sources...)
	rep, err := svc.Build(context.Background(), core.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(rep.YearSummaries) != 2 {
		t.Fatalf("summaries = %+v", rep.YearSummaries)
	}
}

func TestMemoryAndFileBackends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faturamento.csv")
	if err := os.WriteFile(path, []byte(seedCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFactory(nil)

	mem, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	buildReport(t, mem)

	fb, err := f.CreateBackend(context.Background(), Config{Type: FileBackend, DataFile: path})
	if err != nil {
		t.Fatal(err)
	}
	if fb.Sources[0].Name != "file:faturamento.csv" {
		t.Fatalf("source name = %q", fb.Sources[0].Name)
	}
	buildReport(t, fb)
}

func TestSQLiteBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "faturamento.db"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	}()

	if res.Store == nil || res.Publisher != nil || len(res.Ready) != 1 {
		t.Fatalf("result = %+v", res)
	}
	if err := res.Ready[0](context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func TestCreateBackendValidates(t *testing.T) {
	f := NewFactory(nil)
	for _, cfg := range []Config{
		{Type: "bogus"},
		{Type: SheetsBackend},
		{Type: FileBackend},
		{Type: SQLiteBackend},
	} {
		if _, err := f.CreateBackend(context.Background(), cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{DataBackend: "file", DataFile: "x.xlsx", DataSheet: "Plan1", DataDir: "data"}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != FileBackend || cfg.DataFile != "x.xlsx" || cfg.DataSheet != "Plan1" {
		t.Fatalf("cfg = %+v", cfg)
	}

	app.DataBackend = "postgres"
	if _, err := FromAppConfig(app); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
