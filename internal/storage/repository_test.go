package storage

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"faturamento/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "faturamento.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTable() core.Table {
	return core.Table{
		Header: []string{"Mês", "Ano", "Faturamento - Valor", "Meta - Valor"},
		Rows: [][]any{
			{"01-Jan", 2024, 1000.25, "900"},
			{"02-Fev", "2024", nil, "1,000"},
		},
	}
}

func TestSaveAndLoadUpload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	up, err := repo.SaveUpload(ctx, "jan.xlsx", "upload", sampleTable())
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if up.ID == "" || up.RowCount != 2 {
		t.Fatalf("unexpected upload: %+v", up)
	}

	got, err := repo.GetUpload(ctx, up.ID)
	if err != nil {
		t.Fatalf("GetUpload: %v", err)
	}
	if got.Name != "jan.xlsx" || got.Source != "upload" || len(got.Header) != 4 || !got.CreatedAt.Equal(up.CreatedAt) {
		t.Fatalf("GetUpload = %+v, want %+v", got, up)
	}

	tbl, err := repo.LoadTable(ctx, up.ID)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %v", tbl.Rows)
	}
	if n, ok := tbl.Rows[0][2].(json.Number); !ok || n.String() != "1000.25" {
		t.Fatalf("numeric cell = %#v", tbl.Rows[0][2])
	}
	if tbl.Rows[1][2] != nil || tbl.Rows[1][3] != "1,000" {
		t.Fatalf("second row = %#v", tbl.Rows[1])
	}
}

func TestLatestAndListUploads(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.ReadTable(ctx); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("empty store: expected ErrUploadNotFound, got %v", err)
	}

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return at }
		tbl := sampleTable()
		tbl.Rows = tbl.Rows[:1+i%2]
		up, err := repo.SaveUpload(ctx, "file", "upload", tbl)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, up.ID)
	}

	latest, err := repo.LatestUpload(ctx)
	if err != nil || latest.ID != ids[2] {
		t.Fatalf("LatestUpload = %+v, %v; want %s", latest, err, ids[2])
	}

	list, err := repo.ListUploads(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != ids[2] || list[1].ID != ids[1] {
		t.Fatalf("ListUploads order wrong: %+v", list)
	}

	tbl, err := repo.ReadTable(ctx)
	if err != nil || len(tbl.Rows) != 1 {
		t.Fatalf("ReadTable = %+v, %v", tbl, err)
	}
}

func TestLatestUploadWithinOneSecond(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for _, at := range []time.Time{base, base.Add(500 * time.Millisecond), base.Add(time.Second)} {
		repo.now = func() time.Time { return at }
		up, err := repo.SaveUpload(ctx, "file", "upload", sampleTable())
		if err != nil {
			t.Fatal(err)
		}
		if !up.CreatedAt.Equal(at) {
			t.Fatalf("created_at = %v, want %v", up.CreatedAt, at)
		}
		ids = append(ids, up.ID)
	}

	// Save again at the whole second so the latest row has no fraction.
	repo.now = func() time.Time { return base.Add(2 * time.Second) }
	last, err := repo.SaveUpload(ctx, "file", "upload", sampleTable())
	if err != nil {
		t.Fatal(err)
	}
	ids = append(ids, last.ID)

	latest, err := repo.LatestUpload(ctx)
	if err != nil || latest.ID != ids[3] {
		t.Fatalf("LatestUpload = %+v, %v; want %s", latest, err, ids[3])
	}

	list, err := repo.ListUploads(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, up := range list {
		if want := ids[len(ids)-1-i]; up.ID != want {
			t.Fatalf("ListUploads[%d] = %s, want %s", i, up.ID, want)
		}
	}
	got, err := repo.GetUpload(ctx, ids[1])
	if err != nil || !got.CreatedAt.Equal(base.Add(500*time.Millisecond)) {
		t.Fatalf("GetUpload created_at = %v, %v", got.CreatedAt, err)
	}
}

func TestGetAndDeleteMissingUpload(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.GetUpload(ctx, "nope"); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}
	if err := repo.DeleteUpload(ctx, "nope"); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("expected ErrUploadNotFound, got %v", err)
	}

	up, err := repo.SaveUpload(ctx, "x", "cli", sampleTable())
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.DeleteUpload(ctx, up.ID); err != nil {
		t.Fatalf("DeleteUpload: %v", err)
	}
	if _, err := repo.LoadTable(ctx, up.ID); !errors.Is(err, ErrUploadNotFound) {
		t.Fatalf("expected deleted upload to be gone, got %v", err)
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}
