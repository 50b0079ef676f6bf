package storage

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"faturamento/internal/core"
	ports "faturamento/internal/sheets"

	_ "modernc.org/sqlite"
)

var ErrUploadNotFound = errors.New("upload not found")

// Upload describes a stored table without its rows.
type Upload struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	Header    []string  `json:"header"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.TableReader = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveUpload stores t under a new id in a single transaction.
func (r *SQLiteRepository) SaveUpload(ctx context.Context, name, source string, t core.Table) (Upload, error) {
	header, err := json.Marshal(t.Header)
	if err != nil {
		return Upload{}, fmt.Errorf("encode header: %w", err)
	}

	up := Upload{
		ID:        uuid.NewString(),
		Name:      name,
		Source:    source,
		Header:    append([]string(nil), t.Header...),
		RowCount:  len(t.Rows),
		CreatedAt: r.now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Upload{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateUpload(ctx, CreateUploadParams{
		ID:         up.ID,
		Name:       up.Name,
		Source:     up.Source,
		HeaderJSON: string(header),
		RowCount:   int64(up.RowCount),
		CreatedAt:  up.CreatedAt.Format(createdAtLayout),
	}); err != nil {
		return Upload{}, fmt.Errorf("create upload: %w", err)
	}

	for i, row := range t.Rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return Upload{}, fmt.Errorf("encode row %d: %w", i, err)
		}
		if err := q.CreateUploadRow(ctx, up.ID, int64(i), string(cells)); err != nil {
			return Upload{}, fmt.Errorf("create row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Upload{}, fmt.Errorf("commit upload: %w", err)
	}

	slog.InfoContext(ctx, "Upload saved to SQLite",
		"upload_id", up.ID,
		"name", up.Name,
		"rows", up.RowCount)
	return up, nil
}

func (r *SQLiteRepository) GetUpload(ctx context.Context, id string) (Upload, error) {
	row, err := r.queries.GetUpload(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, fmt.Errorf("%w: %s", ErrUploadNotFound, id)
	}
	if err != nil {
		return Upload{}, fmt.Errorf("get upload: %w", err)
	}
	return toUpload(row)
}

func (r *SQLiteRepository) LatestUpload(ctx context.Context) (Upload, error) {
	row, err := r.queries.LatestUpload(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Upload{}, ErrUploadNotFound
	}
	if err != nil {
		return Upload{}, fmt.Errorf("latest upload: %w", err)
	}
	return toUpload(row)
}

// ListUploads returns the newest uploads first.
func (r *SQLiteRepository) ListUploads(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListUploads(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]Upload, 0, len(rows))
	for _, row := range rows {
		up, err := toUpload(row)
		if err != nil {
			return nil, err
		}
		out = append(out, up)
	}
	return out, nil
}

// LoadTable rebuilds the stored table of an upload. Numbers come back as
// json.Number so no precision is lost on the way through the database.
func (r *SQLiteRepository) LoadTable(ctx context.Context, id string) (core.Table, error) {
	up, err := r.GetUpload(ctx, id)
	if err != nil {
		return core.Table{}, err
	}
	encoded, err := r.queries.GetUploadRows(ctx, id)
	if err != nil {
		return core.Table{}, fmt.Errorf("get upload rows: %w", err)
	}

	t := core.Table{Header: up.Header, Rows: make([][]any, 0, len(encoded))}
	for i, cells := range encoded {
		var row []any
		dec := json.NewDecoder(bytes.NewReader([]byte(cells)))
		dec.UseNumber()
		if err := dec.Decode(&row); err != nil {
			return core.Table{}, fmt.Errorf("decode row %d of %s: %w", i, id, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadTable returns the table of the most recent upload.
func (r *SQLiteRepository) ReadTable(ctx context.Context) (core.Table, error) {
	up, err := r.LatestUpload(ctx)
	if err != nil {
		return core.Table{}, err
	}
	return r.LoadTable(ctx, up.ID)
}

func (r *SQLiteRepository) DeleteUpload(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteUploadRows(ctx, id); err != nil {
		return fmt.Errorf("delete upload rows: %w", err)
	}
	n, err := q.DeleteUpload(ctx, id)
	if err != nil {
		return fmt.Errorf("delete upload: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUploadNotFound, id)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	slog.InfoContext(ctx, "Upload deleted", "upload_id", id)
	return nil
}

// createdAtLayout has a fixed-width fraction so created_at sorts as text.
// RFC3339Nano trims trailing zeros, which puts "...:00Z" after "...:00.5Z".
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

func toUpload(row uploadRow) (Upload, error) {
	var header []string
	if err := json.Unmarshal([]byte(row.HeaderJSON), &header); err != nil {
		return Upload{}, fmt.Errorf("decode header of %s: %w", row.ID, err)
	}
	created, err := time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err != nil {
		return Upload{}, fmt.Errorf("parse created_at of %s: %w", row.ID, err)
	}
	return Upload{
		ID:        row.ID,
		Name:      row.Name,
		Source:    row.Source,
		Header:    header,
		RowCount:  int(row.RowCount),
		CreatedAt: created,
	}, nil
}
