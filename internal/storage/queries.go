package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type uploadRow struct {
	ID         string
	Name       string
	Source     string
	HeaderJSON string
	RowCount   int64
	CreatedAt  string
}

const createUpload = `INSERT INTO uploads (id, name, source, header_json, row_count, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateUploadParams struct {
	ID         string
	Name       string
	Source     string
	HeaderJSON string
	RowCount   int64
	CreatedAt  string
}

func (q *Queries) CreateUpload(ctx context.Context, arg CreateUploadParams) error {
	_, err := q.db.ExecContext(ctx, createUpload,
		arg.ID, arg.Name, arg.Source, arg.HeaderJSON, arg.RowCount, arg.CreatedAt)
	return err
}

const createUploadRow = `INSERT INTO upload_rows (upload_id, row_index, cells_json) VALUES (?, ?, ?)`

func (q *Queries) CreateUploadRow(ctx context.Context, uploadID string, rowIndex int64, cellsJSON string) error {
	_, err := q.db.ExecContext(ctx, createUploadRow, uploadID, rowIndex, cellsJSON)
	return err
}

const uploadColumns = `id, name, source, header_json, row_count, created_at`

const getUpload = `SELECT ` + uploadColumns + ` FROM uploads WHERE id = ?`

func (q *Queries) GetUpload(ctx context.Context, id string) (uploadRow, error) {
	var u uploadRow
	err := q.db.QueryRowContext(ctx, getUpload, id).Scan(
		&u.ID, &u.Name, &u.Source, &u.HeaderJSON, &u.RowCount, &u.CreatedAt)
	return u, err
}

const latestUpload = `SELECT ` + uploadColumns + ` FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT 1`

func (q *Queries) LatestUpload(ctx context.Context) (uploadRow, error) {
	var u uploadRow
	err := q.db.QueryRowContext(ctx, latestUpload).Scan(
		&u.ID, &u.Name, &u.Source, &u.HeaderJSON, &u.RowCount, &u.CreatedAt)
	return u, err
}

const listUploads = `SELECT ` + uploadColumns + ` FROM uploads ORDER BY created_at DESC, rowid DESC LIMIT ?`

func (q *Queries) ListUploads(ctx context.Context, limit int64) ([]uploadRow, error) {
	rows, err := q.db.QueryContext(ctx, listUploads, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []uploadRow
	for rows.Next() {
		var u uploadRow
		if err := rows.Scan(&u.ID, &u.Name, &u.Source, &u.HeaderJSON, &u.RowCount, &u.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getUploadRows = `SELECT cells_json FROM upload_rows WHERE upload_id = ? ORDER BY row_index`

func (q *Queries) GetUploadRows(ctx context.Context, uploadID string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getUploadRows, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var cells string
		if err := rows.Scan(&cells); err != nil {
			return nil, err
		}
		items = append(items, cells)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteUpload = `DELETE FROM uploads WHERE id = ?`

func (q *Queries) DeleteUpload(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteUpload, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteUploadRows = `DELETE FROM upload_rows WHERE upload_id = ?`

func (q *Queries) DeleteUploadRows(ctx context.Context, uploadID string) error {
	_, err := q.db.ExecContext(ctx, deleteUploadRows, uploadID)
	return err
}
