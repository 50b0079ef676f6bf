// Package backend builds the report sources selected by DATA_BACKEND.
package backend

import (
	"context"

	"faturamento/internal/amqp"
	"faturamento/internal/services"
	"faturamento/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// ReadinessCheck reports whether a backend dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// BackendResult holds everything the binaries wire from a backend.
type BackendResult struct {
	Type    BackendType
	Sources []services.Source
	// Store and Publisher are set for the sqlite backend only; Publisher
	// stays nil when AMQP is not configured or unreachable.
	Store     *storage.SQLiteRepository
	Publisher *amqp.Client
	Ready     []ReadinessCheck
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath    string
	AMQPURL         string
	AMQPExchange    string
	AMQPQueue       string
	AMQPResultQueue string

	// Google Sheets specific; credentials come from the environment
	GoogleSpreadsheetID string

	// Memory backend specific
	DataDirectory string

	// File backend specific
	DataFile  string
	DataSheet string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, FileBackend:
		return true
	default:
		return false
	}
}
