package services

import (
	"context"
	"fmt"

	"faturamento/internal/amqp"
	"faturamento/internal/cache"
	"faturamento/internal/core"
	"faturamento/internal/kpi"
	"faturamento/internal/log"
	"faturamento/internal/storage"
)

// UploadStore persists uploaded tables.
type UploadStore interface {
	SaveUpload(ctx context.Context, name, source string, t core.Table) (storage.Upload, error)
	GetUpload(ctx context.Context, id string) (storage.Upload, error)
	ListUploads(ctx context.Context, limit int) ([]storage.Upload, error)
	LoadTable(ctx context.Context, id string) (core.Table, error)
}

// JobPublisher enqueues report jobs.
type JobPublisher interface {
	PublishReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error
}

// UploadResult describes a stored upload and its queued job, if any.
type UploadResult struct {
	Upload        storage.Upload `json:"upload"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Queued        bool           `json:"queued"`
}

// UploadService stores uploads and hands report jobs to the workers.
type UploadService struct {
	store     UploadStore
	publisher JobPublisher
	reports   *ReportService
	cache     *cache.LRUCache[core.Report]
	logger    *log.Logger
}

// NewUploadService wires the store. publisher may be nil, in which case
// uploads are stored but no job is queued.
func NewUploadService(store UploadStore, publisher JobPublisher, reports *ReportService, c *cache.LRUCache[core.Report], logger *log.Logger) *UploadService {
	if logger == nil {
		logger = log.Discard()
	}
	return &UploadService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		cache:     c,
		logger:    logger.WithComponent(log.ComponentUpload),
	}
}

// Upload validates the header, stores t and queues a report job. A failed
// publish is logged and reported through Queued; the upload stays stored.
func (s *UploadService) Upload(ctx context.Context, name, source string, t core.Table, opts core.Options) (UploadResult, error) {
	opts = s.reports.Options(opts)
	if err := opts.Validate(); err != nil {
		return UploadResult{}, err
	}
	if _, err := kpi.ResolveColumns(t.Header, opts.Columns); err != nil {
		return UploadResult{}, err
	}

	up, err := s.store.SaveUpload(ctx, name, source, t)
	if err != nil {
		return UploadResult{}, fmt.Errorf("save upload: %w", err)
	}
	// The latest upload feeds the sqlite-backed report source.
	s.reports.Invalidate()

	res := UploadResult{Upload: up}
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping report job", log.FieldUploadID, up.ID)
		return res, nil
	}

	msg := amqp.NewReportRequestMessage(up.ID, opts)
	if err := s.publisher.PublishReportRequest(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish report job",
			log.FieldUploadID, up.ID,
			log.FieldError, err)
		return res, nil
	}
	res.CorrelationID = msg.CorrelationID
	res.Queued = true

	s.logger.InfoContext(ctx, "Upload stored",
		log.FieldUploadID, up.ID,
		log.FieldFileName, name,
		log.FieldRows, up.RowCount,
		log.FieldCorrelationID, msg.CorrelationID)
	return res, nil
}

func (s *UploadService) List(ctx context.Context, limit int) ([]storage.Upload, error) {
	return s.store.ListUploads(ctx, limit)
}

func (s *UploadService) Get(ctx context.Context, id string) (storage.Upload, error) {
	return s.store.GetUpload(ctx, id)
}

// ReportForUpload builds the report of a stored upload. Uploads never
// change once stored, so results are cached by upload id.
func (s *UploadService) ReportForUpload(ctx context.Context, id string, opts core.Options) (core.Report, error) {
	opts = s.reports.Options(opts)
	if err := opts.Validate(); err != nil {
		return core.Report{}, err
	}
	key := cache.KeyFor("upload:"+id, opts)
	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			return rep, nil
		}
	}

	t, err := s.store.LoadTable(ctx, id)
	if err != nil {
		return core.Report{}, err
	}
	rep, err := s.reports.BuildFromTable(ctx, "upload:"+id, t, opts)
	if err != nil {
		return core.Report{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, rep)
	}
	return rep, nil
}
