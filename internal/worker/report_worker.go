package worker

import (
	"context"
	"errors"
	"fmt"

	"faturamento/internal/amqp"
	"faturamento/internal/core"
	"faturamento/internal/log"
	"faturamento/internal/storage"
)

// ReportBuilder computes the report of a stored upload.
type ReportBuilder interface {
	ReportForUpload(ctx context.Context, id string, opts core.Options) (core.Report, error)
}

// ResultPublisher sends finished jobs to the result queue.
type ResultPublisher interface {
	PublishReportReady(ctx context.Context, msg *amqp.ReportReadyMessage) error
}

// ReportWorker handles report jobs consumed from AMQP.
type ReportWorker struct {
	reports   ReportBuilder
	publisher ResultPublisher
	logger    *log.Logger
}

func NewReportWorker(reports ReportBuilder, publisher ResultPublisher, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		reports:   reports,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleReportRequest builds the requested report and publishes the result.
//
// Errors that would repeat on every retry (bad options, missing upload, bad
// header or rows) are published as a failed result and the message is
// acknowledged. Anything else is returned so the message is requeued.
func (w *ReportWorker) HandleReportRequest(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	w.logger.InfoContext(ctx, "Processing report request",
		log.FieldCorrelationID, msg.CorrelationID,
		log.FieldUploadID, msg.UploadID)

	opts, err := msg.Options()
	if err != nil {
		return w.fail(ctx, msg, err)
	}

	rep, err := w.reports.ReportForUpload(ctx, msg.UploadID, opts)
	if err != nil {
		if deterministic(err) {
			return w.fail(ctx, msg, err)
		}
		return fmt.Errorf("build report for upload %s: %w", msg.UploadID, err)
	}

	if err := w.publisher.PublishReportReady(ctx, amqp.CompletedMessage(msg, rep)); err != nil {
		return fmt.Errorf("publish report result: %w", err)
	}

	w.logger.InfoContext(ctx, "Report completed",
		log.FieldCorrelationID, msg.CorrelationID,
		log.FieldUploadID, msg.UploadID,
		log.FieldReportYears, rep.Years(),
		log.FieldDroppedRows, rep.DroppedRows)
	return nil
}

func (w *ReportWorker) fail(ctx context.Context, msg *amqp.ReportRequestMessage, cause error) error {
	w.logger.WarnContext(ctx, "Report request failed",
		log.FieldCorrelationID, msg.CorrelationID,
		log.FieldUploadID, msg.UploadID,
		log.FieldError, cause)

	if err := w.publisher.PublishReportReady(ctx, amqp.FailedMessage(msg, cause)); err != nil {
		return fmt.Errorf("publish failed result: %w", err)
	}
	return nil
}

func deterministic(err error) bool {
	for _, target := range []error{
		core.ErrColumnNotFound,
		core.ErrMalformedRecord,
		core.ErrInvalidQuarter,
		core.ErrInvalidPolicy,
		storage.ErrUploadNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
