package amqp

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"faturamento/internal/core"
)

// Report job statuses carried by ReportReadyMessage.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ReportRequestMessage asks a worker to build the report of a stored upload.
// The worker loads the rows itself; only the options travel. Years and
// Quarters encode nil as null and an empty selection as [], so the worker
// sees the same selection the caller made.
type ReportRequestMessage struct {
	CorrelationID string           `json:"correlation_id"`
	UploadID      string           `json:"upload_id"`
	Columns       core.ColumnNames `json:"columns"`
	Years         []int            `json:"years"`
	Quarters      []int            `json:"quarters"`
	Policy        string           `json:"policy,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewReportRequestMessage stamps a fresh correlation id.
func NewReportRequestMessage(uploadID string, opts core.Options) *ReportRequestMessage {
	return &ReportRequestMessage{
		CorrelationID: uuid.NewString(),
		UploadID:      uploadID,
		Columns:       opts.Columns,
		Years:         opts.Years,
		Quarters:      opts.Quarters,
		Policy:        string(opts.Policy),
		Timestamp:     time.Now(),
	}
}

func (m *ReportRequestMessage) Validate() error {
	if strings.TrimSpace(m.UploadID) == "" {
		return errors.New("missing upload_id")
	}
	_, err := m.Options()
	return err
}

// Options converts the message selection back into report options.
func (m *ReportRequestMessage) Options() (core.Options, error) {
	policy, err := core.ParsePolicy(m.Policy)
	if err != nil {
		return core.Options{}, err
	}
	opts := core.Options{Columns: m.Columns, Years: m.Years, Quarters: m.Quarters, Policy: policy}
	return opts, opts.Validate()
}

func (m *ReportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportRequestMessageFromJSON(data []byte) (*ReportRequestMessage, error) {
	var msg ReportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportReadyMessage reports the outcome of a ReportRequestMessage.
type ReportReadyMessage struct {
	CorrelationID string             `json:"correlation_id"`
	UploadID      string             `json:"upload_id"`
	Status        string             `json:"status"`
	Error         string             `json:"error,omitempty"`
	DroppedRows   int                `json:"dropped_rows"`
	Years         []int              `json:"years,omitempty"`
	Growth        *core.GrowthMetric `json:"growth,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// CompletedMessage summarizes a successful report for req.
func CompletedMessage(req *ReportRequestMessage, rep core.Report) *ReportReadyMessage {
	return &ReportReadyMessage{
		CorrelationID: req.CorrelationID,
		UploadID:      req.UploadID,
		Status:        StatusCompleted,
		DroppedRows:   rep.DroppedRows,
		Years:         rep.Years(),
		Growth:        rep.Growth,
		Timestamp:     time.Now(),
	}
}

// FailedMessage reports a request that cannot succeed on retry.
func FailedMessage(req *ReportRequestMessage, err error) *ReportReadyMessage {
	return &ReportReadyMessage{
		CorrelationID: req.CorrelationID,
		UploadID:      req.UploadID,
		Status:        StatusFailed,
		Error:         err.Error(),
		Timestamp:     time.Now(),
	}
}

func (m *ReportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportReadyMessageFromJSON(data []byte) (*ReportReadyMessage, error) {
	var msg ReportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
