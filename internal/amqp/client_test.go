package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"faturamento/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection error", errors.New("connection refused"), true},
		{"closed connection error", errors.New("connection closed"), true},
		{"EOF error", errors.New("unexpected EOF"), true},
		{"broken pipe error", errors.New("broken pipe"), true},
		{"closed network connection error", errors.New("use of closed network connection"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("Circuit breaker should be open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("Circuit should transition to half-open after timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("State should be StateHalfOpen after timeout")
	}

	client.recordSuccess()
	if atomic.LoadInt32(&client.state) != StateClosed || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue", resultQueue: "test_results"}
	msg := NewReportRequestMessage("upload-1", core.Options{})

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishReportRequest(context.Background(), msg)
		if !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		client.recordSuccess()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishReportRequest(ctx, msg); err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("publish without channel counts a failure", func(t *testing.T) {
		client.recordSuccess()
		if err := client.PublishReportReady(context.Background(), FailedMessage(msg, errors.New("x"))); err == nil {
			t.Fatal("expected error without channel")
		}
		if atomic.LoadInt64(&client.failureCount) != 1 {
			t.Fatalf("failure count = %d", client.failureCount)
		}
	})
}

func TestDispositionFor(t *testing.T) {
	valid, _ := NewReportRequestMessage("u1", core.Options{Policy: core.PolicyDrop}).ToJSON()
	noUpload := []byte(`{"correlation_id":"c"}`)
	badPolicy := []byte(`{"upload_id":"u1","policy":"ignore"}`)

	ok := func(context.Context, *ReportRequestMessage) error { return nil }
	transient := func(context.Context, *ReportRequestMessage) error { return errors.New("db locked") }
	permanent := func(context.Context, *ReportRequestMessage) error { return Permanent(errors.New("gone")) }

	tests := []struct {
		name    string
		body    []byte
		handler func(context.Context, *ReportRequestMessage) error
		want    disposition
	}{
		{"valid", valid, ok, ack},
		{"garbage", []byte("{not json"), ok, reject},
		{"missing upload", noUpload, ok, reject},
		{"bad policy", badPolicy, ok, reject},
		{"transient failure", valid, transient, requeue},
		{"permanent failure", valid, permanent, reject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dispositionFor(context.Background(), tt.body, tt.handler); got != tt.want {
				t.Fatalf("disposition = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReportRequestMessage(t *testing.T) {
	msg := NewReportRequestMessage("u1", core.Options{Years: []int{2024}, Quarters: []int{1, 2}, Policy: core.PolicyDrop})
	if msg.CorrelationID == "" || msg.Timestamp.IsZero() {
		t.Fatalf("message not stamped: %+v", msg)
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ReportRequestMessageFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := parsed.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Policy != core.PolicyDrop || len(opts.Years) != 1 || len(opts.Quarters) != 2 {
		t.Fatalf("options = %+v", opts)
	}

	// No selection on the wire means "everything present".
	all, _ := (&ReportRequestMessage{UploadID: "u"}).Options()
	if all.Years != nil || all.Quarters != nil || all.Policy != core.PolicyAbort {
		t.Fatalf("empty selection = %+v", all)
	}

	bad := &ReportRequestMessage{UploadID: "u", Quarters: []int{7}}
	if err := bad.Validate(); !errors.Is(err, core.ErrInvalidQuarter) {
		t.Fatalf("expected ErrInvalidQuarter, got %v", err)
	}
}

func TestReportRequestKeepsSelectionAndColumns(t *testing.T) {
	cols := core.ColumnNames{PeriodMarker: "periodo", Year: "exercicio", Revenue: "receita", Target: "meta"}
	msg := NewReportRequestMessage("u1", core.Options{Columns: cols, Years: []int{}, Quarters: nil})

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"years":[]`) || !strings.Contains(string(data), `"quarters":null`) {
		t.Fatalf("selection not on the wire: %s", data)
	}

	parsed, err := ReportRequestMessageFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := parsed.Options()
	if err != nil {
		t.Fatal(err)
	}
	if opts.Years == nil || len(opts.Years) != 0 {
		t.Fatalf("empty year selection became %#v", opts.Years)
	}
	if opts.Quarters != nil {
		t.Fatalf("absent quarter selection became %#v", opts.Quarters)
	}
	if opts.Columns != cols {
		t.Fatalf("columns = %+v, want %+v", opts.Columns, cols)
	}
}

func TestReportReadyMessages(t *testing.T) {
	req := &ReportRequestMessage{CorrelationID: "c1", UploadID: "u1"}
	rep := core.Report{
		YearSummaries: []core.YearSummary{{Year: 2024}, {Year: 2025}},
		Growth:        &core.GrowthMetric{YearCurrent: 2025, YearPrevious: 2024, GrowthPct: decimal.RequireFromString("12.5")},
		DroppedRows:   1,
	}

	done := CompletedMessage(req, rep)
	data, _ := done.ToJSON()
	if !strings.Contains(string(data), `"growth_pct":"12.5"`) {
		t.Fatalf("growth not encoded as decimal string: %s", data)
	}
	parsed, err := ReportReadyMessageFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Status != StatusCompleted || parsed.DroppedRows != 1 || len(parsed.Years) != 2 || parsed.Growth == nil {
		t.Fatalf("parsed = %+v", parsed)
	}

	failed := FailedMessage(req, errors.New("column not found"))
	if failed.Status != StatusFailed || failed.Error != "column not found" || failed.CorrelationID != "c1" {
		t.Fatalf("failed = %+v", failed)
	}
}
