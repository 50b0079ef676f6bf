package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"faturamento/internal/core"
	"faturamento/internal/log"
	"faturamento/internal/storage"
)

// ReportView is the JSON rendering of a report. Raw amounts are decimal
// strings; *_formatted fields are display strings.
type ReportView struct {
	Years          []int                       `json:"years"`
	YearSummaries  []YearSummaryView           `json:"year_summaries"`
	MonthYearCells []MonthYearCellView         `json:"month_year_cells"`
	Pivot          PivotView                   `json:"pivot"`
	Growth         GrowthView                  `json:"growth"`
	DroppedRows    int                         `json:"dropped_rows"`
	Issues         []core.MalformedRecordError `json:"issues,omitempty"`
}

type YearSummaryView struct {
	Year                   int    `json:"year"`
	TotalRevenue           string `json:"total_revenue"`
	TotalRevenueFormatted  string `json:"total_revenue_formatted"`
	TotalRevenueCompact    string `json:"total_revenue_compact"`
	TotalTarget            string `json:"total_target"`
	TotalTargetFormatted   string `json:"total_target_formatted"`
	AttainmentRatio        string `json:"attainment_ratio"`
	AttainmentFormatted    string `json:"attainment_formatted"`
	AttainmentInsufficient bool   `json:"attainment_insufficient_data"`
}

type MonthYearCellView struct {
	PeriodLabel string `json:"period_label"`
	MonthNumber int    `json:"month_number"`
	Year        int    `json:"year"`
	RevenueSum  string `json:"revenue_sum"`
	Formatted   string `json:"formatted"`
}

type PivotView struct {
	Years []int          `json:"years"`
	Rows  []PivotRowView `json:"rows"`
}

type PivotRowView struct {
	PeriodLabel string          `json:"period_label"`
	MonthNumber int             `json:"month_number"`
	Values      []PivotCellView `json:"values"`
}

// PivotCellView has a nil Value when the period/year combination is absent.
type PivotCellView struct {
	Value     *string `json:"value"`
	Formatted string  `json:"formatted"`
	Compact   string  `json:"compact"`
}

type GrowthView struct {
	InsufficientData bool    `json:"insufficient_data"`
	YearCurrent      int     `json:"year_current,omitempty"`
	YearPrevious     int     `json:"year_previous,omitempty"`
	GrowthPct        *string `json:"growth_pct"`
	Formatted        string  `json:"formatted"`
}

// NewReportView renders rep for clients.
func NewReportView(rep core.Report) ReportView {
	v := ReportView{
		Years:          rep.Years(),
		YearSummaries:  make([]YearSummaryView, 0, len(rep.YearSummaries)),
		MonthYearCells: make([]MonthYearCellView, 0, len(rep.MonthYearCells)),
		Pivot: PivotView{
			Years: append([]int{}, rep.PivotTable.Years...),
			Rows:  make([]PivotRowView, 0, len(rep.PivotTable.Rows)),
		},
		Growth:      growthView(rep.Growth),
		DroppedRows: rep.DroppedRows,
		Issues:      rep.Issues,
	}

	for _, s := range rep.YearSummaries {
		v.YearSummaries = append(v.YearSummaries, YearSummaryView{
			Year:                   s.Year,
			TotalRevenue:           s.TotalRevenue.String(),
			TotalRevenueFormatted:  core.FormatCurrency(s.TotalRevenue),
			TotalRevenueCompact:    core.FormatCompact(s.TotalRevenue),
			TotalTarget:            s.TotalTarget.String(),
			TotalTargetFormatted:   core.FormatCurrency(s.TotalTarget),
			AttainmentRatio:        s.AttainmentRatio.String(),
			AttainmentFormatted:    core.FormatRatio(s.AttainmentRatio),
			AttainmentInsufficient: !s.TotalTarget.IsPositive(),
		})
	}

	for _, c := range rep.MonthYearCells {
		v.MonthYearCells = append(v.MonthYearCells, MonthYearCellView{
			PeriodLabel: c.PeriodLabel,
			MonthNumber: c.MonthNumber,
			Year:        c.Year,
			RevenueSum:  c.RevenueSum.String(),
			Formatted:   core.FormatCurrency(c.RevenueSum),
		})
	}

	for _, row := range rep.PivotTable.Rows {
		rv := PivotRowView{
			PeriodLabel: row.PeriodLabel,
			MonthNumber: row.MonthNumber,
			Values:      make([]PivotCellView, len(row.Values)),
		}
		for i, val := range row.Values {
			rv.Values[i] = pivotCell(val)
		}
		v.Pivot.Rows = append(v.Pivot.Rows, rv)
	}
	return v
}

func pivotCell(v decimal.NullDecimal) PivotCellView {
	if !v.Valid {
		return PivotCellView{Formatted: "-", Compact: "-"}
	}
	s := v.Decimal.String()
	return PivotCellView{
		Value:     &s,
		Formatted: core.FormatCurrency(v.Decimal),
		Compact:   core.FormatCompact(v.Decimal),
	}
}

func growthView(g *core.GrowthMetric) GrowthView {
	if g == nil {
		return GrowthView{InsufficientData: true, Formatted: "insufficient data"}
	}
	pct := g.GrowthPct.String()
	return GrowthView{
		YearCurrent:  g.YearCurrent,
		YearPrevious: g.YearPrevious,
		GrowthPct:    &pct,
		Formatted:    core.FormatSignedPercent(g.GrowthPct, 1),
	}
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
	Row    *int   `json:"row,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps service errors onto HTTP status codes and a short code
// clients can switch on.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "request_too_large"
	case errors.Is(err, errUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, core.ErrColumnNotFound):
		return http.StatusUnprocessableEntity, "column_not_found"
	case errors.Is(err, core.ErrMalformedRecord):
		return http.StatusUnprocessableEntity, "malformed_record"
	case errors.Is(err, errInvalidSelection),
		errors.Is(err, core.ErrInvalidQuarter),
		errors.Is(err, core.ErrInvalidPolicy):
		return http.StatusUnprocessableEntity, "invalid_selection"
	case errors.Is(err, storage.ErrUploadNotFound):
		return http.StatusNotFound, "upload_not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeError renders err. Internal errors are logged and their detail is
// withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := ErrorResponse{Error: code, Detail: err.Error()}

	var cnf *core.ColumnNotFoundError
	var mre *core.MalformedRecordError
	switch {
	case errors.As(err, &cnf):
		body.Field = cnf.Field
	case errors.As(err, &mre):
		body.Field = mre.Field
		row := mre.Row
		body.Row = &row
	}

	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, r.URL.Path, nil)
		body.Detail = ""
	}
	writeJSON(w, status, body)
}
