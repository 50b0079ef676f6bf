// Package http serves revenue reports over a JSON API.
//
// This file turns query strings and request bodies into report options and
// tables.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"faturamento/internal/core"
	"faturamento/internal/sheets/file"
)

var (
	errInvalidSelection = errors.New("invalid selection")
	errBadRequest       = errors.New("bad request")
	errUnsupportedMedia = errors.New("unsupported media type")
)

// parseIntList reads a comma-separated list of integers. ok is false when
// the parameter is absent; a present but blank parameter is an explicit
// empty selection.
func parseIntList(query url.Values, key string) (values []int, ok bool, err error) {
	if !query.Has(key) {
		return nil, false, nil
	}
	values = []int{}
	for _, part := range strings.Split(query.Get(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %s=%q", errInvalidSelection, key, part)
		}
		values = append(values, n)
	}
	return values, true, nil
}

// ParseReportOptions reads years, quarters, policy and column overrides
// from the query. Absent selections mean "everything present"; a blank
// policy leaves the server default in place.
func ParseReportOptions(query url.Values) (core.Options, error) {
	var opts core.Options

	years, ok, err := parseIntList(query, "years")
	if err != nil {
		return core.Options{}, err
	}
	if ok {
		opts.Years = years
	}

	quarters, ok, err := parseIntList(query, "quarters")
	if err != nil {
		return core.Options{}, err
	}
	if ok {
		opts.Quarters = quarters
	}

	if p := strings.TrimSpace(query.Get("policy")); p != "" {
		policy, err := core.ParsePolicy(p)
		if err != nil {
			return core.Options{}, err
		}
		opts.Policy = policy
	}

	opts.Columns = core.ColumnNames{
		PeriodMarker: strings.TrimSpace(query.Get("period_column")),
		Year:         strings.TrimSpace(query.Get("year_column")),
		Revenue:      strings.TrimSpace(query.Get("revenue_column")),
		Target:       strings.TrimSpace(query.Get("target_column")),
	}
	return opts, nil
}

// tableRequest is the JSON form of an ad-hoc table.
type tableRequest struct {
	Name   string   `json:"name"`
	Header []string `json:"header"`
	Rows   [][]any  `json:"rows"`
}

// readTable extracts a table from a multipart "file" field (xlsx or csv,
// optional "sheet" field) or from a JSON body. The body is capped at
// maxBytes.
func readTable(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, core.Table, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return "", core.Table{}, fmt.Errorf("%w: missing or invalid Content-Type", errUnsupportedMedia)
	}

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return "", core.Table{}, bodyError(err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return "", core.Table{}, fmt.Errorf("%w: form field \"file\" is required", errBadRequest)
		}
		defer f.Close()

		t, err := file.Decode(hdr.Filename, f, strings.TrimSpace(r.FormValue("sheet")))
		if err != nil {
			if errors.Is(err, file.ErrUnsupportedFormat) {
				return "", core.Table{}, fmt.Errorf("%w: %v", errUnsupportedMedia, err)
			}
			return "", core.Table{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return hdr.Filename, t, nil

	case "application/json":
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var req tableRequest
		if err := dec.Decode(&req); err != nil {
			return "", core.Table{}, bodyError(err)
		}
		if len(req.Header) == 0 {
			return "", core.Table{}, fmt.Errorf("%w: header is required", errBadRequest)
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			name = "request.json"
		}
		return name, core.Table{Header: req.Header, Rows: req.Rows}, nil

	default:
		return "", core.Table{}, fmt.Errorf("%w: %s", errUnsupportedMedia, mediaType)
	}
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", errBadRequest, err)
}
