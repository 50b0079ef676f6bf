package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"faturamento/internal/core"
	apphttp "faturamento/internal/http"
	"faturamento/internal/sheets/file"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	data, err := file.EncodeXLSX(core.Table{
		Header: []string{"Mês", "Ano", "Faturamento - Valor", "Meta - Valor"},
		Rows: [][]any{
			{"01-Jan", 2024, 1000, 900},
			{"04-Abr", 2024, 800, 900},
			{"01-Jan", 2025, 1200, 1000},
		},
	}, "Plan1")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "faturamento.xlsx")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPrintsReport(t *testing.T) {
	path := writeWorkbook(t)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-file", path, "-sheet", "Plan1", "-quarters", "1"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, stderr.String())
	}

	var view apphttp.ReportView
	if err := json.Unmarshal(stdout.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, stdout.String())
	}
	if len(view.YearSummaries) != 2 {
		t.Fatalf("summaries = %+v", view.YearSummaries)
	}
	if view.YearSummaries[0].TotalRevenue != "1000" {
		t.Fatalf("2024 Q1 revenue = %q", view.YearSummaries[0].TotalRevenue)
	}
	if view.Growth.InsufficientData || view.Growth.GrowthPct == nil || *view.Growth.GrowthPct != "20" {
		t.Fatalf("growth = %+v", view.Growth)
	}
}

func TestRunUsageErrors(t *testing.T) {
	path := writeWorkbook(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"missing file flag", nil, 2},
		{"bad years", []string{"-file", path, "-years", "x"}, 2},
		{"bad policy", []string{"-file", path, "-policy", "skip"}, 2},
		{"unknown flag", []string{"-nope"}, 2},
		{"missing file", []string{"-file", filepath.Join(t.TempDir(), "none.xlsx")}, 1},
		{"invalid quarter", []string{"-file", path, "-quarters", "5"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := run(context.Background(), tt.args, &stdout, &stderr); code != tt.code {
				t.Fatalf("exit = %d, want %d (%s)", code, tt.code, stderr.String())
			}
			if stdout.Len() != 0 || stderr.Len() == 0 {
				t.Fatalf("stdout = %q, stderr = %q", stdout.String(), stderr.String())
			}
		})
	}
}
