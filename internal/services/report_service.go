package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"faturamento/internal/cache"
	"faturamento/internal/core"
	"faturamento/internal/kpi"
	"faturamento/internal/log"
	"faturamento/internal/sheets"
)

// Source is a named table reader. The name is used in cache keys and logs.
type Source struct {
	Name   string
	Reader sheets.TableReader
}

// ReportDefaults fill options the caller left blank.
type ReportDefaults struct {
	Columns core.ColumnNames
	Policy  core.MalformedRowPolicy
}

// ReportService builds reports from the configured sources.
type ReportService struct {
	sources  []Source
	defaults ReportDefaults
	cache    *cache.LRUCache[core.Report]
	logger   *log.StructuredLogger
}

// NewReportService wires the sources. A nil cache disables caching.
func NewReportService(defaults ReportDefaults, c *cache.LRUCache[core.Report], logger *log.Logger, sources ...Source) *ReportService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportService{
		sources:  sources,
		defaults: defaults,
		cache:    c,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentReport)),
	}
}

// Options applies the service defaults to opts.
func (s *ReportService) Options(opts core.Options) core.Options {
	c := opts.Columns
	d := s.defaults.Columns
	if strings.TrimSpace(c.PeriodMarker) == "" {
		c.PeriodMarker = d.PeriodMarker
	}
	if strings.TrimSpace(c.Year) == "" {
		c.Year = d.Year
	}
	if strings.TrimSpace(c.Revenue) == "" {
		c.Revenue = d.Revenue
	}
	if strings.TrimSpace(c.Target) == "" {
		c.Target = d.Target
	}
	opts.Columns = c
	if opts.Policy == "" {
		opts.Policy = s.defaults.Policy
	}
	return opts.WithDefaults()
}

// SourceKey identifies the configured source set.
func (s *ReportService) SourceKey() string {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name
	}
	return strings.Join(names, "+")
}

// Build reads every source concurrently, merges the tables in source order
// and runs the pipeline. Results are cached per source set and options.
func (s *ReportService) Build(ctx context.Context, opts core.Options) (core.Report, error) {
	opts = s.Options(opts)
	if err := opts.Validate(); err != nil {
		return core.Report{}, err
	}
	key := cache.KeyFor(s.SourceKey(), opts)

	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			s.logger.LogReportBuilt(ctx, s.SourceKey(), opts, rep, true)
			return rep, nil
		}
	}

	table, err := s.ReadAll(ctx)
	if err != nil {
		return core.Report{}, err
	}

	rep, err := kpi.Run(table, opts)
	if err != nil {
		return core.Report{}, err
	}
	if s.cache != nil {
		s.cache.Set(key, rep)
	}
	s.logger.LogReportBuilt(ctx, s.SourceKey(), opts, rep, false)
	return rep, nil
}

// ReadAll fetches every source concurrently and merges the tables.
func (s *ReportService) ReadAll(ctx context.Context) (core.Table, error) {
	if len(s.sources) == 0 {
		return core.Table{}, fmt.Errorf("no table sources configured")
	}

	tables := make([]core.Table, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			t, err := src.Reader.ReadTable(gctx)
			if err != nil {
				return fmt.Errorf("read source %s: %w", src.Name, err)
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Table{}, err
	}

	merged := tables[0]
	for _, t := range tables[1:] {
		merged = merged.Merge(t)
	}
	return merged, nil
}

// BuildFromTable runs the pipeline over an ad-hoc table, bypassing cache.
func (s *ReportService) BuildFromTable(ctx context.Context, name string, t core.Table, opts core.Options) (core.Report, error) {
	opts = s.Options(opts)
	rep, err := kpi.Run(t, opts)
	if err != nil {
		return core.Report{}, err
	}
	s.logger.LogReportBuilt(ctx, name, opts, rep, false)
	return rep, nil
}

// Invalidate drops every cached report.
func (s *ReportService) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

// CacheStats exposes cache counters; ok is false when caching is off.
func (s *ReportService) CacheStats() (cache.Stats, bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}
