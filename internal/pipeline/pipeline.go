// Package pipeline runs the leaderboard stages end to end and writes the
// run's output files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"trade-leaderboard/internal/config"
	"trade-leaderboard/internal/domain"
	"trade-leaderboard/internal/idhash"
	"trade-leaderboard/internal/ingestion"
	"trade-leaderboard/internal/metrics"
	"trade-leaderboard/internal/normalization"
	"trade-leaderboard/internal/observability"
	"trade-leaderboard/internal/outlier"
	"trade-leaderboard/internal/ranking"
	"trade-leaderboard/internal/reporting"
	"trade-leaderboard/internal/storage"
	"trade-leaderboard/internal/storage/memory"
)

// Output file names.
const (
	MetricsCSVFile     = "account_metrics.csv"
	LeaderboardCSVFile = "leaderboard.csv"
	ReportFile         = "LEADERBOARD_REPORT.md"
	WorkbookFile       = "leaderboard.xlsx"
	MetricsTextfile    = "pipeline.prom"
)

// Stage names used for timing and logs.
const (
	StageLoad      = "load"
	StageNormalize = "normalize"
	StageSuppress  = "suppress"
	StageAggregate = "aggregate"
	StageMetrics   = "metrics"
	StageRank      = "rank"
	StagePersist   = "persist"
	StageReport    = "report"
)

// Mirror is an additional database the run is persisted to. Nil stores are
// skipped.
type Mirror struct {
	Name         string
	Trades       storage.TradeRecordStore
	Metrics      storage.AccountMetricsStore
	Leaderboards storage.LeaderboardStore
}

// Result describes a finished run.
type Result struct {
	RunID  string
	Report *reporting.Report
	Files  []string
}

// Pipeline orchestrates ingestion, the five stages and reporting.
type Pipeline struct {
	cfg    *config.Config
	source ingestion.EntrySource

	normalizer    *normalization.Normalizer
	suppressor    *outlier.Suppressor
	metricsEngine *metrics.Engine
	rankingEngine *ranking.Engine

	tradeStore       storage.TradeRecordStore
	metricsStore     storage.AccountMetricsStore
	leaderboardStore storage.LeaderboardStore
	mirrors          []Mirror

	obs    *observability.Metrics
	logger *zap.Logger
	clock  func() time.Time
}

// New creates a pipeline reading from source. Run data is kept in memory
// stores; use WithMirror to also persist it to a database.
func New(cfg *config.Config, source ingestion.EntrySource, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:              cfg,
		source:           source,
		normalizer:       normalization.NewNormalizer(logger.Named("normalizer")),
		suppressor:       outlier.NewSuppressor(cfg.Outlier, logger.Named("outlier")),
		metricsEngine:    metrics.NewEngine(cfg.Metrics.PnLEpsilon, logger.Named("metrics")),
		rankingEngine:    ranking.NewEngine(cfg.Ranking, logger.Named("ranking")),
		tradeStore:       memory.NewTradeRecordStore(),
		metricsStore:     memory.NewAccountMetricsStore(),
		leaderboardStore: memory.NewLeaderboardStore(),
		obs:              observability.NewMetrics(""),
		logger:           logger,
		clock:            func() time.Time { return time.Now().UTC() },
	}
}

// WithMirror adds a database the run is persisted to.
func (p *Pipeline) WithMirror(m Mirror) *Pipeline {
	p.mirrors = append(p.mirrors, m)
	return p
}

// WithMetrics replaces the Prometheus metrics the run records into.
func (p *Pipeline) WithMetrics(m *observability.Metrics) *Pipeline {
	p.obs = m
	return p
}

// WithClock sets a custom clock function for deterministic output.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Metrics returns the Prometheus metrics of this pipeline.
func (p *Pipeline) Metrics() *observability.Metrics {
	return p.obs
}

// runSettings lists the configuration that changes a run's results. Forest
// workers only affect scheduling and are left out.
func (p *Pipeline) runSettings() []any {
	rank := p.cfg.Ranking
	rank.Regression.Forest.Workers = 0
	return []any{p.cfg.Outlier, p.cfg.Metrics.PnLEpsilon, rank}
}

// Run executes the pipeline and writes the output files.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	res, err := p.run(ctx)
	if err != nil {
		p.obs.RecordRun(observability.StatusFailure, p.clock())
		p.logger.Error("pipeline failed", zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	var entries []domain.RawAccountEntry
	if err := p.stage(ctx, StageLoad, func() (err error) {
		entries, err = p.source.Load(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	runID := idhash.ComputeRunID(entries, p.runSettings()...)
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("pipeline started", zap.Int("entries", len(entries)))

	var (
		trades    []*domain.TradeRecord
		normStats *normalization.Stats
	)
	if err := p.stage(ctx, StageNormalize, func() (err error) {
		trades, normStats, err = p.normalizer.Normalize(ctx, entries)
		return err
	}); err != nil {
		return nil, err
	}
	p.obs.EntriesProcessed.Add(float64(normStats.Entries))
	p.obs.ParseFailures.Add(float64(normStats.ParseFailures))
	p.obs.UnknownPayloads.Add(float64(normStats.UnknownPayloads))
	p.obs.TradesNormalized.Add(float64(normStats.Trades))
	p.obs.ForwardFilledValues.Add(float64(normStats.ForwardFilled))

	var suppression *outlier.Report
	if err := p.stage(ctx, StageSuppress, func() error {
		trades, suppression = p.suppressor.Apply(trades)
		return p.tradeStore.InsertBulk(ctx, runID, trades)
	}); err != nil {
		return nil, err
	}
	p.obs.CappedValues.Add(float64(suppression.CappedValues))
	p.obs.ReplacedRows.Add(float64(suppression.ReplacedRows))

	aggregator := metrics.NewAggregator(logger.Named("aggregator"))
	var aggs []*metrics.AccountAggregate
	if err := p.stage(ctx, StageAggregate, func() (err error) {
		aggs, err = aggregator.AggregateStored(ctx, p.tradeStore, runID)
		return err
	}); err != nil {
		return nil, err
	}

	var (
		rows       []*domain.AccountMetrics
		metricsSum *metrics.Summary
	)
	if err := p.stage(ctx, StageMetrics, func() error {
		rows, metricsSum = p.metricsEngine.Compute(aggs)
		return nil
	}); err != nil {
		return nil, err
	}
	p.obs.DivisionGuards.WithLabelValues("zero_pnl").Add(float64(metricsSum.ZeroPnLAccounts))
	p.obs.DivisionGuards.WithLabelValues("zero_quantity").Add(float64(metricsSum.ZeroQuantityGuards))
	p.obs.DivisionGuards.WithLabelValues("zero_peak").Add(float64(metricsSum.ZeroPeakGuards))

	var lb *domain.Leaderboard
	if err := p.stage(ctx, StageRank, func() (err error) {
		lb, err = p.rankingEngine.Rank(ctx, runID, rows)
		return err
	}); err != nil {
		return nil, err
	}
	p.obs.AccountsScored.Set(float64(len(rows)))
	p.obs.FitR2.Set(lb.Diagnostics.R2)
	p.obs.FitMAE.Set(lb.Diagnostics.MAE)

	if err := p.stage(ctx, StagePersist, func() error {
		return p.persist(ctx, logger, runID, trades, rows, lb)
	}); err != nil {
		return nil, err
	}

	info := reporting.RunInfo{
		DataSummary: reporting.DataSummary{
			Entries:         normStats.Entries,
			ParseFailures:   normStats.ParseFailures,
			UnknownPayloads: normStats.UnknownPayloads,
			EmptyHistories:  normStats.EmptyHistories,
			Trades:          normStats.Trades,
			ForwardFilled:   normStats.ForwardFilled,
		},
		DataQuality:    aggregator.GetDataQualityErrors(),
		Suppression:    suppressionSection(suppression),
		MetricsSummary: reporting.MetricsSummary(*metricsSum),
	}

	var res *Result
	if err := p.stage(ctx, StageReport, func() (err error) {
		res, err = p.writeOutputs(ctx, runID, info)
		return err
	}); err != nil {
		return nil, err
	}

	p.obs.RecordRun(observability.StatusSuccess, p.clock())
	if p.cfg.Output.MetricsTextfile {
		path := filepath.Join(p.cfg.Output.Dir, MetricsTextfile)
		if err := p.obs.WriteTextfile(path); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	logger.Info("pipeline finished",
		zap.Int("accounts", len(rows)),
		zap.Int("trades", len(trades)),
		zap.Strings("files", res.Files),
	)
	return res, nil
}

// stage runs fn as the named stage, timing it and honouring cancellation.
func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	p.obs.ObserveStage(name, elapsed)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	p.logger.Debug("stage finished", zap.String("stage", name), zap.Duration("elapsed", elapsed))
	return nil
}

// persist stores the metrics table and leaderboard in memory and in every
// mirror. A run a mirror already holds is skipped: identical input yields
// the same run id and the same results.
func (p *Pipeline) persist(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	trades []*domain.TradeRecord,
	rows []*domain.AccountMetrics,
	lb *domain.Leaderboard,
) error {
	if err := p.metricsStore.InsertBulk(ctx, runID, rows); err != nil {
		return fmt.Errorf("store metrics: %w", err)
	}
	if err := p.leaderboardStore.Insert(ctx, lb); err != nil {
		return fmt.Errorf("store leaderboard: %w", err)
	}

	for _, m := range p.mirrors {
		writes := []struct {
			table string
			fn    func() error
			skip  bool
		}{
			{"trade_records", func() error { return m.Trades.InsertBulk(ctx, runID, trades) }, m.Trades == nil},
			{"account_metrics", func() error { return m.Metrics.InsertBulk(ctx, runID, rows) }, m.Metrics == nil},
			{"leaderboards", func() error { return m.Leaderboards.Insert(ctx, lb) }, m.Leaderboards == nil},
		}
		for _, w := range writes {
			if w.skip {
				continue
			}
			start := time.Now()
			err := w.fn()
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Warn("run already persisted, skipping",
					zap.String("database", m.Name), zap.String("table", w.table))
				err = nil
			}
			p.obs.RecordDBWrite(m.Name, w.table, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("persist %s to %s: %w", w.table, m.Name, err)
			}
		}
	}
	return nil
}

// writeOutputs generates the report from the stored run and writes it.
func (p *Pipeline) writeOutputs(ctx context.Context, runID string, info reporting.RunInfo) (*Result, error) {
	dir := p.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	gen := reporting.NewGenerator(p.metricsStore, p.leaderboardStore).WithClock(p.clock)
	report, err := gen.Generate(ctx, runID, info)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: runID, Report: report}
	files := []struct {
		name    string
		content string
	}{
		{MetricsCSVFile, reporting.RenderMetricsCSV(report.Metrics)},
		{LeaderboardCSVFile, reporting.RenderLeaderboardCSV(report.Leaderboard.Comparison)},
		{ReportFile, reporting.RenderMarkdown(report)},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		res.Files = append(res.Files, path)
	}

	if p.cfg.Output.Workbook {
		path := filepath.Join(dir, WorkbookFile)
		if err := writeWorkbook(path, report); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}

	return res, nil
}

func writeWorkbook(path string, report *reporting.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	if err := reporting.WriteWorkbook(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// suppressionSection converts the suppressor report for rendering.
func suppressionSection(r *outlier.Report) reporting.SuppressionSection {
	column := func(name string, b outlier.Bounds, median float64) reporting.SuppressionColumn {
		return reporting.SuppressionColumn{
			Name:   name,
			Lower:  b.Lower,
			Upper:  b.Upper,
			Median: median,
			Before: r.Before[name],
			After:  r.After[name],
		}
	}
	return reporting.SuppressionSection{
		Columns: []reporting.SuppressionColumn{
			column(outlier.ColumnPrice, r.PriceBounds, r.MedianPrice),
			column(outlier.ColumnQuantity, r.QuantityBounds, r.MedianQuantity),
			column(outlier.ColumnRealizedProfit, r.RealizedProfitBounds, r.MedianRealizedProfit),
		},
		CappedValues: r.CappedValues,
		ReplacedRows: r.ReplacedRows,
	}
}
