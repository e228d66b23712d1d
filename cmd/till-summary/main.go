package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"till/internal/cli"
	"till/internal/core"
	"till/internal/llm"
	"till/internal/summary"

	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		period  = flag.String("period", "all", "periods to build: weekly, monthly, quarterly, custom or all")
		weeks   = flag.Int("weeks", 2, "number of trailing weeks to build for weekly summaries")
		year    = flag.Int("year", 0, "year for monthly/quarterly summaries (default: current)")
		month   = flag.Int("month", 0, "month 1-12 for the monthly summary (default: current)")
		quarter = flag.Int("quarter", 0, "quarter 1-4 for the quarterly summary (default: current)")
		start   = flag.String("start", "", "start date YYYY-MM-DD for a custom period")
		end     = flag.String("end", "", "end date YYYY-MM-DD for a custom period")
	)
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting till-summary", "period", *period)

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer sqliteRepo.Close()

	var generator llm.Generator
	if cfg.InsightsEnabled {
		generator = llm.NewClient(cfg.LLMBaseURL, cfg.LLMModel)
	}
	agg := summary.NewAggregator(sqliteRepo, generator, cfg.InsightTimeout, cfg.InsightsEnabled)

	now := time.Now().UTC()
	if *year == 0 {
		*year = now.Year()
	}
	if *month == 0 {
		*month = int(now.Month())
	}
	if *quarter == 0 {
		*quarter = (int(now.Month())-1)/3 + 1
	}

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)

	if *period == "all" || *period == "weekly" {
		weeksBack := *weeks
		g.Go(func() error {
			// Oldest first so each week can compare against the one before it.
			for i := weeksBack - 1; i >= 0; i-- {
				p := core.WeekOf(now, i)
				if err := buildOne(ctx, agg, p); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if *period == "all" || *period == "monthly" {
		p := core.MonthOf(*year, time.Month(*month))
		g.Go(func() error { return buildOne(ctx, agg, p) })
	}

	if *period == "all" || *period == "quarterly" {
		p, err := core.QuarterOf(*year, *quarter)
		if err != nil {
			logger.Error("Invalid quarter", "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return buildOne(ctx, agg, p) })
	}

	if *period == "custom" {
		p, err := parseCustomPeriod(*start, *end)
		if err != nil {
			logger.Error("Invalid custom period", "error", err)
			os.Exit(1)
		}
		g.Go(func() error { return buildOne(ctx, agg, p) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Summary generation failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Summary generation complete")
}

func buildOne(ctx context.Context, agg *summary.Aggregator, p core.Period) error {
	s, err := agg.BuildSummary(ctx, p)
	if err != nil {
		return fmt.Errorf("build %s summary %q: %w", p.Type, p.Name, err)
	}
	if s == nil {
		slog.InfoContext(ctx, "No transactions in period", "period_name", p.Name)
		return nil
	}
	slog.InfoContext(ctx, "Summary built",
		"period_name", s.PeriodName,
		"transactions", s.TransactionCount,
		"net_position", s.NetPosition.StringFixed(2))
	return nil
}

func parseCustomPeriod(start, end string) (core.Period, error) {
	if start == "" || end == "" {
		return core.Period{}, fmt.Errorf("custom period requires -start and -end")
	}
	startDate, err := time.Parse("2006-01-02", start)
	if err != nil {
		return core.Period{}, fmt.Errorf("parse start date: %w", err)
	}
	endDate, err := time.Parse("2006-01-02", end)
	if err != nil {
		return core.Period{}, fmt.Errorf("parse end date: %w", err)
	}
	return core.CustomPeriod(startDate, endDate)
}
