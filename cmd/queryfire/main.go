package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/queryfire/queryfire/internal/backend"
	"github.com/queryfire/queryfire/internal/config"
	"github.com/queryfire/queryfire/internal/dashboard"
	"github.com/queryfire/queryfire/internal/loadtest"
	"github.com/queryfire/queryfire/internal/metrics"
	"github.com/queryfire/queryfire/internal/output"
	"github.com/queryfire/queryfire/internal/threshold"
	"github.com/queryfire/queryfire/internal/tracing"
	"github.com/queryfire/queryfire/internal/workload"
)

const progressInterval = time.Second

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(op workload.Operation, latency time.Duration, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[queryfire] %s operation failed after %s: %v\n", op.Kind, latency.Round(time.Millisecond), err)
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	searcher, conversationalist, cleanup, err := buildBackends(cfg, provider)
	if err != nil {
		return err
	}
	defer cleanup()

	var failureLogger workload.FailureLogger
	if cfg.LogErrors {
		failureLogger = &stderrFailureLogger{}
	}

	orch := loadtest.New(loadtest.Options{
		Config:            *cfg,
		Searcher:          searcher,
		Conversationalist: conversationalist,
		Tracer:            provider.Tracer(),
		FailureLogger:     failureLogger,
	})

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(orch.Collector(), dashboard.TestConfig{
			SearchTarget:       cfg.SearchTarget,
			ConversationTarget: cfg.ConversationTarget,
			Users:              cfg.Users,
			Duration:           cfg.Duration,
			RampUp:             cfg.RampUp,
			Rate:               cfg.Rate,
			Timeout:            cfg.Timeout,
			Protocol:           string(cfg.ConversationProtocol),
			ConfigFile:         cfg.ConfigFile,
		}, cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput && !cfg.Dashboard {
		progress = output.NewProgressReporter(orch.Collector(), progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	result, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	report := output.Report{
		RunID:    result.RunID,
		Duration: result.Duration,
		Stats: map[metrics.Kind]metrics.Stats{
			metrics.KindSearch:       result.Search,
			metrics.KindConversation: result.Conversation,
		},
	}
	if dash != nil {
		// Restore the terminal before any report output, and report the
		// statistics as the dashboard last observed them.
		dash.Stop()
		report.Stats = dash.FinalSnapshot()
	}
	if len(thresholds) > 0 {
		report.ThresholdResults = threshold.NewEvaluator(thresholds).Evaluate(report.Stats)
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, report)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "HTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if !threshold.AllPassed(report.ThresholdResults) {
		return fmt.Errorf("threshold check failed")
	}
	if result.FailedOps > 0 {
		return fmt.Errorf("%d operations failed", result.FailedOps)
	}
	return nil
}

// buildBackends wires the configured targets into concrete clients. Targets
// without queries stay unwired.
func buildBackends(cfg *config.Config, provider *tracing.Provider) (workload.Searcher, workload.Conversationalist, func(), error) {
	cleanup := func() {}

	var searcher workload.Searcher
	if len(cfg.SearchQueries) > 0 {
		s, err := backend.NewHTTPSearcher(backend.HTTPOptions{
			Target:         cfg.SearchTarget,
			Headers:        cfg.Headers,
			Timeout:        cfg.Timeout,
			PropagateTrace: provider.ShouldPropagate(),
		})
		if err != nil {
			return nil, nil, cleanup, fmt.Errorf("search backend: %w", err)
		}
		searcher = s
	}

	var conversationalist workload.Conversationalist
	if len(cfg.ConversationQueries) > 0 {
		switch cfg.ConversationProtocol {
		case config.ProtocolWebSocket:
			c, err := backend.NewWSConversationalist(backend.WSOptions{
				Target:           cfg.ConversationTarget,
				Headers:          cfg.Headers,
				HandshakeTimeout: cfg.Timeout,
				PoolSize:         cfg.Users,
			})
			if err != nil {
				return nil, nil, cleanup, fmt.Errorf("conversation backend: %w", err)
			}
			conversationalist = c
			cleanup = func() { _ = c.Close() }
		default:
			c, err := backend.NewHTTPConversationalist(backend.HTTPOptions{
				Target:         cfg.ConversationTarget,
				Headers:        cfg.Headers,
				Timeout:        cfg.Timeout,
				PropagateTrace: provider.ShouldPropagate(),
			})
			if err != nil {
				return nil, nil, cleanup, fmt.Errorf("conversation backend: %w", err)
			}
			conversationalist = c
		}
	}

	return searcher, conversationalist, cleanup, nil
}

func writeHTMLReport(path string, report output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create HTML report: %w", err)
	}
	defer f.Close()

	if err := output.GenerateHTMLReport(f, report); err != nil {
		return fmt.Errorf("generate HTML report: %w", err)
	}
	return nil
}
