// Package dashboard renders a live terminal UI for an in-flight run, one
// panel per operation kind.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/queryfire/queryfire/internal/metrics"
)

// TestConfig holds run parameters for display in the summary panel.
type TestConfig struct {
	SearchTarget       string
	ConversationTarget string
	Users              int
	Duration           time.Duration
	RampUp             time.Duration
	Rate               int
	Timeout            time.Duration
	Protocol           string
	ConfigFile         string
}

// Dashboard renders live run metrics with termui.
type Dashboard struct {
	collector    *metrics.Collector
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex
	stopOnce     sync.Once

	grid             *ui.Grid
	summaryPara      *widgets.Paragraph
	opsGauge         *widgets.Gauge
	latencySparkle   *widgets.SparklineGroup
	searchPara       *widgets.Paragraph
	conversationPara *widgets.Paragraph
	errorList        *widgets.List

	searchHistory       []float64
	conversationHistory []float64
	startTime           time.Time
	testDuration        time.Duration
	testConfig          TestConfig
}

// New creates a Dashboard. The shutdownFunc is invoked when the user quits
// with q or Ctrl-C.
func New(collector *metrics.Collector, cfg TestConfig, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		collector:           collector,
		ctx:                 ctx,
		cancel:              cancel,
		shutdownFunc:        shutdownFunc,
		searchHistory:       make([]float64, 0, 100),
		conversationHistory: make([]float64, 0, 100),
		startTime:           time.Now(),
		testConfig:          cfg,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

func (d *Dashboard) initWidgets() {
	searchSpark := widgets.NewSparkline()
	searchSpark.Title = "Search (ms)"
	searchSpark.LineColor = ui.ColorGreen
	searchSpark.Data = []float64{0}

	conversationSpark := widgets.NewSparkline()
	conversationSpark.Title = "Conversation (ms)"
	conversationSpark.LineColor = ui.ColorMagenta
	conversationSpark.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(searchSpark, conversationSpark)
	d.latencySparkle.Title = "Mean Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	d.opsGauge = widgets.NewGauge()
	d.opsGauge.Title = "Operations Per Second"
	d.opsGauge.Percent = 0
	d.opsGauge.BarColor = ui.ColorBlue
	d.opsGauge.BorderStyle.Fg = ui.ColorCyan
	d.opsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors"
	d.errorList.Rows = []string{"No failures"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run Summary"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.searchPara = widgets.NewParagraph()
	d.searchPara.Title = "Search"
	d.searchPara.Text = "Waiting for data..."
	d.searchPara.BorderStyle.Fg = ui.ColorCyan

	d.conversationPara = widgets.NewParagraph()
	d.conversationPara.Title = "Conversation"
	d.conversationPara.Text = "Waiting for data..."
	d.conversationPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.opsGauge),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.5, d.searchPara),
			ui.NewCol(0.5, d.conversationPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(0.6, d.latencySparkle),
			ui.NewCol(0.4, d.errorList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal. Safe to call more than
// once; only the first call tears the UI down.
func (d *Dashboard) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.wg.Wait()
		d.testDuration = time.Since(d.startTime)
		ui.Close()
		// Give terminal time to restore
		time.Sleep(100 * time.Millisecond)
	})
}

// FinalSnapshot returns the per-kind statistics as of when the dashboard
// stopped.
func (d *Dashboard) FinalSnapshot() map[metrics.Kind]metrics.Stats {
	return d.collector.Snapshot(d.testDuration)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	snapshot := d.collector.Snapshot(elapsed)
	search := snapshot[metrics.KindSearch]
	conversation := snapshot[metrics.KindConversation]

	d.searchHistory = appendHistory(d.searchHistory, search.MeanLatencyMs)
	d.conversationHistory = appendHistory(d.conversationHistory, conversation.MeanLatencyMs)
	if len(d.searchHistory) > 0 {
		d.latencySparkle.Sparklines[0].Data = d.searchHistory
	}
	if len(d.conversationHistory) > 0 {
		d.latencySparkle.Sparklines[1].Data = d.conversationHistory
	}

	combinedRate := search.RequestsPerSec + conversation.RequestsPerSec
	maxRate := 100.0
	if d.testConfig.Rate > 0 {
		maxRate = float64(d.testConfig.Rate)
	}
	if combinedRate > maxRate {
		maxRate = combinedRate
	}
	percent := int((combinedRate / maxRate) * 100)
	if percent > 100 {
		percent = 100
	}
	d.opsGauge.Percent = percent
	d.opsGauge.Label = fmt.Sprintf("%.1f ops/s", combinedRate)

	total := search.Total + conversation.Total
	successes := search.Successes + conversation.Successes
	successRate := 0.0
	if total > 0 {
		successRate = (float64(successes) / float64(total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"%s\n%s\nElapsed: %s | Total: %d | Success Rate: %.1f%%",
		d.formatTargets(),
		d.formatTestParams(),
		elapsed.Round(time.Second),
		total,
		successRate,
	)

	d.searchPara.Text = formatKindStats(search)
	d.conversationPara.Text = formatKindStats(conversation)
	d.errorList.Rows = d.formatErrorRows()
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func appendHistory(history []float64, value float64) []float64 {
	if value <= 0 {
		return history
	}
	history = append(history, value)
	if len(history) > 100 {
		history = history[1:]
	}
	return history
}

func formatKindStats(stats metrics.Stats) string {
	if stats.Total == 0 {
		return "No operations yet"
	}
	return fmt.Sprintf(
		"Operations:   %d\nSuccessful:   %d\nFailed:       %d\nThroughput:   %.2f ops/s\nMin Latency:  %.2fms\nMean Latency: %.2fms\nP50/P90/P99:  %.2f / %.2f / %.2f ms",
		stats.Total,
		stats.Successes,
		stats.Failures,
		stats.RequestsPerSec,
		stats.MinLatencyMs,
		stats.MeanLatencyMs,
		stats.P50LatencyMs,
		stats.P90LatencyMs,
		stats.P99LatencyMs,
	)
}

func (d *Dashboard) formatErrorRows() []string {
	var rows []string
	for _, kind := range metrics.Kinds() {
		buckets := metrics.FlattenErrorBuckets(d.collector.ErrorBreakdown(kind))
		for _, bucket := range buckets {
			rows = append(rows, fmt.Sprintf("[%s](fg:red) %s: %d", kind, bucket.Type, bucket.Count))
			if len(rows) >= 10 {
				return rows
			}
		}
	}
	if len(rows) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	return rows
}

func (d *Dashboard) formatTargets() string {
	var parts []string
	if d.testConfig.SearchTarget != "" {
		parts = append(parts, fmt.Sprintf("Search: %s", d.testConfig.SearchTarget))
	}
	if d.testConfig.ConversationTarget != "" {
		parts = append(parts, fmt.Sprintf("Conversation: %s", d.testConfig.ConversationTarget))
	}
	if len(parts) == 0 {
		return "No targets configured"
	}
	return strings.Join(parts, " | ")
}

func (d *Dashboard) formatTestParams() string {
	var parts []string

	if d.testConfig.Users > 0 {
		parts = append(parts, fmt.Sprintf("Users: %d", d.testConfig.Users))
	}
	if d.testConfig.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", d.testConfig.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if d.testConfig.Duration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", d.testConfig.Duration))
	}
	if d.testConfig.RampUp > 0 {
		parts = append(parts, fmt.Sprintf("Ramp-up: %s", d.testConfig.RampUp))
	}
	if d.testConfig.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", d.testConfig.Timeout))
	}
	if d.testConfig.Protocol != "" && d.testConfig.Protocol != "http" {
		parts = append(parts, fmt.Sprintf("Protocol: %s", d.testConfig.Protocol))
	}
	if d.testConfig.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", d.testConfig.ConfigFile))
	}

	return strings.Join(parts, " | ")
}
