package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/queryfire/queryfire/internal/metrics"
)

// HTMLReportData is the template input for the standalone HTML report.
type HTMLReportData struct {
	GeneratedAt      string
	RunID            string
	Duration         string
	TotalOperations  int64
	Sections         []HTMLKindSection
	ThresholdSummary *ThresholdSummary
}

// HTMLKindSection holds one operation kind's statistics prepared for display.
type HTMLKindSection struct {
	Title  string
	Stats  metrics.Stats
	Errors []metrics.ErrorBucket
}

// ThresholdSummary aggregates threshold outcomes for the report header.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []ThresholdRow
}

// ThresholdRow is one threshold outcome prepared for display.
type ThresholdRow struct {
	Threshold string
	Expected  float64
	Actual    float64
	Pass      bool
}

// GenerateHTMLReport renders a self-contained HTML report for the run.
func GenerateHTMLReport(w io.Writer, r Report) error {
	data := HTMLReportData{
		GeneratedAt:     time.Now().Format(time.RFC3339),
		RunID:           r.RunID,
		Duration:        r.Duration.String(),
		TotalOperations: r.TotalOperations(),
	}

	for _, kind := range metrics.Kinds() {
		stats, ok := r.Stats[kind]
		if !ok || stats.Total == 0 {
			continue
		}
		data.Sections = append(data.Sections, HTMLKindSection{
			Title:  kindTitles[kind],
			Stats:  stats,
			Errors: metrics.FlattenErrorBuckets(stats.Errors),
		})
	}

	if len(r.ThresholdResults) > 0 {
		summary := &ThresholdSummary{Total: len(r.ThresholdResults)}
		for _, res := range r.ThresholdResults {
			summary.Results = append(summary.Results, ThresholdRow{
				Threshold: res.Threshold.Raw,
				Expected:  res.Threshold.Value,
				Actual:    res.Actual,
				Pass:      res.Pass,
			})
			if res.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
		data.ThresholdSummary = summary
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Queryfire Load Test Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(220px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #667eea;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(140px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Queryfire Load Test Report</h1>
            <div class="meta">Run {{.RunID}} &middot; Generated {{.GeneratedAt}} &middot; Duration {{.Duration}} &middot; {{.TotalOperations}} operations</div>
        </header>
        <div class="content">
            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} passed)</h2>
                <table>
                    <tr><th>Threshold</th><th>Expected</th><th>Actual</th><th>Result</th></tr>
                    {{range .ThresholdSummary.Results}}
                    <tr>
                        <td>{{.Threshold}}</td>
                        <td>{{formatFloat .Expected}}</td>
                        <td>{{formatFloat .Actual}}</td>
                        <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                    </tr>
                    {{end}}
                </table>
            </div>
            {{end}}
            {{range .Sections}}
            <div class="section">
                <h2>{{.Title}}</h2>
                <div class="grid">
                    <div class="card">
                        <h3>Operations</h3>
                        <div class="value">{{.Stats.Total}}</div>
                        <div class="subvalue">{{formatFloat .Stats.RequestsPerSec}} ops/sec</div>
                    </div>
                    <div class="card success">
                        <h3>Successful</h3>
                        <div class="value">{{.Stats.Successes}}</div>
                        <div class="subvalue">{{formatPercent .Stats.Successes .Stats.Total}}%</div>
                    </div>
                    <div class="card error">
                        <h3>Failed</h3>
                        <div class="value">{{.Stats.Failures}}</div>
                        <div class="subvalue">{{formatPercent .Stats.Failures .Stats.Total}}%</div>
                    </div>
                </div>
                <div class="latency-grid">
                    <div class="latency-item"><div class="label">Min</div><div class="value">{{formatFloat .Stats.MinLatencyMs}} ms</div></div>
                    <div class="latency-item"><div class="label">Mean</div><div class="value">{{formatFloat .Stats.MeanLatencyMs}} ms</div></div>
                    <div class="latency-item"><div class="label">P50</div><div class="value">{{formatFloat .Stats.P50LatencyMs}} ms</div></div>
                    <div class="latency-item"><div class="label">P90</div><div class="value">{{formatFloat .Stats.P90LatencyMs}} ms</div></div>
                    <div class="latency-item"><div class="label">P99</div><div class="value">{{formatFloat .Stats.P99LatencyMs}} ms</div></div>
                    <div class="latency-item"><div class="label">Max</div><div class="value">{{formatFloat .Stats.MaxLatencyMs}} ms</div></div>
                </div>
                {{if .Errors}}
                <table style="margin-top: 20px;">
                    <tr><th>Error</th><th>Count</th></tr>
                    {{range .Errors}}
                    <tr><td>{{.Type}}</td><td>{{.Count}}</td></tr>
                    {{end}}
                </table>
                {{end}}
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
