package triage

import (
	"context"
	"io"
	"math/rand"
	"runtime"
	"strings"
	"time"

	"github.com/fleettriage/fleettriage/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// RenderData is the data series handed to the artifact renderer.
type RenderData struct {
	SeverityCounts map[models.SeverityLevel]int
	Scores         []float64
	ProblemCounts  map[string]int // label -> machines affected
	GeneratedAt    time.Time
}

// Renderer produces named visual artifacts (base64-encoded) from fleet
// data series. Rendering is a collaborator concern: a failure degrades
// the charts map, never the analysis.
type Renderer interface {
	Render(data RenderData) (map[string]string, error)
}

// Analyzer runs the full fleet analysis pipeline.
type Analyzer struct {
	rng      *rand.Rand
	renderer Renderer
	workers  int
}

// NewAnalyzer builds an Analyzer. rng seeds column synthesis and is
// injectable for deterministic tests; renderer may be nil to skip
// artifact generation.
func NewAnalyzer(rng *rand.Rand, renderer Renderer) *Analyzer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Analyzer{
		rng:      rng,
		renderer: renderer,
		workers:  runtime.NumCPU(),
	}
}

const previewRows = 20

// Analyze parses, cleans, resolves, scores, and summarizes a CSV dataset.
// Input errors (malformed CSV, empty dataset) are returned; everything
// downstream degrades rather than fails.
func (a *Analyzer) Analyze(ctx context.Context, r io.Reader, opts Options) (*models.AnalysisResult, error) {
	table, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}

	ApplyCleaning(table, opts)
	if table.Len() == 0 {
		return &models.AnalysisResult{
			KPIs:             models.KPIResult{Degraded: true, Error: "KPI calculation error: cleaning removed every row"},
			Charts:           map[string]string{},
			ColumnsAvailable: table.Columns,
		}, nil
	}

	res := Resolve(table, a.rng)
	records := Records(table, res)

	scored, err := a.scoreAll(ctx, records)
	if err != nil {
		return nil, err
	}

	kpis := ComputeKPIs(scored)

	topN := opts.TopN
	if topN < 1 {
		topN = 5
	}
	top := TopCritical(scored, table, res, topN)

	return &models.AnalysisResult{
		KPIs:             kpis,
		Charts:           a.renderCharts(scored),
		DataPreview:      buildPreview(table, res, scored),
		TopCritical:      top,
		TotalRows:        len(scored),
		ColumnsAvailable: table.Columns,
	}, nil
}

// buildPreview projects the head of the cleaned table. Every source
// column survives, the resolved cpu/ram/disk cells carry their coerced
// values, and the computed scoring fields ride alongside.
func buildPreview(t *Table, res Resolution, scored []models.ScoredMachine) []models.PreviewRow {
	n := len(scored)
	if n > previewRows {
		n = previewRows
	}

	rows := make([]models.PreviewRow, 0, n)
	for i := 0; i < n; i++ {
		m := scored[i]
		row := make(models.PreviewRow, len(t.Columns)+4)
		for _, col := range t.Columns {
			row[col] = t.Cell(i, col)
		}
		row[res.CPUCol] = m.CPUPct
		row[res.RAMCol] = m.RAMPct
		row[res.DiskCol] = m.DiskPct

		problems := NoIssuesLabel
		if len(m.ProblemSummary) > 0 {
			problems = strings.Join(m.ProblemSummary, "; ")
		}
		row["Critical_Score"] = m.CriticalScore
		row["Severity_Level"] = m.SeverityLevel
		row["Problems"] = problems
		row["Total_Problems"] = m.TotalProblems
		rows = append(rows, row)
	}
	return rows
}

// scoreAll scores records in parallel chunks. Rows are independent, so
// each worker writes only its own slice region.
func (a *Analyzer) scoreAll(ctx context.Context, records []models.MachineRecord) ([]models.ScoredMachine, error) {
	scored := make([]models.ScoredMachine, len(records))

	workers := a.workers
	if workers < 1 {
		workers = 1
	}
	chunk := (len(records) + workers - 1) / workers
	if chunk < 1 {
		chunk = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(records); start += chunk {
		end := start + chunk
		if end > len(records) {
			end = len(records)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
				scored[i] = ScoreMachine(records[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (a *Analyzer) renderCharts(scored []models.ScoredMachine) map[string]string {
	if a.renderer == nil {
		return map[string]string{}
	}

	data := RenderData{
		SeverityCounts: make(map[models.SeverityLevel]int),
		Scores:         make([]float64, 0, len(scored)),
		ProblemCounts:  make(map[string]int),
		GeneratedAt:    time.Now(),
	}
	for _, m := range scored {
		data.SeverityCounts[m.SeverityLevel]++
		data.Scores = append(data.Scores, m.CriticalScore)
		for _, label := range m.ProblemSummary {
			data.ProblemCounts[label]++
		}
	}

	charts, err := a.renderer.Render(data)
	if err != nil {
		log.Error().Err(err).Msg("Chart rendering failed, returning partial charts")
		if charts == nil {
			charts = map[string]string{}
		}
		charts["error"] = "Chart generation error: " + err.Error()
	}
	return charts
}
