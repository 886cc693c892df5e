// Package reporting renders fleet triage report artifacts as PDF.
package reporting

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/fleettriage/fleettriage/internal/models"
	"github.com/fleettriage/fleettriage/internal/triage"
)

// Color scheme - professional dark blue theme
var (
	colorPrimary   = [3]int{30, 58, 95}    // Dark navy
	colorTextDark  = [3]int{44, 62, 80}    // Dark text
	colorTextMuted = [3]int{127, 140, 141} // Muted text
	colorGridLine  = [3]int{220, 220, 220} // Chart grid
	colorHistogram = [3]int{155, 89, 182}  // Purple bars
	severityColors = map[models.SeverityLevel][3]int{
		models.SeverityLow:      {46, 204, 113},
		models.SeverityMedium:   {243, 156, 18},
		models.SeverityHigh:     {230, 126, 34},
		models.SeverityCritical: {231, 76, 60},
	}
)

// PDFRenderer renders triage data series into a single named PDF artifact.
type PDFRenderer struct{}

// NewPDFRenderer creates a new PDF renderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render implements triage.Renderer. The artifact map carries the report
// under "fleet_report", base64-encoded.
func (g *PDFRenderer) Render(data triage.RenderData) (map[string]string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)

	pdf.AddPage()
	g.writeHeader(pdf, data.GeneratedAt)
	g.writeSeverityDistribution(pdf, data.SeverityCounts)
	g.writeScoreHistogram(pdf, data.Scores)

	pdf.AddPage()
	g.writeHeader(pdf, data.GeneratedAt)
	g.writeProblemTypes(pdf, data.ProblemCounts)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render fleet report: %w", err)
	}

	return map[string]string{
		"fleet_report": base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

func (g *PDFRenderer) writeHeader(pdf *fpdf.Fpdf, at time.Time) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 10, "Fleet Triage Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, "Generated "+at.Format(time.RFC3339), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFRenderer) writeSeverityDistribution(pdf *fpdf.Fpdf, counts map[models.SeverityLevel]int) {
	g.sectionTitle(pdf, "Machine Severity Distribution")

	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		g.emptyNote(pdf)
		return
	}

	levels := []models.SeverityLevel{
		models.SeverityLow, models.SeverityMedium, models.SeverityHigh, models.SeverityCritical,
	}
	const barMaxWidth = 120.0
	maxCount := 0
	for _, lvl := range levels {
		if counts[lvl] > maxCount {
			maxCount = counts[lvl]
		}
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, lvl := range levels {
		n := counts[lvl]
		c := severityColors[lvl]
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(30, 8, string(lvl), "", 0, "L", false, 0, "")

		width := 0.0
		if maxCount > 0 {
			width = barMaxWidth * float64(n) / float64(maxCount)
		}
		pdf.SetFillColor(c[0], c[1], c[2])
		x, y := pdf.GetXY()
		pdf.Rect(x, y+1.5, width, 5, "F")
		pdf.SetX(x + barMaxWidth + 2)
		pdf.CellFormat(0, 8, fmt.Sprintf("%d (%.1f%%)", n, float64(n)/float64(total)*100), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

// writeScoreHistogram draws the critical-score distribution with the
// severity threshold edges marked.
func (g *PDFRenderer) writeScoreHistogram(pdf *fpdf.Fpdf, scores []float64) {
	g.sectionTitle(pdf, "Critical Score Distribution")
	if len(scores) == 0 {
		g.emptyNote(pdf)
		return
	}

	const bins = 20
	const maxScore = 19.0
	histogram := make([]int, bins)
	for _, s := range scores {
		idx := int(s / maxScore * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		histogram[idx]++
	}

	maxCount := 0
	for _, n := range histogram {
		if n > maxCount {
			maxCount = n
		}
	}

	const chartWidth, chartHeight = 150.0, 50.0
	originX, originY := 30.0, pdf.GetY()+chartHeight

	pdf.SetDrawColor(colorGridLine[0], colorGridLine[1], colorGridLine[2])
	pdf.Line(originX, originY, originX+chartWidth, originY)
	pdf.Line(originX, originY, originX, originY-chartHeight)

	barWidth := chartWidth / float64(bins)
	pdf.SetFillColor(colorHistogram[0], colorHistogram[1], colorHistogram[2])
	for i, n := range histogram {
		if n == 0 {
			continue
		}
		h := chartHeight * float64(n) / float64(maxCount)
		pdf.Rect(originX+float64(i)*barWidth, originY-h, barWidth-0.5, h, "F")
	}

	// Threshold markers at the severity bin edges
	for _, edge := range []struct {
		score float64
		color [3]int
	}{
		{3, severityColors[models.SeverityLow]},
		{5, severityColors[models.SeverityMedium]},
		{7, severityColors[models.SeverityCritical]},
	} {
		x := originX + chartWidth*edge.score/maxScore
		pdf.SetDrawColor(edge.color[0], edge.color[1], edge.color[2])
		pdf.Line(x, originY, x, originY-chartHeight)
	}

	pdf.SetY(originY + 4)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 5, "Markers: Low <= 3, Medium <= 5, High <= 7, Critical above", "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (g *PDFRenderer) writeProblemTypes(pdf *fpdf.Fpdf, counts map[string]int) {
	g.sectionTitle(pdf, "Problem Types")
	if len(counts) == 0 {
		g.emptyNote(pdf)
		return
	}

	labels := make([]string, 0, len(counts))
	maxCount := 0
	for label, n := range counts {
		labels = append(labels, label)
		if n > maxCount {
			maxCount = n
		}
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	const barMaxWidth = 100.0
	pdf.SetFont("Helvetica", "", 9)
	for _, label := range labels {
		n := counts[label]
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
		pdf.CellFormat(55, 7, label, "", 0, "L", false, 0, "")

		width := barMaxWidth * float64(n) / float64(maxCount)
		pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
		x, y := pdf.GetXY()
		pdf.Rect(x, y+1.5, width, 4, "F")
		pdf.SetX(x + barMaxWidth + 2)
		pdf.CellFormat(0, 7, fmt.Sprintf("%d", n), "", 1, "L", false, 0, "")
	}
}

func (g *PDFRenderer) sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (g *PDFRenderer) emptyNote(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	pdf.CellFormat(0, 6, "No data", "", 1, "L", false, 0, "")
	pdf.Ln(4)
}
