package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
	"github.com/diillson/aws-cost-monitor-go/internal/domain/repository"
	"github.com/jung-kurt/gofpdf"
)

// ExportRepositoryImpl implementa o ExportRepository.
type ExportRepositoryImpl struct{}

// NewExportRepository cria uma nova implementação do ExportRepository.
func NewExportRepository() repository.ExportRepository {
	return &ExportRepositoryImpl{}
}

// ExportToCSV writes one row per account+service comparing yesterday with the baseline day.
func (r *ExportRepositoryImpl) ExportToCSV(eval *entity.Evaluation, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "csv", eval.EvaluatedAt)
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	headers := []string{
		"Account ID", "Account Name", "Service",
		"Current Cost", "Previous Cost", "Change", "% Change",
		"AI Service", "Finding",
	}
	if err := writer.Write(headers); err != nil {
		return "", fmt.Errorf("error writing CSV header: %w", err)
	}

	severity := make(map[entity.Scope]entity.Severity, len(eval.Findings))
	for _, f := range eval.Findings {
		severity[f.Scope] = f.Severity
	}

	v := buildView(eval)
	for _, account := range v.Accounts {
		for _, s := range account.Services {
			record := []string{
				account.ID,
				account.Name,
				s.Name,
				s.Current,
				s.Previous,
				s.Delta,
				s.Percent,
				fmt.Sprintf("%t", s.AI),
				string(severity[entity.Scope{AccountID: account.ID, ServiceName: s.Name}]),
			}
			if err := writer.Write(record); err != nil {
				return "", fmt.Errorf("error writing CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("error flushing CSV file: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// ExportToJSON writes the whole evaluation.
func (r *ExportRepositoryImpl) ExportToJSON(eval *entity.Evaluation, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "json", eval.EvaluatedAt)
	if err != nil {
		return "", err
	}

	file, err := os.Create(outputFilename)
	if err != nil {
		return "", fmt.Errorf("error creating JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(eval); err != nil {
		return "", fmt.Errorf("error encoding JSON data: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// ExportToPDF renders the report in the dashboard PDF layout: one summary page followed by
// one page per account.
func (r *ExportRepositoryImpl) ExportToPDF(eval *entity.Evaluation, filename, outputDir string) (string, error) {
	outputFilename, err := generateFilename(filename, outputDir, "pdf", eval.EvaluatedAt)
	if err != nil {
		return "", err
	}

	v := buildView(eval)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	headerColor := [3]int{35, 47, 62}
	headerTextColor := [3]int{255, 255, 255}
	sectionTitleColor := [3]int{0, 0, 0}
	bodyTextColor := [3]int{50, 50, 50}
	lineColor := [3]int{200, 200, 200}

	drawSection := func(title string, content string) {
		if content == "" {
			return
		}
		pdf.SetFont("Arial", "B", 12)
		pdf.SetTextColor(sectionTitleColor[0], sectionTitleColor[1], sectionTitleColor[2])
		pdf.Cell(0, 8, tr(title))
		pdf.Ln(7)

		pdf.SetDrawColor(lineColor[0], lineColor[1], lineColor[2])
		pdf.Line(pdf.GetX(), pdf.GetY(), pdf.GetX()+190, pdf.GetY())
		pdf.Ln(4)

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.MultiCell(190, 5, tr(content), "", "L", false)
		pdf.Ln(8)
	}

	drawHeader := func(title, subtitle string) {
		pdf.SetFillColor(headerColor[0], headerColor[1], headerColor[2])
		pdf.SetTextColor(headerTextColor[0], headerTextColor[1], headerTextColor[2])
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 12, tr("  "+title), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.SetFillColor(240, 240, 240)
		pdf.SetTextColor(bodyTextColor[0], bodyTextColor[1], bodyTextColor[2])
		pdf.CellFormat(0, 8, tr("  "+subtitle), "", 1, "L", true, 0, "")
		pdf.Ln(6)
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		footerText := fmt.Sprintf("Generated by AWS Cost Monitor | %s | run %s", v.GeneratedAt, v.RunID)
		pdf.CellFormat(0, 10, tr(footerText), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	drawHeader("AWS Cost Report", fmt.Sprintf("%s (%s)", v.Period, v.Timezone))

	var findings []string
	for _, f := range append(append([]findingView(nil), v.Critical...), v.Findings...) {
		findings = append(findings, fmt.Sprintf("[%s] %s: %s -> %s (%s, %s)",
			strings.ToUpper(f.Severity), f.Scope, f.Prior, f.Current, f.Delta, f.Percent))
	}
	drawSection("Anomalies", strings.Join(findings, "\n"))

	var totals []string
	for _, t := range v.Totals {
		amount := t.Amount
		if !t.Available {
			amount = "data unavailable"
		}
		totals = append(totals, fmt.Sprintf("%s (%s): %s", t.Name, t.Range, amount))
	}
	if v.Change.Available {
		totals = append(totals, fmt.Sprintf("Change vs %s: %s (%s)", v.BaselinePeriod, v.Change.Delta, v.Change.Percent))
	}
	drawSection("Cost Summary", strings.Join(totals, "\n"))

	var budgets []string
	for _, b := range v.Budgets {
		line := fmt.Sprintf("%s: %s of %s (%s)", b.Name, b.Actual, b.Limit, b.Used)
		if b.Forecast != "" {
			line += ", forecast " + b.Forecast
		}
		budgets = append(budgets, line)
	}
	drawSection("Budget Status", strings.Join(budgets, "\n"))

	for _, account := range v.Accounts {
		pdf.AddPage()
		drawHeader(account.Name, fmt.Sprintf("Account ID: %s | Total %s (%s, %s)", account.ID, account.Total, account.Delta, account.Percent))

		var services []string
		for _, s := range account.Services {
			marker := ""
			if s.AI {
				marker = " [AI]"
			}
			services = append(services, fmt.Sprintf("%s%s: %s (prev %s, %s, %s)", s.Name, marker, s.Current, s.Previous, s.Delta, s.Percent))
		}
		drawSection("Cost By Service", strings.Join(services, "\n"))
	}

	if err := pdf.OutputFileAndClose(outputFilename); err != nil {
		return "", fmt.Errorf("error writing PDF file: %w", err)
	}

	return filepath.Abs(outputFilename)
}

// --- Funções Auxiliares ---

// generateFilename cria um nome de arquivo com o timestamp da avaliação e garante que o diretório exista.
func generateFilename(base, dir, ext string, at time.Time) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("could not get current working directory: %w", err)
		}
		dir = cwd
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("error creating output directory '%s': %w", dir, err)
	}
	if at.IsZero() {
		at = time.Now()
	}
	filename := fmt.Sprintf("%s_%s.%s", base, at.UTC().Format("20060102_150405"), ext)
	return filepath.Join(dir, filename), nil
}
