package repository

import (
	"github.com/diillson/aws-cost-monitor-go/internal/domain/entity"
)

// ReportRenderer formata a avaliação para envio por e-mail.
type ReportRenderer interface {
	Subject(eval *entity.Evaluation) string
	RenderHTML(eval *entity.Evaluation) (string, error)
	RenderText(eval *entity.Evaluation) string
	RenderFallback(eval *entity.Evaluation, cause error) (string, string)
}

type ExportRepository interface {
	ExportToCSV(eval *entity.Evaluation, filename string, outputDir string) (string, error)
	ExportToJSON(eval *entity.Evaluation, filename string, outputDir string) (string, error)
	ExportToPDF(eval *entity.Evaluation, filename string, outputDir string) (string, error)
}
