package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbessa/diario-turma-api/internal/models"
	"github.com/pbessa/diario-turma-api/pkg/export"
	"github.com/pbessa/diario-turma-api/pkg/storage"
)

type statsAggregator interface {
	AggregateYear(ctx context.Context, year int) (*models.YearStats, error)
	AggregateMonth(ctx context.Context, year, month int) (*models.MonthlyStats, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService renders statistics reports into files and hands back signed
// download URLs.
type ExportService struct {
	stats   statsAggregator
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(stats statsAggregator, fs fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		stats:   stats,
		storage: fs,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured ResultTTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	period := strconv.Itoa(job.Year)
	if job.Type == models.ReportTypeMonth {
		period = fmt.Sprintf("%d-%02d", job.Year, job.Month)
	}
	return fmt.Sprintf("%s_%s_%s.%s", job.Type, period, timestamp, job.Format)
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeYear:
		return s.buildYearDataset(ctx, job.Year)
	case models.ReportTypeMonth:
		return s.buildMonthDataset(ctx, job.Year, job.Month)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildYearDataset(ctx context.Context, year int) (export.Dataset, string, error) {
	stats, err := s.stats.AggregateYear(ctx, year)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(stats.PerClass)+1)
	for _, row := range stats.PerClass {
		rows = append(rows, map[string]string{
			"Turma":        row.ClassName,
			"Alunos":       strconv.Itoa(row.TotalStudents),
			"Registros":    strconv.Itoa(row.TotalRecords),
			"Presença (%)": strconv.Itoa(row.AttendancePercentage),
			"Tarefa (%)":   strconv.Itoa(row.HomeworkPercentage),
			"Mochila (%)":  strconv.Itoa(row.BackpackPercentage),
		})
	}
	rows = append(rows, map[string]string{
		"Turma":        "Total",
		"Alunos":       strconv.Itoa(stats.TotalStudents),
		"Registros":    strconv.Itoa(stats.Totals.TotalRecords),
		"Presença (%)": strconv.Itoa(stats.Totals.AttendancePercentage),
		"Tarefa (%)":   strconv.Itoa(stats.Totals.HomeworkPercentage),
		"Mochila (%)":  strconv.Itoa(stats.Totals.BackpackPercentage),
	})
	dataset := export.Dataset{
		Headers: []string{"Turma", "Alunos", "Registros", "Presença (%)", "Tarefa (%)", "Mochila (%)"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Estatísticas %d", year), nil
}

func (s *ExportService) buildMonthDataset(ctx context.Context, year, month int) (export.Dataset, string, error) {
	stats, err := s.stats.AggregateMonth(ctx, year, month)
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(stats.DailySeries)+1)
	for _, day := range stats.DailySeries {
		rows = append(rows, map[string]string{
			"Data":         day.Date,
			"Registros":    strconv.Itoa(day.TotalRecords),
			"Presença (%)": strconv.Itoa(day.AttendancePercentage),
			"Tarefa (%)":   strconv.Itoa(day.HomeworkPercentage),
			"Mochila (%)":  strconv.Itoa(day.BackpackPercentage),
		})
	}
	rows = append(rows, map[string]string{
		"Data":         "Média",
		"Registros":    strconv.Itoa(stats.TotalDaysWithData),
		"Presença (%)": strconv.Itoa(stats.Averages.Attendance),
		"Tarefa (%)":   strconv.Itoa(stats.Averages.Homework),
		"Mochila (%)":  strconv.Itoa(stats.Averages.Backpack),
	})
	dataset := export.Dataset{
		Headers: []string{"Data", "Registros", "Presença (%)", "Tarefa (%)", "Mochila (%)"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Estatísticas %02d/%d", month, year), nil
}
