package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/pkg/export"
	"github.com/noah-isme/academy-api/pkg/storage"
)

type ledgerSource interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.LedgerRow, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
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
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

var ledgerHeaders = []string{"Student", "Class", "Amount", "Paid", "Outstanding", "Status"}

// ExportService renders a month's tuition ledger and stores it behind a signed URL.
type ExportService struct {
	ledger  ledgerSource
	storage fileStorage
	signer  *storage.Signer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(ledger ledgerSource, store fileStorage, signer *storage.Signer, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{ledger: ledger, storage: store, signer: signer, logger: logger, cfg: cfg, now: time.Now}
}

// Generate renders the job's ledger and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, err := export.RendererFor(export.Format(job.Params.Format))
	if err != nil {
		return nil, err
	}
	rows, err := s.ledger.List(ctx, models.PaymentFilter{AcademyID: job.AcademyID, Year: job.Params.Year, Month: job.Params.Month})
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	payload, err := renderer.Render(ledgerDataset(job.Params, rows))
	if err != nil {
		return nil, fmt.Errorf("render ledger: %w", err)
	}

	relPath, err := s.storage.Save(s.filename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("ledger export stored", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("rows", len(rows)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (*storage.DownloadClaims, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) filename(job *models.ExportJob) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/ledger_%04d-%02d_%s.%s", job.AcademyID, job.Params.Year, job.Params.Month, timestamp, job.Params.Format)
}

func ledgerDataset(params models.ExportJobParams, rows []models.LedgerRow) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Tuition Ledger %04d-%02d", params.Year, params.Month),
		Headers: ledgerHeaders,
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		className := ""
		if row.ClassName != nil {
			className = *row.ClassName
		}
		row.Normalize()
		data.Rows = append(data.Rows, map[string]string{
			"Student":     row.StudentName,
			"Class":       className,
			"Amount":      strconv.FormatInt(row.Amount, 10),
			"Paid":        strconv.FormatInt(row.PaidAmount, 10),
			"Outstanding": strconv.FormatInt(row.Outstanding(), 10),
			"Status":      string(row.Status),
		})
	}
	return data
}
