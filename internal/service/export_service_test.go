package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-api/internal/dto"
	"github.com/noah-isme/academy-api/internal/models"
	"github.com/noah-isme/academy-api/internal/repository"
	appErrors "github.com/noah-isme/academy-api/pkg/errors"
	"github.com/noah-isme/academy-api/pkg/jobs"
	"github.com/noah-isme/academy-api/pkg/storage"
)

type ledgerStub struct {
	rows    []models.LedgerRow
	filters []models.PaymentFilter
}

func (l *ledgerStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.LedgerRow, error) {
	l.filters = append(l.filters, filter)
	return l.rows, nil
}

type stubExportStore struct {
	jobs map[string]*models.ExportJob
}

func (s *stubExportStore) Create(ctx context.Context, job *models.ExportJob) error {
	job.ID = "job-" + string(rune('a'+len(s.jobs)))
	job.CreatedAt = time.Now().UTC()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *stubExportStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *job
	return &copied, nil
}

func (s *stubExportStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *stubExportStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range s.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (s *stubExportStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, job := range s.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

type recordingQueue struct {
	enqueued []jobs.Job
	err      error
}

func (q *recordingQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return nil, errors.New("render failed")
}

type exportFixture struct {
	store    *stubExportStore
	queue    *recordingQueue
	ledger   *ledgerStub
	exporter *ExportService
	svc      *ExportJobService
	worker   *ExportWorker
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	className := "Math A"
	ledger := &ledgerStub{rows: []models.LedgerRow{
		{TuitionPayment: models.TuitionPayment{StudentID: "s1", Amount: 300000, PaidAmount: 150000}, StudentName: "Kim Minji", ClassName: &className},
		{TuitionPayment: models.TuitionPayment{StudentID: "s2", Amount: 250000, PaidAmount: 250000}, StudentName: "Lee Jun"},
	}}
	exporter := NewExportService(ledger, files, storage.NewSigner("secret", time.Hour), ExportConfig{APIPrefix: "/api/v1"}, zap.NewNop())
	store := &stubExportStore{jobs: map[string]*models.ExportJob{}}
	queue := &recordingQueue{}
	return &exportFixture{
		store:    store,
		queue:    queue,
		ledger:   ledger,
		exporter: exporter,
		svc:      NewExportJobService(store, queue, exporter, nil, nil, ExportJobConfig{ResultTTL: time.Hour}),
		worker:   NewExportWorker(store, exporter, NewMetricsService(), 2, nil),
	}
}

func TestExportJobLifecycle(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateJob(ctx, directorD1, dto.ExportRequest{Year: 2024, Month: 3, Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportStatusQueued), created.Status)
	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, ExportJobKind, f.queue.enqueued[0].Kind)

	require.NoError(t, f.worker.Handle(ctx, f.queue.enqueued[0]))
	assert.Equal(t, models.PaymentFilter{AcademyID: "d1", Year: 2024, Month: 3}, f.ledger.filters[0])

	status, err := f.svc.GetStatus(ctx, directorD1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.ExportStatusFinished), status.Status)
	require.NotNil(t, status.ResultURL)
	assert.True(t, strings.HasPrefix(*status.ResultURL, "/api/v1/exports/download/"))

	download, err := f.svc.ResolveDownload(ctx, extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	content, err := io.ReadAll(download.File)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Kim Minji,Math A,300000,150000,150000,partial")
	assert.Contains(t, string(content), "Lee Jun,,250000,250000,0,paid")
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))
}

func TestExportStatusHiddenFromOtherAcademies(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateJob(ctx, directorD1, dto.ExportRequest{Year: 2024, Month: 3, Format: "xlsx"})
	require.NoError(t, err)

	other := &models.Principal{UserID: "d2", Role: models.RoleDirector, AcademyID: "d2"}
	_, err = f.svc.GetStatus(ctx, other, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	teacher := &models.Principal{UserID: "t1", Role: models.RoleTeacher, AcademyID: "d1"}
	_, err = f.svc.CreateJob(ctx, teacher, dto.ExportRequest{Year: 2024, Month: 3, Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestExportRejectsBadTokensAndFormats(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.svc.ResolveDownload(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.CreateJob(context.Background(), directorD1, dto.ExportRequest{Year: 2024, Month: 3, Format: "docx"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestExportWorkerMarksFailedAfterRetries(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	worker := NewExportWorker(f.store, failingGenerator{}, nil, 2, nil)

	created, err := f.svc.CreateJob(ctx, directorD1, dto.ExportRequest{Year: 2024, Month: 3, Format: "pdf"})
	require.NoError(t, err)

	job := jobs.Job{ID: created.ID, Kind: ExportJobKind}
	assert.Error(t, worker.Handle(ctx, job))
	assert.Equal(t, models.ExportStatusQueued, f.store.jobs[created.ID].Status)

	job.Attempt = 2
	assert.Error(t, worker.Handle(ctx, job))
	assert.Equal(t, models.ExportStatusFailed, f.store.jobs[created.ID].Status)
	require.NotNil(t, f.store.jobs[created.ID].ErrorMessage)
	assert.Equal(t, "render failed", *f.store.jobs[created.ID].ErrorMessage)
}

func TestRecoverPendingJobsRequeuesQueued(t *testing.T) {
	f := newExportFixture(t)
	f.store.jobs["queued"] = &models.ExportJob{ID: "queued", AcademyID: "d1", Status: models.ExportStatusQueued}
	f.store.jobs["done"] = &models.ExportJob{ID: "done", AcademyID: "d1", Status: models.ExportStatusFinished}

	assert.Equal(t, 1, f.svc.RecoverPendingJobs(context.Background()))
	require.Len(t, f.queue.enqueued, 1)
	assert.Equal(t, "queued", f.queue.enqueued[0].ID)
}

func TestCreateJobMarksFailedWhenQueueClosed(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = jobs.ErrQueueClosed

	_, err := f.svc.CreateJob(context.Background(), directorD1, dto.ExportRequest{Year: 2024, Month: 3, Format: "csv"})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	for _, job := range f.store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}
