package services

import (
	"context"
	"errors"

	"github.com/username/taxinator/src/models"
)

// Sentinel errors. Handlers branch on these with errors.Is to pick status
// codes; each one names the unmet precondition or bad input.
var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrJobNotFound          = errors.New("job not found")
	ErrUnknownVendor        = errors.New("unknown vendor template")
	ErrUnknownProducer      = errors.New("unknown payload producer")
	ErrNoTransactions       = errors.New("no normalized transactions ingested")
	ErrNoIdentityRecords    = errors.New("no identity records ingested")
	ErrBlockingIssues       = errors.New("blocking validation errors present")
	ErrNoTransformedPayload = errors.New("no transformed payload for the job's vendor target")
	ErrNotReconciled        = errors.New("job must be reconciled before export")
	ErrExportBlocked        = errors.New("job requires review before export")
)

// JobService owns the job lifecycle state machine. It is the sole mutator of
// job state; every mutating call on one job runs under that job's lock, and
// reads observe fully pre- or fully post-mutation snapshots.
type JobService interface {
	StartJob(req models.StartJobRequest) (*models.StartJobResponse, error)
	IngestCostBasis(req models.CostBasisIngestRequest) (*models.IngestionResponse, error)
	IngestIdentity(req models.IdentityIngestRequest) (*models.IdentityIngestResponse, error)
	Transform(ctx context.Context, jobID string, req models.TransformRequest) (*models.TransformResponse, error)
	Reconcile(jobID string, req models.ReconcileRequest) (*models.ReconcileResponse, error)
	Export(jobID string) (*models.ExportResponse, error)
	GetJob(jobID string) (*models.Job, error)
	ListJobs() []*models.Job
	IngestLegacy(req models.LegacyIngestionRequest) (*models.IngestionResponse, error)
	Reset() error
}

// JobStore persists job snapshots. The in-memory map inside JobService is
// authoritative for a running process; the store is a write-through copy
// reloaded at startup.
type JobStore interface {
	SaveJob(job *models.Job) error
	LoadAll() ([]*models.Job, error)
	DeleteAll() error
}

// Notifier announces export-ready artifacts to a configured recipient.
// Best-effort: the orchestrator logs failures and never fails an export over
// a notification.
type Notifier interface {
	NotifyExportReady(job *models.Job, report *models.ExportReport) error
}
