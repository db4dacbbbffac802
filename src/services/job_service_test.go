package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/processors"
	"github.com/username/taxinator/src/registry"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestService(t *testing.T, store JobStore, exportFromNeedsReview bool) JobService {
	t.Helper()
	templates, err := registry.Load("")
	require.NoError(t, err)

	transformer := processors.NewTransformationEngine()
	svc, err := NewJobService(
		templates,
		processors.NewNormalizationEngine(),
		processors.NewValidationEngine(),
		processors.NewReconciliationEngine(decimal.RequireFromString("0.01")),
		map[string]processors.PayloadProducer{models.ProducerTemplate: transformer},
		processors.NewExportEngine("test-export-signing-key-0123456789abcdef"),
		&MockNotifier{},
		store,
		cache.New(time.Minute, time.Minute),
		exportFromNeedsReview,
	)
	require.NoError(t, err)
	return svc
}

func rawRow(txID, account string) models.RawRecord {
	return models.RawRecord{
		"transaction_id":   txID,
		"account_id":       account,
		"asset_symbol":     txID + "-SYM",
		"proceeds":         "1500.00",
		"cost_basis":       "1200.00",
		"acquisition_date": "2023-01-10",
		"disposition_date": "2023-09-20",
	}
}

func identityFor(account string) models.IdentityRecord {
	return models.IdentityRecord{
		CustomerID: account,
		TIN:        "123-45-6789",
		FullName:   "Jamie Example",
	}
}

func startTestJob(t *testing.T, svc JobService) string {
	t.Helper()
	started, err := svc.StartJob(models.StartJobRequest{
		TaxYear:      2024,
		VendorSource: "demo_vendor",
		VendorTarget: "fis",
		StartedBy:    "broker_admin",
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingUpload, started.Status)
	return started.JobID
}

func TestStartJobValidation(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)

	_, err := svc.StartJob(models.StartJobRequest{TaxYear: 0, VendorSource: "x", VendorTarget: "fis"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.StartJob(models.StartJobRequest{TaxYear: 2024, VendorSource: "", VendorTarget: "fis"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = svc.StartJob(models.StartJobRequest{TaxYear: 2024, VendorSource: "x", VendorTarget: "nope"})
	assert.ErrorIs(t, err, ErrUnknownVendor)
}

func TestFullPipelineHappyPath(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	ingested, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID:   jobID,
		Records: []models.RawRecord{rawRow("T-1", "ACC-001"), rawRow("T-2", "ACC-002")},
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusIngested, ingested.Status)
	assert.Equal(t, 2, ingested.NormalizedCount)
	assert.Empty(t, ingested.Validation.Errors)
	assert.Equal(t, 2, ingested.Summary.TotalTransactions)
	assert.Equal(t, "3000", ingested.Summary.TotalProceeds.String())

	_, err = svc.IngestIdentity(models.IdentityIngestRequest{
		JobID:   jobID,
		Records: []models.IdentityRecord{identityFor("ACC-001"), identityFor("ACC-002")},
	})
	require.NoError(t, err)

	transformed, err := svc.Transform(context.Background(), jobID, models.TransformRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransformed, transformed.Status)
	assert.Equal(t, "fis", transformed.VendorKey, "vendor key defaults to the job's target")
	assert.Len(t, transformed.Payload.Records, 2)

	reconciled, err := svc.Reconcile(jobID, models.ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, reconciled.Status)
	assert.True(t, reconciled.Result.Aligned)
	assert.Empty(t, reconciled.Result.MismatchedAccounts)

	exported, err := svc.Export(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExported, exported.Status)
	assert.Equal(t, processors.WebhookEventExported, exported.WebhookEvent)
	assert.Equal(t, 2, exported.RecordCount)
	assert.NotEmpty(t, exported.DownloadLocator)
	assert.NotEmpty(t, exported.DownloadToken)

	job, err := svc.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExported, job.Status)
	require.NotNil(t, job.Export)
	assert.Equal(t, exported.ContentHash, job.Export.ContentHash)
}

func TestIngestionAppendsAcrossBatches(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	first, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.NormalizedCount)

	second, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-2", "ACC-002")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.NormalizedCount, "re-ingestion appends, never replaces")
	assert.Equal(t, 1, second.IngestionSummary.TotalRows, "summary describes the latest batch")
	assert.Equal(t, 2, second.Summary.TotalTransactions)
}

func TestTransformGuards(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)

	t.Run("no transactions", func(t *testing.T) {
		jobID := startTestJob(t, svc)
		_, err := svc.Transform(context.Background(), jobID, models.TransformRequest{})
		assert.ErrorIs(t, err, ErrNoTransactions)
	})

	t.Run("blocking validation errors", func(t *testing.T) {
		jobID := startTestJob(t, svc)
		_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
			JobID: jobID,
			Records: []models.RawRecord{
				// No trade dates: required-field and classification errors.
				{"transaction_id": "T-1", "account_id": "ACC-001", "proceeds": "100", "cost_basis": "50"},
			},
		})
		require.NoError(t, err)
		_, err = svc.Transform(context.Background(), jobID, models.TransformRequest{})
		assert.ErrorIs(t, err, ErrBlockingIssues)
	})

	t.Run("unknown vendor key", func(t *testing.T) {
		jobID := startTestJob(t, svc)
		_, err := svc.Transform(context.Background(), jobID, models.TransformRequest{VendorKey: "nope"})
		assert.ErrorIs(t, err, ErrUnknownVendor)
	})

	t.Run("unknown producer", func(t *testing.T) {
		jobID := startTestJob(t, svc)
		_, err := svc.Transform(context.Background(), jobID, models.TransformRequest{Producer: "quantum"})
		assert.ErrorIs(t, err, ErrUnknownProducer)
	})

	t.Run("unknown job", func(t *testing.T) {
		_, err := svc.Transform(context.Background(), "missing", models.TransformRequest{})
		assert.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestFailedTransformLeavesJobUntouched(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)
	_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
	})
	require.NoError(t, err)

	_, err = svc.Transform(context.Background(), jobID, models.TransformRequest{VendorKey: "nope"})
	require.Error(t, err)

	job, err := svc.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIngested, job.Status)
	assert.Empty(t, job.Translations, "failed mutations never partially apply")
}

func TestReconcileRoutesToNeedsReview(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001"), rawRow("T-2", "ACC-002")},
	})
	require.NoError(t, err)
	_, err = svc.IngestIdentity(models.IdentityIngestRequest{
		JobID: jobID, Records: []models.IdentityRecord{identityFor("ACC-001")},
	})
	require.NoError(t, err)

	result, err := svc.Reconcile(jobID, models.ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusNeedsReview, result.Status)
	assert.Equal(t, []string{"ACC-002"}, result.Result.MismatchedAccounts)

	// Supplying the missing identity and re-reconciling clears the flag.
	_, err = svc.IngestIdentity(models.IdentityIngestRequest{
		JobID: jobID, Records: []models.IdentityRecord{identityFor("ACC-002")},
	})
	require.NoError(t, err)
	result, err = svc.Reconcile(jobID, models.ReconcileRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, result.Status)
	assert.Empty(t, result.Result.MismatchedAccounts)
}

func TestReconcileAgainstExpectedTotals(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
	})
	require.NoError(t, err)
	_, err = svc.IngestIdentity(models.IdentityIngestRequest{
		JobID: jobID, Records: []models.IdentityRecord{identityFor("ACC-001")},
	})
	require.NoError(t, err)

	wrong := decimal.RequireFromString("9999.00")
	result, err := svc.Reconcile(jobID, models.ReconcileRequest{
		ExpectedTotals: &models.ExpectedTotals{TotalProceeds: &wrong},
	})
	require.NoError(t, err)
	assert.False(t, result.Result.Aligned)
	assert.Equal(t, models.StatusNeedsReview, result.Status)
}

func TestReconcilePreconditions(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	_, err := svc.Reconcile(jobID, models.ReconcileRequest{})
	assert.ErrorIs(t, err, ErrNoTransactions)

	_, err = svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
	})
	require.NoError(t, err)

	_, err = svc.Reconcile(jobID, models.ReconcileRequest{})
	assert.ErrorIs(t, err, ErrNoIdentityRecords)
}

func exportReadyJob(t *testing.T, svc JobService) string {
	t.Helper()
	jobID := startTestJob(t, svc)
	_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
		JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
	})
	require.NoError(t, err)
	_, err = svc.IngestIdentity(models.IdentityIngestRequest{
		JobID: jobID, Records: []models.IdentityRecord{identityFor("ACC-001")},
	})
	require.NoError(t, err)
	_, err = svc.Transform(context.Background(), jobID, models.TransformRequest{})
	require.NoError(t, err)
	return jobID
}

func TestExportGuards(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)

	t.Run("requires transformed payload", func(t *testing.T) {
		jobID := startTestJob(t, svc)
		_, err := svc.IngestCostBasis(models.CostBasisIngestRequest{
			JobID: jobID, Records: []models.RawRecord{rawRow("T-1", "ACC-001")},
		})
		require.NoError(t, err)
		_, err = svc.Export(jobID)
		assert.ErrorIs(t, err, ErrNoTransformedPayload)
	})

	t.Run("requires reconciliation", func(t *testing.T) {
		jobID := exportReadyJob(t, svc)
		_, err := svc.Export(jobID)
		assert.ErrorIs(t, err, ErrNotReconciled)
	})

	t.Run("blocked from needs_review", func(t *testing.T) {
		jobID := exportReadyJob(t, svc)
		wrong := decimal.RequireFromString("9999.00")
		_, err := svc.Reconcile(jobID, models.ReconcileRequest{
			ExpectedTotals: &models.ExpectedTotals{TotalProceeds: &wrong},
		})
		require.NoError(t, err)
		_, err = svc.Export(jobID)
		assert.ErrorIs(t, err, ErrExportBlocked)
	})
}

func TestExportFromNeedsReviewOverride(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), true)
	jobID := exportReadyJob(t, svc)

	wrong := decimal.RequireFromString("9999.00")
	_, err := svc.Reconcile(jobID, models.ReconcileRequest{
		ExpectedTotals: &models.ExpectedTotals{TotalProceeds: &wrong},
	})
	require.NoError(t, err)

	exported, err := svc.Export(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExported, exported.Status)
}

func TestExportIsRepeatable(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := exportReadyJob(t, svc)
	_, err := svc.Reconcile(jobID, models.ReconcileRequest{})
	require.NoError(t, err)

	first, err := svc.Export(jobID)
	require.NoError(t, err)
	second, err := svc.Export(jobID)
	require.NoError(t, err)

	assert.Equal(t, first.ContentHash, second.ContentHash)
	assert.Equal(t, first.DownloadLocator, second.DownloadLocator)
	assert.Equal(t, first.DownloadToken, second.DownloadToken)
	assert.Equal(t, models.StatusExported, second.Status)
}

func TestLegacyIngestionAutoCreatesJob(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)

	req := models.LegacyIngestionRequest{
		PayloadSource: "legacy_provider",
		Transactions:  []models.RawRecord{rawRow("T-1", "ACC-001")},
	}
	req.Vendor.Name = "Legacy Broker Co"

	resp, err := svc.IngestLegacy(req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusIngested, resp.Status)
	assert.Equal(t, 1, resp.NormalizedCount)

	job, err := svc.GetJob(resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Legacy Broker Co", job.VendorSource)
	assert.Equal(t, "fis", job.VendorTarget, "legacy jobs default to the fis target")
	assert.Equal(t, time.Now().UTC().Year(), job.TaxYear)
}

func TestListJobsSortedByCreation(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	first := startTestJob(t, svc)
	second := startTestJob(t, svc)

	jobs := svc.ListJobs()
	require.Len(t, jobs, 2)
	ids := []string{jobs[0].ID, jobs[1].ID}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
	assert.False(t, jobs[1].CreatedAt.Before(jobs[0].CreatedAt))
}

func TestResetClearsEverything(t *testing.T) {
	svc := newTestService(t, NewMemoryJobStore(), false)
	jobID := startTestJob(t, svc)

	require.NoError(t, svc.Reset())

	_, err := svc.GetJob(jobID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.Empty(t, svc.ListJobs())
}

func TestJobsSurviveRestart(t *testing.T) {
	store := NewMemoryJobStore()
	svc := newTestService(t, store, false)
	jobID := exportReadyJob(t, svc)

	restarted := newTestService(t, store, false)
	job, err := restarted.GetJob(jobID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTransformed, job.Status)
	assert.Len(t, job.Transactions, 1)
	assert.Contains(t, job.Translations, "fis")
}
