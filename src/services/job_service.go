package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/processors"
	"github.com/username/taxinator/src/registry"
)

const (
	ckJobView = "job_view_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type jobServiceImpl struct {
	templates  *registry.Registry
	normalizer processors.Normalizer
	validator  processors.Validator
	reconciler processors.Reconciler
	producers  map[string]processors.PayloadProducer
	exporter   processors.Exporter
	notifier   Notifier
	store      JobStore
	viewCache  *cache.Cache

	exportFromNeedsReview bool

	mu    sync.RWMutex // guards jobs and locks maps
	jobs  map[string]*models.Job
	locks map[string]*sync.Mutex
}

// NewJobService wires the orchestrator. Previously persisted jobs are
// reloaded from the store so a restart does not orphan in-flight work.
func NewJobService(
	templates *registry.Registry,
	normalizer processors.Normalizer,
	validator processors.Validator,
	reconciler processors.Reconciler,
	producers map[string]processors.PayloadProducer,
	exporter processors.Exporter,
	notifier Notifier,
	store JobStore,
	viewCache *cache.Cache,
	exportFromNeedsReview bool,
) (JobService, error) {
	s := &jobServiceImpl{
		templates:             templates,
		normalizer:            normalizer,
		validator:             validator,
		reconciler:            reconciler,
		producers:             producers,
		exporter:              exporter,
		notifier:              notifier,
		store:                 store,
		viewCache:             viewCache,
		exportFromNeedsReview: exportFromNeedsReview,
		jobs:                  make(map[string]*models.Job),
		locks:                 make(map[string]*sync.Mutex),
	}

	persisted, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("error reloading persisted jobs: %w", err)
	}
	for _, job := range persisted {
		s.jobs[job.ID] = job
	}
	if len(persisted) > 0 {
		logger.L.Info("Reloaded persisted jobs", "count", len(persisted))
	}
	return s, nil
}

// lockFor returns the per-job mutex, creating it on first use. Two
// concurrent mutations on the same job can never interleave their
// compute-and-publish sequence.
func (s *jobServiceImpl) lockFor(jobID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lk, ok := s.locks[jobID]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[jobID] = lk
	}
	return lk
}

// current returns the live pointer for a job. Published job values are never
// mutated in place, so callers may clone without holding the job lock.
func (s *jobServiceImpl) current(jobID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return job, nil
}

// publish persists then swaps in the updated job snapshot. Nothing is
// visible to readers until the whole mutation has succeeded.
func (s *jobServiceImpl) publish(job *models.Job) error {
	if err := s.store.SaveJob(job); err != nil {
		return err
	}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	s.viewCache.Delete(fmt.Sprintf(ckJobView, job.ID))
	return nil
}

func advanceTo(job *models.Job, status models.JobStatus) {
	if job.Status.Before(status) {
		job.Status = status
	}
}

func (s *jobServiceImpl) StartJob(req models.StartJobRequest) (*models.StartJobResponse, error) {
	if req.TaxYear <= 0 {
		return nil, fmt.Errorf("%w: tax_year must be a positive year", ErrInvalidRequest)
	}
	if req.VendorSource == "" {
		return nil, fmt.Errorf("%w: vendor_source is required", ErrInvalidRequest)
	}
	if _, ok := s.templates.Get(req.VendorTarget); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, req.VendorTarget)
	}

	job := &models.Job{
		ID:           uuid.NewString(),
		TaxYear:      req.TaxYear,
		VendorSource: req.VendorSource,
		VendorTarget: req.VendorTarget,
		Status:       models.StatusPendingUpload,
		StartedBy:    req.StartedBy,
		CreatedAt:    time.Now().UTC(),
		Tags:         append([]string(nil), req.Tags...),
		Transactions: []models.NormalizedTransaction{},
		Identities:   []models.IdentityRecord{},
		Translations: make(map[string]*models.TranslationPayload),
	}
	if err := s.publish(job); err != nil {
		return nil, err
	}

	logger.L.Info("Job started", "jobID", job.ID, "taxYear", job.TaxYear, "vendorTarget", job.VendorTarget, "startedBy", job.StartedBy)
	return &models.StartJobResponse{JobID: job.ID, Status: job.Status}, nil
}

func (s *jobServiceImpl) IngestCostBasis(req models.CostBasisIngestRequest) (*models.IngestionResponse, error) {
	if len(req.Records) == 0 {
		return nil, fmt.Errorf("%w: records batch is empty", ErrInvalidRequest)
	}

	lk := s.lockFor(req.JobID)
	lk.Lock()
	defer lk.Unlock()

	cur, err := s.current(req.JobID)
	if err != nil {
		return nil, err
	}
	work := cur.Clone()

	result := s.normalizer.Normalize(req.Records)

	// Append semantics: re-ingestion appends, never replaces. Validation
	// always reruns over the full current set since suggested fixes and
	// aggregate codes are set-level.
	work.Transactions = append(work.Transactions, result.Transactions...)
	summary := result.Summary
	work.IngestionSummary = &summary
	report := s.validator.Validate(work.Transactions)
	work.Validation = &report
	advanceTo(work, models.StatusIngested)

	if err := s.publish(work); err != nil {
		return nil, err
	}

	logger.L.Info("Cost-basis batch ingested",
		"jobID", work.ID,
		"batchRows", summary.TotalRows,
		"malformed", summary.MalformedRows,
		"normalizedTotal", len(work.Transactions),
		"blockingErrors", len(report.Errors))

	return &models.IngestionResponse{
		JobID:            work.ID,
		Status:           work.Status,
		IngestionSummary: summary,
		Validation:       report,
		Summary:          models.Summarize(work.Transactions),
		NormalizedCount:  len(work.Transactions),
	}, nil
}

func (s *jobServiceImpl) IngestIdentity(req models.IdentityIngestRequest) (*models.IdentityIngestResponse, error) {
	if len(req.Records) == 0 {
		return nil, fmt.Errorf("%w: records batch is empty", ErrInvalidRequest)
	}
	for _, record := range req.Records {
		if record.CustomerID == "" {
			return nil, fmt.Errorf("%w: identity record missing customer_id", ErrInvalidRequest)
		}
	}

	lk := s.lockFor(req.JobID)
	lk.Lock()
	defer lk.Unlock()

	cur, err := s.current(req.JobID)
	if err != nil {
		return nil, err
	}
	work := cur.Clone()
	work.Identities = append(work.Identities, req.Records...)

	if err := s.publish(work); err != nil {
		return nil, err
	}

	logger.L.Info("Identity batch ingested", "jobID", work.ID, "batchRecords", len(req.Records), "totalRecords", len(work.Identities))
	return &models.IdentityIngestResponse{
		JobID:         work.ID,
		Status:        work.Status,
		RecordCount:   len(req.Records),
		TotalRecorded: len(work.Identities),
	}, nil
}

func (s *jobServiceImpl) Transform(ctx context.Context, jobID string, req models.TransformRequest) (*models.TransformResponse, error) {
	producerName := req.Producer
	if producerName == "" {
		producerName = models.ProducerTemplate
	}
	producer, ok := s.producers[producerName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProducer, producerName)
	}

	lk := s.lockFor(jobID)
	lk.Lock()
	defer lk.Unlock()

	cur, err := s.current(jobID)
	if err != nil {
		return nil, err
	}

	vendorKey := req.VendorKey
	if vendorKey == "" {
		vendorKey = cur.VendorTarget
	}
	template, ok := s.templates.Get(vendorKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVendor, vendorKey)
	}
	if len(cur.Transactions) == 0 {
		return nil, fmt.Errorf("%w: job %s", ErrNoTransactions, jobID)
	}
	if cur.Validation.HasBlockingErrors() {
		return nil, fmt.Errorf("%w: %d error(s) must be resolved first", ErrBlockingIssues, len(cur.Validation.Errors))
	}

	work := cur.Clone()
	payload, err := producer.Produce(ctx, work.Transactions, template)
	if err != nil {
		return nil, err
	}

	work.Translations[vendorKey] = payload
	advanceTo(work, models.StatusTransformed)

	if err := s.publish(work); err != nil {
		return nil, err
	}

	logger.L.Info("Job transformed", "jobID", work.ID, "vendorKey", vendorKey, "producer", producerName, "records", len(payload.Records))
	resp := &models.TransformResponse{
		JobID:     work.ID,
		VendorKey: vendorKey,
		Status:    work.Status,
		Payload:   *payload,
	}
	if req.IncludeNormalized {
		resp.Normalized = append([]models.NormalizedTransaction(nil), work.Transactions...)
	}
	return resp, nil
}

func (s *jobServiceImpl) Reconcile(jobID string, req models.ReconcileRequest) (*models.ReconcileResponse, error) {
	lk := s.lockFor(jobID)
	lk.Lock()
	defer lk.Unlock()

	cur, err := s.current(jobID)
	if err != nil {
		return nil, err
	}
	if len(cur.Transactions) == 0 {
		return nil, fmt.Errorf("%w: job %s", ErrNoTransactions, jobID)
	}
	if len(cur.Identities) == 0 {
		return nil, fmt.Errorf("%w: job %s", ErrNoIdentityRecords, jobID)
	}

	work := cur.Clone()
	result := s.reconciler.Reconcile(work.Transactions, work.Identities, req.ExpectedTotals)
	work.Reconciliation = &result

	// Misalignment covers both totals out of tolerance and uncovered
	// accounts; either one parks the job in needs_review.
	clean := result.Aligned && len(result.MismatchedAccounts) == 0
	if clean {
		if !models.StatusReconciled.Before(work.Status) {
			work.Status = models.StatusReconciled
		}
	} else if work.Status != models.StatusExported {
		work.Status = models.StatusNeedsReview
	}

	if err := s.publish(work); err != nil {
		return nil, err
	}

	logger.L.Info("Job reconciled",
		"jobID", work.ID,
		"aligned", result.Aligned,
		"mismatchedAccounts", len(result.MismatchedAccounts),
		"status", work.Status)
	return &models.ReconcileResponse{JobID: work.ID, Status: work.Status, Result: result}, nil
}

func (s *jobServiceImpl) Export(jobID string) (*models.ExportResponse, error) {
	lk := s.lockFor(jobID)
	lk.Lock()
	defer lk.Unlock()

	cur, err := s.current(jobID)
	if err != nil {
		return nil, err
	}

	payload, ok := cur.Translations[cur.VendorTarget]
	if !ok {
		return nil, fmt.Errorf("%w: run transform for %q first", ErrNoTransformedPayload, cur.VendorTarget)
	}
	switch {
	case cur.Status == models.StatusNeedsReview && !s.exportFromNeedsReview:
		return nil, fmt.Errorf("%w: job %s", ErrExportBlocked, jobID)
	case cur.Status != models.StatusNeedsReview && cur.Status.Before(models.StatusReconciled):
		return nil, fmt.Errorf("%w: job %s is %s", ErrNotReconciled, jobID, cur.Status)
	}

	work := cur.Clone()
	report, err := s.exporter.Export(work.ID, payload)
	if err != nil {
		return nil, err
	}
	work.Export = report
	advanceTo(work, models.StatusExported)

	if err := s.publish(work); err != nil {
		return nil, err
	}

	if err := s.notifier.NotifyExportReady(work.Clone(), report); err != nil {
		logger.L.Warn("Export notification failed", "jobID", work.ID, "error", err)
	}

	logger.L.Info("Job exported", "jobID", work.ID, "vendorKey", report.VendorKey, "locator", report.DownloadLocator)
	return &models.ExportResponse{
		JobID:           work.ID,
		Status:          work.Status,
		DownloadLocator: report.DownloadLocator,
		DownloadToken:   report.DownloadToken,
		WebhookEvent:    report.WebhookEvent,
		ContentHash:     report.ContentHash,
		RecordCount:     report.RecordCount,
	}, nil
}

func (s *jobServiceImpl) GetJob(jobID string) (*models.Job, error) {
	cacheKey := fmt.Sprintf(ckJobView, jobID)
	if cached, found := s.viewCache.Get(cacheKey); found {
		return cached.(*models.Job).Clone(), nil
	}

	job, err := s.current(jobID)
	if err != nil {
		return nil, err
	}
	view := job.Clone()
	s.viewCache.Set(cacheKey, view, DefaultCacheExpiration)
	return view.Clone(), nil
}

func (s *jobServiceImpl) ListJobs() []*models.Job {
	s.mu.RLock()
	jobs := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})
	out := make([]*models.Job, len(jobs))
	for i, job := range jobs {
		out[i] = job.Clone()
	}
	return out
}

// IngestLegacy keeps the one-shot contract for older providers: auto-create
// a job around a single batch, then run the normal ingestion path.
func (s *jobServiceImpl) IngestLegacy(req models.LegacyIngestionRequest) (*models.IngestionResponse, error) {
	if len(req.Transactions) == 0 {
		return nil, fmt.Errorf("%w: transactions batch is empty", ErrInvalidRequest)
	}
	vendorTarget := req.VendorTarget
	if vendorTarget == "" {
		vendorTarget = "fis"
	}
	taxYear := req.TaxYear
	if taxYear == 0 {
		taxYear = time.Now().UTC().Year()
	}
	vendorSource := req.Vendor.Name
	if vendorSource == "" {
		vendorSource = req.PayloadSource
	}

	started, err := s.StartJob(models.StartJobRequest{
		TaxYear:      taxYear,
		VendorSource: vendorSource,
		VendorTarget: vendorTarget,
		Tags:         req.Tags,
	})
	if err != nil {
		return nil, err
	}
	return s.IngestCostBasis(models.CostBasisIngestRequest{JobID: started.JobID, Records: req.Transactions})
}

func (s *jobServiceImpl) Reset() error {
	s.mu.Lock()
	s.jobs = make(map[string]*models.Job)
	s.locks = make(map[string]*sync.Mutex)
	s.mu.Unlock()
	s.viewCache.Flush()
	if err := s.store.DeleteAll(); err != nil {
		return err
	}
	logger.L.Info("Job store reset")
	return nil
}
