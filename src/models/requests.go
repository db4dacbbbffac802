package models

// StartJobRequest creates a new job.
type StartJobRequest struct {
	TaxYear      int      `json:"tax_year"`
	VendorSource string   `json:"vendor_source"`
	VendorTarget string   `json:"vendor_target"`
	StartedBy    string   `json:"started_by,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// StartJobResponse acknowledges job creation.
type StartJobResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

// CostBasisIngestRequest appends a raw transaction batch to a job.
type CostBasisIngestRequest struct {
	JobID   string      `json:"job_id"`
	Records []RawRecord `json:"records"`
}

// IngestionResponse reports on one cost-basis ingestion call. The validation
// report always reflects the job's full current normalized set, not just the
// new batch.
type IngestionResponse struct {
	JobID            string           `json:"job_id"`
	Status           JobStatus        `json:"status"`
	IngestionSummary IngestionSummary `json:"ingestion_summary"`
	Validation       ValidationReport `json:"validation"`
	Summary          JobSummary       `json:"summary"`
	NormalizedCount  int              `json:"normalized_count"`
}

// IdentityIngestRequest appends identity records to a job.
type IdentityIngestRequest struct {
	JobID   string           `json:"job_id"`
	Records []IdentityRecord `json:"records"`
}

// IdentityIngestResponse acknowledges an identity ingestion.
type IdentityIngestResponse struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	RecordCount   int       `json:"record_count"`
	TotalRecorded int       `json:"total_recorded"`
}

// Producer selection for transform requests.
const (
	ProducerTemplate = "template"
	ProducerAI       = "ai"
)

// TransformRequest maps a job's normalized set into a vendor shape.
// VendorKey defaults to the job's vendor target when empty.
type TransformRequest struct {
	VendorKey         string `json:"vendor_key,omitempty"`
	IncludeNormalized bool   `json:"include_normalized,omitempty"`
	Producer          string `json:"producer,omitempty"` // template (default) or ai
}

// TransformResponse envelopes a transformation result.
type TransformResponse struct {
	JobID      string                  `json:"job_id"`
	VendorKey  string                  `json:"vendor_key"`
	Status     JobStatus               `json:"status"`
	Payload    TranslationPayload      `json:"payload"`
	Normalized []NormalizedTransaction `json:"normalized,omitempty"`
}

// ReconcileRequest optionally supplies external expected totals.
type ReconcileRequest struct {
	ExpectedTotals *ExpectedTotals `json:"expected_totals,omitempty"`
}

// ReconcileResponse envelopes a reconciliation result.
type ReconcileResponse struct {
	JobID  string               `json:"job_id"`
	Status JobStatus            `json:"status"`
	Result ReconciliationResult `json:"result"`
}

// ExportResponse envelopes an export report.
type ExportResponse struct {
	JobID           string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	DownloadLocator string    `json:"download_locator"`
	DownloadToken   string    `json:"download_token"`
	WebhookEvent    string    `json:"webhook_event"`
	ContentHash     string    `json:"content_hash"`
	RecordCount     int       `json:"record_count"`
}

// LegacyIngestionRequest is the one-shot ingestion contract kept for older
// providers: it auto-creates a job around a single batch.
type LegacyIngestionRequest struct {
	Vendor struct {
		Name    string `json:"name"`
		Kind    string `json:"kind"`
		Contact string `json:"contact,omitempty"`
	} `json:"vendor"`
	PayloadSource string      `json:"payload_source"`
	TaxYear       int         `json:"tax_year,omitempty"`
	VendorTarget  string      `json:"vendor_target,omitempty"`
	Transactions  []RawRecord `json:"transactions"`
	Tags          []string    `json:"tags,omitempty"`
}

// AITranslateRequest asks the AI producer for a best-effort free-text
// translation into a vendor shape.
type AITranslateRequest struct {
	VendorTarget  string `json:"vendor_target,omitempty"`
	InputText     string `json:"input_text"`
	Attachments   string `json:"attachments,omitempty"`
	IncludeChecks bool   `json:"include_checks,omitempty"`
}

// AITranslateResponse carries the AI translation outcome. Status is "ok" or
// "unavailable"; the caller decides what to do with a degraded answer.
type AITranslateResponse struct {
	Status       string   `json:"status"`
	VendorTarget string   `json:"vendor_target,omitempty"`
	Translation  string   `json:"translation"`
	Checks       []string `json:"checks,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}
