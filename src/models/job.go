package models

import (
	"time"
)

// JobStatus tracks how far a job has progressed through the pipeline.
type JobStatus string

const (
	StatusPendingUpload JobStatus = "pending_upload"
	StatusIngested      JobStatus = "ingested"
	StatusTransformed   JobStatus = "transformed"
	StatusReconciled    JobStatus = "reconciled"
	StatusNeedsReview   JobStatus = "needs_review"
	StatusExported      JobStatus = "exported"
)

// rank orders statuses along the happy path. needs_review sits at the same
// depth as reconciled: it is a side branch, not a later stage.
func (s JobStatus) rank() int {
	switch s {
	case StatusPendingUpload:
		return 0
	case StatusIngested:
		return 1
	case StatusTransformed:
		return 2
	case StatusReconciled, StatusNeedsReview:
		return 3
	case StatusExported:
		return 4
	}
	return -1
}

// Before reports whether s sits strictly earlier in the pipeline than other.
func (s JobStatus) Before(other JobStatus) bool {
	return s.rank() < other.rank()
}

// Job is the unit of work: one end-to-end processing run for a tax year and
// vendor pair. The job exclusively owns every nested collection; nothing is
// shared by reference across jobs.
type Job struct {
	ID           string    `json:"job_id"`
	TaxYear      int       `json:"tax_year"`
	VendorSource string    `json:"vendor_source"`
	VendorTarget string    `json:"vendor_target"`
	Status       JobStatus `json:"status"`
	StartedBy    string    `json:"started_by"`
	CreatedAt    time.Time `json:"created_at"`
	Tags         []string  `json:"tags,omitempty"`

	// Append-only per ingestion call; insertion order is ingestion order.
	Transactions []NormalizedTransaction `json:"transactions"`
	Identities   []IdentityRecord        `json:"identities"`

	// Latest-wins artifacts.
	IngestionSummary *IngestionSummary     `json:"ingestion_summary,omitempty"`
	Validation       *ValidationReport     `json:"validation,omitempty"`
	Reconciliation   *ReconciliationResult `json:"reconciliation,omitempty"`
	Export           *ExportReport         `json:"export,omitempty"`

	// Transformed payload per vendor key; re-transforming overwrites.
	Translations map[string]*TranslationPayload `json:"translations"`
}

// Clone returns a deep copy so readers observe a consistent snapshot while
// mutations run under the per-job lock.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Tags = append([]string(nil), j.Tags...)
	c.Transactions = append([]NormalizedTransaction(nil), j.Transactions...)
	for i := range c.Transactions {
		if q := c.Transactions[i].Quantity; q != nil {
			v := *q
			c.Transactions[i].Quantity = &v
		}
	}
	c.Identities = append([]IdentityRecord(nil), j.Identities...)
	if j.IngestionSummary != nil {
		s := j.IngestionSummary.clone()
		c.IngestionSummary = &s
	}
	if j.Validation != nil {
		v := j.Validation.clone()
		c.Validation = &v
	}
	if j.Reconciliation != nil {
		r := j.Reconciliation.clone()
		c.Reconciliation = &r
	}
	if j.Export != nil {
		e := *j.Export
		c.Export = &e
	}
	c.Translations = make(map[string]*TranslationPayload, len(j.Translations))
	for key, payload := range j.Translations {
		p := payload.clone()
		c.Translations[key] = &p
	}
	return &c
}

// IdentityRecord is a personal-identity row from an upstream provider,
// keyed by the customer/account identifier used on cost-basis records.
type IdentityRecord struct {
	CustomerID string `json:"customer_id"`
	TIN        string `json:"tin,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	Address    string `json:"address,omitempty"`
	Email      string `json:"email,omitempty"`
}
