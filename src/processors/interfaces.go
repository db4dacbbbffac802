package processors

import (
	"context"

	"github.com/username/taxinator/src/models"
)

// NormalizationResult is one batch's canonical output plus its summary.
type NormalizationResult struct {
	Transactions []models.NormalizedTransaction
	Summary      models.IngestionSummary
}

// Normalizer converts a raw provider batch into canonical transactions.
type Normalizer interface {
	Normalize(batch []models.RawRecord) NormalizationResult
}

// Validator runs the rule set over a job's full canonical set.
type Validator interface {
	Validate(txs []models.NormalizedTransaction) models.ValidationReport
}

// Reconciler cross-checks transactions against identity records and
// optionally supplied expected totals. Pure read/compute.
type Reconciler interface {
	Reconcile(txs []models.NormalizedTransaction, identities []models.IdentityRecord, expected *models.ExpectedTotals) models.ReconciliationResult
}

// PayloadProducer maps a canonical set into a vendor-shaped payload. The
// template engine is the deterministic producer; the AI translator is the
// best-effort alternate. Both satisfy the same contract and the export stage
// consumes their output identically.
type PayloadProducer interface {
	Produce(ctx context.Context, txs []models.NormalizedTransaction, template models.VendorTemplate) (*models.TranslationPayload, error)
}

// Exporter packages a transformed payload into an export report.
type Exporter interface {
	Export(jobID string, payload *models.TranslationPayload) (*models.ExportReport, error)
}
