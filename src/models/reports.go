package models

import "github.com/shopspring/decimal"

// Issue severities. Errors block transform/export; warnings never block.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationIssue is one rule violation or advisory with a stable code.
type ValidationIssue struct {
	Code          string `json:"code"`
	Message       string `json:"message"`
	Severity      string `json:"severity"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// ValidationReport aggregates the most recent validation pass over the job's
// full normalized set. Suggested fixes are advisory text, one per distinct
// error code family.
type ValidationReport struct {
	Errors         []ValidationIssue `json:"errors"`
	Warnings       []ValidationIssue `json:"warnings"`
	SuggestedFixes []string          `json:"suggested_fixes"`
}

// HasBlockingErrors reports whether any error-severity issue is present.
func (r *ValidationReport) HasBlockingErrors() bool {
	return r != nil && len(r.Errors) > 0
}

func (r ValidationReport) clone() ValidationReport {
	return ValidationReport{
		Errors:         append([]ValidationIssue(nil), r.Errors...),
		Warnings:       append([]ValidationIssue(nil), r.Warnings...),
		SuggestedFixes: append([]string(nil), r.SuggestedFixes...),
	}
}

// ExpectedTotals are externally supplied aggregate figures to reconcile
// against. All fields optional; nil means "no external expectation".
type ExpectedTotals struct {
	TotalProceeds  *decimal.Decimal `json:"total_proceeds,omitempty"`
	TotalCostBasis *decimal.Decimal `json:"total_cost_basis,omitempty"`
	TotalGainLoss  *decimal.Decimal `json:"total_gain_loss,omitempty"`
}

// ReconciliationResult cross-checks identity coverage and aggregate totals.
type ReconciliationResult struct {
	// Accounts referenced by transactions with no covering identity record.
	MismatchedAccounts []string `json:"mismatched_accounts"`

	// True when recomputed aggregates tie out against expected totals within
	// tolerance (vacuously true when no expectations were supplied).
	Aligned bool `json:"aligned"`

	TotalProceeds  decimal.Decimal `json:"total_proceeds"`
	TotalCostBasis decimal.Decimal `json:"total_cost_basis"`
	TotalGainLoss  decimal.Decimal `json:"total_gain_loss"`
}

func (r ReconciliationResult) clone() ReconciliationResult {
	c := r
	c.MismatchedAccounts = append([]string(nil), r.MismatchedAccounts...)
	return c
}

// TranslationPayload is a vendor-shaped rendering of a job's normalized set.
// Content is deterministic for identical inputs: no wall-clock fields.
type TranslationPayload struct {
	VendorKey     string              `json:"vendor_key"`
	SchemaVersion string              `json:"schema_version"`
	Format        string              `json:"format"`
	Records       []map[string]string `json:"records"`
	Rendered      string              `json:"rendered,omitempty"`
	HumanReadable string              `json:"human_readable,omitempty"`
	Producer      string              `json:"producer,omitempty"`
}

func (p *TranslationPayload) clone() TranslationPayload {
	c := *p
	c.Records = make([]map[string]string, len(p.Records))
	for i, rec := range p.Records {
		m := make(map[string]string, len(rec))
		for k, v := range rec {
			m[k] = v
		}
		c.Records[i] = m
	}
	return c
}

// ExportReport is the outcome of packaging a transformed payload: a stable
// content-derived locator plus the webhook event downstream systems should
// subscribe to. Delivery itself is an external collaborator's job.
type ExportReport struct {
	VendorKey       string `json:"vendor_key"`
	DownloadLocator string `json:"download_locator"`
	DownloadToken   string `json:"download_token"`
	ContentHash     string `json:"content_hash"`
	WebhookEvent    string `json:"webhook_event"`
	RecordCount     int    `json:"record_count"`
}

// VendorTemplate is an immutable, registry-owned contract describing a
// downstream vendor's output shape.
type VendorTemplate struct {
	VendorKey      string   `json:"vendor_key"`
	DisplayName    string   `json:"display_name"`
	Version        string   `json:"version"`
	Format         string   `json:"format"` // json, csv, fixed-width
	RequiredFields []string `json:"required_fields"`
	MappingNotes   []string `json:"mapping_notes"`
}
