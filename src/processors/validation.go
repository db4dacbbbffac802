package processors

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/taxinator/src/models"
)

// Stable issue codes emitted by the validation rule set.
const (
	CodeMissingRequiredField  = "missing-required-field"
	CodeDateOrder             = "date-order"
	CodeDuplicateTransaction  = "duplicate-transaction"
	CodeNegativeAmount        = "negative-amount"
	CodeMissingClassification = "missing-classification"
	CodeTreatmentMismatch     = "treatment-mismatch"
)

// suggestedFixes maps each error code family to an advisory hint. One hint
// per distinct code present in the report, not per individual issue.
var suggestedFixes = map[string]string{
	CodeMissingRequiredField:  "Populate account id, acquisition date, and disposition date on every row before re-uploading.",
	CodeDateOrder:             "Verify upstream timestamps; the disposition date must not precede the acquisition date.",
	CodeDuplicateTransaction:  "Remove or re-key duplicate lots; downstream vendors require unique transactions.",
	CodeNegativeAmount:        "Send proceeds and cost basis as signed absolute values per the vendor contract.",
	CodeMissingClassification: "Supply both trade dates (or an explicit term tag) so the holding period can be classified.",
	CodeTreatmentMismatch:     "Re-check the provider's term tag against the actual holding period.",
}

// fixOrder keeps the suggested-fix list stable across runs.
var fixOrder = []string{
	CodeMissingRequiredField,
	CodeDateOrder,
	CodeDuplicateTransaction,
	CodeNegativeAmount,
	CodeMissingClassification,
	CodeTreatmentMismatch,
}

// ValidationEngine runs a fixed, ordered rule set over a job's full canonical
// transaction set. Issues never surface as hard failures; they are partitioned
// into blocking errors and non-blocking warnings.
type ValidationEngine struct{}

func NewValidationEngine() *ValidationEngine {
	return &ValidationEngine{}
}

func (e *ValidationEngine) Validate(txs []models.NormalizedTransaction) models.ValidationReport {
	report := models.ValidationReport{
		Errors:         []models.ValidationIssue{},
		Warnings:       []models.ValidationIssue{},
		SuggestedFixes: []string{},
	}
	codesSeen := make(map[string]bool)

	add := func(code, severity, message, txID string) {
		issue := models.ValidationIssue{Code: code, Severity: severity, Message: message, TransactionID: txID}
		if severity == models.SeverityError {
			report.Errors = append(report.Errors, issue)
		} else {
			report.Warnings = append(report.Warnings, issue)
		}
		codesSeen[code] = true
	}

	// Rule 1: required-field presence.
	for _, tx := range txs {
		var missing []string
		if tx.AccountID == "" {
			missing = append(missing, "account_id")
		}
		if tx.AcquisitionDate.IsZero() {
			missing = append(missing, "acquisition_date")
		}
		if tx.DispositionDate.IsZero() {
			missing = append(missing, "disposition_date")
		}
		if len(missing) > 0 {
			add(CodeMissingRequiredField, models.SeverityError,
				fmt.Sprintf("required fields not populated: %v", missing), tx.TransactionID)
		}
	}

	// Rule 2: date-ordering sanity.
	for _, tx := range txs {
		if !tx.AcquisitionDate.IsZero() && !tx.DispositionDate.IsZero() &&
			tx.AcquisitionDate.After(tx.DispositionDate) {
			add(CodeDateOrder, models.SeverityError,
				"acquisition date is after disposition date", tx.TransactionID)
		}
	}

	// Rule 3: duplicate detection on account + security + dates.
	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		key := fmt.Sprintf("%s|%s|%s|%s",
			tx.AccountID, tx.AssetSymbol,
			tx.AcquisitionDate.Format("2006-01-02"),
			tx.DispositionDate.Format("2006-01-02"))
		if seen[key] {
			add(CodeDuplicateTransaction, models.SeverityWarning,
				"duplicate account/security/date combination detected", tx.TransactionID)
		}
		seen[key] = true
	}

	// Rule 4: negative amounts.
	for _, tx := range txs {
		if tx.Proceeds.LessThan(decimal.Zero) || tx.CostBasis.LessThan(decimal.Zero) {
			add(CodeNegativeAmount, models.SeverityWarning,
				"negative proceeds or cost basis detected", tx.TransactionID)
		}
	}

	// Rule 5: holding-period classification consistency.
	for _, tx := range txs {
		if tx.Treatment == "" {
			add(CodeMissingClassification, models.SeverityError,
				"holding-period classification could not be determined", tx.TransactionID)
			continue
		}
		if tx.AcquisitionDate.IsZero() || tx.DispositionDate.IsZero() {
			continue
		}
		longEnough := tx.HoldingPeriodDays >= models.LongTermThresholdDays
		if tx.Treatment == models.TreatmentLongTerm && !longEnough {
			add(CodeTreatmentMismatch, models.SeverityWarning,
				fmt.Sprintf("tagged long_term but holding period is %d days", tx.HoldingPeriodDays), tx.TransactionID)
		}
		if tx.Treatment == models.TreatmentShortTerm && longEnough {
			add(CodeTreatmentMismatch, models.SeverityWarning,
				fmt.Sprintf("tagged short_term but holding period is %d days", tx.HoldingPeriodDays), tx.TransactionID)
		}
	}

	for _, code := range fixOrder {
		if codesSeen[code] {
			report.SuggestedFixes = append(report.SuggestedFixes, suggestedFixes[code])
		}
	}
	return report
}
