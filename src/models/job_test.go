package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOrdering(t *testing.T) {
	assert.True(t, StatusPendingUpload.Before(StatusIngested))
	assert.True(t, StatusIngested.Before(StatusTransformed))
	assert.True(t, StatusTransformed.Before(StatusReconciled))
	assert.True(t, StatusReconciled.Before(StatusExported))

	// needs_review sits at the same depth as reconciled.
	assert.False(t, StatusNeedsReview.Before(StatusReconciled))
	assert.False(t, StatusReconciled.Before(StatusNeedsReview))
	assert.True(t, StatusNeedsReview.Before(StatusExported))

	assert.False(t, StatusExported.Before(StatusIngested))
}

func TestJobCloneIsDeep(t *testing.T) {
	qty := decimal.NewFromInt(10)
	job := &Job{
		ID:           "job-1",
		Status:       StatusIngested,
		CreatedAt:    time.Now().UTC(),
		Tags:         []string{"q4"},
		Transactions: []NormalizedTransaction{{TransactionID: "T-1", Proceeds: decimal.NewFromInt(100), Quantity: &qty}},
		Identities:   []IdentityRecord{{CustomerID: "ACC-001"}},
		Validation: &ValidationReport{
			Errors: []ValidationIssue{{Code: "date-order", Severity: SeverityError}},
		},
		Translations: map[string]*TranslationPayload{
			"fis": {VendorKey: "fis", Records: []map[string]string{{"account_id": "ACC-001"}}},
		},
	}

	clone := job.Clone()
	require.NotNil(t, clone)

	clone.Tags[0] = "mutated"
	clone.Transactions[0].TransactionID = "mutated"
	*clone.Transactions[0].Quantity = decimal.NewFromInt(999)
	clone.Identities[0].CustomerID = "mutated"
	clone.Validation.Errors[0].Code = "mutated"
	clone.Translations["fis"].Records[0]["account_id"] = "mutated"

	assert.Equal(t, "q4", job.Tags[0])
	assert.Equal(t, "T-1", job.Transactions[0].TransactionID)
	assert.True(t, job.Transactions[0].Quantity.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "ACC-001", job.Identities[0].CustomerID)
	assert.Equal(t, "date-order", job.Validation.Errors[0].Code)
	assert.Equal(t, "ACC-001", job.Translations["fis"].Records[0]["account_id"])
}

func TestSummarize(t *testing.T) {
	txs := []NormalizedTransaction{
		{
			Proceeds:  decimal.RequireFromString("1500.00"),
			CostBasis: decimal.RequireFromString("1200.00"),
			GainLoss:  decimal.RequireFromString("300.00"),
			Treatment: TreatmentShortTerm,
		},
		{
			Proceeds:  decimal.RequireFromString("2800.00"),
			CostBasis: decimal.RequireFromString("3000.00"),
			GainLoss:  decimal.RequireFromString("-200.00"),
			Treatment: TreatmentLongTerm,
		},
	}

	s := Summarize(txs)
	assert.Equal(t, 2, s.TotalTransactions)
	assert.Equal(t, "4300", s.TotalProceeds.String())
	assert.Equal(t, "100", s.TotalGainLoss.String())
	assert.Equal(t, 1, s.ShortTermCount)
	assert.Equal(t, 1, s.LongTermCount)
}
