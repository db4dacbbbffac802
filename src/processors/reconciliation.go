package processors

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/taxinator/src/models"
)

// ReconciliationEngine cross-checks transaction-derived accounts and totals
// against identity records and externally supplied expectations. It mutates
// nothing; this is a pure read/compute pass.
type ReconciliationEngine struct {
	tolerance decimal.Decimal
}

func NewReconciliationEngine(tolerance decimal.Decimal) *ReconciliationEngine {
	return &ReconciliationEngine{tolerance: tolerance}
}

func (e *ReconciliationEngine) Reconcile(
	txs []models.NormalizedTransaction,
	identities []models.IdentityRecord,
	expected *models.ExpectedTotals,
) models.ReconciliationResult {
	covered := make(map[string]bool, len(identities))
	for _, id := range identities {
		covered[id.CustomerID] = true
	}

	mismatchedSet := make(map[string]bool)
	var totalProceeds, totalBasis, totalGain decimal.Decimal
	for _, tx := range txs {
		if !covered[tx.AccountID] {
			mismatchedSet[tx.AccountID] = true
		}
		totalProceeds = totalProceeds.Add(tx.Proceeds)
		totalBasis = totalBasis.Add(tx.CostBasis)
		totalGain = totalGain.Add(tx.GainLoss)
	}

	mismatched := make([]string, 0, len(mismatchedSet))
	for account := range mismatchedSet {
		mismatched = append(mismatched, account)
	}
	sort.Strings(mismatched)

	aligned := true
	if expected != nil {
		aligned = e.withinTolerance(totalProceeds, expected.TotalProceeds) &&
			e.withinTolerance(totalBasis, expected.TotalCostBasis) &&
			e.withinTolerance(totalGain, expected.TotalGainLoss)
	}

	return models.ReconciliationResult{
		MismatchedAccounts: mismatched,
		Aligned:            aligned,
		TotalProceeds:      totalProceeds,
		TotalCostBasis:     totalBasis,
		TotalGainLoss:      totalGain,
	}
}

// withinTolerance compares a computed figure against an expectation. A nil
// expectation always passes.
func (e *ReconciliationEngine) withinTolerance(computed decimal.Decimal, expected *decimal.Decimal) bool {
	if expected == nil {
		return true
	}
	return computed.Sub(*expected).Abs().LessThanOrEqual(e.tolerance)
}
