package processors

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/taxinator/src/models"
)

func newReconciler(t *testing.T) *ReconciliationEngine {
	t.Helper()
	return NewReconciliationEngine(decimal.RequireFromString("0.01"))
}

func TestReconcileUncoveredAccounts(t *testing.T) {
	engine := newReconciler(t)
	txs := []models.NormalizedTransaction{
		validTx("T-1", "ACC-002"),
		validTx("T-2", "ACC-001"),
		validTx("T-3", "ACC-002"),
	}
	identities := []models.IdentityRecord{{CustomerID: "ACC-001"}}

	result := engine.Reconcile(txs, identities, nil)

	assert.Equal(t, []string{"ACC-002"}, result.MismatchedAccounts)
	assert.True(t, result.Aligned, "no external expectations means vacuously aligned")
}

func TestReconcileFullCoverage(t *testing.T) {
	engine := newReconciler(t)
	txs := []models.NormalizedTransaction{validTx("T-1", "ACC-001")}
	identities := []models.IdentityRecord{
		{CustomerID: "ACC-001"},
		{CustomerID: "ACC-UNUSED"}, // extra identity records are fine
	}

	result := engine.Reconcile(txs, identities, nil)

	assert.Empty(t, result.MismatchedAccounts)
	assert.True(t, result.Aligned)
}

func TestReconcileTotals(t *testing.T) {
	engine := newReconciler(t)
	txs := []models.NormalizedTransaction{
		validTx("T-1", "ACC-001"), // 1500 / 1200 / 300
		validTx("T-2", "ACC-001"),
	}
	identities := []models.IdentityRecord{{CustomerID: "ACC-001"}}

	result := engine.Reconcile(txs, identities, nil)

	assert.Equal(t, "3000", result.TotalProceeds.String())
	assert.Equal(t, "2400", result.TotalCostBasis.String())
	assert.Equal(t, "600", result.TotalGainLoss.String())
}

func TestReconcileExpectedTotalsTolerance(t *testing.T) {
	engine := newReconciler(t)
	txs := []models.NormalizedTransaction{validTx("T-1", "ACC-001")}
	identities := []models.IdentityRecord{{CustomerID: "ACC-001"}}

	t.Run("within tolerance", func(t *testing.T) {
		expected := decimal.RequireFromString("1500.005")
		result := engine.Reconcile(txs, identities, &models.ExpectedTotals{TotalProceeds: &expected})
		assert.True(t, result.Aligned)
	})

	t.Run("out of tolerance", func(t *testing.T) {
		expected := decimal.RequireFromString("1501.00")
		result := engine.Reconcile(txs, identities, &models.ExpectedTotals{TotalProceeds: &expected})
		assert.False(t, result.Aligned)
	})

	t.Run("partial expectations", func(t *testing.T) {
		gain := decimal.RequireFromString("300.00")
		result := engine.Reconcile(txs, identities, &models.ExpectedTotals{TotalGainLoss: &gain})
		assert.True(t, result.Aligned, "unset expectations always pass")
	})
}

func TestReconcileIsDeterministic(t *testing.T) {
	engine := newReconciler(t)
	txs := []models.NormalizedTransaction{
		validTx("T-1", "ACC-003"),
		validTx("T-2", "ACC-001"),
		validTx("T-3", "ACC-002"),
	}

	first := engine.Reconcile(txs, nil, nil)
	second := engine.Reconcile(txs, nil, nil)

	require.Equal(t, first.MismatchedAccounts, second.MismatchedAccounts)
	assert.Equal(t, []string{"ACC-001", "ACC-002", "ACC-003"}, first.MismatchedAccounts)
}
