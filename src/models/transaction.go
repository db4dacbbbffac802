package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding periods at or above this many days classify as long_term.
const LongTermThresholdDays = 365

const (
	TreatmentShortTerm = "short_term"
	TreatmentLongTerm  = "long_term"
)

// RawRecord is one loosely typed row as received from an upstream provider.
type RawRecord map[string]any

// NormalizedTransaction is the canonical representation of one cost-basis
// disposition after aliasing and coercion. Derived fields (gain/loss, holding
// period, treatment) are populated by the normalization engine.
type NormalizedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
	AssetSymbol   string `json:"asset_symbol,omitempty"`

	// Nil when the provider sent no quantity; a zero-quantity lot is still a
	// populated value.
	Quantity *decimal.Decimal `json:"quantity,omitempty"`

	CostBasis       decimal.Decimal `json:"cost_basis"`
	Proceeds        decimal.Decimal `json:"proceeds"`
	AcquisitionDate time.Time       `json:"acquisition_date"`
	DispositionDate time.Time       `json:"disposition_date"`
	LotMethod       string          `json:"lot_method,omitempty"`
	Memo            string          `json:"memo,omitempty"`

	GainLoss          decimal.Decimal `json:"gain_loss"`
	HoldingPeriodDays int             `json:"holding_period_days"`
	Treatment         string          `json:"treatment,omitempty"`
}

// JobSummary aggregates rollups over a job's full normalized set.
type JobSummary struct {
	TotalTransactions int             `json:"total_transactions"`
	TotalProceeds     decimal.Decimal `json:"total_proceeds"`
	TotalCostBasis    decimal.Decimal `json:"total_cost_basis"`
	TotalGainLoss     decimal.Decimal `json:"total_gain_loss"`
	ShortTermCount    int             `json:"short_term_count"`
	LongTermCount     int             `json:"long_term_count"`
}

// Summarize computes the rollups for a normalized set.
func Summarize(txs []NormalizedTransaction) JobSummary {
	s := JobSummary{TotalTransactions: len(txs)}
	for _, tx := range txs {
		s.TotalProceeds = s.TotalProceeds.Add(tx.Proceeds)
		s.TotalCostBasis = s.TotalCostBasis.Add(tx.CostBasis)
		s.TotalGainLoss = s.TotalGainLoss.Add(tx.GainLoss)
		switch tx.Treatment {
		case TreatmentShortTerm:
			s.ShortTermCount++
		case TreatmentLongTerm:
			s.LongTermCount++
		}
	}
	return s
}

// IngestionSummary describes what normalization saw in one batch.
type IngestionSummary struct {
	TotalRows        int      `json:"total_rows"`
	MalformedRows    int      `json:"malformed_rows"`
	NormalizedCount  int      `json:"normalized_count"`
	MissingFields    []string `json:"missing_fields"`
	UnexpectedFields []string `json:"unexpected_fields"`
	SchemaDrift      bool     `json:"schema_drift"`
}

func (s IngestionSummary) clone() IngestionSummary {
	c := s
	c.MissingFields = append([]string(nil), s.MissingFields...)
	c.UnexpectedFields = append([]string(nil), s.UnexpectedFields...)
	return c
}
