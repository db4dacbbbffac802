package processors

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/utils"
)

// fieldAliases maps vendor-specific synonyms onto canonical field names.
// Keys are compared case-insensitively.
var fieldAliases = map[string]string{
	"transaction_id": "transaction_id",
	"txn_id":         "transaction_id",
	"id":             "transaction_id",
	"trade_id":       "transaction_id",

	"account_id": "account_id",
	"account":    "account_id",
	"acct":       "account_id",
	"acct_id":    "account_id",

	"asset_symbol": "asset_symbol",
	"symbol":       "asset_symbol",
	"asset":        "asset_symbol",
	"ticker":       "asset_symbol",

	"quantity": "quantity",
	"qty":      "quantity",
	"shares":   "quantity",
	"units":    "quantity",

	"cost_basis": "cost_basis",
	"basis":      "cost_basis",
	"cost":       "cost_basis",

	"proceeds":       "proceeds",
	"sale_proceeds":  "proceeds",
	"gross_proceeds": "proceeds",

	"acquisition_date": "acquisition_date",
	"acquired":         "acquisition_date",
	"date_acquired":    "acquisition_date",
	"open_date":        "acquisition_date",

	"disposition_date": "disposition_date",
	"disposed":         "disposition_date",
	"date_sold":        "disposition_date",
	"close_date":       "disposition_date",

	"lot_method": "lot_method",
	"lot":        "lot_method",

	"memo":        "memo",
	"description": "memo",

	"treatment": "treatment",
	"term":      "treatment",
}

// canonicalFields is the expected field set, used for the missing-field
// summary. Order matters only for stable output.
var canonicalFields = []string{
	"transaction_id", "account_id", "asset_symbol", "quantity",
	"cost_basis", "proceeds", "acquisition_date", "disposition_date",
}

// A batch shows schema drift when its unexpected-field set is non-empty and
// larger than this fraction of the row count.
const schemaDriftRatio = 0.25

// NormalizationEngine converts heterogeneous raw records into the canonical
// schema. Malformed rows are counted and excluded, never silently dropped.
type NormalizationEngine struct{}

func NewNormalizationEngine() *NormalizationEngine {
	return &NormalizationEngine{}
}

func (e *NormalizationEngine) Normalize(batch []models.RawRecord) NormalizationResult {
	out := make([]models.NormalizedTransaction, 0, len(batch))
	missing := make(map[string]bool)
	unexpected := make(map[string]bool)
	malformed := 0

	for _, raw := range batch {
		aliased := make(map[string]any, len(raw))
		for key, value := range raw {
			canonical, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
			if !ok {
				unexpected[key] = true
				continue
			}
			aliased[canonical] = value
		}
		for _, field := range canonicalFields {
			if _, ok := aliased[field]; !ok {
				missing[field] = true
			}
		}

		tx, ok := e.normalizeRow(raw, aliased)
		if !ok {
			malformed++
			continue
		}
		out = append(out, tx)
	}

	summary := models.IngestionSummary{
		TotalRows:        len(batch),
		MalformedRows:    malformed,
		NormalizedCount:  len(out),
		MissingFields:    sortedKeys(missing),
		UnexpectedFields: sortedKeys(unexpected),
	}
	if len(batch) > 0 && len(unexpected) > 0 {
		summary.SchemaDrift = float64(len(unexpected))/float64(len(batch)) > schemaDriftRatio
	}

	if logger.L != nil {
		logger.L.Debug("Normalized batch",
			"totalRows", summary.TotalRows,
			"malformed", summary.MalformedRows,
			"schemaDrift", summary.SchemaDrift)
	}
	return NormalizationResult{Transactions: out, Summary: summary}
}

// normalizeRow coerces one aliased row. A row is malformed when account id,
// proceeds, or cost basis cannot be populated.
func (e *NormalizationEngine) normalizeRow(raw models.RawRecord, aliased map[string]any) (models.NormalizedTransaction, bool) {
	var tx models.NormalizedTransaction

	tx.AccountID = utils.CoerceString(aliased["account_id"])
	if tx.AccountID == "" {
		return tx, false
	}

	proceeds, err := utils.CoerceDecimal(aliased["proceeds"])
	if err != nil {
		return tx, false
	}
	basis, err := utils.CoerceDecimal(aliased["cost_basis"])
	if err != nil {
		return tx, false
	}
	tx.Proceeds = proceeds
	tx.CostBasis = basis
	tx.GainLoss = proceeds.Sub(basis)

	if v, ok := aliased["quantity"]; ok {
		if qty, err := utils.CoerceDecimal(v); err == nil {
			tx.Quantity = &qty
		}
	}
	if v, ok := aliased["acquisition_date"]; ok {
		if d, err := utils.CoerceDate(v); err == nil {
			tx.AcquisitionDate = d
		}
	}
	if v, ok := aliased["disposition_date"]; ok {
		if d, err := utils.CoerceDate(v); err == nil {
			tx.DispositionDate = d
		}
	}

	tx.AssetSymbol = utils.CoerceString(aliased["asset_symbol"])
	tx.LotMethod = utils.CoerceString(aliased["lot_method"])
	tx.Memo = utils.CoerceString(aliased["memo"])

	if !tx.AcquisitionDate.IsZero() && !tx.DispositionDate.IsZero() {
		tx.HoldingPeriodDays = int(tx.DispositionDate.Sub(tx.AcquisitionDate).Hours() / 24)
	}

	tx.Treatment = normalizeTreatment(utils.CoerceString(aliased["treatment"]))
	if tx.Treatment == "" && !tx.AcquisitionDate.IsZero() && !tx.DispositionDate.IsZero() {
		if tx.HoldingPeriodDays >= models.LongTermThresholdDays {
			tx.Treatment = models.TreatmentLongTerm
		} else {
			tx.Treatment = models.TreatmentShortTerm
		}
	}

	tx.TransactionID = utils.CoerceString(aliased["transaction_id"])
	if tx.TransactionID == "" {
		// Content-derived synthetic id keeps re-normalization deterministic.
		tx.TransactionID = syntheticID(raw)
	}
	return tx, true
}

func normalizeTreatment(v string) string {
	switch strings.ToLower(v) {
	case "short", "short_term", "short-term":
		return models.TreatmentShortTerm
	case "long", "long_term", "long-term":
		return models.TreatmentLongTerm
	}
	return ""
}

func syntheticID(raw models.RawRecord) string {
	data, err := json.Marshal(raw)
	if err != nil {
		data = []byte{}
	}
	sum := sha256.Sum256(data)
	return "TXN-" + hex.EncodeToString(sum[:])[:10]
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
