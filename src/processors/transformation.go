package processors

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/username/taxinator/src/models"
)

// ErrTemplateField marks a transformation-shape failure: a template-required
// field could not be populated in the mapped output. Distinct from upstream
// ValidationIssues because the requirement is vendor-specific, not
// schema-generic.
var ErrTemplateField = errors.New("template required field unpopulated")

// canonicalFieldOrder fixes the field ordering of mapped records and rendered
// output so identical inputs produce byte-identical payloads.
var canonicalFieldOrder = []string{
	"transaction_id", "account_id", "asset_symbol", "quantity",
	"proceeds", "cost_basis", "gain_loss", "treatment",
	"acquisition_date", "disposition_date", "lot_method", "memo",
}

const fixedWidthColumn = 20

// TransformationEngine maps canonical records into a vendor template's shape
// and serialization format. It is the deterministic payload producer.
type TransformationEngine struct{}

func NewTransformationEngine() *TransformationEngine {
	return &TransformationEngine{}
}

// Produce satisfies PayloadProducer.
func (e *TransformationEngine) Produce(_ context.Context, txs []models.NormalizedTransaction, template models.VendorTemplate) (*models.TranslationPayload, error) {
	return e.Transform(txs, template)
}

// Transform maps each canonical transaction into the template shape and
// independently verifies every required field is populated in the mapped
// output. A field can be present canonically and still fail a stricter
// vendor-specific requirement.
func (e *TransformationEngine) Transform(txs []models.NormalizedTransaction, template models.VendorTemplate) (*models.TranslationPayload, error) {
	records := make([]map[string]string, 0, len(txs))
	for _, tx := range txs {
		for _, field := range template.RequiredFields {
			if _, ok := fieldValue(tx, field); !ok {
				return nil, fmt.Errorf("%w: field %q on transaction %s for vendor %s",
					ErrTemplateField, field, tx.TransactionID, template.VendorKey)
			}
		}
		record := make(map[string]string, len(canonicalFieldOrder))
		for _, field := range canonicalFieldOrder {
			if value, ok := fieldValue(tx, field); ok {
				record[field] = value
			}
		}
		records = append(records, record)
	}

	payload := &models.TranslationPayload{
		VendorKey:     template.VendorKey,
		SchemaVersion: template.Version,
		Format:        template.Format,
		Records:       records,
		Producer:      models.ProducerTemplate,
	}

	rendered, err := render(records, template)
	if err != nil {
		return nil, err
	}
	payload.Rendered = rendered
	payload.HumanReadable = summarize(records, template.VendorKey)
	return payload, nil
}

// fieldValue resolves one canonical field on a transaction, reporting whether
// it is populated. Monetary values render as decimal strings with two places.
func fieldValue(tx models.NormalizedTransaction, field string) (string, bool) {
	switch field {
	case "transaction_id":
		return tx.TransactionID, tx.TransactionID != ""
	case "account_id":
		return tx.AccountID, tx.AccountID != ""
	case "asset_symbol":
		return tx.AssetSymbol, tx.AssetSymbol != ""
	case "quantity":
		if tx.Quantity == nil {
			return "", false
		}
		return tx.Quantity.String(), true
	case "proceeds":
		return tx.Proceeds.StringFixed(2), true
	case "cost_basis":
		return tx.CostBasis.StringFixed(2), true
	case "gain_loss":
		return tx.GainLoss.StringFixed(2), true
	case "treatment":
		return tx.Treatment, tx.Treatment != ""
	case "acquisition_date":
		return tx.AcquisitionDate.Format("2006-01-02"), !tx.AcquisitionDate.IsZero()
	case "disposition_date":
		return tx.DispositionDate.Format("2006-01-02"), !tx.DispositionDate.IsZero()
	case "lot_method":
		return tx.LotMethod, tx.LotMethod != ""
	case "memo":
		return tx.Memo, tx.Memo != ""
	}
	return "", false
}

// render serializes mapped records per the template's format tag.
func render(records []map[string]string, template models.VendorTemplate) (string, error) {
	switch template.Format {
	case "json":
		data, err := json.Marshal(records)
		if err != nil {
			return "", fmt.Errorf("failed to render json payload for %s: %w", template.VendorKey, err)
		}
		return string(data), nil
	case "csv":
		columns := renderColumns(records, template)
		var b strings.Builder
		w := csv.NewWriter(&b)
		if err := w.Write(columns); err != nil {
			return "", fmt.Errorf("failed to render csv payload for %s: %w", template.VendorKey, err)
		}
		for _, record := range records {
			values := make([]string, len(columns))
			for i, col := range columns {
				values[i] = record[col]
			}
			if err := w.Write(values); err != nil {
				return "", fmt.Errorf("failed to render csv payload for %s: %w", template.VendorKey, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return "", fmt.Errorf("failed to render csv payload for %s: %w", template.VendorKey, err)
		}
		return b.String(), nil
	case "fixed-width":
		columns := renderColumns(records, template)
		var b strings.Builder
		for _, record := range records {
			for _, col := range columns {
				b.WriteString(fmt.Sprintf("%*s", fixedWidthColumn, record[col]))
			}
			b.WriteByte('\n')
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown serialization format %q for vendor %s", template.Format, template.VendorKey)
	}
}

// renderColumns is the template's required fields followed by any other
// populated fields in canonical order.
func renderColumns(records []map[string]string, template models.VendorTemplate) []string {
	required := make(map[string]bool, len(template.RequiredFields))
	columns := append([]string(nil), template.RequiredFields...)
	for _, f := range template.RequiredFields {
		required[f] = true
	}
	populated := make(map[string]bool)
	for _, record := range records {
		for field := range record {
			populated[field] = true
		}
	}
	for _, field := range canonicalFieldOrder {
		if populated[field] && !required[field] {
			columns = append(columns, field)
		}
	}
	return columns
}

func summarize(records []map[string]string, vendorKey string) string {
	if len(records) == 0 {
		return "no records"
	}
	sample := records[0]
	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, sample[k])
	}
	return fmt.Sprintf("%s payload with %d record(s); sample: %s",
		strings.ToUpper(vendorKey), len(records), strings.Join(parts, " "))
}
