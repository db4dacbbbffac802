package registry

import "github.com/username/taxinator/src/models"

// builtinTemplates is the default downstream vendor catalog. Field names in
// RequiredFields are canonical field names; the transformation engine owns
// the mapping to each vendor's wire naming.
func builtinTemplates() []models.VendorTemplate {
	return []models.VendorTemplate{
		{
			VendorKey:   "fis",
			DisplayName: "FIS Tax Gateway",
			Version:     "2024.1",
			Format:      "json",
			RequiredFields: []string{
				"account_id", "proceeds", "cost_basis", "acquisition_date", "disposition_date",
			},
			MappingNotes: []string{
				"FIS expects monetary values as decimal strings with two places.",
				"Short-term vs long-term drives their Box 1b mapping for 1099-B.",
			},
		},
		{
			VendorKey:   "wsc",
			DisplayName: "WSC Reporting",
			Version:     "2023.4",
			Format:      "csv",
			RequiredFields: []string{
				"transaction_id", "treatment", "gain_loss", "disposition_date",
			},
			MappingNotes: []string{
				"CSV must retain vendor-provided transaction IDs for reconciliation.",
				"Long-term lots require supplemental statement if proceeds exceed $1M.",
			},
		},
		{
			VendorKey:   "archer",
			DisplayName: "Archer Filing Bridge",
			Version:     "5.2",
			Format:      "fixed-width",
			RequiredFields: []string{
				"account_id", "proceeds", "cost_basis", "treatment",
			},
			MappingNotes: []string{
				"Fixed-width records, fields left-padded to 20 characters.",
				"Treatment column accepts only short_term or long_term.",
			},
		},
	}
}
