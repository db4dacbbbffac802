package handlers

import (
	"net/http"
	"time"

	"github.com/username/taxinator/src/config"
	"github.com/username/taxinator/src/utils"
)

// HandleHealth reports service identity and liveness.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	environment := "development"
	if config.Cfg != nil && config.Cfg.Environment != "" {
		environment = config.Cfg.Environment
	}
	utils.SendJSON(w, map[string]string{
		"service":     config.ServiceName,
		"version":     config.ServiceVersion,
		"environment": environment,
		"status":      "ok",
	}, http.StatusOK)
}

// HandleSampleIngestion returns a ready-to-send demo payload so integrators
// can exercise the pipeline without inventing data.
func HandleSampleIngestion(w http.ResponseWriter, r *http.Request) {
	sample := map[string]any{
		"tax_year":      2024,
		"vendor_source": "demo_cost_basis_vendor",
		"vendor_target": "fis",
		"cost_basis": []map[string]any{
			{
				"transaction_id":   "TX-1001",
				"account_id":       "ACC-001",
				"asset_symbol":     "AAPL",
				"quantity":         "10",
				"cost_basis":       "1200.00",
				"proceeds":         "1500.00",
				"acquisition_date": "2023-01-10",
				"disposition_date": "2023-09-20",
				"lot_method":       "FIFO",
				"memo":             "exercise + sell",
			},
			{
				"transaction_id":   "TX-CR-1",
				"account_id":       "ACC-002",
				"asset_symbol":     "ETH",
				"quantity":         "2.5",
				"cost_basis":       "3000.00",
				"proceeds":         "2800.00",
				"acquisition_date": "2022-05-05",
				"disposition_date": "2024-03-01",
				"lot_method":       "SpecID",
				"memo":             "crypto sale",
			},
		},
		"personal_info": []map[string]any{
			{
				"customer_id": "ACC-001",
				"tin":         "123-45-6789",
				"full_name":   "Jamie Example",
				"address":     "123 Market Street, SF CA",
				"email":       "jamie@example.com",
			},
			{
				"customer_id": "ACC-002",
				"tin":         "321-54-9876",
				"full_name":   "Taylor Ops",
				"address":     "500 Mission St, SF CA",
				"email":       "taylor@example.com",
			},
		},
	}
	utils.SendJSON(w, map[string]any{
		"generated_at": time.Now().UTC().Format("2006-01-02"),
		"payload":      sample,
	}, http.StatusOK)
}
