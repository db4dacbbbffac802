package processors

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/taxinator/src/models"
	"github.com/username/taxinator/src/utils"
)

// WebhookEventExported is the event type downstream systems subscribe to.
// The engine only produces the descriptor; delivery is an external
// collaborator's responsibility.
const WebhookEventExported = "job.completed"

// ExportEngine packages a transformed payload into a downloadable artifact
// descriptor. The locator is content-derived, so repeated export of unchanged
// content yields the same locator and the same signed token.
type ExportEngine struct {
	signingKey []byte
}

func NewExportEngine(signingKey string) *ExportEngine {
	return &ExportEngine{signingKey: []byte(signingKey)}
}

func (e *ExportEngine) Export(jobID string, payload *models.TranslationPayload) (*models.ExportReport, error) {
	hash, err := utils.ContentHash(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to hash export payload for job %s: %w", jobID, err)
	}

	// No time-based claims: unchanged content must re-sign identically.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"job_id":         jobID,
		"vendor_key":     payload.VendorKey,
		"content_sha256": hash,
	})
	signed, err := token.SignedString(e.signingKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign download token for job %s: %w", jobID, err)
	}

	return &models.ExportReport{
		VendorKey:       payload.VendorKey,
		DownloadLocator: fmt.Sprintf("/api/jobs/%s/output?rev=%s", jobID, hash[:12]),
		DownloadToken:   signed,
		ContentHash:     hash,
		WebhookEvent:    WebhookEventExported,
		RecordCount:     len(payload.Records),
	}, nil
}
