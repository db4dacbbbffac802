package services

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/taxinator/src/config"
	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
)

// NewNotifier selects the export-notification provider from config:
// mailgun, smtp, or mock. Incomplete provider config falls back to mock.
func NewNotifier() Notifier {
	if config.Cfg == nil {
		return &MockNotifier{}
	}

	provider := strings.ToLower(config.Cfg.NotificationProvider)
	logger.L.Info("Initializing export notifier", "provider", provider)

	switch provider {
	case "mailgun":
		if config.Cfg.MailgunDomain == "" || config.Cfg.MailgunPrivateAPIKey == "" || config.Cfg.NotifyRecipient == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or NotifyRecipient missing). Falling back to MockNotifier.")
			return &MockNotifier{}
		}
		mg := mailgun.NewMailgun(config.Cfg.MailgunDomain, config.Cfg.MailgunPrivateAPIKey)
		return &MailgunNotifier{
			mg:          mg,
			senderEmail: config.Cfg.SenderEmail,
			senderName:  config.Cfg.SenderName,
			recipient:   config.Cfg.NotifyRecipient,
		}
	case "smtp":
		if config.Cfg.SMTPServer == "" || config.Cfg.SMTPUser == "" || config.Cfg.NotifyRecipient == "" {
			logger.L.Warn("SMTP configuration incomplete. Falling back to MockNotifier.")
			return &MockNotifier{}
		}
		return &SMTPNotifier{
			server:      config.Cfg.SMTPServer,
			port:        config.Cfg.SMTPPort,
			user:        config.Cfg.SMTPUser,
			password:    config.Cfg.SMTPPassword,
			senderEmail: config.Cfg.SenderEmail,
			recipient:   config.Cfg.NotifyRecipient,
		}
	default:
		return &MockNotifier{}
	}
}

func notificationBody(job *models.Job, report *models.ExportReport) (subject, body string) {
	subject = fmt.Sprintf("Export ready: job %s (%s)", job.ID, report.VendorKey)
	body = fmt.Sprintf(`An export artifact is ready for pickup.

Job:            %s
Tax year:       %d
Vendor target:  %s
Records:        %d
Locator:        %s
Webhook event:  %s
`, job.ID, job.TaxYear, report.VendorKey, report.RecordCount, report.DownloadLocator, report.WebhookEvent)
	return subject, body
}

// MockNotifier logs instead of sending. Default in development and tests.
type MockNotifier struct{}

func (n *MockNotifier) NotifyExportReady(job *models.Job, report *models.ExportReport) error {
	if logger.L != nil {
		logger.L.Info("MOCK NOTIFY: export ready",
			"jobID", job.ID,
			"vendorKey", report.VendorKey,
			"locator", report.DownloadLocator,
			"webhookEvent", report.WebhookEvent)
	}
	return nil
}

type MailgunNotifier struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
	recipient   string
}

func (n *MailgunNotifier) NotifyExportReady(job *models.Job, report *models.ExportReport) error {
	from := fmt.Sprintf("%s <%s>", n.senderName, n.senderEmail)
	subject, body := notificationBody(job, report)

	message := n.mg.NewMessage(from, subject, body, n.recipient)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*20)
	defer cancel()
	resp, id, err := n.mg.Send(ctx, message)
	if err != nil {
		logger.L.Error("Failed to send export notification via Mailgun", "error", err, "jobID", job.ID, "mailgunResp", resp, "mailgunId", id)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.L.Info("Export notification sent via Mailgun", "jobID", job.ID, "id", id)
	return nil
}

type SMTPNotifier struct {
	server      string
	port        int
	user        string
	password    string
	senderEmail string
	recipient   string
}

func (n *SMTPNotifier) NotifyExportReady(job *models.Job, report *models.ExportReport) error {
	subject, body := notificationBody(job, report)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.senderEmail)
	fmt.Fprintf(&b, "To: %s\r\n", n.recipient)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(body)

	auth := smtp.PlainAuth("", n.user, n.password, n.server)
	addr := fmt.Sprintf("%s:%d", n.server, n.port)
	if err := smtp.SendMail(addr, auth, n.senderEmail, []string{n.recipient}, []byte(b.String())); err != nil {
		logger.L.Error("Failed to send export notification via SMTP", "error", err, "jobID", job.ID)
		return fmt.Errorf("failed to send export notification via SMTP: %w", err)
	}
	logger.L.Info("Export notification sent via SMTP", "jobID", job.ID)
	return nil
}
