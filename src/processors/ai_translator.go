package processors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/username/taxinator/src/logger"
	"github.com/username/taxinator/src/models"
)

// ErrAIUnavailable signals that the AI producer is not configured or the
// upstream model call failed. Callers treat it as a best-effort degradation,
// never a pipeline fault.
var ErrAIUnavailable = errors.New("ai translation unavailable")

const aiSystemPrompt = "You are a strict tax-engine translator. " +
	"Return only the translated vendor-ready payload, no narration."

var codeFenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
var jsonBlockRe = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// AITranslator is the best-effort alternate payload producer backed by
// Gemini. It satisfies the same PayloadProducer contract as the template
// engine; the export stage consumes its output identically.
type AITranslator struct {
	apiKey string
	model  string

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewAITranslator(apiKey, model string) *AITranslator {
	return &AITranslator{apiKey: apiKey, model: model}
}

// Available reports whether the translator has credentials to work with.
func (t *AITranslator) Available() bool {
	return t.apiKey != ""
}

func (t *AITranslator) getClient(ctx context.Context) (*genai.Client, error) {
	t.once.Do(func() {
		t.client, t.clientErr = genai.NewClient(ctx, &genai.ClientConfig{APIKey: t.apiKey})
	})
	return t.client, t.clientErr
}

func (t *AITranslator) generate(ctx context.Context, prompt string) (string, error) {
	client, err := t.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: aiSystemPrompt}}},
	}
	chat, err := client.Chats.Create(ctx, t.model, config, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	resp, err := chat.Send(ctx, &genai.Part{Text: prompt})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty model response", ErrAIUnavailable)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// Produce satisfies PayloadProducer: it renders the canonical set for the
// model and wraps whatever comes back as a translation payload. Structured
// records are recovered when the reply parses as a JSON array; otherwise the
// raw rendering is all a caller gets.
func (t *AITranslator) Produce(ctx context.Context, txs []models.NormalizedTransaction, template models.VendorTemplate) (*models.TranslationPayload, error) {
	if !t.Available() {
		return nil, fmt.Errorf("%w: no API key configured", ErrAIUnavailable)
	}

	source, err := json.Marshal(txs)
	if err != nil {
		return nil, fmt.Errorf("failed to render transactions for ai producer: %w", err)
	}
	var prompt strings.Builder
	prompt.WriteString("Translate the following normalized cost-basis transactions into the ")
	prompt.WriteString(template.DisplayName)
	prompt.WriteString(" payload format (vendor key ")
	prompt.WriteString(template.VendorKey)
	prompt.WriteString(", serialization ")
	prompt.WriteString(template.Format)
	prompt.WriteString(").\nRequired fields: ")
	prompt.WriteString(strings.Join(template.RequiredFields, ", "))
	prompt.WriteString("\nMapping notes: ")
	prompt.WriteString(strings.Join(template.MappingNotes, " "))
	prompt.WriteString("\nSource records:\n")
	prompt.Write(source)

	text, err := t.generate(ctx, prompt.String())
	if err != nil {
		return nil, err
	}

	block := extractPayloadBlock(text)
	payload := &models.TranslationPayload{
		VendorKey:     template.VendorKey,
		SchemaVersion: template.Version,
		Format:        template.Format,
		Records:       []map[string]string{},
		Rendered:      block,
		Producer:      models.ProducerAI,
		HumanReadable: fmt.Sprintf("AI-generated %s payload; review before sending downstream.", strings.ToUpper(template.VendorKey)),
	}

	var records []map[string]string
	if err := json.Unmarshal([]byte(block), &records); err == nil {
		payload.Records = records
	} else if logger.L != nil {
		logger.L.Debug("AI payload is not a structured record array, keeping raw rendering",
			"vendorKey", template.VendorKey)
	}
	return payload, nil
}

// Translate handles the free-text translation surface. It never returns an
// error: an unconfigured or failing model degrades to an "unavailable"
// response the caller can inspect.
func (t *AITranslator) Translate(ctx context.Context, req models.AITranslateRequest) models.AITranslateResponse {
	if !t.Available() {
		return aiFallback(req.VendorTarget, "AI translator not configured.")
	}

	var prompt strings.Builder
	prompt.WriteString("Produce ONLY the translated vendor-ready payload. Do not include a plan, intro, or prose.\n")
	if req.VendorTarget != "" {
		fmt.Fprintf(&prompt, "Target vendor format: %s.\n", req.VendorTarget)
	}
	prompt.WriteString("Source material:\n")
	prompt.WriteString(strings.TrimSpace(req.InputText))
	if req.Attachments != "" {
		fmt.Fprintf(&prompt, "\nAdditional context: %s", req.Attachments)
	}

	text, err := t.generate(ctx, prompt.String())
	if err != nil {
		if logger.L != nil {
			logger.L.Warn("AI translation failed", "error", err)
		}
		return aiFallback(req.VendorTarget, fmt.Sprintf("AI call failed: %v", err))
	}

	resp := models.AITranslateResponse{
		Status:       "ok",
		VendorTarget: req.VendorTarget,
		Translation:  extractPayloadBlock(text),
		Notes:        []string{"AI-generated; review before sending downstream."},
	}
	if req.IncludeChecks {
		resp.Checks = []string{
			"Validate required fields and ISO dates.",
			"Confirm numeric fields are decimal strings.",
			"Ensure account/customer IDs align across datasets.",
		}
	}
	return resp
}

func aiFallback(vendorTarget, reason string) models.AITranslateResponse {
	return models.AITranslateResponse{
		Status:       "unavailable",
		VendorTarget: vendorTarget,
		Translation:  "",
		Checks:       []string{reason},
		Notes:        []string{"Set GEMINI_API_KEY to enable AI-assisted translation."},
	}
}

// extractPayloadBlock pulls a code fence or JSON-looking block out of a model
// reply, falling back to the raw text.
func extractPayloadBlock(text string) string {
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := jsonBlockRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(text)
}
