package processors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/username/taxinator/src/models"
)

func TestAITranslatorUnconfigured(t *testing.T) {
	translator := NewAITranslator("", "gemini-2.0-flash")
	assert.False(t, translator.Available())

	t.Run("produce fails with sentinel", func(t *testing.T) {
		_, err := translator.Produce(context.Background(),
			[]models.NormalizedTransaction{validTx("T-1", "ACC-001")},
			models.VendorTemplate{VendorKey: "fis"})
		assert.ErrorIs(t, err, ErrAIUnavailable)
	})

	t.Run("translate degrades instead of failing", func(t *testing.T) {
		resp := translator.Translate(context.Background(), models.AITranslateRequest{
			VendorTarget: "fis",
			InputText:    "acct ACC-1 sold 10 AAPL",
		})
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "fis", resp.VendorTarget)
		assert.Empty(t, resp.Translation)
		assert.NotEmpty(t, resp.Notes)
	})
}

func TestExtractPayloadBlock(t *testing.T) {
	t.Run("json code fence", func(t *testing.T) {
		text := "Here is the payload:\n```json\n[{\"a\":\"1\"}]\n```\nDone."
		assert.Equal(t, `[{"a":"1"}]`, extractPayloadBlock(text))
	})

	t.Run("bare code fence", func(t *testing.T) {
		text := "```\n{\"a\":\"1\"}\n```"
		assert.Equal(t, `{"a":"1"}`, extractPayloadBlock(text))
	})

	t.Run("inline json block", func(t *testing.T) {
		text := `The result is {"a":"1"} as requested.`
		assert.Equal(t, `{"a":"1"}`, extractPayloadBlock(text))
	})

	t.Run("plain text passthrough", func(t *testing.T) {
		assert.Equal(t, "no structure here", extractPayloadBlock("  no structure here  "))
	})
}
