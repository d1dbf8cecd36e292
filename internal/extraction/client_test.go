package extraction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/config"
)

func TestParseResponse(t *testing.T) {
	t.Run("plain JSON array", func(t *testing.T) {
		candidates, err := parseResponse(`[
			{
				"budget_unit": "Secretaria de Saúde",
				"supplier_name": "Alfa Serviços Ltda",
				"invoice_number": "NF-123",
				"amount": "1.234,56",
				"due_date": "2026-09-10"
			}
		]`)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "NF-123", candidates[0].InvoiceNumber)
		assert.True(t, candidates[0].Amount.Equal(decimal.RequireFromString("1234.56")))
		require.NotNil(t, candidates[0].DueDate)
		assert.Equal(t, "2026-09-10", candidates[0].DueDate.Format("2006-01-02"))
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		candidates, err := parseResponse("```json\n[{\"invoice_number\": \"NF-9\", \"amount\": \"10.00\"}]\n```")
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "NF-9", candidates[0].InvoiceNumber)
	})

	t.Run("supplier payload requires a tax id", func(t *testing.T) {
		candidates, err := parseResponse(`[
			{"invoice_number": "NF-1", "supplier": {"tax_id": "12.345.678/0001-90", "legal_name": "Alfa Serviços Ltda"}},
			{"invoice_number": "NF-2", "supplier": {"legal_name": "Sem CNPJ Ltda"}}
		]`)
		require.NoError(t, err)
		require.Len(t, candidates, 2)
		require.NotNil(t, candidates[0].Supplier)
		assert.Equal(t, "12.345.678/0001-90", candidates[0].Supplier.TaxID)
		assert.Nil(t, candidates[1].Supplier)
	})

	t.Run("empty array is not an error", func(t *testing.T) {
		candidates, err := parseResponse("[]")
		require.NoError(t, err)
		assert.Empty(t, candidates)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := parseResponse("the payload contains two invoices")
		assert.Error(t, err)
	})

	t.Run("invalid due date is dropped", func(t *testing.T) {
		candidates, err := parseResponse(`[{"invoice_number": "NF-1", "due_date": "10/09/2026"}]`)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Nil(t, candidates[0].DueDate)
	})
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1.234,56", "1234.56"},
		{"R$ 1.234,56", "1234.56"},
		{"R$1.234.567,89", "1234567.89"},
		{"100,00", "100"},
		{" 42 ", "42"},
		{"", "0"},
		{"abc", "0"},
		{"R$", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := parseAmount(tc.in)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
				"parseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Run("no API key disables the client", func(t *testing.T) {
		client := NewClient(&config.ExtractionConfig{}, zap.NewNop())
		assert.False(t, client.IsEnabled())
	})

	t.Run("configured client is enabled", func(t *testing.T) {
		client := NewClient(&config.ExtractionConfig{APIKey: "sk-test", Model: "gpt-4o-mini"}, zap.NewNop())
		assert.True(t, client.IsEnabled())
	})
}
