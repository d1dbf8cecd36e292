// Package extraction turns pasted free text or NF-e XML into invoice
// candidates via the OpenAI chat completion API. The model returns a JSON
// array; each element maps onto one candidate. The extractor is lenient
// about missing fields since the reconciler substitutes defaults later.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prefvista/fiscal-api/internal/config"
	"github.com/prefvista/fiscal-api/internal/importer"
)

// ErrNoCandidates is returned when the model finds no invoices in the payload
var ErrNoCandidates = errors.New("no invoices found in payload")

// ErrNotConfigured is returned when no API key is configured
var ErrNotConfigured = errors.New("extraction API key not configured")

const systemPrompt = `Você extrai notas fiscais de texto livre ou XML de NF-e para um portal de controle municipal.

Retorne SOMENTE um array JSON válido, sem texto antes ou depois. Cada elemento representa uma nota fiscal:
{
  "budget_unit": "unidade orçamentária ou secretaria, se mencionada",
  "supplier_name": "nome do fornecedor como aparece no documento",
  "invoice_number": "número da nota fiscal",
  "commitment_number": "número do empenho, se houver",
  "amount": "valor total como string, ex: 1234.56",
  "due_date": "data de vencimento em formato YYYY-MM-DD",
  "supplier": {
    "tax_id": "CNPJ ou CPF exatamente como escrito no documento",
    "legal_name": "razão social",
    "trade_name": "nome fantasia",
    "email": "",
    "phone": ""
  }
}

Regras:
- Use null para campos ausentes; omita "supplier" inteiro quando não houver CNPJ/CPF.
- Não invente valores. Não corrija a pontuação do CNPJ; copie como está.
- Datas sempre YYYY-MM-DD. Valores sempre com ponto decimal.
- O JSON não pode ter vírgula após o último campo.`

// candidatePayload is the wire shape of one extracted invoice
type candidatePayload struct {
	BudgetUnit       string `json:"budget_unit"`
	SupplierName     string `json:"supplier_name"`
	InvoiceNumber    string `json:"invoice_number"`
	CommitmentNumber string `json:"commitment_number"`
	Amount           string `json:"amount"`
	DueDate          string `json:"due_date"`
	Supplier         *struct {
		TaxID     string `json:"tax_id"`
		LegalName string `json:"legal_name"`
		TradeName string `json:"trade_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"supplier"`
}

// Client calls the chat completion API to parse invoice payloads
type Client struct {
	api         *openai.Client
	model       string
	maxRetries  int
	temperature float32
	logger      *zap.Logger
}

// NewClient creates an extraction client. Returns nil (without error) when
// no API key is configured; the import endpoint then rejects payload
// extraction with ErrNotConfigured.
func NewClient(cfg *config.ExtractionConfig, logger *zap.Logger) *Client {
	if cfg.APIKey == "" {
		logger.Info("Extraction disabled, no API key configured")
		return nil
	}
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxRetries:  cfg.MaxRetries,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// IsEnabled returns true when the client can make API calls
func (c *Client) IsEnabled() bool {
	return c != nil && c.api != nil
}

// Extract parses the payload into invoice candidates. The request is
// retried on transport errors and on malformed JSON responses.
func (c *Client) Extract(ctx context.Context, payload string) ([]importer.Candidate, error) {
	if !c.IsEnabled() {
		return nil, ErrNotConfigured
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.model,
			Temperature: c.temperature,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: payload},
			},
			MaxTokens: 4000,
		})
		if err != nil {
			lastErr = err
			c.logger.Warn("extraction request failed, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", c.maxRetries),
			)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices")
			continue
		}

		candidates, err := parseResponse(resp.Choices[0].Message.Content)
		if err != nil {
			lastErr = err
			c.logger.Warn("failed to parse extraction response, retrying",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			continue
		}

		if len(candidates) == 0 {
			return nil, ErrNoCandidates
		}

		c.logger.Info("extraction completed",
			zap.Int("candidates", len(candidates)),
			zap.Int("attempt", attempt),
		)
		return candidates, nil
	}

	return nil, fmt.Errorf("extraction failed after %d attempts: %w", c.maxRetries, lastErr)
}

// parseResponse decodes the model output into candidates. Markdown code
// fences around the JSON are tolerated.
func parseResponse(content string) ([]importer.Candidate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payloads []candidatePayload
	if err := json.Unmarshal([]byte(content), &payloads); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	candidates := make([]importer.Candidate, 0, len(payloads))
	for _, p := range payloads {
		candidate := importer.Candidate{
			BudgetUnit:       p.BudgetUnit,
			SupplierName:     p.SupplierName,
			InvoiceNumber:    p.InvoiceNumber,
			CommitmentNumber: p.CommitmentNumber,
			Amount:           parseAmount(p.Amount),
		}
		if p.DueDate != "" {
			if date, err := time.Parse("2006-01-02", p.DueDate); err == nil {
				candidate.DueDate = &date
			}
		}
		if p.Supplier != nil && p.Supplier.TaxID != "" {
			candidate.Supplier = &importer.SupplierPayload{
				TaxID:     p.Supplier.TaxID,
				LegalName: p.Supplier.LegalName,
				TradeName: p.Supplier.TradeName,
				Email:     p.Supplier.Email,
				Phone:     p.Supplier.Phone,
			}
		}
		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// parseAmount reads a monetary string in either dot-decimal or Brazilian
// format ("1.234,56"). Unparseable input yields zero; the reconciler
// treats zero as a missing amount.
func parseAmount(s string) decimal.Decimal {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.TrimPrefix(cleaned, "R$")

	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	if _, err := strconv.ParseFloat(cleaned, 64); err != nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
