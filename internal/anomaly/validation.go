package anomaly

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"billing-tools/internal/common/validation"
)

// amount accepts numeric strings the same way lax float parsing does.
var invoiceSchema = validation.MustSchema(`{
  "type": "object",
  "required": ["tenant_id", "amount", "currency", "customer_id"],
  "properties": {
    "tenant_id":   {"type": "string"},
    "amount":      {"type": ["number", "string"]},
    "currency":    {"type": "string"},
    "customer_id": {"type": "string"}
  }
}`)

const (
	codeFloatParsing = "float_parsing"
	msgFloatParsing  = "Input should be a valid number, unable to parse string as a number"
)

// invoicePayload mirrors InvoiceData with amount left undecoded.
type invoicePayload struct {
	TenantID   string          `json:"tenant_id"`
	Amount     json.RawMessage `json:"amount"`
	Currency   string          `json:"currency"`
	CustomerID string          `json:"customer_id"`
}

// ParseInvoice decodes and type-checks a request body. A non-nil result with
// Valid false means the body was JSON but did not match the schema; err is
// set only for malformed JSON.
func ParseInvoice(body []byte) (InvoiceData, *validation.ValidationResult, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return InvoiceData{}, nil, fmt.Errorf("decode invoice: %w", err)
	}

	result, err := invoiceSchema.Validate(doc)
	if err != nil {
		return InvoiceData{}, nil, err
	}
	if !result.Valid {
		return InvoiceData{}, result, nil
	}

	var payload invoicePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return InvoiceData{}, nil, fmt.Errorf("decode invoice: %w", err)
	}

	amount, ok := parseAmount(payload.Amount)
	if !ok {
		return InvoiceData{}, &validation.ValidationResult{
			Valid: false,
			Errors: []validation.ValidationError{{
				Field:   "amount",
				Message: msgFloatParsing,
				Code:    codeFloatParsing,
			}},
		}, nil
	}

	return InvoiceData{
		TenantID:   payload.TenantID,
		Amount:     amount,
		Currency:   payload.Currency,
		CustomerID: payload.CustomerID,
	}, result, nil
}

// parseAmount reads a JSON number or a string holding a finite decimal number.
func parseAmount(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
		return f, true
	}

	s = strings.TrimSpace(s)
	if strings.ContainsAny(s, "xX_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
