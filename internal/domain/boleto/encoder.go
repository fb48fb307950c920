// Package boleto implements the pure document-encoding core: the 47-digit
// checksummed linha digitavel and the barcode digit string derived from it.
// Everything here is deterministic; identical inputs always produce identical
// output, which the issuance path relies on for idempotent retries.
package boleto

import (
	"fmt"
	"strings"
	"time"
)

// Fixed widths of the raw payload segments
const (
	bankCodeWidth  = 3
	agencyWidth    = 4
	accountWidth   = 10
	amountWidth    = 10
	dueDateWidth   = 6
	referenceWidth = 7

	rawPayloadLength = 46
	// LineLength is the full encoded line: raw payload plus check digit
	LineLength = rawPayloadLength + 1

	// segmentDigit is the fixed digit placed after the bank code
	segmentDigit = "9"
)

// EncodingError reports a field that cannot fit its fixed width or is not
// numeric. Issuance treats it as fatal: a truncated or wrongly checksummed
// line must never be emitted.
type EncodingError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *EncodingError) Error() string {
	return fmt.Sprintf("boleto encoding: field %s: %s", e.Field, e.Reason)
}

func newEncodingError(field, reason string) *EncodingError {
	return &EncodingError{Field: field, Reason: reason}
}

// EncodeInput carries the bank/amount/date/reference fields of a document
type EncodeInput struct {
	BankCode       string
	Agency         string
	Account        string
	AmountCents    int64
	DueDate        time.Time
	OrderReference string
}

// Document is the encoded payable document
type Document struct {
	// LinhaDigitavel is the 47-digit checksummed line
	LinhaDigitavel string
	// Barcode is the digit string used for bar rendering (same 47 digits)
	Barcode string
}

// Encode builds the 46-digit raw payload, appends the check digit, and
// returns the resulting line and barcode.
func Encode(in EncodeInput) (*Document, error) {
	raw, err := buildRawPayload(in)
	if err != nil {
		return nil, err
	}
	check := ComputeCheckDigit(raw)
	line := raw + string(rune('0'+check))
	return &Document{
		LinhaDigitavel: line,
		Barcode:        line,
	}, nil
}

// buildRawPayload concatenates the fixed-width segments and right-pads the
// result with zeros to exactly 46 characters.
func buildRawPayload(in EncodeInput) (string, error) {
	bank, err := padNumericLeft("bank_code", in.BankCode, bankCodeWidth)
	if err != nil {
		return "", err
	}
	agency, err := padNumericLeft("agency", in.Agency, agencyWidth)
	if err != nil {
		return "", err
	}
	account, err := padNumericLeft("account", in.Account, accountWidth)
	if err != nil {
		return "", err
	}

	if in.AmountCents <= 0 {
		return "", newEncodingError("amount_cents", "must be positive")
	}
	amount := fmt.Sprintf("%d", in.AmountCents)
	if len(amount) > amountWidth {
		return "", newEncodingError("amount_cents",
			fmt.Sprintf("needs %d digits, field width is %d", len(amount), amountWidth))
	}
	amount = strings.Repeat("0", amountWidth-len(amount)) + amount

	due := dueDateFragment(in.DueDate)

	ref, err := referenceFragment(in.OrderReference)
	if err != nil {
		return "", err
	}

	raw := bank + segmentDigit + agency + account + amount + due + ref
	if len(raw) > rawPayloadLength {
		return "", newEncodingError("payload",
			fmt.Sprintf("payload is %d characters, limit is %d", len(raw), rawPayloadLength))
	}
	raw += strings.Repeat("0", rawPayloadLength-len(raw))
	return raw, nil
}

// dueDateFragment takes the first 6 digits of the ISO date. This is a plain
// truncation, not the certified "fator de vencimento" day count; the manual
// flow deliberately issues non-certified documents.
func dueDateFragment(due time.Time) string {
	iso := due.Format("2006-01-02")
	digits := stripNonDigits(iso)
	return digits[:dueDateWidth]
}

// referenceFragment keeps the rightmost 7 digits of the reference,
// left-padded with zeros.
func referenceFragment(reference string) (string, error) {
	digits := stripNonDigits(reference)
	if digits == "" {
		return "", newEncodingError("order_reference", "contains no digits after stripping")
	}
	if len(digits) > referenceWidth {
		digits = digits[len(digits)-referenceWidth:]
	}
	return strings.Repeat("0", referenceWidth-len(digits)) + digits, nil
}

// ComputeCheckDigit scans right-to-left with alternating weights 2 and 1
// starting at 2, folds any product above 9 into the sum of its digits, and
// returns (10 - sum mod 10) mod 10.
func ComputeCheckDigit(payload string) int {
	sum := 0
	weight := 2
	for i := len(payload) - 1; i >= 0; i-- {
		d := int(payload[i] - '0')
		p := d * weight
		if p > 9 {
			p = p/10 + p%10
		}
		sum += p
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return (10 - sum%10) % 10
}

// padNumericLeft strips separators, verifies the value is numeric, and
// left-pads it with zeros to the given width.
func padNumericLeft(field, value string, width int) (string, error) {
	digits := stripNonDigits(value)
	if digits == "" {
		return "", newEncodingError(field, "contains no digits")
	}
	if len(digits) > width {
		return "", newEncodingError(field,
			fmt.Sprintf("needs %d digits, field width is %d", len(digits), width))
	}
	return strings.Repeat("0", width-len(digits)) + digits, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
