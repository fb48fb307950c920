package boleto

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRenderInput is returned when the renderer is missing required fields.
// Callers degrade gracefully: the title is still issued without a document.
var ErrRenderInput = errors.New("boleto render: incomplete input")

// RenderInput carries the presentation fields of a manual-mode document
type RenderInput struct {
	BeneficiaryName     string
	BeneficiaryDocument string
	BankName            string
	BankCode            string
	Agency              string
	Account             string
	AccountDigit        string
	DueDate             time.Time
	AmountCents         int64
	LinhaDigitavel      string
	Instructions        string
}

// Render produces the printable text artifact for a manual-mode title:
// structured fields plus a simplified bar pattern. The pattern is a visual
// placeholder, not a certified scannable encoding.
func Render(in RenderInput) (string, error) {
	if in.BeneficiaryName == "" || in.BankCode == "" || len(in.LinhaDigitavel) != LineLength {
		return "", ErrRenderInput
	}

	var b strings.Builder
	line := strings.Repeat("=", 64)

	b.WriteString(line + "\n")
	b.WriteString("BOLETO BANCARIO\n")
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "Beneficiario: %s\n", in.BeneficiaryName)
	if in.BeneficiaryDocument != "" {
		fmt.Fprintf(&b, "Documento:    %s\n", in.BeneficiaryDocument)
	}
	fmt.Fprintf(&b, "Banco:        %s (%s)\n", in.BankName, in.BankCode)
	account := in.Account
	if in.AccountDigit != "" {
		account = account + "-" + in.AccountDigit
	}
	fmt.Fprintf(&b, "Agencia/Conta: %s / %s\n", in.Agency, account)
	fmt.Fprintf(&b, "Vencimento:   %s\n", in.DueDate.Format("02/01/2006"))
	fmt.Fprintf(&b, "Valor:        %s\n", FormatAmountBRL(in.AmountCents))
	if in.Instructions != "" {
		fmt.Fprintf(&b, "Instrucoes:   %s\n", in.Instructions)
	}
	b.WriteString(line + "\n")
	fmt.Fprintf(&b, "Linha digitavel:\n%s\n", GroupLine(in.LinhaDigitavel))
	b.WriteString(line + "\n")
	b.WriteString(BarPattern(in.LinhaDigitavel) + "\n")
	b.WriteString(line + "\n")

	return b.String(), nil
}

// BarPattern draws the simplified visual bars: each digit at an even index
// becomes a bar of width 1 + (digit mod 3); odd indices become gaps.
func BarPattern(digits string) string {
	var b strings.Builder
	for i := 0; i < len(digits); i++ {
		d := digits[i]
		if d < '0' || d > '9' {
			continue
		}
		width := 1 + int(d-'0')%3
		if i%2 == 0 {
			b.WriteString(strings.Repeat("█", width))
		} else {
			b.WriteString(strings.Repeat(" ", width))
		}
	}
	return b.String()
}

// GroupLine formats the 47-digit line in blocks of 5 for readability
func GroupLine(line string) string {
	var groups []string
	for i := 0; i < len(line); i += 5 {
		end := i + 5
		if end > len(line) {
			end = len(line)
		}
		groups = append(groups, line[i:end])
	}
	return strings.Join(groups, " ")
}

// FormatAmountBRL renders cents as "R$ 1.234,56"
func FormatAmountBRL(amountCents int64) string {
	value := decimal.New(amountCents, -2).StringFixed(2)

	parts := strings.SplitN(value, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("R$ %s%s,%s", sign, strings.Join(grouped, "."), fracPart)
}
