package boleto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() EncodeInput {
	return EncodeInput{
		BankCode:       "001",
		Agency:         "0001",
		Account:        "000000",
		AmountCents:    12345,
		DueDate:        time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC),
		OrderReference: "BOL_1700000000_abc123",
	}
}

func TestEncode_LengthAndCharset(t *testing.T) {
	doc, err := Encode(validInput())
	require.NoError(t, err)

	assert.Len(t, doc.LinhaDigitavel, 47)
	assert.Len(t, doc.Barcode, 47)
	assert.Equal(t, doc.LinhaDigitavel, doc.Barcode)
	for _, r := range doc.LinhaDigitavel {
		assert.True(t, r >= '0' && r <= '9', "non-digit %q in line", r)
	}
}

func TestEncode_CheckDigitMatchesRecomputation(t *testing.T) {
	// Scenario: amount 12345 cents, bank 001, agency 0001, account 000000,
	// due in 3 days, reference BOL_1700000000_abc123
	in := validInput()
	in.DueDate = time.Now().AddDate(0, 0, 3)

	doc, err := Encode(in)
	require.NoError(t, err)

	raw := doc.LinhaDigitavel[:46]
	want := ComputeCheckDigit(raw)
	got := int(doc.LinhaDigitavel[46] - '0')
	assert.Equal(t, want, got)
}

func TestEncode_Deterministic(t *testing.T) {
	in := validInput()

	first, err := Encode(in)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Encode(in)
		require.NoError(t, err)
		assert.Equal(t, first.LinhaDigitavel, again.LinhaDigitavel)
		assert.Equal(t, first.Barcode, again.Barcode)
	}
}

func TestEncode_PayloadLayout(t *testing.T) {
	doc, err := Encode(validInput())
	require.NoError(t, err)

	line := doc.LinhaDigitavel
	assert.Equal(t, "001", line[0:3], "bank code")
	assert.Equal(t, "9", line[3:4], "segment digit")
	assert.Equal(t, "0001", line[4:8], "agency")
	assert.Equal(t, "0000000000", line[8:18], "account")
	assert.Equal(t, "0000012345", line[18:28], "amount")
	// ISO 2026-09-04 -> digits 20260904 -> first 6
	assert.Equal(t, "202609", line[28:34], "due date fragment")
	// digits of BOL_1700000000_abc123 -> 1700000000123 -> rightmost 7
	assert.Equal(t, "0000123", line[34:41], "reference fragment")
	assert.Equal(t, "00000", line[41:46], "zero padding")
}

func TestEncode_ReferenceShorterThanSevenDigits(t *testing.T) {
	in := validInput()
	in.OrderReference = "PED-42"

	doc, err := Encode(in)
	require.NoError(t, err)
	assert.Equal(t, "0000042", doc.LinhaDigitavel[34:41])
}

func TestEncode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EncodeInput)
		field  string
	}{
		{"amount overflows ten digits", func(in *EncodeInput) { in.AmountCents = 10_000_000_000_0 }, "amount_cents"},
		{"amount zero", func(in *EncodeInput) { in.AmountCents = 0 }, "amount_cents"},
		{"amount negative", func(in *EncodeInput) { in.AmountCents = -1 }, "amount_cents"},
		{"agency overflows", func(in *EncodeInput) { in.Agency = "12345" }, "agency"},
		{"account overflows", func(in *EncodeInput) { in.Account = "12345678901" }, "account"},
		{"bank code empty", func(in *EncodeInput) { in.BankCode = "" }, "bank_code"},
		{"bank code non numeric", func(in *EncodeInput) { in.BankCode = "ABC" }, "bank_code"},
		{"reference without digits", func(in *EncodeInput) { in.OrderReference = "PED_abc" }, "order_reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)

			doc, err := Encode(in)
			require.Error(t, err)
			assert.Nil(t, doc)

			var encErr *EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, tt.field, encErr.Field)
		})
	}
}

func TestComputeCheckDigit(t *testing.T) {
	// Hand-computed: digits 1..4 right-to-left with weights 2,1,2,1:
	// 4*2=8, 3*1=3, 2*2=4, 1*1=1 -> sum 16 -> (10-6)%10 = 4
	assert.Equal(t, 4, ComputeCheckDigit("1234"))

	// Folding: 9*2=18 -> 1+8=9; sum 9 -> (10-9)%10 = 1
	assert.Equal(t, 1, ComputeCheckDigit("9"))

	// Sum multiple of ten yields zero, not ten
	// 5*2=10 -> 1+0=1 ... construct: "55" -> 5*2=10->1, 5*1=5 -> 6 -> 4
	assert.Equal(t, 4, ComputeCheckDigit("55"))
	// "0" -> 0 -> (10-0)%10 = 0
	assert.Equal(t, 0, ComputeCheckDigit("0"))
}

func TestComputeCheckDigit_AllZeros(t *testing.T) {
	assert.Equal(t, 0, ComputeCheckDigit(strings.Repeat("0", 46)))
}
