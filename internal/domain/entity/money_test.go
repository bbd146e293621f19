package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
)

func TestValidateAndConvertAmount(t *testing.T) {
	t.Run("Valid amounts", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected int64
		}{
			{"100.00", 10000},
			{"0.01", 1},
			{"0.10", 10},
			{"1", 100},
			{"1.5", 150},
			{"300", 30000},
			{"10.15", 1015},
			{"1234567.89", 123456789},
			{"0.00", 0},
			{"0", 0},
			{"  50.00  ", 5000},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				cents, err := ValidateAndConvertAmount(tc.input)
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, cents)
			})
		}
	})

	t.Run("Invalid amounts", func(t *testing.T) {
		testCases := []struct {
			input       string
			errorType   error
			description string
		}{
			{"", errs.ErrInvalidAmount, "Empty string"},
			{"   ", errs.ErrInvalidAmount, "Whitespace only"},
			{"-1.00", errs.ErrNegativeAmount, "Negative amount"},
			{"1.234", errs.ErrInvalidAmount, "Too many decimal places"},
			{"abc", errs.ErrInvalidAmount, "Non-numeric"},
			{"1,000.00", errs.ErrInvalidAmount, "Comma as thousands separator"},
			{"1.00.00", errs.ErrInvalidAmount, "Multiple decimal points"},
			{"$100", errs.ErrInvalidAmount, "Currency symbol"},
		}

		for _, tc := range testCases {
			t.Run(tc.description, func(t *testing.T) {
				_, err := ValidateAndConvertAmount(tc.input)
				assert.Error(t, err)
				assert.ErrorIs(t, err, tc.errorType)
			})
		}
	})
}

func TestAmountInCentsToString(t *testing.T) {
	testCases := []struct {
		cents    int64
		expected string
	}{
		{10000, "100.00"},
		{1, "0.01"},
		{10, "0.10"},
		{150, "1.50"},
		{1015, "10.15"},
		{30000, "300.00"},
		{0, "0.00"},
		{-150, "-1.50"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, AmountInCentsToString(tc.cents))
		})
	}
}

func TestAmountRoundTrip(t *testing.T) {
	// string -> cents -> string must be stable for two-decimal values
	inputs := []string{"100.00", "0.01", "10.15", "1234567.89"}
	for _, in := range inputs {
		cents, err := ValidateAndConvertAmount(in)
		assert.NoError(t, err)
		assert.Equal(t, in, AmountInCentsToString(cents))
	}
}
