package entity

import (
	"fmt"
	"strconv"
	"strings"

	errs "github.com/maryreaky/betrix-payments/internal/domain/error"
)

// MaxDecimalPlaces defines the maximum number of decimal places allowed for
// money amounts
const MaxDecimalPlaces = 2

// ValidateAndConvertAmount validates a string amount and converts it to
// cents. The conversion is string-based to avoid float rounding:
// "300" -> 30000, "10.5" -> 1050, "10.15" -> 1015.
func ValidateAndConvertAmount(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if len(amount) == 0 {
		return 0, fmt.Errorf("%w: empty value", errs.ErrInvalidAmount)
	}

	if strings.HasPrefix(amount, "-") {
		return 0, errs.ErrNegativeAmount
	}

	parts := strings.Split(amount, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: invalid number format", errs.ErrInvalidAmount)
	}

	var integerValue string
	if len(parts) == 1 {
		integerValue = parts[0] + "00"
	} else {
		switch len(parts[1]) {
		case 0:
			integerValue = parts[0] + "00"
		case 1:
			integerValue = parts[0] + parts[1] + "0"
		case 2:
			integerValue = parts[0] + parts[1]
		default:
			return 0, fmt.Errorf("%w: maximum %d decimal places allowed", errs.ErrInvalidAmount, MaxDecimalPlaces)
		}
	}

	value, err := strconv.ParseInt(integerValue, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", errs.ErrInvalidAmount, err.Error())
	}

	return value, nil
}

// AmountInCentsToString converts an integer cent amount to a decimal string
// with exactly two decimal places: 1015 -> "10.15", 30000 -> "300.00".
func AmountInCentsToString(amountInCents int64) string {
	negative := amountInCents < 0
	if negative {
		amountInCents = -amountInCents
	}

	whole := amountInCents / 100
	cents := amountInCents % 100

	s := fmt.Sprintf("%d.%02d", whole, cents)
	if negative {
		s = "-" + s
	}
	return s
}
