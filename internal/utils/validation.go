package utils

import (
	"github.com/go-playground/validator/v10"
)

// ValidCPF reports whether s is a Brazilian taxpayer number with correct
// check digits. Punctuation is ignored.
func ValidCPF(s string) bool {
	digits := make([]int, 0, 11)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == '.' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	if len(digits) != 11 {
		return false
	}

	// 000.000.000-00 and friends pass the checksum but are never issued
	same := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}

	return cpfCheckDigit(digits[:9]) == digits[9] && cpfCheckDigit(digits[:10]) == digits[10]
}

func cpfCheckDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, d := range digits {
		sum += d * weight
		weight--
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// RegisterValidations adds the custom tags used by the domain structs.
func RegisterValidations(v *validator.Validate) error {
	return v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return ValidCPF(fl.Field().String())
	})
}
