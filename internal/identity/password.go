package identity

import (
	"strings"
	"unicode"

	"github.com/sethvargo/go-password/password"
)

// commonPasswords is a short denylist of passwords seen in every breach dump.
var commonPasswords = map[string]struct{}{
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"password":    {},
	"password1":   {},
	"password123": {},
	"qwerty123":   {},
	"senha123":    {},
	"abc12345":    {},
	"iloveyou1":   {},
}

// CheckPassword applies the local password policy and reports violations with
// the same codes a hosted provider uses.
func CheckPassword(pw string, minLength int) error {
	if len([]rune(pw)) < minLength {
		return &Error{Code: CodePasswordTooShort, Message: "password is too short"}
	}
	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return &Error{Code: CodePasswordPwned, Message: "password has been found in an online data breach"}
	}

	var hasLetter, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return &Error{Code: CodePasswordValidationFailed, Message: "password must contain letters and digits"}
	}

	return nil
}

// GeneratePassword returns a random password that satisfies CheckPassword.
func GeneratePassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	return password.Generate(length, 4, 2, false, true)
}
