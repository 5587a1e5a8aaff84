package identity

import "strings"

// SplitName splits a full name on the first space: the first token is the
// given name and everything after that space, untouched, the family name.
// Only the ends of name are trimmed.
func SplitName(name string) (given, family string) {
	given, family, _ = strings.Cut(strings.TrimSpace(name), " ")
	return given, family
}
