package provider

import (
	"fmt"
	"strings"
	"unicode"
)

// CanonicalPhone normalizes a Brazilian phone number for the gateway:
// country code 55 + area code + 9-digit mobile number, digits only.
//
// Accepted inputs:
//   - "5548991234567"        (already canonical)
//   - "48991234567"          (missing country code)
//   - "4891234567"           (missing country code and the mobile 9)
//   - "+55 (48) 99123-4567"  (formatted)
func CanonicalPhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "55") && len(digits) == 13:
		return digits, nil
	case len(digits) == 11:
		return "55" + digits, nil
	case len(digits) == 10:
		// Older records lack the mobile 9 after the area code.
		return "55" + digits[:2] + "9" + digits[2:], nil
	}

	return "", fmt.Errorf("phone number %q has no deliverable form", raw)
}
