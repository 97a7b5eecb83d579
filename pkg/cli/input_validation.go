package cli

import (
	"errors"
	"strings"
	"unicode"
)

const maxInputLength = 256

// ValidateInput rejects console input that could not be a legitimate
// identifier, search term or command argument.
func ValidateInput(input string) error {
	if input == "" {
		return errors.New("empty input")
	}
	if len(input) > maxInputLength {
		return errors.New("input too long")
	}

	// Path traversal
	if strings.Contains(input, "../") || strings.Contains(input, "..\\") {
		return errors.New("potentially malicious input detected")
	}

	// Shell metacharacters
	if strings.ContainsAny(input, ";|&`$") {
		return errors.New("potentially malicious input detected")
	}

	// Control characters
	for _, r := range input {
		if unicode.IsControl(r) && r != '\t' {
			return errors.New("potentially malicious input detected")
		}
	}

	return nil
}
