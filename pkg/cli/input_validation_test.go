package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInput(t *testing.T) {
	valid := []string{
		"widget",
		"prod-42",
		"seller@example.com",
		"blue widget\tlarge",
		"to-ship",
	}
	for _, input := range valid {
		assert.NoError(t, ValidateInput(input), "input %q should pass", input)
	}

	invalid := []string{
		"",
		strings.Repeat("a", 257),
		"../etc/passwd",
		"..\\windows",
		"a;rm -rf",
		"a|b",
		"a&b",
		"a`b`",
		"a$HOME",
		"bad\x00input",
		"bad\ninput",
	}
	for _, input := range invalid {
		assert.Error(t, ValidateInput(input), "input %q should be rejected", input)
	}
}
