package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var txCodePattern = regexp.MustCompile(`^PAY-\d{14}-[0-9A-F]{8}$`)

func TestGenerateTransactionCode_Format(t *testing.T) {
	code := GenerateTransactionCode()
	assert.Regexp(t, txCodePattern, code)
}

func TestGenerateTransactionCode_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateTransactionCode()
		assert.False(t, seen[code], "duplicate code generated: %s", code)
		seen[code] = true
	}
}

func TestRandomHex_Length(t *testing.T) {
	assert.Len(t, RandomHex(4), 8)
	assert.Len(t, RandomHex(8), 16)
	assert.Len(t, RandomHex(16), 32)
}
