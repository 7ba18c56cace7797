package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTimestampWithPrefix(t *testing.T) {
	a := GenerateTimestampWithPrefix("PU")
	b := GenerateTimestampWithPrefix("PU")

	assert.True(t, strings.HasPrefix(a, "PU"))
	assert.Len(t, a, len("PU")+14+8)
	assert.NotEqual(t, a, b)
}
