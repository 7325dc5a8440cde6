package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	origOut, origErr := Stdout, Stderr
	Stdout, Stderr = &stdout, &stderr
	t.Cleanup(func() { Stdout, Stderr = origOut, origErr })
	return &stdout, &stderr
}

func TestErrorGoesToStderr(t *testing.T) {
	stdout, stderr := capture(t)

	Error("sender %s", "not found")
	Success("recorded %d", 1)

	assert.Contains(t, stderr.String(), "sender not found")
	assert.NotContains(t, stdout.String(), "sender not found")
	assert.Contains(t, stdout.String(), "recorded 1")
}

func TestSectionUnderlinesTitle(t *testing.T) {
	stdout, _ := capture(t)

	Section("Transfers")

	assert.Contains(t, stdout.String(), "Transfers")
	assert.Contains(t, stdout.String(), strings.Repeat("═", len("Transfers")))
}

func TestAmount(t *testing.T) {
	assert.Contains(t, Amount(decimal.RequireFromString("-12.5")), "-12.50")
	assert.Contains(t, Amount(decimal.RequireFromString("3")), "+3.00")
}

func TestStatusIcon(t *testing.T) {
	assert.Contains(t, StatusIcon("completed"), "✓")
	assert.Contains(t, StatusIcon("applied"), "✓")
	assert.Contains(t, StatusIcon("pending"), "○")
	assert.Contains(t, StatusIcon("failed"), "✗")
	assert.Contains(t, StatusIcon("unknown"), "•")
}
