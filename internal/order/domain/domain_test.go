package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusAwaitingPayment, StatusPending, true},
		{StatusAwaitingPayment, StatusCanceled, true},
		{StatusAwaitingPayment, StatusInProduction, false},
		{StatusAwaitingPayment, StatusCompleted, false},
		{StatusPending, StatusInProduction, true},
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusCanceled, true},
		{StatusPending, StatusAwaitingPayment, false},
		{StatusInProduction, StatusCompleted, true},
		{StatusInProduction, StatusCanceled, true},
		{StatusInProduction, StatusPending, false},
		{StatusCompleted, StatusCanceled, false},
		{StatusCompleted, StatusPending, false},
		{StatusCanceled, StatusPending, false},
		{StatusCanceled, StatusCompleted, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.False(t, StatusAwaitingPayment.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusInProduction.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	status, ok := ParseStatus("IN_PRODUCTION")
	assert.True(t, ok)
	assert.Equal(t, StatusInProduction, status)

	_, ok = ParseStatus("in_production")
	assert.False(t, ok)
	_, ok = ParseStatus("")
	assert.False(t, ok)
}

func TestSanitizePrompt(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text survives", "uma música de aniversário", "uma música de aniversário"},
		{"angle brackets stripped", "olá <script>alert(1)</script> mundo", "olá scriptalert(1)/script mundo"},
		{"javascript url stripped", "veja javascript:alert(1) aqui", "veja alert(1) aqui"},
		{"event handler stripped", "img onerror=alert(1) fim", "img alert(1) fim"},
		{"whitespace trimmed", "   oi   ", "oi"},
		{"only markup collapses to empty", "  <> ", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizePrompt(tc.input))
		})
	}
}
