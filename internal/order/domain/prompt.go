package domain

import (
	"regexp"
	"strings"
)

// MaxPromptLen bounds the free-form song brief.
const MaxPromptLen = 2000

var (
	jsURLPattern   = regexp.MustCompile(`(?i)javascript:`)
	handlerPattern = regexp.MustCompile(`(?i)on\w+=`)
)

// SanitizePrompt strips markup vectors from a brief: angle brackets,
// javascript: URLs and inline event handlers.
func SanitizePrompt(input string) string {
	cleaned := strings.NewReplacer("<", "", ">", "").Replace(input)
	cleaned = jsURLPattern.ReplaceAllString(cleaned, "")
	cleaned = handlerPattern.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
