package validate

import "strings"

// Func validates a single value.
type Func func(value string) bool

// Result is the outcome of validating a comma-separated list.
type Result struct {
	Valid bool `json:"isValid"`
	// InvalidValue is the first token that failed, empty when Valid.
	InvalidValue string `json:"invalidValue,omitempty"`
}

// Tokens trims raw, splits it on commas and returns the trimmed, non-empty
// tokens in their original order.
func Tokens(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var tokens []string
	for _, part := range strings.Split(raw, ",") {
		if tok := strings.TrimSpace(part); tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Multi validates every token of a comma-separated list with fn and stops at
// the first failure. A list with nothing to validate is valid.
func Multi(raw string, fn Func) Result {
	if raw == "" {
		return Result{Valid: true}
	}
	for _, tok := range Tokens(raw) {
		if !fn(tok) {
			return Result{Valid: false, InvalidValue: tok}
		}
	}
	return Result{Valid: true}
}
