package search

import (
	"errors"
	"fmt"

	"github.com/emurenMRz/mailmark/internal/validate"
)

var (
	ErrInvalidKey    = errors.New("search key must be letters, digits, '.' or '-'")
	ErrInvalidDomain = errors.New("invalid email domain")
	ErrInvalidCount  = errors.New("result count out of range")
)

// Query is one search request.
type Query struct {
	Engine Engine
	Key    string
	Domain string // optional; restricts results to this domain
	Count  int
}

// Validate checks the key, the optional domain and that Count is within
// 1..maxCount. The engine is not checked.
func (q Query) Validate(maxCount int) error {
	if q.Key == "" || !validate.EmailKey(q.Key) {
		return ErrInvalidKey
	}
	if q.Domain != "" && !validate.EmailDomain(q.Domain) {
		return ErrInvalidDomain
	}
	if q.Count < 1 || q.Count > maxCount {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidCount, q.Count, maxCount)
	}
	return nil
}
