package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKind is returned by ParseKind for names that match no Kind.
var ErrUnknownKind = errors.New("unknown validation kind")

// Kind selects one of the single-value validators.
type Kind int

const (
	KindEmail Kind = iota + 1
	KindURL
	KindPassword
	KindAlphanumeric
	KindEmailDomain
	KindEmailKey
)

var kindNames = map[Kind]string{
	KindEmail:        "email",
	KindURL:          "url",
	KindPassword:     "password",
	KindAlphanumeric: "alphanumeric",
	KindEmailDomain:  "email-domain",
	KindEmailKey:     "email-key",
}

// Kinds returns every Kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindEmail, KindURL, KindPassword, KindAlphanumeric, KindEmailDomain, KindEmailKey}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a name such as "email" or "email-domain" to its Kind.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Func returns the validator for k. It panics for a Kind outside the
// declared set.
func (k Kind) Func() Func {
	switch k {
	case KindEmail:
		return Email
	case KindURL:
		return URL
	case KindPassword:
		return Password
	case KindAlphanumeric:
		return func(value string) bool { return Alphanumeric(value) }
	case KindEmailDomain:
		return EmailDomain
	case KindEmailKey:
		return EmailKey
	}
	panic(fmt.Sprintf("validate: unhandled kind %d", int(k)))
}

// Check validates value with k, or each comma-separated token when multi is set.
func (k Kind) Check(value string, multi bool) Result {
	fn := k.Func()
	if multi {
		return Multi(value, fn)
	}
	if fn(value) {
		return Result{Valid: true}
	}
	return Result{Valid: false, InvalidValue: value}
}
