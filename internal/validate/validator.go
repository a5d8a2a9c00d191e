package validate

import (
	"net/netip"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	maxLocalPartLength = 64
	maxAddressLength   = 254

	// PasswordSpecials lists the characters that satisfy the special-character rule.
	PasswordSpecials = "!@#$%^&*"
)

var (
	// Local part atoms per RFC 5322 atext, domain labels of at most 63 characters.
	emailPattern = regexp.MustCompile("(?i)^[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\\.)+[a-z]{2,63}$")

	domainPattern = regexp.MustCompile(`(?i)^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

	// urlPattern captures the host and leaves its classification to publicHost.
	urlPattern = regexp.MustCompile(`(?i)^(?:https?|ftp)://(?:[^\s:@/]+(?::[^\s@/]*)?@)?([^\s:/?#@\[\]]+)(?::\d{2,5})?(?:[/?#]\S*)?$`)

	hostnamePattern = regexp.MustCompile(`(?i)^(?:[a-z0-9\x{00a1}-\x{ffff}](?:[a-z0-9\x{00a1}-\x{ffff}_-]{0,61}[a-z0-9\x{00a1}-\x{ffff}])?\.)+[a-z\x{00a1}-\x{ffff}]{2,}\.?$`)

	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*]`)
)

// Email reports whether value is a well-formed email address.
func Email(value string) bool {
	if value == "" || len(value) > maxAddressLength {
		return false
	}
	at := strings.LastIndexByte(value, '@')
	if at > maxLocalPartLength {
		return false
	}
	return emailPattern.MatchString(value)
}

// URL reports whether value is a web address on a public host.
// A missing http:// or https:// prefix is assumed to be http://.
func URL(value string) bool {
	if value == "" {
		return false
	}
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		value = "http://" + value
	}
	m := urlPattern.FindStringSubmatch(value)
	if m == nil {
		return false
	}
	return publicHost(m[1])
}

func publicHost(host string) bool {
	if addr, err := netip.ParseAddr(host); err == nil {
		return publicIPv4(addr)
	}
	return hostnamePattern.MatchString(host)
}

// publicIPv4 rejects private, loopback, link-local, network and broadcast
// addresses as well as anything outside the unicast range.
func publicIPv4(addr netip.Addr) bool {
	if !addr.Is4() {
		return false
	}
	b := addr.As4()
	if b[0] < 1 || b[0] > 223 || b[3] == 0 || b[3] == 255 {
		return false
	}
	return !addr.IsPrivate() && !addr.IsLoopback() && !addr.IsLinkLocalUnicast()
}

// Password reports whether value mixes lowercase, uppercase, digits and one
// of PasswordSpecials. Length is checked separately with MinLength.
func Password(value string) bool {
	if value == "" {
		return false
	}
	return lowerPattern.MatchString(value) &&
		upperPattern.MatchString(value) &&
		digitPattern.MatchString(value) &&
		specialPattern.MatchString(value)
}

// MinLength reports whether value has at least n characters.
func MinLength(value string, n int) bool {
	return value != "" && utf8.RuneCountInString(value) >= n
}

// Alphanumeric reports whether value consists only of Latin letters, digits,
// Hebrew letters, spaces and the extra runes.
func Alphanumeric(value string, extra ...rune) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !alphanumericRune(r) && !slices.Contains(extra, r) {
			return false
		}
	}
	return true
}

func alphanumericRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ':
		return true
	case r >= 'א' && r <= 'ת':
		return true
	}
	return false
}

// EmailDomain reports whether value looks like the domain half of an address.
func EmailDomain(value string) bool {
	if value == "" {
		return false
	}
	return domainPattern.MatchString(value)
}

// EmailKey reports whether value is usable as a search key for the local part
// of an address.
func EmailKey(value string) bool {
	return Alphanumeric(value, '.', '-')
}
