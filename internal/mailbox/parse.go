package mailbox

import (
	"io"
	"mime"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// wordDecoder converts encoded-words with non-UTF-8 charsets (e.g. ISO-2022-JP).
var wordDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

// charsetReader resolves a MIME charset label through the MIME registry first
// and the full IANA registry second. Unknown charsets pass through unchanged.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	label := strings.ToLower(strings.TrimSpace(charset))
	switch label {
	case "", "utf-8", "us-ascii":
		return input, nil
	}
	for _, idx := range []*ianaindex.Index{ianaindex.MIME, ianaindex.IANA} {
		if enc, err := idx.Encoding(label); err == nil && enc != nil {
			return transform.NewReader(input, enc.NewDecoder()), nil
		}
	}
	return input, nil
}

func decodeHeader(value string) string {
	if dec, err := wordDecoder.DecodeHeader(value); err == nil {
		return dec
	}
	return value
}

// parseAddresses returns the addresses of an address-list header. A list that
// does not parse as a whole is retried entry by entry.
func parseAddresses(header string) []*mail.Address {
	if header == "" {
		return nil
	}
	parser := &mail.AddressParser{WordDecoder: wordDecoder}
	if addrs, err := parser.ParseList(header); err == nil {
		return addrs
	}
	var addrs []*mail.Address
	for _, part := range strings.Split(header, ",") {
		if a, err := parser.Parse(strings.TrimSpace(part)); err == nil {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// dateLayouts are tried after net/mail's RFC 5322 parser, for Date headers
// written by clients that ignore it.
var dateLayouts = []string{
	time.RFC822Z,
	time.RFC822,
	time.RFC850,
	time.RFC3339,
	time.ANSIC,
	"2006-01-02 15:04:05 -0700",
}

// parseDate returns the Date header as UTC, or the zero time when no known
// format fits.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if t, err := mail.ParseDate(value); err == nil {
		return t.UTC()
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
