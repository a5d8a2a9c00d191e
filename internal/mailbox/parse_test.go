package mailbox

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 01 Jan 2024 10:00:00 +0900", want},
		{"  Mon, 01 Jan 2024 10:00:00 +0900 (JST)", want},
		{"2024-01-01T10:00:00+09:00", want},
		{"2024-01-01 10:00:00 +0900", want},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseDate(tt.in)
			assert.True(t, got.Equal(tt.want), "got %v", got)
			if !got.IsZero() {
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestCharsetReader(t *testing.T) {
	// "テスト" in ISO-2022-JP.
	r, err := charsetReader("ISO-2022-JP", strings.NewReader("\x1b$B%F%9%H\x1b(B"))
	require.NoError(t, err)
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "テスト", string(b))

	r, err = charsetReader("x-unknown", strings.NewReader("plain"))
	require.NoError(t, err)
	b, _ = io.ReadAll(r)
	assert.Equal(t, "plain", string(b))

	assert.Equal(t, "山田", decodeHeader("=?UTF-8?B?5bGx55Sw?="))
}
