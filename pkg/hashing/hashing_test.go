package hashing

import (
	"crypto/md5" //nolint:gosec // matching the package's own fingerprint construction
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "plain text", text: "hello world"},
		{name: "leading and trailing whitespace trimmed", text: "  hello world  "},
		{name: "empty string", text: ""},
		{name: "multiline", text: "line one\nline two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fingerprint(tt.text)
			require.Len(t, got, 32, "md5 hex digest should be 32 characters")

			sum := md5.Sum([]byte(stripSpace(tt.text))) //nolint:gosec
			require.Equal(t, hex.EncodeToString(sum[:]), got)
		})
	}
}

func stripSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\n') {
		s = s[:len(s)-1]
	}
	return s
}

func TestFingerprint_WhitespaceInsensitive(t *testing.T) {
	require.Equal(t, Fingerprint("hello"), Fingerprint("  hello  "))
	require.Equal(t, Fingerprint("hello"), Fingerprint("\thello\n"))
}

func TestDepth(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected int
	}{
		{name: "no indentation", text: "hello", expected: 0},
		{name: "single colon", text: ":reply", expected: 1},
		{name: "triple colon", text: ":::deep reply", expected: 3},
		{name: "colon only in body doesn't count", text: "see: note", expected: 0},
		{name: "empty string", text: "", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Depth(tt.text))
		})
	}
}

func TestIsSectionHeading(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{name: "level 2 heading", text: "==Discussion==", expected: true},
		{name: "level 3 heading", text: "===Subsection===", expected: true},
		{name: "heading with spaces", text: "== Discussion ==", expected: true},
		{name: "plain text", text: "just a comment", expected: false},
		{name: "unbalanced markers", text: "==Discussion===", expected: true},
		{name: "too short to be a heading", text: "==", expected: false},
		{name: "empty string", text: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, IsSectionHeading(tt.text))
		})
	}
}

func TestIsBlank(t *testing.T) {
	require.True(t, IsBlank(""))
	require.True(t, IsBlank("   "))
	require.True(t, IsBlank("\t\n"))
	require.False(t, IsBlank("x"))
	require.False(t, IsBlank("  x  "))
}
