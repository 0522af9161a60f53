// Package hashing provides the pure text classifiers the block
// accumulator builds on: content fingerprinting, indentation depth, and
// section-heading detection. Grounded on revision_pipeline/helpers.py's
// compute_md5, compute_text_depth, and is_new_section_text.
package hashing

import (
	"crypto/md5" //nolint:gosec // content fingerprinting, not a security boundary
	"encoding/hex"
	"strings"
)

// Fingerprint returns the stable hex-encoded md5 digest of text's trimmed
// form. It is the block store's key function: fingerprint(text) =
// md5(trim(text)).
func Fingerprint(text string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(text))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Depth counts the leading colon characters of text, which MediaWiki talk
// page markup uses to indicate reply indentation.
func Depth(text string) int {
	d := 0
	for d < len(text) && text[d] == ':' {
		d++
	}
	return d
}

// IsSectionHeading reports whether text is wrapped in a matched pair of
// "===" or "==" markers, i.e. it is a MediaWiki section heading.
func IsSectionHeading(text string) bool {
	if len(text) >= 6 && strings.HasPrefix(text, "===") && strings.HasSuffix(text, "===") {
		return true
	}
	if len(text) >= 4 && strings.HasPrefix(text, "==") && strings.HasSuffix(text, "==") {
		return true
	}
	return false
}

// IsBlank reports whether text is empty once surrounding whitespace is
// trimmed — the condition under which a diff row produces no block.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
