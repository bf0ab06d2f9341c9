package proof

import (
	"regexp"
	"strings"
	"unicode"
)

// space matches every rune unicode.IsSpace accepts. RE2's \s alone is ASCII-only.
const space = `[\s\v\x{85}\p{Z}]`

// Labelled patterns are tried before the bare scan so that "wallet address: 0x..." wins
// over any other address that happens to appear earlier in the text.
var addressPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)wallet address:` + space + `*(0x[a-f0-9]{40})`),
	regexp.MustCompile(`(?i)address:` + space + `*(0x[a-f0-9]{40})`),
	regexp.MustCompile(`(?i)(0x[a-f0-9]{40})`),
}

var proofRe = regexp.MustCompile(`(?i)proof id:` + space + `*([^\s\v\x{85}\p{Z}]+)$`)

// ExtractAddress returns the first payout address found in text.
func ExtractAddress(text string) (string, bool) {
	for _, re := range addressPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractProof returns the token of a "Proof ID:" marker that ends the text. The token
// never contains whitespace.
func ExtractProof(text string) (string, bool) {
	m := proofRe.FindStringSubmatch(strings.TrimRightFunc(text, unicode.IsSpace))
	if m == nil {
		return "", false
	}
	return m[1], true
}
