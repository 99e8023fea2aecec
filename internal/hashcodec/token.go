package hashcodec

import "strings"

// TokenLength is the number of hex characters in an MD5 token.
const TokenLength = 32

// Token is a well-formed MD5 token extracted from a filename.
type Token struct {
	raw string
}

// String returns the token exactly as it appeared in the filename.
func (t Token) String() string {
	return t.raw
}

// Normalized returns the lower-case token used for comparison.
func (t Token) Normalized() string {
	return strings.ToLower(t.raw)
}

// Matches reports whether digest equals the token, ignoring case.
func (t Token) Matches(digest string) bool {
	return t.raw != "" && strings.EqualFold(t.raw, digest)
}

// ExtractToken returns the MD5 token formed by the first 32 characters of
// name. Nothing after them is consulted, so a braced "{...}" prefix never
// yields a token. The second result is false when the prefix is not 32 hex
// digits.
func ExtractToken(name string) (Token, bool) {
	if len(name) < TokenLength {
		return Token{}, false
	}
	candidate := name[:TokenLength]
	if !isHex(candidate) {
		return Token{}, false
	}
	return Token{raw: candidate}, true
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
