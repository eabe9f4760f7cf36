package version

import "strings"

// LatestAlias is the token that requests dynamic resolution.
const LatestAlias = "latest"

// Token is a requested version: either a concrete version string or the
// "latest" alias. Tokens are parsed once at the entry point and turned into
// a concrete version by [Resolver.Resolve] before any caching or download
// logic runs.
type Token struct {
	latest bool
	value  string
}

// Parse builds a token from user input.
// "latest" is matched case-insensitively; anything else is taken verbatim.
func Parse(raw string) Token {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, LatestAlias) {
		return Latest()
	}
	return Concrete(raw)
}

// Latest returns the alias token.
func Latest() Token {
	return Token{latest: true}
}

// Concrete returns a token holding an already known version.
func Concrete(value string) Token {
	return Token{value: value}
}

// IsLatest reports whether the token is the alias.
func (t Token) IsLatest() bool {
	return t.latest
}

// IsZero reports whether the token holds neither the alias nor a version.
func (t Token) IsZero() bool {
	return !t.latest && t.value == ""
}

func (t Token) String() string {
	if t.latest {
		return LatestAlias
	}
	return t.value
}
