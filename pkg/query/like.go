package query

import (
	"strings"
	"unicode"
)

type likeToken struct {
	r   rune
	any bool // '%'
	one bool // '_'
}

func tokenizeLike(pattern string) []likeToken {
	var tokens []likeToken
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\\' && i+1 < len(runes):
			i++
			tokens = append(tokens, likeToken{r: unicode.ToLower(runes[i])})
		case r == '%':
			// consecutive '%' are equivalent to one
			if len(tokens) > 0 && tokens[len(tokens)-1].any {
				continue
			}
			tokens = append(tokens, likeToken{any: true})
		case r == '_':
			tokens = append(tokens, likeToken{one: true})
		default:
			tokens = append(tokens, likeToken{r: unicode.ToLower(r)})
		}
	}
	return tokens
}

// danglingEscape reports whether pattern ends with a '\' that escapes
// nothing
func danglingEscape(pattern string) bool {
	n := 0
	for i := len(pattern) - 1; i >= 0 && pattern[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// MatchLike reports whether value matches the SQL LIKE pattern, ignoring
// case. '%' matches any sequence, '_' one character and '\' escapes the
// next character.
func MatchLike(value, pattern string) bool {
	tokens := tokenizeLike(pattern)
	s := []rune(strings.ToLower(value))

	si, ti := 0, 0
	star, mark := -1, 0
	for si < len(s) {
		switch {
		case ti < len(tokens) && !tokens[ti].any && (tokens[ti].one || tokens[ti].r == s[si]):
			si++
			ti++
		case ti < len(tokens) && tokens[ti].any:
			star = ti
			mark = si
			ti++
		case star >= 0:
			ti = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}
	for ti < len(tokens) && tokens[ti].any {
		ti++
	}
	return ti == len(tokens)
}

// EscapeLike escapes LIKE wildcards so that s matches literally
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
