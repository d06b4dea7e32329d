// Package codec is the serialization boundary for the custom attribute map.
// Every backend stores the map as the blob produced by Encode, so that
// LIKE searches over the blob behave identically everywhere.
package codec

import (
	"strings"

	"github.com/bytedance/sonic"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/query"
)

// keys are sorted so equal maps always encode to equal blobs; HTML escaping
// is off so values stay searchable as written
var api = sonic.Config{SortMapKeys: true}.Froze()

// Encode serializes the map. An empty map encodes to "" which backends store
// as NULL.
func Encode(m map[string]string) (string, error) {
	if len(m) == 0 {
		return "", nil
	}
	s, err := api.MarshalToString(m)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode custom attributes")
	}
	return s, nil
}

// Decode parses a blob produced by Encode. "" decodes to an empty map.
func Decode(blob string) (map[string]string, error) {
	m := map[string]string{}
	if blob == "" {
		return m, nil
	}
	if err := api.UnmarshalFromString(blob, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to decode custom attributes", goerr.V("length", len(blob)))
	}
	return m, nil
}

// KeyPattern returns the LIKE pattern that searches valuePattern under key
// in an encoded blob. The key is matched literally; wildcards in
// valuePattern are kept and its literal parts are encoded the way Encode
// writes them.
func KeyPattern(key, valuePattern string) (string, error) {
	k, err := api.MarshalToString(key)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode custom attribute key")
	}
	v, err := encodeLiterals(valuePattern)
	if err != nil {
		return "", err
	}
	return "%" + query.EscapeLike(k) + `:"` + v + `"%`, nil
}

func encodeLiterals(pattern string) (string, error) {
	var out strings.Builder
	var lit []rune
	flush := func() error {
		if len(lit) == 0 {
			return nil
		}
		s, err := api.MarshalToString(string(lit))
		if err != nil {
			return goerr.Wrap(err, "failed to encode custom attribute pattern")
		}
		out.WriteString(query.EscapeLike(s[1 : len(s)-1]))
		lit = lit[:0]
		return nil
	}

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; {
		case r == '\\' && i+1 < len(runes):
			i++
			lit = append(lit, runes[i])
		case r == '%' || r == '_':
			if err := flush(); err != nil {
				return "", err
			}
			out.WriteRune(r)
		default:
			lit = append(lit, r)
		}
	}
	if err := flush(); err != nil {
		return "", err
	}
	return out.String(), nil
}
