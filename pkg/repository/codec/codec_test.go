package codec_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/query"
	"github.com/secmon-lab/taskbasket/pkg/repository/codec"
)

func TestEncode(t *testing.T) {
	t.Run("keys are sorted", func(t *testing.T) {
		blob, err := codec.Encode(map[string]string{"zone": "b", "app": "a<b>", "mid": ""})
		gt.NoError(t, err).Required()
		gt.String(t, blob).Equal(`{"app":"a<b>","mid":"","zone":"b"}`)

		m, err := codec.Decode(blob)
		gt.NoError(t, err).Required()
		gt.Map(t, m).HasKey("mid")
		gt.Value(t, m["app"]).Equal("a<b>")
	})

	t.Run("empty map is empty blob", func(t *testing.T) {
		blob, err := codec.Encode(nil)
		gt.NoError(t, err).Required()
		gt.String(t, blob).Equal("")

		m, err := codec.Decode("")
		gt.NoError(t, err).Required()
		gt.Number(t, len(m)).Equal(0)
	})

	t.Run("broken blob", func(t *testing.T) {
		_, err := codec.Decode("{not json")
		gt.Error(t, err)
	})
}

func TestKeyPattern(t *testing.T) {
	blob, err := codec.Encode(map[string]string{"region": "eu-west", "team_name": "ops"})
	gt.NoError(t, err).Required()

	p, err := codec.KeyPattern("region", "eu%")
	gt.NoError(t, err).Required()
	gt.Bool(t, query.MatchLike(blob, p)).True()

	p, err = codec.KeyPattern("region", "us%")
	gt.NoError(t, err).Required()
	gt.Bool(t, query.MatchLike(blob, p)).False()

	// underscore in the key is literal
	p, err = codec.KeyPattern("team_name", "ops")
	gt.NoError(t, err).Required()
	gt.Bool(t, query.MatchLike(blob, p)).True()

	p, err = codec.KeyPattern("teamxname", "ops")
	gt.NoError(t, err).Required()
	gt.Bool(t, query.MatchLike(blob, p)).False()
}

func TestKeyPattern_EscapedValues(t *testing.T) {
	blob, err := codec.Encode(map[string]string{"note": `say "hi"`, "path": `C:\tmp`})
	gt.NoError(t, err).Required()
	gt.String(t, blob).Equal(`{"note":"say \"hi\"","path":"C:\\tmp"}`)

	testCases := []struct {
		key     string
		pattern string
		want    bool
	}{
		{"note", `say "hi"`, true},
		{"note", `%"hi%`, true},
		{"note", `say hi`, false},
		{"path", `C:\\tmp`, true},
		{"path", `C:\\%`, true},
		{"path", `c:_tmp`, false},
		{"path", `C:__tmp`, true},
		{"path", `%tmp`, true},
	}
	for _, tc := range testCases {
		t.Run(tc.key+"~"+tc.pattern, func(t *testing.T) {
			p, err := codec.KeyPattern(tc.key, tc.pattern)
			gt.NoError(t, err).Required()
			if tc.want {
				gt.Bool(t, query.MatchLike(blob, p)).True()
			} else {
				gt.Bool(t, query.MatchLike(blob, p)).False()
			}
		})
	}
}
