package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const geminiShaped = `{
  "data": {
    "response": {
      "candidates": [
        {
          "content": {
            "parts": [
              {"text": "here is your pose"},
              {"inlineData": {"mimeType": "image/png", "data": "iVBORw0KGgo="}}
            ]
          }
        }
      ]
    }
  }
}`

func TestParsePreservesMemberOrder(t *testing.T) {
	n, err := ParseString(`{"b":1,"a":[true,null,"x"],"c":{"d":2.5}}`)
	require.NoError(t, err)
	require.Equal(t, KindObject, n.Kind)
	require.Len(t, n.Members, 3)
	assert.Equal(t, "b", n.Members[0].Key)
	assert.Equal(t, "a", n.Members[1].Key)
	assert.Equal(t, "c", n.Members[2].Key)

	a, ok := n.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindArray, a.Kind)
	assert.Equal(t, KindNull, a.Items[1].Kind)
	d, _ := n.Members[2].Value.Get("d")
	assert.Equal(t, "2.5", d.Text())
}

func TestParseRejectsInvalidAndTrailingData(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"a":}`, `{"a":1} {"b":2}`, `not json`} {
		_, err := ParseString(raw)
		assert.ErrorIs(t, err, ErrInvalidDocument, "input %q", raw)
	}
}

func TestCompileQueryRejectsBadSyntax(t *testing.T) {
	for _, expr := range []string{"data.x", "$.a[", "$.a[-1]", "$.a[x]", "$..", "$.", "$a"} {
		_, err := CompileQuery(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestQueryDefinite(t *testing.T) {
	assert.True(t, MustCompileQuery("$.a.b[0].c").Definite())
	assert.False(t, MustCompileQuery("$.a[*].c").Definite())
	assert.False(t, MustCompileQuery("$..c").Definite())
	assert.True(t, MustCompileQuery("$['a'].b").Definite())
}

func TestDeepScanOrdersCurrentNodeFirst(t *testing.T) {
	doc, err := ParseString(`{"x":{"data":"inner"},"data":"outer"}`)
	require.NoError(t, err)
	got := MustCompileQuery("$..data").Eval(doc)
	require.Len(t, got, 2)
	assert.Equal(t, "outer", got[0].String)
	assert.Equal(t, "inner", got[1].String)
}

func TestLocateWildcardSkipsPartsWithoutInlineData(t *testing.T) {
	doc, err := ParseString(geminiShaped)
	require.NoError(t, err)

	m, ok := Locate(doc, DefaultImageQueries)
	require.True(t, ok)
	assert.Equal(t, "$.data.response.candidates[*].content.parts[*].inlineData.data", m.Query)
	assert.Equal(t, "iVBORw0KGgo=", m.Value())
}

func TestLocatePrefersExactChain(t *testing.T) {
	doc, err := ParseString(`{"data":{"response":{"candidates":[{"content":{"parts":[{"inlineData":{"data":"AAAA"}}]}}]}},"inlineData":{"data":"BBBB"}}`)
	require.NoError(t, err)

	m, ok := Locate(doc, DefaultImageQueries)
	require.True(t, ok)
	assert.Equal(t, "$.data.response.candidates[0].content.parts[0].inlineData.data", m.Query)
	assert.Equal(t, "AAAA", m.Value())
}

func TestLocateFallsThroughShallowerShapes(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		query string
		want  string
	}{
		{
			name:  "no outer data",
			doc:   `{"response":{"candidates":[{"content":{"parts":[{"inlineData":{"data":"R0lG"}}]}}]}}`,
			query: "$.response.candidates[0].content.parts[0].inlineData.data",
			want:  "R0lG",
		},
		{
			name:  "candidates at root",
			doc:   `{"candidates":[{"content":{"parts":[{"inlineData":{"data":"Qk0="}}]}}]}`,
			query: "$.candidates[0].content.parts[0].inlineData.data",
			want:  "Qk0=",
		},
		{
			name:  "inline data anywhere",
			doc:   `{"result":{"items":[{"inlineData":{"data":"UklG"}}]}}`,
			query: "$..inlineData.data",
			want:  "UklG",
		},
		{
			name:  "generic data field nested",
			doc:   `{"payload":{"data":"AQID"}}`,
			query: "$..data",
			want:  "AQID",
		},
		{
			name:  "top level data array",
			doc:   `{"data":["AQID","BAUG"]}`,
			query: "$.data",
			want:  "AQID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, err := LocateJSON([]byte(tt.doc), DefaultImageQueries)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.query, m.Query)
			assert.Equal(t, tt.want, m.Value())
		})
	}
}

func TestLocateMissingEverythingIsNotAnError(t *testing.T) {
	docs := []string{
		`{}`,
		`[]`,
		`"just a string"`,
		`{"image":"abc","other":{"nested":[1,2,3]}}`,
		`{"data":{"response":{}}}`,
		`{"data":""}`,
		`{"data":[1,2]}`,
		`{"data":{"inner":{"data":{"x":1}}}}`,
	}
	for _, raw := range docs {
		m, ok, err := LocateJSON([]byte(raw), DefaultImageQueries)
		require.NoError(t, err, "doc %s", raw)
		assert.False(t, ok, "doc %s", raw)
		assert.Empty(t, m.Values)
	}
}

func TestLocateJSONInvalidDocument(t *testing.T) {
	_, ok, err := LocateJSON([]byte(`{"data":`), DefaultImageQueries)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestLocateNilInputs(t *testing.T) {
	_, ok := Locate(nil, DefaultImageQueries)
	assert.False(t, ok)

	doc, err := ParseString(`{"data":"AQID"}`)
	require.NoError(t, err)
	m, ok := Locate(doc, []*Query{nil, MustCompileQuery("$.data")})
	assert.True(t, ok)
	assert.Equal(t, "AQID", m.Value())
}
