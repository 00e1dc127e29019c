package artifact

import (
	"strings"
)

// DefaultImageQueries is the ranked candidate set for an inline image payload.
// Exact chains for the known response shapes come first; recursive scans are
// kept for shape drift between upstream models.
var DefaultImageQueries = []*Query{
	MustCompileQuery("$.data.response.candidates[0].content.parts[0].inlineData.data"),
	MustCompileQuery("$.data.response.candidates[*].content.parts[*].inlineData.data"),
	MustCompileQuery("$.response.candidates[0].content.parts[0].inlineData.data"),
	MustCompileQuery("$.candidates[0].content.parts[0].inlineData.data"),
	MustCompileQuery("$..inlineData.data"),
	MustCompileQuery("$..data"),
	MustCompileQuery("$.data"),
}

// DefaultMIMEQueries locates the MIME type that accompanies an inline image.
var DefaultMIMEQueries = []*Query{
	MustCompileQuery("$.data.response.candidates[*].content.parts[*].inlineData.mimeType"),
	MustCompileQuery("$..inlineData.mimeType"),
}

// Match is the result of a successful Locate.
type Match struct {
	Query  string
	Values []string
}

// Value returns the first located string.
func (m Match) Value() string {
	if len(m.Values) == 0 {
		return ""
	}
	return m.Values[0]
}

// Locate evaluates queries in order and returns the first one whose result is
// a non-empty string, or a non-empty array whose first element is a
// non-empty string.
func Locate(doc *Node, queries []*Query) (Match, bool) {
	if doc == nil {
		return Match{}, false
	}
	for _, q := range queries {
		if q == nil {
			continue
		}
		nodes := q.Eval(doc)
		if len(nodes) == 0 {
			continue
		}
		if q.Definite() && nodes[0].Kind == KindArray {
			nodes = nodes[0].Items
		}
		values := stringValues(nodes)
		if len(values) == 0 {
			continue
		}
		return Match{Query: q.String(), Values: values}, true
	}
	return Match{}, false
}

// LocateJSON parses raw and runs Locate. Only an unparseable document is an
// error.
func LocateJSON(raw []byte, queries []*Query) (Match, bool, error) {
	doc, err := Parse(raw)
	if err != nil {
		return Match{}, false, err
	}
	m, ok := Locate(doc, queries)
	return m, ok, nil
}

// stringValues requires the first node to be a non-empty string, then keeps
// every following non-empty string.
func stringValues(nodes []*Node) []string {
	if len(nodes) == 0 || nodes[0].Kind != KindString || strings.TrimSpace(nodes[0].String) == "" {
		return nil
	}
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n.Kind == KindString && strings.TrimSpace(n.String) != "" {
			out = append(out, n.String)
		}
	}
	return out
}
