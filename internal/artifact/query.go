package artifact

import (
	"fmt"
	"strconv"
	"strings"
)

type stepKind int

const (
	stepField stepKind = iota
	stepIndex
	stepWildcard
	stepDeepField
)

type step struct {
	kind  stepKind
	name  string
	index int
}

// Query is a compiled path expression. The supported grammar is a JSONPath
// subset: "$" root, ".name" field, "[n]" index, "[*]" / ".*" wildcard and
// "..name" recursive descent.
type Query struct {
	expr  string
	steps []step
}

// CompileQuery parses a path expression.
func CompileQuery(expr string) (*Query, error) {
	s := strings.TrimSpace(expr)
	if !strings.HasPrefix(s, "$") {
		return nil, fmt.Errorf("query %q: must start with $", expr)
	}
	q := &Query{expr: s}
	i := 1
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], ".."):
			name, next := readName(s, i+2)
			if name == "" {
				return nil, fmt.Errorf("query %q: empty name after .. at %d", expr, i)
			}
			q.steps = append(q.steps, step{kind: stepDeepField, name: name})
			i = next
		case s[i] == '.':
			if i+1 < len(s) && s[i+1] == '*' {
				q.steps = append(q.steps, step{kind: stepWildcard})
				i += 2
				continue
			}
			name, next := readName(s, i+1)
			if name == "" {
				return nil, fmt.Errorf("query %q: empty field name at %d", expr, i)
			}
			q.steps = append(q.steps, step{kind: stepField, name: name})
			i = next
		case s[i] == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, fmt.Errorf("query %q: unterminated [ at %d", expr, i)
			}
			inner := strings.TrimSpace(s[i+1 : i+end])
			switch {
			case inner == "*":
				q.steps = append(q.steps, step{kind: stepWildcard})
			case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
				q.steps = append(q.steps, step{kind: stepField, name: inner[1 : len(inner)-1]})
			default:
				n, err := strconv.Atoi(inner)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("query %q: bad index %q", expr, inner)
				}
				q.steps = append(q.steps, step{kind: stepIndex, index: n})
			}
			i += end + 1
		default:
			return nil, fmt.Errorf("query %q: unexpected %q at %d", expr, s[i], i)
		}
	}
	return q, nil
}

// MustCompileQuery is CompileQuery for package-level query tables.
func MustCompileQuery(expr string) *Query {
	q, err := CompileQuery(expr)
	if err != nil {
		panic(err)
	}
	return q
}

func readName(s string, from int) (string, int) {
	i := from
	for i < len(s) && s[i] != '.' && s[i] != '[' {
		i++
	}
	return s[from:i], i
}

func (q *Query) String() string { return q.expr }

// Definite reports whether the query addresses at most one node.
func (q *Query) Definite() bool {
	for _, st := range q.steps {
		if st.kind == stepWildcard || st.kind == stepDeepField {
			return false
		}
	}
	return true
}

// Eval returns every node the query reaches, in document order. A path that
// does not resolve yields no nodes.
func (q *Query) Eval(root *Node) []*Node {
	if root == nil {
		return nil
	}
	current := []*Node{root}
	for _, st := range q.steps {
		var next []*Node
		for _, n := range current {
			next = applyStep(next, n, st)
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

func applyStep(out []*Node, n *Node, st step) []*Node {
	switch st.kind {
	case stepField:
		if v, ok := n.Get(st.name); ok {
			out = append(out, v)
		}
	case stepIndex:
		if v, ok := n.Index(st.index); ok {
			out = append(out, v)
		}
	case stepWildcard:
		switch n.Kind {
		case KindArray:
			out = append(out, n.Items...)
		case KindObject:
			for _, m := range n.Members {
				out = append(out, m.Value)
			}
		}
	case stepDeepField:
		out = scan(out, n, st.name)
	}
	return out
}

// scan collects fields named name at n before descending into its children,
// matching how JSONPath deep scans order their results.
func scan(out []*Node, n *Node, name string) []*Node {
	switch n.Kind {
	case KindObject:
		for _, m := range n.Members {
			if m.Key == name {
				out = append(out, m.Value)
			}
		}
		for _, m := range n.Members {
			out = scan(out, m.Value, name)
		}
	case KindArray:
		for _, it := range n.Items {
			out = scan(out, it, name)
		}
	}
	return out
}
