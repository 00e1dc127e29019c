package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind tags the value held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Member is a single object field. Objects keep their members in document
// order so recursive searches are deterministic.
type Member struct {
	Key   string
	Value *Node
}

// Node is a generic JSON value.
type Node struct {
	Kind    Kind
	Bool    bool
	Number  json.Number
	String  string
	Items   []*Node
	Members []Member
}

var ErrInvalidDocument = errors.New("invalid json document")

// Parse decodes raw JSON into a Node tree. Trailing data after the first
// value is rejected.
func Parse(raw []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	n, err := parseValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after top-level value", ErrInvalidDocument)
	}
	return n, nil
}

// ParseString is Parse for string input.
func ParseString(raw string) (*Node, error) {
	return Parse([]byte(raw))
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch v := tok.(type) {
	case nil:
		return &Node{Kind: KindNull}, nil
	case bool:
		return &Node{Kind: KindBool, Bool: v}, nil
	case json.Number:
		return &Node{Kind: KindNumber, Number: v}, nil
	case string:
		return &Node{Kind: KindString, String: v}, nil
	case json.Delim:
		switch v {
		case '[':
			n := &Node{Kind: KindArray}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Items = append(n.Items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '{':
			n := &Node{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, want string", keyTok)
				}
				val, err := parseValue(dec)
				if err != nil {
					return nil, err
				}
				n.Members = append(n.Members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Get returns the first member named key. Duplicate keys resolve to the
// first occurrence.
func (n *Node) Get(key string) (*Node, bool) {
	if n == nil || n.Kind != KindObject {
		return nil, false
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Index returns the i-th array element.
func (n *Node) Index(i int) (*Node, bool) {
	if n == nil || n.Kind != KindArray || i < 0 || i >= len(n.Items) {
		return nil, false
	}
	return n.Items[i], true
}

// Text returns the value as text: strings verbatim, numbers and bools in
// their JSON spelling, containers re-encoded, null as "".
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case KindString:
		return n.String
	case KindNumber:
		return n.Number.String()
	case KindBool:
		if n.Bool {
			return "true"
		}
		return "false"
	case KindNull:
		return ""
	default:
		b, err := json.Marshal(n.Interface())
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// Interface converts the node back to plain Go values. Object member order
// is lost.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindBool:
		return n.Bool
	case KindNumber:
		return n.Number
	case KindString:
		return n.String
	case KindArray:
		out := make([]any, len(n.Items))
		for i, it := range n.Items {
			out[i] = it.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(n.Members))
		for _, m := range n.Members {
			if _, dup := out[m.Key]; dup {
				continue
			}
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}
