// Package payload models the schema-on-read analysis output as a tagged
// variant tree: scalar, ordered list, or ordered map. The tree is the only
// shape model output takes inside the core; at every store boundary it is
// serialized to a single string.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind discriminates the variant.
type Kind int

const (
	KindScalar Kind = iota
	KindList
	KindMap
)

// Entry is one key of an ordered map node.
type Entry struct {
	Key   string
	Value *Node
}

// Node is a variant tree node. Exactly one of Scalar, List, Entries is
// meaningful, selected by Kind. Scalar holds string, float64, bool or nil.
type Node struct {
	Kind    Kind
	Scalar  any
	List    []*Node
	Entries []Entry
}

// Scalar constructors.
func String(s string) *Node  { return &Node{Kind: KindScalar, Scalar: s} }
func Number(f float64) *Node { return &Node{Kind: KindScalar, Scalar: f} }
func Bool(b bool) *Node      { return &Node{Kind: KindScalar, Scalar: b} }
func Null() *Node            { return &Node{Kind: KindScalar, Scalar: nil} }

// Map builds an ordered map node from alternating key/value pairs.
func Map(entries ...Entry) *Node {
	return &Node{Kind: KindMap, Entries: entries}
}

// List builds a list node.
func ListOf(items ...*Node) *Node {
	return &Node{Kind: KindList, List: items}
}

// E is a convenience Entry constructor.
func E(key string, value *Node) Entry {
	return Entry{Key: key, Value: value}
}

// Parse decodes a JSON document into a variant tree, preserving map key
// order. The top level may be any JSON value.
func Parse(raw string) (*Node, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	node, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, fmt.Errorf("payload parse: trailing data after JSON value")
	}
	return node, nil
}

func parseValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("payload parse: %w", err)
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseMap(dec)
		case '[':
			return parseList(dec)
		default:
			return nil, fmt.Errorf("payload parse: unexpected delimiter %q", t)
		}
	case string:
		return String(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("payload parse: number %q: %w", t, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	default:
		return nil, fmt.Errorf("payload parse: unexpected token %v", tok)
	}
}

func parseMap(dec *json.Decoder) (*Node, error) {
	node := &Node{Kind: KindMap}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("payload parse: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("payload parse: non-string map key %v", keyTok)
		}
		value, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		node.Entries = append(node.Entries, Entry{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return nil, fmt.Errorf("payload parse: %w", err)
	}
	return node, nil
}

func parseList(dec *json.Decoder) (*Node, error) {
	node := &Node{Kind: KindList}
	for dec.More() {
		item, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		node.List = append(node.List, item)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return nil, fmt.Errorf("payload parse: %w", err)
	}
	return node, nil
}

// MarshalJSON renders the tree back to JSON, keeping map key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case KindScalar:
		data, err := json.Marshal(n.Scalar)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindList:
		buf.WriteByte('[')
		for i, item := range n.List {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMap:
		buf.WriteByte('{')
		for i, e := range n.Entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("payload: unknown kind %d", n.Kind)
	}
	return nil
}

// UnmarshalJSON parses JSON into the node, preserving map key order.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*n = *parsed
	return nil
}

// Encode serializes the tree to its canonical string form. This is the value
// written into scalar-only store metadata.
func (n *Node) Encode() string {
	data, err := n.MarshalJSON()
	if err != nil {
		return "null"
	}
	return string(data)
}

// Get returns the value for key on a map node, or nil.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	for _, e := range n.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Keys returns map keys in order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != KindMap {
		return nil
	}
	out := make([]string, len(n.Entries))
	for i, e := range n.Entries {
		out[i] = e.Key
	}
	return out
}

// Str returns the scalar as a string, or "".
func (n *Node) Str() string {
	if n == nil || n.Kind != KindScalar {
		return ""
	}
	s, _ := n.Scalar.(string)
	return s
}

// Num returns the scalar as a float64, with ok reporting success.
func (n *Node) Num() (float64, bool) {
	if n == nil || n.Kind != KindScalar {
		return 0, false
	}
	f, ok := n.Scalar.(float64)
	return f, ok
}

// Walk visits every node in depth-first order, map entries in key order.
// The visit callback receives the key path leading to the node.
func (n *Node) Walk(visit func(path []string, node *Node)) {
	walk(nil, n, visit)
}

func walk(path []string, n *Node, visit func(path []string, node *Node)) {
	if n == nil {
		return
	}
	visit(path, n)
	switch n.Kind {
	case KindList:
		for _, item := range n.List {
			walk(path, item, visit)
		}
	case KindMap:
		for _, e := range n.Entries {
			child := make([]string, len(path)+1)
			copy(child, path)
			child[len(path)] = e.Key
			walk(child, e.Value, visit)
		}
	}
}

// FlatText concatenates every string scalar in the tree, key paths included,
// for keyword scans and embedding input.
func (n *Node) FlatText() string {
	var b strings.Builder
	n.Walk(func(path []string, node *Node) {
		if node.Kind != KindScalar {
			return
		}
		if len(path) > 0 {
			b.WriteString(path[len(path)-1])
			b.WriteString(": ")
		}
		switch v := node.Scalar.(type) {
		case string:
			b.WriteString(v)
		case float64:
			fmt.Fprintf(&b, "%g", v)
		case bool:
			fmt.Fprintf(&b, "%t", v)
		}
		b.WriteString("\n")
	})
	return b.String()
}

// FindNumber returns the first numeric scalar whose final path element
// matches key (case-insensitive), with ok reporting whether one was found.
func (n *Node) FindNumber(key string) (float64, bool) {
	var found float64
	ok := false
	n.Walk(func(path []string, node *Node) {
		if ok || len(path) == 0 {
			return
		}
		if !strings.EqualFold(path[len(path)-1], key) {
			return
		}
		if f, isNum := node.Num(); isNum {
			found, ok = f, true
		}
	})
	return found, ok
}
