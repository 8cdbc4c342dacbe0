package yamlconf

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the variant of a document node.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "null"
	}
}

// Position is a 1-based source location. The zero value means unknown.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Node is a read-only view of one position in a parsed YAML document.
// The zero Node is a null value with no position.
type Node struct {
	raw *yaml.Node
}

// Entry is one key/value pair of a mapping node.
type Entry struct {
	// Key is the normalized key, see NormalizeKey.
	Key string
	// RawKey is the key as written in the document.
	RawKey string
	KeyPos Position
	Value  Node
}

// Parse parses one YAML document. An empty document yields a null Node.
func Parse(data []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Node{}, &Error{Kind: ErrInvalidDocument, Err: err}
	}
	return FromYAML(&doc), nil
}

// FromYAML wraps an already parsed yaml.v3 node. Document wrappers and
// aliases are followed to the node they stand for.
func FromYAML(n *yaml.Node) Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return Node{}
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return Node{raw: n}
		}
	}
	return Node{}
}

// Kind returns the node variant. Explicit nulls (`~`, `null`, empty values)
// are KindNull.
func (n Node) Kind() Kind {
	if n.raw == nil {
		return KindNull
	}
	switch n.raw.Kind {
	case yaml.ScalarNode:
		if n.raw.ShortTag() == "!!null" {
			return KindNull
		}
		return KindScalar
	case yaml.SequenceNode:
		return KindSequence
	case yaml.MappingNode:
		return KindMapping
	default:
		return KindNull
	}
}

// Pos returns the source position of the node.
func (n Node) Pos() Position {
	if n.raw == nil {
		return Position{}
	}
	return Position{Line: n.raw.Line, Column: n.raw.Column}
}

// Text returns the scalar text, or "" for non-scalar nodes.
func (n Node) Text() string {
	if n.raw == nil || n.raw.Kind != yaml.ScalarNode {
		return ""
	}
	return n.raw.Value
}

// Tag returns the resolved short tag such as "!!str" or "!!int".
func (n Node) Tag() string {
	if n.raw == nil {
		return "!!null"
	}
	return n.raw.ShortTag()
}

// Len returns the number of items of a sequence or entries of a mapping.
func (n Node) Len() int {
	switch n.Kind() {
	case KindSequence:
		return len(n.raw.Content)
	case KindMapping:
		return len(n.raw.Content) / 2
	default:
		return 0
	}
}

// Entries returns the mapping entries in document order. Keys are
// normalized, and two keys that normalize to the same value fail with
// ErrDuplicateKey at the second occurrence.
func (n Node) Entries() ([]Entry, error) {
	if n.Kind() != KindMapping {
		return nil, mismatch(n, KindMapping)
	}
	content := n.raw.Content
	out := make([]Entry, 0, len(content)/2)
	seen := make(map[string]struct{}, len(content)/2)
	for i := 0; i+1 < len(content); i += 2 {
		k := FromYAML(content[i])
		if k.Kind() != KindScalar {
			return nil, NewError(ErrTypeMismatch, k, "mapping key must be a scalar, got %s", k.Kind())
		}
		key := NormalizeKey(k.Text())
		if _, dup := seen[key]; dup {
			err := NewError(ErrDuplicateKey, k, "%q", k.Text())
			err.Path = Path{KeySegment(key)}
			return nil, err
		}
		seen[key] = struct{}{}
		out = append(out, Entry{
			Key:    key,
			RawKey: k.Text(),
			KeyPos: k.Pos(),
			Value:  FromYAML(content[i+1]),
		})
	}
	return out, nil
}

// Get looks up key in a mapping node. The key is normalized before lookup.
func (n Node) Get(key string) (Node, bool, error) {
	entries, err := n.Entries()
	if err != nil {
		return Node{}, false, err
	}
	key = NormalizeKey(key)
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true, nil
		}
	}
	return Node{}, false, nil
}

// Items returns the items of a sequence node in order.
func (n Node) Items() ([]Node, error) {
	if n.Kind() != KindSequence {
		return nil, mismatch(n, KindSequence)
	}
	out := make([]Node, len(n.raw.Content))
	for i, c := range n.raw.Content {
		out[i] = FromYAML(c)
	}
	return out, nil
}

// NormalizeKey folds a mapping key to its canonical spelling: lower case,
// surrounding space trimmed, dashes replaced by underscores.
func NormalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "-", "_")
}

func mismatch(n Node, want Kind) *Error {
	return NewError(ErrTypeMismatch, n, "expected %s, got %s", want, n.Kind())
}
