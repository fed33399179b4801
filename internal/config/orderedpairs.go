package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Pair is one key/value entry of an insertion-ordered mapping.
type Pair struct {
	Key   string
	Value string
}

// OrderedPairs is a mapping that preserves declaration order. Changelog
// sections and substitutions depend on this ordering; a plain map would
// randomize it.
type OrderedPairs struct {
	pairs []Pair
}

// NewOrderedPairs builds an ordered mapping from the given pairs.
func NewOrderedPairs(pairs ...Pair) OrderedPairs {
	return OrderedPairs{pairs: pairs}
}

// Pairs returns the entries in declaration order.
func (o OrderedPairs) Pairs() []Pair {
	return append([]Pair(nil), o.pairs...)
}

// Len returns the number of entries.
func (o OrderedPairs) Len() int {
	return len(o.pairs)
}

// IsEmpty returns true when the mapping has no entries.
func (o OrderedPairs) IsEmpty() bool {
	return len(o.pairs) == 0
}

// Get returns the value for a key and whether it is present.
func (o OrderedPairs) Get(key string) (string, bool) {
	for _, p := range o.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value for an existing key or appends a new entry.
func (o *OrderedPairs) Set(key, value string) {
	for i, p := range o.pairs {
		if p.Key == key {
			o.pairs[i].Value = value
			return
		}
	}
	o.pairs = append(o.pairs, Pair{Key: key, Value: value})
}

// UnmarshalYAML decodes a YAML mapping preserving key order.
func (o *OrderedPairs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %v", node.Kind)
	}
	o.pairs = o.pairs[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		o.pairs = append(o.pairs, Pair{Key: node.Content[i].Value, Value: node.Content[i+1].Value})
	}
	return nil
}

// MarshalYAML encodes the mapping preserving key order.
func (o OrderedPairs) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range o.pairs {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.Value},
		)
	}
	return node, nil
}

// UnmarshalJSON decodes a JSON object preserving key order via the token
// stream.
func (o *OrderedPairs) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object, got %v", tok)
	}

	o.pairs = o.pairs[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected a string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		o.pairs = append(o.pairs, Pair{Key: key, Value: value})
	}
	return nil
}

// MarshalJSON encodes the mapping preserving key order.
func (o OrderedPairs) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range o.pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
