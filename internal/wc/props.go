package wc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/unicode/norm"
)

// Props is a node's versioned property set.
// A nil Props and an empty Props are equal.
type Props map[string]string

// Clone returns an independent copy.
func (p Props) Clone() Props {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// Equal compares two property sets by content.
func (p Props) Equal(o Props) bool {
	return maps.Equal(p, o)
}

// SortedNames returns the property names in byte order.
func (p Props) SortedNames() []string {
	var names []string
	for name := range p {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// MarshalCanonical encodes the set as canonical JSON: keys sorted, names and
// values NFC normalized, no HTML escaping. Empty sets encode as "{}".
func (p Props) MarshalCanonical() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range p.SortedNames() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := canonicalString(name)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		v, err := canonicalString(p[name])
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseProps decodes a stored property set. Empty input yields nil.
func ParseProps(data []byte) (Props, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var p Props
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	if len(p) == 0 {
		return nil, nil
	}
	return p, nil
}

// canonicalString encodes s as a JSON string after NFC normalization.
func canonicalString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
