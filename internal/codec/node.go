package codec

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// node is a generic element tree used for reading documents whose nesting is
// not fixed (transactions may sit below intermediate grouping elements).
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

// child follows a path of local names from n, taking the first match at each
// step. It returns nil when any step is missing.
func (n *node) child(path ...string) *node {
	cur := n
	for _, name := range path {
		var next *node
		for i := range cur.Nodes {
			if cur.Nodes[i].XMLName.Local == name {
				next = &cur.Nodes[i]
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// text returns the trimmed character data at path and whether it exists.
func (n *node) text(path ...string) (string, bool) {
	c := n.child(path...)
	if c == nil {
		return "", false
	}
	return strings.TrimSpace(c.Content), true
}

// attr returns the value of the attribute with the given local name.
func (n *node) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// descendants returns every element below n with the given local name, in
// document order, at any depth.
func (n *node) descendants(name string) []*node {
	var out []*node
	var walk func(*node)
	walk = func(cur *node) {
		for i := range cur.Nodes {
			c := &cur.Nodes[i]
			if c.XMLName.Local == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// firstDescendant is the first element of descendants(name), or nil.
func (n *node) firstDescendant(name string) *node {
	if d := n.descendants(name); len(d) > 0 {
		return d[0]
	}
	return nil
}

// Indent re-encodes an XML document with whitespace-only text dropped and two
// space indentation. Prefixes and attributes are kept as written.
func Indent(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok && len(bytes.TrimSpace(cd)) == 0 {
			continue
		}
		if err := enc.EncodeToken(xml.CopyToken(tok)); err != nil {
			return nil, fmt.Errorf("writing token: %w", err)
		}
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("flushing: %w", err)
	}
	return buf.Bytes(), nil
}
