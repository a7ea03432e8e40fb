package assembler

import (
	"bytes"
	"encoding/json"
)

// ChildrenKey holds a node's children in the JSON response.
const ChildrenKey = "children"

// Field is one output value.
type Field struct {
	Name  string
	Value string
}

// Node is one element of the response tree. Fields keep the declared
// OUTPUT_FIELD order.
type Node struct {
	Fields []Field
	// Children is nil on the deepest level and non-nil (possibly empty) above it.
	Children []*Node
}

// Get returns the value of field name.
func (n *Node) Get(name string) (string, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *Node) Count() int {
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Depth returns the number of levels below and including n.
func (n *Node) Depth() int {
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// MarshalJSON writes fields in declared order followed by the children.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range n.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKeyValue(&buf, f.Name, f.Value); err != nil {
			return nil, err
		}
	}

	if n.Children != nil {
		if len(n.Fields) > 0 {
			buf.WriteByte(',')
		}
		children, err := json.Marshal(n.Children)
		if err != nil {
			return nil, err
		}
		key, _ := json.Marshal(ChildrenKey)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(children)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKeyValue(buf *bytes.Buffer, key, value string) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// CountAll returns the number of nodes in a forest.
func CountAll(nodes []*Node) int {
	total := 0
	for _, n := range nodes {
		total += n.Count()
	}
	return total
}
