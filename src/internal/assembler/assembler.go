// Package assembler turns the flat result sets of an action into the
// hierarchical response declared by an API's output levels.
package assembler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jhsoft/ws02-gateway/src/internal/domain"
	"github.com/jhsoft/ws02-gateway/src/internal/errors"
)

// Assembler is stateless apart from its encoding table and safe for concurrent use.
type Assembler struct {
	encodings *Encodings
}

// New creates an assembler. A nil encodings table HTML-escapes every field of
// IS_ENCODE APIs.
func New(encodings *Encodings) *Assembler {
	if encodings == nil {
		encodings, _ = NewEncodings("", nil)
	}
	return &Assembler{encodings: encodings}
}

// record is one result row with case-insensitive column access.
type record struct {
	columns map[string]int
	values  []interface{}
}

func (r record) get(column string) string {
	i, ok := r.columns[strings.ToUpper(column)]
	if !ok || i >= len(r.values) {
		return ""
	}
	return FormatValue(r.values[i])
}

func (r record) key(column string) string {
	return strings.TrimSpace(r.get(column))
}

// Assemble builds the response tree for def from rs.
//
// With one result set per output level, set i feeds level i+1. A single flat
// set feeding several levels is split first: each level keeps the distinct
// tuples of its output and key columns in first-seen order. A child row
// attaches to the row of the level above whose parent-key column equals its
// child-key column. Any row without a parent fails the whole assembly; no
// partial tree is returned.
func (a *Assembler) Assemble(def *domain.ApiDefinition, rs *domain.RowSet) ([]*Node, error) {
	if rs == nil {
		rs = &domain.RowSet{}
	}

	var (
		levels []LevelSpec[record]
		err    error
	)
	switch {
	case len(rs.Sets) == 1 && len(def.Outputs) > 1:
		levels, err = flatLevels(def, rs.Sets[0])
	case len(rs.Sets) == len(def.Outputs):
		levels, err = setLevels(def, rs)
	default:
		err = errors.NewAssemblyError(
			fmt.Sprintf("%s declares %d output level(s) but the action returned %d result set(s)", def.Code, len(def.Outputs), len(rs.Sets)), nil)
	}
	if err != nil {
		return nil, err
	}

	tree, err := BuildTree(levels)
	if err != nil {
		return nil, errors.NewAssemblyError(fmt.Sprintf("%s: result rows do not fit the output levels", def.Code), err)
	}

	var strategy *Strategy
	if def.Encode {
		s := a.encodings.For(def.SyntaxKey)
		strategy = &s
	}

	nodes := make([]*Node, len(tree))
	for i, t := range tree {
		nodes[i] = toNode(t, def.Outputs, strategy)
	}
	return nodes, nil
}

// setLevels maps result set i onto output level i+1.
func setLevels(def *domain.ApiDefinition, rs *domain.RowSet) ([]LevelSpec[record], error) {
	levels := make([]LevelSpec[record], len(def.Outputs))
	for i, node := range def.Outputs {
		set := rs.Sets[i]
		columns := columnIndex(set.Columns)

		if i > 0 {
			if _, ok := columns[strings.ToUpper(node.ChildKey)]; !ok {
				return nil, errors.NewAssemblyError(
					fmt.Sprintf("%s level %d: child key %s is not a result column", def.Code, node.Level, node.ChildKey), nil)
			}
			above := columnIndex(rs.Sets[i-1].Columns)
			if _, ok := above[strings.ToUpper(node.ParentKey)]; !ok {
				return nil, errors.NewAssemblyError(
					fmt.Sprintf("%s level %d: parent key %s is not a result column of level %d", def.Code, node.Level, node.ParentKey, node.Level-1), nil)
			}
		}

		rows := make([]record, len(set.Rows))
		for ri, values := range set.Rows {
			rows[ri] = record{columns: columns, values: values}
		}
		levels[i] = levelSpec(node, rows)
	}
	return levels, nil
}

// flatLevels splits one joined result set into per-level rows. A level's
// tuple is its output fields, its child key and the parent key of the level
// below. Tuples that are entirely empty come from outer joins without a match
// and are dropped.
func flatLevels(def *domain.ApiDefinition, set domain.ResultSet) ([]LevelSpec[record], error) {
	columns := columnIndex(set.Columns)
	levels := make([]LevelSpec[record], len(def.Outputs))

	for i, node := range def.Outputs {
		projection := append([]string(nil), node.Fields...)
		if i > 0 {
			projection = append(projection, node.ChildKey)
		}
		if i+1 < len(def.Outputs) {
			projection = append(projection, def.Outputs[i+1].ParentKey)
		}
		for _, name := range projection {
			if _, ok := columns[strings.ToUpper(strings.TrimSpace(name))]; !ok {
				return nil, errors.NewAssemblyError(
					fmt.Sprintf("%s level %d: %s is not a column of the result set", def.Code, node.Level, name), nil)
			}
		}

		seen := make(map[string]struct{}, len(set.Rows))
		rows := make([]record, 0, len(set.Rows))
		for _, values := range set.Rows {
			r := record{columns: columns, values: values}
			tuple := make([]string, len(projection))
			blank := true
			for pi, name := range projection {
				tuple[pi] = r.key(name)
				if tuple[pi] != "" {
					blank = false
				}
			}
			if blank && i > 0 {
				continue
			}
			key := strings.Join(tuple, "\x00")
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			rows = append(rows, r)
		}
		levels[i] = levelSpec(node, rows)
	}
	return levels, nil
}

func levelSpec(node domain.OutputNode, rows []record) LevelSpec[record] {
	parentKey, childKey := node.ParentKey, node.ChildKey
	return LevelSpec[record]{
		Rows:      rows,
		ParentKey: func(r record) string { return r.key(parentKey) },
		ChildKey:  func(r record) string { return r.key(childKey) },
	}
}

func toNode(t *TreeNode[record], outputs []domain.OutputNode, strategy *Strategy) *Node {
	out := outputs[t.Level-1]
	n := &Node{Fields: make([]Field, len(out.Fields))}
	for i, name := range out.Fields {
		v := t.Row.get(name)
		if strategy != nil && strategy.Applies(name) {
			v = strategy.Encode(v)
		}
		n.Fields[i] = Field{Name: name, Value: v}
	}

	if t.Level < len(outputs) {
		n.Children = make([]*Node, len(t.Children))
		for i, c := range t.Children {
			n.Children[i] = toNode(c, outputs, strategy)
		}
	}
	return n
}

func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		key := strings.ToUpper(strings.TrimSpace(c))
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// FormatValue renders a driver value as response text. NULL is "".
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "1"
		}
		return "0"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
