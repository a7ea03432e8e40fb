package assembler

import "fmt"

// TreeNode is one row placed in the hierarchy.
type TreeNode[R any] struct {
	Row      R
	Level    int
	Children []*TreeNode[R]
}

// LevelSpec describes how the rows of one level attach to the level above.
// ParentKey and ChildKey are ignored on the first level.
type LevelSpec[R any] struct {
	Rows []R
	// ParentKey extracts the matching key from a row of the level above.
	ParentKey func(R) string
	// ChildKey extracts the matching key from a row of this level.
	ChildKey func(R) string
}

// OrphanError reports a row whose key matches no row of the level above.
type OrphanError struct {
	Level int
	Row   int
	Key   string
}

func (e *OrphanError) Error() string {
	return fmt.Sprintf("row %d of level %d has key %q with no parent", e.Row+1, e.Level, e.Key)
}

// AmbiguousParentError reports two rows of one level sharing the key their
// children are matched on.
type AmbiguousParentError struct {
	Level int
	Key   string
}

func (e *AmbiguousParentError) Error() string {
	return fmt.Sprintf("level %d has more than one row with key %q", e.Level, e.Key)
}

// BuildTree nests each level's rows under the row of the level above whose
// ParentKey equals their ChildKey. Levels are numbered from 1.
//
// Every row ends up in exactly one place, so the tree holds as many nodes as
// there are rows. Any row without a parent fails the whole build.
func BuildTree[R any](levels []LevelSpec[R]) ([]*TreeNode[R], error) {
	if len(levels) == 0 {
		return nil, nil
	}

	roots := make([]*TreeNode[R], len(levels[0].Rows))
	for i, row := range levels[0].Rows {
		roots[i] = &TreeNode[R]{Row: row, Level: 1}
	}

	above := roots
	for li := 1; li < len(levels); li++ {
		spec := levels[li]
		level := li + 1

		index := make(map[string]*TreeNode[R], len(above))
		for _, parent := range above {
			key := spec.ParentKey(parent.Row)
			if _, dup := index[key]; dup {
				return nil, &AmbiguousParentError{Level: level - 1, Key: key}
			}
			index[key] = parent
		}

		current := make([]*TreeNode[R], 0, len(spec.Rows))
		for ri, row := range spec.Rows {
			key := spec.ChildKey(row)
			parent, ok := index[key]
			if !ok {
				return nil, &OrphanError{Level: level, Row: ri, Key: key}
			}
			node := &TreeNode[R]{Row: row, Level: level}
			parent.Children = append(parent.Children, node)
			current = append(current, node)
		}
		above = current
	}
	return roots, nil
}
