// Package navigate steps through the error registry of the current file.
package navigate

import "github.com/dhamidi/sclview/tree"

type State int

const (
	Empty State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "empty"
}

// Navigator is a cursor over a list of error refs. It does not own the
// refs; they stay valid only as long as the index that issued them.
//
// The cursor starts before the first error, so the first Next returns
// error 0 and the first Prev returns the last one. Both wrap around.
type Navigator struct {
	errors []tree.Ref
	cursor int
}

func New(errors []tree.Ref) *Navigator {
	n := &Navigator{}
	n.Load(errors)
	return n
}

// Load replaces the error list and resets the cursor.
func (n *Navigator) Load(errors []tree.Ref) {
	n.errors = append([]tree.Ref(nil), errors...)
	n.cursor = -1
}

func (n *Navigator) State() State {
	if len(n.errors) == 0 {
		return Empty
	}
	return Active
}

// Next moves to the following error. It reports false if there are no
// errors at all.
func (n *Navigator) Next() (tree.Ref, bool) {
	if len(n.errors) == 0 {
		return tree.Ref{}, false
	}
	n.cursor = (n.cursor + 1) % len(n.errors)
	return n.errors[n.cursor], true
}

func (n *Navigator) Prev() (tree.Ref, bool) {
	if len(n.errors) == 0 {
		return tree.Ref{}, false
	}
	if n.cursor <= 0 {
		n.cursor = len(n.errors)
	}
	n.cursor--
	return n.errors[n.cursor], true
}

// Current returns the error under the cursor, if Next or Prev has been
// called since the last Load.
func (n *Navigator) Current() (tree.Ref, bool) {
	if n.cursor < 0 || len(n.errors) == 0 {
		return tree.Ref{}, false
	}
	return n.errors[n.cursor], true
}

// Position returns the 0-based cursor index, -1 before the first move, and
// the number of errors.
func (n *Navigator) Position() (index, total int) {
	return n.cursor, len(n.errors)
}
