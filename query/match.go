package query

import (
	"errors"
	"slices"
	"time"

	"github.com/dhamidi/sclview/syntax"
)

// matchTimeout bounds each #match? evaluation.
const matchTimeout = 250 * time.Millisecond

var ErrNoTree = errors.New("query: no tree")

type binding struct {
	capture int
	node    syntax.Node
}

type matcher struct {
	src []byte
	err error
}

// Captures matches every pattern against every node of tree, in pre-order,
// and returns the captures of each successful match. Within one node,
// patterns are tried in query order. Missing nodes never match.
func (q *Query) Captures(tree syntax.Tree) ([]syntax.Capture, error) {
	if tree == nil || tree.RootNode() == nil {
		return nil, ErrNoTree
	}
	m := &matcher{src: tree.Source()}

	var out []syntax.Capture
	stack := []syntax.Node{tree.RootNode()}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := n.ChildCount() - 1; i >= 0; i-- {
			stack = append(stack, n.Child(i))
		}

		for i := range q.patterns {
			top := &q.patterns[i]
			var found []binding
			m.match(top.root, n, nil, func(binds []binding) bool {
				ok, err := m.satisfied(top.predicates, binds)
				if err != nil {
					m.err = err
					return true
				}
				if ok {
					found = binds
				}
				return ok
			})
			if m.err != nil {
				return nil, m.err
			}
			for _, b := range found {
				out = append(out, syntax.Capture{Node: b.node, Name: q.captureNames[b.capture]})
			}
		}
	}
	return out, nil
}

func bind(p *pattern, n syntax.Node, binds []binding) []binding {
	if len(p.captures) == 0 {
		return binds
	}
	out := slices.Clip(binds)
	for _, c := range p.captures {
		out = append(out, binding{capture: c, node: n})
	}
	return out
}

// match tries p against n and calls k with the bindings of every way it
// matches, until k accepts one.
func (m *matcher) match(p *pattern, n syntax.Node, binds []binding, k func([]binding) bool) bool {
	if n.IsMissing() {
		return false
	}
	switch p.kind {
	case patternAlternation:
		for _, alt := range p.alts {
			if alt.field != "" && n.Field() != alt.field {
				continue
			}
			accepted := m.match(alt, n, binds, func(b []binding) bool {
				return k(bind(p, n, b))
			})
			if accepted {
				return true
			}
		}
		return false
	case patternAny:
	case patternNamed:
		if !n.IsNamed() {
			return false
		}
	case patternNode:
		if !n.IsNamed() || n.Kind() != p.name {
			return false
		}
	case patternLiteral:
		if n.IsNamed() || n.Kind() != p.name {
			return false
		}
	}
	return m.matchChildren(p.children, n, 0, bind(p, n, binds), k)
}

// matchChildren matches pats against distinct children of n, in order,
// starting at child index from. Children in between are skipped.
func (m *matcher) matchChildren(pats []*pattern, n syntax.Node, from int, binds []binding, k func([]binding) bool) bool {
	if len(pats) == 0 {
		return k(binds)
	}
	pat := pats[0]
	for i := from; i < n.ChildCount(); i++ {
		child := n.Child(i)
		if pat.field != "" && child.Field() != pat.field {
			continue
		}
		accepted := m.match(pat, child, binds, func(b []binding) bool {
			return m.matchChildren(pats[1:], n, i+1, b, k)
		})
		if accepted {
			return true
		}
	}
	return false
}

func firstBound(binds []binding, capture int) (syntax.Node, bool) {
	for _, b := range binds {
		if b.capture == capture {
			return b.node, true
		}
	}
	return nil, false
}

// satisfied evaluates predicates against the text of the captured nodes. A
// predicate about a capture the match did not bind, which can happen
// inside alternations, holds.
func (m *matcher) satisfied(preds []predicate, binds []binding) (bool, error) {
	for _, p := range preds {
		node, ok := firstBound(binds, p.capture)
		if !ok {
			continue
		}
		text := syntax.Text(node, m.src)

		var result bool
		switch {
		case p.re != nil:
			matched, err := p.re.MatchString(text)
			if err != nil {
				return false, err
			}
			result = matched
		case p.other >= 0:
			other, ok := firstBound(binds, p.other)
			if !ok {
				continue
			}
			result = text == syntax.Text(other, m.src)
		default:
			result = slices.Contains(p.values, text)
		}
		if p.negate {
			result = !result
		}
		if !result {
			return false, nil
		}
	}
	return true, nil
}
