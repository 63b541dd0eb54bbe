package mdtree

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type action int

const (
	actionKeep action = iota
	actionReplace
	actionRemove
)

// Edit is the outcome of transforming one node.
type Edit struct {
	action action
	node   Node
}

// Keep leaves the node in place.
func Keep() Edit { return Edit{action: actionKeep} }

// Replace swaps the node for n.
func Replace(n Node) Edit { return Edit{action: actionReplace, node: n} }

// Remove drops the node from its parent.
func Remove() Edit { return Edit{action: actionRemove} }

// TransformFunc computes the edit for one node. It must not modify the tree.
type TransformFunc[T Node] func(ctx context.Context, n T) (Edit, error)

type match struct {
	parent Parent
	index  int
}

// Transform runs fn on every T under root concurrently, at most limit at a
// time (no bound when limit <= 0), then applies the edits. Indices are
// resolved against each parent's children as they were before any edit, so
// several removals in one parent never shift one another. When any call
// fails the tree is left untouched and the first error is returned.
func Transform[T Node](ctx context.Context, root Node, limit int, fn TransformFunc[T]) error {
	var (
		nodes   []T
		matches []match
	)
	Walk(root, func(n Node, parent Parent, index int) bool {
		if t, ok := n.(T); ok && parent != nil {
			nodes = append(nodes, t)
			matches = append(matches, match{parent: parent, index: index})
		}
		return true
	})
	if len(nodes) == 0 {
		return ctx.Err()
	}

	edits := make([]Edit, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, n := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			edit, err := fn(gctx, n)
			if err != nil {
				return err
			}
			edits[i] = edit
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	apply(matches, edits)
	return nil
}

// apply rebuilds the children of every touched parent from a snapshot.
func apply(matches []match, edits []Edit) {
	type plan struct {
		parent Parent
		byIdx  map[int]Edit
	}
	var plans []*plan
	index := make(map[Parent]*plan)
	for i, m := range matches {
		if edits[i].action == actionKeep {
			continue
		}
		p, ok := index[m.parent]
		if !ok {
			p = &plan{parent: m.parent, byIdx: make(map[int]Edit)}
			index[m.parent] = p
			plans = append(plans, p)
		}
		p.byIdx[m.index] = edits[i]
	}

	for _, p := range plans {
		snapshot := p.parent.Children()
		next := make([]Node, 0, len(snapshot))
		for i, child := range snapshot {
			edit, ok := p.byIdx[i]
			if !ok {
				next = append(next, child)
				continue
			}
			if edit.action == actionReplace && edit.node != nil {
				next = append(next, edit.node)
			}
		}
		p.parent.SetChildren(next)
	}
}
