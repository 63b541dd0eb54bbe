package mdtree

// Visitor is called for each node with its parent and its index among the
// parent's children. The root is visited with a nil parent and index -1.
// Returning false skips the node's children.
type Visitor func(n Node, parent Parent, index int) bool

// Walk visits n and its descendants in document order.
func Walk(n Node, fn Visitor) {
	walk(n, nil, -1, fn)
}

func walk(n Node, parent Parent, index int, fn Visitor) {
	if !fn(n, parent, index) {
		return
	}
	p, ok := n.(Parent)
	if !ok {
		return
	}
	for i, c := range p.Children() {
		walk(c, p, i, fn)
	}
}

// Find returns every node of type T under n, in document order.
func Find[T Node](n Node) []T {
	var found []T
	Walk(n, func(n Node, _ Parent, _ int) bool {
		if t, ok := n.(T); ok {
			found = append(found, t)
		}
		return true
	})
	return found
}
