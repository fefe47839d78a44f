package internal

// Tree walks a forest of nodes whose children are produced on demand.
// The children function must not perform I/O; it reads whatever the node already holds.
type Tree[T any] struct {
	Roots    []T
	children func(T) []T
}

// NewTree creates a Tree over roots.
func NewTree[T any](roots []T, children func(T) []T) *Tree[T] {
	return &Tree[T]{Roots: roots, children: children}
}

// Flatten returns every node in depth-first pre-order.
func (t *Tree[T]) Flatten() []T {
	var result []T
	t.Walk(func(node T) {
		result = append(result, node)
	})
	return result
}

// Filter returns the nodes that satisfy keep, in depth-first pre-order.
func (t *Tree[T]) Filter(keep func(T) bool) []T {
	var result []T
	t.Walk(func(node T) {
		if keep(node) {
			result = append(result, node)
		}
	})
	return result
}

// Find returns the first node satisfying condition.
func (t *Tree[T]) Find(condition func(T) bool) (T, bool) {
	return t.findRecursive(t.Roots, condition)
}

func (t *Tree[T]) findRecursive(nodes []T, condition func(T) bool) (T, bool) {
	for _, node := range nodes {
		if condition(node) {
			return node, true
		}
		if found, ok := t.findRecursive(t.children(node), condition); ok {
			return found, true
		}
	}
	var zero T
	return zero, false
}

// Depth returns the maximum depth of the tree; a forest of roots alone has depth 0.
func (t *Tree[T]) Depth() int {
	return t.depthRecursive(t.Roots, 0)
}

func (t *Tree[T]) depthRecursive(nodes []T, current int) int {
	deepest := current
	for _, node := range nodes {
		kids := t.children(node)
		if len(kids) == 0 {
			continue
		}
		if d := t.depthRecursive(kids, current+1); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the total number of nodes.
func (t *Tree[T]) Count() int {
	n := 0
	t.Walk(func(T) { n++ })
	return n
}

// Walk applies fn to each node in depth-first pre-order.
func (t *Tree[T]) Walk(fn func(T)) {
	t.walkRecursive(t.Roots, fn)
}

func (t *Tree[T]) walkRecursive(nodes []T, fn func(T)) {
	for _, node := range nodes {
		fn(node)
		t.walkRecursive(t.children(node), fn)
	}
}
