package compositefs

import "sort"

// mountNode is one directory of the virtual tree. Leaf nodes other than
// the root always carry a mount; inner nodes may carry one too, in which
// case the children are mixed into the backend's listing.
type mountNode struct {
	mount    *mount
	children map[string]*mountNode
}

func newMountNode() *mountNode {
	return &mountNode{children: make(map[string]*mountNode)}
}

func (n *mountNode) isEmpty() bool {
	return n.mount == nil && len(n.children) == 0
}

// sortedChildren returns the child names in a stable order
func (n *mountNode) sortedChildren() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// find returns the node at exactly uri, or nil
func (n *mountNode) find(uri string) *mountNode {
	node := n
	for uri != "" {
		var name string
		name, uri = splitFirst(uri)

		child, ok := node.children[name]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// findStorage returns the deepest node on the path to uri that carries a
// mount, along with the part of uri below that node. The root is a
// candidate too. If no node on the path has a mount, the returned node is
// the root and its mount is nil.
func (n *mountNode) findStorage(uri string) (*mountNode, string) {
	best, residual := n, uri

	node := n
	for uri != "" {
		var name string
		name, uri = splitFirst(uri)

		child, ok := node.children[name]
		if !ok {
			break
		}
		node = child
		if node.mount != nil {
			best, residual = node, uri
		}
	}
	return best, residual
}

// make returns the node at uri, creating missing nodes on the way
func (n *mountNode) make(uri string) *mountNode {
	node := n
	for uri != "" {
		var name string
		name, uri = splitFirst(uri)

		child, ok := node.children[name]
		if !ok {
			child = newMountNode()
			node.children[name] = child
		}
		node = child
	}
	return node
}

// unmount detaches the mount at exactly uri and prunes nodes left empty.
// The receiver itself is never pruned.
func (n *mountNode) unmount(uri string) (*mount, bool) {
	if uri == "" {
		m := n.mount
		n.mount = nil
		return m, m != nil
	}

	name, rest := splitFirst(uri)
	child, ok := n.children[name]
	if !ok {
		return nil, false
	}

	m, ok := child.unmount(rest)
	if !ok {
		return nil, false
	}
	if child.isEmpty() {
		delete(n.children, name)
	}
	return m, true
}

// visit calls fn for every mount at or below n in pre-order, children
// sorted by name. prefix is the virtual path of n.
func (n *mountNode) visit(prefix string, fn func(uri string, m *mount)) {
	if n.mount != nil {
		fn(prefix, n.mount)
	}
	for _, name := range n.sortedChildren() {
		n.children[name].visit(JoinURI(prefix, name), fn)
	}
}
