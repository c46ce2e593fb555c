package catalog

// rootKey stands in for a nil parent id in the child index. Node ids are
// assigned from 1, so 0 can never collide.
const rootKey = int64(0)

func parentKey(id *int64) int64 {
	if id == nil {
		return rootKey
	}
	return *id
}

// BuildTree nests a flat node set into a forest rooted at parentID (nil for
// top-level roots). Nodes are grouped by parent id once, then assembled by
// index lookup, so construction is linear in the node count. Every node in
// the result carries a non-nil Children slice. Input nodes are claimed by
// the builder: their Children fields are overwritten.
//
// Stored trees are acyclic by construction (parent edges are write-once),
// but a malformed row set must not hang a read, so assembly skips any node
// it has already placed.
func BuildTree(nodes []*Node, parentID *int64) []*Node {
	index := make(map[int64][]*Node, len(nodes))
	for _, node := range nodes {
		key := parentKey(node.ParentID)
		index[key] = append(index[key], node)
	}

	placed := make(map[int64]bool, len(nodes))
	var build func(parent int64) []*Node
	build = func(parent int64) []*Node {
		children := index[parent]
		out := make([]*Node, 0, len(children))
		for _, child := range children {
			if placed[child.ID] {
				continue
			}
			placed[child.ID] = true
			child.Children = build(child.ID)
			out = append(out, child)
		}
		return out
	}
	return build(parentKey(parentID))
}

// FlattenTree collects ids depth-first; used by tests and the stats view.
func FlattenTree(forest []*Node) []int64 {
	var ids []int64
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, node := range nodes {
			ids = append(ids, node.ID)
			walk(node.Children)
		}
	}
	walk(forest)
	return ids
}
