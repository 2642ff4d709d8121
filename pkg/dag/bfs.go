package dag

// BFSDown walks breadth-first from the given roots toward the leaves,
// visiting each reachable node exactly once. Shared subtrees are visited
// through their first-discovered parent only.
func BFSDown(roots []*Node, visit func(*Node) error) error {
	seen := make(map[*Node]bool, len(roots))
	queue := make([]*Node, 0, len(roots))
	for _, r := range roots {
		if r == nil || seen[r] {
			continue
		}
		seen[r] = true
		queue = append(queue, r)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if err := visit(n); err != nil {
			return err
		}
		for _, c := range n.Children() {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return nil
}

// BFSUp walks breadth-first from start toward the roots, visiting start
// and each reachable ancestor exactly once.
func BFSUp(start *Node, visit func(*Node) error) error {
	if start == nil {
		return nil
	}
	seen := map[*Node]bool{start: true}
	queue := []*Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if err := visit(n); err != nil {
			return err
		}
		for _, p := range n.Parents() {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return nil
}
