package scene

// FindSkeleton returns the skeleton of the first skinned mesh under n, depth first.
func FindSkeleton(n *Node) *Skeleton {
	if n == nil {
		return nil
	}
	if n.kind == KindSkinnedMesh && n.Skeleton != nil {
		return n.Skeleton
	}
	for _, c := range n.children {
		if s := FindSkeleton(c); s != nil {
			return s
		}
	}
	return nil
}

// RemoveBones detaches every bone under n. A removed bone takes its subtree with it.
func RemoveBones(n *Node) {
	if n == nil {
		return
	}
	var bones []*Node
	for _, c := range n.children {
		if c.kind == KindBone {
			bones = append(bones, c)
		} else {
			RemoveBones(c)
		}
	}
	for _, b := range bones {
		n.Remove(b)
	}
}

// SetSkeleton points every skinned mesh under n at s.
func SetSkeleton(n *Node, s *Skeleton) {
	n.Traverse(func(c *Node) {
		if c.kind == KindSkinnedMesh {
			c.Skeleton = s
		}
	})
}

// StripName blanks the name of every node under n called name.
func StripName(n *Node, name string) {
	n.Traverse(func(c *Node) {
		if c.Name == name {
			c.Name = ""
		}
	})
}

// CountKind returns how many nodes under n, n included, have the given kind.
func CountKind(n *Node, kind Kind) int {
	count := 0
	n.Traverse(func(c *Node) {
		if c.kind == kind {
			count++
		}
	})
	return count
}
