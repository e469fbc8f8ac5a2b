package protocol

// PathStep is one level of a sparse-merkle-tree inclusion path.
type PathStep struct {
	Sibling Hash `json:"sibling"` // Sibling is the hash of the neighbour node
	Right   bool `json:"right"`   // Right indicates the sibling sits to the right
}

// FoldPath recomputes the tree root from a leaf and its inclusion path.
// Each step hashes the running node with its sibling in path order,
// left-to-right as indicated by the step.
func FoldPath(leaf Hash, path []PathStep) Hash {
	node := leaf

	for _, step := range path {
		if step.Right {
			node = SumConcat(node[:], step.Sibling[:])
		} else {
			node = SumConcat(step.Sibling[:], node[:])
		}
	}

	return node
}
