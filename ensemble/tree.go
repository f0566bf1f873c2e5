package ensemble

// Node represents a single node in a regression tree.
type Node struct {
	LeftChild  int // -1 for leaves
	RightChild int // -1 for leaves

	// Split information (for internal nodes)
	SplitFeature int
	Threshold    float64 // rows with value <= Threshold go left
	Gain         float64

	// Leaf information
	LeafValue float64 // unshrunk leaf weight
	Count     int     // training rows that reached the node
}

// IsLeaf returns true if the node is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single tree in the ensemble. Nodes[0] is the root.
type Tree struct {
	ShrinkageRate float64
	Nodes         []Node
}

// Predict returns the shrunk leaf value reached by one sample.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

// NumLeaves counts leaf nodes.
func (t *Tree) NumLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Depth returns the length of the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		n := &t.Nodes[id]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.LeftChild), walk(n.RightChild))
	}
	return walk(0)
}
