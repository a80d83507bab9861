package tree

// Kind tells which variant of node a Node is
type Kind uint8

const (
	// Decision nodes test a feature and own a left and a right Choice
	Decision Kind = iota
	// Choice nodes hold a predicate on the feature of their Decision and a child
	Choice
	// Leaf nodes end the tree with a prediction
	Leaf
)

func (k Kind) String() string {
	switch k {
	case Decision:
		return "decision"
	case Choice:
		return "choice"
	case Leaf:
		return "leaf"
	}
	return "unknown"
}

// NodeID identifies a node in the arena of its tree
type NodeID int

// NoNode is the NodeID of a child that has not been attached
const NoNode NodeID = -1

/*
Node is a node of the tree. Only the fields of its Kind are meaningful.
*/
type Node[T any] struct {
	Kind Kind

	// The feature a Decision node asks about
	Feature string
	// The Choice nodes of a Decision, evaluated left first
	Left, Right NodeID

	// The predicate of a Choice node: the feature value of its parent
	// Decision compared with Threshold through Operator
	Operator  Operator
	Threshold float64
	// The Decision or Leaf node selected when the predicate holds
	Child NodeID

	// The decoded prediction of a Leaf
	Value T
	// The per-class sample counts of a Leaf, nil if the tree was
	// exported without weights
	Weights []float64
}

// Complete returns whether a Decision node has both its choices attached
func (n *Node[T]) Complete() bool {
	return n.Kind == Decision && n.Left != NoNode && n.Right != NoNode
}

func newDecision[T any](feature string) Node[T] {
	return Node[T]{Kind: Decision, Feature: feature, Left: NoNode, Right: NoNode, Child: NoNode}
}

func newChoice[T any](op Operator, threshold float64) Node[T] {
	return Node[T]{Kind: Choice, Operator: op, Threshold: threshold, Left: NoNode, Right: NoNode, Child: NoNode}
}

func newLeaf[T any](value T, weights []float64) Node[T] {
	return Node[T]{Kind: Leaf, Value: value, Weights: weights, Left: NoNode, Right: NoNode, Child: NoNode}
}
