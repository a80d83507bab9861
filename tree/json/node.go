package json

import (
	"encoding/json"

	"github.com/pbanos/grove/tree"
)

/*
NodeEncoder is an interface for objects
that allow encoding nodes of a tree into
slices of bytes.
*/
type NodeEncoder[T any] interface {

	//Encode receives the ID of a node and a copy of it
	//and returns a slice of bytes with the node
	//encoded or an error if the encoding could not
	//be performed for some reason.
	Encode(tree.NodeID, tree.Node[T]) ([]byte, error)
}

type nodeEncoder[T any] struct{}

type node struct {
	ID        tree.NodeID      `json:"id"`
	Kind      string           `json:"kind"`
	Feature   string           `json:"f,omitempty"`
	Left      *tree.NodeID     `json:"l,omitempty"`
	Right     *tree.NodeID     `json:"r,omitempty"`
	Operator  string           `json:"op,omitempty"`
	Threshold *float64         `json:"t,omitempty"`
	Child     *tree.NodeID     `json:"c,omitempty"`
	Value     *json.RawMessage `json:"v,omitempty"`
	Weights   []float64        `json:"w,omitempty"`
}

/*
NewNodeEncoder returns a NodeEncoder that serializes every
node as a JSON object with the following fields:
  - "id": the ID of the node
  - "kind": one of "decision", "choice" or "leaf"
  - "f", "l", "r": the feature and the IDs of the left and right
    choices of a decision node
  - "op", "t", "c": the operator, threshold and child ID of a choice node
  - "v", "w": the JSON encoded value and the weights, if any, of a leaf node
*/
func NewNodeEncoder[T any]() NodeEncoder[T] {
	return nodeEncoder[T]{}
}

func (nodeEncoder[T]) Encode(id tree.NodeID, n tree.Node[T]) ([]byte, error) {
	jn := &node{ID: id, Kind: n.Kind.String()}
	switch n.Kind {
	case tree.Decision:
		left, right := n.Left, n.Right
		jn.Feature = n.Feature
		jn.Left = &left
		jn.Right = &right
	case tree.Choice:
		threshold, child := n.Threshold, n.Child
		jn.Operator = n.Operator.String()
		jn.Threshold = &threshold
		jn.Child = &child
	case tree.Leaf:
		v, err := json.Marshal(n.Value)
		if err != nil {
			return nil, err
		}
		rv := json.RawMessage(v)
		jn.Value = &rv
		jn.Weights = n.Weights
	}
	return json.Marshal(jn)
}
