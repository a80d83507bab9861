package json

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/pbanos/grove/tree"
)

/*
WriteJSONTree takes a pointer to a tree.Tree, a NodeEncoder and an
io.Writer and serializes the given tree as JSON onto the io.Writer.
A tree is serialized as a JSON object with the following fields:
  - "rootID": the ID of the node at the root of the tree
  - "features": an array with the sorted names of the features the tree asks about
  - "leaves": the number of leaves of the tree
  - "nodes": an array containing the nodes of the tree in depth first order
    serialized by the given NodeEncoder.

An error is returned if the tree cannot be serialized or written
onto the io.Writer.
*/
func WriteJSONTree[T any](t *tree.Tree[T], ne NodeEncoder[T], w io.Writer) error {
	err := marshalJSONTreeHeader(t, w)
	if err != nil {
		return err
	}
	var i int
	err = t.Traverse(false, func(id tree.NodeID, n tree.Node[T]) error {
		err := writeNode(i, id, n, ne, w)
		i++
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "writing node %d", i-1)
	}
	return marshalJSONTreeFooter(w)
}

func marshalJSONTreeHeader[T any](t *tree.Tree[T], w io.Writer) error {
	features := t.FeatureNames()
	if features == nil {
		features = []string{}
	}
	jFeatures, err := json.Marshal(features)
	if err != nil {
		return err
	}
	header := fmt.Sprintf(`{"rootID":%d,"features":%s,"leaves":%d,"nodes":[`, t.Root(), jFeatures, t.Leaves())
	_, err = w.Write([]byte(header))
	return err
}

func writeNode[T any](i int, id tree.NodeID, n tree.Node[T], ne NodeEncoder[T], w io.Writer) error {
	if i != 0 {
		_, err := w.Write([]byte(","))
		if err != nil {
			return err
		}
	}
	jn, err := ne.Encode(id, n)
	if err != nil {
		return err
	}
	_, err = w.Write(jn)
	return err
}

func marshalJSONTreeFooter(w io.Writer) error {
	_, err := w.Write([]byte(`]}`))
	return err
}
