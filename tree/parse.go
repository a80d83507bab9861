package tree

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	branchMarker  = "|--- "
	classPrefix   = "class:"
	weightsPrefix = "weights:"
)

/*
ParseError is returned when an export cannot be turned into a tree.
Line is the 1-based number of the offending line; for errors found
once the whole export was read, it is the number of lines read and
Text is empty.
*/
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("parsing tree export: after line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parsing tree export: line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

/*
Parse takes an io.Reader with a tree exported as text by scikit-learn's
export_text and a Decoder for its class values and returns the tree
rebuilt from it, or a *ParseError.

Each non blank line, once stripped of its branch markers, is either a
decision line (<feature> <op> <threshold>) or a leaf line (class: <value>
or weights: [<w1>, <w2>, ...] class: <value>). Depth is only conveyed by
the markers, so the tree is rebuilt with a stack of the nodes still
waiting for children.
*/
func Parse[T any](r io.Reader, dec Decoder[T]) (*Tree[T], error) {
	b := &builder[T]{dec: dec, root: NoNode}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var line int
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		if err := b.processLine(stripMarkers(text)); err != nil {
			return nil, &ParseError{Line: line, Text: text, Err: err}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: line, Err: errors.Wrap(err, "reading export")}
	}
	t, err := b.finish()
	if err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	return t, nil
}

// ParseString parses a tree from the export text s
func ParseString[T any](s string, dec Decoder[T]) (*Tree[T], error) {
	return Parse(strings.NewReader(s), dec)
}

/*
ParseFile takes a path to a file with a tree export and returns
the tree parsed from it or an error.
*/
func ParseFile[T any](path string, dec Decoder[T]) (*Tree[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tree export from %s", path)
	}
	defer f.Close()
	t, err := Parse(f, dec)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing tree export from %s", path)
	}
	return t, nil
}

type builder[T any] struct {
	dec   Decoder[T]
	nodes []Node[T]
	stack []NodeID
	root  NodeID
}

func (b *builder[T]) add(n Node[T]) NodeID {
	b.nodes = append(b.nodes, n)
	return NodeID(len(b.nodes) - 1)
}

func (b *builder[T]) push(id NodeID) {
	b.stack = append(b.stack, id)
}

func (b *builder[T]) pop() {
	b.stack = b.stack[:len(b.stack)-1]
}

func (b *builder[T]) peek() NodeID {
	return b.stack[len(b.stack)-1]
}

func (b *builder[T]) processLine(payload string) error {
	if b.root != NoNode && b.nodes[b.root].Kind == Leaf {
		return errors.New("unexpected line after single leaf tree")
	}
	if !isLeafLine(payload) {
		return b.processDecision(payload)
	}
	leaf, err := b.parseLeaf(payload)
	if err != nil {
		return err
	}
	if len(b.stack) == 0 {
		b.root = b.add(leaf)
		return nil
	}
	return b.processLeaf(leaf)
}

// processLeaf closes the choice on top of the stack with the leaf and
// then every decision that got both its branches closed with it, but
// for the root which stays until the end of the export.
func (b *builder[T]) processLeaf(leaf Node[T]) error {
	top := b.peek()
	if b.nodes[top].Kind != Choice {
		return errors.Errorf("leaf without an open branch, %s on feature %s is complete", b.nodes[top].Kind, b.nodes[top].Feature)
	}
	id := b.add(leaf)
	b.nodes[top].Child = id
	b.pop()
	for len(b.stack) > 1 && b.nodes[b.peek()].Complete() {
		b.pop()
	}
	return nil
}

func (b *builder[T]) processDecision(payload string) error {
	feature, op, threshold, err := parseDecision(payload)
	if err != nil {
		return err
	}
	var owner NodeID
	if len(b.stack) == 0 {
		owner = b.add(newDecision[T](feature))
		b.root = owner
		b.push(owner)
	} else {
		top := b.peek()
		switch n := b.nodes[top]; {
		case n.Kind == Decision && n.Feature == feature:
			if n.Complete() {
				return errors.Errorf("decision on feature %s already has both branches", feature)
			}
			owner = top
		case n.Kind == Choice:
			owner = b.add(newDecision[T](feature))
			b.nodes[top].Child = owner
			b.pop()
			b.push(owner)
		default:
			return errors.Errorf("no open branch for a decision on feature %s under decision on feature %s", feature, n.Feature)
		}
	}
	choice := b.add(newChoice[T](op, threshold))
	if b.nodes[owner].Left == NoNode {
		b.nodes[owner].Left = choice
	} else {
		b.nodes[owner].Right = choice
	}
	b.push(choice)
	return nil
}

func (b *builder[T]) finish() (*Tree[T], error) {
	if b.root == NoNode {
		return nil, errors.New("empty tree export")
	}
	if b.nodes[b.root].Kind == Decision {
		if len(b.stack) != 1 || b.peek() != b.root || !b.nodes[b.root].Complete() {
			return nil, errors.Errorf("unbalanced tree export, %d nodes left without branches", len(b.stack))
		}
	}
	t := &Tree[T]{nodes: b.nodes, root: b.root}
	t.features = collectFeatureNames(t)
	t.leaves = countLeaves(t)
	return t, nil
}

func (b *builder[T]) parseLeaf(payload string) (Node[T], error) {
	var weights []float64
	rest := payload
	if strings.HasPrefix(rest, weightsPrefix) {
		rest = strings.TrimSpace(rest[len(weightsPrefix):])
		end := strings.Index(rest, "]")
		if !strings.HasPrefix(rest, "[") || end < 0 {
			return Node[T]{}, errors.Errorf("malformed weights in leaf %q", payload)
		}
		var err error
		weights, err = parseWeights(rest[1:end])
		if err != nil {
			return Node[T]{}, err
		}
		rest = strings.TrimSpace(rest[end+1:])
	}
	if !strings.HasPrefix(rest, classPrefix) {
		return Node[T]{}, errors.Errorf("malformed leaf %q", payload)
	}
	class := strings.TrimSpace(rest[len(classPrefix):])
	value, err := b.dec(class)
	if err != nil {
		return Node[T]{}, errors.Wrapf(err, "decoding class %q", class)
	}
	return newLeaf(value, weights), nil
}

func parseWeights(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty weights")
	}
	parts := strings.Split(s, ",")
	weights := make([]float64, len(parts))
	for i, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing weight %d", i)
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errors.Errorf("invalid weight %v", w)
		}
		weights[i] = w
	}
	return weights, nil
}

// parseDecision splits a <feature> <op> <threshold> line. The first
// operator found, trying two-character ones first, splits it.
func parseDecision(payload string) (string, Operator, float64, error) {
	for _, op := range operators {
		token := op.String()
		i := strings.Index(payload, token)
		if i < 0 {
			continue
		}
		feature := strings.TrimSpace(payload[:i])
		if feature == "" {
			return "", 0, 0, errors.Errorf("no feature before operator %s", token)
		}
		value := strings.TrimSpace(payload[i+len(token):])
		threshold, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", 0, 0, errors.Wrapf(err, "parsing threshold for feature %s", feature)
		}
		return feature, op, threshold, nil
	}
	return "", 0, 0, errors.Errorf("no operator found in %q", payload)
}

func isLeafLine(payload string) bool {
	return strings.HasPrefix(payload, classPrefix) || strings.HasPrefix(payload, weightsPrefix)
}

func stripMarkers(line string) string {
	for {
		i := strings.Index(line, branchMarker)
		if i < 0 {
			break
		}
		line = line[i+len(branchMarker):]
	}
	return strings.TrimSpace(line)
}
