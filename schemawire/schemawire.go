// Package schemawire implements the composite message codec used to move
// a *tree.Node across a commgroup.Group boundary (spec.md section 9,
// "Composite messaging"): a small schema header describing the node's
// shape, followed by one contiguous leaf byte buffer per leaf node. A
// receiver can decode the header, allocate every destination buffer, and
// only then consume the leaf payloads as they arrive.
package schemawire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/notargets/meshpartition/tree"
)

// shapeNode is the exported mirror of tree.Node's shape used for the JSON
// header. LeafIndex is -1 for group nodes.
type shapeNode struct {
	Name      string       `json:"name,omitempty"`
	Kind      tree.Kind    `json:"kind"`
	LeafIndex int          `json:"leaf_index"`
	LeafLen   int          `json:"leaf_len,omitempty"`
	Children  []*shapeNode `json:"children,omitempty"`
}

// Message is the wire form of an encoded tree.
type Message struct {
	Header []byte
	Leaves [][]byte
}

// Encode flattens n's shape into a JSON header plus one leaf buffer per
// non-group node, in a deterministic depth-first child order (spec.md's
// global-determinism property depends on this being order-preserving).
func Encode(n *tree.Node) (*Message, error) {
	leaves := make([][]byte, 0)
	root, err := encodeNode("", n, &leaves)
	if err != nil {
		return nil, fmt.Errorf("schemawire: %w", err)
	}
	header, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("schemawire: %w", err)
	}
	return &Message{Header: header, Leaves: leaves}, nil
}

func encodeNode(name string, n *tree.Node, leaves *[][]byte) (*shapeNode, error) {
	s := &shapeNode{Name: name, Kind: n.Kind(), LeafIndex: -1}
	if n.Kind() != tree.KindGroup {
		buf, err := encodeLeaf(n)
		if err != nil {
			return nil, err
		}
		s.LeafIndex = len(*leaves)
		s.LeafLen = n.Len()
		*leaves = append(*leaves, buf)
		return s, nil
	}
	for _, childName := range n.ChildNames() {
		child, _ := n.Child(childName)
		cs, err := encodeNode(childName, child, leaves)
		if err != nil {
			return nil, err
		}
		s.Children = append(s.Children, cs)
	}
	return s, nil
}

func encodeLeaf(n *tree.Node) ([]byte, error) {
	switch n.Kind() {
	case tree.KindFloat64:
		v := n.Float64Array()
		buf := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
		}
		return buf, nil
	case tree.KindInt64:
		v := n.Int64Array()
		buf := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(buf[i*8:], uint64(x))
		}
		return buf, nil
	case tree.KindUint64:
		v := n.Uint64Array()
		buf := make([]byte, 8*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint64(buf[i*8:], x)
		}
		return buf, nil
	case tree.KindInt32:
		v := n.Int32Array()
		buf := make([]byte, 4*len(v))
		for i, x := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
		}
		return buf, nil
	case tree.KindString:
		return []byte(n.String()), nil
	default:
		return nil, fmt.Errorf("unencodable leaf kind %d", n.Kind())
	}
}

// Decode reconstructs a *tree.Node from a Message. It parses the whole
// header (shape and per-leaf byte lengths) first, then walks it,
// allocating each leaf slice at the length the header records before
// copying that leaf's bytes from msg.Leaves.
func Decode(msg *Message) (*tree.Node, error) {
	var root shapeNode
	if err := json.Unmarshal(msg.Header, &root); err != nil {
		return nil, fmt.Errorf("schemawire: %w", err)
	}
	return decodeNode(&root, msg.Leaves)
}

func decodeNode(s *shapeNode, leaves [][]byte) (*tree.Node, error) {
	n := tree.NewNode()
	if s.LeafIndex >= 0 {
		if s.LeafIndex >= len(leaves) {
			return nil, fmt.Errorf("schemawire: leaf index %d out of range", s.LeafIndex)
		}
		if err := decodeLeaf(n, s.Kind, s.LeafLen, leaves[s.LeafIndex]); err != nil {
			return nil, err
		}
		return n, nil
	}
	for _, cs := range s.Children {
		c, err := decodeNode(cs, leaves)
		if err != nil {
			return nil, err
		}
		n.AddChild(cs.Name).SetExternal(c)
	}
	return n, nil
}

func decodeLeaf(n *tree.Node, kind tree.Kind, leafLen int, buf []byte) error {
	switch kind {
	case tree.KindFloat64:
		out := make([]float64, leafLen)
		for i := range out {
			out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		n.SetFloat64Array(out)
	case tree.KindInt64:
		out := make([]int64, leafLen)
		for i := range out {
			out[i] = int64(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		n.SetInt64Array(out)
	case tree.KindUint64:
		out := make([]uint64, leafLen)
		for i := range out {
			out[i] = binary.LittleEndian.Uint64(buf[i*8:])
		}
		n.SetUint64Array(out)
	case tree.KindInt32:
		out := make([]int32, leafLen)
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		n.SetInt32Array(out)
	case tree.KindString:
		n.SetString(string(buf))
	default:
		return fmt.Errorf("schemawire: undecodable leaf kind %d", kind)
	}
	return nil
}
