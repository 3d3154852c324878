package tree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlLeaf is the wire shape used when a Node carries leaf data.
type yamlLeaf struct {
	Kind  string      `yaml:"kind"`
	Value interface{} `yaml:"value"`
}

// MarshalYAML implements yaml.Marshaler. Group nodes marshal to a mapping
// of child name to child; leaf nodes marshal to a {kind, value} mapping.
// This is used only for test fixtures and the CLI driver (section 9 of
// SPEC_FULL.md) — it is not a second configuration mechanism.
func (n *Node) MarshalYAML() (interface{}, error) {
	switch n.kind {
	case KindFloat64:
		return yamlLeaf{Kind: "float64", Value: n.f64}, nil
	case KindInt64:
		return yamlLeaf{Kind: "int64", Value: n.i64}, nil
	case KindUint64:
		return yamlLeaf{Kind: "uint64", Value: n.u64}, nil
	case KindInt32:
		return yamlLeaf{Kind: "int32", Value: n.i32}, nil
	case KindString:
		return yamlLeaf{Kind: "string", Value: n.str}, nil
	default:
		m := make(map[string]interface{}, len(n.names))
		for _, name := range n.names {
			m[name] = n.children[name]
		}
		return m, nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var leafProbe struct {
			Kind  string    `yaml:"kind"`
			Value yaml.Node `yaml:"value"`
		}
		if looksLikeLeaf(value) {
			if err := value.Decode(&leafProbe); err != nil {
				return err
			}
			return decodeLeaf(n, leafProbe.Kind, &leafProbe.Value)
		}

		var raw map[string]yaml.Node
		if err := value.Decode(&raw); err != nil {
			return err
		}
		n.kind = KindGroup
		n.children = make(map[string]*Node, len(value.Content)/2)
		n.names = nil
		for i := 0; i+1 < len(value.Content); i += 2 {
			name := value.Content[i].Value
			child := NewNode()
			if err := child.UnmarshalYAML(value.Content[i+1]); err != nil {
				return fmt.Errorf("tree: child %q: %w", name, err)
			}
			n.children[name] = child
			n.names = append(n.names, name)
		}
		return nil
	}
	return fmt.Errorf("tree: unsupported yaml node kind %v", value.Kind)
}

func looksLikeLeaf(value *yaml.Node) bool {
	hasKind, hasValue := false, false
	for i := 0; i+1 < len(value.Content); i += 2 {
		switch value.Content[i].Value {
		case "kind":
			hasKind = true
		case "value":
			hasValue = true
		}
	}
	return hasKind && hasValue
}

func decodeLeaf(n *Node, kind string, value *yaml.Node) error {
	switch kind {
	case "float64":
		var v []float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		n.SetFloat64Array(v)
	case "int64":
		var v []int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		n.SetInt64Array(v)
	case "uint64":
		var v []uint64
		if err := value.Decode(&v); err != nil {
			return err
		}
		n.SetUint64Array(v)
	case "int32":
		var v []int32
		if err := value.Decode(&v); err != nil {
			return err
		}
		n.SetInt32Array(v)
	case "string":
		var v string
		if err := value.Decode(&v); err != nil {
			return err
		}
		n.SetString(v)
	default:
		return fmt.Errorf("tree: unknown leaf kind %q", kind)
	}
	return nil
}

// LoadYAMLFile reads a Node tree from a YAML file, used by the CLI driver
// and test fixtures.
func LoadYAMLFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("tree: read %s: %w", path, err)
	}
	n := NewNode()
	if err := yaml.Unmarshal(data, n); err != nil {
		return nil, fmt.Errorf("tree: parse %s: %w", path, err)
	}
	return n, nil
}

// SaveYAMLFile writes a Node tree to a YAML file.
func SaveYAMLFile(path string, n *Node) error {
	data, err := yaml.Marshal(n)
	if err != nil {
		return fmt.Errorf("tree: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("tree: write %s: %w", path, err)
	}
	return nil
}
